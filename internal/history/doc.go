// Package history persists one row per matching run in a SQLite ledger.
//
// The ledger answers "what was matched for this sample folder, and when":
// run status, candidate and match counts, and the diagnostics file written
// when calibration frames were missing. Frame lists themselves are not
// stored; the diagnostics export holds the full metadata.
package history

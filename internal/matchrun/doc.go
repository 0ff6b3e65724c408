// Package matchrun runs one calibration match end to end: it lists the
// sample folder and the open-beam and dark-current roots, extracts metadata,
// partitions and matches, exports diagnostics when a list comes back empty,
// and records the run in the history ledger.
//
// Runs are serialized per state directory with a file lock so concurrent
// invocations cannot interleave ledger writes or diagnostics files.
package matchrun

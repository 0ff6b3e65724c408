// Package logging assembles the slog loggers used by calmatch.
//
// Console output is a compact single-line format (or JSON when configured)
// written to stderr; when a log directory is configured every record is also
// appended to a JSON log file. Context helpers tag lines with the run ID and
// sample folder so a run can be traced through the log file.
package logging

// Package main hosts the calmatch CLI.
//
// The Cobra command tree resolves configuration once, builds the logger and
// hands matching runs to internal/matchrun. Commands stay thin: `match` runs
// the matcher and prints the open-beam and dark-current lists, `inspect`
// shows the metadata calmatch reads from frames, `history` reads the run
// ledger and `config` scaffolds and checks the configuration file.
package main

// Package logs provides file tailing and offset helpers for the CLI.
//
// It streams the application log with bounded memory usage, supports
// negative offsets for "tail last N lines" reads, and powers follow mode
// for `reviewhub logs --follow`. Callers supply context cancellation so
// background polling shuts down cleanly when the CLI exits.
package logs

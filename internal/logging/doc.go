// Package logging builds the slog loggers used across Review Hub.
//
// Two output formats are supported: a compact console format for
// interactive use and JSON for log files or machine consumption. Component
// loggers carry a "component" attribute so pipeline, server, and engine
// log lines can be told apart in one stream.
package logging

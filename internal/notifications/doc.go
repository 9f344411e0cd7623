// Package notifications delivers review lifecycle events via pluggable
// notifiers.
//
// The default implementation publishes to ntfy using the topic configured
// in config.toml and gracefully degrades to a no-op when notifications are
// disabled. Review and error events can be toggled independently so a
// topic shared with other tooling only carries what the user asked for.
//
// Extend this package if you need alternative transports; pipeline code
// depends only on the Service interface.
package notifications

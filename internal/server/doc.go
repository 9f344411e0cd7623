// Package server hosts the loopback review UI for one manifest: static
// assets, the manifest and its artifacts, and the token-guarded comment
// API. One server instance serves one review session and marks its
// lifetime with a lock record on disk.
package server

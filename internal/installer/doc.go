// Package installer provisions the isolated Python environments the
// synthesis engines run in and tracks what has been installed.
//
// Each engine gets its own virtualenv under the data directory so the two
// engines never share a dependency tree. A SQLite ledger records what was
// installed where, but the ledger is advisory only: availability is always
// re-verified against the environment itself, and a ledger entry whose
// environment no longer imports cleanly is discarded rather than trusted.
//
// Installs are heavyweight (multi-gigabyte model downloads), so the
// manager runs pre-flight checks first and asks for confirmation through a
// caller-supplied callback before touching the network.
package installer

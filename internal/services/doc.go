// Package services groups the speech synthesis engine integrations.
//
// Each subpackage wraps one engine behind the tts.Engine interface: it owns
// the engine's embedded Python worker, its pip dependency set, and the
// mapping from a dialogue script to the worker's invocation. Adding an
// engine means adding a subpackage here and registering it in the CLI's
// engine list.
package services

// Package tts defines the capability interface the synthesis engines
// implement and the selection policy that picks one.
//
// Engines are interchangeable behind a small interface; there is no
// quality ranking, only declared language support. Both engines speak the
// same worker protocol: a script JSON handed over via temporary file, a
// Python subprocess that prints one JSON progress line per completed unit
// of work on stdout, a WAV file, and a timestamps.json beside it.
package tts

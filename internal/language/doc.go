// Package language normalizes the locale codes a review can be authored
// in. Code normalization, display names, and the supported set are
// consolidated here so the manifest, engine selection, and CLI surfaces
// agree on one vocabulary.
package language

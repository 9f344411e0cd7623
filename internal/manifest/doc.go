// Package manifest owns the on-disk record for one review cycle: the
// reviewed source's sections, reviewer comments, and generated-media
// metadata. It is the single source of truth for a review.
//
// Persistence is a single JSON document written with a temp-file-then-
// rename discipline, so a concurrent reader never observes a partially
// written manifest and a crash mid-write leaves the previous valid file
// in place. The store assumes sequential writers; in-process callers that
// mutate concurrently must serialize around Save themselves.
package manifest

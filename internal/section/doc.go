// Package section splits markdown documents into heading-delimited
// sections and assigns each one a stable derived identifier.
//
// Identifiers are content-based: every component of the heading path is
// slugified and the components are joined with "--" under an "s-" prefix.
// Documents routinely repeat heading text (for example "Acceptance
// Criteria" under several stories), so a positional occurrence index keyed
// by the full heading-path slug disambiguates duplicates. The second
// occurrence of an identical path gets a "-1" suffix, the third "-2", and
// so on. Ids therefore survive edits that do not change heading text or
// heading order upstream of a section, which positional line numbering
// would not.
package section

// Package archive commits preview records into the immutable archive. A
// commit is idempotent per preview: repeated attempts for an already-archived
// preview report the existing archive record instead of failing or
// duplicating it.
package archive

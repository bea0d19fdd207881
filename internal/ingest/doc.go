// Package ingest validates untrusted uploads before anything reaches durable
// storage.
//
// The validator sniffs the leading bytes of the stream and classifies them
// against a magic-byte table independent of the caller-declared content type.
// Executable signatures are rejected outright. Filenames are reduced to a
// sanitized basename; the storage path is derived from the owner identity and
// a generated identifier, never from caller input. Size limits are enforced
// while streaming with a bounded chunk buffer, and any partially written temp
// file is removed before a rejection is returned.
package ingest

// Package api exposes the preview lifecycle over HTTP. Uploads stream through
// the ingestion validator, lifecycle actions dispatch through the stage
// engine, and reads come straight from the record store.
//
// Owner identity arrives in the X-Owner-ID header. The header is set by an
// authenticating proxy upstream; this package trusts it and uses it to scope
// every read and write.
package api

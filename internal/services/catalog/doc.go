// Package catalog wraps the free record-catalog search API used to enrich
// identified previews with release metadata before any paid service is
// consulted.
package catalog

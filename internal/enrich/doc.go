// Package enrich fills missing metadata on reviewed previews through a
// cost-ordered cascade: fingerprint cache first, then the free catalog,
// and the paid vision service only as a last resort. Enrichment only fills
// empty fields; it never overwrites values a higher-trust source produced.
package enrich

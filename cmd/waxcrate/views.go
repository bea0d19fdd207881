package main

import "time"

// JSON shapes returned by the daemon API.

type fieldsPayload struct {
	Artist        string `json:"artist"`
	Album         string `json:"album"`
	Title         string `json:"title"`
	Label         string `json:"label"`
	Year          string `json:"year"`
	CatalogNumber string `json:"catalog_number"`
	Country       string `json:"country"`
	Format        string `json:"format"`
}

type previewPayload struct {
	PreviewID        string        `json:"preview_id"`
	Status           string        `json:"status"`
	Fields           fieldsPayload `json:"fields"`
	Confidence       float64       `json:"confidence"`
	AnalysisModel    string        `json:"analysis_model"`
	AnalysisError    string        `json:"analysis_error"`
	EnrichmentSource string        `json:"enrichment_source"`
	EstimatedCost    int           `json:"estimated_cost_cents"`
	ErrorMessage     string        `json:"error_message"`
	CreatedAt        time.Time     `json:"created_at"`
}

type recordPayload struct {
	RecordID         string        `json:"record_id"`
	PreviewID        string        `json:"preview_id"`
	Fields           fieldsPayload `json:"fields"`
	Confidence       float64       `json:"confidence"`
	AnalysisModel    string        `json:"analysis_model"`
	EnrichmentSource string        `json:"enrichment_source"`
	ArchivedAt       time.Time     `json:"archived_at"`
}

type archivePayload struct {
	RecordID string        `json:"record_id"`
	Created  bool          `json:"created"`
	Status   string        `json:"status"`
	Record   recordPayload `json:"record"`
}

type uploadPayload struct {
	PreviewID    string `json:"preview_id"`
	Status       string `json:"status"`
	DetectedMIME string `json:"detected_mime"`
	Size         int64  `json:"size"`
}

type healthPayload struct {
	Status string `json:"status"`
	Store  struct {
		Previews   int `json:"Previews"`
		Uploaded   int `json:"Uploaded"`
		Analyzed   int `json:"Analyzed"`
		Reviewed   int `json:"Reviewed"`
		Enriched   int `json:"Enriched"`
		Archived   int `json:"Archived"`
		Tombstones int `json:"Tombstones"`
	} `json:"store"`
	Stages []struct {
		Name   string `json:"name"`
		Ready  bool   `json:"ready"`
		Detail string `json:"detail"`
	} `json:"stages"`
}

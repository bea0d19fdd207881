package api

import (
	"time"

	"waxcrate/internal/records"
)

type fieldsView struct {
	Artist        string `json:"artist,omitempty"`
	Album         string `json:"album,omitempty"`
	Title         string `json:"title,omitempty"`
	Label         string `json:"label,omitempty"`
	Year          string `json:"year,omitempty"`
	CatalogNumber string `json:"catalog_number,omitempty"`
	Country       string `json:"country,omitempty"`
	Format        string `json:"format,omitempty"`
}

func newFieldsView(f records.Fields) fieldsView {
	return fieldsView{
		Artist:        f.Artist,
		Album:         f.Album,
		Title:         f.Title,
		Label:         f.Label,
		Year:          f.Year,
		CatalogNumber: f.CatalogNumber,
		Country:       f.Country,
		Format:        f.Format,
	}
}

type previewView struct {
	PreviewID        string     `json:"preview_id"`
	OwnerID          string     `json:"owner_id"`
	Status           string     `json:"status"`
	Fields           fieldsView `json:"fields"`
	Confidence       float64    `json:"confidence"`
	AnalysisModel    string     `json:"analysis_model,omitempty"`
	AnalysisError    string     `json:"analysis_error,omitempty"`
	EnrichmentSource string     `json:"enrichment_source,omitempty"`
	EstimatedCost    int        `json:"estimated_cost_cents"`
	ErrorMessage     string     `json:"error_message,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	AnalyzedAt       *time.Time `json:"analyzed_at,omitempty"`
	ReviewedAt       *time.Time `json:"reviewed_at,omitempty"`
	EnrichedAt       *time.Time `json:"enriched_at,omitempty"`
}

func newPreviewView(rec *records.PreviewRecord) previewView {
	source := ""
	if rec.EnrichmentSource != "" && rec.EnrichmentSource != records.EnrichmentNone {
		source = string(rec.EnrichmentSource)
	}
	return previewView{
		PreviewID:        rec.PreviewID,
		OwnerID:          rec.OwnerID,
		Status:           string(rec.State),
		Fields:           newFieldsView(rec.Fields),
		Confidence:       rec.Confidence,
		AnalysisModel:    rec.AnalysisModel,
		AnalysisError:    rec.AnalysisError,
		EnrichmentSource: source,
		EstimatedCost:    rec.EstimatedCost,
		ErrorMessage:     rec.ErrorMessage,
		CreatedAt:        rec.CreatedAt,
		UpdatedAt:        rec.UpdatedAt,
		AnalyzedAt:       rec.AnalyzedAt,
		ReviewedAt:       rec.ReviewedAt,
		EnrichedAt:       rec.EnrichedAt,
	}
}

type archiveView struct {
	RecordID         string     `json:"record_id"`
	PreviewID        string     `json:"preview_id"`
	OwnerID          string     `json:"owner_id"`
	Fields           fieldsView `json:"fields"`
	Confidence       float64    `json:"confidence"`
	AnalysisModel    string     `json:"analysis_model,omitempty"`
	EnrichmentSource string     `json:"enrichment_source"`
	ArchivedAt       time.Time  `json:"archived_at"`
}

func newArchiveView(rec *records.ArchiveRecord) archiveView {
	return archiveView{
		RecordID:         rec.RecordID,
		PreviewID:        rec.PreviewID,
		OwnerID:          rec.OwnerID,
		Fields:           newFieldsView(rec.Fields),
		Confidence:       rec.Confidence,
		AnalysisModel:    rec.AnalysisModel,
		EnrichmentSource: string(rec.EnrichmentSource),
		ArchivedAt:       rec.ArchivedAt,
	}
}

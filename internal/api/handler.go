package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"waxcrate/internal/archive"
	"waxcrate/internal/ingest"
	"waxcrate/internal/logging"
	"waxcrate/internal/pipeline"
	"waxcrate/internal/records"
	"waxcrate/internal/services"
	"waxcrate/internal/stage"
	"waxcrate/internal/stageexec"
)

const headerOwnerID = "X-Owner-ID"

// Handler serves the preview lifecycle endpoints.
type Handler struct {
	store     *records.Store
	validator *ingest.Validator
	registry  *stageexec.Registry
	logger    *slog.Logger
}

// NewHandler constructs the HTTP handler set.
func NewHandler(store *records.Store, validator *ingest.Validator, registry *stageexec.Registry, logger *slog.Logger) *Handler {
	return &Handler{
		store:     store,
		validator: validator,
		registry:  registry,
		logger:    logging.NewComponentLogger(logger, "api"),
	}
}

// Routes builds the router with all endpoints mounted.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(requestLogger(h.logger))

	r.Get("/healthz", h.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/uploads", h.handleUpload)
		r.Get("/previews", h.handleListPreviews)
		r.Get("/previews/{id}", h.handleGetPreview)
		r.Post("/previews/{id}/review", h.handleReview)
		r.Post("/previews/{id}/enrich", h.handleEnrich)
		r.Post("/previews/{id}/archive", h.handleArchive)
		r.Get("/records", h.handleListRecords)
		r.Get("/records/{id}", h.handleGetRecord)
	})
	return r
}

func ownerFrom(r *http.Request) string {
	return r.Header.Get(headerOwnerID)
}

type uploadResponse struct {
	PreviewID    string `json:"preview_id"`
	Status       string `json:"status"`
	DetectedMIME string `json:"detected_mime"`
	Size         int64  `json:"size"`
}

// handleUpload streams the multipart body through the ingestion validator
// without buffering the file in memory.
func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r)
	if owner == "" {
		writeValidationError(w, "X-Owner-ID header is required")
		return
	}
	ctx := services.WithOwnerID(r.Context(), owner)

	mr, err := r.MultipartReader()
	if err != nil {
		writeValidationError(w, fmt.Sprintf("multipart body required: %s", err))
		return
	}

	for {
		part, err := mr.NextPart()
		if err != nil {
			writeValidationError(w, "multipart field 'file' is required")
			return
		}
		if part.FormName() != "file" {
			_ = part.Close()
			continue
		}

		validated, err := h.validator.Accept(ctx, part, part.Header.Get("Content-Type"), part.FileName(), owner)
		_ = part.Close()
		if err != nil {
			writeError(w, err)
			return
		}

		rec, err := h.store.CreatePreview(ctx, owner, validated.Path, validated.Path)
		if err != nil {
			// Without a record the stored file is unreachable; remove it.
			_ = os.Remove(validated.Path)
			writeError(w, err)
			return
		}
		logging.WithContext(ctx, h.logger).Info("upload accepted",
			logging.String(logging.FieldPreviewID, rec.PreviewID),
			logging.String("detected_mime", validated.DetectedMIME),
			logging.Int64("size", validated.Size))
		writeJSON(w, http.StatusCreated, uploadResponse{
			PreviewID:    rec.PreviewID,
			Status:       string(rec.State),
			DetectedMIME: validated.DetectedMIME,
			Size:         validated.Size,
		})
		return
	}
}

// loadPreview fetches an owner-scoped preview, mapping absence to not-found.
func (h *Handler) loadPreview(r *http.Request) (*records.PreviewRecord, error) {
	owner := ownerFrom(r)
	if owner == "" {
		return nil, services.Wrap(services.ErrValidation, "api", "load preview",
			"X-Owner-ID header is required", nil)
	}
	id := chi.URLParam(r, "id")
	rec, err := h.store.GetPreview(r.Context(), id, owner)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, services.Wrap(services.ErrNotFound, "api", "load preview",
			fmt.Sprintf("preview %s not found", id), nil)
	}
	return rec, nil
}

func (h *Handler) runStage(r *http.Request, name string, sc *stage.Context) error {
	ctx := services.WithOwnerID(r.Context(), ownerFrom(r))
	return stageexec.Run(ctx, stageexec.Options{
		Logger:    h.logger,
		Registry:  h.registry,
		StageName: name,
		Context:   sc,
	})
}

type reviewRequest struct {
	Artist        string `json:"artist"`
	Album         string `json:"album"`
	Title         string `json:"title"`
	Label         string `json:"label"`
	Year          string `json:"year"`
	CatalogNumber string `json:"catalog_number"`
	Country       string `json:"country"`
	Format        string `json:"format"`
}

func (req reviewRequest) fields() records.Fields {
	return records.Fields{
		Artist:        req.Artist,
		Album:         req.Album,
		Title:         req.Title,
		Label:         req.Label,
		Year:          req.Year,
		CatalogNumber: req.CatalogNumber,
		Country:       req.Country,
		Format:        req.Format,
	}
}

func (h *Handler) handleReview(w http.ResponseWriter, r *http.Request) {
	rec, err := h.loadPreview(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req reviewRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeValidationError(w, fmt.Sprintf("invalid review body: %s", err))
			return
		}
	}

	sc := stage.NewContext()
	sc.Set(stage.KeyPreview, rec)
	sc.Set(stage.KeyCorrections, req.fields())
	if err := h.runStage(r, pipeline.StageReview, sc); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newPreviewView(rec))
}

func (h *Handler) handleEnrich(w http.ResponseWriter, r *http.Request) {
	rec, err := h.loadPreview(r)
	if err != nil {
		writeError(w, err)
		return
	}

	force := false
	switch r.URL.Query().Get("force_expensive") {
	case "1", "true":
		force = true
	}

	sc := stage.NewContext()
	sc.Set(stage.KeyPreview, rec)
	sc.Set(stage.KeyForceExpensive, force)
	if err := h.runStage(r, pipeline.StageEnrich, sc); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newPreviewView(rec))
}

type archiveResponse struct {
	RecordID string      `json:"record_id"`
	Created  bool        `json:"created"`
	Status   string      `json:"status,omitempty"`
	Record   archiveView `json:"record"`
}

func (h *Handler) handleArchive(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r)
	if owner == "" {
		writeValidationError(w, "X-Owner-ID header is required")
		return
	}

	sc := stage.NewContext()
	sc.Set(stage.KeyPreviewID, chi.URLParam(r, "id"))
	sc.Set(stage.KeyOwnerID, owner)
	if err := h.runStage(r, pipeline.StageArchive, sc); err != nil {
		writeError(w, err)
		return
	}

	value, _ := sc.Get(stage.KeyResult)
	result, ok := value.(*archive.Result)
	if !ok || result == nil || result.Record == nil {
		writeError(w, services.Wrap(services.ErrConfiguration, "api", "archive",
			"archive stage produced no result", nil))
		return
	}

	resp := archiveResponse{
		RecordID: result.Record.RecordID,
		Created:  result.Created,
		Record:   newArchiveView(result.Record),
	}
	status := http.StatusCreated
	if !result.Created {
		status = http.StatusOK
		resp.Status = "already_archived"
	}
	writeJSON(w, status, resp)
}

func (h *Handler) handleGetPreview(w http.ResponseWriter, r *http.Request) {
	rec, err := h.loadPreview(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newPreviewView(rec))
}

func (h *Handler) handleListPreviews(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r)
	if owner == "" {
		writeValidationError(w, "X-Owner-ID header is required")
		return
	}
	recs, err := h.store.ListByOwner(r.Context(), owner)
	if err != nil {
		writeError(w, err)
		return
	}
	views := make([]previewView, 0, len(recs))
	for _, rec := range recs {
		views = append(views, newPreviewView(rec))
	}
	writeJSON(w, http.StatusOK, map[string]any{"previews": views})
}

func (h *Handler) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r)
	if owner == "" {
		writeValidationError(w, "X-Owner-ID header is required")
		return
	}
	id := chi.URLParam(r, "id")
	rec, err := h.store.GetArchive(r.Context(), id, owner)
	if err != nil {
		writeError(w, err)
		return
	}
	if rec == nil {
		writeError(w, services.Wrap(services.ErrNotFound, "api", "get record",
			fmt.Sprintf("record %s not found", id), nil))
		return
	}
	writeJSON(w, http.StatusOK, newArchiveView(rec))
}

func (h *Handler) handleListRecords(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r)
	if owner == "" {
		writeValidationError(w, "X-Owner-ID header is required")
		return
	}
	recs, err := h.store.ListArchivesByOwner(r.Context(), owner)
	if err != nil {
		writeError(w, err)
		return
	}
	views := make([]archiveView, 0, len(recs))
	for _, rec := range recs {
		views = append(views, newArchiveView(rec))
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": views})
}

type healthResponse struct {
	Status string                `json:"status"`
	Store  records.HealthSummary `json:"store"`
	Stages []stageHealthView     `json:"stages"`
}

type stageHealthView struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	summary, err := h.store.Health(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	resp := healthResponse{Status: "ok", Store: summary}
	for _, sh := range h.registry.Health(r.Context()) {
		resp.Stages = append(resp.Stages, stageHealthView{
			Name:   sh.Name,
			Ready:  sh.Ready,
			Detail: sh.Detail,
		})
		if !sh.Ready {
			resp.Status = "degraded"
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

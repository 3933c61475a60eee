package httpadapter

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/health-doc-pipeline/internal/config"
	"github.com/kirillkom/health-doc-pipeline/internal/core/domain"
	"github.com/kirillkom/health-doc-pipeline/internal/core/ports"
)

const (
	userIDHeader        = "X-User-Id"
	backpressureWait    = 2 * time.Second
	maxMultipartMemory  = 32 << 20
	xlsxContentType     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	labExportAttachment = `attachment; filename="health_data.xlsx"`
)

// HealthDataExporter renders a user's structured health data as a workbook.
type HealthDataExporter interface {
	HealthDataXLSX(ctx context.Context, userID string) ([]byte, error)
}

type Router struct {
	cfg      config.Config
	ingest   ports.DocumentIngestor
	query    ports.DocumentQueryService
	advisor  ports.HealthAdvisor
	exporter HealthDataExporter
	logger   *slog.Logger
}

func NewRouter(
	cfg config.Config,
	ingest ports.DocumentIngestor,
	query ports.DocumentQueryService,
	advisor ports.HealthAdvisor,
	exporter HealthDataExporter,
	logger *slog.Logger,
) *Router {
	return &Router{
		cfg:      cfg,
		ingest:   ingest,
		query:    query,
		advisor:  advisor,
		exporter: exporter,
		logger:   logger,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/documents", rt.documents)
	mux.HandleFunc("/v1/documents/stats", rt.statistics)
	mux.HandleFunc("/v1/documents/", rt.documentSubtree)
	mux.HandleFunc("/v1/export/labs", rt.exportLabs)
	mux.HandleFunc("/v1/assess/interactions", rt.assessInteractions)
	mux.HandleFunc("/v1/assess/symptoms", rt.assessSymptoms)
	mux.HandleFunc("/v1/assess/recommendations", rt.assessRecommendations)

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight, backpressureWait)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	handler = accessLogMiddleware(rt.logger, handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) documents(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		rt.uploadDocument(w, r)
	case http.MethodGet:
		rt.listDocuments(w, r)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart form is required"})
		return
	}
	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	rec, err := rt.ingest.Upload(r.Context(), userID, fileHeader.Filename, file)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, rec)
}

func (rt *Router) listDocuments(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	docType := domain.DocumentType(strings.TrimSpace(r.URL.Query().Get("type")))

	var (
		recs []domain.AnalysisRecord
		err  error
	)
	if query != "" || docType != "" {
		recs, err = rt.query.Search(r.Context(), userID, query, docType)
	} else {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		recs, err = rt.query.List(r.Context(), userID, limit)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"documents": recs, "count": len(recs)})
}

func (rt *Router) statistics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	stats, err := rt.query.Statistics(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// documentSubtree serves /v1/documents/{id} and /v1/documents/{id}/tags.
func (rt *Router) documentSubtree(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	id, sub, _ := strings.Cut(rest, "/")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document id is required"})
		return
	}

	switch {
	case sub == "" && r.Method == http.MethodGet:
		rt.getDocument(w, r, id)
	case sub == "tags" && r.Method == http.MethodPost:
		rt.addTag(w, r, id)
	case sub == "flags" && r.Method == http.MethodPatch:
		rt.setFlags(w, r, id)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func (rt *Router) getDocument(w http.ResponseWriter, r *http.Request, id string) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	details, err := rt.query.Details(r.Context(), userID, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func (rt *Router) addTag(w http.ResponseWriter, r *http.Request, id string) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req struct {
		Tag string `json:"tag"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	if err := rt.query.AddUserTag(r.Context(), userID, id, req.Tag); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"document_id": id, "tag": strings.ToLower(strings.TrimSpace(req.Tag))})
}

func (rt *Router) setFlags(w http.ResponseWriter, r *http.Request, id string) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req struct {
		IsFavorite bool `json:"is_favorite"`
		IsCritical bool `json:"is_critical"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	if err := rt.query.SetFlags(r.Context(), userID, id, req.IsFavorite, req.IsCritical); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"document_id": id,
		"is_favorite": req.IsFavorite,
		"is_critical": req.IsCritical,
	})
}

func (rt *Router) exportLabs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	workbook, err := rt.exporter.HealthDataXLSX(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", labExportAttachment)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(workbook)
}

func (rt *Router) assessInteractions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Medications []string `json:"medications"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	report, err := rt.advisor.CheckInteractions(r.Context(), req.Medications)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (rt *Router) assessSymptoms(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Symptoms []string `json:"symptoms"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	assessment, err := rt.advisor.AssessSymptoms(r.Context(), req.Symptoms)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, assessment)
}

func (rt *Router) assessRecommendations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Profile map[string]any `json:"profile"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	recs, err := rt.advisor.Recommendations(r.Context(), req.Profile)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

// requireUserID reads the caller identity from the X-User-Id header, with a
// user_id query parameter accepted for GET-from-browser convenience.
func requireUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := strings.TrimSpace(r.Header.Get(userIDHeader))
	if userID == "" {
		userID = strings.TrimSpace(r.URL.Query().Get("user_id"))
	}
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "header X-User-Id is required"})
		return "", false
	}
	return userID, true
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kirillkom/health-doc-pipeline/internal/config"
	"github.com/kirillkom/health-doc-pipeline/internal/core/domain"
)

type ingestFake struct {
	err error
}

func (f ingestFake) Upload(_ context.Context, userID, filename string, body io.Reader) (*domain.AnalysisRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload", io.EOF)
	}

	now := time.Now().UTC()
	return &domain.AnalysisRecord{
		ID:        "doc-1",
		UserID:    userID,
		FileName:  filename,
		Status:    domain.StatusProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

type queryFake struct {
	err        error
	lastQuery  string
	lastType   domain.DocumentType
	listCalled bool
}

func (f *queryFake) Details(context.Context, string, string) (*domain.DocumentDetails, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.DocumentDetails{
		Record: domain.AnalysisRecord{ID: "doc-1", DocumentType: domain.TypeECG, Status: domain.StatusCompleted},
		Tags:   []domain.DocumentTag{{DocumentID: "doc-1", Name: "ecg", Type: domain.TagSystem}},
	}, nil
}

func (f *queryFake) List(context.Context, string, int) ([]domain.AnalysisRecord, error) {
	f.listCalled = true
	if f.err != nil {
		return nil, f.err
	}
	return []domain.AnalysisRecord{{ID: "doc-1"}, {ID: "doc-2"}}, nil
}

func (f *queryFake) Search(_ context.Context, _ string, query string, docType domain.DocumentType) ([]domain.AnalysisRecord, error) {
	f.lastQuery = query
	f.lastType = docType
	if f.err != nil {
		return nil, f.err
	}
	return []domain.AnalysisRecord{{ID: "doc-1"}}, nil
}

func (f *queryFake) Statistics(context.Context, string) (*domain.DocumentStatistics, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.DocumentStatistics{TotalDocuments: 3, MostCommonType: domain.TypeBloodTest}, nil
}

func (f *queryFake) AddUserTag(context.Context, string, string, string) error {
	return f.err
}

func (f *queryFake) SetFlags(context.Context, string, string, bool, bool) error {
	return f.err
}

type advisorFake struct {
	err error
}

func (f advisorFake) CheckInteractions(_ context.Context, medications []string) (*domain.InteractionReport, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.InteractionReport{Medications: medications, Warnings: []string{}}, nil
}

func (f advisorFake) AssessSymptoms(_ context.Context, symptoms []string) (*domain.SymptomAssessment, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.SymptomAssessment{Symptoms: symptoms}, nil
}

func (f advisorFake) Recommendations(context.Context, map[string]any) (*domain.HealthRecommendations, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.HealthRecommendations{Recommendations: []string{"stay hydrated"}}, nil
}

type exporterFake struct {
	err error
}

func (f exporterFake) HealthDataXLSX(context.Context, string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []byte("PK\x03\x04workbook"), nil
}

func newTestHandler(cfg config.Config, ingest ingestFake, query *queryFake, advisor advisorFake, exporter exporterFake) http.Handler {
	return NewRouter(cfg, ingest, query, advisor, exporter, slog.New(slog.NewTextHandler(io.Discard, nil))).Handler()
}

func defaultTestHandler() http.Handler {
	return newTestHandler(config.Config{}, ingestFake{}, &queryFake{}, advisorFake{}, exporterFake{})
}

func TestHealthzEndpoint(t *testing.T) {
	handler := defaultTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if res.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected request id header on every response")
	}
}

func TestUploadDocumentSuccess(t *testing.T) {
	handler := defaultTestHandler()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "report.pdf")
	if err != nil {
		t.Fatalf("CreateFormFile() error = %v", err)
	}
	if _, err := part.Write([]byte("%PDF-1.4")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/documents", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set(userIDHeader, "user-1")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", res.Code, res.Body.String())
	}

	var docResp map[string]any
	if err := json.NewDecoder(res.Body).Decode(&docResp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if docResp["id"] != "doc-1" {
		t.Fatalf("unexpected response: %+v", docResp)
	}
	if docResp["user_id"] != "user-1" {
		t.Fatalf("expected user id propagated, got %+v", docResp)
	}
}

func TestUploadDocumentRequiresUserHeader(t *testing.T) {
	handler := defaultTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/v1/documents", bytes.NewBufferString("plain-text"))
	req.Header.Set("Content-Type", "text/plain")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestUploadDocumentMissingMultipartField(t *testing.T) {
	handler := defaultTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/v1/documents", bytes.NewBufferString("plain-text"))
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set(userIDHeader, "user-1")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestListDocumentsRoutesToSearchWhenFiltered(t *testing.T) {
	query := &queryFake{}
	handler := newTestHandler(config.Config{}, ingestFake{}, query, advisorFake{}, exporterFake{})

	req := httptest.NewRequest(http.MethodGet, "/v1/documents?q=glucose&type=blood_test", nil)
	req.Header.Set(userIDHeader, "user-1")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if query.lastQuery != "glucose" || query.lastType != domain.TypeBloodTest {
		t.Fatalf("search not invoked with filters: q=%q type=%q", query.lastQuery, query.lastType)
	}
	if query.listCalled {
		t.Fatalf("list should not run when filters are present")
	}
}

func TestListDocumentsWithoutFilters(t *testing.T) {
	query := &queryFake{}
	handler := newTestHandler(config.Config{}, ingestFake{}, query, advisorFake{}, exporterFake{})

	req := httptest.NewRequest(http.MethodGet, "/v1/documents", nil)
	req.Header.Set(userIDHeader, "user-1")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if !query.listCalled {
		t.Fatalf("expected list to run without filters")
	}

	var resp map[string]any
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["count"] != float64(2) {
		t.Fatalf("expected count 2, got %+v", resp["count"])
	}
}

func TestGetDocumentReturns404ForNotFound(t *testing.T) {
	query := &queryFake{err: domain.WrapError(domain.ErrDocumentNotFound, "get", errors.New("id=missing"))}
	handler := newTestHandler(config.Config{}, ingestFake{}, query, advisorFake{}, exporterFake{})

	req := httptest.NewRequest(http.MethodGet, "/v1/documents/missing", nil)
	req.Header.Set(userIDHeader, "user-1")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestStatsEndpointNotShadowedBySubtree(t *testing.T) {
	handler := defaultTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/v1/documents/stats", nil)
	req.Header.Set(userIDHeader, "user-1")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}

	var stats map[string]any
	if err := json.NewDecoder(res.Body).Decode(&stats); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if stats["total_documents"] != float64(3) {
		t.Fatalf("unexpected stats payload: %+v", stats)
	}
}

func TestAddTagReturns201(t *testing.T) {
	handler := defaultTestHandler()

	payload, _ := json.Marshal(map[string]string{"tag": "Cardiology"})
	req := httptest.NewRequest(http.MethodPost, "/v1/documents/doc-1/tags", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(userIDHeader, "user-1")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", res.Code, res.Body.String())
	}

	var resp map[string]string
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["tag"] != "cardiology" {
		t.Fatalf("expected normalized tag, got %q", resp["tag"])
	}
}

func TestSetFlagsReturnsUpdatedState(t *testing.T) {
	handler := defaultTestHandler()

	payload, _ := json.Marshal(map[string]bool{"is_favorite": true})
	req := httptest.NewRequest(http.MethodPatch, "/v1/documents/doc-1/flags", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(userIDHeader, "user-1")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}

	var resp map[string]any
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["is_favorite"] != true || resp["is_critical"] != false {
		t.Fatalf("unexpected flags payload: %+v", resp)
	}
}

func TestAssessInteractionsMapsInvalidInputTo400(t *testing.T) {
	advisor := advisorFake{err: domain.WrapError(domain.ErrInvalidInput, "check interactions", errors.New("empty list"))}
	handler := newTestHandler(config.Config{}, ingestFake{}, &queryFake{}, advisor, exporterFake{})

	payload, _ := json.Marshal(map[string]any{"medications": []string{}})
	req := httptest.NewRequest(http.MethodPost, "/v1/assess/interactions", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestAssessSymptomsReturnsAssessment(t *testing.T) {
	handler := defaultTestHandler()

	payload, _ := json.Marshal(map[string]any{"symptoms": []string{"headache"}})
	req := httptest.NewRequest(http.MethodPost, "/v1/assess/symptoms", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}

	var resp map[string]any
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	symptoms, _ := resp["symptoms"].([]any)
	if len(symptoms) != 1 || symptoms[0] != "headache" {
		t.Fatalf("unexpected assessment payload: %+v", resp)
	}
}

func TestExportLabsSetsAttachmentHeaders(t *testing.T) {
	handler := defaultTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/v1/export/labs", nil)
	req.Header.Set(userIDHeader, "user-1")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if got := res.Header().Get("Content-Type"); got != xlsxContentType {
		t.Fatalf("unexpected content type %q", got)
	}
	if res.Header().Get("Content-Disposition") == "" {
		t.Fatalf("expected attachment disposition")
	}
	if res.Body.Len() == 0 {
		t.Fatalf("expected workbook bytes in body")
	}
}

func TestTemporaryBackendErrorMapsTo503(t *testing.T) {
	query := &queryFake{err: domain.WrapError(domain.ErrTemporary, "list", errors.New("connection refused"))}
	handler := newTestHandler(config.Config{}, ingestFake{}, query, advisorFake{}, exporterFake{})

	req := httptest.NewRequest(http.MethodGet, "/v1/documents", nil)
	req.Header.Set(userIDHeader, "user-1")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", res.Code)
	}
}

// Package server exposes the SAR pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/luminasar/luminasar/internal/common"
	"github.com/luminasar/luminasar/internal/model"
	"github.com/luminasar/luminasar/internal/pipeline"
)

// Service is the pipeline surface the server drives. Tests stub it.
type Service interface {
	Run(ctx context.Context, caseID string) (*pipeline.GenerateResult, error)
	Audit(ctx context.Context, narrativeID string) (*pipeline.AuditReport, error)
}

// NarrativeStore is the read/update surface for narrative lookups.
type NarrativeStore interface {
	GetNarrative(ctx context.Context, narrativeID string) (*model.Narrative, error)
	GetNarrativeByCase(ctx context.Context, caseID string) (*model.Narrative, error)
	UpdateNarrativeStatus(ctx context.Context, narrativeID string, status model.NarrativeStatus) error
}

// Server handles SAR generation and audit requests.
type Server struct {
	service Service
	store   NarrativeStore
	addr    string
}

// New creates a server bound to the given address.
func New(service Service, store NarrativeStore, addr string) *Server {
	return &Server{
		service: service,
		store:   store,
		addr:    addr,
	}
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/health", s.handleHealth)
	r.Route("/api/sar", func(r chi.Router) {
		r.Post("/generate", s.handleGenerate)
		r.Get("/{narrativeID}", s.handleGetNarrative)
		r.Get("/{narrativeID}/audit", s.handleAudit)
		r.Post("/{narrativeID}/approve", s.handleApprove)
	})
	return r
}

// ListenAndServe runs the server until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

type generateRequest struct {
	CaseID          string `json:"case_id"`
	ForceRegenerate bool   `json:"force_regenerate"`
}

type generateResponse struct {
	NarrativeID   string   `json:"narrative_id"`
	CaseID        string   `json:"case_id"`
	NarrativeText string   `json:"narrative_text"`
	Status        string   `json:"status"`
	Typologies    []string `json:"typologies,omitempty"`
	RiskScore     float64  `json:"risk_score"`
	AuditSteps    int      `json:"audit_steps"`
	Regenerated   bool     `json:"regenerated"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CaseID == "" {
		writeError(w, http.StatusBadRequest, "case_id is required")
		return
	}

	// Without force_regenerate, an existing narrative is returned as-is
	// rather than rerunning the pipeline.
	if !req.ForceRegenerate {
		existing, err := s.store.GetNarrativeByCase(r.Context(), req.CaseID)
		if err == nil {
			writeJSON(w, http.StatusOK, generateResponse{
				NarrativeID:   existing.ID,
				CaseID:        existing.CaseID,
				NarrativeText: existing.Text,
				Status:        string(existing.Status),
				Regenerated:   false,
			})
			return
		}
		if !errors.Is(err, common.ErrNotFound) {
			writeServiceError(w, err)
			return
		}
	}

	result, err := s.service.Run(r.Context(), req.CaseID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, generateResponse{
		NarrativeID:   result.NarrativeID,
		CaseID:        req.CaseID,
		NarrativeText: result.NarrativeText,
		Status:        string(model.NarrativeStatusValidated),
		Typologies:    result.Typologies,
		RiskScore:     result.RiskScore,
		AuditSteps:    result.AuditSteps,
		Regenerated:   true,
	})
}

type narrativeResponse struct {
	NarrativeID       string `json:"narrative_id"`
	CaseID            string `json:"case_id"`
	NarrativeText     string `json:"narrative_text"`
	Status            string `json:"status"`
	GeneratedAt       string `json:"generated_at"`
	GenerationSeconds int    `json:"generation_seconds"`
}

func (s *Server) handleGetNarrative(w http.ResponseWriter, r *http.Request) {
	narrativeID := chi.URLParam(r, "narrativeID")

	narrative, err := s.store.GetNarrative(r.Context(), narrativeID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, narrativeResponse{
		NarrativeID:       narrative.ID,
		CaseID:            narrative.CaseID,
		NarrativeText:     narrative.Text,
		Status:            string(narrative.Status),
		GeneratedAt:       narrative.GeneratedAt.UTC().Format(time.RFC3339),
		GenerationSeconds: narrative.GenerationSeconds,
	})
}

type auditResponse struct {
	NarrativeID    string        `json:"narrative_id"`
	ChainValid     bool          `json:"chain_valid"`
	IntegrityError string        `json:"integrity_error,omitempty"`
	Steps          []auditStep          `json:"steps"`
	Attribution    []attributedSentence `json:"attribution,omitempty"`
}

type auditStep struct {
	Position     int            `json:"position"`
	StepName     string         `json:"step_name"`
	DataSources  map[string]any `json:"data_sources"`
	Reasoning    map[string]any `json:"reasoning"`
	Confidence   float64        `json:"confidence"`
	PreviousHash string         `json:"previous_hash"`
	CurrentHash  string         `json:"current_hash"`
	LoggedAt     string         `json:"logged_at"`
}

type attributedSentence struct {
	Sentence       string    `json:"sentence"`
	Position       int       `json:"position"`
	TransactionIDs []string  `json:"transaction_ids,omitempty"`
	Amounts        []float64 `json:"amounts,omitempty"`
	Accounts       []string  `json:"accounts,omitempty"`
	HasReference   bool      `json:"has_data_reference"`
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	narrativeID := chi.URLParam(r, "narrativeID")

	report, err := s.service.Audit(r.Context(), narrativeID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := auditResponse{
		NarrativeID:    narrativeID,
		ChainValid:     report.ChainValid,
		IntegrityError: report.IntegrityError,
		Steps:          make([]auditStep, 0, len(report.Steps)),
	}
	for _, step := range report.Steps {
		resp.Steps = append(resp.Steps, auditStep{
			Position:     step.Position,
			StepName:     step.StepName,
			DataSources:  step.DataSources,
			Reasoning:    step.Reasoning,
			Confidence:   step.Confidence,
			PreviousHash: step.PreviousHash,
			CurrentHash:  step.CurrentHash,
			LoggedAt:     step.LoggedAt.UTC().Format(time.RFC3339Nano),
		})
	}
	for _, sentence := range report.Attribution {
		resp.Attribution = append(resp.Attribution, attributedSentence{
			Sentence:       sentence.Text,
			Position:       sentence.Position,
			TransactionIDs: sentence.TransactionIDs,
			Amounts:        sentence.Amounts,
			Accounts:       sentence.Accounts,
			HasReference:   sentence.HasReference,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleApprove moves a validated narrative to approved status.
func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	narrativeID := chi.URLParam(r, "narrativeID")

	narrative, err := s.store.GetNarrative(r.Context(), narrativeID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if narrative.Status != model.NarrativeStatusValidated {
		writeError(w, http.StatusConflict,
			fmt.Sprintf("narrative in status %q cannot be approved", narrative.Status))
		return
	}

	if err := s.store.UpdateNarrativeStatus(r.Context(), narrativeID, model.NarrativeStatusApproved); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"narrative_id": narrativeID,
		"status":       string(model.NarrativeStatusApproved),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeServiceError maps domain errors to HTTP status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	var validationErr *common.ValidationError
	switch {
	case errors.Is(err, common.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":   validationErr.Reason,
			"details": validationErr.Details,
		})
	case errors.Is(err, common.ErrExternalUnavailable):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		slog.Error("Unhandled request error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Info("Request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start))
	})
}

// Package api exposes the sentiment pipeline over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/azure/brand-pulse/internal/models"
	"github.com/azure/brand-pulse/internal/recommendations"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
)

const maxBodyBytes = 4 << 20

// Pipeline is the subset of monitoring.Service served over HTTP
type Pipeline interface {
	RunAnalysis(ctx context.Context, entity string) (*models.SentimentSnapshot, error)
	Summarize(ctx context.Context, snapshot *models.SentimentSnapshot) models.Summary
	AnalyzeTopics(ctx context.Context, entity string, mentions []models.Mention) ([]models.TopicCluster, []models.Recommendation)
	GenerateContent(ctx context.Context, req recommendations.ContentRequest, all bool) ([]models.PlatformPost, error)
	RunMonitoring(ctx context.Context) error
	GetMetrics() string
}

type analyzeRequest struct {
	Entity string `json:"entity"`
}

type topicsRequest struct {
	Entity   string           `json:"entity"`
	Mentions []models.Mention `json:"mentions"`
}

type topicsResponse struct {
	Clusters        []models.TopicCluster   `json:"clusters"`
	Recommendations []models.Recommendation `json:"recommendations"`
}

type contentRequest struct {
	recommendations.ContentRequest
	GenerateAll bool `json:"generateAll"`
}

type contentResponse struct {
	Posts []models.PlatformPost `json:"posts"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler serves the analysis entry points and operational endpoints
type Handler struct {
	pipeline Pipeline
	router   *mux.Router
}

// NewHandler builds the router, wrapped in CORS for the dashboard origins
func NewHandler(pipeline Pipeline, allowedOrigins []string) http.Handler {
	h := &Handler{
		pipeline: pipeline,
		router:   mux.NewRouter(),
	}

	h.router.HandleFunc("/health", h.health).Methods(http.MethodGet)
	h.router.HandleFunc("/metrics", h.metrics).Methods(http.MethodGet)
	h.router.HandleFunc("/trigger", h.trigger).Methods(http.MethodPost)

	api := h.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/analyze", h.analyze).Methods(http.MethodPost)
	api.HandleFunc("/summarize", h.summarize).Methods(http.MethodPost)
	api.HandleFunc("/topics", h.topics).Methods(http.MethodPost)
	api.HandleFunc("/content", h.content).Methods(http.MethodPost)

	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	})
	return c.Handler(h.router)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) metrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(h.pipeline.GetMetrics()))
}

func (h *Handler) trigger(w http.ResponseWriter, r *http.Request) {
	go func() {
		if err := h.pipeline.RunMonitoring(context.Background()); err != nil {
			logrus.Errorf("Manual watch run failed: %v", err)
		}
	}()
	writeJSON(w, http.StatusAccepted, map[string]string{"message": "Watch run triggered"})
}

// analyze answers 500 with a zeroed snapshot when the pipeline fails
func (h *Handler) analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Entity) == "" {
		writeError(w, http.StatusBadRequest, "entity is required")
		return
	}

	snap, err := h.pipeline.RunAnalysis(r.Context(), req.Entity)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, snap)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) summarize(w http.ResponseWriter, r *http.Request) {
	var snap models.SentimentSnapshot
	if !decode(w, r, &snap) {
		return
	}
	if strings.TrimSpace(snap.Entity) == "" {
		writeError(w, http.StatusBadRequest, "entity is required")
		return
	}
	writeJSON(w, http.StatusOK, h.pipeline.Summarize(r.Context(), &snap))
}

func (h *Handler) topics(w http.ResponseWriter, r *http.Request) {
	var req topicsRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Entity) == "" {
		writeError(w, http.StatusBadRequest, "entity is required")
		return
	}

	clusters, recs := h.pipeline.AnalyzeTopics(r.Context(), req.Entity, req.Mentions)
	writeJSON(w, http.StatusOK, topicsResponse{Clusters: clusters, Recommendations: recs})
}

func (h *Handler) content(w http.ResponseWriter, r *http.Request) {
	var req contentRequest
	if !decode(w, r, &req) {
		return
	}

	posts, err := h.pipeline.GenerateContent(r.Context(), req.ContentRequest, req.GenerateAll)
	switch {
	case errors.Is(err, recommendations.ErrMissingFields), errors.Is(err, recommendations.ErrUnknownPlatform):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		logrus.WithField("entity", req.Entity).Errorf("Content generation failed: %v", err)
		writeError(w, http.StatusInternalServerError, "content generation failed")
		return
	}

	if req.GenerateAll {
		writeJSON(w, http.StatusOK, contentResponse{Posts: posts})
		return
	}
	writeJSON(w, http.StatusOK, posts[0])
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Debugf("Failed to write response: %v", err)
	}
}

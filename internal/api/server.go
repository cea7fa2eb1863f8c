package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pbaille/melune/internal/apperrors"
	"github.com/pbaille/melune/internal/domain"
	"github.com/pbaille/melune/internal/fetcher"
	"github.com/pbaille/melune/internal/notebook"
	"github.com/pbaille/melune/internal/persona"
)

// CycleSource supplies the current cycle phase copied into new entries
type CycleSource interface {
	LoadCycle(ctx context.Context) (*domain.CycleState, error)
}

// Server handles HTTP requests for the notebook and persona APIs
type Server struct {
	notebook *notebook.Notebook
	personas *persona.Service
	cycle    CycleSource
	fetcher  *fetcher.Fetcher
	logger   *zap.Logger
	addr     string
}

// New creates a new API server
func New(nb *notebook.Notebook, personas *persona.Service, cycle CycleSource, f *fetcher.Fetcher, logger *zap.Logger, addr string) *Server {
	return &Server{
		notebook: nb,
		personas: personas,
		cycle:    cycle,
		fetcher:  f,
		logger:   logger,
		addr:     addr,
	}
}

// Handler builds the routed handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Entries
	mux.HandleFunc("GET /entries", s.searchEntries)
	mux.HandleFunc("POST /entries", s.addEntry)
	mux.HandleFunc("POST /entries/save", s.saveURL)
	mux.HandleFunc("GET /entries/{id}", s.getEntry)
	mux.HandleFunc("DELETE /entries/{id}", s.deleteEntry)
	mux.HandleFunc("POST /entries/{id}/tags", s.addTag)
	mux.HandleFunc("DELETE /entries/{id}/tags/{tag}", s.removeTag)

	// Tags and trends
	mux.HandleFunc("GET /tags", s.tagStats)
	mux.HandleFunc("GET /tags/suggest", s.suggestTags)
	mux.HandleFunc("GET /trends", s.trends)

	// Persona
	mux.HandleFunc("GET /profile", s.getProfile)
	mux.HandleFunc("PUT /profile/answers", s.setAnswers)
	mux.HandleFunc("GET /persona/suggestion", s.suggestPersona)
	mux.HandleFunc("POST /persona/confirm", s.confirmPersona)

	// Health check
	mux.HandleFunc("GET /health", s.health)

	return withCORS(s.withLogging(mux))
}

// Run starts the HTTP server
func (s *Server) Run() error {
	unsubscribe := s.notebook.Subscribe(func(entries []domain.NotebookEntry) {
		s.logger.Debug("Notebook changed", zap.Int("entries", len(entries)))
	})
	defer unsubscribe()

	s.logger.Info("Starting server", zap.String("addr", s.addr))
	return http.ListenAndServe(s.addr, s.Handler())
}

// withCORS adds CORS headers for frontend development
func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		h.ServeHTTP(w, r)
	})
}

func (s *Server) withLogging(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		h.ServeHTTP(w, r)
		s.logger.Debug("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// AddEntryRequest is the request body for adding an entry
type AddEntryRequest struct {
	Content  string   `json:"content"`
	Type     string   `json:"type,omitempty"`
	Phase    string   `json:"phase,omitempty"`
	Mood     string   `json:"mood,omitempty"`
	Energy   *int     `json:"energy,omitempty"`
	Symptoms []string `json:"symptoms,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

// AddEntryResponse is the response for adding an entry
type AddEntryResponse struct {
	Entry         domain.NotebookEntry `json:"entry"`
	SuggestedTags []string             `json:"suggested_tags,omitempty"`
}

func (s *Server) addEntry(w http.ResponseWriter, r *http.Request) {
	var req AddEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entryType := domain.EntryPersonal
	if req.Type != "" {
		t, err := domain.ParseEntryType(req.Type)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		entryType = t
	}

	if entryType != domain.EntryTracking && strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}

	if req.Energy != nil && (*req.Energy < 0 || *req.Energy > 4) {
		writeError(w, http.StatusBadRequest, "energy must be between 0 and 4")
		return
	}

	phase, err := s.resolvePhase(r.Context(), req.Phase)
	if err != nil {
		writeAppError(w, err)
		return
	}

	meta := domain.EntryMetadata{
		Phase:    phase,
		Mood:     req.Mood,
		Energy:   req.Energy,
		Symptoms: req.Symptoms,
		Tags:     req.Tags,
	}
	s.createEntry(w, r, req.Content, entryType, meta)
}

// SaveURLRequest is the request body for saving a web page
type SaveURLRequest struct {
	URL string `json:"url"`
}

func (s *Server) saveURL(w http.ResponseWriter, r *http.Request) {
	var req SaveURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !fetcher.IsURL(req.URL) {
		writeError(w, http.StatusBadRequest, "a valid url is required")
		return
	}

	page, err := s.fetcher.Fetch(r.Context(), req.URL)
	if err != nil {
		s.logger.Warn("Failed to fetch page", zap.String("url", req.URL), zap.Error(err))
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	phase, err := s.resolvePhase(r.Context(), "")
	if err != nil {
		writeAppError(w, err)
		return
	}
	s.createEntry(w, r, page.Content(), domain.EntrySaved, domain.EntryMetadata{Phase: phase})
}

func (s *Server) createEntry(w http.ResponseWriter, r *http.Request, content string, t domain.EntryType, meta domain.EntryMetadata) {
	id, err := s.notebook.AddEntry(r.Context(), content, t, meta)
	if err != nil {
		writeAppError(w, err)
		return
	}

	entry, _ := s.notebook.Entry(id)
	writeJSON(w, http.StatusCreated, AddEntryResponse{
		Entry:         entry,
		SuggestedTags: s.notebook.SuggestedTags(content),
	})
}

// resolvePhase parses an explicit phase or falls back to the current cycle phase
func (s *Server) resolvePhase(ctx context.Context, raw string) (domain.CyclePhase, error) {
	if raw != "" {
		return domain.ParseCyclePhase(raw)
	}
	if s.cycle == nil {
		return "", nil
	}
	state, err := s.cycle.LoadCycle(ctx)
	if err != nil {
		return "", err
	}
	return state.CurrentPhase, nil
}

func (s *Server) getEntry(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.notebook.Entry(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "entry not found")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) deleteEntry(w http.ResponseWriter, r *http.Request) {
	if err := s.notebook.DeleteEntry(r.Context(), r.PathValue("id")); err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TagRequest is the request body for adding a manual tag
type TagRequest struct {
	Tag string `json:"tag"`
}

func (s *Server) addTag(w http.ResponseWriter, r *http.Request) {
	var req TagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Tag) == "" {
		writeError(w, http.StatusBadRequest, "tag is required")
		return
	}
	s.mutateTags(w, r, func(id string) error {
		return s.notebook.AddTagToEntry(r.Context(), id, req.Tag)
	})
}

func (s *Server) removeTag(w http.ResponseWriter, r *http.Request) {
	tag := r.PathValue("tag")
	s.mutateTags(w, r, func(id string) error {
		return s.notebook.RemoveTagFromEntry(r.Context(), id, tag)
	})
}

func (s *Server) mutateTags(w http.ResponseWriter, r *http.Request, fn func(id string) error) {
	id := r.PathValue("id")
	if err := fn(id); err != nil {
		writeAppError(w, err)
		return
	}
	entry, ok := s.notebook.Entry(id)
	if !ok {
		writeError(w, http.StatusNotFound, "entry not found")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) searchEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := q.Get("q")

	filters := notebook.Filters{Tags: q["tag"]}
	if t := q.Get("type"); t != "" {
		parsed, err := domain.ParseEntryType(t)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		filters.Type = parsed
	}
	if p := q.Get("phase"); p != "" {
		parsed, err := domain.ParseCyclePhase(p)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		filters.Phase = parsed
	}

	entries := s.notebook.Search(query, filters)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"query":   query,
	})
}

func (s *Server) tagStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"stats":     s.notebook.TagStats(),
		"available": s.notebook.AvailableTags(),
	})
}

func (s *Server) suggestTags(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tags": s.notebook.SuggestedTags(r.URL.Query().Get("content")),
	})
}

func (s *Server) trends(w http.ResponseWriter, r *http.Request) {
	trends := s.notebook.Trends()
	if trends == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, trends)
}

func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.personas.Profile(r.Context())
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// AnswersRequest is the request body for recording onboarding answers
type AnswersRequest struct {
	JourneyChoice string `json:"journeyChoice,omitempty"`
	AgeRange      string `json:"ageRange,omitempty"`
}

func (s *Server) setAnswers(w http.ResponseWriter, r *http.Request) {
	var req AnswersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var journey domain.JourneyChoice
	var age domain.AgeRange
	var err error
	if req.JourneyChoice != "" {
		if journey, err = domain.ParseJourneyChoice(req.JourneyChoice); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if req.AgeRange != "" {
		if age, err = domain.ParseAgeRange(req.AgeRange); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	p, err := s.personas.SetAnswers(r.Context(), journey, age)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// SuggestionResponse carries the persona suggestion, or the default when none applies
type SuggestionResponse struct {
	Persona    domain.Persona `json:"persona"`
	Suggested  bool           `json:"suggested"`
	Confidence float64        `json:"confidence"`
}

func (s *Server) suggestPersona(w http.ResponseWriter, r *http.Request) {
	p, ok, err := s.personas.Suggest(r.Context())
	if err != nil {
		writeAppError(w, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusOK, SuggestionResponse{Persona: persona.DefaultPersona})
		return
	}
	writeJSON(w, http.StatusOK, SuggestionResponse{
		Persona:    p,
		Suggested:  true,
		Confidence: persona.SuggestedConfidence,
	})
}

// ConfirmRequest is the request body for confirming a persona
type ConfirmRequest struct {
	Persona string `json:"persona"`
}

func (s *Server) confirmPersona(w http.ResponseWriter, r *http.Request) {
	var req ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	selected, err := domain.ParsePersona(req.Persona)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := s.personas.Confirm(r.Context(), selected)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeAppError maps sentinel errors to HTTP statuses
func writeAppError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperrors.ErrInvalidValue):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, apperrors.ErrIncompleteProfile):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, apperrors.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

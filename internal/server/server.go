// Package server exposes the assistant over HTTP. This layer is thin
// plumbing: validation and JSON shuffling around the assistant
// service.
package server

import (
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/faq-assistant-kernel/internal/archive"
	"github.com/faq-assistant-kernel/internal/assistant"
	"github.com/faq-assistant-kernel/internal/jsonx"
	"github.com/faq-assistant-kernel/internal/memory"
)

// maxMessageLength rejects absurdly long inbound messages before they
// reach the embedder.
const maxMessageLength = 2000

// Server holds the HTTP handlers.
type Server struct {
	service *assistant.Service
	// history serves durable per-user history when a Redis sink is
	// configured; otherwise the in-memory window is served.
	history *archive.RedisSink
	logger  *zap.Logger
}

// New creates the HTTP server. history may be nil.
func New(service *assistant.Service, history *archive.RedisSink, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{service: service, history: history, logger: logger}
}

// Router builds the route table with CORS and request logging.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/chat", s.handleChat).Methods(http.MethodPost)
	r.HandleFunc("/llm/status", s.handleLLMStatus).Methods(http.MethodGet)
	r.HandleFunc("/chat/history/{user_id}", s.handleGetHistory).Methods(http.MethodGet)
	r.HandleFunc("/chat/history/{user_id}", s.handleClearHistory).Methods(http.MethodDelete)
	r.HandleFunc("/admin/reload", s.handleReload).Methods(http.MethodPost)
	r.HandleFunc("/admin/matches", s.handleTopMatches).Methods(http.MethodGet)
	r.HandleFunc("/admin/new-questions", s.handleNewQuestions).Methods(http.MethodGet)
	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)

	return handlers.LoggingHandler(os.Stdout, cors(r))
}

type chatRequest struct {
	Message string `json:"message"`
	UserID  string `json:"user_id"`
	UseLLM  *bool  `json:"use_llm"`
}

type chatResponse struct {
	assistant.Reply
	UserID string `json:"user_id"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := jsonx.Decode(r.Body, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if strings.TrimSpace(req.Message) == "" {
		s.writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	if len(req.Message) > maxMessageLength {
		s.writeError(w, http.StatusBadRequest, "message too long")
		return
	}
	if req.UserID == "" {
		req.UserID = "anonymous"
	}
	useLLM := true
	if req.UseLLM != nil {
		useLLM = *req.UseLLM
	}

	reply := s.service.Respond(r.Context(), req.UserID, req.Message, useLLM)
	s.writeJSON(w, http.StatusOK, chatResponse{Reply: reply, UserID: req.UserID})
}

func (s *Server) handleLLMStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.service.LLMStatus())
}

type historyResponse struct {
	UserID        string        `json:"user_id"`
	TotalMessages int           `json:"total_messages"`
	History       []memory.Turn `json:"history"`
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]

	if s.history != nil {
		records, err := s.history.History(r.Context(), userID)
		if err == nil {
			turns := make([]memory.Turn, len(records))
			for i, rec := range records {
				turns[i] = memory.Turn{
					Timestamp:   rec.Timestamp,
					UserMessage: rec.Message,
					BotResponse: rec.Response,
					Confidence:  rec.Confidence,
				}
			}
			s.writeJSON(w, http.StatusOK, historyResponse{
				UserID:        userID,
				TotalMessages: len(turns),
				History:       turns,
			})
			return
		}
		// Durable store unavailable: degrade to the in-memory window.
		s.logger.Warn("Falling back to in-memory history", zap.Error(err))
	}

	turns := s.service.History(userID)
	s.writeJSON(w, http.StatusOK, historyResponse{
		UserID:        userID,
		TotalMessages: len(turns),
		History:       turns,
	})
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]

	s.service.ClearHistory(userID)
	if s.history != nil {
		if err := s.history.ClearHistory(r.Context(), userID); err != nil {
			s.logger.Warn("Failed to clear durable history",
				zap.String("user_id", userID), zap.Error(err))
		}
	}

	s.writeJSON(w, http.StatusOK, map[string]string{
		"message": "history cleared for " + userID,
	})
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Reload(r.Context()); err != nil {
		s.logger.Error("Catalog reload failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "reload failed: "+err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "reloaded"})
}

func (s *Server) handleTopMatches(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if strings.TrimSpace(query) == "" {
		s.writeError(w, http.StatusBadRequest, "q is required")
		return
	}

	k := 3
	if raw := r.URL.Query().Get("k"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 50 {
			s.writeError(w, http.StatusBadRequest, "k must be between 1 and 50")
			return
		}
		k = parsed
	}

	s.writeJSON(w, http.StatusOK, s.service.TopK(r.Context(), query, k))
}

func (s *Server) handleNewQuestions(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.writeJSON(w, http.StatusOK, []archive.Record{})
		return
	}
	records, err := s.history.NewQuestions(r.Context(), 50)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to load flagged questions")
		return
	}
	s.writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.service.Status())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := jsonx.Encode(w, v); err != nil {
		s.logger.Warn("Failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, code int, msg string) {
	s.writeJSON(w, code, map[string]string{"error": msg})
}

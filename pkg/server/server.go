// Package server exposes the sidepanel HTTP API: chat turns (JSON and SSE
// streaming), model catalog, credits, tab summaries, and settings. The
// sidepanel UI itself is an external collaborator; these handlers are a thin
// layer over the agent, gateway, and stores.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/entrhq/surf/pkg/agent"
	"github.com/entrhq/surf/pkg/config"
	"github.com/entrhq/surf/pkg/gateway"
	"github.com/entrhq/surf/pkg/logging"
	"github.com/entrhq/surf/pkg/tabcontext"
)

// defaultSummaryBudget bounds tab excerpt size in /api/tabs responses.
const defaultSummaryBudget = 600

// Agent is the orchestrator surface the chat handlers need.
type Agent interface {
	RunTurn(ctx context.Context, userText string) (*agent.TurnResult, error)
	StreamTurn(ctx context.Context, userText string, onChunk func(string)) (*agent.TurnResult, error)
}

// Gateway is the model-gateway surface the catalog handlers need.
type Gateway interface {
	ListModels(ctx context.Context) ([]gateway.ModelInfo, error)
	Credits(ctx context.Context) (*gateway.CreditInfo, error)
}

// Server wires the API handlers to their collaborators.
type Server struct {
	agent    Agent
	gateway  Gateway
	tabs     *tabcontext.Store
	settings *config.Store
	log      *logging.Logger
}

// New creates a server. log may be nil.
func New(ag Agent, gw Gateway, tabs *tabcontext.Store, settings *config.Store, log *logging.Logger) *Server {
	return &Server{agent: ag, gateway: gw, tabs: tabs, settings: settings, log: log}
}

// Router builds the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", s.handleChat)
		r.Post("/chat/stream", s.handleChatStream)
		r.Get("/models", s.handleModels)
		r.Get("/credits", s.handleCredits)
		r.Get("/tabs", s.handleTabs)
		r.Post("/tabs/{tabID}/selection", s.handleAddSelection)
		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handlePutSettings)
	})
	return r
}

type chatRequest struct {
	Message string `json:"message"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	turn, err := s.agent.RunTurn(r.Context(), req.Message)
	if err != nil {
		s.writeTransportError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, turn)
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	models, err := s.gateway.ListModels(r.Context())
	if err != nil {
		s.writeTransportError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"models": models})
}

func (s *Server) handleCredits(w http.ResponseWriter, r *http.Request) {
	credits, err := s.gateway.Credits(r.Context())
	if err != nil {
		s.writeTransportError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, credits)
}

func (s *Server) handleTabs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"activeTabId": s.tabs.ActiveID(),
		"tabs":        s.tabs.SummarizeAll(defaultSummaryBudget),
	})
}

// handleAddSelection records a text selection the user made on a page, which
// raises that tab's relevance score in prompt assembly.
func (s *Server) handleAddSelection(w http.ResponseWriter, r *http.Request) {
	tabID, err := strconv.Atoi(chi.URLParam(r, "tabID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid tab id")
		return
	}
	var body struct {
		Text string `json:"text"`
	}
	if decodeErr := json.NewDecoder(r.Body).Decode(&body); decodeErr != nil || body.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	s.tabs.AddSelection(tabID, body.Text)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.settings.Current())
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var incoming config.Settings
	if err := json.NewDecoder(r.Body).Decode(&incoming); err != nil {
		writeError(w, http.StatusBadRequest, "invalid settings payload")
		return
	}

	// Update validates, persists, and notifies subscribers in one step.
	// An omitted api_key keeps the stored one, so the sidepanel can PUT
	// settings back without ever holding the secret.
	if err := s.settings.Update(func(current *config.Settings) {
		if incoming.Gateway.APIKey == "" {
			incoming.Gateway.APIKey = current.Gateway.APIKey
		}
		*current = incoming
	}); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.settings.Current())
}

// writeTransportError maps gateway failures onto the response: a typed
// APIError keeps its upstream status, anything else is a bad gateway.
func (s *Server) writeTransportError(w http.ResponseWriter, err error) {
	if s.log != nil {
		s.log.Errorf("gateway error: %v", err)
	}
	var apiErr *gateway.APIError
	if errors.As(err, &apiErr) {
		writeError(w, apiErr.Status, apiErr.Body)
		return
	}
	writeError(w, http.StatusBadGateway, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

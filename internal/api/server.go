package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"tripchat/internal/bus"
	apperrors "tripchat/internal/errors"
	"tripchat/internal/metrics"
	"tripchat/internal/middleware"
	"tripchat/internal/models"
	"tripchat/internal/retry"
	"tripchat/internal/service"
	"tripchat/internal/validation"
	"tripchat/pkg/whatsapp"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

const maxRequestBody = 1 << 20 // 1 MB

// Server exposes the chat subsystem over HTTP and WebSocket.
type Server struct {
	router       *mux.Router
	svc          *service.ChatService
	bus          *bus.Bus
	logger       *logrus.Logger
	pollInterval time.Duration
	backoff      retry.BackoffConfig
	supportPhone string
}

func NewServer(svc *service.ChatService, eventBus *bus.Bus, pollInterval time.Duration, backoff retry.BackoffConfig, supportPhone string, logger *logrus.Logger) *Server {
	s := &Server{
		router:       mux.NewRouter(),
		svc:          svc,
		bus:          eventBus,
		logger:       logger,
		pollInterval: pollInterval,
		backoff:      backoff,
		supportPhone: supportPhone,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Observability(s.logger))

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/conversations", s.handleListConversations).Methods(http.MethodGet)
	api.HandleFunc("/conversations", s.handleCreateConversation).Methods(http.MethodPost)
	api.HandleFunc("/conversations/{id}", s.handlePatchConversation).Methods(http.MethodPatch)
	api.HandleFunc("/conversations/{id}/messages", s.handleListMessages).Methods(http.MethodGet)
	api.HandleFunc("/conversations/{id}/messages", s.handleCreateMessage).Methods(http.MethodPost)
	api.HandleFunc("/conversations/{id}/read", s.handleMarkRead).Methods(http.MethodPost)
	api.HandleFunc("/unread", s.handleUnread).Methods(http.MethodGet)
	api.HandleFunc("/whatsapp-link", s.handleWhatsAppLink).Methods(http.MethodGet)

	s.router.HandleFunc("/ws/conversations", s.handleConversationStream).Methods(http.MethodGet)
	s.router.HandleFunc("/ws/conversations/{id}", s.handleMessageStream).Methods(http.MethodGet)
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// callerFromRequest builds the caller identity from the gateway-injected
// headers. The session layer in front of this service authenticates and sets
// them; here they only need to be present and well formed.
func callerFromRequest(r *http.Request) (models.Caller, error) {
	caller := models.Caller{
		ID:   strings.TrimSpace(r.Header.Get("X-Caller-Id")),
		Name: strings.TrimSpace(r.Header.Get("X-Caller-Name")),
		Role: models.SenderRole(strings.TrimSpace(r.Header.Get("X-Caller-Role"))),
	}

	if caller.ID == "" {
		return caller, apperrors.NewValidationError("X-Caller-Id", "caller id header is required")
	}
	switch caller.Role {
	case models.RoleAdmin, models.RoleStaff, models.RoleCustomer:
	default:
		return caller, apperrors.NewValidationError("X-Caller-Role", "caller role must be admin, staff, or customer")
	}
	return caller, nil
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	if err := validation.ValidateHTTPRequestSize(r, maxRequestBody); err != nil {
		return err
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperrors.NewValidationError("body", "invalid JSON body")
	}
	return nil
}

func (s *Server) respond(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			s.logger.WithError(err).Error("Failed to encode response")
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case apperrors.IsValidation(err):
		status = http.StatusBadRequest
	case apperrors.IsNotFound(err):
		status = http.StatusNotFound
	}

	message := apperrors.GetUserMessage(err)
	if status == http.StatusInternalServerError {
		s.logger.WithError(err).Error("Request failed")
		metrics.IncrementCounter("http_internal_errors", nil, "Unhandled request errors")
	}

	s.respond(w, status, map[string]string{"error": message})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, metrics.GetAllMetrics())
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromRequest(r)
	if err != nil {
		s.respondError(w, err)
		return
	}

	filter := models.ConversationFilter{
		Status:      models.ConversationStatus(r.URL.Query().Get("status")),
		Assignee:    r.URL.Query().Get("assignee"),
		CustomerRef: r.URL.Query().Get("customerRef"),
	}

	summaries, err := s.svc.ListConversationSummaries(r.Context(), caller, filter)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, summaries)
}

func (s *Server) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	if _, err := callerFromRequest(r); err != nil {
		s.respondError(w, err)
		return
	}

	var req service.CreateConversationRequest
	if err := s.decode(w, r, &req); err != nil {
		s.respondError(w, err)
		return
	}

	conv, err := s.svc.CreateConversation(r.Context(), req)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusCreated, conv)
}

func (s *Server) handlePatchConversation(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromRequest(r)
	if err != nil {
		s.respondError(w, err)
		return
	}

	var patch models.ConversationPatch
	if err := s.decode(w, r, &patch); err != nil {
		s.respondError(w, err)
		return
	}

	// Status changes and assignment are staff/admin actions; a customer's
	// conversation state moves only through the message pipeline.
	if caller.Role == models.RoleCustomer && (patch.Status != nil || patch.AssignedTo != nil) {
		s.respondError(w, apperrors.NewValidationError("role", "customers may not change conversation status or assignment"))
		return
	}

	id := mux.Vars(r)["id"]

	var conv *models.Conversation
	if patch.Status != nil && *patch.Status == models.ConversationArchived {
		conv, err = s.svc.ArchiveConversation(r.Context(), id, caller)
	} else {
		conv, err = s.svc.UpdateConversation(r.Context(), id, patch)
	}
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, conv)
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromRequest(r)
	if err != nil {
		s.respondError(w, err)
		return
	}

	msgs, err := s.svc.ListMessages(r.Context(), caller, mux.Vars(r)["id"])
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, msgs)
}

type createMessageBody struct {
	Content string             `json:"content"`
	Type    models.MessageType `json:"type"`
}

func (s *Server) handleCreateMessage(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromRequest(r)
	if err != nil {
		s.respondError(w, err)
		return
	}

	var body createMessageBody
	if err := s.decode(w, r, &body); err != nil {
		s.respondError(w, err)
		return
	}

	result, err := s.svc.CreateMessage(r.Context(), service.CreateMessageRequest{
		ConversationID: mux.Vars(r)["id"],
		SenderRef:      caller.ID,
		SenderName:     caller.Name,
		SenderRole:     caller.Role,
		Content:        body.Content,
		Type:           body.Type,
	})
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusCreated, result)
}

type markReadBody struct {
	MessageIDs []string `json:"messageIds"`
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromRequest(r)
	if err != nil {
		s.respondError(w, err)
		return
	}

	var body markReadBody
	if r.ContentLength > 0 {
		if err := s.decode(w, r, &body); err != nil {
			s.respondError(w, err)
			return
		}
	}

	updated, err := s.svc.MarkMessagesRead(r.Context(), caller, mux.Vars(r)["id"], body.MessageIDs)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]int64{"updated": updated})
}

func (s *Server) handleUnread(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromRequest(r)
	if err != nil {
		s.respondError(w, err)
		return
	}

	count, err := s.svc.UnreadCount(r.Context(), caller)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]int{"count": count})
}

func (s *Server) handleWhatsAppLink(w http.ResponseWriter, r *http.Request) {
	if _, err := callerFromRequest(r); err != nil {
		s.respondError(w, err)
		return
	}

	if s.supportPhone == "" {
		s.respondError(w, apperrors.NewNotFoundError("whatsapp link", "support phone not configured"))
		return
	}

	link, err := whatsapp.Link(s.supportPhone, r.URL.Query().Get("text"))
	if err != nil {
		s.respondError(w, apperrors.NewValidationError("supportPhone", err.Error()))
		return
	}
	s.respond(w, http.StatusOK, map[string]string{"url": link})
}

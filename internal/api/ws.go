package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"tripchat/internal/models"
	"tripchat/internal/service"

	"github.com/coder/websocket"
	"github.com/gorilla/mux"
)

const wsWriteTimeout = 5 * time.Second

// handleMessageStream streams message snapshots for one conversation. Each
// frame is the full reconciled message list; the client replaces its view
// wholesale, which keeps it correct across missed frames.
func (s *Server) handleMessageStream(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromRequest(r)
	if err != nil {
		s.respondError(w, err)
		return
	}

	id := mux.Vars(r)["id"]
	if _, err := s.svc.GetConversationFor(r.Context(), caller, id); err != nil {
		s.respondError(w, err)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Warn("WebSocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	send := func(msgs []models.Message) {
		s.writeFrame(ctx, cancel, conn, msgs)
	}

	watcher := service.NewMessageWatcher(func(ctx context.Context) ([]models.Message, error) {
		return s.svc.ListMessages(ctx, caller, id)
	}, s.bus, id, s.pollInterval, s.logger, send)
	watcher.UseBackoff(s.backoff)

	watcher.Start(ctx)
	defer watcher.Stop()

	s.readUntilClose(ctx, conn)
}

// handleConversationStream streams the caller's conversation-list view.
func (s *Server) handleConversationStream(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromRequest(r)
	if err != nil {
		s.respondError(w, err)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Warn("WebSocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	send := func(summaries []models.ConversationSummary) {
		s.writeFrame(ctx, cancel, conn, summaries)
	}

	watcher := service.NewConversationWatcher(func(ctx context.Context) ([]models.ConversationSummary, error) {
		return s.svc.ListConversationSummaries(ctx, caller, models.ConversationFilter{})
	}, s.bus, s.pollInterval, s.logger, send)
	watcher.UseBackoff(s.backoff)

	watcher.Start(ctx)
	defer watcher.Stop()

	s.readUntilClose(ctx, conn)
}

func (s *Server) writeFrame(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.WithError(err).Error("Failed to marshal stream frame")
		return
	}

	writeCtx, done := context.WithTimeout(ctx, wsWriteTimeout)
	defer done()
	if err := conn.Write(writeCtx, websocket.MessageText, data); err != nil {
		// A dead connection tears down the whole stream.
		cancel()
	}
}

// readUntilClose drains inbound frames so pings are answered and returns
// when the peer disconnects.
func (s *Server) readUntilClose(ctx context.Context, conn *websocket.Conn) {
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			return
		}
	}
}

package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/emicklei/go-restful/v3"

	"github.com/run-bigpig/agent-guard/pkg/interfaces"
	"github.com/run-bigpig/agent-guard/pkg/logging"
	"github.com/run-bigpig/agent-guard/pkg/session"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// Runner runs one conversation turn
type Runner interface {
	Run(ctx context.Context, userID, sessionID string, msg *interfaces.Content) (*interfaces.Content, error)
}

// Handler serves the chat API
type Handler struct {
	runner Runner
	logger logging.Logger
}

// NewHandler creates a Handler
func NewHandler(runner Runner, logger logging.Logger) *Handler {
	return &Handler{runner: runner, logger: logger}
}

func (h *Handler) readRequest(req *restful.Request, resp *restful.Response) (ChatRequest, bool) {
	var chatRequest ChatRequest
	if err := req.ReadEntity(&chatRequest); err != nil {
		h.logger.Error(req.Request.Context(), "Failed to parse request body", map[string]interface{}{"error": err})
		HandleError(resp, err, http.StatusBadRequest)
		return ChatRequest{}, false
	}

	chatRequest.SetDefaults()
	if err := chatRequest.Validate(); err != nil {
		HandleError(resp, err, http.StatusBadRequest)
		return ChatRequest{}, false
	}
	if chatRequest.SessionID == "" {
		chatRequest.SessionID = session.NewSessionID()
	}
	return chatRequest, true
}

// Chat handles POST /api/chat
func (h *Handler) Chat(req *restful.Request, resp *restful.Response) {
	chatRequest, ok := h.readRequest(req, resp)
	if !ok {
		return
	}

	ctx := req.Request.Context()
	out, err := h.runner.Run(ctx, chatRequest.UserID, chatRequest.SessionID,
		interfaces.NewTextContent(interfaces.RoleUser, chatRequest.Message))
	if err != nil {
		HandleError(resp, err, http.StatusInternalServerError)
		return
	}

	_ = resp.WriteHeaderAndEntity(http.StatusOK, ChatResponse{
		SessionID: chatRequest.SessionID,
		Response:  out.Text(),
	})
}

// ChatStream handles POST /api/chat_stream. It writes one progress line
// while the turn runs and then a result or error line.
func (h *Handler) ChatStream(req *restful.Request, resp *restful.Response) {
	chatRequest, ok := h.readRequest(req, resp)
	if !ok {
		return
	}

	writer := resp.ResponseWriter
	flusher, ok := writer.(http.Flusher)
	if !ok {
		HandleError(resp, fmt.Errorf("streaming not supported"), http.StatusInternalServerError)
		return
	}

	resp.AddHeader("Content-Type", "application/x-ndjson")
	resp.AddHeader("Cache-Control", "no-cache")
	resp.AddHeader("X-Accel-Buffering", "no")
	resp.WriteHeader(http.StatusOK)

	send := func(event StreamEvent) {
		line, err := event.Format()
		if err != nil {
			return
		}
		fmt.Fprint(writer, line)
		flusher.Flush()
	}

	send(StreamEvent{Type: EventProgress, Text: "Processing request...", SessionID: chatRequest.SessionID})

	out, err := h.runner.Run(req.Request.Context(), chatRequest.UserID, chatRequest.SessionID,
		interfaces.NewTextContent(interfaces.RoleUser, chatRequest.Message))
	if err != nil {
		send(StreamEvent{Type: EventError, Text: err.Error(), SessionID: chatRequest.SessionID})
		return
	}
	send(StreamEvent{Type: EventResult, Text: out.Text(), SessionID: chatRequest.SessionID})
}

// Health handles GET /api/health
func (h *Handler) Health(req *restful.Request, resp *restful.Response) {
	_ = resp.WriteHeaderAndEntity(http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: Version,
	})
}

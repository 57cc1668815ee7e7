package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"tess-backend/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// ChatHandler exposes one conversational turn over HTTP and WebSocket
type ChatHandler struct {
	chatService *service.ChatService
	upgrader    websocket.Upgrader
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chatService *service.ChatService) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// ChatRequest represents one user message. Query is accepted as an alias for Message.
type ChatRequest struct {
	Message   string `json:"message"`
	Query     string `json:"query,omitempty"`
	DossierID string `json:"dossier_id,omitempty"`
}

// ChatResponse is the success or error envelope of a turn
type ChatResponse struct {
	Status    string `json:"status"`
	Response  string `json:"response,omitempty"`
	DossierID string `json:"dossier_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

func (r ChatRequest) text() string {
	if strings.TrimSpace(r.Message) != "" {
		return r.Message
	}
	return r.Query
}

// handle runs the turn and returns the envelope with its HTTP status
func (h *ChatHandler) handle(ctx context.Context, req ChatRequest) (int, ChatResponse) {
	result, err := h.chatService.HandleTurn(ctx, service.HandleTurnRequest{
		Message:   req.text(),
		DossierID: req.DossierID,
	})
	if err != nil {
		slog.Warn("turn failed", "dossier_id", req.DossierID, "error", err)
		return statusFor(err), ChatResponse{Status: StatusError, Error: publicError(err)}
	}
	return http.StatusOK, ChatResponse{
		Status:    StatusSuccess,
		Response:  result.Response,
		DossierID: result.DossierID,
	}
}

func statusFor(err error) int {
	var (
		llmErr     *service.LLMCallError
		persistErr *service.PersistenceError
	)
	switch {
	case service.IsClientError(err):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	case errors.As(err, &llmErr):
		return http.StatusBadGateway
	case errors.As(err, &persistErr):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// publicError maps a turn error onto the message shown to clients. Provider
// and storage details stay in the server log.
func publicError(err error) string {
	var (
		llmErr     *service.LLMCallError
		persistErr *service.PersistenceError
	)
	switch {
	case service.IsClientError(err):
		return err.Error()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "request cancelled before the turn completed"
	case errors.As(err, &llmErr):
		return "language model unavailable, please try again"
	case errors.As(err, &persistErr):
		return "dossier storage unavailable, please try again"
	default:
		return "internal error"
	}
}

// Chat handles POST /api/chat
func (h *ChatHandler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ChatResponse{
			Status: StatusError,
			Error:  "invalid request body: " + err.Error(),
		})
		return
	}

	status, resp := h.handle(c.Request.Context(), req)
	c.JSON(status, resp)
}

// WebSocket handles GET /ws: the client sends one request, receives one
// envelope and the server closes the connection
func (h *ChatHandler) WebSocket(c *gin.Context) {
	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("failed to upgrade the websocket", "error", err)
		return
	}
	defer ws.Close()

	var req ChatRequest
	if err := ws.ReadJSON(&req); err != nil {
		slog.Info("websocket client sent no request", "error", err)
		writeAndClose(ws, ChatResponse{Status: StatusError, Error: "invalid request: " + err.Error()})
		return
	}

	_, resp := h.handle(c.Request.Context(), req)
	writeAndClose(ws, resp)
}

func writeAndClose(ws *websocket.Conn, resp ChatResponse) {
	if err := ws.WriteJSON(resp); err != nil {
		slog.Warn("failed to write websocket response", "error", err)
		return
	}
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := ws.WriteMessage(websocket.CloseMessage, msg); err != nil {
		slog.Debug("failed to send websocket close", "error", err)
	}
}

// Tools handles GET /api/tools
func (h *ChatHandler) Tools(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": StatusSuccess,
		"tools":  h.chatService.Tools(),
	})
}

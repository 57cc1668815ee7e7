package service

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"

	"tess-backend/llm"
	"tess-backend/models"
	"tess-backend/observability"

	"github.com/google/uuid"
)

const dossierIDPrefix = "dos-"

var dossierIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// NewDossierID returns a fresh id of the form dos-<8 hex>
func NewDossierID() string {
	return dossierIDPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// ValidDossierID reports whether id is acceptable as a dossier key
func ValidDossierID(id string) bool {
	return dossierIDPattern.MatchString(id)
}

// ChatService is the turn entry point: it assigns ids, runs the orchestrator
// and persists the dossier once per completed turn.
type ChatService struct {
	orchestrator *Orchestrator
	store        *DossierStore
	metrics      *observability.Metrics
}

// ChatServiceOption is a functional option for ChatService
type ChatServiceOption func(*ChatService)

// WithChatMetrics records turn counts
func WithChatMetrics(m *observability.Metrics) ChatServiceOption {
	return func(s *ChatService) {
		s.metrics = m
	}
}

// NewChatService creates a new chat service
func NewChatService(orchestrator *Orchestrator, store *DossierStore, opts ...ChatServiceOption) *ChatService {
	s := &ChatService{orchestrator: orchestrator, store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HandleTurnRequest represents one incoming chat message
type HandleTurnRequest struct {
	Message   string
	DossierID string
}

// HandleTurnResult represents the reply to a chat message
type HandleTurnResult struct {
	Response  string
	DossierID string
	Dossier   *models.Dossier
}

// HandleTurn runs one turn. A missing dossier id starts a new dossier.
func (s *ChatService) HandleTurn(ctx context.Context, req HandleTurnRequest) (res *HandleTurnResult, err error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, ErrEmptyMessage
	}

	id := strings.TrimSpace(req.DossierID)
	if id == "" {
		id = NewDossierID()
	} else if !ValidDossierID(id) {
		return nil, ErrInvalidDossierID
	}

	finish := s.metrics.TurnStarted()
	defer func() {
		if err != nil {
			finish(observability.TurnError)
			return
		}
		finish(observability.TurnSuccess)
	}()

	turnID := s.store.BeginTurn()
	turn, err := s.orchestrator.RunTurn(ctx, TurnRequest{DossierID: id, Message: req.Message, Turn: turnID})
	if err != nil {
		// drop changes that will never be persisted
		s.store.Discard(id, turnID)
		return nil, err
	}

	if err := s.store.Save(ctx, id, turnID); err != nil {
		s.store.Discard(id, turnID)
		return nil, &PersistenceError{Op: "save", DossierID: id, Err: err}
	}

	slog.Info("turn completed",
		"dossier_id", id,
		"states", len(turn.States),
		"messages", len(turn.Dossier.Conversation),
		"selected", len(turn.Dossier.SelectedIDs),
	)

	return &HandleTurnResult{
		Response:  turn.Response,
		DossierID: id,
		Dossier:   turn.Dossier,
	}, nil
}

// Tools lists the tools offered to the model
func (s *ChatService) Tools() []llm.ToolDefinition {
	return s.orchestrator.resolver.Definitions()
}

// IsClientError reports whether err was caused by the request itself
func IsClientError(err error) bool {
	return errors.Is(err, ErrEmptyMessage) || errors.Is(err, ErrInvalidDossierID)
}

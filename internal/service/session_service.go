// FILE: internal/service/session_service.go
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ai-testgen-be/internal/dto"
	"ai-testgen-be/internal/entity"
	"ai-testgen-be/internal/repository/memory"
	"ai-testgen-be/internal/repository/specification"
	"ai-testgen-be/internal/repository/unitofwork"
	"ai-testgen-be/pkg/embedding"
	"ai-testgen-be/pkg/events"
	"ai-testgen-be/pkg/llm"
	pktNats "ai-testgen-be/pkg/nats"
	"ai-testgen-be/pkg/store"
	"ai-testgen-be/pkg/testgen/engine"

	"github.com/google/uuid"
)

// ISessionService owns the session rows. The generation state inside them
// belongs to ITestgenService; this service only creates, lists and deletes
// the envelope.
type ISessionService interface {
	CreateSession(ctx context.Context, userId uuid.UUID, req *dto.CreateSessionRequest) (*dto.CreateSessionResponse, error)
	GetAllSessions(ctx context.Context, userId uuid.UUID, limit, offset int) ([]*dto.GetAllSessionsResponse, error)
	GetSession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) (*dto.SessionDetailResponse, error)
	DeleteSession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) error
	GetSimilarSessions(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID, limit int) ([]*dto.SimilarSessionResponse, error)
}

type sessionService struct {
	uowFactory        unitofwork.RepositoryFactory
	machine           *engine.StageMachine
	stateRepo         *memory.StateRepository
	publisherService  IPublisherService
	eventPublisher    *pktNats.Publisher
	embeddingProvider embedding.EmbeddingProvider
}

func NewSessionService(
	uowFactory unitofwork.RepositoryFactory,
	llmProvider llm.LLMProvider,
	stateRepo *memory.StateRepository,
	publisherService IPublisherService,
	eventPublisher *pktNats.Publisher,
	embeddingProvider embedding.EmbeddingProvider,
) ISessionService {
	// The machine is only used for title generation here; the stage
	// operations live in ITestgenService.
	return &sessionService{
		uowFactory:        uowFactory,
		machine:           engine.NewStageMachine(llmProvider, initLLMLogger()),
		stateRepo:         stateRepo,
		publisherService:  publisherService,
		eventPublisher:    eventPublisher,
		embeddingProvider: embeddingProvider,
	}
}

// CreateSession creates the session row with a fresh state blob. Question
// generation is a separate stage operation so creation stays fast; the only
// LLM call here is the title.
func (s *sessionService) CreateSession(ctx context.Context, userId uuid.UUID, req *dto.CreateSessionRequest) (*dto.CreateSessionResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	now := time.Now()

	title := s.machine.GenerateTitle(ctx, req.BusinessPrompt)

	state := store.NewGenerationState("", req.BusinessPrompt)
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return nil, err
	}

	session := entity.GenSession{
		Id:             uuid.New(),
		UserId:         userId,
		SessionKey:     state.SessionID,
		Title:          title,
		BusinessPrompt: req.BusinessPrompt,
		State:          stateJSON,
		Status:         state.Status,
		CurrentLevel:   state.CurrentLevel,
		CreatedAt:      now,
	}

	if err := uow.GenSessionRepository().Create(ctx, &session); err != nil {
		return nil, err
	}

	s.stateRepo.Save(session.Id.String(), state)

	// Queue the business prompt for embedding (async)
	msgPayload := dto.PublishEmbedPromptMessage{
		SessionId: session.Id,
	}
	msgJson, err := json.Marshal(msgPayload)
	if err != nil {
		return nil, err
	}

	err = s.publisherService.Publish(ctx, msgJson)
	if err != nil {
		return nil, err
	}

	// Publish Event for Notification System
	if s.eventPublisher != nil {
		evt := events.BaseEvent{
			Type: "SESSION_CREATED",
			Data: map[string]interface{}{
				"title":       title, // Template uses {title}
				"session_id":  session.Id,
				"user_id":     userId,
				"entity_type": "session",
				"entity_id":   session.Id.String(),
			},
			OccurredAt: now,
		}
		// We log error but don't fail the request as notification is auxiliary
		if err := s.eventPublisher.Publish(ctx, evt); err != nil {
			fmt.Printf("[WARN] Failed to publish SESSION_CREATED event: %v\n", err)
		}
	}

	return &dto.CreateSessionResponse{
		Id:         session.Id,
		SessionKey: session.SessionKey,
		Title:      session.Title,
		Status:     session.Status,
	}, nil
}

// GetAllSessions retrieves a page of the user's sessions, newest first.
func (s *sessionService) GetAllSessions(ctx context.Context, userId uuid.UUID, limit, offset int) ([]*dto.GetAllSessionsResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	sessions, err := uow.GenSessionRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: limit, Offset: offset},
	)
	if err != nil {
		return nil, err
	}

	response := make([]*dto.GetAllSessionsResponse, 0, len(sessions))
	for _, sess := range sessions {
		response = append(response, &dto.GetAllSessionsResponse{
			Id:           sess.Id,
			Title:        sess.Title,
			Status:       sess.Status,
			CurrentLevel: sess.CurrentLevel,
			CreatedAt:    sess.CreatedAt,
			UpdatedAt:    sess.UpdatedAt,
		})
	}

	return response, nil
}

// GetSession retrieves one session including its state blob
func (s *sessionService) GetSession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) (*dto.SessionDetailResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	sess, err := uow.GenSessionRepository().FindOne(ctx,
		specification.ByID{ID: sessionId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, fmt.Errorf("session not found or access denied")
	}

	return &dto.SessionDetailResponse{
		Id:             sess.Id,
		SessionKey:     sess.SessionKey,
		Title:          sess.Title,
		BusinessPrompt: sess.BusinessPrompt,
		Status:         sess.Status,
		CurrentLevel:   sess.CurrentLevel,
		State:          sess.State,
		CreatedAt:      sess.CreatedAt,
		UpdatedAt:      sess.UpdatedAt,
	}, nil
}

// DeleteSession removes a session, its embeddings and its cached state
func (s *sessionService) DeleteSession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	sess, err := uow.GenSessionRepository().FindOne(ctx,
		specification.ByID{ID: sessionId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return err
	}
	if sess == nil {
		return fmt.Errorf("session not found or access denied")
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.GenSessionRepository().Delete(ctx, sessionId); err != nil {
		return err
	}
	if err := uow.PromptEmbeddingRepository().DeleteBySessionId(ctx, sessionId); err != nil {
		return err
	}

	s.stateRepo.Delete(sessionId.String())

	return uow.Commit()
}

// GetSimilarSessions embeds the session's business prompt and ranks the
// user's other sessions by cosine similarity.
func (s *sessionService) GetSimilarSessions(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID, limit int) ([]*dto.SimilarSessionResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	sess, err := uow.GenSessionRepository().FindOne(ctx,
		specification.ByID{ID: sessionId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, fmt.Errorf("session not found or access denied")
	}

	res, err := s.embeddingProvider.Generate(sess.BusinessPrompt, "RETRIEVAL_QUERY")
	if err != nil {
		return nil, fmt.Errorf("embed query prompt: %w", err)
	}

	hits, err := uow.PromptEmbeddingRepository().SearchSimilarSessions(ctx, res.Embedding.Values, limit, userId, sessionId)
	if err != nil {
		return nil, err
	}

	response := make([]*dto.SimilarSessionResponse, 0, len(hits))
	for _, hit := range hits {
		response = append(response, &dto.SimilarSessionResponse{
			Id:         hit.SessionId,
			Title:      hit.Title,
			Similarity: hit.Similarity,
		})
	}

	return response, nil
}

// FILE: internal/service/testgen_service.go
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"ai-testgen-be/internal/dto"
	"ai-testgen-be/internal/entity"
	"ai-testgen-be/internal/repository/memory"
	"ai-testgen-be/internal/repository/specification"
	"ai-testgen-be/internal/repository/unitofwork"
	"ai-testgen-be/pkg/events"
	"ai-testgen-be/pkg/llm"
	pktNats "ai-testgen-be/pkg/nats"
	"ai-testgen-be/pkg/store"
	"ai-testgen-be/pkg/testgen/access"
	"ai-testgen-be/pkg/testgen/engine"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"
)

// ErrSessionBusy is returned when a stage operation is already running
// for the same session. Controllers map it to 409.
var ErrSessionBusy = errors.New("another generation is already running for this session")

// sessionLockTTL bounds how long a crashed worker can hold a session.
const sessionLockTTL = 5 * time.Minute

// draftFlushEvery controls how often the accumulating stream text is
// checkpointed to the session row during generation.
const draftFlushEvery = 10

// ITestgenService runs the stage operations of a generation session. All
// mutating operations stream tokens through the sink when one is given;
// a nil sink makes the call blocking.
type ITestgenService interface {
	StartSession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID, sink store.TokenSink) (*dto.StageStateResponse, error)
	SubmitL1Answers(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID, request *dto.SubmitAnswersRequest, sink store.TokenSink) (*dto.StageStateResponse, error)
	SelectL1Case(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID, request *dto.SelectCaseRequest, sink store.TokenSink) (*dto.StageStateResponse, error)
	SubmitL2Answers(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID, request *dto.SubmitAnswersRequest, sink store.TokenSink) (*dto.StageStateResponse, error)
	SelectL2Case(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID, request *dto.SelectCaseRequest, sink store.TokenSink) (*dto.StageStateResponse, error)
	SubmitL3Answers(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID, request *dto.SubmitAnswersRequest, sink store.TokenSink) (*dto.StageStateResponse, error)
	GetState(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) (*dto.StageStateResponse, error)
	GetTree(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) (*dto.TreeResponse, error)
}

type testgenService struct {
	uowFactory     unitofwork.RepositoryFactory
	machine        *engine.StageMachine
	stateRepo      *memory.StateRepository
	rdb            *redis.Client
	accessVerifier *access.Verifier
	eventPublisher *pktNats.Publisher
	llmLogger      *log.Logger
}

func NewTestgenService(
	uowFactory unitofwork.RepositoryFactory,
	llmProvider llm.LLMProvider,
	stateRepo *memory.StateRepository,
	rdb *redis.Client,
	eventPublisher *pktNats.Publisher,
) ITestgenService {
	llmLogger := initLLMLogger()

	return &testgenService{
		uowFactory:     uowFactory,
		machine:        engine.NewStageMachine(llmProvider, llmLogger),
		stateRepo:      stateRepo,
		rdb:            rdb,
		accessVerifier: access.NewVerifier(),
		eventPublisher: eventPublisher,
		llmLogger:      llmLogger,
	}
}

// initLLMLogger creates a file logger for LLM interactions
func initLLMLogger() *log.Logger {
	logPath := filepath.Join(".", "logs", "llm_testgen.log")
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		log.Printf("Failed to create logs directory: %v", err)
	}
	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return log.New(os.Stdout, "[LLM-TESTGEN] ", log.LstdFlags)
	}
	return log.New(file, "", log.LstdFlags)
}

// --- Stage Operations ---

func (ts *testgenService) StartSession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID, sink store.TokenSink) (*dto.StageStateResponse, error) {
	return ts.runStage(ctx, userId, sessionId, sink, func(opCtx context.Context, prev *store.GenerationState, opSink store.TokenSink) (*store.GenerationState, error) {
		return ts.machine.StartSession(opCtx, prev.SessionID, prev.UserPrompt, opSink)
	})
}

func (ts *testgenService) SubmitL1Answers(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID, request *dto.SubmitAnswersRequest, sink store.TokenSink) (*dto.StageStateResponse, error) {
	return ts.runStage(ctx, userId, sessionId, sink, func(opCtx context.Context, prev *store.GenerationState, opSink store.TokenSink) (*store.GenerationState, error) {
		return ts.machine.SubmitL1Answers(opCtx, prev, request.Answers, opSink)
	})
}

func (ts *testgenService) SelectL1Case(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID, request *dto.SelectCaseRequest, sink store.TokenSink) (*dto.StageStateResponse, error) {
	return ts.runStage(ctx, userId, sessionId, sink, func(opCtx context.Context, prev *store.GenerationState, opSink store.TokenSink) (*store.GenerationState, error) {
		return ts.machine.SelectL1Case(opCtx, prev, *request.Index, opSink)
	})
}

func (ts *testgenService) SubmitL2Answers(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID, request *dto.SubmitAnswersRequest, sink store.TokenSink) (*dto.StageStateResponse, error) {
	return ts.runStage(ctx, userId, sessionId, sink, func(opCtx context.Context, prev *store.GenerationState, opSink store.TokenSink) (*store.GenerationState, error) {
		return ts.machine.SubmitL2Answers(opCtx, prev, request.Answers, opSink)
	})
}

func (ts *testgenService) SelectL2Case(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID, request *dto.SelectCaseRequest, sink store.TokenSink) (*dto.StageStateResponse, error) {
	return ts.runStage(ctx, userId, sessionId, sink, func(opCtx context.Context, prev *store.GenerationState, opSink store.TokenSink) (*store.GenerationState, error) {
		return ts.machine.SelectL2Case(opCtx, prev, *request.Index, opSink)
	})
}

func (ts *testgenService) SubmitL3Answers(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID, request *dto.SubmitAnswersRequest, sink store.TokenSink) (*dto.StageStateResponse, error) {
	return ts.runStage(ctx, userId, sessionId, sink, func(opCtx context.Context, prev *store.GenerationState, opSink store.TokenSink) (*store.GenerationState, error) {
		return ts.machine.SubmitL3Answers(opCtx, prev, request.Answers, opSink)
	})
}

// GetState returns the current state without running anything
func (ts *testgenService) GetState(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) (*dto.StageStateResponse, error) {
	uow := ts.uowFactory.NewUnitOfWork(ctx)

	sess, err := ts.verifySession(ctx, uow, userId, sessionId)
	if err != nil {
		return nil, err
	}

	st, err := ts.loadState(sess)
	if err != nil {
		return nil, err
	}

	return ts.stageResponse(sess, st), nil
}

// GetTree returns the assembled tree for a completed session, or a
// snapshot of the hierarchy built so far.
func (ts *testgenService) GetTree(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) (*dto.TreeResponse, error) {
	uow := ts.uowFactory.NewUnitOfWork(ctx)

	sess, err := ts.verifySession(ctx, uow, userId, sessionId)
	if err != nil {
		return nil, err
	}

	st, err := ts.loadState(sess)
	if err != nil {
		return nil, err
	}

	return &dto.TreeResponse{
		Id:     sess.Id,
		Status: st.Status,
		Tree:   ts.machine.Tree(st),
	}, nil
}

// --- Internals ---

// runStage is the shared wrapper around every mutating stage operation:
// limit check, ownership check, per-session lock, state load, the
// operation itself, then persist + usage + events.
func (ts *testgenService) runStage(
	ctx context.Context,
	userId uuid.UUID,
	sessionId uuid.UUID,
	sink store.TokenSink,
	op func(ctx context.Context, prev *store.GenerationState, sink store.TokenSink) (*store.GenerationState, error),
) (*dto.StageStateResponse, error) {
	uow := ts.uowFactory.NewUnitOfWork(ctx)

	// Verify access using domain component
	if err := ts.accessVerifier.VerifyAccessAndLimits(ctx, uow, userId); err != nil {
		return nil, err
	}

	sess, err := ts.verifySession(ctx, uow, userId, sessionId)
	if err != nil {
		return nil, err
	}

	// One stage operation per session at a time
	release, err := ts.acquireLock(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	defer release()

	prev, err := ts.loadState(sess)
	if err != nil {
		return nil, err
	}

	wrappedSink, lastText := ts.draftSink(ctx, sessionId, sink)

	next, err := op(ctx, prev, wrappedSink)
	if err != nil {
		// Keep whatever streamed before the failure inspectable
		if txt := lastText(); txt != "" {
			if derr := uow.GenSessionRepository().UpdateStreamDraft(ctx, sessionId, txt); derr != nil {
				fmt.Printf("[WARN] Failed to persist stream draft: %v\n", derr)
			}
		}
		return nil, err
	}

	// No-op stages hand the previous snapshot back unchanged
	if next == prev {
		return ts.stageResponse(sess, next), nil
	}

	blob, err := json.Marshal(next)
	if err != nil {
		return nil, fmt.Errorf("encode session state: %w", err)
	}

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if err := uow.GenSessionRepository().UpdateState(ctx, sess.Id, datatypes.JSON(blob), next.Status, next.CurrentLevel); err != nil {
		return nil, err
	}

	// Increment usage using domain component
	if err := ts.accessVerifier.IncrementUserUsage(ctx, uow, userId); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	ts.stateRepo.Save(sess.Id.String(), next)

	ts.publishProgress(ctx, sess, next)
	if prev.Status != store.StatusComplete && next.Status == store.StatusComplete {
		ts.publishCompleted(ctx, uow, sess, next)
	}

	return ts.stageResponse(sess, next), nil
}

// verifySession fetches the session and checks ownership
func (ts *testgenService) verifySession(ctx context.Context, uow unitofwork.UnitOfWork, userId uuid.UUID, sessionId uuid.UUID) (*entity.GenSession, error) {
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
	return sess, nil
}

// acquireLock takes the per-session Redis lock. Without Redis configured
// the lock degrades to a no-op and concurrent writers race on the row.
func (ts *testgenService) acquireLock(ctx context.Context, sessionId uuid.UUID) (func(), error) {
	if ts.rdb == nil {
		return func() {}, nil
	}

	key := "testgen:lock:" + sessionId.String()
	ok, err := ts.rdb.SetNX(ctx, key, "1", sessionLockTTL).Result()
	if err != nil {
		// Redis being down should not take generation down with it
		fmt.Printf("[WARN] Failed to acquire session lock: %v\n", err)
		return func() {}, nil
	}
	if !ok {
		return nil, ErrSessionBusy
	}

	return func() {
		if err := ts.rdb.Del(context.Background(), key).Err(); err != nil {
			fmt.Printf("[WARN] Failed to release session lock: %v\n", err)
		}
	}, nil
}

// loadState returns the session's generation state, preferring the in
// process cache over decoding the stored blob.
func (ts *testgenService) loadState(sess *entity.GenSession) (*store.GenerationState, error) {
	if cached, found := ts.stateRepo.Get(sess.Id.String()); found {
		return cached, nil
	}

	st := &store.GenerationState{}
	if err := json.Unmarshal(sess.State, st); err != nil {
		return nil, fmt.Errorf("decode session state: %w", err)
	}
	st.Normalize()

	ts.stateRepo.Save(sess.Id.String(), st)
	return st, nil
}

// draftSink wraps the caller's sink so the accumulating text is
// checkpointed to stream_draft during generation. The returned func hands
// back the last full text seen, for the failure path.
func (ts *testgenService) draftSink(ctx context.Context, sessionId uuid.UUID, sink store.TokenSink) (store.TokenSink, func() string) {
	count := 0
	last := ""

	wrapped := func(token string, fullText string) error {
		count++
		last = fullText
		if count%draftFlushEvery == 0 {
			uow := ts.uowFactory.NewUnitOfWork(ctx)
			if err := uow.GenSessionRepository().UpdateStreamDraft(ctx, sessionId, fullText); err != nil {
				fmt.Printf("[WARN] Failed to persist stream draft: %v\n", err)
			}
		}
		if sink == nil {
			return nil
		}
		return sink(token, fullText)
	}

	return wrapped, func() string { return last }
}

func (ts *testgenService) stageResponse(sess *entity.GenSession, st *store.GenerationState) *dto.StageStateResponse {
	return &dto.StageStateResponse{
		Id:           sess.Id,
		SessionKey:   sess.SessionKey,
		Status:       st.Status,
		CurrentLevel: st.CurrentLevel,
		State:        st,
	}
}

func (ts *testgenService) publishProgress(ctx context.Context, sess *entity.GenSession, st *store.GenerationState) {
	if ts.eventPublisher == nil {
		return
	}

	evt := events.BaseEvent{
		Type: "GENERATION_PROGRESS",
		Data: map[string]interface{}{
			"session_id":    sess.Id,
			"user_id":       sess.UserId,
			"title":         sess.Title,
			"status":        st.Status,
			"current_level": st.CurrentLevel,
			"entity_type":   "session",
			"entity_id":     sess.Id.String(),
		},
		OccurredAt: time.Now(),
	}
	if err := ts.eventPublisher.Publish(ctx, evt); err != nil {
		fmt.Printf("[WARN] Failed to publish GENERATION_PROGRESS event: %v\n", err)
	}
}

func (ts *testgenService) publishCompleted(ctx context.Context, uow unitofwork.UnitOfWork, sess *entity.GenSession, st *store.GenerationState) {
	if ts.eventPublisher == nil {
		return
	}

	email := ""
	if user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: sess.UserId}); err == nil && user != nil {
		email = user.Email
	}

	caseCount := len(st.L1Cases) + len(st.L2Cases) + len(st.L3Cases)

	evt := events.BaseEvent{
		Type: "SESSION_COMPLETED",
		Data: map[string]interface{}{
			"session_id":    sess.Id,
			"user_id":       sess.UserId,
			"user_email":    email,
			"session_title": sess.Title,
			"title":         sess.Title, // Template uses {title}
			"case_count":    caseCount,
			"entity_type":   "session",
			"entity_id":     sess.Id.String(),
		},
		OccurredAt: time.Now(),
	}
	if err := ts.eventPublisher.Publish(ctx, evt); err != nil {
		fmt.Printf("[WARN] Failed to publish SESSION_COMPLETED event: %v\n", err)
	}
}

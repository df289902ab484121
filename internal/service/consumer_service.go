// FILE: internal/service/consumer_service.go
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"ai-testgen-be/internal/dto"
	"ai-testgen-be/internal/entity"
	"ai-testgen-be/internal/repository/specification"
	"ai-testgen-be/internal/repository/unitofwork"
	"ai-testgen-be/pkg/embedding"
	"ai-testgen-be/pkg/utils"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

// IConsumerService drains the embed-prompt queue. Session create and
// update publish onto it; this worker turns each business prompt into
// chunked vectors for the similar-session search.
type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	pubSub            *gochannel.GoChannel
	topicName         string
	uowFactory        unitofwork.RepositoryFactory
	embeddingProvider embedding.EmbeddingProvider
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	embeddingProvider embedding.EmbeddingProvider,
) IConsumerService {
	return &consumerService{
		pubSub:            pubSub,
		topicName:         topicName,
		uowFactory:        uowFactory,
		embeddingProvider: embeddingProvider,
	}
}

// Consume subscribes and works the queue serially: embedding calls
// dominate the latency and the provider throttles concurrent requests.
func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PublishEmbedPromptMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		log.Printf("[ERROR] Failed to unmarshal embed job: %v", err)
		msg.Ack() // malformed; a retry would yield the same bytes
		return
	}

	log.Printf("[INFO] Processing prompt embedding for SessionId: %s", payload.SessionId)

	uow := cs.uowFactory.NewUnitOfWork(ctx)

	// No owner filter here: the queue is internal and carries ids the
	// services already authorized
	sess, err := uow.GenSessionRepository().FindOne(ctx, specification.ByID{ID: payload.SessionId})
	if err != nil {
		log.Printf("[ERROR] Failed to get session %s: %v", payload.SessionId, err)
		msg.Nack()
		return
	}
	if sess == nil {
		// Deleted between publish and processing; nothing to index
		log.Printf("[WARN] Session %s vanished before embedding", payload.SessionId)
		msg.Ack()
		return
	}

	newEmbeddings, err := cs.embedSession(sess)
	if err != nil {
		log.Printf("[ERROR] %v", err)
		// gochannel redelivers a Nack immediately; breathe first so a
		// dead provider does not spin the worker hot
		time.Sleep(2 * time.Second)
		msg.Nack()
		return
	}

	if err := cs.replaceEmbeddings(ctx, uow, sess.Id, newEmbeddings); err != nil {
		log.Printf("[ERROR] %v", err)
		msg.Nack()
		return
	}

	log.Printf("[SUCCESS] Prompt processed: %d chunks for SessionId: %s", len(newEmbeddings), payload.SessionId)
	msg.Ack()
}

// embedSession chunks the session document and embeds every chunk.
func (cs *consumerService) embedSession(sess *entity.GenSession) ([]*entity.PromptEmbedding, error) {
	// The title gives the index something to match on when the prompt
	// itself is terse.
	content := fmt.Sprintf("Session Title: %s\n\n%s\n\nCreated At: %s",
		sess.Title,
		sess.BusinessPrompt,
		sess.CreatedAt.Format(time.RFC3339),
	)

	// 1500 chars with 200 overlap keeps every chunk far inside the
	// embedding model's context window
	chunks := utils.SplitText(content, 1500, 200)
	log.Printf("[INFO] Content split into %d chunks (total length %d)", len(chunks), len(content))

	var out []*entity.PromptEmbedding
	for i, chunk := range chunks {
		res, err := cs.embeddingProvider.Generate(chunk, "RETRIEVAL_DOCUMENT")
		if err != nil {
			return nil, fmt.Errorf("embed chunk %d of session %s: %w", i, sess.Id, err)
		}

		out = append(out, &entity.PromptEmbedding{
			Id:             uuid.New(),
			Document:       chunk,
			EmbeddingValue: res.Embedding.Values,
			SessionId:      sess.Id,
			ChunkIndex:     i,
			CreatedAt:      time.Now(),
		})
	}
	return out, nil
}

// replaceEmbeddings swaps the session's whole vector set inside one
// transaction; a similarity search never sees a half-indexed session.
func (cs *consumerService) replaceEmbeddings(ctx context.Context, uow unitofwork.UnitOfWork, sessionId uuid.UUID, embeddings []*entity.PromptEmbedding) error {
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("begin embedding swap: %w", err)
	}
	defer uow.Rollback()

	if err := uow.PromptEmbeddingRepository().DeleteBySessionId(ctx, sessionId); err != nil {
		return fmt.Errorf("delete old embeddings for %s: %w", sessionId, err)
	}

	if len(embeddings) > 0 {
		if err := uow.PromptEmbeddingRepository().CreateBulk(ctx, embeddings); err != nil {
			return fmt.Errorf("insert embeddings for %s: %w", sessionId, err)
		}
	}

	return uow.Commit()
}

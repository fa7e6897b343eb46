package main

import (
	"context"
	"errors"
	"testing"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/arjunmehra/bazaarcart-backend/pkg/config"
	"github.com/arjunmehra/bazaarcart-backend/pkg/db/models"
	"github.com/arjunmehra/bazaarcart-backend/pkg/enums"
	"github.com/arjunmehra/bazaarcart-backend/pkg/logger"
)

type fakeRepo struct {
	queue     []models.OutboxEvent
	published []uuid.UUID
	failed    []uuid.UUID
	fetchErr  error
}

func (f *fakeRepo) FetchUnpublished(limit, maxAttempts int) ([]models.OutboxEvent, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	events := f.queue
	f.queue = nil
	return events, nil
}

func (f *fakeRepo) MarkPublished(id uuid.UUID) error {
	f.published = append(f.published, id)
	return nil
}

func (f *fakeRepo) MarkFailed(id uuid.UUID, err error) error {
	f.failed = append(f.failed, id)
	return nil
}

type fakeResult struct {
	err error
}

func (f fakeResult) Get(context.Context) (string, error) {
	return "msg-1", f.err
}

type fakePublisher struct {
	messages []*gcppubsub.Message
	errFor   map[string]error
}

func (f *fakePublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	f.messages = append(f.messages, msg)
	return fakeResult{err: f.errFor[msg.Attributes["event_id"]]}
}

func newTestService(t *testing.T, repo *fakeRepo, pub *fakePublisher) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Config: &config.Config{},
		Logger: logger.New(logger.Options{ServiceName: "publisher-test", Level: zerolog.Disabled}),
		Repo:   repo,
		Publisher: pub,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	return svc
}

func event(id uuid.UUID) models.OutboxEvent {
	return models.OutboxEvent{
		ID:            id,
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       []byte(`{"version":1}`),
	}
}

func TestProcessBatchPublishesAndMarks(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	repo := &fakeRepo{queue: []models.OutboxEvent{event(a), event(b)}}
	pub := &fakePublisher{}
	svc := newTestService(t, repo, pub)

	processed, err := svc.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report work done")
	}
	if len(repo.published) != 2 || len(repo.failed) != 0 {
		t.Fatalf("published=%d failed=%d, want 2/0", len(repo.published), len(repo.failed))
	}
	if len(pub.messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(pub.messages))
	}
	attrs := pub.messages[0].Attributes
	if attrs["event_type"] != string(enums.EventOrderCreated) {
		t.Fatalf("missing event_type attribute: %v", attrs)
	}
}

func TestProcessBatchMarksFailureAndContinues(t *testing.T) {
	bad, good := uuid.New(), uuid.New()
	repo := &fakeRepo{queue: []models.OutboxEvent{event(bad), event(good)}}
	pub := &fakePublisher{errFor: map[string]error{bad.String(): errors.New("deadline exceeded")}}
	svc := newTestService(t, repo, pub)

	processed, err := svc.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report work done")
	}
	if len(repo.failed) != 1 || repo.failed[0] != bad {
		t.Fatalf("expected the bad event marked failed, got %v", repo.failed)
	}
	if len(repo.published) != 1 || repo.published[0] != good {
		t.Fatalf("expected the good event published, got %v", repo.published)
	}
}

func TestProcessBatchEmptyQueue(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(t, repo, &fakePublisher{})

	processed, err := svc.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if processed {
		t.Fatalf("empty queue must report no work")
	}
}

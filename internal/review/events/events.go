package events

import (
	"context"

	"github.com/credflow/credflow-backend/internal/review/domain"
	"github.com/credflow/credflow-backend/pkg/logger"
	"github.com/credflow/credflow-backend/pkg/messaging"
)

// Publisher emits review lifecycle events. Nil-safe: a service wired
// without a broker simply skips publishing.
type Publisher struct {
	publisher *messaging.Publisher
	logger    *logger.Logger
}

// NewPublisher creates a review event publisher on the review exchange
func NewPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*Publisher, error) {
	p, err := messaging.NewPublisher(rmq, messaging.ExchangeReviewEvents, "review-service", log)
	if err != nil {
		return nil, err
	}
	return &Publisher{publisher: p, logger: log}, nil
}

// PublishVerdict emits the completion event for a finished review, plus
// a status-specific event for rejected and needs-review outcomes so
// downstream consumers can subscribe narrowly.
func (p *Publisher) PublishVerdict(ctx context.Context, doc *domain.Document, verdict *domain.DocumentVerdict) {
	if p == nil || p.publisher == nil {
		return
	}

	payload := messaging.ReviewCompletedEvent{
		DocumentID: doc.ID,
		Filename:   doc.Filename,
		Status:     string(verdict.Status),
		Reasons:    verdict.Reasons,
		DurationMs: verdict.DurationMs,
	}
	for _, v := range verdict.Verdicts {
		switch v.State {
		case domain.VerdictMissing, domain.VerdictInvalidFormat, domain.VerdictFailedCrossCheck:
			payload.RejectedFields = append(payload.RejectedFields, v.FieldID)
		case domain.VerdictLowConfidence:
			payload.ReviewFields = append(payload.ReviewFields, v.FieldID)
		}
	}

	p.publish(ctx, messaging.EventReviewCompleted, payload)

	switch verdict.Status {
	case domain.StatusRejected:
		p.publish(ctx, messaging.EventReviewRejected, payload)
	case domain.StatusNeedsReview:
		p.publish(ctx, messaging.EventReviewNeedsHuman, payload)
	}
}

func (p *Publisher) publish(ctx context.Context, eventType string, payload messaging.ReviewCompletedEvent) {
	if err := p.publisher.Publish(ctx, eventType, payload); err != nil {
		// Event delivery is best effort; the verdict itself is already
		// persisted by the time events go out.
		p.logger.Warn().Err(err).
			Str("event_type", eventType).
			Str("document_id", payload.DocumentID).
			Msg("failed to publish review event")
	}
}

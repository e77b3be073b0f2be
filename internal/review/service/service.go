package service

import (
	"context"
	"sync"
	"time"

	"github.com/credflow/credflow-backend/internal/review/catalog"
	"github.com/credflow/credflow-backend/internal/review/domain"
	"github.com/credflow/credflow-backend/internal/review/events"
	"github.com/credflow/credflow-backend/internal/review/extract"
	"github.com/credflow/credflow-backend/internal/review/repository"
	"github.com/credflow/credflow-backend/internal/review/status"
	"github.com/credflow/credflow-backend/internal/review/validate"
	"github.com/credflow/credflow-backend/pkg/logger"
)

// Service runs the review pipeline: extract all fields, validate them
// all, determine the document status. The extraction and validation
// phases are strictly ordered within one document; across documents runs
// share nothing mutable, so the batch path fans out freely.
type Service struct {
	cat       *catalog.Catalog
	extractor *extract.Engine
	validator *validate.Engine
	repo      *repository.ReviewRepository
	events    *events.Publisher
	log       *logger.Logger
	workers   int
}

// defaultBatchWorkers bounds batch fan-out when no limit is configured
const defaultBatchWorkers = 4

// NewService creates a review service. repo and publisher may be nil;
// review then runs without audit persistence or event emission.
func NewService(cat *catalog.Catalog, threshold float64, repo *repository.ReviewRepository, publisher *events.Publisher, log *logger.Logger) *Service {
	return &Service{
		cat:       cat,
		extractor: extract.NewEngine(cat),
		validator: validate.NewEngine(cat, threshold),
		repo:      repo,
		events:    publisher,
		log:       log,
		workers:   defaultBatchWorkers,
	}
}

// SetBatchWorkers caps how many documents a batch reviews concurrently.
// Values below one keep the default.
func (s *Service) SetBatchWorkers(n int) {
	if n > 0 {
		s.workers = n
	}
}

// Review processes one document and returns its verdict. The verdict is
// complete even when the text source delivered unusable input: every
// declared field still appears, and the document lands in human review
// with a reason naming the extraction fault.
func (s *Service) Review(ctx context.Context, doc *domain.Document) (*domain.DocumentVerdict, error) {
	started := time.Now()

	fields, extractErr := s.extractor.ExtractAll(doc)
	verdicts := s.validator.ValidateAll(fields, doc.SubmittedAt)
	st, reasons := status.Determine(s.cat, verdicts)

	if extractErr != nil {
		// An unusable document is never auto-approved and never
		// auto-rejected on the back of fields it had no chance to carry.
		st = domain.StatusNeedsReview
		reasons = append([]string{"extraction fault: " + extractErr.Error()}, reasons...)
		s.log.Warn().Err(extractErr).Str("document_id", doc.ID).Msg("document text unusable, routing to human review")
	}

	verdict := &domain.DocumentVerdict{
		DocumentID: doc.ID,
		Status:     st,
		Verdicts:   verdicts,
		Reasons:    reasons,
		Confidence: status.Summarize(fields),
		ReviewedAt: started.UTC(),
		DurationMs: time.Since(started).Milliseconds(),
	}

	s.log.Info().
		Str("document_id", doc.ID).
		Str("status", string(verdict.Status)).
		Int("fields", len(fields)).
		Int("reasons", len(verdict.Reasons)).
		Int64("duration_ms", verdict.DurationMs).
		Msg("document review completed")

	s.audit(ctx, doc, verdict)
	s.events.PublishVerdict(ctx, doc, verdict)

	return verdict, nil
}

// ReviewBatch reviews independent documents concurrently, bounded by the
// configured worker cap. Results keep input order.
func (s *Service) ReviewBatch(ctx context.Context, docs []domain.Document) []*domain.DocumentVerdict {
	results := make([]*domain.DocumentVerdict, len(docs))
	sem := make(chan struct{}, s.workers)

	var wg sync.WaitGroup
	for i := range docs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			verdict, err := s.Review(ctx, &docs[i])
			if err != nil {
				s.log.Error().Err(err).Str("document_id", docs[i].ID).Msg("batch review failed for document")
				return
			}
			results[i] = verdict
		}(i)
	}
	wg.Wait()

	return results
}

// RecentRuns lists the latest audit rows for the reviewer dashboard
func (s *Service) RecentRuns(ctx context.Context, limit int) ([]*repository.ReviewRun, error) {
	if s.repo == nil {
		return nil, nil
	}
	return s.repo.ListRecent(ctx, limit)
}

// Catalog exposes the loaded rule set, read-only
func (s *Service) Catalog() *catalog.Catalog {
	return s.cat
}

func (s *Service) audit(ctx context.Context, doc *domain.Document, verdict *domain.DocumentVerdict) {
	if s.repo == nil {
		return
	}

	run := &repository.ReviewRun{
		DocumentID:     doc.ID,
		Filename:       doc.Filename,
		Status:         string(verdict.Status),
		FieldCount:     len(verdict.Verdicts),
		Reasons:        verdict.Reasons,
		MinConfidence:  verdict.Confidence.Min,
		MeanConfidence: verdict.Confidence.Mean,
		DurationMs:     verdict.DurationMs,
	}
	for _, v := range verdict.Verdicts {
		switch v.State {
		case domain.VerdictMissing, domain.VerdictInvalidFormat, domain.VerdictFailedCrossCheck:
			run.RejectedFields = append(run.RejectedFields, v.FieldID)
		}
	}

	if err := s.repo.Create(ctx, run); err != nil {
		s.log.Error().Err(err).Str("document_id", doc.ID).Msg("failed to write review audit row")
	}
}

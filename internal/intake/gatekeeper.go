// Package intake runs the upstream gates a document must clear before
// the review core sees it: file integrity, document type, and duplicate
// detection. The gates are policy shims around the core; none of them
// reads or influences a review verdict.
package intake

import (
	"context"
	"time"

	"github.com/credflow/credflow-backend/internal/review/domain"
	"github.com/credflow/credflow-backend/pkg/config"
	"github.com/credflow/credflow-backend/pkg/logger"
	"github.com/credflow/credflow-backend/pkg/messaging"
)

// Gate names used in rejection events and logs
const (
	GateIntegrity    = "file_integrity"
	GateDocumentType = "document_type"
	GateDuplicate    = "duplicate"
)

// GateError reports which gate rejected a document and why
type GateError struct {
	Gate   string
	Reason string
}

func (e *GateError) Error() string {
	return e.Gate + ": " + e.Reason
}

// Gatekeeper runs all intake gates in order
type Gatekeeper struct {
	integrity  *IntegrityChecker
	doctype    TypeChecker
	duplicates *DuplicateDetector
	events     *messaging.Publisher
	log        *logger.Logger
}

// NewGatekeeper wires the gates from intake configuration. publisher may
// be nil; rejections are then logged but not emitted as events.
func NewGatekeeper(cfg *config.IntakeConfig, publisher *messaging.Publisher, log *logger.Logger) *Gatekeeper {
	return &Gatekeeper{
		integrity:  NewIntegrityChecker(cfg.MaxFileSizeBytes),
		duplicates: NewDuplicateDetector(cfg.DuplicateWindow),
		events:     publisher,
		log:        log,
	}
}

// Admit checks a document against every gate. On success the submission
// is recorded so a re-upload inside the window is caught as a duplicate.
func (g *Gatekeeper) Admit(ctx context.Context, doc *domain.Document) error {
	if err := g.integrity.CheckText(doc.Pages); err != nil {
		return g.reject(ctx, doc, err)
	}
	if err := g.doctype.Check(doc.Pages); err != nil {
		return g.reject(ctx, doc, err)
	}

	digest := Digest(doc.Pages)
	now := time.Now()
	if err := g.duplicates.Check(doc.Filename, digest, now); err != nil {
		return g.reject(ctx, doc, err)
	}
	g.duplicates.Record(doc.Filename, digest, now)

	return nil
}

func (g *Gatekeeper) reject(ctx context.Context, doc *domain.Document, err error) error {
	gateErr, ok := err.(*GateError)
	if !ok {
		return err
	}

	g.log.Info().
		Str("document_id", doc.ID).
		Str("filename", doc.Filename).
		Str("gate", gateErr.Gate).
		Str("reason", gateErr.Reason).
		Msg("document rejected at intake")

	if g.events != nil {
		eventType := messaging.EventIntakeRejected
		if gateErr.Gate == GateDuplicate {
			eventType = messaging.EventIntakeDuplicate
		}
		payload := messaging.IntakeRejectedEvent{
			DocumentID: doc.ID,
			Filename:   doc.Filename,
			Gate:       gateErr.Gate,
			Reason:     gateErr.Reason,
		}
		if pubErr := g.events.Publish(ctx, eventType, payload); pubErr != nil {
			g.log.Warn().Err(pubErr).Str("document_id", doc.ID).Msg("failed to publish intake event")
		}
	}

	return err
}

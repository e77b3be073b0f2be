package service_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/credflow/credflow-backend/internal/review/catalog"
	"github.com/credflow/credflow-backend/internal/review/domain"
	"github.com/credflow/credflow-backend/internal/review/service"
	"github.com/credflow/credflow-backend/pkg/logger"
)

// summaryText is a minimal but structurally faithful data summary
// covering every required field plus a few optional ones.
const summaryText = `CAQH Data Summary
Provider Information

Personal Information
Medicaid ID: AB12345678
Social Security Number: 123-45-6789

Professional IDs
Individual NPI: 1234567893
License Expiration Date: 12/31/2030
License Number: PSY-12345
License State: FL

Practice Locations
Practice Name: Positive Behavior Supports Corporation
Phone Number: (555) 123-4567
Zip Code: 33301
`

func newTestService(t *testing.T) *service.Service {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)
	return service.NewService(cat, 0.70, nil, nil, logger.Nop())
}

func testDocument(id, text string) *domain.Document {
	return &domain.Document{
		ID:          id,
		Filename:    "summary.pdf",
		SubmittedAt: time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC),
		Pages:       []domain.Page{{Index: 0, Text: text}},
	}
}

func TestReview_ValidDocumentApproved(t *testing.T) {
	svc := newTestService(t)

	verdict, err := svc.Review(context.Background(), testDocument("doc-1", summaryText))
	require.NoError(t, err)

	assert.Equal(t, domain.StatusApproved, verdict.Status)
	assert.Empty(t, verdict.Reasons)
	assert.Equal(t, svc.Catalog().Len(), len(verdict.Verdicts))
	assert.Greater(t, verdict.Confidence.Mean, 0.70)
}

func TestReview_MissingMedicaidIDRejected(t *testing.T) {
	svc := newTestService(t)

	text := strings.Replace(summaryText, "Medicaid ID: AB12345678\n", "", 1)
	verdict, err := svc.Review(context.Background(), testDocument("doc-2", text))
	require.NoError(t, err)

	assert.Equal(t, domain.StatusRejected, verdict.Status)
	require.NotEmpty(t, verdict.Reasons)
	assert.Equal(t, "Medicaid ID: missing required field", verdict.Reasons[0])
}

func TestReview_ExpiredLicenseRejected(t *testing.T) {
	svc := newTestService(t)

	text := strings.Replace(summaryText, "License Expiration Date: 12/31/2030", "License Expiration Date: 01/15/2020", 1)
	verdict, err := svc.Review(context.Background(), testDocument("doc-3", text))
	require.NoError(t, err)

	assert.Equal(t, domain.StatusRejected, verdict.Status)

	var found bool
	for _, v := range verdict.Verdicts {
		if v.FieldID == "professional_license_expiration_date" {
			found = true
			assert.Equal(t, domain.VerdictFailedCrossCheck, v.State)
		}
	}
	assert.True(t, found, "no verdict for the expiration date field")
}

func TestReview_CompletenessInvariant(t *testing.T) {
	svc := newTestService(t)
	cat := svc.Catalog()

	// Even a document with nothing extractable yields one verdict per
	// declared field
	verdict, err := svc.Review(context.Background(), testDocument("doc-4", "CAQH Data Summary Provider but nothing else useful in this text"))
	require.NoError(t, err)

	require.Equal(t, cat.Len(), len(verdict.Verdicts))
	for i, v := range verdict.Verdicts {
		assert.Equal(t, cat.Fields[i].ID, v.FieldID, "verdicts must follow declaration order")
		require.NotNil(t, v.Field)
		assert.Equal(t, cat.Fields[i].ID, v.Field.FieldID)
	}
}

func TestReview_UnusableInputNeedsReview(t *testing.T) {
	svc := newTestService(t)

	for _, doc := range []*domain.Document{
		{ID: "no-pages", Filename: "x.pdf", SubmittedAt: time.Now()},
		{ID: "blank", Filename: "y.pdf", SubmittedAt: time.Now(), Pages: []domain.Page{{Text: "   "}}},
	} {
		verdict, err := svc.Review(context.Background(), doc)
		require.NoError(t, err)

		assert.Equal(t, domain.StatusNeedsReview, verdict.Status, doc.ID)
		require.NotEmpty(t, verdict.Reasons, doc.ID)
		assert.Contains(t, verdict.Reasons[0], "extraction fault", doc.ID)
		assert.Equal(t, svc.Catalog().Len(), len(verdict.Verdicts), doc.ID)
	}
}

func TestReview_Idempotent(t *testing.T) {
	svc := newTestService(t)
	doc := testDocument("doc-5", summaryText)

	first, err := svc.Review(context.Background(), doc)
	require.NoError(t, err)
	second, err := svc.Review(context.Background(), doc)
	require.NoError(t, err)

	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.Reasons, second.Reasons)
	assert.Equal(t, first.Verdicts, second.Verdicts)
	assert.Equal(t, first.Confidence, second.Confidence)
}

func TestReviewBatch_IndependentDocuments(t *testing.T) {
	svc := newTestService(t)

	docs := []domain.Document{
		*testDocument("batch-1", summaryText),
		*testDocument("batch-2", strings.Replace(summaryText, "Medicaid ID: AB12345678\n", "", 1)),
		*testDocument("batch-3", summaryText),
	}

	results := svc.ReviewBatch(context.Background(), docs)

	require.Len(t, results, 3)
	for i, r := range results {
		require.NotNil(t, r, "result %d", i)
		assert.Equal(t, docs[i].ID, r.DocumentID)
	}
	assert.Equal(t, domain.StatusApproved, results[0].Status)
	assert.Equal(t, domain.StatusRejected, results[1].Status)
	assert.Equal(t, domain.StatusApproved, results[2].Status)
}

package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/credflow/credflow-backend/internal/intake"
	"github.com/credflow/credflow-backend/internal/review/domain"
	"github.com/credflow/credflow-backend/internal/review/service"
	"github.com/credflow/credflow-backend/pkg/errors"
	"github.com/credflow/credflow-backend/pkg/httputil"
	"github.com/credflow/credflow-backend/pkg/logger"
)

// Handler exposes the review pipeline over HTTP
type Handler struct {
	service *service.Service
	gates   *intake.Gatekeeper
	log     *logger.Logger
}

// NewHandler creates a review handler. gates may be nil when intake
// checks are performed upstream.
func NewHandler(svc *service.Service, gates *intake.Gatekeeper, log *logger.Logger) *Handler {
	return &Handler{
		service: svc,
		gates:   gates,
		log:     log,
	}
}

// Routes registers the review endpoints
func (h *Handler) Routes(r chi.Router) {
	r.Post("/reviews", h.CreateReview)
	r.Get("/reviews/recent", h.ListRecent)
}

type pageRequest struct {
	Index          int    `json:"index"`
	Text           string `json:"text" validate:"required"`
	SectionOffsets []int  `json:"section_offsets,omitempty"`
}

type reviewRequest struct {
	DocumentID  string        `json:"document_id"`
	Filename    string        `json:"filename" validate:"required"`
	SubmittedAt time.Time     `json:"submitted_at"`
	Pages       []pageRequest `json:"pages" validate:"required,min=1,dive"`
}

// fieldResponse is one field in the API response. Value carries the
// normalized extraction, masked when the catalog marks the field as
// sensitive; raw values never leave the service for masked fields.
type fieldResponse struct {
	FieldID     string           `json:"field_id"`
	DisplayName string           `json:"display_name"`
	Value       *string          `json:"value"`
	Method      string           `json:"method"`
	Confidence  float64          `json:"confidence"`
	Location    *domain.Location `json:"location,omitempty"`
	State       string           `json:"state"`
	Reason      string           `json:"reason,omitempty"`
}

type reviewResponse struct {
	DocumentID string                   `json:"document_id"`
	Status     string                   `json:"status"`
	Reasons    []string                 `json:"reasons"`
	Fields     []fieldResponse          `json:"fields"`
	Confidence domain.ConfidenceSummary `json:"confidence"`
	ReviewedAt time.Time                `json:"reviewed_at"`
	DurationMs int64                    `json:"duration_ms"`
}

// CreateReview handles POST /api/v1/reviews: intake gates first, then
// the extract-validate-determine pipeline
func (h *Handler) CreateReview(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	doc := domain.Document{
		ID:          req.DocumentID,
		Filename:    req.Filename,
		SubmittedAt: req.SubmittedAt,
	}
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if doc.SubmittedAt.IsZero() {
		doc.SubmittedAt = time.Now().UTC()
	}
	for _, page := range req.Pages {
		doc.Pages = append(doc.Pages, domain.Page{
			Index:          page.Index,
			Text:           page.Text,
			SectionOffsets: page.SectionOffsets,
		})
	}

	if h.gates != nil {
		if err := h.gates.Admit(r.Context(), &doc); err != nil {
			httputil.Error(w, errors.BadRequest(err.Error()))
			return
		}
	}

	verdict, err := h.service.Review(r.Context(), &doc)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, h.toResponse(&doc, verdict))
}

// ListRecent handles GET /api/v1/reviews/recent
func (h *Handler) ListRecent(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			httputil.Error(w, errors.BadRequest("limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	runs, err := h.service.RecentRuns(r.Context(), limit)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]interface{}{"runs": runs})
}

// toResponse maps a verdict into the API shape, applying PHI masking at
// the boundary
func (h *Handler) toResponse(doc *domain.Document, verdict *domain.DocumentVerdict) reviewResponse {
	resp := reviewResponse{
		DocumentID: verdict.DocumentID,
		Status:     string(verdict.Status),
		Reasons:    verdict.Reasons,
		Confidence: verdict.Confidence,
		ReviewedAt: verdict.ReviewedAt,
		DurationMs: verdict.DurationMs,
	}
	if resp.Reasons == nil {
		resp.Reasons = []string{}
	}

	cat := h.service.Catalog()
	for _, v := range verdict.Verdicts {
		field := fieldResponse{
			FieldID:    v.FieldID,
			State:      string(v.State),
			Reason:     v.Reason,
			Method:     v.Field.Method,
			Confidence: v.Field.Confidence,
			Location:   v.Field.Location,
		}

		def, ok := cat.Field(v.FieldID)
		if ok {
			field.DisplayName = def.DisplayName
		}
		if v.Field.Found() {
			value := v.Field.Normalized
			if ok && def.Mask {
				value = domain.MaskValue(value)
			}
			field.Value = &value
		}

		resp.Fields = append(resp.Fields, field)
	}

	return resp
}

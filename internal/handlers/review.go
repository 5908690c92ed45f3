package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rakbuku/apiserver/internal/mq"
	"github.com/rakbuku/apiserver/internal/services"
	"github.com/rakbuku/apiserver/types"
)

// ReviewHandler provides HTTP handlers for reviews.
type ReviewHandler struct {
	reviewService *services.ReviewService
	events        *mq.Events
	logger        *slog.Logger
}

// NewReviewHandler constructs a handler with the provided dependencies.
// events may be nil when no broker is configured.
func NewReviewHandler(reviewService *services.ReviewService, events *mq.Events, logger *slog.Logger) *ReviewHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReviewHandler{
		reviewService: reviewService,
		events:        events,
		logger:        logger,
	}
}

// ReviewRouter registers review routes on the given router.
func ReviewRouter(r chi.Router, reviewService *services.ReviewService, events *mq.Events, logger *slog.Logger, authMiddleware func(http.Handler) http.Handler) {
	handler := NewReviewHandler(reviewService, events, logger)

	r.With(authMiddleware).Post("/", handler.CreateReview)
}

// CreateReview adds a review for a book. The author is always the
// authenticated user from the token claims; a user_id in the request body
// is ignored, so callers cannot attribute reviews to someone else.
func (h *ReviewHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	var req CreateReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	if req.Rating < 1 || req.Rating > 5 {
		writeError(w, http.StatusBadRequest, "rating must be between 1 and 5")
		return
	}

	claims, err := claimsFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	review, err := h.reviewService.Create(r.Context(), types.Review{
		BookID:  req.BookID,
		UserID:  claims.ID,
		Rating:  req.Rating,
		Comment: req.Comment,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to add review")
		return
	}

	// Best effort: a broker outage must not fail the write.
	if err := h.events.PublishReviewCreated(r.Context(), review); err != nil {
		h.logger.Warn("failed to publish review.created event",
			slog.Int("review_id", review.ID),
			slog.String("error", err.Error()),
		)
	}

	writeJSON(w, http.StatusCreated, review)
}

type CreateReviewRequest struct {
	BookID  int     `json:"book_id"`
	Rating  int     `json:"rating"`
	Comment *string `json:"comment"`
}

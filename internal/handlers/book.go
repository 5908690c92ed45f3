package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rakbuku/apiserver/internal/services"
	"github.com/rakbuku/apiserver/internal/store"
	"github.com/rakbuku/apiserver/types"
)

// BookHandler provides HTTP handlers for the book catalog.
type BookHandler struct {
	bookService *services.BookService
}

// NewBookHandler constructs a handler with the provided service.
func NewBookHandler(bookService *services.BookService) *BookHandler {
	return &BookHandler{bookService: bookService}
}

// BookRouter registers book routes on the given router. Reads are public;
// creation requires authentication.
func BookRouter(r chi.Router, bookService *services.BookService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewBookHandler(bookService)

	r.Get("/", handler.ListBooks)
	r.With(authMiddleware).Post("/", handler.CreateBook)
	r.Get("/{bookID}", handler.GetBookDetail)
}

// ListBooks returns every book with aggregated rating statistics, ordered
// by ascending id.
func (h *BookHandler) ListBooks(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.bookService.ListWithStats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	writeJSON(w, http.StatusOK, summaries)
}

// GetBookDetail returns the flat per-review rows for one book. The shape
// deliberately differs from the aggregated listing: one row per review,
// with null review fields when the book has none.
func (h *BookHandler) GetBookDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "bookID"))
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, "invalid book id")
		return
	}

	detail, err := h.bookService.ListReviewRows(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "book not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, detail)
}

// CreateBook adds a catalog entry. There is no duplicate-title check here;
// only the bulk importer de-duplicates by title.
func (h *BookHandler) CreateBook(w http.ResponseWriter, r *http.Request) {
	var req CreateBookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	req.Author = strings.TrimSpace(req.Author)
	if req.Title == "" || req.Author == "" {
		writeError(w, http.StatusBadRequest, "title and author are required")
		return
	}

	book, err := h.bookService.Create(r.Context(), types.Book{
		Title:       req.Title,
		Author:      req.Author,
		Description: req.Description,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, book)
}

type CreateBookRequest struct {
	Title       string  `json:"title"`
	Author      string  `json:"author"`
	Description *string `json:"description"`
}

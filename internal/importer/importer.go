package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/rakbuku/apiserver/internal/mq"
	"github.com/rakbuku/apiserver/internal/services"
	"github.com/rakbuku/apiserver/internal/store"
	"github.com/rakbuku/apiserver/types"
)

// Column names in a Goodreads library export.
const (
	columnTitle  = "Title"
	columnAuthor = "Author"
	columnRating = "My Rating"
	columnReview = "My Review"
)

// ArchiveUserEmail identifies the synthetic account that owns imported
// reviews. It is looked up or created on every run, so repeated imports
// reuse the same account.
const ArchiveUserEmail = "goodreads@import.com"

const (
	archiveUserName     = "Goodreads Archive"
	importedDescription = "Imported from Goodreads library export"
)

// Importer maps Goodreads export rows onto books and reviews. It is a
// one-shot offline process; rows are committed as they are processed and a
// mid-run failure leaves prior rows in place.
type Importer struct {
	users   *services.UserService
	books   *services.BookService
	reviews *services.ReviewService
	events  *mq.Events
	logger  *slog.Logger
}

// Result reports how many export rows were imported vs skipped.
type Result struct {
	Imported int
	Skipped  int
}

// New constructs an Importer. events may be nil.
func New(users *services.UserService, books *services.BookService, reviews *services.ReviewService, events *mq.Events, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{
		users:   users,
		books:   books,
		reviews: reviews,
		events:  events,
		logger:  logger,
	}
}

// Run reads the export CSV and imports every rated row. Rows with a zero,
// empty or unparseable My Rating are counted as skipped ("unread"). Books
// are de-duplicated by exact title; reviews are not de-duplicated, so
// re-running the import duplicates them.
func (imp *Importer) Run(ctx context.Context, r io.Reader) (Result, error) {
	var result Result

	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return result, fmt.Errorf("read csv header: %w", err)
	}
	cols, err := columnIndexes(header)
	if err != nil {
		return result, err
	}

	archiveUserID, err := imp.users.UpsertByEmail(ctx, types.User{
		Email: ArchiveUserEmail,
		Name:  archiveUserName,
	})
	if err != nil {
		return result, fmt.Errorf("ensure archive user: %w", err)
	}
	imp.logger.Info("archive user ready", slog.Int("user_id", archiveUserID))

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return result, fmt.Errorf("read csv record: %w", err)
		}

		title := strings.TrimSpace(record[cols.title])
		author := strings.TrimSpace(record[cols.author])
		rating, _ := strconv.Atoi(strings.TrimSpace(record[cols.rating]))
		note := record[cols.review]

		if rating < 1 {
			result.Skipped++
			continue
		}

		book, err := imp.ensureBook(ctx, title, author)
		if err != nil {
			return result, fmt.Errorf("ensure book %q: %w", title, err)
		}

		review, err := imp.reviews.Create(ctx, types.Review{
			BookID:  book.ID,
			UserID:  archiveUserID,
			Rating:  rating,
			Comment: &note,
		})
		if err != nil {
			return result, fmt.Errorf("insert review for %q: %w", title, err)
		}

		if err := imp.events.PublishReviewCreated(ctx, review); err != nil {
			imp.logger.Warn("failed to publish review.created event",
				slog.Int("review_id", review.ID),
				slog.String("error", err.Error()),
			)
		}

		imp.logger.Info("imported", slog.String("title", title), slog.Int("rating", rating))
		result.Imported++
	}

	return result, nil
}

// ensureBook reuses a book with the exact same title, inserting it when
// absent. Titles have no unique constraint, so concurrent imports could
// still race; the importer is a one-shot offline process, which keeps the
// lookup-then-insert acceptable here.
func (imp *Importer) ensureBook(ctx context.Context, title, author string) (types.Book, error) {
	book, err := imp.books.GetByTitle(ctx, title)
	if err == nil {
		return book, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return types.Book{}, err
	}

	description := importedDescription
	return imp.books.Create(ctx, types.Book{
		Title:       title,
		Author:      author,
		Description: &description,
	})
}

type columns struct {
	title  int
	author int
	rating int
	review int
}

func columnIndexes(header []string) (columns, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}

	cols := columns{title: -1, author: -1, rating: -1, review: -1}
	var missing []string
	lookup := func(name string, dst *int) {
		if i, ok := index[name]; ok {
			*dst = i
		} else {
			missing = append(missing, name)
		}
	}
	lookup(columnTitle, &cols.title)
	lookup(columnAuthor, &cols.author)
	lookup(columnRating, &cols.rating)
	lookup(columnReview, &cols.review)

	if len(missing) > 0 {
		return columns{}, fmt.Errorf("export is missing columns: %s", strings.Join(missing, ", "))
	}
	return cols, nil
}

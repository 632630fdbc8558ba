package admin

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"go.uber.org/zap"

	"github.com/mrlokans/booklook/internal/apperr"
	"github.com/mrlokans/booklook/internal/auth"
	"github.com/mrlokans/booklook/internal/catalog"
	"github.com/mrlokans/booklook/internal/database/analytics"
	"github.com/mrlokans/booklook/internal/entities"
	"github.com/mrlokans/booklook/internal/exporters"
	"github.com/mrlokans/booklook/internal/importers"
	"github.com/mrlokans/booklook/internal/log"
	"github.com/mrlokans/booklook/internal/reviews"
)

// BookBulkUpdate replaces the authors and/or genres of every listed book.
type BookBulkUpdate struct {
	BookIDs     []uint    `json:"book_ids"`
	AuthorNames *[]string `json:"author_names"`
	GenreNames  *[]string `json:"genre_names"`
}

func (s *Service) AnalyticsUsers(ctx context.Context) (*analytics.UserAnalytics, error) {
	out, err := s.analytics.Users(ctx, s.now())
	if err != nil {
		return nil, apperr.FromDB(err, "", "")
	}
	return out, nil
}

func (s *Service) AnalyticsBooks(ctx context.Context) (*analytics.BookAnalytics, error) {
	out, err := s.analytics.Books(ctx)
	if err != nil {
		return nil, apperr.FromDB(err, "", "")
	}
	return out, nil
}

func (s *Service) AnalyticsReviews(ctx context.Context) (*analytics.ReviewAnalytics, error) {
	out, err := s.analytics.Reviews(ctx, s.now())
	if err != nil {
		return nil, apperr.FromDB(err, "", "")
	}
	return out, nil
}

// BulkUpdateBooks applies the same author and genre lists to each book.
// Unknown or deleted books are skipped and not counted.
func (s *Service) BulkUpdateBooks(ctx context.Context, actorID uint, req BookBulkUpdate) (*BulkResult, error) {
	if err := validateIDs("book_ids", req.BookIDs); err != nil {
		return nil, err
	}
	if req.AuthorNames == nil && req.GenreNames == nil {
		return nil, apperr.Validation("NOTHING_TO_UPDATE", "either genre_names or author_names must be provided")
	}

	var updated int64
	for _, id := range req.BookIDs {
		_, err := s.catalog.Update(ctx, id, catalog.BookPatch{Authors: req.AuthorNames, Genres: req.GenreNames})
		if apperr.Is(err, "BOOK_NOT_FOUND") {
			continue
		}
		if err != nil {
			return nil, err
		}
		updated++
	}

	s.audit.LogAdmin(ctx, actorID, ActionBookBulkUpdate, entityBook, 0,
		fmt.Sprintf("updated %d of %d books", updated, len(req.BookIDs)), map[string]any{"book_ids": req.BookIDs})
	return &BulkResult{Affected: updated, TotalRequested: len(req.BookIDs)}, nil
}

func (s *Service) ExportUsersCSV(ctx context.Context, w io.Writer) (exporters.ExportResult, error) {
	return exporters.NewCSVExporter(s.db).Users(ctx, w)
}

func (s *Service) ExportBooksCSV(ctx context.Context, w io.Writer) (exporters.ExportResult, error) {
	return exporters.NewCSVExporter(s.db).Books(ctx, w)
}

func (s *Service) ExportReviewsCSV(ctx context.Context, w io.Writer) (exporters.ExportResult, error) {
	return exporters.NewCSVExporter(s.db).Reviews(ctx, w)
}

// ImportBooksCSV creates books from an uploaded CSV. Rows with a known ISBN
// are skipped.
func (s *Service) ImportBooksCSV(ctx context.Context, actorID uint, r io.Reader) (*importers.Result, error) {
	result, err := importers.NewPipeline(s.catalog).ImportBooksCSV(ctx, r)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, csvError(err)
	}
	s.logImport(ctx, actorID, ActionBookImport, entityBook, result)
	return &result, nil
}

// ImportUsersCSV creates accounts from an uploaded CSV. Every row needs an
// Email and a Password; accounts whose email is taken are skipped.
func (s *Service) ImportUsersCSV(ctx context.Context, actorID uint, r io.Reader) (*importers.Result, error) {
	rows, lineErrors, err := importers.ReadCSV(r, "Email", "Password")
	if err != nil {
		return nil, csvError(err)
	}

	result := importers.Result{Errors: lineErrors, Failed: len(lineErrors)}
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		skipped, err := s.importUser(ctx, row)
		result.Tally(row.Line, row.Get("Email"), skipped, err)
	}

	s.logImport(ctx, actorID, ActionUserImport, entityUser, result)
	return &result, nil
}

func (s *Service) importUser(ctx context.Context, row importers.CSVRow) (bool, error) {
	isAdmin, err := importers.ParseBool(row.Get("Is Admin"), false)
	if err != nil {
		return false, err
	}
	isActive, err := importers.ParseBool(row.Get("Is Active"), true)
	if err != nil {
		return false, err
	}

	user, err := s.auth.CreateUser(ctx, auth.RegisterInput{
		Email:     row.Get("Email"),
		Password:  row.Get("Password"),
		FirstName: row.Get("First Name"),
		LastName:  row.Get("Last Name"),
	}, isAdmin)
	if apperr.Is(err, "EMAIL_EXISTS") {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	if !isActive {
		if err := s.users.Update(ctx, user.ID, map[string]any{"is_active": false}); err != nil {
			return false, err
		}
	}
	return false, nil
}

// ImportReviewsCSV attaches reviews to existing users and books. The book is
// found by Book ISBN, or by Book ID when the ISBN cell is empty. A second
// review of the same book by the same user is skipped.
func (s *Service) ImportReviewsCSV(ctx context.Context, actorID uint, r io.Reader) (*importers.Result, error) {
	rows, lineErrors, err := importers.ReadCSV(r, "User Email", "Rating")
	if err != nil {
		return nil, csvError(err)
	}

	result := importers.Result{Errors: lineErrors, Failed: len(lineErrors)}
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		skipped, err := s.importReview(ctx, row)
		result.Tally(row.Line, row.Get("User Email"), skipped, err)
	}

	s.logImport(ctx, actorID, ActionReviewImport, entityReview, result)
	return &result, nil
}

func (s *Service) importReview(ctx context.Context, row importers.CSVRow) (bool, error) {
	rating, err := importers.ParseRating(row.Get("Rating"))
	if err != nil {
		return false, err
	}
	flagged, err := importers.ParseBool(row.Get("Is Flagged"), false)
	if err != nil {
		return false, err
	}

	user, err := s.users.GetByEmail(ctx, row.Get("User Email"))
	if err != nil {
		return false, apperr.FromDB(err, "USER_NOT_FOUND", "")
	}
	book, err := s.lookupBook(ctx, row)
	if err != nil {
		return false, err
	}

	in := reviews.Input{Rating: rating}
	if title := row.Get("Title"); title != "" {
		in.Title = &title
	}
	if content := row.Get("Content"); content != "" {
		in.Content = &content
	}
	review, err := s.reviews.Create(ctx, user.ID, book.ID, in)
	if apperr.Is(err, "DUPLICATE_REVIEW") {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	if flagged {
		if _, err := s.reviewDB.SetFlagged(ctx, []uint{review.ID}, true); err != nil {
			return false, err
		}
	}
	return false, nil
}

func (s *Service) lookupBook(ctx context.Context, row importers.CSVRow) (*entities.Book, error) {
	if isbn := row.Get("Book ISBN"); isbn != "" {
		book, err := s.books.GetByISBN(ctx, isbn)
		if err != nil {
			return nil, apperr.FromDB(err, "BOOK_NOT_FOUND", "")
		}
		return book, nil
	}
	id, err := strconv.ParseUint(row.Get("Book ID"), 10, 64)
	if err != nil {
		return nil, apperr.Validation("BOOK_REFERENCE_REQUIRED", "row needs a Book ISBN or a numeric Book ID")
	}
	book, err := s.books.GetByID(ctx, uint(id))
	if err != nil {
		return nil, apperr.FromDB(err, "BOOK_NOT_FOUND", "")
	}
	return book, nil
}

func (s *Service) logImport(ctx context.Context, actorID uint, action, entity string, result importers.Result) {
	s.audit.LogAdmin(ctx, actorID, action, entity, 0,
		fmt.Sprintf("imported %d, skipped %d, failed %d", result.Imported, result.Skipped, result.Failed),
		map[string]any{"imported": result.Imported, "skipped": result.Skipped, "failed": result.Failed})
	log.Info("CSV import finished",
		zap.String("action", action),
		zap.Uint("actor_id", actorID),
		zap.Int("imported", result.Imported),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed))
}

// csvError reports an unreadable upload or a missing header as a bad request.
func csvError(err error) error {
	return apperr.Validation("INVALID_CSV", err.Error())
}

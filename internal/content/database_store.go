package content

import (
	"context"
	stderrors "errors"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/booklook/internal/apperr"
	"github.com/mrlokans/booklook/internal/entities"
)

// DatabaseStore keeps text in the book_contents table, keyed by book id.
type DatabaseStore struct {
	db *gorm.DB
}

func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	return &DatabaseStore{db: db}
}

func (s *DatabaseStore) Backend() string { return "database" }

func (s *DatabaseStore) Save(ctx context.Context, bookID uint, text string) (string, error) {
	row := entities.BookContent{
		BookID:    bookID,
		Text:      text,
		WordCount: CountWords(text),
		UpdatedAt: time.Now(),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "book_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"text", "word_count", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return "", apperr.Wrap(err, apperr.KindUnavailable, "CONTENT_UNAVAILABLE", "failed to store book content")
	}
	return strconv.FormatUint(uint64(bookID), 10), nil
}

func (s *DatabaseStore) Load(ctx context.Context, key string) (string, error) {
	bookID, err := strconv.ParseUint(key, 10, 64)
	if err != nil {
		return "", errors.Wrapf(ErrContentNotFound, "invalid content key %q", key)
	}

	var row entities.BookContent
	err = s.db.WithContext(ctx).Where("book_id = ?", bookID).First(&row).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrContentNotFound
	}
	if err != nil {
		return "", apperr.Wrap(err, apperr.KindUnavailable, "CONTENT_UNAVAILABLE", "failed to load book content")
	}
	return row.Text, nil
}

func (s *DatabaseStore) Delete(ctx context.Context, key string) error {
	bookID, err := strconv.ParseUint(key, 10, 64)
	if err != nil {
		return nil
	}
	return s.db.WithContext(ctx).Where("book_id = ?", bookID).Delete(&entities.BookContent{}).Error
}

package entities

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Book struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Title           string     `gorm:"index;size:500;not null" json:"title"`
	ISBN            *string    `gorm:"uniqueIndex;size:20" json:"isbn,omitempty"` // NULL for books without one
	Description     string     `gorm:"type:text" json:"description,omitempty"`
	ImageURL        string     `gorm:"size:2048" json:"image_url,omitempty"`
	Publisher       string     `gorm:"size:256" json:"publisher,omitempty"`
	Language        string     `gorm:"size:10;default:'en'" json:"language"`
	PublicationDate *time.Time `json:"publication_date,omitempty"`

	// Denormalized from Authors and Genres, rebuilt whenever those change.
	AuthorNames datatypes.JSONSlice[string] `json:"authors"`
	GenreNames  datatypes.JSONSlice[string] `json:"genres"`

	WordCount     int     `gorm:"default:0" json:"word_count"`
	TotalPages    int     `gorm:"default:0" json:"total_pages"` // at the default words-per-page
	AverageRating float64 `gorm:"index;default:0" json:"average_rating"`
	ReviewCount   int     `gorm:"index;default:0" json:"review_count"`
	ContentKey    string  `gorm:"size:512" json:"-"`

	Authors []Author `gorm:"many2many:book_authors;" json:"-"`
	Genres  []Genre  `gorm:"many2many:book_genres;" json:"-"`

	CreatedAt time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Book) TableName() string {
	return "books"
}

// HasContent reports whether text has been stored for the book.
func (b *Book) HasContent() bool {
	return b.ContentKey != "" && b.WordCount > 0
}

type Author struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:256;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func (Author) TableName() string {
	return "authors"
}

type Genre struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:100;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func (Genre) TableName() string {
	return "genres"
}

// BookContent holds the full text of a book for the database content backend.
type BookContent struct {
	BookID    uint      `gorm:"primaryKey;autoIncrement:false" json:"book_id"`
	Text      string    `gorm:"type:text" json:"-"`
	WordCount int       `json:"word_count"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (BookContent) TableName() string {
	return "book_contents"
}

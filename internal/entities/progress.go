package entities

import "time"

// ReadingProgress is the last page a user viewed in a book. There is at most
// one row per (user, book).
type ReadingProgress struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;uniqueIndex:idx_progress_user_book" json:"user_id"`
	BookID      uint      `gorm:"not null;index;uniqueIndex:idx_progress_user_book" json:"book_id"`
	CurrentPage int       `gorm:"not null;default:1" json:"current_page"`
	LastReadAt  time.Time `gorm:"index" json:"last_read_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Book *Book `gorm:"foreignKey:BookID" json:"book,omitempty"`
}

func (ReadingProgress) TableName() string {
	return "reading_progress"
}

package entities

import "time"

const (
	MinRating = 1
	MaxRating = 5
)

type Review struct {
	ID        uint    `gorm:"primaryKey" json:"id"`
	UserID    uint    `gorm:"not null;uniqueIndex:idx_review_user_book" json:"user_id"`
	BookID    uint    `gorm:"not null;index;uniqueIndex:idx_review_user_book" json:"book_id"`
	Rating    int     `gorm:"not null" json:"rating"`
	Title     *string `gorm:"size:200" json:"title,omitempty"`
	Content   *string `gorm:"type:text" json:"content,omitempty"`
	IsFlagged bool    `gorm:"index;default:false" json:"is_flagged"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Book *Book `gorm:"foreignKey:BookID" json:"book,omitempty"`
}

func (Review) TableName() string {
	return "reviews"
}

// ValidRating reports whether r is within the accepted star range.
func ValidRating(r int) bool {
	return r >= MinRating && r <= MaxRating
}

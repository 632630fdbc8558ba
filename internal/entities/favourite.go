package entities

import "time"

type Favourite struct {
	UserID    uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	BookID    uint      `gorm:"primaryKey;autoIncrement:false;index" json:"book_id"`
	CreatedAt time.Time `json:"created_at"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Book *Book `gorm:"foreignKey:BookID" json:"book,omitempty"`
}

func (Favourite) TableName() string {
	return "favourites"
}

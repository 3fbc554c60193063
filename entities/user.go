package entities

import (
	"github.com/google/uuid"
)

type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	Username  string    `gorm:"not null" json:"username"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Password  string    `gorm:"not null" json:"-"`

	Timestamp
}

type Subscription struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	UserID   uuid.UUID `gorm:"uniqueIndex:idx_subscriptions_user_author" json:"user_id"`
	AuthorID uuid.UUID `gorm:"uniqueIndex:idx_subscriptions_user_author" json:"author_id"`

	User   *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Author *User `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE"`
	Timestamp
}

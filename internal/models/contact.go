package models

import "time"

// Contact is the last e-mail address the identity provider reported for a user.
type Contact struct {
	UserID    string    `gorm:"primaryKey;size:64" json:"user_id"`
	Email     string    `gorm:"type:varchar(255);not null" json:"email"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Contact) TableName() string {
	return "contacts"
}

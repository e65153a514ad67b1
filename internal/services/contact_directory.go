package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"SafeDeal/internal/models"
)

// ContactDirectory remembers the e-mail address the identity provider last
// reported for each user.
type ContactDirectory struct {
	db *gorm.DB
}

func NewContactDirectory(db *gorm.DB) *ContactDirectory {
	return &ContactDirectory{db: db}
}

func (d *ContactDirectory) Remember(ctx context.Context, userID, email string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	if userID == "" || email == "" {
		return nil
	}
	contact := models.Contact{UserID: userID, Email: email, UpdatedAt: time.Now()}
	err := d.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "updated_at"}),
	}).Create(&contact).Error
	if err != nil {
		return fmt.Errorf("remember contact %s: %w", userID, err)
	}
	return nil
}

func (d *ContactDirectory) Lookup(ctx context.Context, userID string) (string, error) {
	var contact models.Contact
	if err := d.db.WithContext(ctx).First(&contact, "user_id = ?", userID).Error; err != nil {
		return "", lookupErr(err, "contact", userID)
	}
	return contact.Email, nil
}

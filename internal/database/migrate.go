package database

import (
	"fmt"
	"log"

	"gorm.io/gorm"

	"SafeDeal/internal/models"
)

// oneAcceptedOfferIndex backs the conditional accept: even a racing writer
// cannot leave two accepted offers on one buyer request.
const oneAcceptedOfferIndex = `CREATE UNIQUE INDEX IF NOT EXISTS idx_offers_one_accepted
ON offers (buyer_request_id) WHERE status = 'accepted'`

// paymentReferenceIndex keeps one verified payment from funding two accounts.
// Unfunded accounts carry an empty reference and are left out.
const paymentReferenceIndex = `CREATE UNIQUE INDEX IF NOT EXISTS idx_escrow_accounts_payment_reference
ON escrow_accounts (payment_reference) WHERE payment_reference <> ''`

func Migrate(db *gorm.DB) error {
	log.Println("Running database migrations...")

	err := db.AutoMigrate(
		&models.BuyerRequest{},
		&models.Offer{},
		&models.EscrowAccount{},
		&models.Milestone{},
		&models.Notification{},
		&models.Contact{},
	)
	if err != nil {
		log.Printf("Error migrating database: %v", err)
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	if err := db.Exec(oneAcceptedOfferIndex).Error; err != nil {
		return fmt.Errorf("failed to create accepted offer index: %w", err)
	}
	if err := db.Exec(paymentReferenceIndex).Error; err != nil {
		return fmt.Errorf("failed to create payment reference index: %w", err)
	}

	log.Println("Database migration completed successfully")
	return nil
}

package database_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"SafeDeal/internal/database"
	"SafeDeal/internal/database/databasetest"
	"SafeDeal/internal/models"
)

func TestSQLiteSourceSelection(t *testing.T) {
	db, err := database.Open("sqlite:file:selection?mode=memory&cache=shared", false)
	require.NoError(t, err)
	defer database.Close(db)
	assert.Equal(t, "sqlite", db.Dialector.Name())
}

func TestMigrateIsRepeatable(t *testing.T) {
	db := databasetest.Open(t)
	require.NoError(t, database.Migrate(db))
}

func TestOneAcceptedOfferPerRequest(t *testing.T) {
	db := databasetest.Open(t)

	req := models.BuyerRequest{BuyerID: "buyer", Category: "design", Title: "Logo", BudgetMin: decimal.NewFromInt(1), BudgetMax: decimal.NewFromInt(2)}
	require.NoError(t, db.Create(&req).Error)

	first := models.Offer{BuyerRequestID: req.ID, SellerID: "s1", Title: "a", Price: decimal.NewFromInt(1), Status: models.OfferAccepted}
	require.NoError(t, db.Create(&first).Error)

	second := models.Offer{BuyerRequestID: req.ID, SellerID: "s2", Title: "b", Price: decimal.NewFromInt(2), Status: models.OfferAccepted}
	err := db.Create(&second).Error
	require.Error(t, err)
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	// any number of rejected siblings is fine
	for _, seller := range []string{"s3", "s4"} {
		o := models.Offer{BuyerRequestID: req.ID, SellerID: seller, Title: "c", Price: decimal.NewFromInt(1), Status: models.OfferRejected}
		require.NoError(t, db.Create(&o).Error)
	}
}

func TestDeletingRequestCascadesToOffers(t *testing.T) {
	db := databasetest.Open(t)

	req := models.BuyerRequest{BuyerID: "buyer", Category: "design", Title: "Logo", BudgetMin: decimal.NewFromInt(1), BudgetMax: decimal.NewFromInt(2)}
	require.NoError(t, db.Create(&req).Error)
	offer := models.Offer{BuyerRequestID: req.ID, SellerID: "s1", Title: "a", Price: decimal.NewFromInt(1)}
	require.NoError(t, db.Create(&offer).Error)

	require.NoError(t, db.Delete(&models.BuyerRequest{}, "id = ?", req.ID).Error)

	var count int64
	require.NoError(t, db.Model(&models.Offer{}).Where("buyer_request_id = ?", req.ID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestPaymentReferenceFundsOneAccount(t *testing.T) {
	db := databasetest.Open(t)

	account := func(offerID, reference string) models.EscrowAccount {
		return models.EscrowAccount{OfferID: offerID, BuyerID: "buyer", SellerID: "seller",
			TotalAmount: decimal.NewFromInt(100), PaymentReference: reference}
	}

	// unfunded accounts share the empty reference
	for _, offerID := range []string{"o1", "o2"} {
		a := account(offerID, "")
		require.NoError(t, db.Create(&a).Error)
	}

	funded := account("o3", "ref-1")
	require.NoError(t, db.Create(&funded).Error)
	reused := account("o4", "ref-1")
	err := db.Create(&reused).Error
	require.Error(t, err)
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

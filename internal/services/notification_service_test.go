package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SafeDeal/internal/database/databasetest"
	"SafeDeal/internal/models"
)

func TestNotificationServiceStoresNotices(t *testing.T) {
	svc := NewNotificationService(databasetest.Open(t))
	ctx := context.Background()

	require.NoError(t, svc.Notify(ctx, Notice{
		UserID:  "seller-1",
		Type:    models.NotificationOfferAccepted,
		Title:   "Offer Accepted",
		Message: "Your offer was accepted",
		Payload: map[string]any{"offer_id": "o1"},
	}))
	require.NoError(t, svc.Notify(ctx, Notice{UserID: "seller-1", Type: models.NotificationEscrowCreated, Title: "t", Message: "m"}))
	require.NoError(t, svc.Notify(ctx, Notice{UserID: "buyer-1", Type: models.NotificationEscrowCreated, Title: "t", Message: "m"}))

	list, unread, err := svc.List(ctx, "seller-1", NotificationQuery{})
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Equal(t, int64(2), unread)

	var accepted *models.Notification
	for i := range list {
		if list[i].Type == models.NotificationOfferAccepted {
			accepted = &list[i]
		}
	}
	require.NotNil(t, accepted)
	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(accepted.Data), &payload))
	assert.Equal(t, "o1", payload["offer_id"])
}

func TestNotificationServiceReadAndDelete(t *testing.T) {
	svc := NewNotificationService(databasetest.Open(t))
	ctx := context.Background()

	first, err := svc.CreateNotification(ctx, "u1", models.NotificationFundsReleased, "Funds Released", "45.00 released", nil)
	require.NoError(t, err)
	_, err = svc.CreateNotification(ctx, "u1", models.NotificationFundsReleased, "Funds Released", "60.00 released", nil)
	require.NoError(t, err)

	_, err = svc.MarkAsRead(ctx, first.ID, "u2")
	assert.True(t, IsNotFound(err))

	read, err := svc.MarkAsRead(ctx, first.ID, "u1")
	require.NoError(t, err)
	assert.True(t, read.IsRead)
	assert.NotNil(t, read.ReadAt)

	count, err := svc.UnreadCount(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	unreadOnly, _, err := svc.List(ctx, "u1", NotificationQuery{UnreadOnly: true})
	require.NoError(t, err)
	assert.Len(t, unreadOnly, 1)

	require.NoError(t, svc.DeleteAllRead(ctx, "u1"))
	all, _, err := svc.List(ctx, "u1", NotificationQuery{})
	require.NoError(t, err)
	require.Len(t, all, 1)

	require.NoError(t, svc.MarkAllAsRead(ctx, "u1"))
	count, err = svc.UnreadCount(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, count)

	require.NoError(t, svc.Delete(ctx, all[0].ID, "u1"))
	assert.True(t, IsNotFound(svc.Delete(ctx, all[0].ID, "u1")))
}

package services

import (
	"context"
	"errors"
	"testing"

	"github.com/resend/resend-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SafeDeal/internal/database/databasetest"
	"SafeDeal/internal/models"
)

type fakeSender struct {
	sent []*resend.SendEmailRequest
	err  error
}

func (f *fakeSender) Send(params *resend.SendEmailRequest) (*resend.SendEmailResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, params)
	return &resend.SendEmailResponse{Id: "email-1"}, nil
}

func TestEmailServiceSendsToRememberedContact(t *testing.T) {
	contacts := NewContactDirectory(databasetest.Open(t))
	ctx := context.Background()
	require.NoError(t, contacts.Remember(ctx, "seller-1", " Seller@Example.com "))

	sender := &fakeSender{}
	svc := &EmailService{Sender: sender, From: "noreply@safedeal.test", Contacts: contacts}

	err := svc.Notify(ctx, Notice{
		UserID:  "seller-1",
		Type:    models.NotificationOfferAccepted,
		Title:   "Offer Accepted",
		Message: `Your offer on "Logo <v2>" was accepted`,
	})
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, []string{"seller@example.com"}, sender.sent[0].To)
	assert.Equal(t, "noreply@safedeal.test", sender.sent[0].From)
	assert.Equal(t, "Offer Accepted", sender.sent[0].Subject)
	assert.Contains(t, sender.sent[0].Html, "Logo &lt;v2&gt;")
}

func TestEmailServiceErrors(t *testing.T) {
	contacts := NewContactDirectory(databasetest.Open(t))
	ctx := context.Background()

	sender := &fakeSender{}
	svc := &EmailService{Sender: sender, From: "noreply@safedeal.test", Contacts: contacts}
	err := svc.Notify(ctx, Notice{UserID: "unknown", Title: "x"})
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Empty(t, sender.sent)

	require.NoError(t, contacts.Remember(ctx, "buyer-1", "buyer@example.com"))
	svc.Sender = &fakeSender{err: errors.New("rate limited")}
	err = svc.Notify(ctx, Notice{UserID: "buyer-1", Title: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestContactDirectoryKeepsLatestEmail(t *testing.T) {
	contacts := NewContactDirectory(databasetest.Open(t))
	ctx := context.Background()

	require.NoError(t, contacts.Remember(ctx, "u1", "old@example.com"))
	require.NoError(t, contacts.Remember(ctx, "u1", "new@example.com"))
	require.NoError(t, contacts.Remember(ctx, "", "ignored@example.com"))

	email, err := contacts.Lookup(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", email)
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "❌ EMPTY", maskAPIKey(""))
	assert.Equal(t, "***", maskAPIKey("short"))
	assert.Equal(t, "re_1****wxyz", maskAPIKey("re_1234567890wxyz"))
}

package services

import (
	"context"
	"fmt"
	"html"
	"log"

	"github.com/resend/resend-go/v2"
)

// EmailSender is the slice of the Resend client the e-mail channel uses.
type EmailSender interface {
	Send(params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// EmailService mirrors notices to the recipient's inbox.
type EmailService struct {
	Sender   EmailSender
	From     string
	Contacts *ContactDirectory
}

func NewEmailService(apiKey, fromEmail string, contacts *ContactDirectory) *EmailService {
	log.Printf("📧 Email Service Initialized (Resend)")
	log.Printf("   - From Email: %s", fromEmail)
	log.Printf("   - API Key: %s", maskAPIKey(apiKey))

	if apiKey == "" {
		log.Printf("⚠️  WARNING: RESEND_API_KEY is empty!")
	}

	client := resend.NewClient(apiKey)

	return &EmailService{
		Sender:   client.Emails,
		From:     fromEmail,
		Contacts: contacts,
	}
}

// Helper function to mask API key for logging
func maskAPIKey(key string) string {
	if len(key) == 0 {
		return "❌ EMPTY"
	}
	if len(key) < 8 {
		return "***"
	}
	return key[:4] + "****" + key[len(key)-4:]
}

// Notify implements Notifier.
func (es *EmailService) Notify(ctx context.Context, n Notice) error {
	to, err := es.Contacts.Lookup(ctx, n.UserID)
	if err != nil {
		return fmt.Errorf("resolve e-mail for %s: %w", n.UserID, err)
	}

	params := &resend.SendEmailRequest{
		From:    es.From,
		To:      []string{to},
		Subject: n.Title,
		Html:    renderNotice(n),
	}

	sent, err := es.Sender.Send(params)
	if err != nil {
		log.Printf("❌ Resend API Error: %v", err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	log.Printf("✅ Email sent successfully to: %s (ID: %s)", to, sent.Id)
	return nil
}

func renderNotice(n Notice) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .footer { margin-top: 30px; font-size: 12px; color: #666; }
    </style>
</head>
<body>
    <div class="container">
        <h2>%s</h2>
        <p>%s</p>
        <div class="footer">
            <p>This is an automated message, please do not reply.</p>
        </div>
    </div>
</body>
</html>`, html.EscapeString(n.Title), html.EscapeString(n.Message))
}

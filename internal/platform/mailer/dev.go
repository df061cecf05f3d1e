package mailer

import (
	"time"

	"github.com/willow-wellness/bookings-api/pkg/logger"
)

// DevMailer logs emails instead of sending them. Used whenever
// EMAIL_DEV_MODE is set or no MailerSend key is configured.
type DevMailer struct{}

func NewDevMailer() *DevMailer {
	return &DevMailer{}
}

func (d *DevMailer) Send(toEmail, toName, subject, text, html string) (string, error) {
	logger.Info("[DEV MAIL]",
		"to", toEmail,
		"name", toName,
		"subject", subject,
		"text", text,
	)
	return "dev", nil
}

func (d *DevMailer) SendBookingConfirmation(toEmail, toName, sessionLabel string, start time.Time) error {
	logger.Info("[DEV MAIL] Booking confirmation",
		"to", toEmail,
		"name", toName,
		"session", sessionLabel,
		"start", start.UTC().Format(time.RFC3339),
	)
	return nil
}

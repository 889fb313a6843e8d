package notification

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/gomail.v2"
)

// AlertMailer emails an operator when a scheduled job run fails. It is
// optional: with no SMTP or recipient configured every call is a no-op, and
// failures still land in the log.
type AlertMailer struct {
	host     string
	port     int
	username string
	password string
	from     string
	to       string
}

func NewAlertMailerFromEnv() *AlertMailer {
	host := os.Getenv("SMTP_HOST")
	to := os.Getenv("ALERT_EMAIL_TO")
	if host == "" || to == "" {
		return nil
	}

	port, err := strconv.Atoi(os.Getenv("SMTP_PORT"))
	if err != nil {
		port = 587
	}

	from := os.Getenv("SMTP_FROM")
	if from == "" {
		from = os.Getenv("SMTP_USERNAME")
	}

	return &AlertMailer{
		host:     host,
		port:     port,
		username: os.Getenv("SMTP_USERNAME"),
		password: os.Getenv("SMTP_PASSWORD"),
		from:     from,
		to:       to,
	}
}

func (m *AlertMailer) JobFailed(job string, runErr error) {
	if m == nil {
		return
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", m.to)
	msg.SetHeader("Subject", fmt.Sprintf("[CineTrack] %s job failed", job))
	msg.SetBody("text/plain", fmt.Sprintf(
		"The scheduled %s job failed at %s.\n\nError: %v\n\nFailed queue entries can be retried from the admin dashboard.",
		job, time.Now().Format(time.RFC1123), runErr,
	))

	dialer := gomail.NewDialer(m.host, m.port, m.username, m.password)
	if err := dialer.DialAndSend(msg); err != nil {
		log.Printf("alert email for %s job failed: %v", job, err)
	}
}

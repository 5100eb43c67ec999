package email

import (
	"context"
	"fmt"
	"log"
	"net/smtp"
	"strings"

	"github.com/Domenick1991/airline-ticketing/config"
	"github.com/Domenick1991/airline-ticketing/internal/domain"
)

var subjects = map[domain.NotificationType]string{
	domain.NotificationBookingConfirmed: "Your booking is confirmed",
	domain.NotificationMilesEarned:      "You earned miles",
	domain.NotificationMilesUpdated:     "Your miles balance was updated",
	domain.NotificationWelcome:          "Welcome to the loyalty program",
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Sender delivers notifications by SMTP. Without an SMTP host it only logs.
type Sender struct {
	cfg  config.SMTPConfig
	send sendFunc
}

func NewSender(cfg config.SMTPConfig) *Sender {
	return &Sender{cfg: cfg, send: smtp.SendMail}
}

func (s *Sender) Send(ctx context.Context, n domain.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.cfg.Host == "" {
		log.Printf("email: to=%s type=%s message=%q", n.Email, n.Type, n.Message)
		return nil
	}

	from := s.cfg.From
	if from == "" {
		from = s.cfg.Username
	}
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	if err := s.send(addr, auth, from, []string{n.Email}, buildMessage(from, n)); err != nil {
		return fmt.Errorf("send email to %s: %w", n.Email, err)
	}
	return nil
}

func buildMessage(from string, n domain.Notification) []byte {
	subject, ok := subjects[n.Type]
	if !ok {
		subject = "Airline notification"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", n.Email)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	fmt.Fprintf(&b, "Message-ID: <%s@airline-ticketing>\r\n", n.ID)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(n.Message)
	b.WriteString("\r\n")
	return []byte(b.String())
}

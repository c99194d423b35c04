package email

import (
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/Dan9191/bank-portal/internal/config"
	"github.com/jordan-wright/email"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Notifier delivers account notifications to profile owners
type Notifier interface {
	SendAccountStatusChange(to, name, status string) error
	SendBalanceAdjustment(to, name, accountNumber string, newBalance decimal.Decimal, description string) error
}

// sendFunc matches (*email.Email).Send so tests can capture messages
type sendFunc func(e *email.Email, addr string, auth smtp.Auth) error

// Sender handles sending emails via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
	send   sendFunc
	now    func() time.Time
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
		send: func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		},
		now: time.Now,
	}
}

// SendAccountStatusChange tells the owner their portal access changed
func (s *Sender) SendAccountStatusChange(to, name, status string) error {
	e := s.newEmail(to, "Your account status has changed")

	body := fmt.Sprintf("Dear %s,\n\n", greeting(name))
	switch status {
	case "active":
		body += "Your account has been approved and is now active.\nYou can sign in and use all portal features.\n"
	case "locked", "suspended":
		body += fmt.Sprintf("Your account has been %s.\nPlease contact support if you believe this is a mistake.\n", status)
	default:
		body += fmt.Sprintf("Your account status is now: %s.\n", status)
	}
	body += "\nBest regards,\nBank Portal"
	e.Text = []byte(body)

	return s.deliver(e, to)
}

// SendBalanceAdjustment tells the owner an administrator set a new balance
func (s *Sender) SendBalanceAdjustment(to, name, accountNumber string, newBalance decimal.Decimal, description string) error {
	e := s.newEmail(to, "Balance Adjustment Notification")

	body := fmt.Sprintf("Dear %s,\n\n", greeting(name))
	body += fmt.Sprintf(
		"The balance of your account %s has been adjusted.\n"+
			"Reason: %s\n"+
			"Adjustment time: %s\n"+
			"Current balance: %s\n",
		maskAccount(accountNumber), description, s.now().Format("2006-01-02 15:04:05"), newBalance.StringFixed(2),
	)
	body += "\nBest regards,\nBank Portal"
	e.Text = []byte(body)

	return s.deliver(e, to)
}

func (s *Sender) newEmail(to, subject string) *email.Email {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{to}
	e.Subject = subject
	return e
}

func (s *Sender) deliver(e *email.Email, to string) error {
	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	var auth smtp.Auth
	if s.cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	}
	if err := s.send(e, addr, auth); err != nil {
		s.logger.Errorf("Failed to send email to %s: %v", to, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Email sent to %s: %s", to, e.Subject)
	return nil
}

// LogNotifier records notifications in the log when SMTP is not configured
type LogNotifier struct {
	logger *logrus.Logger
}

// NewLogNotifier creates a notifier that only logs
func NewLogNotifier(logger *logrus.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendAccountStatusChange(to, _, status string) error {
	n.logger.WithFields(logrus.Fields{"to": to, "status": status}).Info("Account status notification (smtp disabled)")
	return nil
}

func (n *LogNotifier) SendBalanceAdjustment(to, _, accountNumber string, newBalance decimal.Decimal, _ string) error {
	n.logger.WithFields(logrus.Fields{
		"to":          to,
		"account":     maskAccount(accountNumber),
		"new_balance": newBalance.StringFixed(2),
	}).Info("Balance adjustment notification (smtp disabled)")
	return nil
}

// New picks the SMTP sender when a host is configured
func New(cfg *config.Config, logger *logrus.Logger) Notifier {
	if cfg.SMTPEnabled() {
		return NewSender(cfg, logger)
	}
	return NewLogNotifier(logger)
}

func greeting(name string) string {
	if strings.TrimSpace(name) == "" {
		return "Customer"
	}
	return name
}

func maskAccount(number string) string {
	if len(number) <= 4 {
		return number
	}
	return "****" + number[len(number)-4:]
}

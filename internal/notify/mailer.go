package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/ayo6706/prepaid-recharge/internal/currency"
	"github.com/ayo6706/prepaid-recharge/internal/domain"
	"github.com/ayo6706/prepaid-recharge/internal/job"
	"go.uber.org/zap"
)

// Mailer delivers a single plain-text message.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPMailer sends mail through a plain SMTP relay.
type SMTPMailer struct {
	addr string
	auth smtp.Auth
	from string
}

// NewSMTPMailer creates a mailer for the given relay. username may be empty
// for unauthenticated relays.
func NewSMTPMailer(host string, port int, username, password, from string) *SMTPMailer {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTPMailer{
		addr: fmt.Sprintf("%s:%d", host, port),
		auth: auth,
		from: from,
	}
}

// Send delivers the message. The context deadline is not enforced below the
// SMTP dial; net/smtp has no context support.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := strings.Join([]string{
		"From: " + m.from,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=UTF-8",
		"",
		body,
	}, "\r\n")
	if err := smtp.SendMail(m.addr, m.auth, m.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

// AdminNotifier emails a configured administrator when a balance adjustment
// job fails. It implements job.Notifier.
type AdminNotifier struct {
	mailer    Mailer
	enabled   bool
	recipient string
	siteName  string
	formatter *currency.Formatter
	logger    *zap.Logger
	now       func() time.Time
}

// NewAdminNotifier creates a notifier. When enabled is false NotifyFailure
// is a no-op, matching the "mail on error" module configuration switch.
func NewAdminNotifier(mailer Mailer, enabled bool, recipient, siteName string, formatter *currency.Formatter, logger *zap.Logger) *AdminNotifier {
	if formatter == nil {
		formatter = currency.NewFormatter()
	}
	if logger == nil {
		logger = zap.L()
	}
	return &AdminNotifier{
		mailer:    mailer,
		enabled:   enabled,
		recipient: recipient,
		siteName:  siteName,
		formatter: formatter,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock overrides the time source used for the report month.
func (n *AdminNotifier) WithClock(now func() time.Time) *AdminNotifier {
	if now != nil {
		n.now = now
	}
	return n
}

// Subject renders the notification subject for the configured site.
func (n *AdminNotifier) Subject() string {
	return fmt.Sprintf("Developer account recharge error from %s", n.siteName)
}

// NotifyFailure sends the discrepancy report for a failed job to the
// administrator, if mail-on-error is enabled.
func (n *AdminNotifier) NotifyFailure(ctx context.Context, target domain.Target, rep *job.Report, jobErr error) error {
	if !n.enabled || n.mailer == nil {
		return nil
	}

	body := ""
	if rep != nil {
		body = rep.Body(n.formatter, n.now())
	} else {
		body = fmt.Sprintf("Balance adjustment for %s failed before any balance could be read: %v", target.Describe(), jobErr)
	}

	if err := n.mailer.Send(ctx, n.recipient, n.Subject(), body); err != nil {
		return err
	}
	n.logger.Info("administrator notified of recharge failure",
		zap.String("account", target.Describe()),
		zap.String("recipient", n.recipient),
	)
	return nil
}

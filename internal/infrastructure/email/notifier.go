package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/checkout-system/internal/core/domain/checkout"
	"github.com/avatarctic/checkout-system/internal/core/ports"
)

// NotifierConfig holds SendGrid settings for checkout confirmations.
type NotifierConfig struct {
	SendGridAPIKey string
	FromEmail      string
	FromName       string
	ToEmail        string
}

// Enabled reports whether enough is configured to send real emails.
func (c *NotifierConfig) Enabled() bool {
	return c != nil && c.SendGridAPIKey != "" && c.ToEmail != ""
}

// LogNotifier only logs the confirmation. It is the default when SendGrid is not configured.
type LogNotifier struct {
	logger *logrus.Logger
}

func NewLogNotifier(logger *logrus.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) NotifyCheckout(_ context.Context, o *checkout.Outcome) error {
	if n.logger != nil {
		n.logger.WithFields(logrus.Fields{"user_id": o.UserID, "order_id": o.OrderID, "items": len(o.Items)}).Info("sending confirmation email")
	}
	return nil
}

type mailSender interface {
	Send(email *mail.SGMailV3) (*rest.Response, error)
}

// SendGridNotifier emails a confirmation for every completed checkout.
type SendGridNotifier struct {
	config   *NotifierConfig
	logger   *logrus.Logger
	client   mailSender
	template *template.Template
}

const confirmationTemplate = `<h2>Order {{.OrderID}} confirmed</h2>
<p>User <strong>{{.UserID}}</strong> checked out {{len .Items}} item(s) at {{.CheckoutTime}}.</p>
<ul>{{range .Items}}<li>{{.}}</li>{{end}}</ul>`

// NewSendGridNotifier creates a notifier backed by the SendGrid API.
func NewSendGridNotifier(config *NotifierConfig, logger *logrus.Logger) (*SendGridNotifier, error) {
	if !config.Enabled() {
		return nil, fmt.Errorf("sendgrid notifier requires an API key and a recipient")
	}
	return newSendGridNotifier(config, logger, sendgrid.NewSendClient(config.SendGridAPIKey))
}

func newSendGridNotifier(config *NotifierConfig, logger *logrus.Logger, client mailSender) (*SendGridNotifier, error) {
	tmpl, err := template.New("confirmation").Parse(confirmationTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse confirmation template: %w", err)
	}
	return &SendGridNotifier{config: config, logger: logger, client: client, template: tmpl}, nil
}

func (n *SendGridNotifier) NotifyCheckout(_ context.Context, o *checkout.Outcome) error {
	var buf bytes.Buffer
	if err := n.template.Execute(&buf, o); err != nil {
		return fmt.Errorf("failed to render confirmation email: %w", err)
	}

	from := mail.NewEmail(n.config.FromName, n.config.FromEmail)
	to := mail.NewEmail("", n.config.ToEmail)
	subject := fmt.Sprintf("Checkout confirmed for %s", o.UserID)
	plain := fmt.Sprintf("Order %s: %s", o.OrderID, strings.Join(o.Items, ", "))
	message := mail.NewSingleEmail(from, subject, to, plain, buf.String())

	response, err := n.client.Send(message)
	if err != nil {
		return fmt.Errorf("failed to send confirmation email: %w", err)
	}
	if response != nil && response.StatusCode >= 400 {
		return fmt.Errorf("failed to send confirmation email: sendgrid status %d", response.StatusCode)
	}

	if n.logger != nil {
		n.logger.WithFields(logrus.Fields{
			"user_id":  o.UserID,
			"order_id": o.OrderID,
			"to":       n.config.ToEmail,
		}).Info("confirmation email sent")
	}
	return nil
}

var (
	_ ports.CheckoutNotifier = (*LogNotifier)(nil)
	_ ports.CheckoutNotifier = (*SendGridNotifier)(nil)
)

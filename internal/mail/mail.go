// Package mail delivers newsletters through Mailgun.
package mail

import (
	"context"
	"fmt"
	"strconv"

	"github.com/mailgun/mailgun-go/v4"
	"github.com/sirupsen/logrus"
)

// BatchSize is the most recipients Mailgun accepts on one message.
const BatchSize = 1000

// Options configure the Mailgun client. An empty APIKey selects the
// logging sender.
type Options struct {
	Domain  string
	APIKey  string
	APIBase string
}

// Newsletter is one rendered issue addressed to a recipient list.
type Newsletter struct {
	ID            uint
	SenderName    string
	SenderAddress string
	Subject       string
	HTML          string
	Recipients    []string
}

func (n Newsletter) From() string {
	if n.SenderName == "" {
		return n.SenderAddress
	}
	return fmt.Sprintf("%s <%s>", n.SenderName, n.SenderAddress)
}

// Sender is what the dispatcher needs from a mail provider.
type Sender interface {
	SendNewsletter(ctx context.Context, n Newsletter) error
	Domain() string
}

// New returns a Mailgun client, or a LogSender when no API key is set.
func New(opts Options, log logrus.FieldLogger) Sender {
	if opts.APIKey == "" {
		log.WithField("domain", opts.Domain).Warn("mail: no api key, newsletters will only be logged")
		return NewLogSender(opts.Domain, log)
	}
	return NewClient(opts, log)
}

type Client struct {
	mg     mailgun.Mailgun
	domain string
	log    logrus.FieldLogger
}

func NewClient(opts Options, log logrus.FieldLogger) *Client {
	mg := mailgun.NewMailgun(opts.Domain, opts.APIKey)
	if opts.APIBase != "" {
		mg.SetAPIBase(opts.APIBase)
	}
	return &Client{mg: mg, domain: opts.Domain, log: log}
}

func (c *Client) Domain() string { return c.domain }

// BatchError reports a batch the provider refused. Recipients before
// Accepted were already handed to the provider and will receive the issue.
type BatchError struct {
	NewsletterID uint
	Accepted     int
	Total        int
	Err          error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("mail: send newsletter %d: batch at recipient %d of %d: %v", e.NewsletterID, e.Accepted, e.Total, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// SendNewsletter sends one message per batch of recipients. Every recipient
// gets a personal {"id": n} variable, numbered from 1 across batches, so the
// provider addresses each copy individually instead of exposing the list.
func (c *Client) SendNewsletter(ctx context.Context, n Newsletter) error {
	vars := RecipientVariables(n.Recipients)
	accepted := 0
	for _, batch := range Batches(n.Recipients, BatchSize) {
		m := c.mg.NewMessage(n.From(), n.Subject, "")
		m.SetHtml(n.HTML)
		m.SetTracking(true)
		for _, email := range batch {
			if err := m.AddRecipientAndVariables(email, map[string]interface{}{"id": vars[email]["id"]}); err != nil {
				return &BatchError{NewsletterID: n.ID, Accepted: accepted, Total: len(n.Recipients), Err: err}
			}
		}
		if err := m.AddVariable("newsletter-id", strconv.FormatUint(uint64(n.ID), 10)); err != nil {
			return &BatchError{NewsletterID: n.ID, Accepted: accepted, Total: len(n.Recipients), Err: err}
		}
		_, id, err := c.mg.Send(ctx, m)
		if err != nil {
			c.log.WithError(err).WithFields(logrus.Fields{
				"newsletter_id": n.ID,
				"accepted":      accepted,
				"total":         len(n.Recipients),
			}).Error("newsletter batch refused")
			return &BatchError{NewsletterID: n.ID, Accepted: accepted, Total: len(n.Recipients), Err: err}
		}
		accepted += len(batch)
		c.log.WithFields(logrus.Fields{
			"newsletter_id": n.ID,
			"message_id":    id,
			"recipients":    len(batch),
			"accepted":      accepted,
		}).Info("newsletter batch accepted")
	}
	return nil
}

// RecipientVariables numbers emails from 1 in order.
func RecipientVariables(emails []string) map[string]map[string]int {
	vars := make(map[string]map[string]int, len(emails))
	for i, email := range emails {
		vars[email] = map[string]int{"id": i + 1}
	}
	return vars
}

// Batches splits emails into consecutive chunks of at most size.
func Batches(emails []string, size int) [][]string {
	if size <= 0 {
		size = BatchSize
	}
	var out [][]string
	for len(emails) > size {
		out = append(out, emails[:size:size])
		emails = emails[size:]
	}
	if len(emails) > 0 {
		out = append(out, emails)
	}
	return out
}

// LogSender writes newsletters to the log instead of sending them.
type LogSender struct {
	domain string
	log    logrus.FieldLogger
}

func NewLogSender(domain string, log logrus.FieldLogger) *LogSender {
	return &LogSender{domain: domain, log: log}
}

func (s *LogSender) Domain() string { return s.domain }

func (s *LogSender) SendNewsletter(_ context.Context, n Newsletter) error {
	s.log.WithFields(logrus.Fields{
		"newsletter_id": n.ID,
		"from":          n.From(),
		"subject":       n.Subject,
		"recipients":    len(n.Recipients),
	}).Info("newsletter not sent, mail disabled")
	return nil
}

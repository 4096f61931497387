package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/wolfman30/patient-intake/pkg/logging"
)

// SESAPI is the part of the SES v2 client the sender calls.
type SESAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

type SESConfig struct {
	FromEmail string
	FromName  string
	// ConfigurationSet is optional; it routes bounce and delivery events.
	ConfigurationSet string
}

// SESSender sends simple (non-raw) messages through SES v2.
type SESSender struct {
	sender
	client    SESAPI
	configSet string
}

// NewSESSender returns nil when client is nil.
func NewSESSender(client SESAPI, cfg SESConfig, logger *logging.Logger) *SESSender {
	if client == nil {
		return nil
	}
	return &SESSender{
		sender:    newSender(cfg.FromEmail, cfg.FromName, logger),
		client:    client,
		configSet: cfg.ConfigurationSet,
	}
}

func (s *SESSender) Send(ctx context.Context, msg EmailMessage) error {
	if s == nil || s.client == nil {
		return errors.New("notify: SES client not configured")
	}
	to, err := msg.recipient()
	if err != nil {
		return err
	}

	var body types.Body
	if msg.Body != "" {
		body.Text = utf8(msg.Body)
	}
	if msg.HTML != "" {
		body.Html = utf8(msg.HTML)
	}

	in := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.from.String()),
		Destination:      &types.Destination{ToAddresses: []string{to.String()}},
		Content: &types.EmailContent{Simple: &types.Message{
			Subject: utf8(msg.Subject),
			Body:    &body,
		}},
	}
	if s.configSet != "" {
		in.ConfigurationSetName = aws.String(s.configSet)
	}

	out, err := s.client.SendEmail(ctx, in)
	if err != nil {
		return fmt.Errorf("notify: SES send: %w", err)
	}
	s.logger.Info("email sent", "provider", "ses", "to", maskAddress(to.Address), "message_id", aws.ToString(out.MessageId))
	return nil
}

func utf8(s string) *types.Content {
	return &types.Content{Data: aws.String(s), Charset: aws.String("UTF-8")}
}

var _ EmailSender = (*SESSender)(nil)

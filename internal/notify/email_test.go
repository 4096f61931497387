package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSendGrid struct {
	status int
	err    error
	got    *mail.SGMailV3
}

func (f *fakeSendGrid) SendWithContext(_ context.Context, m *mail.SGMailV3) (*rest.Response, error) {
	f.got = m
	if f.err != nil {
		return nil, f.err
	}
	return &rest.Response{StatusCode: f.status}, nil
}

type fakeSES struct {
	err error
	got *sesv2.SendEmailInput
}

func (f *fakeSES) SendEmail(_ context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.got = in
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestNewSendGridSenderNilWithoutAPIKey(t *testing.T) {
	assert.Nil(t, NewSendGridSender(SendGridConfig{FromEmail: "intake@example.com"}, nil))
}

func TestNewSendGridSenderFromName(t *testing.T) {
	s := NewSendGridSender(SendGridConfig{APIKey: "k", FromEmail: "intake@example.com"}, nil)
	require.NotNil(t, s)
	assert.Equal(t, defaultFromName, s.from.Name)

	s = NewSendGridSender(SendGridConfig{APIKey: "k", FromEmail: "intake@example.com", FromName: "Lakeside Clinic"}, nil)
	assert.Equal(t, "Lakeside Clinic", s.from.Name)
}

func TestSendGridSenderSend(t *testing.T) {
	fake := &fakeSendGrid{status: 202}
	s := NewSendGridSender(SendGridConfig{APIKey: "k", FromEmail: "intake@example.com"}, nil)
	s.client = fake

	err := s.Send(context.Background(), EmailMessage{To: "jane@example.com", ToName: "Jane Doe", Subject: "Hi", Body: "plain"})
	require.NoError(t, err)
	require.NotNil(t, fake.got)
	assert.Equal(t, "Hi", fake.got.Subject)
	assert.Equal(t, "intake@example.com", fake.got.From.Address)
	require.Len(t, fake.got.Content, 2)
	assert.Equal(t, "plain", fake.got.Content[1].Value)
}

func TestSendGridSenderErrors(t *testing.T) {
	s := NewSendGridSender(SendGridConfig{APIKey: "k", FromEmail: "intake@example.com"}, nil)

	msg := EmailMessage{To: "a@example.com", Body: "x"}

	s.client = &fakeSendGrid{status: 401}
	assert.ErrorContains(t, s.Send(context.Background(), msg), "status 401")

	s.client = &fakeSendGrid{err: errors.New("dial tcp")}
	assert.ErrorContains(t, s.Send(context.Background(), msg), "dial tcp")

	fake := &fakeSendGrid{status: 202}
	s.client = fake
	assert.ErrorIs(t, s.Send(context.Background(), EmailMessage{To: "not-an-address", Body: "x"}), ErrInvalidMessage)
	assert.ErrorIs(t, s.Send(context.Background(), EmailMessage{To: "a@example.com"}), ErrInvalidMessage)
	assert.Nil(t, fake.got, "invalid messages never reach the provider")

	var unset *SendGridSender
	assert.Error(t, unset.Send(context.Background(), msg))
}

func TestSESSenderSend(t *testing.T) {
	assert.Nil(t, NewSESSender(nil, SESConfig{}, nil))

	fake := &fakeSES{}
	s := NewSESSender(fake, SESConfig{FromEmail: "intake@example.com"}, nil)
	err := s.Send(context.Background(), EmailMessage{
		To: "jane@example.com", ToName: "Jane Doe", Subject: "Confirmed", Body: "text", HTML: "<p>html</p>",
	})
	require.NoError(t, err)

	in := fake.got
	assert.Equal(t, `"Patient Intake" <intake@example.com>`, aws.ToString(in.FromEmailAddress))
	assert.Equal(t, []string{`"Jane Doe" <jane@example.com>`}, in.Destination.ToAddresses)
	assert.Nil(t, in.ConfigurationSetName)
	assert.Equal(t, "Confirmed", aws.ToString(in.Content.Simple.Subject.Data))
	assert.Equal(t, "text", aws.ToString(in.Content.Simple.Body.Text.Data))
	assert.Equal(t, "<p>html</p>", aws.ToString(in.Content.Simple.Body.Html.Data))
}

func TestSESSenderTextOnly(t *testing.T) {
	fake := &fakeSES{}
	s := NewSESSender(fake, SESConfig{FromEmail: "intake@example.com"}, nil)
	require.NoError(t, s.Send(context.Background(), EmailMessage{To: "jane@example.com", Body: "text"}))
	assert.Nil(t, fake.got.Content.Simple.Body.Html)
	assert.Equal(t, []string{"<jane@example.com>"}, fake.got.Destination.ToAddresses)
}

func TestSESSenderConfigurationSet(t *testing.T) {
	fake := &fakeSES{}
	s := NewSESSender(fake, SESConfig{FromEmail: "intake@example.com", ConfigurationSet: "intake-bounces"}, nil)
	require.NoError(t, s.Send(context.Background(), EmailMessage{To: "jane@example.com", Body: "text"}))
	assert.Equal(t, "intake-bounces", aws.ToString(fake.got.ConfigurationSetName))
}

func TestMaskAddress(t *testing.T) {
	assert.Equal(t, "j***@example.com", maskAddress("jane@example.com"))
	assert.Equal(t, "***", maskAddress("@example.com"))
	assert.Equal(t, "***", maskAddress("nobody"))
}

func TestSESSenderError(t *testing.T) {
	s := NewSESSender(&fakeSES{err: errors.New("throttled")}, SESConfig{FromEmail: "intake@example.com"}, nil)
	assert.Error(t, s.Send(context.Background(), EmailMessage{To: "jane@example.com", Body: "x"}))
}

func TestStubEmailSenderRecords(t *testing.T) {
	s := NewStubEmailSender(nil)
	require.NoError(t, s.Send(context.Background(), EmailMessage{To: "jane@example.com", Subject: "One"}))
	sent := s.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "One", sent[0].Subject)
}

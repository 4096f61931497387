package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/wolfman30/patient-intake/internal/intake"
	"github.com/wolfman30/patient-intake/pkg/logging"
)

type sqsAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSPublisher sends canonical events to an SQS queue. As an intake.Notifier
// it publishes BookingConfirmedV1 for every committed booking.
type SQSPublisher struct {
	client   sqsAPI
	queueURL string
	logger   *logging.Logger
}

// NewSQSPublisher creates a publisher around the provided SQS client.
func NewSQSPublisher(client sqsAPI, queueURL string, logger *logging.Logger) *SQSPublisher {
	if client == nil {
		panic("events: SQS client cannot be nil")
	}
	if queueURL == "" {
		panic("events: SQS queueURL cannot be empty")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SQSPublisher{client: client, queueURL: queueURL, logger: logger}
}

// Publish wraps evt in an envelope and sends it.
func (p *SQSPublisher) Publish(ctx context.Context, aggregate, correlationID string, evt Event, opts ...EnvelopeOption) (Envelope, error) {
	env, err := NewEnvelope(aggregate, correlationID, evt, opts...)
	if err != nil {
		return Envelope{}, err
	}
	body, err := json.Marshal(env)
	if err != nil {
		return Envelope{}, fmt.Errorf("events: marshal envelope: %w", err)
	}
	_, err = p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]sqstypes.MessageAttributeValue{
			"event_type": {DataType: aws.String("String"), StringValue: aws.String(env.EventType)},
		},
	})
	if err != nil {
		return Envelope{}, fmt.Errorf("events: failed to send SQS message: %w", err)
	}
	p.logger.Debug("event published", "event_type", env.EventType, "event_id", env.EventID.String())
	return env, nil
}

func (p *SQSPublisher) BookingConfirmed(ctx context.Context, b intake.Booking) error {
	evt := BookingConfirmedV1{
		VisitID:       b.VisitID,
		PatientID:     b.PatientID,
		ProviderID:    b.ProviderID,
		SlotID:        b.SlotID,
		StartsAt:      b.StartsAt,
		ChangesLogged: b.Changes,
		BookedAt:      nowFunc().UTC(),
	}
	_, err := p.Publish(ctx, "patient:"+b.PatientID, b.VisitID, evt)
	return err
}

var _ intake.Notifier = (*SQSPublisher)(nil)

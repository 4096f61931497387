package bootstrap

import (
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/wolfman30/patient-intake/internal/archive"
	appconfig "github.com/wolfman30/patient-intake/internal/config"
	"github.com/wolfman30/patient-intake/internal/events"
	"github.com/wolfman30/patient-intake/internal/intake"
	"github.com/wolfman30/patient-intake/internal/notify"
	"github.com/wolfman30/patient-intake/internal/webchat"
	"github.com/wolfman30/patient-intake/pkg/logging"
)

// BuildEmailSender selects the booking email provider. Misconfiguration
// falls back to the logging stub rather than failing startup.
func BuildEmailSender(cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) (notify.EmailSender, string) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg == nil {
		return notify.NewStubEmailSender(logger), "stub"
	}
	if cfg.EmailProvider != "stub" && strings.TrimSpace(cfg.EmailFrom) == "" {
		logger.Warn("EMAIL_FROM not set; booking emails are logged only", "provider", cfg.EmailProvider)
		return notify.NewStubEmailSender(logger), "stub"
	}

	switch cfg.EmailProvider {
	case "ses":
		sender := notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail:        cfg.EmailFrom,
			FromName:         cfg.EmailFromName,
			ConfigurationSet: cfg.SESConfigurationSet,
		}, logger)
		return sender, "ses"
	case "sendgrid":
		sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.EmailFrom,
			FromName:  cfg.EmailFromName,
		}, logger)
		if sender == nil {
			logger.Warn("SENDGRID_API_KEY not set; booking emails are logged only")
			return notify.NewStubEmailSender(logger), "stub"
		}
		return sender, "sendgrid"
	case "", "stub":
		return notify.NewStubEmailSender(logger), "stub"
	default:
		logger.Warn("unknown EMAIL_PROVIDER; booking emails are logged only", "provider", cfg.EmailProvider)
		return notify.NewStubEmailSender(logger), "stub"
	}
}

// BuildNotifier combines the confirmation emails with the optional SQS
// booking event.
func BuildNotifier(cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) intake.Notifier {
	if logger == nil {
		logger = logging.Default()
	}
	email, provider := BuildEmailSender(cfg, awsCfg, logger)
	booking := notify.NewBookingNotifier(email,
		notify.WithStaffRecipients(cfg.StaffEmails...),
		notify.WithClinicName(cfg.ClinicName),
		notify.WithNotifierLogger(logger),
	)

	var published intake.Notifier
	if queueURL := strings.TrimSpace(cfg.BookingEventsQueueURL); queueURL != "" {
		published = events.NewSQSPublisher(sqs.NewFromConfig(awsCfg), queueURL, logger)
	}
	logger.Info("booking notifications configured",
		"email_provider", provider,
		"staff_recipients", len(cfg.StaffEmails),
		"sqs_events", published != nil,
	)
	return notify.NewFanout(booking, published)
}

// BuildArchiver returns the S3 session archive, or nil when no bucket is set.
func BuildArchiver(cfg *appconfig.Config, awsCfg aws.Config, transcripts webchat.TranscriptStore, logger *logging.Logger) intake.Archiver {
	bucket := strings.TrimSpace(cfg.SessionArchiveBucket)
	if bucket == "" {
		return nil
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = strings.TrimSpace(cfg.AWSEndpointOverride) != ""
	})
	var source archive.TranscriptSource
	if transcripts != nil {
		source = transcripts
	}
	return archive.NewStore(client, bucket, source, logger)
}

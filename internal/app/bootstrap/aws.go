package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"

	appconfig "github.com/wolfman30/patient-intake/internal/config"
)

// LoadAWSConfig builds the one aws.Config shared by the Bedrock, SES, S3 and
// SQS clients. AWS_ENDPOINT_OVERRIDE points all of them at LocalStack.
func LoadAWSConfig(ctx context.Context, cfg *appconfig.Config) (aws.Config, error) {
	opts := awsLoadOptions(cfg)
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("bootstrap: aws: %w", err)
	}
	return awsCfg, nil
}

func awsLoadOptions(cfg *appconfig.Config) []func(*config.LoadOptions) error {
	var opts []func(*config.LoadOptions) error
	if region := strings.TrimSpace(cfg.AWSRegion); region != "" {
		opts = append(opts, config.WithRegion(region))
	}

	// Static keys only when both halves are present; otherwise the default
	// chain (env, shared profile, task role) applies.
	keyID, secret := strings.TrimSpace(cfg.AWSAccessKeyID), strings.TrimSpace(cfg.AWSSecretKey)
	if keyID != "" && secret != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(keyID, secret, ""),
		))
	}

	if endpoint := strings.TrimSpace(cfg.AWSEndpointOverride); endpoint != "" {
		opts = append(opts, config.WithBaseEndpoint(endpoint))
	}
	return opts
}

// needsAWS reports whether any configured component talks to AWS.
func needsAWS(cfg *appconfig.Config) bool {
	switch {
	case usesBedrock(cfg), cfg.EmailProvider == "ses":
		return true
	}
	return strings.TrimSpace(cfg.SessionArchiveBucket) != "" ||
		strings.TrimSpace(cfg.BookingEventsQueueURL) != ""
}

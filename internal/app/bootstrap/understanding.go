package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/wolfman30/patient-intake/internal/address"
	appconfig "github.com/wolfman30/patient-intake/internal/config"
	"github.com/wolfman30/patient-intake/internal/intake"
	"github.com/wolfman30/patient-intake/internal/nlu"
	"github.com/wolfman30/patient-intake/internal/slots"
	"github.com/wolfman30/patient-intake/pkg/logging"
)

// Understanding is the extractor and classifier pair the machine uses.
type Understanding struct {
	Extractor  intake.Extractor
	Classifier nlu.Classifier
	Provider   string
	closers    []func() error
}

// Close releases model clients.
func (u *Understanding) Close() error {
	if u == nil {
		return nil
	}
	var first error
	for _, c := range u.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func rulesUnderstanding() *Understanding {
	return &Understanding{
		Extractor:  slots.NewExtractor(nil),
		Classifier: nlu.RuleClassifier{},
		Provider:   "rules",
	}
}

// usesBedrock reports whether Bedrock serves as primary or fallback model.
func usesBedrock(cfg *appconfig.Config) bool {
	switch cfg.LLMProvider {
	case "bedrock":
		return true
	case "gemini":
		return strings.TrimSpace(cfg.BedrockModelID) != ""
	}
	return false
}

// BuildUnderstanding picks the language model behind slot extraction and
// intent classification. The other configured provider, if any, becomes the
// fallback. Without a usable model the rule-based pair is returned.
func BuildUnderstanding(ctx context.Context, cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) (*Understanding, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	var (
		bedrock nlu.LLMClient
		gemini  nlu.LLMClient
		u       = &Understanding{Provider: cfg.LLMProvider}
	)
	buildBedrock := func() {
		if strings.TrimSpace(cfg.BedrockModelID) == "" {
			return
		}
		bedrock = nlu.NewBedrockLLMClient(bedrockruntime.NewFromConfig(awsCfg))
	}
	buildGemini := func() error {
		if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
			return nil
		}
		client, err := nlu.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return err
		}
		gemini = client
		u.closers = append(u.closers, client.Close)
		return nil
	}

	var primary, fallback nlu.LLMClient
	switch cfg.LLMProvider {
	case "", "rules":
		logger.Info("text understanding uses rules only")
		return rulesUnderstanding(), nil
	case "bedrock":
		buildBedrock()
		if err := buildGemini(); err != nil {
			logger.Warn("gemini fallback unavailable", "error", err)
		}
		primary, fallback = bedrock, gemini
	case "gemini":
		if err := buildGemini(); err != nil {
			return nil, fmt.Errorf("bootstrap: gemini client: %w", err)
		}
		buildBedrock()
		primary, fallback = gemini, bedrock
	default:
		return nil, fmt.Errorf("bootstrap: unknown LLM_PROVIDER %q", cfg.LLMProvider)
	}
	if primary == nil {
		logger.Warn("LLM provider selected but not configured; using rules", "provider", cfg.LLMProvider)
		_ = u.Close()
		return rulesUnderstanding(), nil
	}

	// Gemini ignores the request model, so the Bedrock id is passed whenever
	// Bedrock may serve the call.
	model := cfg.GeminiModel
	if usesBedrock(cfg) {
		model = cfg.BedrockModelID
	}
	client := nlu.LLMClient(nlu.NewFallbackLLMClient(primary, fallback, logger))
	u.Extractor = slots.NewExtractor(nlu.NewLLMExtractor(client, model, cfg.LLMTimeout))
	u.Classifier = nlu.NewLLMClassifier(client, model, cfg.LLMTimeout, logger)
	logger.Info("text understanding enabled",
		"provider", cfg.LLMProvider,
		"model", model,
		"fallback", fallback != nil,
	)
	return u, nil
}

// BuildAddressValidator returns the Google validator when an API key is set
// and the offline format check otherwise.
func BuildAddressValidator(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (address.Validator, error) {
	if cfg == nil || strings.TrimSpace(cfg.AddressValidationAPIKey) == "" {
		if logger != nil {
			logger.Warn("ADDRESS_VALIDATION_API_KEY not set; addresses are format-checked only")
		}
		return address.LocalValidator{}, nil
	}
	v, err := address.NewGoogleValidator(ctx, cfg.AddressValidationAPIKey, logger)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: address validator: %w", err)
	}
	return v, nil
}

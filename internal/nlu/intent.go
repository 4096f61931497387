package nlu

import (
	"context"
	"errors"
	"regexp"
	"strings"
)

// Intent is the confirmation signal read from a user reply.
type Intent string

const (
	IntentAffirmative   Intent = "affirmative"
	IntentNegative      Intent = "negative"
	IntentUpdateRequest Intent = "update_request"
	IntentAmbiguous     Intent = "ambiguous"
)

// PatientStatus says whether the user presents as new or returning.
type PatientStatus string

const (
	StatusReturning PatientStatus = "returning"
	StatusNew       PatientStatus = "new"
	StatusUnknown   PatientStatus = "unknown"
)

// Classifier reads confirmation and patient-status signals from free text.
type Classifier interface {
	ClassifyIntent(ctx context.Context, text string) (Intent, error)
	PatientStatus(ctx context.Context, text string) (PatientStatus, error)
}

// ErrUnderstanding wraps failures of a model-backed classifier.
var ErrUnderstanding = errors.New("nlu: text understanding failed")

var (
	punctRe = regexp.MustCompile(`[^a-z0-9'\s]+`)
	spaceRe = regexp.MustCompile(`\s+`)
)

func normalize(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	s = strings.ReplaceAll(s, "’", "'")
	s = punctRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// containsPhrase matches whole words only, so "no" does not match "know".
func containsPhrase(s, phrase string) bool {
	return strings.Contains(" "+s+" ", " "+phrase+" ")
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if containsPhrase(s, p) {
			return true
		}
	}
	return false
}

var (
	// pleasantries open with "no" or "not" but carry no refusal.
	pleasantries     = []string{"no problem", "not a problem", "no problems", "no prob", "no worries", "no biggie"}
	leadingNegatives = []string{"no", "nope", "nah", "negative", "not quite", "not really", "incorrect", "wrong"}
	negativePhrases  = []string{
		"no changes", "nothing to change", "nothing to update", "no updates", "not right",
		"not correct", "isn't right", "isn't correct", "is wrong", "are wrong", "that's wrong",
		"incorrect", "wrong", "different time", "different day", "different doctor",
		"different provider", "don't book", "do not book", "not that",
	}
	updateCues = []string{
		"change", "update", "updated", "moved", "new address", "new phone", "new number",
		"new email", "new insurance", "switched", "correct my", "fix my", "edit",
	}
	affirmatives = []string{
		"yes", "yeah", "yep", "yup", "ya", "y", "sure", "ok", "okay", "correct", "right",
		"that's right", "that is right", "that's correct", "looks good", "look good",
		"sounds good", "all good", "perfect", "great", "absolutely", "confirm", "confirmed",
		"please do", "book it", "go ahead", "affirmative", "that works", "works for me",
		"accurate", "good",
	}
)

// RuleClassifier classifies with fixed phrase lists.
type RuleClassifier struct{}

func (RuleClassifier) ClassifyIntent(_ context.Context, text string) (Intent, error) {
	return ruleIntent(text), nil
}

func (RuleClassifier) PatientStatus(_ context.Context, text string) (PatientStatus, error) {
	return ruleStatus(text), nil
}

// stripPhrases removes whole-word occurrences of phrases from s.
func stripPhrases(s string, phrases []string) string {
	padded := " " + s + " "
	for _, p := range phrases {
		padded = strings.ReplaceAll(padded, " "+p+" ", " ")
	}
	return strings.TrimSpace(spaceRe.ReplaceAllString(padded, " "))
}

func ruleIntent(text string) Intent {
	s := stripPhrases(normalize(text), pleasantries)
	if s == "" {
		return IntentAmbiguous
	}
	words := strings.Fields(s)
	for _, neg := range leadingNegatives {
		if strings.HasPrefix(s, neg) && (len(s) == len(neg) || s[len(neg)] == ' ') {
			return IntentNegative
		}
	}
	if words[0] == "not" || containsAny(s, negativePhrases) {
		return IntentNegative
	}
	if containsAny(s, updateCues) {
		return IntentUpdateRequest
	}
	if containsAny(s, affirmatives) {
		return IntentAffirmative
	}
	return IntentAmbiguous
}

var (
	newCues = []string{
		"new patient", "i'm new", "i am new", "first time", "never been", "new here",
		"not a returning", "not returning", "haven't been", "have not been", "not an existing",
		"never visited", "brand new",
	}
	returningCues = []string{
		"returning", "existing patient", "been here before", "been there before", "been before",
		"seen before", "visited before", "came before", "come before", "current patient",
		"already a patient", "i'm a patient", "i am a patient", "been in before", "been seen",
	}
)

func ruleStatus(text string) PatientStatus {
	s := normalize(text)
	switch {
	case containsAny(s, newCues):
		return StatusNew
	case containsAny(s, returningCues):
		return StatusReturning
	}
	return StatusUnknown
}

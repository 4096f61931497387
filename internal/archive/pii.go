package archive

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

// scrubRule replaces one kind of identifier. Order matters: member ids are
// removed before the phone rule can eat their digits.
type scrubRule struct {
	re   *regexp.Regexp
	repl string
}

var scrubRules = []scrubRule{
	{regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`), "[EMAIL]"},
	{regexp.MustCompile(`(?i)(\b(?:member|subscriber|policy)\s+(?:id|number|no\.?)\s*(?:is\s+|:\s*)?)[A-Z0-9][A-Z0-9-]{4,}`), "${1}[MEMBER_ID]"},
	{regexp.MustCompile(`\b(?:[0-9]{1,2}[/-][0-9]{1,2}[/-][0-9]{2,4}|[0-9]{4}-[0-9]{2}-[0-9]{2})\b`), "[DATE]"},
	{regexp.MustCompile(`\+?1?[-.\s]?\(?[0-9]{3}\)?[-.\s]?[0-9]{3}[-.\s]?[0-9]{4}`), "[PHONE]"},
	{regexp.MustCompile(`(?i)\b[0-9]{1,6}\s+(?:[A-Za-z0-9.]+\s+){0,3}(?:street|st|avenue|ave|road|rd|boulevard|blvd|drive|dr|lane|ln|way|court|ct)\b\.?`), "[ADDRESS]"},
}

// HashPhone hashes the digits of a phone number so differently formatted
// copies of the same number link up.
func HashPhone(phone string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	h := sha256.Sum256([]byte(digits))
	return hex.EncodeToString(h[:])
}

// ScrubPII masks emails, insurance member ids, dates, phone numbers and
// street addresses. Names and free-text symptoms are kept.
func ScrubPII(text string) string {
	for _, rule := range scrubRules {
		text = rule.re.ReplaceAllString(text, rule.repl)
	}
	return text
}

// ScrubMessages scrubs msgs in place.
func ScrubMessages(msgs []Message) {
	for i := range msgs {
		msgs[i].Content = ScrubPII(msgs[i].Content)
	}
}

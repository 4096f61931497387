package slots

import (
	"context"
	"regexp"
	"strings"
)

// Rules extracts the patterned fields (phone, email, dates, addresses, plan
// types, ids) with regular expressions. It never guesses: a field is reported
// only when the text contains a match for it.
type Rules struct{}

var (
	emailFindRe  = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phoneFindRe  = regexp.MustCompile(`(?:^|[^\w+])((?:\+?1[\s.\-]?)?\(?\d{3}\)?[\s.\-]?\d{3}[\s.\-]?\d{4})\b`)
	phoneCueRe   = regexp.MustCompile(`(?i)\b(?:phone|cell|mobile)(?:\s+number)?\s*(?:is|:)?\s*([+\d()][\d()+.\-\s]{2,}\d)`)
	dateFindRes  = []*regexp.Regexp{
		regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}[/-]\d{4}\b`),
		regexp.MustCompile(`\b\d{4}-\d{1,2}-\d{1,2}\b`),
		regexp.MustCompile(`(?i)\b(?:jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)[a-z]*\.?\s+\d{1,2}(?:st|nd|rd|th)?,?\s+\d{4}\b`),
		regexp.MustCompile(`(?i)\b\d{1,2}(?:st|nd|rd|th)?\s+(?:jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)[a-z]*\.?,?\s+\d{4}\b`),
	}
	fullNameCueRe  = regexp.MustCompile(`(?i)\b(?:my\s+name\s+is|name\s+is|name's|this\s+is|i\s+am|i'm)\s+([A-Za-z][A-Za-z'\-]*)\s+([A-Za-z][A-Za-z'\-]*)`)
	firstNameCueRe = regexp.MustCompile(`(?i)\bfirst\s+name\s*(?:is|:)?\s+([A-Za-z][A-Za-z'\-]*)`)
	lastNameCueRe  = regexp.MustCompile(`(?i)\b(?:last|family|sur)\s*name\s*(?:is|:)?\s+([A-Za-z][A-Za-z'\-]*)`)
	bareNameRe     = regexp.MustCompile(`^([A-Z][A-Za-z'\-]+)\s+([A-Z][A-Za-z'\-]+)$`)

	planRe      = regexp.MustCompile(`(?i)\b(PPO|HMO|EPO|POS|HDHP)\b`)
	groupIDRe   = regexp.MustCompile(`(?i)\bgroup\s*(?:id|number|no\.?|#)?\s*(?:is|:|#)?\s*([A-Z0-9][A-Z0-9\-]{2,})`)
	memberIDRe  = regexp.MustCompile(`(?i)\b(?:member\s*(?:id|number|no\.?|#)?|id|policy\s*(?:number|#)?)\s*(?:is|:|#)?\s*([A-Z0-9][A-Z0-9\-]{3,})`)
	payerCueRe  = regexp.MustCompile(`(?i)\b(?:insurance\s+(?:is|with|through|provider\s+is|company\s+is)|insured\s+(?:with|through|by)|covered\s+by)\s+([A-Za-z][A-Za-z&'\- ]*?)(?:\s*[,.;]|\s+(?:and|with|member|id|plan|group|ppo|hmo|epo)\b|$)`)
	severityRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(\d{1,2})\s*(?:/|out\s+of)\s*10\b`),
		regexp.MustCompile(`(?i)\b(?:severity|pain(?:\s+level)?)\s*(?:is|of|:)?\s*(?:a\s+)?(\d{1,2})\b`),
	}
	durationRe  = regexp.MustCompile(`(?i)\b(?:for\s+(?:the\s+)?(?:past\s+|last\s+)?|since\s+)((?:a|an|one|two|three|four|five|six|seven|eight|nine|ten|several|a\s+few|few|couple(?:\s+of)?|\d+)\s+(?:hour|day|week|month|year)s?|yesterday|last\s+(?:night|week|month|year))`)
	complaintRe = regexp.MustCompile(`(?i)\b(?:i\s+have\s+(?:had|been\s+having)|i've\s+(?:got|had|been\s+having)|i\s+have|i\s+am\s+having|i'm\s+having|i\s+(?:am\s+|'m\s+)?experiencing|experiencing|suffering\s+from|dealing\s+with|complaining\s+of|(?:i'm\s+|i\s+am\s+)?here\s+for|coming\s+in\s+for|because\s+of|reason\s+(?:for\s+(?:my\s+|the\s+)?visit\s+)?is)\s+(.+)`)
	complaintEndRe = regexp.MustCompile(`(?i)\s+(?:for\s+(?:the\s+)?(?:past\s+|last\s+)?(?:a|an|one|two|three|four|five|six|seven|eight|nine|ten|several|few|couple|\d+)\b|since\b|and\s+it'?s\b|it'?s\s+(?:about\s+)?(?:a\s+)?\d).*$`)
)

// Payers recognized by name without a cue phrase. Longer names come first.
var knownPayers = []string{
	"Blue Cross Blue Shield", "Blue Cross", "Blue Shield", "UnitedHealthcare",
	"United Healthcare", "Kaiser Permanente", "Kaiser", "Anthem", "Aetna", "Cigna",
	"Humana", "Medicare", "Medicaid", "Tricare", "Oscar", "Molina", "Ambetter",
	"Health Net",
}

var nameStopWords = map[string]bool{
	"a": true, "an": true, "the": true, "new": true, "returning": true, "not": true,
	"here": true, "looking": true, "calling": true, "back": true, "patient": true,
	"having": true, "in": true, "just": true, "also": true, "sure": true, "yes": true,
	"no": true, "existing": true, "good": true, "fine": true, "ready": true,
}

var confirmationWords = map[string]bool{
	"yes": true, "yeah": true, "yep": true, "no": true, "nope": true, "ok": true,
	"okay": true, "sure": true, "correct": true, "right": true, "hi": true, "hello": true,
	"hey": true, "thanks": true, "thank you": true,
}

func (Rules) ExtractRaw(_ context.Context, text string, schema Schema) (map[Field]string, error) {
	out := make(map[Field]string)
	remaining := text

	if schema.Has(Email) {
		if m := emailFindRe.FindString(remaining); m != "" {
			out[Email] = m
		}
	}
	remaining = emailFindRe.ReplaceAllString(remaining, " ")

	if schema.Has(DateOfBirth) {
		for _, re := range dateFindRes {
			if m := re.FindString(remaining); m != "" {
				out[DateOfBirth] = m
				remaining = strings.Replace(remaining, m, " ", 1)
				break
			}
		}
	}

	if schema.Has(Phone) {
		if m := phoneFindRe.FindStringSubmatch(remaining); m != nil {
			out[Phone] = m[1]
		} else if m := phoneCueRe.FindStringSubmatch(remaining); m != nil {
			out[Phone] = m[1]
		}
	}

	if schema.Has(FirstName) || schema.Has(LastName) {
		extractNames(text, schema, out)
	}

	if schema.Has(AddressLine1) || schema.Has(ZipCode) {
		extractAddress(text, schema, out)
	}

	if schema.Has(InsurancePayer) || schema.Has(InsuranceMemberID) {
		extractInsurance(text, schema, out)
	}

	if schema.Has(ChiefComplaint) || schema.Has(Severity) || schema.Has(SymptomDuration) {
		extractMedical(text, schema, out)
	}
	return out, nil
}

func extractNames(text string, schema Schema, out map[Field]string) {
	if m := fullNameCueRe.FindStringSubmatch(text); m != nil &&
		!nameStopWords[strings.ToLower(m[1])] && !nameStopWords[strings.ToLower(m[2])] {
		setIf(schema, out, FirstName, m[1])
		setIf(schema, out, LastName, m[2])
	}
	if m := firstNameCueRe.FindStringSubmatch(text); m != nil {
		setIf(schema, out, FirstName, m[1])
	}
	if m := lastNameCueRe.FindStringSubmatch(text); m != nil {
		setIf(schema, out, LastName, m[1])
	}
	if _, ok := out[FirstName]; ok {
		return
	}
	// "Jane Doe, 03/15/1985, ..." style answers.
	lead := strings.TrimSpace(strings.SplitN(text, ",", 2)[0])
	if m := bareNameRe.FindStringSubmatch(lead); m != nil &&
		!nameStopWords[strings.ToLower(m[1])] && !nameStopWords[strings.ToLower(m[2])] &&
		!confirmationWords[strings.ToLower(m[1])] {
		setIf(schema, out, FirstName, m[1])
		setIf(schema, out, LastName, m[2])
	}
}

func extractAddress(text string, schema Schema, out map[Field]string) {
	parts := ParseAddress(text)
	setIf(schema, out, AddressLine1, parts.Line1)
	setIf(schema, out, AddressLine2, parts.Line2)
	setIf(schema, out, City, parts.City)
	setIf(schema, out, State, parts.State)
	setIf(schema, out, ZipCode, parts.Zip)
}

func extractInsurance(text string, schema Schema, out map[Field]string) {
	lower := strings.ToLower(text)
	for _, payer := range knownPayers {
		if strings.Contains(lower, strings.ToLower(payer)) {
			setIf(schema, out, InsurancePayer, payer)
			break
		}
	}
	if _, ok := out[InsurancePayer]; !ok {
		if m := payerCueRe.FindStringSubmatch(text); m != nil {
			setIf(schema, out, InsurancePayer, strings.TrimSpace(m[1]))
		}
	}
	if m := planRe.FindStringSubmatch(text); m != nil {
		setIf(schema, out, InsurancePlan, m[1])
	}

	remaining := text
	if m := groupIDRe.FindStringSubmatchIndex(remaining); m != nil {
		id := remaining[m[2]:m[3]]
		if containsDigit(id) {
			setIf(schema, out, InsuranceGroupID, id)
			remaining = remaining[:m[0]] + " " + remaining[m[1]:]
		}
	}
	for _, m := range memberIDRe.FindAllStringSubmatch(remaining, -1) {
		if containsDigit(m[1]) {
			setIf(schema, out, InsuranceMemberID, m[1])
			break
		}
	}
}

func extractMedical(text string, schema Schema, out map[Field]string) {
	for _, re := range severityRes {
		if m := re.FindStringSubmatch(text); m != nil {
			setIf(schema, out, Severity, m[1])
			break
		}
	}
	if m := durationRe.FindStringSubmatch(text); m != nil {
		setIf(schema, out, SymptomDuration, m[1])
	}
	if !schema.Has(ChiefComplaint) {
		return
	}
	if m := complaintRe.FindStringSubmatch(text); m != nil {
		setIf(schema, out, ChiefComplaint, cleanComplaint(m[1]))
		return
	}
	// A bare answer to "what brings you in" is the complaint itself.
	bare := cleanComplaint(text)
	if bare != "" && !confirmationWords[strings.ToLower(bare)] && containsLetter(bare) {
		setIf(schema, out, ChiefComplaint, bare)
	}
}

func cleanComplaint(s string) string {
	s = complaintEndRe.ReplaceAllString(s, "")
	if i := strings.IndexAny(s, ".!?;"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(strings.Trim(strings.TrimSpace(s), ","))
	lower := strings.ToLower(s)
	for _, prefix := range []string{"some ", "a ", "an ", "really bad ", "bad "} {
		if strings.HasPrefix(lower, prefix) {
			s = s[len(prefix):]
			lower = lower[len(prefix):]
		}
	}
	return strings.TrimSpace(s)
}

func setIf(schema Schema, out map[Field]string, f Field, v string) {
	if v = strings.TrimSpace(v); v == "" || !schema.Has(f) {
		return
	}
	if _, exists := out[f]; exists {
		return
	}
	out[f] = v
}

func containsDigit(s string) bool {
	return strings.ContainsAny(s, "0123456789")
}

func containsLetter(s string) bool {
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			return true
		}
	}
	return false
}

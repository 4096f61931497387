package providers

import (
	"sort"
	"strings"
	"unicode"
)

var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "my": true, "i": true, "im": true, "have": true,
	"had": true, "has": true, "been": true, "having": true, "some": true, "of": true,
	"in": true, "on": true, "and": true, "or": true, "with": true, "for": true, "to": true,
	"is": true, "it": true, "its": true, "me": true, "really": true, "very": true,
	"bad": true, "since": true, "days": true, "weeks": true, "at": true, "am": true,
	"feel": true, "feeling": true, "got": true, "get": true, "need": true, "want": true,
}

// genericWords are too broad to match a condition tag on their own.
var genericWords = map[string]bool{
	"pain": true, "injury": true, "injuries": true, "care": true, "health": true,
	"general": true, "disorders": true, "issues": true, "conditions": true,
	"chronic": true, "screening": true, "problem": true, "problems": true,
}

var synonyms = map[string][]string{
	"back":           {"back pain", "spine"},
	"back pain":      {"spine", "musculoskeletal"},
	"spine":          {"back pain"},
	"headache":       {"migraine", "neurological disorders"},
	"headaches":      {"headache", "migraine"},
	"migraine":       {"headache"},
	"dizzy":          {"neurological disorders"},
	"rash":           {"skin rash", "dermatology"},
	"itchy":          {"skin rash", "eczema"},
	"acne":           {"dermatology"},
	"pimples":        {"acne"},
	"eczema":         {"skin rash"},
	"skin":           {"dermatology"},
	"mole":           {"skin cancer screening"},
	"cold":           {"cold/flu"},
	"flu":            {"cold/flu"},
	"cough":          {"cold/flu"},
	"fever":          {"cold/flu"},
	"sore throat":    {"cold/flu"},
	"checkup":        {"general checkup", "preventive care"},
	"check-up":       {"general checkup", "preventive care"},
	"physical":       {"general checkup", "preventive care"},
	"chest":          {"chest discomfort", "heart health"},
	"chest pain":     {"chest discomfort", "heart health"},
	"heart":          {"heart health"},
	"blood pressure": {"hypertension"},
	"sugar":          {"diabetes"},
	"knee":           {"knee injury", "sports injuries"},
	"sprain":         {"sports injuries"},
	"joint":          {"arthritis"},
	"joints":         {"arthritis"},
	"broken":         {"fractures"},
	"tired":          {"fatigue"},
	"exhausted":      {"fatigue"},
	"memory":         {"memory issues"},
	"forgetful":      {"memory issues"},
}

// ComplaintTerms derives the lower-cased matching terms for a chief complaint:
// content words, adjacent-word pairs and their synonyms. The result is sorted.
func ComplaintTerms(complaint string) []string {
	words := tokenize(complaint)
	set := make(map[string]bool)
	add := func(term string) {
		if term == "" || set[term] {
			return
		}
		set[term] = true
		for _, syn := range synonyms[term] {
			set[syn] = true
		}
	}
	for i, w := range words {
		add(w)
		if i+1 < len(words) {
			add(w + " " + words[i+1])
		}
	}
	if len(words) > 0 {
		add(strings.Join(words, " "))
	}

	out := make([]string, 0, len(set))
	for term := range set {
		out = append(out, term)
	}
	sort.Strings(out)
	return out
}

// tagTerms are the terms a condition tag answers to: the whole tag and its
// specific words.
func tagTerms(tag string) []string {
	norm := normalizeText(tag)
	if norm == "" {
		return nil
	}
	out := []string{norm}
	for _, w := range tokenize(tag) {
		if !genericWords[w] && w != norm {
			out = append(out, w)
		}
	}
	return out
}

func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '/' && r != '-' && r != '\''
	})
	var out []string
	for _, f := range fields {
		f = strings.Trim(strings.ReplaceAll(f, "'", ""), "-/")
		if f != "" && !stopWords[f] {
			out = append(out, f)
		}
	}
	return out
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

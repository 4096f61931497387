package intake

import (
	"regexp"
	"strconv"
	"strings"
)

type matchResult int

const (
	noMatch matchResult = iota
	uniqueMatch
	ambiguousMatch
	// outOfRange is a position past the end of the list, such as "4" of three.
	outOfRange
)

var ordinals = map[string]int{
	"first": 1, "second": 2, "third": 3, "fourth": 4, "fifth": 5,
	"sixth": 6, "seventh": 7, "eighth": 8, "ninth": 9, "tenth": 10,
	"1st": 1, "2nd": 2, "3rd": 3, "4th": 4, "5th": 5,
	"6th": 6, "7th": 7, "8th": 8, "9th": 9, "10th": 10,
}

var selectionFillers = map[string]bool{
	"i": true, "ill": true, "id": true, "want": true, "like": true, "take": true,
	"lets": true, "do": true, "go": true, "with": true, "give": true, "me": true,
	"pick": true, "choose": true, "option": true, "number": true, "choice": true,
	"the": true, "please": true, "slot": true, "time": true, "see": true,
	"book": true, "a": true, "an": true, "for": true, "at": true, "on": true,
	"how": true, "about": true, "would": true, "okay": true, "ok": true,
	"dr": true, "doctor": true, "provider": true, "#": true,
}

var (
	selectionPunctRe = regexp.MustCompile(`[^a-z0-9:# ]+`)
	meridiemRe       = regexp.MustCompile(`(\d)(am|pm)\b`)
	spacesRe         = regexp.MustCompile(`\s+`)
)

// selectionTokens lowercases text, drops punctuation and filler words, and
// spells times as "2:30 pm".
func selectionTokens(text string) []string {
	s := strings.ToLower(text)
	s = strings.NewReplacer("a.m.", "am", "p.m.", "pm", "'", "", "’", "").Replace(s)
	s = selectionPunctRe.ReplaceAllString(s, " ")
	s = meridiemRe.ReplaceAllString(s, "$1 $2")
	s = strings.TrimSpace(spacesRe.ReplaceAllString(s, " "))
	var out []string
	for _, tok := range strings.Split(s, " ") {
		if tok == "" || selectionFillers[tok] {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// ordinal reads "2", "#2", "the second one" or "option 3". ok is false when
// the text is anything more than an ordinal.
func ordinal(text string) (int, bool) {
	tokens := selectionTokens(text)
	if len(tokens) == 2 && tokens[1] == "one" {
		tokens = tokens[:1]
	}
	if len(tokens) != 1 {
		return 0, false
	}
	tok := strings.TrimPrefix(tokens[0], "#")
	if n, ok := ordinals[tok]; ok {
		return n, true
	}
	if tok == "one" {
		return 1, true
	}
	n, err := strconv.Atoi(tok)
	if err != nil {
		return 0, false
	}
	return n, true
}

// resolve picks one of options from text, first by position and then by
// comparing words. An exact match outranks a partial one; equal top ranks
// are ambiguous. A position outside the list never falls through to word
// matching, so "4" cannot pick a "March 4" label.
func resolve(text string, options []string) (int, matchResult) {
	if n, ok := ordinal(text); ok {
		if n < 1 || n > len(options) {
			return -1, outOfRange
		}
		return n - 1, uniqueMatch
	}
	query := selectionTokens(text)
	if len(query) == 0 {
		return -1, noMatch
	}
	q := strings.Join(query, " ")

	best, bestRank, ties := -1, 0, 0
	for i, opt := range options {
		tokens := selectionTokens(opt)
		o := strings.Join(tokens, " ")
		rank := 0
		switch {
		case o == q:
			rank = 2
		case strings.Contains(o, q) || subset(query, tokens):
			rank = 1
		}
		switch {
		case rank == 0:
		case rank > bestRank:
			best, bestRank, ties = i, rank, 1
		case rank == bestRank:
			ties++
		}
	}
	switch {
	case best < 0:
		return -1, noMatch
	case ties > 1:
		return -1, ambiguousMatch
	}
	return best, uniqueMatch
}

func subset(query, tokens []string) bool {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	for _, q := range query {
		if !set[q] {
			return false
		}
	}
	return true
}

var providerChangeWords = []string{"provider", "doctor", "dr", "physician", "someone else", "somebody else", "different person"}

// wantsOtherProvider reports whether a rejection is about the provider rather
// than the time.
func wantsOtherProvider(text string) bool {
	s := " " + strings.Join(strings.Fields(selectionPunctRe.ReplaceAllString(strings.ToLower(text), " ")), " ") + " "
	for _, w := range providerChangeWords {
		if strings.Contains(s, " "+w+" ") {
			return true
		}
	}
	return false
}

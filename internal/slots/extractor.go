package slots

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Status tags an extracted value.
type Status int

const (
	StatusAbsent Status = iota
	StatusValid
	StatusInvalid
)

func (s Status) String() string {
	switch s {
	case StatusValid:
		return "valid"
	case StatusInvalid:
		return "invalid"
	default:
		return "absent"
	}
}

// Extraction is the outcome for one field. Raw keeps what the user typed so an
// invalid value can be echoed back.
type Extraction struct {
	Field  Field
	Value  string
	Raw    string
	Status Status
	Err    error
}

// Result maps every field of the requested schema to its extraction.
type Result map[Field]Extraction

// Valid returns the normalized value when f was extracted and passed validation.
func (r Result) Valid(f Field) (string, bool) {
	e, ok := r[f]
	if !ok || e.Status != StatusValid {
		return "", false
	}
	return e.Value, true
}

// Invalid lists the invalid extractions in schema order.
func (r Result) Invalid(schema Schema) []Extraction {
	var out []Extraction
	for _, f := range schema {
		if e, ok := r[f]; ok && e.Status == StatusInvalid {
			out = append(out, e)
		}
	}
	return out
}

// Stated reports whether the user gave any value, valid or not.
func (r Result) Stated() bool {
	for _, e := range r {
		if e.Status != StatusAbsent {
			return true
		}
	}
	return false
}

// RawSource proposes unnormalized values for the fields in schema. Fields the
// text does not mention must be left out of the map.
type RawSource interface {
	ExtractRaw(ctx context.Context, text string, schema Schema) (map[Field]string, error)
}

// ErrSourceUnavailable wraps failures of the optional model source.
var ErrSourceUnavailable = errors.New("slots: extraction source unavailable")

// Extractor combines the deterministic rules with an optional model source.
// Rule matches take precedence; the model only fills fields the rules missed.
// Every value from either source goes through Normalize.
type Extractor struct {
	rules RawSource
	model RawSource
}

func NewExtractor(model RawSource) *Extractor {
	return &Extractor{rules: Rules{}, model: model}
}

func (e *Extractor) Extract(ctx context.Context, text string, schema Schema) (Result, error) {
	raw, err := e.rules.ExtractRaw(ctx, text, schema)
	if err != nil {
		return nil, err
	}
	if e.model != nil && missingAny(raw, schema) {
		modelRaw, err := e.model.ExtractRaw(ctx, text, schema)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
		}
		for f, v := range modelRaw {
			if _, ok := raw[f]; !ok && schema.Has(f) {
				raw[f] = v
			}
		}
	}
	return Build(raw, schema), nil
}

// Build normalizes raw values into a Result covering every schema field.
func Build(raw map[Field]string, schema Schema) Result {
	result := make(Result, len(schema))
	for _, f := range schema {
		v := strings.TrimSpace(raw[f])
		if v == "" {
			result[f] = Extraction{Field: f, Status: StatusAbsent}
			continue
		}
		norm, err := Normalize(f, v)
		if err != nil {
			result[f] = Extraction{Field: f, Raw: v, Status: StatusInvalid, Err: err}
			continue
		}
		result[f] = Extraction{Field: f, Value: norm, Raw: v, Status: StatusValid}
	}
	return result
}

func missingAny(raw map[Field]string, schema Schema) bool {
	for _, f := range schema {
		if strings.TrimSpace(raw[f]) == "" {
			return true
		}
	}
	return false
}

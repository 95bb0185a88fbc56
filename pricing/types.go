package pricing

import (
	"fmt"
	"math"
	"strings"
)

// Program is the service tier selected by the grower. It determines which
// tier table and flat fees apply.
type Program string

// Supported programs.
const (
	ProgramRemoteOnly        Program = "REMOTE_ONLY"
	ProgramSprayerPlusRemote Program = "SPRAYER_PLUS_REMOTE"
)

// ParseProgram canonicalises a program identifier. Unknown values fail with
// a ValidationError so the adapter can map them to a 400.
func ParseProgram(s string) (Program, error) {
	switch Program(strings.ToUpper(strings.TrimSpace(s))) {
	case ProgramRemoteOnly:
		return ProgramRemoteOnly, nil
	case ProgramSprayerPlusRemote:
		return ProgramSprayerPlusRemote, nil
	default:
		return "", validationErrorf("unknown program %q", s)
	}
}

// Field is a user-drawn land parcel, the atomic unit of pricing. Fields are
// immutable once submitted and live only for the duration of one request.
type Field struct {
	ID    string  `json:"id"`
	Name  string  `json:"name,omitempty"`
	Acres float64 `json:"area_acres"`
}

// LineItem is the priced contribution of a single field.
type LineItem struct {
	FieldID     string  `json:"field_id"`
	FieldName   string  `json:"field_name,omitempty"`
	Acres       float64 `json:"acres"`
	RatePerAcre Amount  `json:"rate_per_acre"`
	Subtotal    Amount  `json:"subtotal"`
}

// Quote is the complete priced result for a set of fields under a program.
// Lines preserve input field order; consumers rely on positional
// correspondence when rendering.
type Quote struct {
	Program           Program    `json:"program"`
	Lines             []LineItem `json:"lines"`
	AnnualTotal       Amount     `json:"annual_total"`
	SprayerFee        Amount     `json:"sprayer_fee"`
	TotalDueFirstYear Amount     `json:"total_due_first_year"`
}

// ValidateFields performs the structural checks of the quote schema: at
// least one field, positive finite acreage, non-blank unique identifiers.
func ValidateFields(fields []Field) error {
	if len(fields) == 0 {
		return validationErrorf("at least one field is required")
	}
	seen := make(map[string]struct{}, len(fields))
	for i, f := range fields {
		id := strings.TrimSpace(f.ID)
		if id == "" {
			return validationErrorf("field %d: id is required", i)
		}
		if _, ok := seen[id]; ok {
			return validationErrorf("field %q: duplicate id", id)
		}
		seen[id] = struct{}{}
		if math.IsNaN(f.Acres) || math.IsInf(f.Acres, 0) {
			return validationErrorf("field %q: acreage must be a finite number", id)
		}
		if f.Acres <= 0 {
			return validationErrorf("field %q: acreage must be positive, got %v", id, f.Acres)
		}
	}
	return nil
}

func (p Program) valid() bool {
	return p == ProgramRemoteOnly || p == ProgramSprayerPlusRemote
}

// UnmarshalJSON parses and validates the program enum on decode.
func (p *Program) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	parsed, err := ParseProgram(raw)
	if err != nil {
		return fmt.Errorf("program: %w", err)
	}
	*p = parsed
	return nil
}

package promo

import (
	"encoding/json"
	"fmt"
	"math"
)

// Rule kind tags as stored in the promo_rule JSON column.
const (
	KindBulk     = "bulk"
	KindBuyXGetY = "buy_x_get_y"
)

// ValidationError reports an input field that violates its constraint.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("promo: %s: %s", e.Field, e.Message)
}

func invalid(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// Rule is the closed set of promotion rule variants. Exactly two types
// implement it: Bulk and BuyXGetY. Adding a variant requires updating
// every type switch over Rule, which the compiler surfaces through the
// unexported marker method.
type Rule interface {
	// Validate checks the rule's own field constraints.
	Validate() error
	// Kind returns the wire tag for the rule variant.
	Kind() string

	isRule()
}

// Bulk bills every Threshold units together at the flat bundle Price,
// regardless of the item's unit price. Units beyond complete bundles
// are billed at the plain unit price.
type Bulk struct {
	Threshold int     `json:"threshold"`
	Price     float64 `json:"price"`
}

func (Bulk) isRule() {}

// Kind returns the bulk wire tag.
func (Bulk) Kind() string { return KindBulk }

// Validate checks bulk rule field constraints.
func (r Bulk) Validate() error {
	if r.Threshold <= 0 {
		return invalid("threshold", "must be a positive integer")
	}
	if !isFinite(r.Price) {
		return invalid("price", "must be a finite number")
	}
	if r.Price < 0 {
		return invalid("price", "must be nonnegative")
	}
	return nil
}

// BuyXGetY gives Free unpaid units for every Buy paid units. Units
// short of a complete buy+free set are always paid in full.
type BuyXGetY struct {
	Buy  int `json:"buy"`
	Free int `json:"free"`
}

func (BuyXGetY) isRule() {}

// Kind returns the buy-x-get-y wire tag.
func (BuyXGetY) Kind() string { return KindBuyXGetY }

// Validate checks buy-x-get-y rule field constraints.
func (r BuyXGetY) Validate() error {
	if r.Buy <= 0 {
		return invalid("buy", "must be a positive integer")
	}
	if r.Free <= 0 {
		return invalid("free", "must be a positive integer")
	}
	return nil
}

type ruleEnvelope struct {
	Type      string   `json:"type"`
	Threshold *int     `json:"threshold,omitempty"`
	Price     *float64 `json:"price,omitempty"`
	Buy       *int     `json:"buy,omitempty"`
	Free      *int     `json:"free,omitempty"`
}

// ParseRule decodes the discriminated JSON form of a promotion rule.
// A nil or JSON-null payload yields a nil rule. Unknown type tags and
// missing variant fields are rejected.
func ParseRule(data []byte) (Rule, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	var env ruleEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, invalid("rule", "malformed promotion rule payload")
	}
	switch env.Type {
	case KindBulk:
		if env.Threshold == nil {
			return nil, invalid("threshold", "is required for bulk rules")
		}
		if env.Price == nil {
			return nil, invalid("price", "is required for bulk rules")
		}
		rule := Bulk{Threshold: *env.Threshold, Price: *env.Price}
		if err := rule.Validate(); err != nil {
			return nil, err
		}
		return rule, nil
	case KindBuyXGetY:
		if env.Buy == nil {
			return nil, invalid("buy", "is required for buy_x_get_y rules")
		}
		if env.Free == nil {
			return nil, invalid("free", "is required for buy_x_get_y rules")
		}
		rule := BuyXGetY{Buy: *env.Buy, Free: *env.Free}
		if err := rule.Validate(); err != nil {
			return nil, err
		}
		return rule, nil
	default:
		return nil, invalid("type", fmt.Sprintf("unknown promotion rule type %q", env.Type))
	}
}

// EncodeRule serialises a rule back to its discriminated JSON form.
// A nil rule encodes as JSON null.
func EncodeRule(rule Rule) ([]byte, error) {
	if rule == nil {
		return []byte("null"), nil
	}
	switch r := rule.(type) {
	case Bulk:
		return json.Marshal(struct {
			Type      string  `json:"type"`
			Threshold int     `json:"threshold"`
			Price     float64 `json:"price"`
		}{Type: KindBulk, Threshold: r.Threshold, Price: r.Price})
	case BuyXGetY:
		return json.Marshal(struct {
			Type string `json:"type"`
			Buy  int    `json:"buy"`
			Free int    `json:"free"`
		}{Type: KindBuyXGetY, Buy: r.Buy, Free: r.Free})
	default:
		return nil, fmt.Errorf("promo: unsupported rule type %T", rule)
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Package validate evaluates declarative rule sets over untrusted request
// payloads. Every rule bound to a field runs unconditionally so the caller
// receives the full list of violations, not just the first one. The package
// never touches storage.
package validate

import (
	"fmt"
	"regexp"
	"unicode/utf8"
)

// Payload holds the named fields of a request. A key missing from the map is
// an absent field and its rules are skipped.
type Payload map[string]string

// Violation records a single failed rule for a field.
type Violation struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// Result is the ordered list of violations produced by a rule set. An empty
// result signals acceptance.
type Result []Violation

// OK reports whether the payload passed every rule.
func (r Result) OK() bool { return len(r) == 0 }

// Rule checks one field value. A nil return means the value passed.
type Rule interface {
	Check(field, value string) *Violation
}

type fieldRules struct {
	name  string
	rules []Rule
}

type crossRule struct {
	field string
	other string
}

// RuleSet binds rules to named fields and declares cross-field constraints.
// Rule sets are immutable once built and safe for concurrent use.
type RuleSet struct {
	fields []fieldRules
	cross  []crossRule
}

// NewRuleSet returns an empty rule set.
func NewRuleSet() *RuleSet {
	return &RuleSet{}
}

// Field binds rules to the named field. Rules run in the order given.
func (rs *RuleSet) Field(name string, rules ...Rule) *RuleSet {
	rs.fields = append(rs.fields, fieldRules{name: name, rules: rules})
	return rs
}

// MustMatch declares that other must hold the same value as field. The rule
// is symmetric: it observes both fields and fires a single violation,
// attributed to other, when their values differ.
func (rs *RuleSet) MustMatch(field, other string) *RuleSet {
	rs.cross = append(rs.cross, crossRule{field: field, other: other})
	return rs
}

// Validate runs every declared rule against the payload and returns the
// aggregated violations in declaration order.
func (rs *RuleSet) Validate(p Payload) Result {
	var result Result
	for _, fr := range rs.fields {
		value, present := p[fr.name]
		if !present {
			continue
		}
		for _, rule := range fr.rules {
			if v := rule.Check(fr.name, value); v != nil {
				result = append(result, *v)
			}
		}
	}
	for _, cr := range rs.cross {
		a, okA := p[cr.field]
		b, okB := p[cr.other]
		if !okA && !okB {
			continue
		}
		if a != b {
			result = append(result, Violation{
				Field:   cr.other,
				Rule:    "must_match",
				Message: fmt.Sprintf("must match %s", cr.field),
			})
		}
	}
	return result
}

// lengthRule bounds the field length counted in Unicode code points. A zero
// bound is open on that side.
type lengthRule struct {
	min int
	max int
}

// Length requires the field length to lie in [min, max]. Pass 0 to leave a
// bound open.
func Length(min, max int) Rule { return lengthRule{min: min, max: max} }

// MinLength requires the field to be at least min code points long.
func MinLength(min int) Rule { return lengthRule{min: min} }

// MaxLength requires the field to be at most max code points long.
func MaxLength(max int) Rule { return lengthRule{max: max} }

func (r lengthRule) Check(field, value string) *Violation {
	n := utf8.RuneCountInString(value)
	if r.min > 0 && n < r.min {
		return &Violation{
			Field:   field,
			Rule:    "length",
			Message: fmt.Sprintf("must be at least %d characters", r.min),
		}
	}
	if r.max > 0 && n > r.max {
		return &Violation{
			Field:   field,
			Rule:    "length",
			Message: fmt.Sprintf("must be at most %d characters", r.max),
		}
	}
	return nil
}

// emailPattern is a syntactic check only: something@domain with at least one
// dot in the domain. It is deliberately not a full RFC 5322 validator.
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

type emailRule struct{}

// Email requires the field to look like an email address.
func Email() Rule { return emailRule{} }

func (emailRule) Check(field, value string) *Violation {
	if emailPattern.MatchString(value) {
		return nil
	}
	return &Violation{
		Field:   field,
		Rule:    "email",
		Message: "must be a valid email address",
	}
}

type patternRule struct {
	name    string
	re      *regexp.Regexp
	message string
}

// Match requires the field to match the given pattern. Each policy keeps its
// own rule so failures carry a message naming the missing character class;
// composite policies are expressed as several Match rules on one field.
func Match(name string, re *regexp.Regexp, message string) Rule {
	return patternRule{name: name, re: re, message: message}
}

func (r patternRule) Check(field, value string) *Violation {
	if r.re.MatchString(value) {
		return nil
	}
	return &Violation{Field: field, Rule: r.name, Message: r.message}
}

var (
	upperPattern = regexp.MustCompile(`\p{Lu}`)
	lowerPattern = regexp.MustCompile(`\p{Ll}`)
	digitPattern = regexp.MustCompile(`[0-9]`)
)

// HasUppercase requires at least one uppercase letter.
func HasUppercase() Rule {
	return Match("uppercase", upperPattern, "must contain an uppercase letter")
}

// HasLowercase requires at least one lowercase letter.
func HasLowercase() Rule {
	return Match("lowercase", lowerPattern, "must contain a lowercase letter")
}

// HasDigit requires at least one digit.
func HasDigit() Rule {
	return Match("digit", digitPattern, "must contain a digit")
}

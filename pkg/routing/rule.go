package routing

import (
	"fmt"
	"strings"
)

// ruleFormat is the message shown for rules that are not "pattern=providers".
const ruleFormat = "format should be pattern=provider1,provider2"

// PatternKind identifies how a pattern is compared against a model name.
type PatternKind int

const (
	// KindExact matches only the identical model name.
	KindExact PatternKind = iota
	// KindPrefix matches model names starting with the literal ("gpt-*").
	KindPrefix
	// KindSuffix matches model names ending with the literal ("*-instruct").
	KindSuffix
	// KindContains matches model names containing the literal ("*claude*").
	KindContains
)

// String returns the lowercase kind name used in logs.
func (k PatternKind) String() string {
	switch k {
	case KindExact:
		return "exact"
	case KindPrefix:
		return "prefix"
	case KindSuffix:
		return "suffix"
	case KindContains:
		return "contains"
	default:
		return "unknown"
	}
}

// Pattern is a compiled model-name pattern. Wildcards are only recognised
// as the first and/or last character; there is no regex and no case folding.
type Pattern struct {
	raw     string
	kind    PatternKind
	literal string
}

// CompilePattern classifies raw into one of the four pattern kinds.
// A lone "*" (or "**") is a contains-pattern with an empty literal and
// therefore matches every model.
func CompilePattern(raw string) Pattern {
	p := Pattern{raw: raw}

	leading := strings.HasPrefix(raw, "*")
	trailing := strings.HasSuffix(raw, "*")

	switch {
	case raw == "*":
		p.kind = KindContains
	case leading && trailing:
		p.kind = KindContains
		p.literal = raw[1 : len(raw)-1]
	case leading:
		p.kind = KindSuffix
		p.literal = raw[1:]
	case trailing:
		p.kind = KindPrefix
		p.literal = raw[:len(raw)-1]
	default:
		p.kind = KindExact
		p.literal = raw
	}

	return p
}

// Match reports whether model satisfies the pattern.
func (p Pattern) Match(model string) bool {
	switch p.kind {
	case KindContains:
		return strings.Contains(model, p.literal)
	case KindSuffix:
		return strings.HasSuffix(model, p.literal)
	case KindPrefix:
		return strings.HasPrefix(model, p.literal)
	default:
		return model == p.literal
	}
}

// Kind returns the pattern kind.
func (p Pattern) Kind() PatternKind { return p.kind }

// String returns the pattern as it was configured.
func (p Pattern) String() string { return p.raw }

// Rule maps a model-name pattern to an ordered list of upstream providers.
type Rule struct {
	Pattern   Pattern
	Providers []string
}

// String renders the rule back into its "pattern=p1,p2" form.
func (r Rule) String() string {
	return fmt.Sprintf("%s=%s", r.Pattern.raw, strings.Join(r.Providers, ","))
}

// ParseRule parses a single "pattern=provider1,provider2" rule.
//
// The pattern and every provider are trimmed of surrounding whitespace.
// Blank provider entries ("a,,b") are dropped; a rule that ends up with no
// providers, or with an empty pattern, is rejected.
func ParseRule(s string) (Rule, error) {
	return parseRule(s, -1)
}

func parseRule(s string, index int) (Rule, error) {
	parts := strings.Split(s, "=")
	if len(parts) != 2 {
		return Rule{}, &ConfigError{Rule: s, Index: index, Message: ruleFormat}
	}

	pattern := strings.TrimSpace(parts[0])
	if pattern == "" {
		return Rule{}, &ConfigError{Rule: s, Index: index, Message: "pattern must not be empty"}
	}

	var providers []string
	for _, p := range strings.Split(parts[1], ",") {
		if p = strings.TrimSpace(p); p != "" {
			providers = append(providers, p)
		}
	}
	if len(providers) == 0 {
		return Rule{}, &ConfigError{Rule: s, Index: index, Message: "at least one provider is required"}
	}

	return Rule{
		Pattern:   CompilePattern(pattern),
		Providers: providers,
	}, nil
}

// Package routing resolves model names to ordered upstream provider lists.
//
// A Table is built once at startup from "pattern=provider1,provider2" rules
// and is read-only afterwards, so it can be shared by every request
// goroutine without locking.
package routing

// Table is an ordered, immutable list of routing rules.
// The zero value is an empty table that never matches.
type Table struct {
	rules []Rule
}

// NewTable builds a table from already parsed rules, preserving their order.
func NewTable(rules ...Rule) *Table {
	t := &Table{rules: make([]Rule, len(rules))}
	for i, r := range rules {
		t.rules[i] = Rule{Pattern: r.Pattern, Providers: cloneStrings(r.Providers)}
	}
	return t
}

// ParseRules parses every rule in declaration order. The first malformed
// rule aborts parsing with a *ConfigError naming its position.
func ParseRules(specs []string) (*Table, error) {
	rules := make([]Rule, 0, len(specs))
	for i, s := range specs {
		r, err := parseRule(s, i)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return &Table{rules: rules}, nil
}

// Resolve returns the providers of the first rule whose pattern matches
// model. The returned slice is a copy owned by the caller.
func (t *Table) Resolve(model string) ([]string, bool) {
	r, ok := t.Match(model)
	if !ok {
		return nil, false
	}
	return r.Providers, true
}

// Match returns a copy of the first rule whose pattern matches model.
func (t *Table) Match(model string) (Rule, bool) {
	if t == nil {
		return Rule{}, false
	}
	for _, r := range t.rules {
		if r.Pattern.Match(model) {
			return Rule{Pattern: r.Pattern, Providers: cloneStrings(r.Providers)}, true
		}
	}
	return Rule{}, false
}

// Rules returns a copy of the configured rules in declaration order.
func (t *Table) Rules() []Rule {
	if t == nil {
		return nil
	}
	out := make([]Rule, len(t.rules))
	for i, r := range t.rules {
		out[i] = Rule{Pattern: r.Pattern, Providers: cloneStrings(r.Providers)}
	}
	return out
}

// Len returns the number of rules.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rules)
}

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

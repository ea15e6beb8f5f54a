package routing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompilePattern(t *testing.T) {
	tests := []struct {
		pattern string
		model   string
		kind    PatternKind
		want    bool
	}{
		{"*anthropic/claude*", "foo-anthropic/claude-v1", KindContains, true},
		{"*anthropic/claude*", "anthropic/claude", KindContains, true},
		{"*anthropic/claude*", "openai/gpt-4", KindContains, false},
		{"gpt-*", "gpt-4", KindPrefix, true},
		{"gpt-*", "mygpt-4", KindPrefix, false},
		{"*-instruct", "llama-3-instruct", KindSuffix, true},
		{"*-instruct", "llama-3-instruct-v2", KindSuffix, false},
		{"exact", "exact", KindExact, true},
		{"exact", "exactly", KindExact, false},
		{"exact", "Exact", KindExact, false},
		{"*", "anything", KindContains, true},
		{"**", "", KindContains, true},
		{"gpt.4", "gpt-4", KindExact, false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"/"+tt.model, func(t *testing.T) {
			p := CompilePattern(tt.pattern)
			assert.Equal(t, tt.kind, p.Kind())
			assert.Equal(t, tt.want, p.Match(tt.model))
			assert.Equal(t, tt.pattern, p.String())
		})
	}
}

func TestParseRule(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		pattern   string
		providers []string
		wantErr   bool
	}{
		{name: "single provider", input: "gpt-*=openai", pattern: "gpt-*", providers: []string{"openai"}},
		{name: "ordered providers", input: "gpt-*=openai,azure", pattern: "gpt-*", providers: []string{"openai", "azure"}},
		{name: "whitespace trimmed", input: " *claude* = anthropic , bedrock ", pattern: "*claude*", providers: []string{"anthropic", "bedrock"}},
		{name: "blank entries dropped", input: "m=a,,b,", pattern: "m", providers: []string{"a", "b"}},
		{name: "missing equals", input: "gpt-4", wantErr: true},
		{name: "two equals", input: "a=b=c", wantErr: true},
		{name: "no providers", input: "gpt-*=", wantErr: true},
		{name: "only commas", input: "gpt-*= , ,", wantErr: true},
		{name: "empty pattern", input: "=openai", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := ParseRule(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidRule))
				var cfgErr *ConfigError
				require.ErrorAs(t, err, &cfgErr)
				assert.Equal(t, tt.input, cfgErr.Rule)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.pattern, r.Pattern.String())
			assert.Equal(t, tt.providers, r.Providers)
		})
	}
}

func TestParseRulesReportsIndex(t *testing.T) {
	_, err := ParseRules([]string{"a*=x", "broken"})
	require.Error(t, err)

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, 1, cfgErr.Index)
	assert.Contains(t, err.Error(), "#2")
	assert.Contains(t, err.Error(), "pattern=provider1,provider2")
}

func TestTableResolveFirstMatchWins(t *testing.T) {
	table, err := ParseRules([]string{
		"gpt-4*=openai",
		"gpt-*=openai,azure",
		"*claude*=anthropic",
		"*=fallback",
	})
	require.NoError(t, err)
	require.Equal(t, 4, table.Len())

	tests := []struct {
		model string
		want  []string
	}{
		{"gpt-4o", []string{"openai"}},
		{"gpt-3.5-turbo", []string{"openai", "azure"}},
		{"anthropic/claude-3-opus", []string{"anthropic"}},
		{"mistral-large", []string{"fallback"}},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			got, ok := table.Resolve(tt.model)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTableResolveNoMatch(t *testing.T) {
	table, err := ParseRules([]string{"gpt-*=openai"})
	require.NoError(t, err)

	got, ok := table.Resolve("claude-3")
	assert.False(t, ok)
	assert.Nil(t, got)

	var empty *Table
	_, ok = empty.Resolve("gpt-4")
	assert.False(t, ok)
	assert.Equal(t, 0, empty.Len())
}

func TestTableIsImmutable(t *testing.T) {
	table, err := ParseRules([]string{"gpt-*=openai,azure"})
	require.NoError(t, err)

	got, _ := table.Resolve("gpt-4")
	got[0] = "mutated"

	rules := table.Rules()
	rules[0].Providers[1] = "mutated"

	again, _ := table.Resolve("gpt-4")
	assert.Equal(t, []string{"openai", "azure"}, again)
}

func TestRuleString(t *testing.T) {
	r, err := ParseRule("gpt-* = openai, azure")
	require.NoError(t, err)
	assert.Equal(t, "gpt-*=openai,azure", r.String())
}

func TestNewTableCopiesRules(t *testing.T) {
	gpt, err := ParseRule("gpt-*=openai")
	require.NoError(t, err)
	claude, err := ParseRule("*claude*=anthropic,bedrock")
	require.NoError(t, err)

	table := NewTable(gpt, claude)
	claude.Providers[0] = "mutated"

	require.Equal(t, 2, table.Len())
	providers, ok := table.Resolve("anthropic/claude-3")
	require.True(t, ok)
	assert.Equal(t, []string{"anthropic", "bedrock"}, providers)

	var empty Table
	_, ok = empty.Resolve("gpt-4")
	assert.False(t, ok)
}

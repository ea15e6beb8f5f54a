// Package transform rewrites inbound JSON request bodies to carry an
// upstream provider routing hint.
//
// Only two fields are ever written: "model" (explicit-provider mode only)
// and "provider.order". Edits are applied in place with sjson, so every
// other byte of the body, including unknown fields and key order, reaches
// the upstream unchanged.
package transform

import (
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"mercator-hq/orproxy/pkg/proxy"
	"mercator-hq/orproxy/pkg/routing"
)

const (
	modelField    = "model"
	providerField = "provider"
	orderField    = "order"
)

// Mode selects where the provider list comes from.
type Mode int

const (
	// ModePassthrough never touches the body.
	ModePassthrough Mode = iota
	// ModeExplicit uses the provider named in the request path.
	ModeExplicit
	// ModeTable resolves providers from the routing table using the body's model.
	ModeTable
)

// String returns the mode name used in logs and metrics.
func (m Mode) String() string {
	switch m {
	case ModeExplicit:
		return "explicit"
	case ModeTable:
		return "table"
	default:
		return "passthrough"
	}
}

// RouteContext describes how the body of one request may be rewritten.
type RouteContext struct {
	// Rewrite is true only for chat/completions and embeddings endpoints.
	Rewrite bool

	// Mode selects explicit, table or passthrough routing.
	Mode Mode

	// Provider is the path-supplied provider; used when Mode is ModeExplicit.
	Provider string
}

// Result is the outcome of a transform.
type Result struct {
	// Body is the bytes to forward upstream.
	Body []byte

	// Model is the "model" value read from the body, empty when absent or not a string.
	Model string

	// Providers is the provider.order written into the body, nil when untouched.
	Providers []string

	// Matched reports whether a routing rule matched (table mode).
	Matched bool

	// ModelRewritten reports whether "model" was qualified as "<provider>/<model>".
	ModelRewritten bool
}

// Transformer applies routing rewrites. It is safe for concurrent use.
type Transformer struct {
	table *routing.Table
}

// New creates a transformer resolving table-mode requests against table.
// A nil table never matches.
func New(table *routing.Table) *Transformer {
	return &Transformer{table: table}
}

// Transform rewrites body for rc. When rewriting is disabled the body is
// returned as-is without being parsed. A body that is not a JSON object
// yields a *proxy.ParseError and no partially rewritten output.
func (t *Transformer) Transform(body []byte, rc RouteContext) (Result, error) {
	if !rc.Rewrite || rc.Mode == ModePassthrough {
		return Result{Body: body}, nil
	}

	if !gjson.ValidBytes(body) || !utf8.Valid(body) {
		return Result{}, &proxy.ParseError{Message: "Invalid JSON request body"}
	}
	if !gjson.ParseBytes(body).IsObject() {
		return Result{}, &proxy.ParseError{Message: "Request body must be a JSON object"}
	}

	var err error
	for _, key := range []string{modelField, providerField} {
		if body, err = collapseDuplicate(body, key); err != nil {
			return Result{}, &proxy.ParseError{Message: "Failed to serialize modified request body", Err: err}
		}
	}

	res := Result{Body: body}
	model := gjson.GetBytes(body, modelField)
	if model.Type == gjson.String {
		res.Model = model.Str
	}

	switch rc.Mode {
	case ModeExplicit:
		res, err = t.explicit(res, model, rc.Provider)
	case ModeTable:
		res, err = t.resolve(res, model)
	}
	if err != nil {
		return Result{}, &proxy.ParseError{Message: "Failed to serialize modified request body", Err: err}
	}

	return res, nil
}

// explicit qualifies the model with provider unless it already names one,
// then pins provider.order to [provider].
func (t *Transformer) explicit(res Result, model gjson.Result, provider string) (Result, error) {
	out := res.Body
	var err error

	if model.Type == gjson.String && !strings.Contains(model.Str, "/") {
		out, err = sjson.SetBytes(out, modelField, provider+"/"+model.Str)
		if err != nil {
			return res, err
		}
		res.ModelRewritten = true
	}

	order := []string{provider}
	if out, err = SetProviderOrder(out, order); err != nil {
		return res, err
	}

	res.Body = out
	res.Providers = order
	return res, nil
}

// resolve looks the model up in the routing table. On a match provider.order
// is replaced by the rule's providers; the model is never rewritten.
func (t *Transformer) resolve(res Result, model gjson.Result) (Result, error) {
	if model.Type != gjson.String {
		return res, nil
	}

	providers, ok := t.table.Resolve(model.Str)
	if !ok {
		return res, nil
	}

	out, err := SetProviderOrder(res.Body, providers)
	if err != nil {
		return res, err
	}

	res.Body = out
	res.Providers = providers
	res.Matched = true
	return res, nil
}

// collapseDuplicate leaves a single top-level key holding its last value
// when body repeats key. gjson and sjson address the first occurrence while
// most JSON decoders keep the last, so the rewrite and the upstream would
// otherwise disagree on which value is in effect.
func collapseDuplicate(body []byte, key string) ([]byte, error) {
	var count int
	var last string
	gjson.ParseBytes(body).ForEach(func(k, v gjson.Result) bool {
		if k.Str == key {
			count++
			last = v.Raw
		}
		return true
	})
	if count < 2 {
		return body, nil
	}

	out := body
	var err error
	for range count {
		if out, err = sjson.DeleteBytes(out, key); err != nil {
			return nil, err
		}
	}
	return sjson.SetRawBytes(out, key, []byte(last))
}

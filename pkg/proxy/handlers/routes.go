package handlers

import "net/http"

// Route patterns served by the proxy. Every method is accepted.
const (
	PatternChatCompletions = "/api/v1/chat/completions"
	PatternEmbeddings      = "/api/v1/embeddings"
	PatternModels          = "/api/v1/models"
	PatternExplicit        = "/v1/{provider}/{path...}"
	PatternPassthrough     = "/v1/{path...}"
	PatternAPIPassthrough  = "/api/v1/{path...}"
	PatternFallback        = "/"
)

// Register adds the proxy routes to mux.
//
//	/api/v1/chat/completions     table routing, body rewritten
//	/api/v1/embeddings           table routing, body rewritten
//	/api/v1/models               forwarded as-is
//	/v1/{provider}/{path...}     explicit provider
//	/v1/{path...}                forwarded as-is
//	/api/v1/{path...}            forwarded as-is
//
// Anything else gets a 404 error envelope. Health and metrics routes are
// more specific and are registered by their own packages.
func (p *Proxy) Register(mux *http.ServeMux) {
	mux.Handle(PatternChatCompletions, p.Table(EndpointChatCompletions))
	mux.Handle(PatternEmbeddings, p.Table(EndpointEmbeddings))
	mux.Handle(PatternModels, p.Table(EndpointModels))
	mux.Handle(PatternExplicit, p.Explicit())
	mux.Handle(PatternPassthrough, p.Passthrough(1))
	mux.Handle(PatternAPIPassthrough, p.Passthrough(2))
	mux.Handle(PatternFallback, p.NotFound())
}

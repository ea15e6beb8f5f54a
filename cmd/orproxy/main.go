// orproxy is a reverse HTTP proxy in front of the OpenRouter API.
//
// It forwards OpenAI-compatible requests to OpenRouter, re-issuing the
// caller's bearer token, and pins the upstream inference provider either
// from a model-pattern routing table or from an explicit provider segment
// in the request path. Event-stream responses are relayed chunk by chunk.
//
// Usage:
//
//	# Start with defaults (0.0.0.0:3000, https://openrouter.ai/api/v1)
//	orproxy run
//
//	# Route GPT models to OpenAI and Claude models to Anthropic or Bedrock
//	orproxy run --route 'gpt-*=openai' --route '*claude*=anthropic,bedrock'
//
//	# Serve HTTPS
//	orproxy run --https --tls-cert cert.pem --tls-key key.pem
//
//	# Show which rule a model would hit
//	orproxy routes --model anthropic/claude-3-opus
//
//	# Check a configuration file
//	orproxy validate --config orproxy.yaml
package main

func main() {
	Execute()
}

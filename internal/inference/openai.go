// Package inference implements the inference service contract against any
// OpenAI-compatible chat completion endpoint. The service proposes dependency
// edges for code that does not compile and judges candidate completeness; its
// answers are confidence-weighted suggestions, never facts.
package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"ctxslice/internal/errors"
	"ctxslice/internal/graph"
	"ctxslice/internal/logging"
	"ctxslice/internal/providers"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// DefaultModel is used when the configuration names none.
const DefaultModel = "gpt-4o-mini"

// DefaultTimeout bounds each inference call.
const DefaultTimeout = 30 * time.Second

// Config holds the endpoint settings.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Client is an InferenceService backed by a chat completion endpoint.
type Client struct {
	model   string
	timeout time.Duration
	logger  *logging.Logger

	// complete sends one prompt pair and returns the raw completion text.
	complete func(ctx context.Context, system, user string) (string, error)
}

// NewClient builds a client. An empty API key is allowed for local
// OpenAI-compatible servers that ignore authentication.
func NewClient(cfg Config, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.NewNop()
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	api := openai.NewClient(opts...)

	c := &Client{
		model:   cfg.Model,
		timeout: cfg.Timeout,
		logger:  logger,
	}
	c.complete = func(ctx context.Context, system, user string) (string, error) {
		resp, err := api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model: shared.ChatModel(c.model),
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.SystemMessage(system),
				openai.UserMessage(user),
			},
		})
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("empty completion")
		}
		return resp.Choices[0].Message.Content, nil
	}
	return c
}

const proposeSystem = `You analyze source code that may not compile and list the symbols it depends on.
Respond with a JSON array only, no prose. Each element:
{"name": "<symbol name>", "kind": "calls|reads|writes|defines", "confidence": <0.0-1.0>}`

// Propose asks the service for dependency edges from the target source.
func (c *Client) Propose(ctx context.Context, req providers.ProposeRequest) ([]providers.ProposedEdge, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Language: %s\n\nSource:\n%s\n", req.Language, req.Source)
	if len(req.Hints) > 0 {
		b.WriteString("\nFocus on these reportedly missing dependencies:\n")
		for _, h := range req.Hints {
			fmt.Fprintf(&b, "- %s", h.Name)
			if h.Reason != "" {
				fmt.Fprintf(&b, " (%s)", h.Reason)
			}
			b.WriteByte('\n')
		}
	}

	raw, err := c.call(ctx, proposeSystem, b.String())
	if err != nil {
		return nil, err
	}

	var parsed []struct {
		Name       string  `json:"name"`
		Kind       string  `json:"kind"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(stripFences(raw)), &parsed); err != nil {
		return nil, errors.New(errors.InferenceUnavailable, "malformed proposal response", err)
	}

	edges := make([]providers.ProposedEdge, 0, len(parsed))
	for _, p := range parsed {
		if p.Name == "" {
			continue
		}
		edges = append(edges, providers.ProposedEdge{
			Name:       p.Name,
			Kind:       edgeKind(p.Kind),
			Confidence: clamp(p.Confidence),
		})
	}
	c.logger.Debug("Proposals received", map[string]interface{}{"count": len(edges)})
	return edges, nil
}

const checkSystem = `You judge whether a dependency list is complete for an edit intent.
Respond with a JSON array only, no prose. List each missing dependency as
{"name": "<symbol name>", "reason": "<why it is needed>"}. Respond with [] when complete.`

// CheckComplete asks whether the current edge set covers the stated intent.
func (c *Client) CheckComplete(ctx context.Context, g *graph.Graph, intent string) ([]providers.MissingHint, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Edit intent: %s\n\nRoot: %s\n\nKnown dependencies:\n", intent, g.RootID())
	for _, e := range g.Edges() {
		fmt.Fprintf(&b, "- %s %s %s\n", e.From, e.Kind, e.To)
	}

	raw, err := c.call(ctx, checkSystem, b.String())
	if err != nil {
		return nil, err
	}

	var hints []providers.MissingHint
	if err := json.Unmarshal([]byte(stripFences(raw)), &hints); err != nil {
		return nil, errors.New(errors.InferenceUnavailable, "malformed completeness response", err)
	}
	return hints, nil
}

func (c *Client) call(ctx context.Context, system, user string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	raw, err := c.complete(callCtx, system, user)
	if err != nil {
		if callCtx.Err() != nil {
			return "", errors.New(errors.ProviderTimeout, "inference call exceeded deadline", err)
		}
		return "", errors.New(errors.InferenceUnavailable, "inference call failed", err)
	}
	return raw, nil
}

// stripFences removes a surrounding markdown code fence, which chat models
// add despite instructions.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func edgeKind(s string) graph.EdgeKind {
	switch graph.EdgeKind(s) {
	case graph.EdgeCalls, graph.EdgeReads, graph.EdgeWrites, graph.EdgeDefines:
		return graph.EdgeKind(s)
	default:
		return graph.EdgeCalls
	}
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Package oracle serializes all calls to the external generative
// decision/dialogue service and normalizes its failures into safe
// defaults.
package oracle

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// completer is the slice of the OpenAI-compatible client the gateway
// uses; narrowed for test doubles.
type completer interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Config tunes the gateway.
type Config struct {
	APIKey        string
	BaseURL       string // empty = default endpoint
	Model         string
	MinInterval   time.Duration // global gap between any two outbound calls
	ThinkDelayMin time.Duration // simulated thinking pause before each call
	ThinkDelayMax time.Duration
}

// decideSystemPrompt instructs the service to answer with a structured
// action payload.
const decideSystemPrompt = `You decide the character's next action from the provided situation.
Reply with a single JSON object containing these fields:
- action: one of move, gather, eat, drink, give, talk, reflect, rest, idle
- target: a position {"x": ..., "y": ...}, a name or resource type string, or null
- details: a short description of the action (for give: "item,amount")
- volume: "normal" or "loud" for talk, otherwise null

Example: {"action": "move", "target": {"x": 10.5, "y": 7.2}, "details": "heading northeast to find water", "volume": null}`

// Gateway owns the per-role running histories and the single-slot rate
// limiter that serializes every outbound call, regardless of caller.
type Gateway struct {
	client completer
	model  string

	mu        sync.Mutex
	lastCall  time.Time
	histories map[string][]openai.ChatCompletionMessage

	minInterval   time.Duration
	thinkDelayMin time.Duration
	thinkDelayMax time.Duration

	rng   *rand.Rand
	now   func() time.Time
	sleep func(time.Duration)
}

// New creates a gateway. An empty API key disables the transport: every
// call immediately yields its documented default.
func New(cfg Config) *Gateway {
	g := &Gateway{
		model:         cfg.Model,
		histories:     make(map[string][]openai.ChatCompletionMessage),
		minInterval:   cfg.MinInterval,
		thinkDelayMin: cfg.ThinkDelayMin,
		thinkDelayMax: cfg.ThinkDelayMax,
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
		now:           time.Now,
		sleep:         time.Sleep,
	}
	if cfg.APIKey != "" {
		oc := openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			oc.BaseURL = cfg.BaseURL
		}
		g.client = openai.NewClientWithConfig(oc)
	}
	return g
}

// Enabled reports whether a transport is configured.
func (g *Gateway) Enabled() bool {
	return g != nil && g.client != nil
}

// Converse asks the service for a free-text utterance. Returns an empty
// string on any failure; callers must treat that as "no utterance
// produced". The user turn is rolled back on failure so the running
// history never holds an unanswered turn.
func (g *Gateway) Converse(role, prompt string) string {
	if !g.Enabled() {
		return ""
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	hist := append(g.histories[role], openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	reply, err := g.call(hist)
	if err != nil {
		slog.Warn("oracle converse failed", "role", role, "error", err)
		return "" // history unchanged: the user turn was never committed
	}

	g.histories[role] = append(hist, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleAssistant,
		Content: reply,
	})
	return reply
}

// Decide asks the service for a structured action. Any transport or
// payload failure yields the default rest action; a transport failure
// also rolls the system and user turns back out of the history.
func (g *Gateway) Decide(role, prompt string) Action {
	if !g.Enabled() {
		return DefaultAction()
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	hist := append(g.histories[role],
		openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: decideSystemPrompt},
		openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt},
	)

	reply, err := g.call(hist)
	if err != nil {
		slog.Warn("oracle decide failed", "role", role, "error", err)
		return DefaultAction()
	}

	payload := extractJSON(reply)
	g.histories[role] = append(hist, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleAssistant,
		Content: payload,
	})

	action, err := ParseAction(payload)
	if err != nil {
		slog.Warn("oracle action unparseable", "role", role, "error", err)
		return DefaultAction()
	}
	return action
}

// HistoryLen returns the length of a role's running history.
func (g *Gateway) HistoryLen(role string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.histories[role])
}

// call performs one serialized outbound request. The caller holds the
// mutex, which is what makes the minimum interval global: a second
// caller blocks until the first call and its interval are spent.
func (g *Gateway) call(messages []openai.ChatCompletionMessage) (string, error) {
	if wait := g.minInterval - g.now().Sub(g.lastCall); wait > 0 {
		g.sleep(wait)
	}
	g.sleep(g.thinkDelay())
	g.lastCall = g.now()

	resp, err := g.client.CreateChatCompletion(context.Background(), openai.ChatCompletionRequest{
		Model:    g.model,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("oracle call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("oracle returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (g *Gateway) thinkDelay() time.Duration {
	if g.thinkDelayMax <= g.thinkDelayMin {
		return g.thinkDelayMin
	}
	return g.thinkDelayMin + time.Duration(g.rng.Int63n(int64(g.thinkDelayMax-g.thinkDelayMin)))
}

// extractJSON pulls an embedded JSON object out of surrounding prose by
// matching the first '{' to the last '}'. Returns the input unchanged
// when no object is found.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end <= start {
		return s
	}
	return s[start : end+1]
}

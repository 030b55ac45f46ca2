package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/chiayulin/mindcoach/backend/internal/config"
	"github.com/chiayulin/mindcoach/backend/internal/fallback"
	"github.com/chiayulin/mindcoach/backend/internal/model/persona"
)

// Reason 標記一次補全失敗的類別。
type Reason string

const (
	ReasonRateLimited Reason = "rate_limited"
	ReasonTimeout     Reason = "timeout"
	ReasonEmpty       Reason = "empty"
	ReasonUnknown     Reason = "unknown"
)

// capacityMessage is the fixed user-safe reply for quota exhaustion.
const capacityMessage = "現在找我聊天的人比較多，請給我幾分鐘喘口氣，稍後再傳一次訊息給我，謝謝你的耐心。"

// Result is the outcome of one completion call. Text is always safe to show
// the end user; the raw upstream error never travels in it.
type Result struct {
	Text     string
	Degraded bool
	Reason   Reason
}

// Service encapsulates persona-scoped access to the completion model and the
// degradation policy applied when it fails.
type Service struct {
	chatModel model.ChatModel
	chain     compose.Runnable[map[string]any, *schema.Message]
	pool      *fallback.Pool
	timeout   time.Duration
}

// NewService creates the completion gateway from the Ark configuration.
func NewService(ctx context.Context, cfg config.AIConfig, pool *fallback.Pool) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return newService(ctx, chatModel, pool, cfg.RequestTimeout)
}

func newService(ctx context.Context, chatModel model.ChatModel, pool *fallback.Pool, timeout time.Duration) (*Service, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	if timeout <= 0 {
		timeout = 8 * time.Second
	}

	return &Service{
		chatModel: chatModel,
		chain:     runnable,
		pool:      pool,
		timeout:   timeout,
	}, nil
}

// Complete sends text under the persona's fixed instruction and always comes
// back with user-safe reply text: generated on success, degraded otherwise.
// Safe for concurrent use; the service holds only immutable configuration.
func (s *Service) Complete(ctx context.Context, p persona.Persona, text string) Result {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	response, err := s.chain.Invoke(callCtx, map[string]any{
		"system": buildSystemPrompt(p),
		"query":  text,
	})
	if err != nil {
		reason := classifyFailure(callCtx, err)
		log.Printf("[ai] completion failed for persona=%s reason=%s: %v", p.ID, reason, err)
		return s.degrade(text, reason)
	}

	reply := strings.TrimSpace(response.Content)
	if reply == "" {
		log.Printf("[ai] completion returned empty text for persona=%s", p.ID)
		return s.degrade(text, ReasonEmpty)
	}

	return Result{Text: boundReply(reply, p.MaxReplyLen)}
}

// degrade substitutes the fixed or deterministic user-safe text for a failed
// completion. Quota exhaustion gets the capacity apology; everything else
// gets the stable pool pick seeded by the user's text.
func (s *Service) degrade(seed string, reason Reason) Result {
	if reason == ReasonRateLimited {
		return Result{Text: capacityMessage, Degraded: true, Reason: reason}
	}
	return Result{Text: s.pool.Pick(seed), Degraded: true, Reason: reason}
}

// classifyFailure is the single place an upstream error maps onto the fixed
// failure taxonomy. The call context decides timeouts so classification does
// not depend on how the model wraps cancellation errors.
func classifyFailure(ctx context.Context, err error) Reason {
	if ctx.Err() == context.DeadlineExceeded {
		return ReasonTimeout
	}

	var coder interface{ StatusCode() int }
	if errors.As(err, &coder) {
		if coder.StatusCode() == 429 {
			return ReasonRateLimited
		}
		return ReasonUnknown
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"rate limit", "too many requests", "quota", "insufficient_quota"} {
		if strings.Contains(msg, marker) {
			return ReasonRateLimited
		}
	}

	return ReasonUnknown
}

func boundReply(text string, max int) string {
	if max < 1 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max])
}

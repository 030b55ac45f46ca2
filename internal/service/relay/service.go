// Package relay routes verified webhook events through the completion
// gateway and on to reply delivery, one event at a time.
package relay

import (
	"context"
	"log"

	"github.com/chiayulin/mindcoach/backend/internal/config"
	"github.com/chiayulin/mindcoach/backend/internal/model/persona"
	"github.com/chiayulin/mindcoach/backend/internal/model/webhook"
	"github.com/chiayulin/mindcoach/backend/internal/service/ai"
	"github.com/chiayulin/mindcoach/backend/internal/service/history"
)

// unsupportedMessage 是非文字訊息的固定回覆，不經過模型。
const unsupportedMessage = "我還看不懂這種訊息，先用文字跟我分享今天的心情吧。"

// Completer produces user-safe reply text for bounded input.
type Completer interface {
	Complete(ctx context.Context, p persona.Persona, text string) ai.Result
}

// ReplySender delivers one reply message for a reply token.
type ReplySender interface {
	Reply(ctx context.Context, replyToken, text string) error
}

// State is the terminal state of one event's delivery.
type State string

const (
	StateDelivered State = "delivered"
	StateFailed    State = "failed"
	StateSkipped   State = "skipped"
)

// Outcome pairs an event with how its delivery ended.
type Outcome struct {
	Event webhook.Event
	State State
	Err   error
}

// Service is the per-request event dispatcher. It holds only immutable
// configuration and stateless collaborators, so concurrent webhook requests
// can share one instance.
type Service struct {
	completer  Completer
	sender     ReplySender
	recorder   history.Recorder
	coach      persona.Persona
	maxTextLen int
}

// NewService wires the dispatcher to its collaborators.
func NewService(completer Completer, sender ReplySender, recorder history.Recorder, coach persona.Persona, cfg config.RelayConfig) *Service {
	return &Service{
		completer:  completer,
		sender:     sender,
		recorder:   recorder,
		coach:      coach,
		maxTextLen: cfg.MaxTextLength,
	}
}

// Dispatch processes events strictly in payload order: the reply for event i
// is issued before event i+1 starts. A delivery failure on one event never
// stops the rest of the payload.
func (s *Service) Dispatch(ctx context.Context, payload webhook.Payload) []Outcome {
	outcomes := make([]Outcome, 0, len(payload.Events))

	for _, ev := range payload.Events {
		outcomes = append(outcomes, s.dispatchOne(ctx, ev))
	}
	return outcomes
}

func (s *Service) dispatchOne(ctx context.Context, ev webhook.Event) Outcome {
	if ev.Kind == webhook.KindInvalid {
		log.Printf("[relay] dropping event with unrecognized shape")
		return Outcome{Event: ev, State: StateSkipped}
	}

	// 沒有 reply token 的事件無法回覆，直接略過。
	if ev.ReplyToken == "" {
		return Outcome{Event: ev, State: StateSkipped}
	}

	if ev.Kind == webhook.KindOther {
		return s.deliver(ctx, ev, unsupportedMessage, false)
	}

	text := webhook.Truncate(ev.Text, s.maxTextLen)
	result := s.completer.Complete(ctx, s.coach, text)

	outcome := s.deliver(ctx, ev, result.Text, result.Degraded)
	if outcome.State == StateDelivered {
		s.record(ctx, ev, text, result)
	}
	return outcome
}

func (s *Service) deliver(ctx context.Context, ev webhook.Event, text string, degraded bool) Outcome {
	if err := s.sender.Reply(ctx, ev.ReplyToken, text); err != nil {
		log.Printf("[relay] reply delivery failed (degraded=%v): %v", degraded, err)
		return Outcome{Event: ev, State: StateFailed, Err: err}
	}
	return Outcome{Event: ev, State: StateDelivered}
}

func (s *Service) record(ctx context.Context, ev webhook.Event, inbound string, result ai.Result) {
	if s.recorder == nil {
		return
	}
	_, err := s.recorder.Record(ctx, history.Interaction{
		Source:   history.SourceWebhook,
		UserRef:  ev.ReplyToken,
		Inbound:  inbound,
		Outbound: result.Text,
		Degraded: result.Degraded,
	})
	if err != nil {
		log.Printf("[relay] failed to record interaction: %v", err)
	}
}

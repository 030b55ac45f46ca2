package webhook

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedPayload reports a body that is not valid webhook JSON.
var ErrMalformedPayload = errors.New("malformed webhook payload")

// Kind 標記事件解析後的類別。
type Kind string

const (
	// KindText 文字訊息事件，走完整的補全管線。
	KindText Kind = "text"
	// KindOther 可辨識但不支援的事件（貼圖、圖片、follow 等）。
	KindOther Kind = "other"
	// KindInvalid 形狀不完整、無法歸類的事件。
	KindInvalid Kind = "invalid"
)

// Event is one platform event after strict parse-and-classify.
type Event struct {
	Kind       Kind
	ReplyToken string
	Text       string
}

// Payload 是通過簽章驗證後解析出的事件序列。
type Payload struct {
	Destination string
	Events      []Event
}

type wirePayload struct {
	Destination string      `json:"destination"`
	Events      []wireEvent `json:"events"`
}

type wireEvent struct {
	Type       string       `json:"type"`
	ReplyToken string       `json:"replyToken"`
	Message    *wireMessage `json:"message"`
}

type wireMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Parse decodes verified raw bytes into classified events. It must only be
// called with bytes that already passed signature validation. An empty or
// missing events array is valid and yields zero events.
func Parse(raw []byte) (Payload, error) {
	var wire wirePayload
	if err := json.Unmarshal(raw, &wire); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	payload := Payload{Destination: wire.Destination}
	if len(wire.Events) == 0 {
		return payload, nil
	}

	payload.Events = make([]Event, 0, len(wire.Events))
	for _, ev := range wire.Events {
		payload.Events = append(payload.Events, classify(ev))
	}
	return payload, nil
}

// classify maps a wire event onto the supported variants. Unknown shapes are
// modelled explicitly instead of being optional-chained around.
func classify(ev wireEvent) Event {
	if ev.Type == "" {
		return Event{Kind: KindInvalid, ReplyToken: ev.ReplyToken}
	}

	if ev.Type == "message" && ev.Message != nil && ev.Message.Type == "text" {
		return Event{Kind: KindText, ReplyToken: ev.ReplyToken, Text: ev.Message.Text}
	}

	return Event{Kind: KindOther, ReplyToken: ev.ReplyToken}
}

// Truncate bounds user text to max characters. Shorter input passes through
// untouched; longer input is cut to exactly max code points.
func Truncate(text string, max int) string {
	if max < 1 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max])
}

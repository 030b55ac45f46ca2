// Package history records completed question/answer exchanges. Durable
// persistence is deliberately not implemented; Recorder is the seam a real
// store will plug into later.
package history

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Source 標記互動來自哪個入口。
type Source string

const (
	SourceWebhook Source = "webhook"
	SourceChat    Source = "chat"
)

// Interaction 紀錄一次完整的問答往返。
type Interaction struct {
	ID        string
	Source    Source
	UserRef   string
	Inbound   string
	Outbound  string
	Degraded  bool
	CreatedAt time.Time
}

// Recorder accepts finished interactions and hands back their assigned ID.
type Recorder interface {
	Record(ctx context.Context, it Interaction) (string, error)
}

// MemoryRecorder keeps a bounded window of recent interactions for operators.
type MemoryRecorder struct {
	mu    sync.Mutex
	items []Interaction
	limit int
}

// NewMemoryRecorder bootstraps the in-memory recorder. limit bounds how many
// interactions are retained; older entries fall off the front.
func NewMemoryRecorder(limit int) *MemoryRecorder {
	if limit < 1 {
		limit = 256
	}
	return &MemoryRecorder{items: make([]Interaction, 0, limit), limit: limit}
}

// Record assigns an identifier and timestamp, then retains the interaction.
func (r *MemoryRecorder) Record(_ context.Context, it Interaction) (string, error) {
	it.ID = uuid.NewString()
	if it.CreatedAt.IsZero() {
		it.CreatedAt = time.Now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.items = append(r.items, it)
	if len(r.items) > r.limit {
		r.items = r.items[len(r.items)-r.limit:]
	}
	return it.ID, nil
}

// Recent returns up to n of the newest interactions, newest last.
func (r *MemoryRecorder) Recent(n int) []Interaction {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n < 1 || n > len(r.items) {
		n = len(r.items)
	}
	out := make([]Interaction, n)
	copy(out, r.items[len(r.items)-n:])
	return out
}

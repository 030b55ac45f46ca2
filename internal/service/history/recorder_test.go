package history

import (
	"context"
	"testing"
)

func TestRecordAssignsIDAndTimestamp(t *testing.T) {
	rec := NewMemoryRecorder(10)

	id, err := rec.Record(context.Background(), Interaction{
		Source:   SourceChat,
		Inbound:  "hi",
		Outbound: "hello",
	})
	if err != nil {
		t.Fatalf("unexpected record error: %v", err)
	}
	if id == "" {
		t.Fatalf("expected assigned interaction id")
	}

	recent := rec.Recent(1)
	if len(recent) != 1 {
		t.Fatalf("expected 1 interaction, got %d", len(recent))
	}
	if recent[0].ID != id || recent[0].CreatedAt.IsZero() {
		t.Fatalf("interaction not fully populated: %+v", recent[0])
	}
}

func TestRecorderBoundsRetention(t *testing.T) {
	rec := NewMemoryRecorder(3)
	for i := 0; i < 10; i++ {
		if _, err := rec.Record(context.Background(), Interaction{Source: SourceWebhook}); err != nil {
			t.Fatalf("record %d failed: %v", i, err)
		}
	}

	if got := len(rec.Recent(0)); got != 3 {
		t.Fatalf("expected retention bounded to 3, got %d", got)
	}
}

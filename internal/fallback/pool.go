// Package fallback provides the deterministic degraded-reply pool used when
// the completion service cannot produce usable text.
package fallback

// Pool 是一組固定的降級回覆，初始化後不再變動。
type Pool struct {
	entries []string
}

// NewPool copies the supplied entries into an immutable pool. It panics on an
// empty list because a relay without any degraded reply cannot run at all.
func NewPool(entries []string) *Pool {
	if len(entries) == 0 {
		panic("fallback: pool must not be empty")
	}
	return &Pool{entries: append([]string(nil), entries...)}
}

// Default seeds the Mind Coach degraded replies.
func Default() *Pool {
	return NewPool([]string{
		"我在這裡，先陪你深呼吸一下。想多說一點剛剛發生的事嗎？",
		"聽起來今天不太容易。先把最困擾你的一件事寫下來，我們一步一步看。",
		"謝謝你願意說出來。先喝口水、放鬆肩膀，等等再繼續聊聊好嗎？",
		"你的感受是真實的，不需要急著解決。想從哪裡開始整理都可以。",
		"現在先照顧好自己最重要。晚一點想聊的時候，我都在。",
	})
}

// Size returns the number of entries in the pool.
func (p *Pool) Size() int {
	return len(p.entries)
}

// Pick selects one entry deterministically from the seed text: the same seed
// always lands on the same entry, so repeated identical failures read as a
// stable experience instead of random canned text. The empty seed maps to the
// first entry.
func (p *Pool) Pick(seed string) string {
	h := 0
	for _, r := range seed {
		h = (h*31 + int(r)) % len(p.entries)
	}
	return p.entries[h]
}

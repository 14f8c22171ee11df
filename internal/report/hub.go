package report

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"
)

// DefaultChannel is the channel key the calculator publishes on.
const DefaultChannel = "ownervalue:model"

// Update is a model published on a channel.
type Update struct {
	Channel string          `json:"channel"`
	Model   json.RawMessage `json:"model"`
	At      time.Time       `json:"at"`
}

// Hub keeps the latest model per channel and fans updates out to
// subscribers. A slow subscriber misses intermediate updates but always
// receives the latest one.
type Hub struct {
	mu     sync.Mutex
	latest map[string]Update
	subs   map[string]map[chan Update]struct{}
	now    func() time.Time
}

func NewHub() *Hub {
	return &Hub{
		latest: make(map[string]Update),
		subs:   make(map[string]map[chan Update]struct{}),
		now:    time.Now,
	}
}

// Channel normalizes a channel key; blank means DefaultChannel.
func Channel(key string) string {
	if key = strings.TrimSpace(key); key == "" {
		return DefaultChannel
	}
	return key
}

// Publish stores model as the latest value of channel and notifies
// subscribers.
func (h *Hub) Publish(channel string, model json.RawMessage) Update {
	channel = Channel(channel)
	u := Update{Channel: channel, Model: append(json.RawMessage(nil), model...), At: h.now()}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.latest[channel] = u
	for ch := range h.subs[channel] {
		deliver(ch, u)
	}
	return u
}

// Latest returns the last model published on channel.
func (h *Hub) Latest(channel string) (Update, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	u, ok := h.latest[Channel(channel)]
	return u, ok
}

// Subscribe returns a channel of updates for channel, primed with the latest
// value if any. It is closed when ctx is done.
func (h *Hub) Subscribe(ctx context.Context, channel string) <-chan Update {
	channel = Channel(channel)
	ch := make(chan Update, 1)

	h.mu.Lock()
	if h.subs[channel] == nil {
		h.subs[channel] = make(map[chan Update]struct{})
	}
	h.subs[channel][ch] = struct{}{}
	if u, ok := h.latest[channel]; ok {
		ch <- u
	}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs[channel], ch)
		if len(h.subs[channel]) == 0 {
			delete(h.subs, channel)
		}
		close(ch)
		h.mu.Unlock()
	}()
	return ch
}

// Subscribers reports how many subscribers listen on channel.
func (h *Hub) Subscribers(channel string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[Channel(channel)])
}

// deliver replaces a pending value with u. Callers hold h.mu, so the drain
// and the send cannot race another publisher.
func deliver(ch chan Update, u Update) {
	select {
	case ch <- u:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- u:
	default:
	}
}

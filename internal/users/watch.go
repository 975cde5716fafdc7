package users

import "sync"

// ChangeEvent is one store mutation broadcast to websocket watchers.
type ChangeEvent struct {
	Type string `json:"type"` // created, replaced, deleted
	User *User  `json:"user"`
}

// changeFeed fans out store mutations to subscribers. Slow subscribers drop
// events rather than block the request path.
type changeFeed struct {
	mu     sync.Mutex
	subs   map[chan ChangeEvent]struct{}
	closed bool
}

func newChangeFeed() *changeFeed {
	return &changeFeed{subs: map[chan ChangeEvent]struct{}{}}
}

func (f *changeFeed) subscribe() chan ChangeEvent {
	ch := make(chan ChangeEvent, 16)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		close(ch)
		return ch
	}
	f.subs[ch] = struct{}{}
	return ch
}

func (f *changeFeed) unsubscribe(ch chan ChangeEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.subs[ch]; ok {
		delete(f.subs, ch)
		close(ch)
	}
}

func (f *changeFeed) publish(ev ChangeEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subs {
		select { // non-blocking push
		case ch <- ev:
		default:
		}
	}
}

func (f *changeFeed) close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	for ch := range f.subs {
		delete(f.subs, ch)
		close(ch)
	}
}

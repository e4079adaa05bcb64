package service

import "sync"

// broadcaster fans values out to subscribers without ever blocking the
// publisher: a subscriber whose buffer is full loses its oldest value.
type broadcaster[T any] struct {
	mu      sync.Mutex
	subs    map[int]chan T
	next    int
	buffer  int
	current T
	has     bool
	closed  bool
}

func newBroadcaster[T any](buffer int) *broadcaster[T] {
	if buffer < 1 {
		buffer = 1
	}
	return &broadcaster[T]{subs: make(map[int]chan T), buffer: buffer}
}

// subscribe returns a channel that starts with the current value, if any,
// followed by every later publish, and a cancel func. The channel is closed
// on cancel or when the broadcaster closes.
func (b *broadcaster[T]) subscribe() (<-chan T, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan T, b.buffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.next
	b.next++
	b.subs[id] = ch
	if b.has {
		ch <- b.current
	}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
		})
	}
}

// publish records v as current and offers it to every subscriber. It
// reports how many subscribers had to drop an older value.
func (b *broadcaster[T]) publish(v T) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0
	}
	b.current = v
	b.has = true

	dropped := 0
	for _, ch := range b.subs {
		select {
		case ch <- v:
			continue
		default:
		}
		select {
		case <-ch:
			dropped++
		default:
		}
		select {
		case ch <- v:
		default:
		}
	}
	return dropped
}

func (b *broadcaster[T]) last() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current, b.has
}

func (b *broadcaster[T]) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}

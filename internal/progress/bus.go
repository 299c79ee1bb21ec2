package progress

import (
	"log/slog"
	"sync"
	"time"

	"alchemy/internal/logging"
)

// Message is one ephemeral human-readable status line for a session.
type Message struct {
	Text string `json:"text"`
	TS   int64  `json:"ts"`
}

// NewMessage builds a message stamped with the current wall clock.
func NewMessage(text string) Message {
	return Message{Text: text, TS: time.Now().UnixMilli()}
}

// subscriberBuffer bounds how far a slow listener may fall behind before
// messages are dropped for it. Other subscribers are unaffected.
const subscriberBuffer = 64

type subscriber struct {
	ch   chan Message
	done chan struct{}
}

// Bus fans messages out to the subscribers of a session.
type Bus struct {
	mu       sync.Mutex
	sessions map[string]map[*subscriber]struct{}
	logger   *slog.Logger
}

// NewBus constructs an empty bus. The logger may be nil.
func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		sessions: make(map[string]map[*subscriber]struct{}),
		logger:   logging.NewComponentLogger(logger, "progress-bus"),
	}
}

// Publish delivers msg to every current subscriber of session in publish
// order. With no subscribers it is a no-op. Publish never blocks on a slow
// listener; when a subscriber's buffer is full the message is dropped for
// that subscriber only.
func (b *Bus) Publish(session string, msg Message) {
	if b == nil {
		return
	}
	if msg.TS == 0 {
		msg.TS = time.Now().UnixMilli()
	}

	b.mu.Lock()
	subs := make([]*subscriber, 0, len(b.sessions[session]))
	for sub := range b.sessions[session] {
		subs = append(subs, sub)
	}
	b.mu.Unlock()

	for _, sub := range subs {
		select {
		case sub.ch <- msg:
		case <-sub.done:
		default:
			b.logger.Warn("subscriber buffer full, dropping message",
				logging.String(logging.FieldSession, session))
		}
	}
}

// Subscribe registers fn for session and returns a function that removes
// exactly this subscription. fn is invoked from a dedicated goroutine, one
// message at a time, in publish order. Panics in fn are recovered and logged.
func (b *Bus) Subscribe(session string, fn func(Message)) func() {
	sub := &subscriber{
		ch:   make(chan Message, subscriberBuffer),
		done: make(chan struct{}),
	}

	b.mu.Lock()
	set, ok := b.sessions[session]
	if !ok {
		set = make(map[*subscriber]struct{})
		b.sessions[session] = set
	}
	set[sub] = struct{}{}
	b.mu.Unlock()

	go b.deliver(session, sub, fn)

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			if set, ok := b.sessions[session]; ok {
				delete(set, sub)
				if len(set) == 0 {
					delete(b.sessions, session)
				}
			}
			b.mu.Unlock()
			close(sub.done)
		})
	}
}

// SubscriberCount reports how many listeners a session currently has.
func (b *Bus) SubscriberCount(session string) int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sessions[session])
}

func (b *Bus) deliver(session string, sub *subscriber, fn func(Message)) {
	for {
		select {
		case <-sub.done:
			return
		case msg := <-sub.ch:
			b.invoke(session, fn, msg)
		}
	}
}

func (b *Bus) invoke(session string, fn func(Message), msg Message) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Warn("subscriber panicked",
				logging.String(logging.FieldSession, session),
				logging.Any("panic", r))
		}
	}()
	fn(msg)
}

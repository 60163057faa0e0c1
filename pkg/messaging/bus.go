// Package messaging provides the in-process message bus that connects
// flight-software modules. Each named channel has a single producer, any number
// of subscribers, and most-recent-value semantics: a read returns the last
// written message and never blocks or queues.
package messaging

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	customlog "github.com/adcs-fsw/rwnullspace/pkg/log"
)

// Common errors
var (
	ErrInvalidName       = errors.New("channel name cannot be empty")
	ErrUnknownChannel    = errors.New("unknown channel")
	ErrDuplicateProducer = errors.New("channel already has a producer")
	ErrTypeMismatch      = errors.New("channel message type mismatch")
)

// Header describes the most recent write on a channel.
type Header struct {
	WriteClock uint64 // call time, in ns, stamped by the producer
	WriteCount uint64 // zero means the channel was never written
}

// ChannelInfo holds metadata and statistics for a channel
type ChannelInfo struct {
	Name           string `json:"name"`
	MessageType    string `json:"message_type"`
	Producer       string `json:"producer"`
	Subscribers    int    `json:"subscribers"`
	WriteCount     uint64 `json:"write_count"`
	LastWriteClock uint64 `json:"last_write_clock"`
}

// Listener is called synchronously after each write to a channel.
// Listeners run on the writer's goroutine and must not block.
type Listener func(name string, hdr Header, payload interface{})

type listenerEntry struct {
	id int
	fn Listener
}

type channel struct {
	info      ChannelInfo
	typ       reflect.Type
	payload   interface{}
	listeners []listenerEntry
}

// Bus maintains the set of named channels
type Bus struct {
	logger         customlog.Logger
	channels       map[string]*channel
	nextListenerID int
	mu             sync.RWMutex
}

// NewBus creates an empty bus
func NewBus(logger customlog.Logger) *Bus {
	return &Bus{
		logger:   logger,
		channels: make(map[string]*channel),
	}
}

// Reader is the read-only view of a channel handed to consumers.
type Reader[T any] interface {
	Read() (T, Header)
}

// Writer is the write-only view of a channel handed to its producer.
type Writer[T any] interface {
	Write(msg T, clock uint64)
}

// Publisher writes messages of type T to one channel.
type Publisher[T any] struct {
	bus *Bus
	ch  *channel
}

// Subscription reads the latest message of type T from one channel.
type Subscription[T any] struct {
	bus *Bus
	ch  *channel
}

var (
	_ Writer[struct{}] = (*Publisher[struct{}])(nil)
	_ Reader[struct{}] = (*Subscription[struct{}])(nil)
)

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Create registers producer as the writer of channel name carrying T.
// Creating the same channel again with the same producer and type returns a
// publisher for the existing channel.
func Create[T any](b *Bus, name, producer string) (*Publisher[T], error) {
	if name == "" {
		return nil, ErrInvalidName
	}
	typ := typeOf[T]()

	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, exists := b.channels[name]; exists {
		if ch.info.Producer != producer {
			return nil, fmt.Errorf("%w: '%s' is produced by '%s'", ErrDuplicateProducer, name, ch.info.Producer)
		}
		if ch.typ != typ {
			return nil, fmt.Errorf("%w: '%s' carries %s, not %s", ErrTypeMismatch, name, ch.typ, typ)
		}
		return &Publisher[T]{bus: b, ch: ch}, nil
	}

	ch := &channel{
		info: ChannelInfo{
			Name:        name,
			MessageType: typ.String(),
			Producer:    producer,
		},
		typ: typ,
	}
	b.channels[name] = ch
	b.logger.Infof("Created channel '%s' (%s) for producer '%s'", name, typ, producer)
	return &Publisher[T]{bus: b, ch: ch}, nil
}

// Subscribe resolves a read handle on an existing channel carrying T.
// The channel must already have been created by its producer.
func Subscribe[T any](b *Bus, name, subscriber string) (*Subscription[T], error) {
	if name == "" {
		return nil, ErrInvalidName
	}
	typ := typeOf[T]()

	b.mu.Lock()
	defer b.mu.Unlock()

	ch, exists := b.channels[name]
	if !exists {
		return nil, fmt.Errorf("%w: '%s'", ErrUnknownChannel, name)
	}
	if ch.typ != typ {
		return nil, fmt.Errorf("%w: '%s' carries %s, not %s", ErrTypeMismatch, name, ch.typ, typ)
	}

	ch.info.Subscribers++
	b.logger.Debugf("'%s' subscribed to channel '%s'", subscriber, name)
	return &Subscription[T]{bus: b, ch: ch}, nil
}

// Write stores msg as the latest value and notifies listeners.
func (p *Publisher[T]) Write(msg T, clock uint64) {
	p.bus.mu.Lock()
	p.ch.payload = msg
	p.ch.info.WriteCount++
	p.ch.info.LastWriteClock = clock
	hdr := Header{WriteClock: clock, WriteCount: p.ch.info.WriteCount}
	name := p.ch.info.Name
	listeners := make([]listenerEntry, len(p.ch.listeners))
	copy(listeners, p.ch.listeners)
	p.bus.mu.Unlock()

	for _, l := range listeners {
		l.fn(name, hdr, msg)
	}
}

// Name returns the channel name
func (p *Publisher[T]) Name() string { return p.ch.info.Name }

// Read returns the latest message. A channel that was never written reads as
// the zero value of T with a zero WriteCount.
func (s *Subscription[T]) Read() (T, Header) {
	s.bus.mu.RLock()
	defer s.bus.mu.RUnlock()

	hdr := Header{WriteClock: s.ch.info.LastWriteClock, WriteCount: s.ch.info.WriteCount}
	if s.ch.payload == nil {
		var zero T
		return zero, hdr
	}
	return s.ch.payload.(T), hdr
}

// Name returns the channel name
func (s *Subscription[T]) Name() string { return s.ch.info.Name }

// AddListener attaches fn to channel name. The returned function detaches it.
func (b *Bus) AddListener(name string, fn Listener) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch, exists := b.channels[name]
	if !exists {
		return nil, fmt.Errorf("%w: '%s'", ErrUnknownChannel, name)
	}

	b.nextListenerID++
	id := b.nextListenerID
	ch.listeners = append(ch.listeners, listenerEntry{id: id, fn: fn})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, l := range ch.listeners {
			if l.id == id {
				ch.listeners = append(ch.listeners[:i], ch.listeners[i+1:]...)
				return
			}
		}
	}, nil
}

// Lookup returns a copy of the metadata for a channel
func (b *Bus) Lookup(name string) (ChannelInfo, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	ch, exists := b.channels[name]
	if !exists {
		return ChannelInfo{}, false
	}
	return ch.info, true
}

// Channels returns a snapshot of all channels sorted by name
func (b *Bus) Channels() []ChannelInfo {
	b.mu.RLock()
	defer b.mu.RUnlock()

	infos := make([]ChannelInfo, 0, len(b.channels))
	for _, ch := range b.channels {
		infos = append(infos, ch.info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

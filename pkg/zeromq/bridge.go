// Package zeromq bridges bus channels to ZeroMQ. Inbound effector records
// arrive on a SUB socket and are written to the bus by the bridge task;
// writes on outbound channels are published on a PUB socket.
package zeromq

import (
	"errors"
	"fmt"
	"sync"

	"github.com/adcs-fsw/rwnullspace/pkg/effector"
	message "github.com/adcs-fsw/rwnullspace/pkg/flatbuffers/adcs/message"
	customlog "github.com/adcs-fsw/rwnullspace/pkg/log"
	"github.com/adcs-fsw/rwnullspace/pkg/messaging"
	"github.com/adcs-fsw/rwnullspace/pkg/wire"
	"github.com/pebbe/zmq4"
)

// Common errors
var (
	ErrServiceClosed = errors.New("zeromq bridge is closed")
	ErrUnknownRoute  = errors.New("no route for topic")
	ErrKindMismatch  = errors.New("frame kind does not match route")
	ErrQueueFull     = errors.New("ingress queue is full")
)

// DefaultName is the producer name the bridge registers on the bus
const DefaultName = "zeromq-bridge"

// DefaultQueueSize bounds the frames buffered between two control cycles
const DefaultQueueSize = 64

// MessagePublisher defines the interface for publishing messages
type MessagePublisher interface {
	PublishMessage(topic string, data []byte) error
}

// Route maps an inbound topic to the bus channel it feeds
type Route struct {
	Channel string
	Kind    message.MessageKind
}

// Options configures a Bridge
type Options struct {
	Name             string
	SubscribeAddress string
	PublishAddress   string
	Inbound          []Route
	Outbound         []string
	QueueSize        int
}

// BridgeMetrics counts frames moved by the bridge
type BridgeMetrics struct {
	Received  int64 `json:"received"`
	Dropped   int64 `json:"dropped"`
	Delivered int64 `json:"delivered"`
	Published int64 `json:"published"`
	Failed    int64 `json:"failed"`
}

// Bridge is a scheduler task that moves effector records between the bus and ZeroMQ
type Bridge struct {
	opts   Options
	bus    *messaging.Bus
	logger customlog.Logger

	routes   map[string]Route
	requests map[string]*messaging.Publisher[effector.Request]
	speeds   map[string]*messaging.Publisher[effector.WheelSpeeds]
	queue    chan wire.Frame
	removers []func()

	ctx       *zmq4.Context
	receiver  *MessageReceiver
	sender    *MessageSender
	publisher MessagePublisher
	wg        sync.WaitGroup

	metrics BridgeMetrics
	mu      sync.Mutex
}

// NewBridge creates a bridge. Sockets are opened by Start.
func NewBridge(opts Options, bus *messaging.Bus, logger customlog.Logger) *Bridge {
	if opts.Name == "" {
		opts.Name = DefaultName
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}

	routes := make(map[string]Route, len(opts.Inbound))
	for _, r := range opts.Inbound {
		routes[r.Channel] = r
	}

	return &Bridge{
		opts:     opts,
		bus:      bus,
		logger:   logger.WithField("task", opts.Name),
		routes:   routes,
		requests: make(map[string]*messaging.Publisher[effector.Request]),
		speeds:   make(map[string]*messaging.Publisher[effector.WheelSpeeds]),
		queue:    make(chan wire.Frame, opts.QueueSize),
	}
}

// Name returns the task name
func (b *Bridge) Name() string { return b.opts.Name }

// Initialize creates the bus channels the bridge produces
func (b *Bridge) Initialize() error {
	for _, r := range b.opts.Inbound {
		switch r.Kind {
		case message.MessageKindEFFECTOR_REQUEST:
			pub, err := messaging.Create[effector.Request](b.bus, r.Channel, b.opts.Name)
			if err != nil {
				return fmt.Errorf("failed to create inbound channel: %w", err)
			}
			b.requests[r.Channel] = pub
		case message.MessageKindWHEEL_SPEEDS:
			pub, err := messaging.Create[effector.WheelSpeeds](b.bus, r.Channel, b.opts.Name)
			if err != nil {
				return fmt.Errorf("failed to create inbound channel: %w", err)
			}
			b.speeds[r.Channel] = pub
		default:
			return fmt.Errorf("unsupported kind %s for inbound channel '%s'", r.Kind, r.Channel)
		}
	}
	return nil
}

// Link attaches egress listeners to the outbound channels
func (b *Bridge) Link() error {
	for _, name := range b.opts.Outbound {
		remove, err := b.bus.AddListener(name, b.forward)
		if err != nil {
			return fmt.Errorf("failed to link outbound channel: %w", err)
		}
		b.removers = append(b.removers, remove)
	}
	b.logger.Infof("Bridge linked: %d inbound, %d outbound channels", len(b.opts.Inbound), len(b.opts.Outbound))
	return nil
}

// Step writes every frame received since the previous cycle to the bus,
// stamped with the producer's timestamp.
func (b *Bridge) Step(callTime uint64) {
	for {
		select {
		case f := <-b.queue:
			b.deliver(f)
		default:
			return
		}
	}
}

func (b *Bridge) deliver(f wire.Frame) {
	switch f.Kind {
	case message.MessageKindEFFECTOR_REQUEST:
		pub, ok := b.requests[f.Channel]
		if !ok {
			return
		}
		pub.Write(f.Request(), f.TimestampNs)
	case message.MessageKindWHEEL_SPEEDS:
		pub, ok := b.speeds[f.Channel]
		if !ok {
			return
		}
		pub.Write(f.WheelSpeeds(), f.TimestampNs)
	}
	b.count(func(m *BridgeMetrics) { m.Delivered++ })
}

// Enqueue decodes one inbound message and queues it for the next Step.
// It is called from the receiver goroutine.
func (b *Bridge) Enqueue(topic string, payload []byte) error {
	b.count(func(m *BridgeMetrics) { m.Received++ })

	route, ok := b.routes[topic]
	if !ok {
		b.count(func(m *BridgeMetrics) { m.Dropped++ })
		return fmt.Errorf("%w: '%s'", ErrUnknownRoute, topic)
	}

	f, err := wire.Decode(payload)
	if err != nil {
		b.count(func(m *BridgeMetrics) { m.Dropped++ })
		return fmt.Errorf("topic '%s': %w", topic, err)
	}
	if f.Kind != route.Kind {
		b.count(func(m *BridgeMetrics) { m.Dropped++ })
		return fmt.Errorf("%w: topic '%s' carries %s, got %s", ErrKindMismatch, topic, route.Kind, f.Kind)
	}
	f.Channel = route.Channel

	select {
	case b.queue <- f:
		return nil
	default:
		b.count(func(m *BridgeMetrics) { m.Dropped++ })
		return fmt.Errorf("%w: dropping frame for '%s'", ErrQueueFull, topic)
	}
}

// forward publishes a write on an outbound channel
func (b *Bridge) forward(name string, hdr messaging.Header, payload interface{}) {
	req, ok := payload.(effector.Request)
	if !ok {
		b.logger.Warnf("Outbound channel '%s' carries %T, only effector requests are bridged", name, payload)
		return
	}

	b.mu.Lock()
	publisher := b.publisher
	b.mu.Unlock()
	if publisher == nil {
		return
	}

	data := wire.Encode(wire.RequestFrame(name, hdr.WriteClock, req))
	if err := publisher.PublishMessage(name, data); err != nil {
		b.count(func(m *BridgeMetrics) { m.Failed++ })
		b.logger.Warnf("Failed to publish '%s': %v", name, err)
		return
	}
	b.count(func(m *BridgeMetrics) { m.Published++ })
}

// Start opens the sockets and begins receiving
func (b *Bridge) Start() error {
	ctx, err := zmq4.NewContext()
	if err != nil {
		return fmt.Errorf("failed to create ZMQ context: %w", err)
	}

	sender, err := newMessageSender(ctx, b.opts.PublishAddress, b.logger)
	if err != nil {
		ctx.Term()
		return err
	}

	topics := make([]string, 0, len(b.opts.Inbound))
	for _, r := range b.opts.Inbound {
		topics = append(topics, r.Channel)
	}
	receiver, err := newMessageReceiver(ctx, b.opts.SubscribeAddress, topics, b.handleFrame, b.logger, &b.wg)
	if err != nil {
		sender.Close()
		ctx.Term()
		return err
	}

	b.mu.Lock()
	b.ctx = ctx
	b.sender = sender
	b.receiver = receiver
	b.publisher = sender
	b.mu.Unlock()

	receiver.Start()
	b.logger.Infof("ZeroMQ bridge started")
	return nil
}

func (b *Bridge) handleFrame(topic string, payload []byte) {
	if err := b.Enqueue(topic, payload); err != nil {
		b.logger.Warnf("Dropping inbound message: %v", err)
	}
}

// Stop halts the receiver, detaches listeners and releases the sockets
func (b *Bridge) Stop() {
	b.mu.Lock()
	receiver, sender, ctx := b.receiver, b.sender, b.ctx
	b.receiver, b.sender, b.ctx, b.publisher = nil, nil, nil, nil
	b.mu.Unlock()

	for _, remove := range b.removers {
		remove()
	}
	b.removers = nil

	if receiver != nil {
		receiver.Stop()
		b.wg.Wait()
	}
	if sender != nil {
		sender.Close()
	}
	if ctx != nil {
		ctx.Term()
	}
	b.logger.Infof("ZeroMQ bridge stopped")
}

// Metrics returns a copy of the bridge counters
func (b *Bridge) Metrics() BridgeMetrics {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.metrics
}

func (b *Bridge) count(fn func(m *BridgeMetrics)) {
	b.mu.Lock()
	fn(&b.metrics)
	b.mu.Unlock()
}

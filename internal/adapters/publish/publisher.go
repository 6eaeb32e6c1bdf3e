package publish

import (
	"fmt"
	"sync"
	"sync/atomic"

	zmq "github.com/pebbe/zmq4"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/K13094/tap/internal/telemetry"
)

// sender is the slice of the ZMQ socket API the publisher uses; swapped in
// tests.
type sender interface {
	SendMessage(parts ...interface{}) (int, error)
	Close() error
}

type envelope struct {
	topic   string
	payload []byte
}

// Publisher owns the outbound PUB socket and its bounded queue. The tap
// connects and the node binds; topic filtering happens on the SUB side.
// Documents are msgpack-encoded, sent as two frames: topic then payload.
type Publisher struct {
	log      zerolog.Logger
	queue    chan envelope
	counters *telemetry.Counters
	sock     sender

	closed atomic.Bool
	wg     sync.WaitGroup
}

// New connects a PUB socket to the node and starts the send loop. The
// send-side high-water mark caps what ZMQ buffers during a disconnect;
// beyond that the transport drops, matching the queue policy here.
func New(log zerolog.Logger, addr string, bufSize, hwm int, counters *telemetry.Counters) (*Publisher, error) {
	sock, err := zmq.NewSocket(zmq.PUB)
	if err != nil {
		return nil, fmt.Errorf("create pub socket: %w", err)
	}
	if err := sock.SetSndhwm(hwm); err != nil {
		sock.Close()
		return nil, fmt.Errorf("set send hwm: %w", err)
	}
	if err := sock.SetLinger(0); err != nil {
		sock.Close()
		return nil, fmt.Errorf("set linger: %w", err)
	}
	if err := sock.Connect(addr); err != nil {
		sock.Close()
		return nil, fmt.Errorf("connect %s: %w", addr, err)
	}

	log.Info().Str("addr", addr).Int("hwm", hwm).Msg("publisher connected")
	return newWithSocket(log, sock, bufSize, counters), nil
}

func newWithSocket(log zerolog.Logger, sock sender, bufSize int, counters *telemetry.Counters) *Publisher {
	p := &Publisher{
		log:      log.With().Str("component", "publisher").Logger(),
		queue:    make(chan envelope, bufSize),
		counters: counters,
		sock:     sock,
	}
	p.wg.Add(1)
	go p.sendLoop()
	return p
}

// Publish encodes the document and enqueues it. Never blocks: when the
// queue is full the newest message is dropped and counted, which beats
// stalling the correlator.
func (p *Publisher) Publish(topic string, payload interface{}) {
	if p.closed.Load() {
		return
	}

	data, err := msgpack.Marshal(payload)
	if err != nil {
		p.log.Error().Err(err).Str("topic", topic).Msg("encode failed")
		return
	}

	select {
	case p.queue <- envelope{topic: topic, payload: data}:
	default:
		p.counters.PublishDrops.Add(1)
	}
}

func (p *Publisher) sendLoop() {
	defer p.wg.Done()
	for env := range p.queue {
		if _, err := p.sock.SendMessage(env.topic, env.payload); err != nil {
			// The transport reconnects on its own; a send failure here only
			// means the message is gone.
			p.log.Debug().Err(err).Str("topic", env.topic).Msg("send failed")
		}
	}
}

// Close drains the queued messages through the socket and releases it.
func (p *Publisher) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(p.queue)
	p.wg.Wait()
	return p.sock.Close()
}

package kafka

import (
	"context"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

type Producer struct {
	w       *kafka.Writer
	inbox   chan kafka.Message
	closeCh chan struct{}
	once    sync.Once
}

func NewProducer(brokers []string, topic string, buf int) *Producer {
	return &Producer{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Async:        true,
		},
		inbox:   make(chan kafka.Message, buf),
		closeCh: make(chan struct{}),
	}
}

func (p *Producer) Start(ctx context.Context) {
	go func() {
		defer close(p.closeCh)
		defer p.w.Close()
		for {
			select {
			case <-ctx.Done():
				p.Close()
				for m := range p.inbox {
					_ = p.w.WriteMessages(context.Background(), m)
				}
				return
			case m, ok := <-p.inbox:
				if !ok {
					return
				}
				_ = p.w.WriteMessages(context.Background(), m)
			}
		}
	}()
}

func (p *Producer) Publish(key, value []byte, headers ...kafka.Header) {
	p.inbox <- kafka.Message{
		Key:     key,
		Value:   value,
		Time:    time.Now(),
		Headers: headers,
	}
}

// Close the inbox so the flush loop drains remaining messages and exits.
// Safe to call more than once; Publish after Close is not.
func (p *Producer) Close() { p.once.Do(func() { close(p.inbox) }) }

// WaitClosed blocks until the flush loop has exited.
func (p *Producer) WaitClosed() { <-p.closeCh }

package httpx

import (
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/kasirkit/poscore/internal/kafka"
	"github.com/kasirkit/poscore/internal/orders"
)

// Publisher is satisfied by *kafkax.Producer.
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

func publishEvent(p Publisher, service, eventType, orderID string, payload any, trace string) {
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      service,
		TraceID:       trace,
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
	p.Publish(orders.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

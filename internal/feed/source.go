package feed

import (
	"context"

	"sentiment-trader/internal/types"
)

// Record kinds delivered by a Source.
const (
	KindSubscribe = "subscribe"
	KindMessage   = "message"
)

// Format tells the runner how to decode a message payload.
type Format int

const (
	FormatLine Format = iota
	FormatJSON
)

// Record is one item received from a transport.
type Record struct {
	Kind    string
	Channel string
	Payload string
	Format  Format
}

// Decode turns a message payload into a sentiment event.
func (r Record) Decode() (types.SentimentEvent, error) {
	if r.Format == FormatJSON {
		return DecodeEnvelope(r.Payload)
	}
	return ParseSentimentLine(r.Payload)
}

// Source yields records in arrival order. Next blocks until a record is
// available and returns ctx.Err() once ctx is done.
type Source interface {
	Next(ctx context.Context) (Record, error)
	Close() error
}

// Sink receives scored sentiment events.
type Sink interface {
	Write(ctx context.Context, event types.SentimentEvent) error
	Close() error
}

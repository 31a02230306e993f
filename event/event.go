// Package event carries the records emitted by sale rounds, the factory and
// the manager: purchases, claims, lifecycle transitions and relay failures.
package event

import (
	"math/big"
	"sync"

	"go.uber.org/zap"

	"github.com/bitfsorg/libsale-go/account"
)

// Event names.
const (
	RoundInitialized     = "RoundInitialized"
	TokensPurchased      = "TokensPurchased"
	SaleFinalized        = "SaleFinalized"
	ClaimPeriodTriggered = "ClaimPeriodTriggered"
	TokensClaimed        = "TokensClaimed"
	MinClaimUpdated      = "MinClaimUpdated"
	WalletUpdated        = "WalletUpdated"
	Paused               = "Paused"
	Unpaused             = "Unpaused"

	RoundCreated       = "RoundCreated"
	RoundPauseFailed   = "RoundPauseFailed"
	RoundUnpauseFailed = "RoundUnpauseFailed"
	RoundDiscarded     = "RoundDiscarded"

	RoundFunded       = "RoundFunded"
	TopUpRequested    = "TopUpRequested"
	TokenUpdated      = "TokenUpdated"
	TreasuryWithdrawn = "TreasuryWithdrawn"
	TokenRescued      = "TokenRescued"
)

// Attr is one named event field.
type Attr struct {
	Key   string
	Value string
}

// Event is an emitted record.
type Event struct {
	Name   string
	Source account.Address // emitting contract
	Time   uint64
	Attrs  []Attr
}

// New starts an event.
func New(name string, source account.Address, time uint64) Event {
	return Event{Name: name, Source: source, Time: time}
}

// With appends a string attribute.
func (e Event) With(key, value string) Event {
	e.Attrs = append(e.Attrs[:len(e.Attrs):len(e.Attrs)], Attr{Key: key, Value: value})
	return e
}

// WithAddr appends an address attribute.
func (e Event) WithAddr(key string, a account.Address) Event {
	return e.With(key, a.String())
}

// WithAmount appends an amount attribute in base units.
func (e Event) WithAmount(key string, v *big.Int) Event {
	if v == nil {
		return e.With(key, "0")
	}
	return e.With(key, v.String())
}

// Get returns the value of key, or "" if absent.
func (e Event) Get(key string) string {
	for _, a := range e.Attrs {
		if a.Key == key {
			return a.Value
		}
	}
	return ""
}

// Sink receives events. Emit must not call back into the emitter.
type Sink interface {
	Emit(e Event)
}

// Nop discards events.
type Nop struct{}

// Emit implements Sink.
func (Nop) Emit(Event) {}

// Recorder keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Emit implements Sink.
func (r *Recorder) Emit(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Named returns the recorded events called name, in order.
func (r *Recorder) Named(name string) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

// Last returns the most recent event called name.
func (r *Recorder) Last(name string) (Event, bool) {
	named := r.Named(name)
	if len(named) == 0 {
		return Event{}, false
	}
	return named[len(named)-1], true
}

// LogSink writes events as structured zap entries.
type LogSink struct {
	Logger *zap.Logger
}

// Emit implements Sink.
func (s LogSink) Emit(e Event) {
	if s.Logger == nil {
		return
	}
	fields := make([]zap.Field, 0, len(e.Attrs)+2)
	fields = append(fields, zap.Stringer("source", e.Source), zap.Uint64("time", e.Time))
	for _, a := range e.Attrs {
		fields = append(fields, zap.String(a.Key, a.Value))
	}
	if isFailure(e.Name) {
		s.Logger.Warn(e.Name, fields...)
		return
	}
	s.Logger.Info(e.Name, fields...)
}

func isFailure(name string) bool {
	return name == RoundPauseFailed || name == RoundUnpauseFailed
}

// Multi fans each event out to every sink in order.
type Multi []Sink

// Emit implements Sink.
func (m Multi) Emit(e Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(e)
		}
	}
}

// Buffer holds events until Flush, then forwards them to its target and
// passes later events straight through. Drop discards held events and
// silences the buffer for good.
type Buffer struct {
	target Sink

	mu      sync.Mutex
	held    []Event
	flushed bool
	dropped bool
}

// NewBuffer creates a holding buffer in front of target.
func NewBuffer(target Sink) *Buffer {
	return &Buffer{target: OrNop(target)}
}

// Emit implements Sink.
func (b *Buffer) Emit(e Event) {
	b.mu.Lock()
	switch {
	case b.dropped:
		b.mu.Unlock()
	case b.flushed:
		b.mu.Unlock()
		b.target.Emit(e)
	default:
		b.held = append(b.held, e)
		b.mu.Unlock()
	}
}

// Flush forwards the held events in order.
func (b *Buffer) Flush() {
	b.mu.Lock()
	if b.flushed || b.dropped {
		b.mu.Unlock()
		return
	}
	held := b.held
	b.held = nil
	b.flushed = true
	b.mu.Unlock()

	for _, e := range held {
		b.target.Emit(e)
	}
}

// Drop discards the held events.
func (b *Buffer) Drop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.flushed {
		return
	}
	b.held = nil
	b.dropped = true
}

// OrNop returns s, or Nop when s is nil.
func OrNop(s Sink) Sink {
	if s == nil {
		return Nop{}
	}
	return s
}

// Package events defines the envelope exchanged between instances after a
// membership change and the bus that carries it. A published batch travels
// as one broker message so its order survives end to end.
package events

import (
	"fmt"

	"github.com/dmitrijs2005/pairsync/internal/common"
	"github.com/goccy/go-json"
)

// Kind discriminates the payload of an Envelope.
type Kind string

const (
	KindGroupFullInfo      Kind = "GroupFullInfo"
	KindPairJoined         Kind = "PairJoined"
	KindOnlineNotification Kind = "OnlineNotification"
	KindUserExpired        Kind = "UserExpired"
)

// Known reports whether k is a kind this build can route.
func (k Kind) Known() bool {
	switch k {
	case KindGroupFullInfo, KindPairJoined, KindOnlineNotification, KindUserExpired:
		return true
	}
	return false
}

// Envelope is one typed event addressed to TargetUID.
type Envelope struct {
	Type      Kind            `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	TargetUID string          `json:"targetUID"`
}

// NewEnvelope encodes payload into an Envelope.
func NewEnvelope(kind Kind, targetUID string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", kind, err)
	}
	return Envelope{Type: kind, Payload: raw, TargetUID: targetUID}, nil
}

// Decode unmarshals the payload into v.
func (e Envelope) Decode(v any) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("%w: %s payload: %w", common.ErrMalformedEvent, e.Type, err)
	}
	return nil
}

// Batch is the unit published to and consumed from the broker.
type Batch struct {
	ID     string     `json:"id"`
	Events []Envelope `json:"events"`
}

func EncodeBatch(b Batch) ([]byte, error) {
	return json.Marshal(b)
}

// DecodeBatch parses a broker payload. Structural problems are reported as
// common.ErrMalformedEvent; unknown kinds are left for the consumer to judge.
func DecodeBatch(data []byte) (Batch, error) {
	var b Batch
	if err := json.Unmarshal(data, &b); err != nil {
		return Batch{}, fmt.Errorf("%w: %w", common.ErrMalformedEvent, err)
	}
	for i, e := range b.Events {
		if e.Type == "" || e.TargetUID == "" {
			return Batch{}, fmt.Errorf("%w: event %d missing type or target", common.ErrMalformedEvent, i)
		}
	}
	return b, nil
}

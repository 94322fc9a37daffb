package events

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

const deadLetterPrefix = "dlq:"

// DeadLetter is a broker message that could not be routed.
type DeadLetter struct {
	MessageID  string    `json:"messageID"`
	Reason     string    `json:"reason"`
	Payload    []byte    `json:"payload"`
	InstanceID string    `json:"instanceID"`
	ReceivedAt time.Time `json:"receivedAt"`
}

type DeadLetterStore interface {
	Save(ctx context.Context, dl DeadLetter) error
	List(ctx context.Context) ([]DeadLetter, error)
}

// BadgerDeadLetterStore keeps dead letters in badger with a retention TTL.
type BadgerDeadLetterStore struct {
	db        *badger.DB
	retention time.Duration
}

// OpenBadgerDeadLetterStore opens (or creates) a store under dir. An empty
// dir keeps everything in memory.
func OpenBadgerDeadLetterStore(dir string, retention time.Duration) (*BadgerDeadLetterStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open dead-letter store: %w", err)
	}
	return &BadgerDeadLetterStore{db: db, retention: retention}, nil
}

func (s *BadgerDeadLetterStore) Save(ctx context.Context, dl DeadLetter) error {
	data, err := json.Marshal(dl)
	if err != nil {
		return fmt.Errorf("marshal dead letter: %w", err)
	}
	key := []byte(fmt.Sprintf("%s%020d:%s", deadLetterPrefix, dl.ReceivedAt.UnixNano(), dl.MessageID))

	return s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(key, data)
		if s.retention > 0 {
			e = e.WithTTL(s.retention)
		}
		return txn.SetEntry(e)
	})
}

// List returns stored dead letters oldest first.
func (s *BadgerDeadLetterStore) List(ctx context.Context) ([]DeadLetter, error) {
	var out []DeadLetter
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(deadLetterPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var dl DeadLetter
				if err := json.Unmarshal(val, &dl); err != nil {
					return err
				}
				out = append(out, dl)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list dead letters: %w", err)
	}
	return out, nil
}

func (s *BadgerDeadLetterStore) Close() error {
	return s.db.Close()
}

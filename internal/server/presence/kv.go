package presence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/pairsync/internal/common"
	"github.com/goccy/go-json"
	natsgo "github.com/nats-io/nats.go"
)

const keyPrefix = "uid."

// KVDirectory stores entries in a JetStream key-value bucket shared by all
// instances. The bucket TTL expires entries that are not refreshed.
type KVDirectory struct {
	kv natsgo.KeyValue
}

// OpenKVDirectory binds to bucket, creating it with ttl if it does not exist.
func OpenKVDirectory(js natsgo.JetStreamContext, bucket string, ttl time.Duration) (*KVDirectory, error) {
	kv, err := js.KeyValue(bucket)
	if errors.Is(err, natsgo.ErrBucketNotFound) {
		kv, err = js.CreateKeyValue(&natsgo.KeyValueConfig{
			Bucket:  bucket,
			TTL:     ttl,
			History: 1,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("open presence bucket %q: %w", bucket, err)
	}
	return &KVDirectory{kv: kv}, nil
}

func key(uid string) string {
	return keyPrefix + uid
}

func (d *KVDirectory) Lookup(ctx context.Context, uid string) (Entry, bool, error) {
	kve, err := d.kv.Get(key(uid))
	if errors.Is(err, natsgo.ErrKeyNotFound) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("%w: presence lookup: %w", common.ErrStoreUnavailable, err)
	}

	var e Entry
	if err := json.Unmarshal(kve.Value(), &e); err != nil {
		return Entry{}, false, fmt.Errorf("decode presence entry: %w", err)
	}
	return e, true, nil
}

func (d *KVDirectory) Register(ctx context.Context, e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode presence entry: %w", err)
	}
	if _, err := d.kv.Put(key(e.UID), data); err != nil {
		return fmt.Errorf("%w: presence register: %w", common.ErrStoreUnavailable, err)
	}
	return nil
}

func (d *KVDirectory) Refresh(ctx context.Context, e Entry) (bool, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return false, fmt.Errorf("encode presence entry: %w", err)
	}

	kve, err := d.kv.Get(key(e.UID))
	if errors.Is(err, natsgo.ErrKeyNotFound) {
		_, err = d.kv.Create(key(e.UID), data)
		if errors.Is(err, natsgo.ErrKeyExists) || isWrongSequence(err) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("%w: presence refresh: %w", common.ErrStoreUnavailable, err)
		}
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: presence lookup: %w", common.ErrStoreUnavailable, err)
	}

	var cur Entry
	if err := json.Unmarshal(kve.Value(), &cur); err != nil {
		return false, fmt.Errorf("decode presence entry: %w", err)
	}
	if cur.Ident != e.Ident {
		return false, nil
	}
	if _, err := d.kv.Update(key(e.UID), data, kve.Revision()); err != nil {
		if isWrongSequence(err) {
			return false, nil
		}
		return false, fmt.Errorf("%w: presence refresh: %w", common.ErrStoreUnavailable, err)
	}
	return true, nil
}

// isWrongSequence reports a compare-and-set write that lost to a newer one.
func isWrongSequence(err error) bool {
	var apiErr *natsgo.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode == natsgo.JSErrCodeStreamWrongLastSequence
}

func (d *KVDirectory) Unregister(ctx context.Context, uid, ident string) error {
	kve, err := d.kv.Get(key(uid))
	if errors.Is(err, natsgo.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: presence lookup: %w", common.ErrStoreUnavailable, err)
	}

	var e Entry
	if err := json.Unmarshal(kve.Value(), &e); err != nil || e.Ident != ident {
		return nil
	}
	err = d.kv.Delete(key(uid), natsgo.LastRevision(kve.Revision()))
	if err != nil && !errors.Is(err, natsgo.ErrKeyNotFound) {
		// a newer Register raced us; its entry stays
		if isWrongSequence(err) {
			return nil
		}
		return fmt.Errorf("%w: presence unregister: %w", common.ErrStoreUnavailable, err)
	}
	return nil
}

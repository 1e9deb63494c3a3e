package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/quizroom-backend/internal/model"
	"github.com/stemsi/quizroom-backend/internal/storage"
)

// persistVersion is bumped whenever the persisted payload shape changes.
// Payloads written under another version are discarded on load.
const persistVersion = 1

// Store is the durable key-value store a Bridge mirrors into.
// Get must return storage.ErrNotFound for a missing key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
}

type envelope struct {
	V    int             `json:"v"`
	Data json.RawMessage `json:"data"`
}

// Bridge mirrors a session's answers and start time so that a reconnecting
// student resumes where they left off.
type Bridge struct {
	store      Store
	answersKey string
	startKey   string
	log        zerolog.Logger
}

// NewBridge creates a Bridge writing under the two given keys.
func NewBridge(store Store, answersKey, startKey string, log zerolog.Logger) *Bridge {
	return &Bridge{
		store:      store,
		answersKey: answersKey,
		startKey:   startKey,
		log:        log.With().Str("component", "persistence_bridge").Logger(),
	}
}

// SaveAnswers overwrites the persisted answer map.
func (b *Bridge) SaveAnswers(ctx context.Context, answers map[string]model.StoredAnswer) error {
	return b.save(ctx, b.answersKey, answers)
}

// LoadAnswers returns the persisted answer map. ok is false when nothing
// usable was stored.
func (b *Bridge) LoadAnswers(ctx context.Context) (answers map[string]model.StoredAnswer, ok bool) {
	if !b.load(ctx, b.answersKey, &answers) || answers == nil {
		return nil, false
	}
	return answers, true
}

// SaveStart persists the session start time.
func (b *Bridge) SaveStart(ctx context.Context, t time.Time) error {
	return b.save(ctx, b.startKey, t.UTC())
}

// LoadStart returns the persisted start time.
func (b *Bridge) LoadStart(ctx context.Context) (time.Time, bool) {
	var t time.Time
	if !b.load(ctx, b.startKey, &t) || t.IsZero() {
		return time.Time{}, false
	}
	return t, true
}

// Clear removes both keys. Only a successful submission calls it.
func (b *Bridge) Clear(ctx context.Context) error {
	return b.store.Delete(ctx, b.answersKey, b.startKey)
}

func (b *Bridge) save(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	raw, err := json.Marshal(envelope{V: persistVersion, Data: data})
	if err != nil {
		return fmt.Errorf("marshal envelope %s: %w", key, err)
	}
	if err := b.store.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (b *Bridge) load(ctx context.Context, key string, dst any) bool {
	raw, err := b.store.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return false
	}
	if err != nil {
		b.log.Warn().Err(err).Str("key", key).Msg("Failed to read persisted state")
		return false
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		b.discard(ctx, key, err)
		return false
	}
	if env.V != persistVersion {
		b.discard(ctx, key, fmt.Errorf("version %d, want %d", env.V, persistVersion))
		return false
	}
	if err := json.Unmarshal(env.Data, dst); err != nil {
		b.discard(ctx, key, err)
		return false
	}
	return true
}

func (b *Bridge) discard(ctx context.Context, key string, cause error) {
	b.log.Warn().Err(cause).Str("key", key).Msg("Discarding unreadable persisted state")
	if err := b.store.Delete(ctx, key); err != nil {
		b.log.Warn().Err(err).Str("key", key).Msg("Failed to delete stale state")
	}
}

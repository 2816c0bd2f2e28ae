package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const presenceTTL = 24 * time.Hour

// PresenceStore keeps the last known presence per chat in Redis so it
// survives restarts and is visible to other instances. Optional: a nil
// store is a no-op.
type PresenceStore struct {
	client *redis.Client
	prefix string
}

type PresenceRecord struct {
	Online   bool       `json:"online"`
	LastSeen *time.Time `json:"last_seen,omitempty"`
}

func NewRedis(addr, password string, db int) (*redis.Client, error) {
	r := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := r.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return r, nil
}

func NewPresenceStore(r *redis.Client, prefix string) *PresenceStore {
	if r == nil {
		return nil
	}
	if prefix == "" {
		prefix = "cs"
	}
	return &PresenceStore{client: r, prefix: prefix}
}

func (s *PresenceStore) key(chatID string) string {
	return fmt.Sprintf("%s:presence:%s", s.prefix, chatID)
}

func (s *PresenceStore) SetPresence(ctx context.Context, chatID string, online bool, lastSeen *time.Time) error {
	if s == nil {
		return nil
	}
	b, err := json.Marshal(PresenceRecord{Online: online, LastSeen: lastSeen})
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(chatID), b, presenceTTL).Err()
}

func (s *PresenceStore) GetPresence(ctx context.Context, chatID string) (*PresenceRecord, error) {
	if s == nil {
		return nil, nil
	}
	b, err := s.client.Get(ctx, s.key(chatID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec PresenceRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

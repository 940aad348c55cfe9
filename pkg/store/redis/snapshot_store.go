// Package redis implements the ephemeral half of repository.Store: recovery
// snapshots (§4.10), which are short-lived, TTL'd state — not durable quiz
// history — and so do not belong in Postgres. Grounded on the teacher's
// redis.CacheRepo (UniversalClient, context.Background() held on the repo,
// SetJSON/GetJSON-by-convention), generalized from a single-key cache to a
// scan-listable, TTL-scoped snapshot set.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/yourusername/quiz-engine/internal/domain/entity"
)

// keyPrefix namespaces every recovery snapshot key so Scan can enumerate them
// without touching unrelated keys sharing the same Redis database.
const keyPrefix = "quizengine:recovery:"

func snapshotKey(guildID, channelID string) string {
	return fmt.Sprintf("%s%s:%s", keyPrefix, guildID, channelID)
}

// SnapshotStore implements the three recovery-snapshot methods of
// repository.Store over Redis, with TTL handling the "older than
// recovery.ttl_s is discarded silently" half of §4.10 automatically — an
// expired key simply stops appearing in ListRecoverySnapshots.
type SnapshotStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// New builds a SnapshotStore. ttl <= 0 disables expiry (keys live until
// explicitly deleted) — callers that want §4.10's TTL discard behavior should
// pass recovery.ttl_s converted to a time.Duration.
func New(client redis.UniversalClient, ttl time.Duration) *SnapshotStore {
	return &SnapshotStore{client: client, ttl: ttl}
}

// PutRecoverySnapshot writes/overwrites the snapshot for its (guild,channel),
// refreshing the TTL on every question-boundary write per §4.10.
func (s *SnapshotStore) PutRecoverySnapshot(ctx context.Context, snapshot entity.RecoverySnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal recovery snapshot: %w", err)
	}
	key := snapshotKey(snapshot.GuildID, snapshot.ChannelID)
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("put recovery snapshot %s: %w", key, err)
	}
	return nil
}

// DeleteRecoverySnapshot removes the snapshot for (guildID,channelID), if any.
func (s *SnapshotStore) DeleteRecoverySnapshot(ctx context.Context, guildID, channelID string) error {
	key := snapshotKey(guildID, channelID)
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("delete recovery snapshot %s: %w", key, err)
	}
	return nil
}

// ListRecoverySnapshots scans every live (non-expired) snapshot key for the
// startup sweep (§4.10). Uses SCAN rather than KEYS so a large snapshot set
// doesn't block the Redis event loop, matching the non-blocking discipline
// the teacher's CacheRepo methods already follow for single-key ops.
func (s *SnapshotStore) ListRecoverySnapshots(ctx context.Context) ([]entity.RecoverySnapshot, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan recovery snapshots: %w", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	snapshots := make([]entity.RecoverySnapshot, 0, len(keys))
	for _, key := range keys {
		data, err := s.client.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue // expired between Scan and Get — already gone, not an error
			}
			return nil, fmt.Errorf("get recovery snapshot %s: %w", key, err)
		}
		var snap entity.RecoverySnapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return nil, fmt.Errorf("unmarshal recovery snapshot %s: %w", key, err)
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, nil
}

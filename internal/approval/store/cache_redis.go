package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"reimbly/internal/approval"
	"reimbly/pkg/domain"
)

// CachedStore decorates a Store with a Redis read-through cache for
// pending-approver queries, the one read that dashboards hammer. Writes pass
// through and drop the cached snapshots for every approver on the case's
// route, so staleness is bounded by the TTL even when invalidation is missed.
//
// Pending queries are explicitly point-in-time snapshots, so serving a
// slightly stale list is within contract.
type CachedStore struct {
	approval.Store
	redis  *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedStore wraps inner with a Redis cache. ttl bounds snapshot
// staleness.
func NewCachedStore(inner approval.Store, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedStore {
	return &CachedStore{Store: inner, redis: client, ttl: ttl, logger: logger}
}

func pendingKey(approver domain.UserID) string {
	return fmt.Sprintf("reimbly:pending:%s", approver)
}

func (s *CachedStore) QueryByApprover(ctx context.Context, approver domain.UserID) ([]approval.Case, error) {
	key := pendingKey(approver)

	cached, err := s.redis.Get(ctx, key).Bytes()
	if err == nil {
		var cases []approval.Case
		if unmarshalErr := json.Unmarshal(cached, &cases); unmarshalErr == nil {
			return cases, nil
		}
		// Corrupt entry: fall through to the store and rewrite it.
	} else if err != redis.Nil {
		s.logger.WarnContext(ctx, "pending cache read failed, falling back to store",
			"approver_id", approver, "error", err)
	}

	cases, err := s.Store.QueryByApprover(ctx, approver)
	if err != nil {
		return nil, err
	}

	if payload, marshalErr := json.Marshal(cases); marshalErr == nil {
		if setErr := s.redis.Set(ctx, key, payload, s.ttl).Err(); setErr != nil {
			s.logger.WarnContext(ctx, "pending cache write failed",
				"approver_id", approver, "error", setErr)
		}
	}
	return cases, nil
}

func (s *CachedStore) Create(ctx context.Context, c approval.Case) (approval.Version, error) {
	version, err := s.Store.Create(ctx, c)
	if err == nil {
		s.invalidate(ctx, c)
	}
	return version, err
}

func (s *CachedStore) Save(ctx context.Context, c approval.Case, expected approval.Version) (approval.Version, error) {
	version, err := s.Store.Save(ctx, c, expected)
	if err == nil {
		s.invalidate(ctx, c)
	}
	return version, err
}

func (s *CachedStore) invalidate(ctx context.Context, c approval.Case) {
	keys := make([]string, 0, len(c.ApprovalRoute))
	for _, member := range c.ApprovalRoute {
		keys = append(keys, pendingKey(domain.UserID(member)))
	}
	if len(keys) == 0 {
		return
	}
	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		s.logger.WarnContext(ctx, "pending cache invalidation failed",
			"case_id", c.ID, "error", err)
	}
}

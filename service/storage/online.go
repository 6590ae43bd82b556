package storage

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// OnlineStore mirrors live sessions into Redis with a TTL. It is advisory
// state: the in-process presence registry is authoritative for this node,
// the mirror lets the staleness sweep and operators see sessions that a
// missed disconnect left behind.
//
// Layout:
//   n:<node>:u:<user>:c:<conn>  -> "1"          (EX sessionTTL)
//   nidx:<node>                 -> ZSET member "<user>|<conn>" score expireAt
type OnlineStore struct {
	rdb    *redis.Client
	nodeID string
	ttl    time.Duration
}

func NewOnlineStore(rdb *redis.Client, nodeID string, ttl time.Duration) *OnlineStore {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &OnlineStore{rdb: rdb, nodeID: nodeID, ttl: ttl}
}

func (s *OnlineStore) sessionKey(userID, connID string) string {
	return "n:" + s.nodeID + ":u:" + userID + ":c:" + connID
}

func (s *OnlineStore) indexKey() string {
	return "nidx:" + s.nodeID
}

// Online records a freshly authenticated session.
func (s *OnlineStore) Online(ctx context.Context, userID, connID string) error {
	now := time.Now()
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, s.sessionKey(userID, connID), "1", s.ttl)
	pipe.ZAdd(ctx, s.indexKey(), redis.Z{
		Score:  float64(now.Add(s.ttl).Unix()),
		Member: userID + "|" + connID,
	})
	_, err := pipe.Exec(ctx)
	return errors.Wrap(err, "online store: set session")
}

// Refresh extends the session on heartbeat.
func (s *OnlineStore) Refresh(ctx context.Context, userID, connID string) error {
	now := time.Now()
	pipe := s.rdb.TxPipeline()
	pipe.Expire(ctx, s.sessionKey(userID, connID), s.ttl)
	pipe.ZAdd(ctx, s.indexKey(), redis.Z{
		Score:  float64(now.Add(s.ttl).Unix()),
		Member: userID + "|" + connID,
	})
	_, err := pipe.Exec(ctx)
	return errors.Wrap(err, "online store: refresh session")
}

// Offline drops the session record.
func (s *OnlineStore) Offline(ctx context.Context, userID, connID string) error {
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, s.sessionKey(userID, connID))
	pipe.ZRem(ctx, s.indexKey(), userID+"|"+connID)
	_, err := pipe.Exec(ctx)
	return errors.Wrap(err, "online store: del session")
}

// SweepExpired removes index entries whose TTL passed and returns the
// (userID, connID) pairs that were dropped.
func (s *OnlineStore) SweepExpired(ctx context.Context, now time.Time) ([][2]string, error) {
	max := strconv.FormatInt(now.Unix(), 10)
	members, err := s.rdb.ZRangeByScore(ctx, s.indexKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: max,
	}).Result()
	if err != nil {
		return nil, errors.Wrap(err, "online store: range expired")
	}
	if len(members) == 0 {
		return nil, nil
	}

	pairs := make([][2]string, 0, len(members))
	rem := make([]interface{}, 0, len(members))
	for _, m := range members {
		rem = append(rem, m)
		if i := strings.IndexByte(m, '|'); i > 0 {
			pairs = append(pairs, [2]string{m[:i], m[i+1:]})
		}
	}
	if err := s.rdb.ZRem(ctx, s.indexKey(), rem...).Err(); err != nil {
		return nil, errors.Wrap(err, "online store: remove expired")
	}
	return pairs, nil
}

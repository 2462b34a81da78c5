package matchmaker

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// key layout:
//
//	list: mm:waitqueue  -> [oldest ... newest]
const waitQueueKey = "mm:waitqueue"

type redisQueue struct {
	rdb *redis.Client
}

// NewRedisQueue keeps the wait queue in a redis list. Ordering and the
// no-duplicates invariant still come from the Service; redis only stores
// the sequence. Room and participant state never leave the process.
func NewRedisQueue(rdb *redis.Client) Queue {
	return &redisQueue{rdb: rdb}
}

func (r *redisQueue) Enqueue(ctx context.Context, id string) error {
	return r.rdb.RPush(ctx, waitQueueKey, id).Err()
}

func (r *redisQueue) PopPair(ctx context.Context) ([]string, bool, error) {
	n, err := r.rdb.LLen(ctx, waitQueueKey).Result()
	if err != nil {
		return nil, false, err
	}
	if n < 2 {
		return nil, false, nil
	}
	ids, err := r.rdb.LPopCount(ctx, waitQueueKey, 2).Result()
	if err != nil {
		return nil, false, err
	}
	if len(ids) < 2 {
		// Only possible if something outside the sequencer touched the key;
		// put the leftover back at the head rather than lose it.
		if len(ids) == 1 {
			_ = r.rdb.LPush(ctx, waitQueueKey, ids[0]).Err()
		}
		return nil, false, nil
	}
	return ids, true, nil
}

func (r *redisQueue) Remove(ctx context.Context, id string) error {
	return r.rdb.LRem(ctx, waitQueueKey, 0, id).Err()
}

func (r *redisQueue) Count(ctx context.Context) (int64, error) {
	return r.rdb.LLen(ctx, waitQueueKey).Result()
}

package storage

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"
)

var ErrNotFound = errors.New("key not found")

const scanBatch = 200

// RedisStore keeps JSON records as plain strings, fan-out indices as sets and
// counters as hashes, so every index append and increment is a single atomic
// command.
type RedisStore struct {
	Client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{Client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.Client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return value, err
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	return s.Client.Set(ctx, key, value, 0).Err()
}

func (s *RedisStore) SetIfAbsent(ctx context.Context, key string, value []byte) (bool, error) {
	return s.Client.SetNX(ctx, key, value, 0).Result()
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.Client.Del(ctx, key).Err()
}

// CompareAndSwap replaces the value under key only if it still equals old.
func (s *RedisStore) CompareAndSwap(ctx context.Context, key string, old, value []byte) (bool, error) {
	swapped := false
	err := s.Client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if !bytes.Equal(current, old) {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, value, 0)
			return nil
		})
		if err == nil {
			swapped = true
		}
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	return swapped, err
}

// GetByPrefix returns the string values of every key starting with prefix,
// ordered by key. Non-string keys under the prefix are skipped.
func (s *RedisStore) GetByPrefix(ctx context.Context, prefix string) ([][]byte, error) {
	var keys []string
	iter := s.Client.Scan(ctx, 0, prefix+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	sort.Strings(keys)

	values := make([][]byte, 0, len(keys))
	for start := 0; start < len(keys); start += scanBatch {
		end := start + scanBatch
		if end > len(keys) {
			end = len(keys)
		}

		res, err := s.Client.MGet(ctx, keys[start:end]...).Result()
		if err != nil {
			return nil, err
		}
		for _, v := range res {
			str, ok := v.(string)
			if !ok {
				continue
			}
			values = append(values, []byte(str))
		}
	}
	return values, nil
}

// AddToIndex adds members to the set under key and reports how many were new.
func (s *RedisStore) AddToIndex(ctx context.Context, key string, members ...string) (int64, error) {
	if len(members) == 0 {
		return 0, nil
	}
	return s.Client.SAdd(ctx, key, toInterfaces(members)...).Result()
}

func (s *RedisStore) RemoveFromIndex(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	return s.Client.SRem(ctx, key, toInterfaces(members)...).Err()
}

func (s *RedisStore) IndexMembers(ctx context.Context, key string) ([]string, error) {
	members, err := s.Client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(members)
	return members, nil
}

func (s *RedisStore) IncrCounter(ctx context.Context, key, field string, delta int64) (int64, error) {
	return s.Client.HIncrBy(ctx, key, field, delta).Result()
}

// incrOnceScript adds the marker and bumps the counter in one step; nothing
// happens when the marker is already present.
var incrOnceScript = redis.NewScript(`
if redis.call('SADD', KEYS[1], ARGV[1]) == 0 then
	return 0
end
redis.call('HINCRBY', KEYS[2], ARGV[2], ARGV[3])
return 1
`)

func (s *RedisStore) IncrCounterOnce(ctx context.Context, markerKey, marker, key, field string, delta int64) (bool, error) {
	applied, err := incrOnceScript.Run(ctx, s.Client, []string{markerKey, key}, marker, field, delta).Int()
	if err != nil {
		return false, err
	}
	return applied == 1, nil
}

func (s *RedisStore) Counters(ctx context.Context, key string) (map[string]int64, error) {
	raw, err := s.Client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, err
	}

	counters := make(map[string]int64, len(raw))
	for field, v := range raw {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		counters[field] = n
	}
	return counters, nil
}

func toInterfaces(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

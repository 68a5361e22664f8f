// Package luxkv is a thin wrapper over github.com/redis/go-redis/v9, mirroring
// the method surface of original_source/LuxRedis/include/LuxRedis/RedisConn.h
// (setKey/getKey/append/hash-field ops/list ops/multi-key ops, AsyncSave and
// Save mapping to the BGSAVE/SAVE commands). Every exported method is a
// direct pass-through to the corresponding Redis command; this package adds
// no retry, pooling, or pipelining logic beyond what go-redis already does.
package luxkv

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lutianen/lux/internal/reactor"
)

// Logger is a type alias for reactor.Logger, letting luxkv share the same
// logging interface used throughout the rest of this module.
type Logger = reactor.Logger

// Config describes how to reach a Redis server.
type Config struct {
	Addr     string
	Password string
	DB       int

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	Logger Logger
}

// Conn wraps a *redis.Client, named after the teacher's RedisConn (the
// original_source LuxRedis type this package's surface is grounded on).
type Conn struct {
	rdb    *redis.Client
	logger Logger
}

// Connect opens a connection pool to the server described by cfg. Unlike the
// original LuxRedis::connectSvr, this does not eagerly dial: go-redis clients
// are lazy, matching database/sql's pool semantics (see internal/luxsql).
func Connect(cfg Config) *Conn {
	logger := cfg.Logger
	if logger == nil {
		logger = reactor.NopLogger{}
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
	return &Conn{rdb: rdb, logger: logger}
}

// Disconnect closes the connection pool (LuxRedis::disconnectSvr).
func (c *Conn) Disconnect() error { return c.rdb.Close() }

// Raw exposes the underlying *redis.Client for operations this wrapper
// doesn't cover.
func (c *Conn) Raw() *redis.Client { return c.rdb }

// AsyncSave triggers a background save (BGSAVE), returning as soon as the
// fork is requested rather than waiting for it to finish, mirroring
// RedisConn::asynSave.
func (c *Conn) AsyncSave(ctx context.Context) error {
	return c.rdb.BgSave(ctx).Err()
}

// Save performs a blocking save (SAVE), mirroring RedisConn::save. It can be
// slow when the keyspace is large.
func (c *Conn) Save(ctx context.Context) error {
	return c.rdb.Save(ctx).Err()
}

// -------------------- String --------------------

// SetKey sets key to value, optionally expiring after lifeTime
// (0 = never expire), mirroring RedisConn::setKey.
func (c *Conn) SetKey(ctx context.Context, key, value string, lifeTime time.Duration) error {
	return c.rdb.Set(ctx, key, value, lifeTime).Err()
}

// Append appends value to the string stored at key, creating key if it
// doesn't exist, and returns the new length (RedisConn::append).
func (c *Conn) Append(ctx context.Context, key, value string) (int64, error) {
	return c.rdb.Append(ctx, key, value).Result()
}

// SetKeyLifeTime sets key's remaining time to live (RedisConn::setKeyLifeTime).
func (c *Conn) SetKeyLifeTime(ctx context.Context, key string, ttl time.Duration) error {
	return c.rdb.Expire(ctx, key, ttl).Err()
}

// GetKey fetches key's value. It returns ("", false, nil) if key doesn't
// exist, mirroring RedisConn::getKey's "0 means key doesn't exist" result.
func (c *Conn) GetKey(ctx context.Context, key string) (string, bool, error) {
	v, err := c.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// GetLen returns the length of the string stored at key (STRLEN), mirroring
// RedisConn::getLen.
func (c *Conn) GetLen(ctx context.Context, key string) (int64, error) {
	return c.rdb.StrLen(ctx, key).Result()
}

// GetKeyByRange returns the substring of key's value over [start, end],
// Redis GETRANGE semantics (negative indices count from the end), mirroring
// RedisConn::getKeyByRange.
func (c *Conn) GetKeyByRange(ctx context.Context, key string, start, end int64) (string, error) {
	return c.rdb.GetRange(ctx, key, start, end).Result()
}

// GetKeyRemainLifeTime returns key's remaining TTL: -2 if key doesn't exist,
// -1 if it never expires, otherwise the remaining duration, mirroring
// RedisConn::getKeyRemainLifeTime.
func (c *Conn) GetKeyRemainLifeTime(ctx context.Context, key string) (time.Duration, error) {
	return c.rdb.TTL(ctx, key).Result()
}

// GetKeyType returns key's Redis type name (none/string/list/set/zset/hash),
// mirroring RedisConn::getKeyType.
func (c *Conn) GetKeyType(ctx context.Context, key string) (string, error) {
	return c.rdb.Type(ctx, key).Result()
}

// DelKey deletes key, returning true if it existed, mirroring RedisConn::delKey.
func (c *Conn) DelKey(ctx context.Context, key string) (bool, error) {
	n, err := c.rdb.Del(ctx, key).Result()
	return n > 0, err
}

// HasKey reports whether key exists, mirroring RedisConn::hasKey.
func (c *Conn) HasKey(ctx context.Context, key string) (bool, error) {
	n, err := c.rdb.Exists(ctx, key).Result()
	return n > 0, err
}

// IncrByFloat adds addValue to key's value (creating it as 0 first if
// absent) and returns the new value, mirroring RedisConn::incrByFloat.
func (c *Conn) IncrByFloat(ctx context.Context, key string, addValue float64) (float64, error) {
	return c.rdb.IncrByFloat(ctx, key, addValue).Result()
}

// SetMultiKey sets several key/value pairs atomically (MSET), mirroring
// RedisConn::setMultiKey. kvPairs must have an even length: key1, value1,
// key2, value2, ...
func (c *Conn) SetMultiKey(ctx context.Context, kvPairs ...string) error {
	pairs := make([]any, len(kvPairs))
	for i, s := range kvPairs {
		pairs[i] = s
	}
	return c.rdb.MSet(ctx, pairs...).Err()
}

// GetMultiKey fetches several keys at once (MGET), mirroring
// RedisConn::getMultiKey. A missing key yields an empty string in the
// result slice at the same position.
func (c *Conn) GetMultiKey(ctx context.Context, keys ...string) ([]string, error) {
	vals, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	out := make([]string, len(vals))
	for i, v := range vals {
		if v != nil {
			out[i], _ = v.(string)
		}
	}
	return out, nil
}

// DelMultiKey deletes several keys at once, mirroring RedisConn::delMultiKey.
func (c *Conn) DelMultiKey(ctx context.Context, keys ...string) (int64, error) {
	return c.rdb.Del(ctx, keys...).Result()
}

// -------------------- Hash --------------------

// SetHField sets a single field in the hash stored at key, mirroring
// RedisConn::setHField.
func (c *Conn) SetHField(ctx context.Context, key, field, value string) error {
	return c.rdb.HSet(ctx, key, field, value).Err()
}

// GetHField fetches a single field from the hash stored at key, mirroring
// RedisConn::getHField.
func (c *Conn) GetHField(ctx context.Context, key, field string) (string, bool, error) {
	v, err := c.rdb.HGet(ctx, key, field).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// DelHField deletes a field from the hash stored at key, mirroring
// RedisConn::delHField.
func (c *Conn) DelHField(ctx context.Context, key, field string) (bool, error) {
	n, err := c.rdb.HDel(ctx, key, field).Result()
	return n > 0, err
}

// HasHField reports whether field exists in the hash at key, mirroring
// RedisConn::hasHField.
func (c *Conn) HasHField(ctx context.Context, key, field string) (bool, error) {
	return c.rdb.HExists(ctx, key, field).Result()
}

// IncrHByFloat adds addValue to field in the hash at key and returns the new
// value, mirroring RedisConn::incrHByFloat.
func (c *Conn) IncrHByFloat(ctx context.Context, key, field string, addValue float64) (float64, error) {
	return c.rdb.HIncrByFloat(ctx, key, field, addValue).Result()
}

// GetHAll fetches every field/value pair in the hash at key, mirroring
// RedisConn::getHAll.
func (c *Conn) GetHAll(ctx context.Context, key string) (map[string]string, error) {
	return c.rdb.HGetAll(ctx, key).Result()
}

// GetHFieldCount returns the number of fields in the hash at key, mirroring
// RedisConn::getHFieldCount.
func (c *Conn) GetHFieldCount(ctx context.Context, key string) (int64, error) {
	return c.rdb.HLen(ctx, key).Result()
}

// SetMultiHField sets several fields in one hash at once (HMSET semantics via
// HSet's variadic form), mirroring RedisConn::setMultiHField. fieldValuePairs
// must have an even length: field1, value1, field2, value2, ...
func (c *Conn) SetMultiHField(ctx context.Context, key string, fieldValuePairs ...string) error {
	pairs := make([]any, len(fieldValuePairs))
	for i, s := range fieldValuePairs {
		pairs[i] = s
	}
	return c.rdb.HSet(ctx, key, pairs...).Err()
}

// GetMultiHField fetches several fields from the hash at key (HMGET),
// mirroring RedisConn::getMultiHField. A missing field yields an empty
// string at the same position.
func (c *Conn) GetMultiHField(ctx context.Context, key string, fields ...string) ([]string, error) {
	vals, err := c.rdb.HMGet(ctx, key, fields...).Result()
	if err != nil {
		return nil, err
	}
	out := make([]string, len(vals))
	for i, v := range vals {
		if v != nil {
			out[i], _ = v.(string)
		}
	}
	return out, nil
}

// DelMultiHField deletes several fields from the hash at key, mirroring
// RedisConn::delMultiHField.
func (c *Conn) DelMultiHField(ctx context.Context, key string, fields ...string) (int64, error) {
	return c.rdb.HDel(ctx, key, fields...).Result()
}

// -------------------- List --------------------

// LPushList prepends value to the list at key, mirroring RedisConn::lpushList.
func (c *Conn) LPushList(ctx context.Context, key, value string) error {
	return c.rdb.LPush(ctx, key, value).Err()
}

// LPopList removes and returns the first element of the list at key,
// mirroring RedisConn::lpopList.
func (c *Conn) LPopList(ctx context.Context, key string) (string, bool, error) {
	v, err := c.rdb.LPop(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	return v, err == nil, err
}

// RPushList appends value to the list at key, mirroring RedisConn::rpushList.
func (c *Conn) RPushList(ctx context.Context, key, value string) error {
	return c.rdb.RPush(ctx, key, value).Err()
}

// RPopList removes and returns the last element of the list at key,
// mirroring RedisConn::rpopList.
func (c *Conn) RPopList(ctx context.Context, key string) (string, bool, error) {
	v, err := c.rdb.RPop(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	return v, err == nil, err
}

// IndexList returns the element at index in the list at key, mirroring
// RedisConn::indexList.
func (c *Conn) IndexList(ctx context.Context, key string, index int64) (string, bool, error) {
	v, err := c.rdb.LIndex(ctx, key, index).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	return v, err == nil, err
}

// LenList returns the length of the list at key, mirroring RedisConn::lenList.
func (c *Conn) LenList(ctx context.Context, key string) (int64, error) {
	return c.rdb.LLen(ctx, key).Result()
}

// RangeList returns the elements of the list at key over [start, end],
// mirroring RedisConn::rangeList.
func (c *Conn) RangeList(ctx context.Context, key string, start, end int64) ([]string, error) {
	return c.rdb.LRange(ctx, key, start, end).Result()
}

// SetList sets the element at index in the list at key to value, mirroring
// RedisConn::setList.
func (c *Conn) SetList(ctx context.Context, key string, index int64, value string) error {
	return c.rdb.LSet(ctx, key, index, value).Err()
}

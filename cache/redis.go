// INSPECTOR, Infrastructure Inspection Platform
// Copyright (C) 2023-2024 OpsMind Co., Ltd.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version. For any non-GPL usage of Inspector,
// one or multiple Commercial Licenses authorized by OpsMind Co., Ltd.
// must be obtained first.

// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.

// You should have received a copy of the GNU General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

//Store shared cache used by the inspection engine and the log monitor.
//Implementations must degrade gracefully: a broken backend is logged
//and reads report a miss rather than an error.
type Store interface {
	Get(ctx context.Context, key string, into interface{}) bool
	Set(ctx context.Context, key string, value interface{}) error
	SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	KeyTTL(ctx context.Context, key string) (time.Duration, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HIncrByMapping(ctx context.Context, key string, increments map[string]int64, ttl time.Duration) error
	TryAcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

//RedisStore Store backed by a redis server
type RedisStore struct {
	client *redis.Client
}

//NewRedisStore NewRedisStore
func NewRedisStore(addr, password string, db int) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisStore{client: client}
}

//NewRedisStoreFromClient wrap an existing client, used by tests
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

//Close Close
func (s *RedisStore) Close() error {
	return s.client.Close()
}

//Get reads a JSON value into the target. A miss, a stale key or a
//backend failure all report false.
func (s *RedisStore) Get(ctx context.Context, key string, into interface{}) bool {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logrus.Warningf("redis get %s error %s", key, err.Error())
		}
		return false
	}
	if err := json.Unmarshal(data, into); err != nil {
		logrus.Warningf("redis decode %s error %s", key, err.Error())
		return false
	}
	return true
}

//Set stores a JSON value without expiry
func (s *RedisStore) Set(ctx context.Context, key string, value interface{}) error {
	return s.SetWithTTL(ctx, key, value, 0)
}

//SetWithTTL stores a JSON value with an expiry, 0 means no expiry
func (s *RedisStore) SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, key, data, ttl).Err(); err != nil {
		logrus.Warningf("redis set %s error %s", key, err.Error())
		return err
	}
	return nil
}

//Delete Delete
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

//KeyTTL remaining lifetime of a key, negative when absent or persistent
func (s *RedisStore) KeyTTL(ctx context.Context, key string) (time.Duration, error) {
	return s.client.TTL(ctx, key).Result()
}

//HGetAll read all fields of a hash
func (s *RedisStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return s.client.HGetAll(ctx, key).Result()
}

//HIncrByMapping atomically increments hash fields in one transaction.
//A positive ttl is applied in the same pipeline.
func (s *RedisStore) HIncrByMapping(ctx context.Context, key string, increments map[string]int64, ttl time.Duration) error {
	if len(increments) == 0 {
		return nil
	}
	pipe := s.client.TxPipeline()
	for field, delta := range increments {
		pipe.HIncrBy(ctx, key, field, delta)
	}
	if ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		logrus.Warningf("redis hincrby %s error %s", key, err.Error())
		return err
	}
	return nil
}

//TryAcquireLock best effort distributed lock via SETNX
func (s *RedisStore) TryAcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, key, 1, ttl).Result()
	if err != nil {
		logrus.Warningf("redis lock %s error %s", key, err.Error())
		return false, err
	}
	return ok, nil
}

//Expire Expire
func (s *RedisStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return s.client.Expire(ctx, key, ttl).Err()
}

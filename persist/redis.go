// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package persist

import (
	"fmt"
	"time"
	"unsafe"

	"gopkg.in/redis.v4"

	"github.com/aristanetworks/relocatable/reloc"
)

// RedisCommands is the slice of the redis client surface SaveRedis and
// LoadRedis need. *redis.Client satisfies it; tests substitute a fake that
// returns canned results.
type RedisCommands interface {
	Set(key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(key string) *redis.StringCmd
}

// NewRedisClient returns a client for the redis server at addr, the
// alternative snapshot store to Save's local file when several processes
// share one set of snapshots.
func NewRedisClient(addr, password string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
}

// SaveRedis compacts v into a contiguous byte image and stores it under key
// with no expiry. Redis SET is atomic, so unlike the file path there is no
// temp-and-rename dance: a reader sees either the old image or the new one.
func SaveRedis[T any, PT reloc.Compactable[T]](client RedisCommands, key string, v *T) error {
	total := reloc.TotalSizeBytes[T, PT](v)
	buf := make([]byte, total)
	dst := (*T)(unsafe.Pointer(&buf[0]))
	reloc.CompactBehind[T, PT](v, dst)

	if err := client.Set(key, buf, 0).Err(); err != nil {
		return fmt.Errorf("persist: redis SET %q: %w", key, err)
	}
	return nil
}

// LoadRedis reads the byte image stored by SaveRedis and decompacts it into
// a fully heap-owned value.
func LoadRedis[T any, PT reloc.Compactable[T]](client RedisCommands, key string) (T, error) {
	var zero T
	data, err := client.Get(key).Bytes()
	if err == redis.Nil {
		return zero, fmt.Errorf("persist: redis GET %q: no snapshot", key)
	}
	if err != nil {
		return zero, fmt.Errorf("persist: redis GET %q: %w", key, err)
	}
	if len(data) == 0 {
		return zero, fmt.Errorf("persist: redis GET %q: empty snapshot", key)
	}

	src := (*T)(unsafe.Pointer(&data[0]))
	return PT(src).Decompact(), nil
}

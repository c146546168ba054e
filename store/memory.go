package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rushteam/clipfeed/core"
)

// MemoryStore 是内存实现的 KeyValueStore，开发与测试使用。
// 字符串值与有序集合共用 key 空间与过期时间，行为与 Redis 一致；进程重启后数据丢失。
type MemoryStore struct {
	mu      sync.RWMutex
	values  map[string][]byte
	zsets   map[string]map[string]float64 // key -> member -> score
	expires map[string]time.Time
	now     func() time.Time

	clean *time.Ticker
	done  chan struct{}
	once  sync.Once
}

func NewMemoryStore() *MemoryStore {
	ms := &MemoryStore{
		values:  make(map[string][]byte),
		zsets:   make(map[string]map[string]float64),
		expires: make(map[string]time.Time),
		now:     time.Now,
		clean:   time.NewTicker(10 * time.Second),
		done:    make(chan struct{}),
	}
	go ms.cleanup()
	return ms
}

var _ core.KeyValueStore = (*MemoryStore)(nil)

func (m *MemoryStore) Name() string { return "memory" }

// expired 调用方需持有锁。
func (m *MemoryStore) expired(key string, now time.Time) bool {
	at, ok := m.expires[key]
	return ok && !now.Before(at)
}

// dropLocked 删除 key 的所有数据，调用方需持有写锁。
func (m *MemoryStore) dropLocked(key string) {
	delete(m.values, key)
	delete(m.zsets, key)
	delete(m.expires, key)
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key]
	if !ok || m.expired(key, m.now()) {
		return nil, core.ErrStoreNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.dropLocked(key)
	m.values[key] = append([]byte(nil), value...)
	if ttl > 0 {
		m.expires[key] = m.now().Add(ttl)
	}
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.dropLocked(key)
	return nil
}

func (m *MemoryStore) Expire(_ context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, isValue := m.values[key]
	_, isZSet := m.zsets[key]
	if !isValue && !isZSet {
		return nil
	}
	if ttl <= 0 {
		m.dropLocked(key)
		return nil
	}
	m.expires[key] = m.now().Add(ttl)
	return nil
}

func (m *MemoryStore) Close() error {
	m.once.Do(func() {
		m.clean.Stop()
		close(m.done)
	})
	return nil
}

func (m *MemoryStore) cleanup() {
	for {
		select {
		case <-m.done:
			return
		case <-m.clean.C:
			m.mu.Lock()
			now := m.now()
			for key := range m.expires {
				if m.expired(key, now) {
					m.dropLocked(key)
				}
			}
			m.mu.Unlock()
		}
	}
}

func (m *MemoryStore) ZAdd(_ context.Context, key string, score float64, member string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.expired(key, m.now()) {
		m.dropLocked(key)
	}
	if m.zsets[key] == nil {
		delete(m.values, key)
		m.zsets[key] = make(map[string]float64)
	}
	m.zsets[key][member] = score
	return nil
}

type zmember struct {
	member string
	score  float64
}

// ZRangeByScore 按 score 升序返回，score 相同按 member 字典序（与 Redis 一致）。
func (m *MemoryStore) ZRangeByScore(_ context.Context, key string, min, max float64) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.expired(key, m.now()) {
		return nil, nil
	}
	var matched []zmember
	for member, score := range m.zsets[key] {
		if score >= min && score <= max {
			matched = append(matched, zmember{member: member, score: score})
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].score != matched[j].score {
			return matched[i].score < matched[j].score
		}
		return matched[i].member < matched[j].member
	})

	var out []string
	for _, z := range matched {
		out = append(out, z.member)
	}
	return out, nil
}

func (m *MemoryStore) ZRemRangeByScore(_ context.Context, key string, min, max float64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	zset := m.zsets[key]
	var removed int64
	for member, score := range zset {
		if score >= min && score <= max {
			delete(zset, member)
			removed++
		}
	}
	if zset != nil && len(zset) == 0 {
		m.dropLocked(key)
	}
	return removed, nil
}

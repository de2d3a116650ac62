package chat

import (
	"context"
	"sort"
	"sync"
)

// Registry 在线用户表：用户 id -> 当前连接 id，以及用户当前的活动状态
type Registry interface {
	Add(ctx context.Context, userID, connID string) error
	Touch(ctx context.Context, userID, connID string) error
	// Remove 仅当 connID 仍是该用户的当前连接时移除，返回是否移除
	Remove(ctx context.Context, userID, connID string) (bool, error)
	Lookup(ctx context.Context, userID string) (string, bool, error)
	Online(ctx context.Context) ([]string, error)
	SetActivity(ctx context.Context, userID, activity string) error
	Activities(ctx context.Context) (map[string]string, error)
}

// MemoryRegistry 进程内在线表，单实例部署使用
type MemoryRegistry struct {
	mu         sync.RWMutex
	conns      map[string]string
	activities map[string]string
}

// NewMemoryRegistry 创建进程内在线表
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		conns:      make(map[string]string),
		activities: make(map[string]string),
	}
}

func (r *MemoryRegistry) Add(_ context.Context, userID, connID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[userID] = connID
	return nil
}

func (r *MemoryRegistry) Touch(context.Context, string, string) error {
	return nil
}

func (r *MemoryRegistry) Remove(_ context.Context, userID, connID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conns[userID] != connID {
		return false, nil
	}
	delete(r.conns, userID)
	delete(r.activities, userID)
	return true, nil
}

func (r *MemoryRegistry) Lookup(_ context.Context, userID string) (string, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	connID, ok := r.conns[userID]
	return connID, ok, nil
}

func (r *MemoryRegistry) Online(context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	users := make([]string, 0, len(r.conns))
	for id := range r.conns {
		users = append(users, id)
	}
	sort.Strings(users)
	return users, nil
}

func (r *MemoryRegistry) SetActivity(_ context.Context, userID, activity string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.activities[userID] = activity
	return nil
}

func (r *MemoryRegistry) Activities(context.Context) (map[string]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.activities))
	for k, v := range r.activities {
		out[k] = v
	}
	return out, nil
}

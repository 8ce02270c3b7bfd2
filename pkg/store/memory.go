package store

import (
	"context"
	"sync"

	"github.com/stitchkit/stitch.go/pkg/constants"
)

type Memory struct {
	mu    sync.RWMutex
	infos map[string]AuthInfo
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{infos: make(map[string]AuthInfo)}
}

func (m *Memory) Load(_ context.Context, appID string) (*AuthInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	info, ok := m.infos[appID]
	if !ok {
		return nil, constants.ErrAuthInfoNotFound
	}
	return &info, nil
}

func (m *Memory) Save(_ context.Context, appID string, info *AuthInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.infos[appID] = *info
	return nil
}

func (m *Memory) Clear(_ context.Context, appID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.infos, appID)
	return nil
}

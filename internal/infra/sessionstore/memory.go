package sessionstore

import (
	"context"
	"sync"
)

// Memory keeps the session for the life of the process. Used by
// `artfy serve` when nothing should touch disk, and in tests.
type Memory struct {
	mu    sync.Mutex
	token string
	info  []byte
}

// NewMemory creates an empty in-memory persister.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Load(_ context.Context) (string, []byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var info []byte
	if m.info != nil {
		info = append([]byte(nil), m.info...)
	}
	return m.token, info, nil
}

func (m *Memory) Save(_ context.Context, token string, userInfo []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.token = token
	m.info = append([]byte(nil), userInfo...)
	return nil
}

func (m *Memory) Delete(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.token, m.info = "", nil
	return nil
}

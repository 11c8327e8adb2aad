package observer

import (
	"sync"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// MaxRemembered bounds the number of submitted keys kept for de-duplication.
const MaxRemembered = 100

// memory is a bounded insertion-ordered set. The oldest key is evicted once
// the limit is exceeded.
type memory struct {
	mu    sync.Mutex
	limit int
	keys  *orderedmap.OrderedMap[string, struct{}]
}

func newMemory(limit int) *memory {
	return &memory{limit: limit, keys: orderedmap.New[string, struct{}]()}
}

func (m *memory) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.keys.Get(key)
	return ok
}

func (m *memory) Add(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, present := m.keys.Set(key, struct{}{}); present {
		return
	}
	for m.keys.Len() > m.limit {
		m.keys.Delete(m.keys.Oldest().Key)
	}
}

func (m *memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.keys.Len()
}

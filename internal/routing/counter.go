package routing

import "sync"

// Counter is the durable round-robin counter. Peek reads the value used for
// a tie-break, Advance stores value+1 and Reset stores 0. Implementations
// backed by storage are scoped to one transaction, so a peek and the advance
// that follows it commit or roll back together.
type Counter interface {
	Peek() int64
	Advance()
	Reset()
}

// MemoryCounter is a process-local Counter for tests and dry runs.
type MemoryCounter struct {
	mu    sync.Mutex
	value int64
}

func NewMemoryCounter(start int64) *MemoryCounter {
	return &MemoryCounter{value: start}
}

func (c *MemoryCounter) Peek() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

func (c *MemoryCounter) Advance() {
	c.mu.Lock()
	c.value++
	c.mu.Unlock()
}

func (c *MemoryCounter) Reset() {
	c.mu.Lock()
	c.value = 0
	c.mu.Unlock()
}

package tracer

import (
	"sync"

	"github.com/trask/brave-agent/propagation"
)

// CurrentTraceContext is the stack of in-scope span contexts of one logical
// thread of execution. Scoped spans are parented to its top.
type CurrentTraceContext struct {
	mu    sync.Mutex
	stack []propagation.SpanContext
}

// NewCurrentTraceContext returns a stack whose bottom is root. An invalid
// root leaves the stack empty.
func NewCurrentTraceContext(root propagation.SpanContext) *CurrentTraceContext {
	c := &CurrentTraceContext{}
	if root.IsValid() {
		c.stack = append(c.stack, root)
	}
	return c
}

// Get returns the context in scope.
func (c *CurrentTraceContext) Get() (propagation.SpanContext, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.stack) == 0 {
		return propagation.SpanContext{}, false
	}
	return c.stack[len(c.stack)-1], true
}

// Depth is the number of contexts on the stack.
func (c *CurrentTraceContext) Depth() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.stack)
}

// NewScope puts sc in scope until the returned Scope is closed.
func (c *CurrentTraceContext) NewScope(sc propagation.SpanContext) *Scope {
	c.mu.Lock()
	defer c.mu.Unlock()
	depth := len(c.stack)
	c.stack = append(c.stack, sc)
	return &Scope{current: c, depth: depth}
}

// Scope restores the previous context in scope when closed.
type Scope struct {
	current *CurrentTraceContext
	depth   int
	once    sync.Once
}

// Close pops the scope and everything opened above it. Closing twice is a
// no-op.
func (s *Scope) Close() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		c := s.current
		c.mu.Lock()
		defer c.mu.Unlock()
		if len(c.stack) > s.depth {
			c.stack = c.stack[:s.depth]
		}
	})
}

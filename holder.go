package agent

import (
	"context"
	"sync/atomic"
)

// Holder is the slot for the ThreadContext active on one goroutine. A
// goroutine starting or resuming traced work passes its own Holder; a non-nil
// value means the goroutine is already inside a traced scope.
type Holder struct {
	current atomic.Pointer[ThreadContext]
}

// NewHolder returns an empty Holder.
func NewHolder() *Holder {
	return &Holder{}
}

// Get returns the active context, or nil.
func (h *Holder) Get() *ThreadContext {
	return h.current.Load()
}

func (h *Holder) Set(tc *ThreadContext) {
	h.current.Store(tc)
}

func (h *Holder) Clear() {
	h.current.Store(nil)
}

// clearTransaction empties the holder only while it still holds a context of
// incoming.
func (h *Holder) clearTransaction(incoming *IncomingSpan) {
	if tc := h.current.Load(); tc != nil && tc.incoming == incoming {
		h.current.CompareAndSwap(tc, nil)
	}
}

type holderKey struct{}

// NewContext returns a copy of ctx carrying h.
func NewContext(ctx context.Context, h *Holder) context.Context {
	return context.WithValue(ctx, holderKey{}, h)
}

// HolderFromContext returns the Holder carried by ctx, or nil.
func HolderFromContext(ctx context.Context) *Holder {
	h, _ := ctx.Value(holderKey{}).(*Holder)
	return h
}

// ThreadContextFromContext returns the context active in the Holder carried
// by ctx, or nil.
func ThreadContextFromContext(ctx context.Context) *ThreadContext {
	if h := HolderFromContext(ctx); h != nil {
		return h.Get()
	}
	return nil
}

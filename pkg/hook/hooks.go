// Copyright 2024 The jackal Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package hook

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"
)

// Priority defines hook execution priority.
type Priority int32

const (
	// LowestPriority defines lowest hook execution priority.
	LowestPriority = Priority(math.MinInt32)

	// DefaultPriority defines default hook execution priority.
	DefaultPriority = Priority(0)

	// HighestPriority defines highest hook execution priority.
	HighestPriority = Priority(math.MaxInt32)
)

// Handler defines a generic hook handler function.
type Handler func(ctx context.Context, execCtx *ExecutionContext) error

// HandlerID identifies a registered handler.
type HandlerID uint64

// ErrStopped error is returned by a handler to halt hook execution.
var ErrStopped = errors.New("hook: execution stopped")

// ExecutionContext defines a hook execution info context.
type ExecutionContext struct {
	Info   interface{}
	Sender interface{}
}

type handler struct {
	id HandlerID
	h  Handler
	p  Priority
}

// Hooks represents a set of hook handlers.
type Hooks struct {
	mu       sync.RWMutex
	nextID   HandlerID
	handlers map[string][]handler
}

// NewHooks returns a new initialized Hooks instance.
func NewHooks() *Hooks {
	return &Hooks{
		handlers: make(map[string][]handler),
	}
}

// AddHook registers hnd under hook name. Handlers with a higher priority run first,
// equal priority handlers run in registration order.
func (h *Hooks) AddHook(hook string, hnd Handler, priority Priority) HandlerID {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	id := h.nextID

	handlers := append(h.handlers[hook], handler{id: id, h: hnd, p: priority})
	sort.SliceStable(handlers, func(i, j int) bool { return handlers[i].p > handlers[j].p })
	h.handlers[hook] = handlers

	return id
}

// RemoveHook removes a previously registered handler.
func (h *Hooks) RemoveHook(hook string, id HandlerID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	handlers := h.handlers[hook]
	for i := range handlers {
		if handlers[i].id != id {
			continue
		}
		h.handlers[hook] = append(handlers[:i:i], handlers[i+1:]...)
		return
	}
}

// Run invokes all hook handlers in order.
// If halted return value is true a handler stopped the execution chain.
func (h *Hooks) Run(ctx context.Context, hook string, execCtx *ExecutionContext) (halted bool, err error) {
	h.mu.RLock()
	handlers := h.handlers[hook]
	h.mu.RUnlock()

	for _, hnd := range handlers {
		err := hnd.h(ctx, execCtx)
		switch {
		case err == nil:
			continue
		case errors.Is(err, ErrStopped):
			return true, nil
		default:
			return false, err
		}
	}
	return false, nil
}

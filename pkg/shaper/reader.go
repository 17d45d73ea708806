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

package shaper

import (
	"context"
	"io"
	"sync/atomic"
)

// Reader implements a traffic shaped io.Reader.
type Reader struct {
	ctx context.Context
	r   io.Reader
	shp atomic.Pointer[Shaper]
}

// NewReader returns a shaped io.Reader implementation.
// Any pending shaping delay is aborted once ctx is done.
func NewReader(ctx context.Context, r io.Reader) *Reader {
	return &Reader{ctx: ctx, r: r}
}

// Read implements io.Reader interface method.
func (sr *Reader) Read(p []byte) (n int, err error) {
	n, err = sr.r.Read(p)
	if n == 0 {
		return n, err
	}
	if shp := sr.shp.Load(); shp != nil {
		if wErr := shp.Wait(sr.ctx, n); wErr != nil {
			return 0, wErr
		}
	}
	return n, err
}

// SetShaper sets the shaper applied to subsequent reads.
func (sr *Reader) SetShaper(shp *Shaper) {
	sr.shp.Store(shp)
}

// Shaper returns the shaper currently in use.
func (sr *Reader) Shaper() *Shaper {
	return sr.shp.Load()
}

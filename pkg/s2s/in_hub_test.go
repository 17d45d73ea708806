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

package s2s

import (
	"context"
	"testing"
	"time"

	kitlog "github.com/go-kit/log"
	streamerror "github.com/jackal-xmpp/stravaganza/v2/errors/stream"
	"github.com/stretchr/testify/require"
)

func TestInHub_StartStop(t *testing.T) {
	// given
	doneCh := make(chan struct{})
	close(doneCh)

	var discReason streamerror.Reason
	stmMock := &s2sInMock{
		IDFunc:   func() string { return "s2s:in:1" },
		DoneFunc: func() <-chan struct{} { return doneCh },
		DisconnectFunc: func(streamErr *streamerror.Error) <-chan error {
			discReason = streamErr.Reason
			return nil
		},
	}
	h := NewInHub(kitlog.NewNopLogger())

	// when
	_ = h.Start(context.Background())
	h.register(stmMock)
	err := h.Stop(context.Background())

	// then
	require.Nil(t, err)
	require.Equal(t, 1, stmMock.DisconnectCalls())
	require.Equal(t, streamerror.SystemShutdown, discReason)
}

func TestInHub_StopTimeout(t *testing.T) {
	// given
	stmMock := &s2sInMock{
		IDFunc:         func() string { return "s2s:in:1" },
		DoneFunc:       func() <-chan struct{} { return make(chan struct{}) },
		DisconnectFunc: func(_ *streamerror.Error) <-chan error { return nil },
	}
	h := NewInHub(kitlog.NewNopLogger())
	_ = h.Start(context.Background())
	h.register(stmMock)

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond*50)
	defer cancel()

	// when
	err := h.Stop(ctx)

	// then
	require.Equal(t, context.DeadlineExceeded, err)
}

func TestInHub_Unregister(t *testing.T) {
	// given
	stmMock := &s2sInMock{IDFunc: func() string { return "s2s:in:1" }}
	h := NewInHub(kitlog.NewNopLogger())

	// when
	h.register(stmMock)
	require.Equal(t, 1, h.Count())
	h.unregister(stmMock)

	// then
	require.Equal(t, 0, h.Count())
}

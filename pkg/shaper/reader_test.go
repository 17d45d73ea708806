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
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type readerMock struct {
	ReadFunc func(p []byte) (int, error)
}

func (m *readerMock) Read(p []byte) (int, error) { return m.ReadFunc(p) }

func TestReader_Shaped(t *testing.T) {
	// given
	mockR := &readerMock{ReadFunc: func(p []byte) (int, error) {
		p[0] = 0x23
		return 1, nil
	}}
	r := NewReader(context.Background(), mockR)
	p := make([]byte, 1)

	// when
	start := time.Now()
	for i := 0; i < 50_000; i++ {
		_, err := r.Read(p)
		require.Nil(t, err)
	}
	unshaped := time.Since(start)

	r.SetShaper(New(Profile{Rate: 100, BurstSize: 10}))
	start = time.Now()
	for i := 0; i < 20; i++ {
		_, err := r.Read(p)
		require.Nil(t, err)
	}
	shaped := time.Since(start)

	// then
	require.Less(t, unshaped, time.Second)
	require.GreaterOrEqual(t, shaped, 90*time.Millisecond)
}

func TestReader_CancelPendingDelay(t *testing.T) {
	// given
	mockR := &readerMock{ReadFunc: func(p []byte) (int, error) {
		return len(p), nil
	}}
	ctx, cancel := context.WithCancel(context.Background())
	r := NewReader(ctx, mockR)
	r.SetShaper(New(Profile{Rate: 1, BurstSize: 1}))

	// when
	time.AfterFunc(50*time.Millisecond, cancel)
	_, err := r.Read(make([]byte, 1024))

	// then
	require.Equal(t, context.Canceled, err)
}

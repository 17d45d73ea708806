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

package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestStatic_Authenticate(t *testing.T) {
	// given
	hash, _ := bcrypt.GenerateFromPassword([]byte("1234"), bcrypt.MinCost)
	s, err := NewStatic(StaticConfig{Users: map[string]string{"ortuman": string(hash)}})
	require.Nil(t, err)

	// when
	ok1, err1 := s.Authenticate(context.Background(), "ortuman", "1234")
	ok2, err2 := s.Authenticate(context.Background(), "ortuman", "4321")
	ok3, err3 := s.Authenticate(context.Background(), "noelia", "1234")

	// then
	require.True(t, ok1)
	require.Nil(t, err1)
	require.False(t, ok2)
	require.Nil(t, err2)
	require.False(t, ok3)
	require.Nil(t, err3)
	require.True(t, s.UserExists("ortuman"))
}

func TestStatic_InvalidHash(t *testing.T) {
	// when
	_, err := NewStatic(StaticConfig{Users: map[string]string{"ortuman": "plaintext"}})

	// then
	require.NotNil(t, err)
}

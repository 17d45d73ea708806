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
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// StaticConfig contains static authentication backend configuration.
type StaticConfig struct {
	// Users maps a username to its bcrypt password hash.
	Users map[string]string `fig:"users"`
}

// Static is a Backend validating credentials against a fixed set of bcrypt hashes.
type Static struct {
	users map[string][]byte
}

// NewStatic returns a new static backend. Every configured hash must be a valid bcrypt one.
func NewStatic(cfg StaticConfig) (*Static, error) {
	s := &Static{users: make(map[string][]byte, len(cfg.Users))}
	for username, hash := range cfg.Users {
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, fmt.Errorf("auth: invalid password hash for user %s: %w", username, err)
		}
		s.users[username] = []byte(hash)
	}
	return s, nil
}

// Authenticate satisfies Backend interface.
func (s *Static) Authenticate(_ context.Context, username, password string) (bool, error) {
	hash, ok := s.users[username]
	if !ok {
		return false, nil
	}
	err := bcrypt.CompareHashAndPassword(hash, []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, err
	}
}

// UserExists tells whether username is a known account.
func (s *Static) UserExists(username string) bool {
	_, ok := s.users[username]
	return ok
}

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

package repository

import (
	"context"

	"github.com/jackal-xmpp/stravaganza/v2"
)

// Offline defines storage operations for offline messages.
// Accounts are identified by their bare JID string.
type Offline interface {
	// InsertOfflineMessage appends a message to the account offline queue.
	InsertOfflineMessage(ctx context.Context, message *stravaganza.Message, bareJID string) error

	// CountOfflineMessages returns the account offline queue size.
	CountOfflineMessages(ctx context.Context, bareJID string) (int, error)

	// FetchOfflineMessages retrieves the account offline queue in insertion order.
	FetchOfflineMessages(ctx context.Context, bareJID string) ([]*stravaganza.Message, error)

	// DeleteOfflineMessages clears the account offline queue.
	DeleteOfflineMessages(ctx context.Context, bareJID string) error
}

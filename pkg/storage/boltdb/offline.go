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

package boltdb

import (
	"context"
	"fmt"

	"github.com/jackal-xmpp/stravaganza/v2"
	"github.com/ortuman/kestrel/pkg/storage/repository"
	bolt "go.etcd.io/bbolt"
)

type boltDBOfflineRep struct {
	tx *bolt.Tx
}

func newOfflineRep(tx *bolt.Tx) *boltDBOfflineRep {
	return &boltDBOfflineRep{tx: tx}
}

func (r *boltDBOfflineRep) InsertOfflineMessage(_ context.Context, message *stravaganza.Message, bareJID string) error {
	b, err := repository.EncodeMessage(message)
	if err != nil {
		return err
	}
	op := insertSeqOp{
		tx:     r.tx,
		bucket: offlineBucket(bareJID),
		val:    b,
	}
	return op.do()
}

func (r *boltDBOfflineRep) CountOfflineMessages(_ context.Context, bareJID string) (int, error) {
	op := countKeysOp{
		tx:     r.tx,
		bucket: offlineBucket(bareJID),
	}
	return op.do()
}

func (r *boltDBOfflineRep) FetchOfflineMessages(_ context.Context, bareJID string) ([]*stravaganza.Message, error) {
	var retVal []*stravaganza.Message

	op := iterKeysOp{
		tx:     r.tx,
		bucket: offlineBucket(bareJID),
		iterFn: func(_, b []byte) error {
			msg, err := repository.DecodeMessage(b)
			if err != nil {
				return err
			}
			retVal = append(retVal, msg)
			return nil
		},
	}
	if err := op.do(); err != nil {
		return nil, err
	}
	return retVal, nil
}

func (r *boltDBOfflineRep) DeleteOfflineMessages(_ context.Context, bareJID string) error {
	op := delBucketOp{
		tx:     r.tx,
		bucket: offlineBucket(bareJID),
	}
	return op.do()
}

func offlineBucket(bareJID string) string {
	return fmt.Sprintf("offline:%s", bareJID)
}

// InsertOfflineMessage satisfies repository.Offline interface.
func (r *Repository) InsertOfflineMessage(ctx context.Context, message *stravaganza.Message, bareJID string) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		return newOfflineRep(tx).InsertOfflineMessage(ctx, message, bareJID)
	})
}

// CountOfflineMessages satisfies repository.Offline interface.
func (r *Repository) CountOfflineMessages(ctx context.Context, bareJID string) (c int, err error) {
	err = r.db.View(func(tx *bolt.Tx) error {
		c, err = newOfflineRep(tx).CountOfflineMessages(ctx, bareJID)
		return err
	})
	return
}

// FetchOfflineMessages satisfies repository.Offline interface.
func (r *Repository) FetchOfflineMessages(ctx context.Context, bareJID string) (ms []*stravaganza.Message, err error) {
	err = r.db.View(func(tx *bolt.Tx) error {
		ms, err = newOfflineRep(tx).FetchOfflineMessages(ctx, bareJID)
		return err
	})
	return
}

// DeleteOfflineMessages satisfies repository.Offline interface.
func (r *Repository) DeleteOfflineMessages(ctx context.Context, bareJID string) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		return newOfflineRep(tx).DeleteOfflineMessages(ctx, bareJID)
	})
}

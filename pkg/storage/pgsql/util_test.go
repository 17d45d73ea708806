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

package pgsqlrepository

import (
	"database/sql"

	"github.com/DATA-DOG/go-sqlmock"
	kitlog "github.com/go-kit/log"
)

func newPgSQLMock() (*sql.DB, sqlmock.Sqlmock) {
	db, sqlMock, err := sqlmock.New()
	if err != nil {
		panic(err)
	}
	return db, sqlMock
}

func newOfflineMock() (*pgSQLOfflineRep, sqlmock.Sqlmock) {
	s, sqlMock := newPgSQLMock()
	return &pgSQLOfflineRep{conn: s, logger: kitlog.NewNopLogger()}, sqlMock
}

func newRoomMock() (*pgSQLRoomRep, sqlmock.Sqlmock) {
	s, sqlMock := newPgSQLMock()
	return &pgSQLRoomRep{conn: s, logger: kitlog.NewNopLogger()}, sqlMock
}

func newPubSubMock() (*pgSQLPubSubRep, sqlmock.Sqlmock) {
	s, sqlMock := newPgSQLMock()
	return &pgSQLPubSubRep{conn: s, logger: kitlog.NewNopLogger()}, sqlMock
}

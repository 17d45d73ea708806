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
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackal-xmpp/stravaganza/v2"
	"github.com/ortuman/kestrel/pkg/storage/repository"
	"github.com/stretchr/testify/require"
)

func TestPgSQLOffline_InsertOfflineMessage(t *testing.T) {
	// given
	msg := testMessageStanza("hi")
	b, _ := repository.EncodeMessage(msg)

	s, mock := newOfflineMock()
	mock.ExpectExec(`INSERT INTO offline_messages \(jid,message\) VALUES \(\$1,\$2\)`).
		WithArgs("ortuman@jackal.im", b).
		WillReturnResult(sqlmock.NewResult(1, 1))

	// when
	err := s.InsertOfflineMessage(context.Background(), msg, "ortuman@jackal.im")

	// then
	require.Nil(t, mock.ExpectationsWereMet())
	require.Nil(t, err)
}

func TestPgSQLOffline_CountOfflineMessages(t *testing.T) {
	// given
	s, mock := newOfflineMock()
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM offline_messages WHERE jid = \$1`).
		WithArgs("ortuman@jackal.im").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1000))

	// when
	cnt, err := s.CountOfflineMessages(context.Background(), "ortuman@jackal.im")

	// then
	require.Nil(t, mock.ExpectationsWereMet())
	require.Nil(t, err)
	require.Equal(t, 1000, cnt)
}

func TestPgSQLOffline_FetchOfflineMessages(t *testing.T) {
	// given
	b0, _ := repository.EncodeMessage(testMessageStanza("first"))
	b1, _ := repository.EncodeMessage(testMessageStanza("second"))

	s, mock := newOfflineMock()
	mock.ExpectQuery(`SELECT message FROM offline_messages WHERE jid = \$1 ORDER BY id`).
		WithArgs("ortuman@jackal.im").
		WillReturnRows(sqlmock.NewRows([]string{"message"}).AddRow(b0).AddRow(b1))

	// when
	ms, err := s.FetchOfflineMessages(context.Background(), "ortuman@jackal.im")

	// then
	require.Nil(t, mock.ExpectationsWereMet())
	require.Nil(t, err)
	require.Len(t, ms, 2)
	require.Equal(t, "first", ms[0].Child("body").Text())
	require.Equal(t, "second", ms[1].Child("body").Text())
}

func TestPgSQLOffline_DeleteOfflineMessages(t *testing.T) {
	// given
	s, mock := newOfflineMock()
	mock.ExpectExec(`DELETE FROM offline_messages WHERE jid = \$1`).
		WithArgs("ortuman@jackal.im").
		WillReturnResult(sqlmock.NewResult(0, 2))

	// when
	err := s.DeleteOfflineMessages(context.Background(), "ortuman@jackal.im")

	// then
	require.Nil(t, mock.ExpectationsWereMet())
	require.Nil(t, err)
}

func TestPgSQLOffline_QueryError(t *testing.T) {
	// given
	errMock := errors.New("pgsql: connection reset")

	s, mock := newOfflineMock()
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM offline_messages WHERE jid = \$1`).
		WithArgs("ortuman@jackal.im").
		WillReturnError(errMock)

	// when
	_, err := s.CountOfflineMessages(context.Background(), "ortuman@jackal.im")

	// then
	require.Nil(t, mock.ExpectationsWereMet())
	require.Equal(t, errMock, err)
}

func testMessageStanza(body string) *stravaganza.Message {
	msg, _ := stravaganza.NewMessageBuilder().
		WithAttribute(stravaganza.From, "noelia@jackal.im/yard").
		WithAttribute(stravaganza.To, "ortuman@jackal.im").
		WithAttribute(stravaganza.Type, stravaganza.ChatType).
		WithChild(stravaganza.NewBuilder("body").WithText(body).Build()).
		BuildMessage()
	return msg
}

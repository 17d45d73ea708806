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

package transport

import (
	"net"
	"time"
)

// deadlineConn refreshes the connection read deadline before every read,
// so that an idle peer makes Read fail with a timeout error.
type deadlineConn struct {
	net.Conn
	idleTimeout time.Duration
}

func newDeadlineConn(conn net.Conn, idleTimeout time.Duration) net.Conn {
	if idleTimeout <= 0 {
		return conn
	}
	return &deadlineConn{Conn: conn, idleTimeout: idleTimeout}
}

func (c *deadlineConn) Read(b []byte) (int, error) {
	if err := c.Conn.SetReadDeadline(time.Now().Add(c.idleTimeout)); err != nil {
		return 0, err
	}
	return c.Conn.Read(b)
}

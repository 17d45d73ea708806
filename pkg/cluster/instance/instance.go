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

package instance

import (
	"errors"
	"net"
	"os"
	"sync"

	"github.com/google/uuid"
)

const (
	envInstanceID = "KESTREL_INSTANCE_ID"
	envHostname   = "KESTREL_HOSTNAME"

	fallbackHostname = "localhost"
)

var (
	onceID, onceHostname sync.Once
	instID, hostname     string
)

var interfaceAddrs = net.InterfaceAddrs

// ID returns the identifier of the running process.
// KESTREL_INSTANCE_ID takes precedence; otherwise a random UUID is assigned once.
func ID() string {
	onceID.Do(func() { instID = resolveID() })
	return instID
}

// Hostname returns the name under which the running process is reachable.
func Hostname() string {
	onceHostname.Do(func() { hostname = resolveHostname() })
	return hostname
}

func resolveID() string {
	if id := os.Getenv(envInstanceID); len(id) > 0 {
		return id
	}
	return uuid.New().String()
}

func resolveHostname() string {
	if hn := os.Getenv(envHostname); len(hn) > 0 {
		return hn
	}
	ip, err := firstIPv4()
	if err != nil {
		return fallbackHostname
	}
	return ip
}

func firstIPv4() (string, error) {
	addrs, err := interfaceAddrs()
	if err != nil {
		return "", err
	}
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() || ipNet.IP.To4() == nil {
			continue
		}
		return ipNet.IP.String(), nil
	}
	return "", errors.New("instance: no IPv4 address found")
}

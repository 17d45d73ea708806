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

package muc

import (
	mucmodel "github.com/ortuman/kestrel/pkg/model/muc"
)

// RoomDefaults contains the configuration assigned to newly created rooms.
type RoomDefaults struct {
	Persistent  bool `fig:"persistent"`
	Public      bool `fig:"public" default:"true"`
	MembersOnly bool `fig:"members_only"`
	Moderated   bool `fig:"moderated"`
}

// Config contains MUC service configuration.
type Config struct {
	// Host is the virtual domain owned by the service.
	Host string `fig:"host" default:"conference.localhost"`

	// MaxUsers is the maximum number of occupants a room admits.
	MaxUsers int `fig:"max_users" default:"200"`

	// MaxUsersAdminThreshold is the occupancy up to which privileged users can still join a full room.
	MaxUsersAdminThreshold int `fig:"max_users_admin_threshold" default:"205"`

	// HistorySize is the number of group chat messages kept per room. Zero disables history.
	HistorySize int `fig:"history_size" default:"20"`

	// AccessCreate names the rule list allowing room creation.
	AccessCreate string `fig:"access_create" default:"all"`

	// AccessAdmin names the rule list granting service wide administrative rights.
	AccessAdmin string `fig:"access_admin" default:"none"`

	// Defaults contains the initial configuration of new rooms.
	Defaults RoomDefaults `fig:"defaults"`
}

func (c Config) roomConfig() mucmodel.Config {
	return mucmodel.Config{
		Persistent:  c.Defaults.Persistent,
		Public:      c.Defaults.Public,
		MembersOnly: c.Defaults.MembersOnly,
		Moderated:   c.Defaults.Moderated,
	}
}

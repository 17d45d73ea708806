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
	"errors"

	stanzaerror "github.com/jackal-xmpp/stravaganza/v2/errors/stanza"
)

var (
	// ErrNicknameConflict is returned when the requested nickname is already in use by a different occupant.
	ErrNicknameConflict = errors.New("muc: nickname conflict")

	// ErrRoomFull is returned when the room reached its maximum number of occupants.
	ErrRoomFull = errors.New("muc: room full")

	// ErrNotAllowed is returned when room creation is denied by access rules.
	ErrNotAllowed = errors.New("muc: not allowed")

	// ErrForbidden is returned when the requester lacks the privileges required by the operation.
	ErrForbidden = errors.New("muc: forbidden")

	// ErrNotOccupant is returned when the requester is not a room occupant.
	ErrNotOccupant = errors.New("muc: not an occupant")

	// ErrRegistrationRequired is returned when a non member tries to join a members-only room.
	ErrRegistrationRequired = errors.New("muc: registration required")

	// ErrPasswordRequired is returned when a password protected room is joined without a valid password.
	ErrPasswordRequired = errors.New("muc: password required")

	// ErrBanned is returned when an outcast tries to join a room.
	ErrBanned = errors.New("muc: banned")

	// ErrRoomNotFound is returned when the addressed room does not exist.
	ErrRoomNotFound = errors.New("muc: room not found")

	// ErrOccupantNotFound is returned when a private message targets an unknown nickname.
	ErrOccupantNotFound = errors.New("muc: occupant not found")

	// ErrInvalidNickname is returned when a join presence carries no nickname.
	ErrInvalidNickname = errors.New("muc: invalid nickname")

	// ErrNicknameChange is returned when an occupant requests a different nickname.
	ErrNicknameChange = errors.New("muc: nickname change not supported")

	// ErrFeatureNotImplemented is returned when a request is not supported by the service.
	ErrFeatureNotImplemented = errors.New("muc: feature not implemented")

	// ErrBadRequest is returned when a request payload is malformed.
	ErrBadRequest = errors.New("muc: bad request")
)

// stanzaErrorReason maps err to a stanza error condition. The second return value is false
// for errors not caused by the requester.
func stanzaErrorReason(err error) (stanzaerror.Reason, bool) {
	switch {
	case errors.Is(err, ErrNicknameConflict):
		return stanzaerror.Conflict, true
	case errors.Is(err, ErrRoomFull):
		return stanzaerror.ServiceUnavailable, true
	case errors.Is(err, ErrNotAllowed):
		return stanzaerror.NotAllowed, true
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrBanned):
		return stanzaerror.Forbidden, true
	case errors.Is(err, ErrNotOccupant), errors.Is(err, ErrNicknameChange):
		return stanzaerror.NotAcceptable, true
	case errors.Is(err, ErrRegistrationRequired):
		return stanzaerror.RegistrationRequired, true
	case errors.Is(err, ErrPasswordRequired):
		return stanzaerror.NotAuthorized, true
	case errors.Is(err, ErrRoomNotFound), errors.Is(err, ErrOccupantNotFound):
		return stanzaerror.ItemNotFound, true
	case errors.Is(err, ErrInvalidNickname):
		return stanzaerror.JIDMalformed, true
	case errors.Is(err, ErrFeatureNotImplemented):
		return stanzaerror.FeatureNotImplemented, true
	case errors.Is(err, ErrBadRequest):
		return stanzaerror.BadRequest, true
	}
	return stanzaerror.InternalServerError, false
}

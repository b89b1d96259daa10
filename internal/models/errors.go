package models

import (
	"errors"
	"fmt"
)

var (
	ErrAuthorization = errors.New("not authorized")
	ErrResource      = errors.New("insufficient action points")
	ErrRange         = errors.New("target out of reach")
	ErrOccupancy     = errors.New("cell occupancy")
	ErrTarget        = errors.New("invalid target")
	ErrState         = errors.New("invalid state")
	ErrConflict      = errors.New("concurrent update")

	ErrRoomNotFound = fmt.Errorf("%w: room not found", ErrState)
)

// ErrorKind names an error category for transports
type ErrorKind string

const (
	KindAuthorization ErrorKind = "authorization"
	KindResource      ErrorKind = "resource"
	KindRange         ErrorKind = "range"
	KindOccupancy     ErrorKind = "occupancy"
	KindTarget        ErrorKind = "target"
	KindNotFound      ErrorKind = "not_found"
	KindState         ErrorKind = "state"
	KindConflict      ErrorKind = "conflict"
	KindInternal      ErrorKind = "internal"
)

// KindOf classifies err by the sentinel it wraps
func KindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrAuthorization):
		return KindAuthorization
	case errors.Is(err, ErrResource):
		return KindResource
	case errors.Is(err, ErrRange):
		return KindRange
	case errors.Is(err, ErrOccupancy):
		return KindOccupancy
	case errors.Is(err, ErrTarget):
		return KindTarget
	case errors.Is(err, ErrRoomNotFound):
		return KindNotFound
	case errors.Is(err, ErrState):
		return KindState
	case errors.Is(err, ErrConflict):
		return KindConflict
	}
	return KindInternal
}

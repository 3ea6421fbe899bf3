package apperror

import "errors"

var (
	ErrRoomNotFound      = errors.New("room not found")
	ErrRoomAlreadyExists = errors.New("room already exists")
	ErrRoomFinished      = errors.New("room is already finished")
	ErrVersionConflict   = errors.New("room was modified concurrently")
	ErrInvalidCell       = errors.New("invalid cell coordinate")
	ErrInvalidMark       = errors.New("invalid mark value")
	ErrUnknownEvent      = errors.New("unknown event")
)

package storage

import "errors"

var (
	ErrUserExists   = errors.New("user already exists")
	ErrUserNotFound = errors.New("user not found")
	ErrUserNotSaved = errors.New("user not saved")
)

var (
	ErrSessionExpired = errors.New("session already expired")
)

var (
	ErrFileNotFound = errors.New("file not found")
	ErrInvalidKey   = errors.New("invalid object key")
)

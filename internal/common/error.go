// Package common defines shared constants and sentinel errors used across
// client and server layers of feedbackd. Callers should use errors.Is to
// match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrInternal           = errors.New("internal error")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidIdentifier  = errors.New("invalid identifier")

	// Auth gate errors.
	ErrUnauthenticated     = errors.New("no token provided")
	ErrMalformedCredential = errors.New("bearer token missing")
	ErrInvalidToken        = errors.New("invalid token")
	ErrTokenExpired        = errors.New("token expired")

	// Media errors. The kind-specific ones wrap ErrMediaNotFound.
	ErrMediaNotFound = errors.New("media not found")
	ErrVideoNotFound = fmt.Errorf("video file not found: %w", ErrMediaNotFound)
	ErrAudioNotFound = fmt.Errorf("audio file not found: %w", ErrMediaNotFound)
)

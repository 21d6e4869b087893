package miraieac

import "errors"

// Sentinel errors. Use errors.Is() to check for these in calling code.
var (
	// ErrInvalidValue is returned when a mode string or index is not part of an enum.
	ErrInvalidValue = errors.New("miraieac: invalid value")

	// ErrAuthFailed is returned when the cloud rejects the credentials.
	ErrAuthFailed = errors.New("miraieac: authentication failed")

	// ErrRequestFailed is returned when a cloud HTTP request fails.
	ErrRequestFailed = errors.New("miraieac: request failed")

	// ErrAlreadyInitialised is returned by Init on a hub that is connected.
	ErrAlreadyInitialised = errors.New("miraieac: hub already initialised")

	// ErrNoHome is returned when the account has no home configured.
	ErrNoHome = errors.New("miraieac: account has no home")

	// ErrNotConnected is returned when a command is issued without a broker connection.
	ErrNotConnected = errors.New("miraieac: broker not connected")
)

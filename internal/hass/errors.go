package hass

import "errors"

// Sentinel errors. Use errors.Is() to check for these in calling code.
var (
	// ErrIntegrationNotFound is returned when no integration is registered for a domain.
	ErrIntegrationNotFound = errors.New("hass: integration not found")

	// ErrPlatformNotFound is returned when an integration has no setup for a platform.
	ErrPlatformNotFound = errors.New("hass: platform not found")

	// ErrEntryNotFound is returned when a config entry does not exist.
	ErrEntryNotFound = errors.New("hass: config entry not found")

	// ErrEntryExists is returned when adding an entry whose ID or account is already configured.
	ErrEntryExists = errors.New("hass: config entry already exists")

	// ErrEntryNotLoaded is returned when an operation needs a loaded entry.
	ErrEntryNotLoaded = errors.New("hass: config entry not loaded")

	// ErrEntityNotFound is returned when an entity ID is unknown.
	ErrEntityNotFound = errors.New("hass: entity not found")

	// ErrEntityExists is returned when an entity with the same unique ID is already added.
	ErrEntityExists = errors.New("hass: entity already exists")

	// ErrServiceNotFound is returned for an unknown domain/service pair.
	ErrServiceNotFound = errors.New("hass: service not found")

	// ErrInvalidServiceData is returned when service data fails validation.
	ErrInvalidServiceData = errors.New("hass: invalid service data")

	// ErrNotSupported is returned when an entity lacks the feature a service needs.
	ErrNotSupported = errors.New("hass: not supported by entity")

	// ErrSetupFailed wraps errors from integration setup.
	ErrSetupFailed = errors.New("hass: setup failed")

	// ErrHostStopped is returned after Shutdown.
	ErrHostStopped = errors.New("hass: host stopped")
)

package miraie

import (
	"strings"

	"github.com/nerrad567/miraie-core/internal/hass"
)

// Domain is the integration domain and the platform name of its entities.
const Domain = "miraie"

// Config entry data keys.
const (
	ConfUsername = "username"
	ConfPassword = "password"
)

// AccountID is the config entry unique ID of a MirAIe login. Email
// addresses are case-insensitive.
func AccountID(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// Platforms are the entity domains set up for every entry.
var Platforms = []string{hass.DomainClimate, hass.DomainSwitch}

// Manufacturer is reported when the device details carry no brand.
const Manufacturer = "Panasonic"

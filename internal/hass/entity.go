package hass

import (
	"context"
	"strings"
)

// EntityCategory marks entities that are not primary controls.
type EntityCategory string

// Entity categories.
const (
	CategoryNone       EntityCategory = ""
	CategoryConfig     EntityCategory = "config"
	CategoryDiagnostic EntityCategory = "diagnostic"
)

// DeviceIdentifier is a (domain, id) pair that ties entities to a device.
type DeviceIdentifier struct {
	Domain string `json:"domain"`
	ID     string `json:"id"`
}

// DeviceInfo describes the physical device behind one or more entities.
type DeviceInfo struct {
	Identifiers  []DeviceIdentifier `json:"identifiers"`
	Name         string             `json:"name"`
	Manufacturer string             `json:"manufacturer,omitempty"`
	Model        string             `json:"model,omitempty"`
	SWVersion    string             `json:"sw_version,omitempty"`
}

// Entity is the part of every entity the host needs regardless of domain.
type Entity interface {
	// UniqueID is stable for the lifetime of the device. Together with the
	// entity domain and platform it keys the entity registry.
	UniqueID() string
	Name() string
	Available() bool
	DeviceInfo() DeviceInfo
}

// Icon is implemented by entities with an icon.
type Icon interface {
	Icon() string
}

// Categorized is implemented by entities with an entity category.
type Categorized interface {
	EntityCategory() EntityCategory
}

// StateWriter is handed to entities when they are added. Calling WriteState
// renders the entity's current state and pushes it to every listener.
type StateWriter interface {
	WriteState(e Entity)
}

// Lifecycle is implemented by entities that need to hook into add/remove,
// typically to subscribe to device updates.
type Lifecycle interface {
	AddedToHost(ctx context.Context, w StateWriter) error
	WillRemoveFromHost(ctx context.Context) error
}

// AddEntitiesFunc registers entities created by a platform.
type AddEntitiesFunc func(ctx context.Context, entities ...Entity) error

// Slugify lowercases s and replaces runs of non-alphanumeric characters
// with a single underscore.
//
// Example: Slugify("Bedroom AC (2)") returns "bedroom_ac_2".
func Slugify(s string) string {
	var b strings.Builder
	underscore := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			underscore = false
		case b.Len() > 0 && !underscore:
			b.WriteByte('_')
			underscore = true
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}

// Package viewport holds the camera state mirrored between the in-memory
// map and its persisted/URL representation.
package viewport

import (
	"net/url"
	"strconv"
)

// Mode is the map browsing mode.
type Mode string

// Map modes.
const (
	// ModeDiscover ranks by community percentile.
	ModeDiscover Mode = "discover"
	// ModeLibrary ranks by the acting user's own signals.
	ModeLibrary Mode = "library"
)

// IsValid checks if the mode is one of the supported values.
func (m Mode) IsValid() bool {
	return m == ModeDiscover || m == ModeLibrary
}

// Documented defaults, used whenever the persisted representation is
// missing or malformed.
const (
	DefaultLat  = 20.0
	DefaultLng  = 0.0
	DefaultZoom = 2.0
	DefaultMode = ModeDiscover
)

// State is a camera position plus browsing mode.
type State struct {
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
	Zoom float64 `json:"zoom"`
	Mode Mode    `json:"mode"`
}

// Default returns the documented fallback state.
func Default() State {
	return State{Lat: DefaultLat, Lng: DefaultLng, Zoom: DefaultZoom, Mode: DefaultMode}
}

// Normalize replaces an invalid mode with the default, leaving the rest
// of the state untouched.
func (s State) Normalize() State {
	if !s.Mode.IsValid() {
		s.Mode = DefaultMode
	}
	return s
}

// ParseValues decodes a state from URL-style values. Malformed or missing
// fields fall back to their defaults individually; parsing never fails.
func ParseValues(values url.Values) State {
	s := Default()
	if lat, err := strconv.ParseFloat(values.Get("lat"), 64); err == nil {
		s.Lat = lat
	}
	if lng, err := strconv.ParseFloat(values.Get("lng"), 64); err == nil {
		s.Lng = lng
	}
	if zoom, err := strconv.ParseFloat(values.Get("zoom"), 64); err == nil {
		s.Zoom = zoom
	}
	if m := Mode(values.Get("mode")); m.IsValid() {
		s.Mode = m
	}
	return s
}

// Values encodes the state as URL-style values.
func (s State) Values() url.Values {
	v := url.Values{}
	v.Set("lat", strconv.FormatFloat(s.Lat, 'f', -1, 64))
	v.Set("lng", strconv.FormatFloat(s.Lng, 'f', -1, 64))
	v.Set("zoom", strconv.FormatFloat(s.Zoom, 'f', -1, 64))
	v.Set("mode", string(s.Mode))
	return v
}

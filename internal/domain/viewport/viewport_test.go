package viewport

import (
	"net/url"
	"testing"
)

func TestParseValues_Defaults(t *testing.T) {
	s := ParseValues(url.Values{})
	if s != Default() {
		t.Fatalf("empty values should parse to defaults, got %+v", s)
	}
}

func TestParseValues_MalformedFieldsFallBackIndividually(t *testing.T) {
	v := url.Values{}
	v.Set("lat", "51.5")
	v.Set("lng", "not-a-number")
	v.Set("zoom", "")
	v.Set("mode", "wander")

	s := ParseValues(v)
	if s.Lat != 51.5 {
		t.Errorf("Lat = %v, want 51.5", s.Lat)
	}
	if s.Lng != DefaultLng {
		t.Errorf("Lng = %v, want default %v", s.Lng, DefaultLng)
	}
	if s.Zoom != DefaultZoom {
		t.Errorf("Zoom = %v, want default %v", s.Zoom, DefaultZoom)
	}
	if s.Mode != DefaultMode {
		t.Errorf("Mode = %q, want default %q", s.Mode, DefaultMode)
	}
}

func TestValuesRoundTrip(t *testing.T) {
	s := State{Lat: -33.86, Lng: 151.2, Zoom: 12, Mode: ModeLibrary}
	if got := ParseValues(s.Values()); got != s {
		t.Fatalf("round trip mismatch: %+v != %+v", got, s)
	}
}

func TestModeIsValid(t *testing.T) {
	if !ModeDiscover.IsValid() || !ModeLibrary.IsValid() {
		t.Error("known modes should be valid")
	}
	if Mode("").IsValid() || Mode("globe").IsValid() {
		t.Error("unknown modes should be invalid")
	}
}

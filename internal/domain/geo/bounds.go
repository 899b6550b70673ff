package geo

// Coordinate clamp range. Latitude stops short of the poles because the
// web-mercator projection used by map clients cannot render beyond ±85°.
const (
	MaxLat = 85.0
	MinLat = -85.0
	MaxLng = 180.0
	MinLng = -180.0
)

// DefaultBufferRatio is the fraction of the viewport span added on each
// side when building a fetch box, so panning inside the buffer does not
// force an immediate re-fetch.
const DefaultBufferRatio = 0.3

// Bounds is a geographic bounding box in degrees.
// Invariant: South <= North and West <= East (no antimeridian wraparound).
type Bounds struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

// Valid reports whether the box is non-inverted and within coordinate range.
func (b Bounds) Valid() bool {
	return b.South <= b.North && b.West <= b.East &&
		b.South >= -90 && b.North <= 90 &&
		b.West >= MinLng && b.East <= MaxLng
}

// LatSpan returns the north-south extent in degrees.
func (b Bounds) LatSpan() float64 { return b.North - b.South }

// LngSpan returns the east-west extent in degrees.
func (b Bounds) LngSpan() float64 { return b.East - b.West }

// Contains reports whether the point lies inside the box (inclusive).
func (b Bounds) Contains(lat, lng float64) bool {
	return lat >= b.South && lat <= b.North && lng >= b.West && lng <= b.East
}

// ContainsBounds reports whether other lies entirely inside b.
func (b Bounds) ContainsBounds(other Bounds) bool {
	return other.North <= b.North && other.South >= b.South &&
		other.East <= b.East && other.West >= b.West
}

// Clamp restricts the box to the valid coordinate range. Clamping never
// inverts the rectangle: an edge already inside the range is untouched.
func (b Bounds) Clamp() Bounds {
	return Bounds{
		North: min(MaxLat, b.North),
		South: max(MinLat, b.South),
		East:  min(MaxLng, b.East),
		West:  max(MinLng, b.West),
	}
}

// Expand pushes each edge outward by span*ratio on its axis, then clamps.
// A zero-span input expands to itself (modulo clamping).
func (b Bounds) Expand(ratio float64) Bounds {
	latBuffer := b.LatSpan() * ratio
	lngBuffer := b.LngSpan() * ratio
	return Bounds{
		North: b.North + latBuffer,
		South: b.South - latBuffer,
		East:  b.East + lngBuffer,
		West:  b.West - lngBuffer,
	}.Clamp()
}

// FetchBox expands the viewport by the default buffer ratio.
func (b Bounds) FetchBox() Bounds {
	return b.Expand(DefaultBufferRatio)
}

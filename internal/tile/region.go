package tile

// Region is a horizontal rectangle; Min is inclusive and Max exclusive.
type Region struct {
	Min Point `json:"min"`
	Max Point `json:"max"`
}

// Contains reports whether p lies inside r horizontally.
func (r Region) Contains(p Point) bool {
	return p.U >= r.Min.U && p.U < r.Max.U && p.V >= r.Min.V && p.V < r.Max.V
}

// Clamp returns the point inside r closest to p, keeping p's height.
func (r Region) Clamp(p Point) Point {
	return Point{
		U: Clamp(r.Min.U, p.U, r.Max.U-1),
		V: Clamp(r.Min.V, p.V, r.Max.V-1),
		Z: p.Z,
	}
}

// Empty reports whether r covers no area.
func (r Region) Empty() bool {
	return r.Max.U <= r.Min.U || r.Max.V <= r.Min.V
}

// Package tile provides the fixed-point coordinate math shared by the
// motion and task layers: points, octant directions and tether regions.
package tile

import (
	"fmt"
	"math"

	"golang.org/x/exp/constraints"
)

// Coordinate constants. One tile is TileUVSize units on a side.
const (
	TileUVSize    = 16
	TileUVShift   = 4
	MaxStepHeight = 16 // Tallest ledge an actor walks up without climbing
	MaxSmoothStep = 8  // Height difference smoothed out of a single step
	MaxSenseRange = TileUVSize * 10
	TooClose      = TileUVSize
)

// Point is a position or displacement in tile units.
type Point struct {
	U int16 `json:"u"`
	V int16 `json:"v"`
	Z int16 `json:"z"`
}

// Nowhere marks an absent location.
var Nowhere = Point{U: math.MinInt16, V: math.MinInt16, Z: math.MinInt16}

// P is shorthand for constructing a Point.
func P(u, v, z int) Point {
	return Point{U: int16(u), V: int16(v), Z: int16(z)}
}

func (p Point) Add(q Point) Point { return Point{p.U + q.U, p.V + q.V, p.Z + q.Z} }
func (p Point) Sub(q Point) Point { return Point{p.U - q.U, p.V - q.V, p.Z - q.Z} }
func (p Point) Neg() Point        { return Point{-p.U, -p.V, -p.Z} }

// Mul scales every axis by n using 32-bit intermediates.
func (p Point) Mul(n int) Point {
	return Point{int16(int(p.U) * n), int16(int(p.V) * n), int16(int(p.Z) * n)}
}

// Div divides every axis by n, truncating toward zero.
func (p Point) Div(n int) Point {
	return Point{int16(int(p.U) / n), int16(int(p.V) / n), int16(int(p.Z) / n)}
}

// IsNowhere reports whether p is the Nowhere sentinel.
func (p Point) IsNowhere() bool { return p == Nowhere }

// Tile returns the tile-quantized u/v coordinates of p.
func (p Point) Tile() (int16, int16) {
	return p.U >> TileUVShift, p.V >> TileUVShift
}

// SameTile reports whether p and q fall in the same tile column.
func (p Point) SameTile(q Point) bool {
	pu, pv := p.Tile()
	qu, qv := q.Tile()
	return pu == qu && pv == qv
}

// QuickHDistance approximates horizontal distance as the longer axis plus
// half the shorter.
func (p Point) QuickHDistance() int16 {
	au, av := Abs(p.U), Abs(p.V)
	if au > av {
		return au + (av >> 1)
	}
	return av + (au >> 1)
}

// Magnitude approximates 3D length as the longest axis plus half the other two.
func (p Point) Magnitude() int16 {
	au, av, az := int(Abs(p.U)), int(Abs(p.V)), int(Abs(p.Z))
	switch {
	case au >= av && au >= az:
		return int16(au + (av+az)>>1)
	case av >= au && av >= az:
		return int16(av + (au+az)>>1)
	default:
		return int16(az + (au+av)>>1)
	}
}

// QuickDir returns the octant that best matches the horizontal part of p.
func (p Point) QuickDir() Direction {
	u, v := int(p.U), int(p.V)
	au, av := abs(u), abs(v)
	switch {
	case u == 0 && v == 0:
		return Up
	case u > 2*av:
		return UpRight
	case -u > 2*av:
		return DownLeft
	case v > 2*au:
		return UpLeft
	case -v > 2*au:
		return DownRight
	case u > 0 && v > 0:
		return Up
	case u < 0 && v > 0:
		return Left
	case u < 0 && v < 0:
		return Down
	default:
		return Right
	}
}

func (p Point) String() string {
	if p.IsNowhere() {
		return "nowhere"
	}
	return fmt.Sprintf("(%d,%d,%d)", p.U, p.V, p.Z)
}

// Signed is the set of integer types the helpers accept.
type Signed interface {
	constraints.Signed
}

// Abs returns the absolute value of n.
func Abs[T Signed](n T) T {
	if n < 0 {
		return -n
	}
	return n
}

// Clamp limits n to [lo, hi].
func Clamp[T constraints.Ordered](lo, n, hi T) T {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

func abs(n int) int { return Abs(n) }

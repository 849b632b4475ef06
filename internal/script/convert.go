package script

import (
	"math"
	"strings"

	"github.com/d5/tengo/v2"

	"github.com/talgya/actorcore/internal/agents"
	"github.com/talgya/actorcore/internal/tile"
)

func objectAsString(obj tengo.Object) string {
	if obj == nil {
		return ""
	}
	switch v := obj.(type) {
	case *tengo.String:
		return v.Value
	default:
		return strings.Trim(v.String(), "\"")
	}
}

func objectAsInt(args []tengo.Object, i int) (int, bool) {
	if i >= len(args) {
		return 0, false
	}
	return tengo.ToInt(args[i])
}

func objectAsBool(args []tengo.Object, i int) bool {
	if i >= len(args) {
		return false
	}
	return !args[i].IsFalsy()
}

func objectAsID(obj tengo.Object) agents.ObjectID {
	n, ok := tengo.ToInt(obj)
	if !ok || n < 0 || n > math.MaxUint16 {
		return agents.Nothing
	}
	return agents.ObjectID(n)
}

func clampCoord(n int) int {
	return tile.Clamp(math.MinInt16+1, n, math.MaxInt16)
}

// objectAsPoint reads a point either as three numbers starting at args[i]
// or as one [u, v, z] array.
func objectAsPoint(args []tengo.Object, i int) (tile.Point, bool) {
	if i < len(args) {
		if arr, ok := args[i].(*tengo.Array); ok {
			return objectAsPoint(arr.Value, 0)
		}
	}
	if i+2 >= len(args) {
		return tile.Nowhere, false
	}
	u, ok1 := tengo.ToInt(args[i])
	v, ok2 := tengo.ToInt(args[i+1])
	z, ok3 := tengo.ToInt(args[i+2])
	if !ok1 || !ok2 || !ok3 {
		return tile.Nowhere, false
	}
	return tile.P(clampCoord(u), clampCoord(v), clampCoord(z)), true
}

func pointObject(p tile.Point) *tengo.Array {
	return &tengo.Array{Value: []tengo.Object{
		&tengo.Int{Value: int64(p.U)},
		&tengo.Int{Value: int64(p.V)},
		&tengo.Int{Value: int64(p.Z)},
	}}
}

// normalize turns whole floats back into ints after a JSON round trip so
// script comparisons against int literals keep working.
func normalize(v any) any {
	switch x := v.(type) {
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1<<53 {
			return int64(x)
		}
		return x
	case []any:
		for i := range x {
			x[i] = normalize(x[i])
		}
		return x
	case map[string]any:
		for k := range x {
			x[k] = normalize(x[k])
		}
		return x
	}
	return v
}

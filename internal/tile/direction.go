package tile

// Direction is one of eight compass octants, counter-clockwise from Up.
type Direction uint8

const (
	Up        Direction = iota // +u +v
	UpLeft                     // +v
	Left                       // -u +v
	DownLeft                   // -u
	Down                       // -u -v
	DownRight                  // -v
	Right                      // +u -v
	UpRight                    // +u
)

var directionNames = [8]string{"up", "up-left", "left", "down-left", "down", "down-right", "right", "up-right"}

func (d Direction) String() string {
	return directionNames[d&7]
}

// Rotate returns d turned by n octants (positive is counter-clockwise).
func (d Direction) Rotate(n int) Direction {
	return Direction((int(d) + n) & 7)
}

// Opposite returns the direction facing away from d.
func (d Direction) Opposite() Direction { return d.Rotate(4) }

// AngleTo returns the signed octant difference from d to t in [-4, 3].
func (d Direction) AngleTo(t Direction) int {
	return ((int(t)-int(d))+4)&7 - 4
}

// Step returns the unit tile offset one octant step in direction d.
func (d Direction) Step() Point { return IncDirTable[d&7] }

// Stride returns the short walking stride for direction d.
func (d Direction) Stride() Point { return DirTable[d&7] }

// DirTable holds a short stride per octant with diagonals shortened so
// every entry has roughly the same length.
var DirTable = [8]Point{
	{2, 2, 0},
	{0, 3, 0},
	{-2, 2, 0},
	{-3, 0, 0},
	{-2, -2, 0},
	{0, -3, 0},
	{2, -2, 0},
	{3, 0, 0},
}

// IncDirTable holds the unit step per octant.
var IncDirTable = [8]Point{
	{1, 1, 0},
	{0, 1, 0},
	{-1, 1, 0},
	{-1, 0, 0},
	{-1, -1, 0},
	{0, -1, 0},
	{1, -1, 0},
	{1, 0, 0},
}

// TurnFrames is the number of single-octant turns needed to face t from d.
func TurnFrames(d, t Direction) int {
	return abs(d.AngleTo(t))
}

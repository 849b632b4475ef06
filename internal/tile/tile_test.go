package tile

import "testing"

func TestQuickHDistance(t *testing.T) {
	tests := []struct {
		p    Point
		want int16
	}{
		{P(0, 0, 0), 0},
		{P(10, 0, 0), 10},
		{P(0, -10, 0), 10},
		{P(10, 4, 0), 12},
		{P(-4, 10, 99), 12},
	}
	for _, tt := range tests {
		t.Run(tt.p.String(), func(t *testing.T) {
			if got := tt.p.QuickHDistance(); got != tt.want {
				t.Errorf("QuickHDistance(%v) = %d, want %d", tt.p, got, tt.want)
			}
		})
	}
}

func TestQuickDir(t *testing.T) {
	tests := []struct {
		p    Point
		want Direction
	}{
		{P(10, 10, 0), Up},
		{P(0, 10, 0), UpLeft},
		{P(-10, 10, 0), Left},
		{P(-10, 0, 0), DownLeft},
		{P(-10, -10, 0), Down},
		{P(0, -10, 0), DownRight},
		{P(10, -10, 0), Right},
		{P(10, 0, 0), UpRight},
		{P(10, 2, 0), UpRight},
	}
	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			if got := tt.p.QuickDir(); got != tt.want {
				t.Errorf("QuickDir(%v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}
}

func TestDirectionTablesAgreeWithQuickDir(t *testing.T) {
	for d := Direction(0); d < 8; d++ {
		if got := d.Stride().QuickDir(); got != d {
			t.Errorf("stride %v resolves to %v", d, got)
		}
		if got := d.Step().QuickDir(); got != d {
			t.Errorf("step %v resolves to %v", d, got)
		}
	}
}

func TestAngleTo(t *testing.T) {
	tests := []struct {
		from, to Direction
		want     int
	}{
		{Up, Up, 0},
		{Up, UpLeft, 1},
		{Up, UpRight, -1},
		{Up, Down, -4},
		{Right, Up, 2},
		{UpLeft, Right, -3},
	}
	for _, tt := range tests {
		if got := tt.from.AngleTo(tt.to); got != tt.want {
			t.Errorf("%v.AngleTo(%v) = %d, want %d", tt.from, tt.to, got, tt.want)
		}
	}
	if TurnFrames(Up, Down) != 4 {
		t.Errorf("TurnFrames(Up, Down) = %d", TurnFrames(Up, Down))
	}
}

func TestRegionClamp(t *testing.T) {
	r := Region{Min: P(0, 0, 0), Max: P(32, 16, 0)}
	tests := []struct {
		in, want Point
	}{
		{P(5, 5, 3), P(5, 5, 3)},
		{P(-5, 40, 3), P(0, 15, 3)},
		{P(32, 16, 0), P(31, 15, 0)},
	}
	for _, tt := range tests {
		if got := r.Clamp(tt.in); got != tt.want {
			t.Errorf("Clamp(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if r.Contains(P(32, 0, 0)) {
		t.Error("max edge should be exclusive")
	}
}

func TestMagnitude(t *testing.T) {
	if got := P(0, 0, -8).Magnitude(); got != 8 {
		t.Errorf("Magnitude = %d, want 8", got)
	}
	if got := P(6, 2, 2).Magnitude(); got != 8 {
		t.Errorf("Magnitude = %d, want 8", got)
	}
}

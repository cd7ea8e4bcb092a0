package arch

// Side defines the side of a tile.
type Side int

const (
	North Side = iota
	East
	South
	West
)

// Sides lists the sides in the order tile inputs are numbered.
var Sides = []Side{North, East, South, West}

// Name returns the name of the side.
func (s Side) Name() string {
	switch s {
	case North:
		return "North"
	case West:
		return "West"
	case South:
		return "South"
	case East:
		return "East"
	default:
		panic("invalid side")
	}
}

// Offset returns the coordinate step towards the neighbor on this side. Row
// zero is the northmost row.
func (s Side) Offset() (dx, dy int) {
	switch s {
	case North:
		return 0, -1
	case West:
		return -1, 0
	case South:
		return 0, 1
	case East:
		return 1, 0
	default:
		panic("invalid side")
	}
}

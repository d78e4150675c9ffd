package types

type Direction int

const (
	DirectionInput Direction = iota
	DirectionOutput
)

func (d Direction) String() string {
	if d == DirectionOutput {
		return "output"
	}
	return "input"
}

// LineDescriptor describes one controlled digital signal. It is fixed at
// configuration time.
type LineDescriptor struct {
	Offset  int
	Dir     Direction
	Initial bool
	Label   string
}

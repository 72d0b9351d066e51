package loudness

// Designation identifies a channel's position for BS.1770 channel weighting.
type Designation int

const (
	Center Designation = iota
	Left
	Right
	LeftSurround
	RightSurround
	// LFE channels are excluded from the loudness sum.
	LFE
)

// Weight returns the BS.1770 power weight G_i of the channel.
func (d Designation) Weight() float64 {
	switch d {
	case LeftSurround, RightSurround:
		return 1.41
	case LFE:
		return 0
	default:
		return 1
	}
}

func (d Designation) String() string {
	switch d {
	case Center:
		return "Center"
	case Left:
		return "Left"
	case Right:
		return "Right"
	case LeftSurround:
		return "LeftSurround"
	case RightSurround:
		return "RightSurround"
	case LFE:
		return "LFE"
	default:
		return "Unknown"
	}
}

// DefaultDesignations returns Center for mono and Left/Right for stereo.
// Further channels are treated as surrounds, alternating left and right.
func DefaultDesignations(channels int) []Designation {
	switch channels {
	case 1:
		return []Designation{Center}
	case 2:
		return []Designation{Left, Right}
	}

	out := make([]Designation, channels)
	for i := range out {
		switch i {
		case 0:
			out[i] = Left
		case 1:
			out[i] = Right
		case 2:
			out[i] = Center
		default:
			out[i] = LeftSurround + Designation(i%2)
		}
	}

	return out
}

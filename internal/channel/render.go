package channel

import "strconv"

// Frame is a channel's panel text: three numeric rows and a state label.
type Frame struct {
	ID        int    `json:"id"`
	Frequency string `json:"frequency"`
	Step      string `json:"step"`
	Phase     string `json:"phase"`
	State     string `json:"state"`
	Audible   bool   `json:"audible"`
}

// Rows returns the text in panel row order.
func (f Frame) Rows() [4]string {
	return [4]string{f.Frequency, f.Step, f.Phase, f.State}
}

func (c *Channel) Render() Frame {
	return Frame{
		ID:        c.id,
		Frequency: Decimal(c.frequency),
		Step:      Decimal(c.StepSize()),
		Phase:     Decimal(int64(c.phase)),
		State:     c.state.Label(),
		Audible:   c.Audible(),
	}
}

// Decimal renders a tenths value with one decimal place, 5233 as "523.3".
func Decimal(tenths int64) string {
	neg := tenths < 0
	if neg {
		tenths = -tenths
	}
	s := strconv.FormatInt(tenths/10, 10) + "." + strconv.FormatInt(tenths%10, 10)
	if neg {
		return "-" + s
	}
	return s
}

package led

import (
	"math"

	"periph.io/x/conn/v3/gpio"
)

// BuildDutyLUT maps an 8 bit level onto a PWM duty cycle. gamma 1 is linear;
// values <= 0 are treated as 1.
func BuildDutyLUT(gamma float64) [256]gpio.Duty {
	if gamma <= 0 {
		gamma = 1
	}
	var out [256]gpio.Duty
	for i := range out {
		v := math.Pow(float64(i)/255, gamma)
		out[i] = gpio.Duty(math.Round(v * float64(gpio.DutyMax)))
	}
	return out
}

// Level is the brightness an LED is driven at when activated: 0 in the
// intensity table means a plain on/off pin, so full.
func Level(intensity uint8) uint8 {
	if intensity == 0 {
		return 255
	}
	return intensity
}

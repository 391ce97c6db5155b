package led

// Driver abstracts an LED output sink.
type Driver interface {
	// Write pushes one brightness per LED, 0 dark and 255 full on. len(levels) must be Len().
	Write(levels []uint8) error
	// Len is the number of LEDs the sink drives.
	Len() int
	// Close turns the LEDs off and releases resources.
	Close() error
}

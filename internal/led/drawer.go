package led

import (
	"fmt"
	"image"
	"image/color"

	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/devices/v3/nrzled"
	"periph.io/x/extra/devices/screen"
)

// Panel LED colours, green amber blue.
var DefaultColors = []color.NRGBA{
	{R: 0x00, G: 0xFF, B: 0x00, A: 0xFF},
	{R: 0xFF, G: 0xA0, B: 0x00, A: 0xFF},
	{R: 0x00, G: 0x40, B: 0xFF, A: 0xFF},
}

// DrawerDriver renders the LED bank as a row of pixels on a display.Drawer:
// an addressable strip or the console.
type DrawerDriver struct {
	d      display.Drawer
	colors []color.NRGBA
	img    *image.NRGBA
}

// NewDrawer maps LED i to pixel i coloured colors[i%len(colors)].
func NewDrawer(d display.Drawer, n int, colors []color.NRGBA) *DrawerDriver {
	if len(colors) == 0 {
		colors = DefaultColors
	}
	return &DrawerDriver{d: d, colors: colors, img: image.NewNRGBA(image.Rect(0, 0, n, 1))}
}

// NewNRZ drives an addressable strip on an SPI port.
func NewNRZ(port spi.Port, n int, colors []color.NRGBA) (*DrawerDriver, error) {
	opts := nrzled.Opts{
		NumPixels: n,
		Channels:  3,
		Freq:      2500 * physic.KiloHertz,
	}
	d, err := nrzled.NewSPI(port, &opts)
	if err != nil {
		return nil, fmt.Errorf("nrzled: %w", err)
	}
	if err := d.Halt(); err != nil {
		return nil, fmt.Errorf("nrzled halt: %w", err)
	}
	return NewDrawer(d, n, colors), nil
}

// NewScreen prints the LED bank at the console.
func NewScreen(n int, colors []color.NRGBA) *DrawerDriver {
	return NewDrawer(screen.New(n), n, colors)
}

func (d *DrawerDriver) Len() int { return d.img.Rect.Dx() }

func (d *DrawerDriver) Write(levels []uint8) error {
	if len(levels) != d.Len() {
		return fmt.Errorf("led frame: got %d levels for %d pixels", len(levels), d.Len())
	}
	for i, lv := range levels {
		c := d.colors[i%len(d.colors)]
		d.img.SetNRGBA(i, 0, color.NRGBA{
			R: scale(c.R, lv),
			G: scale(c.G, lv),
			B: scale(c.B, lv),
			A: 0xFF,
		})
	}
	return d.d.Draw(d.d.Bounds(), d.img, image.Point{})
}

func scale(c, lv uint8) uint8 { return uint8(uint16(c) * uint16(lv) / 255) }

func (d *DrawerDriver) Close() error { return d.d.Halt() }

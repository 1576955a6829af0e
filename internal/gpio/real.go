//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"

	"github.com/sweeney/osmosis-rig/internal/logic"
)

// RealButton reads the rig button from actual hardware using the Linux
// GPIO character device.
type RealButton struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

// NewRealButton requests the button pin as input with pull-up; the
// button shorts the line to ground when pressed.
func NewRealButton(pin int) (*RealButton, error) {
	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	line, err := chip.RequestLine(pin, gpiocdev.AsInput, gpiocdev.WithPullUp)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request button pin %d: %w", pin, err)
	}

	return &RealButton{chip: chip, line: line}, nil
}

// Pressed returns true while the button is held (raw line low).
func (b *RealButton) Pressed() (bool, error) {
	raw, err := b.line.Value()
	if err != nil {
		return false, fmt.Errorf("read button pin: %w", err)
	}
	return raw == 0, nil
}

// Close releases the button line and chip.
func (b *RealButton) Close() error {
	var errs []error
	if b.line != nil {
		if err := b.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close button pin: %w", err))
		}
	}
	if b.chip != nil {
		if err := b.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// RealOutputs drives the valve and pump relays. The valve relay board
// is active low, the pump relay active high; both are hidden behind
// the logical on/off of Set.
type RealOutputs struct {
	chip  *gpiocdev.Chip
	lines [logic.NumRoles]*gpiocdev.Line
}

// NewRealOutputs requests all five output lines and leaves every
// actuator off.
func NewRealOutputs(pins OutputPins) (*RealOutputs, error) {
	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	o := &RealOutputs{chip: chip}
	for r := logic.Role(0); r < logic.NumRoles; r++ {
		opts := []gpiocdev.LineReqOption{gpiocdev.AsOutput(0)}
		if r != logic.RolePump {
			// Valve relays energize on a low line.
			opts = append(opts, gpiocdev.AsActiveLow)
		}
		line, err := chip.RequestLine(pins.pin(r), opts...)
		if err != nil {
			o.Close()
			return nil, fmt.Errorf("request %s pin %d: %w", r, pins.pin(r), err)
		}
		o.lines[r] = line
	}
	return o, nil
}

// Set drives one actuator line.
func (o *RealOutputs) Set(role logic.Role, on bool) error {
	v := 0
	if on {
		v = 1
	}
	if err := o.lines[role].SetValue(v); err != nil {
		return fmt.Errorf("set %s: %w", role, err)
	}
	return nil
}

// Close drives every line off (pump first, so it never runs against
// closed valves) and releases GPIO resources.
func (o *RealOutputs) Close() error {
	var errs []error

	if l := o.lines[logic.RolePump]; l != nil {
		if err := l.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("stop pump: %w", err))
		}
	}
	for r := logic.Role(0); r < logic.NumRoles; r++ {
		l := o.lines[r]
		if l == nil {
			continue
		}
		if r != logic.RolePump {
			if err := l.SetValue(0); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", r, err))
			}
		}
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("release %s: %w", r, err))
		}
	}
	if o.chip != nil {
		if err := o.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

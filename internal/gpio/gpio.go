// Package gpio provides button input and actuator output access with
// hardware abstraction. The real implementation uses the Linux GPIO
// character device; the fakes allow testing without hardware.
package gpio

import "github.com/sweeney/osmosis-rig/internal/logic"

// Button reads the button level.
type Button interface {
	// Pressed returns the logical button level (true = pressed). The
	// raw line is pulled up and active low.
	Pressed() (bool, error)

	// Close releases GPIO resources.
	Close() error
}

// Outputs drives the valve and pump lines by logical role.
type Outputs interface {
	// Set drives one line: true = valve open / pump running.
	Set(role logic.Role, on bool) error

	// Close drives every line off, then releases GPIO resources.
	Close() error
}

// Default pin assignments (BCM numbering).
const (
	DefaultPinButton     = 16
	DefaultPinMembraneIn = 5
	DefaultPinDrain      = 6
	DefaultPinDisposal   = 13
	DefaultPinProduct    = 19
	DefaultPinPump       = 26
	DefaultPinBuzzer     = 12
)

// OutputPins maps actuator roles to BCM pin numbers.
type OutputPins struct {
	MembraneIn int
	Drain      int
	Disposal   int
	Product    int
	Pump       int
}

// DefaultOutputPins returns the standard wiring.
func DefaultOutputPins() OutputPins {
	return OutputPins{
		MembraneIn: DefaultPinMembraneIn,
		Drain:      DefaultPinDrain,
		Disposal:   DefaultPinDisposal,
		Product:    DefaultPinProduct,
		Pump:       DefaultPinPump,
	}
}

func (p OutputPins) pin(r logic.Role) int {
	switch r {
	case logic.RoleMembraneIn:
		return p.MembraneIn
	case logic.RoleDrain:
		return p.Drain
	case logic.RoleDisposalOut:
		return p.Disposal
	case logic.RoleProductOut:
		return p.Product
	default:
		return p.Pump
	}
}

//go:build !linux

package buzzer

import (
	"errors"

	"github.com/sweeney/osmosis-rig/internal/logic"
)

// Real is not available on non-Linux platforms.
type Real struct{}

// NewReal returns an error on non-Linux platforms.
func NewReal(pin, freq int) (*Real, error) {
	return nil, errors.New("buzzer: not supported on this platform (requires Linux)")
}

// Play is not implemented on non-Linux platforms.
func (r *Real) Play(cue logic.Cue) {}

// Close is not implemented on non-Linux platforms.
func (r *Real) Close() error {
	return nil
}

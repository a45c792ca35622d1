// Package checksum defines the pluggable post-apply checksum step. Some
// flashing tools recompute a calibration checksum after edits; the correct
// algorithm for the GMPT-E15 has not been verified, so the default updater
// leaves the image untouched rather than guessing.
package checksum

import "github.com/zewy9910-ux/Z22SE-Tuner/pkg/image"

// Updater recomputes checksum fields in place after a profile apply.
type Updater interface {
	Update(as *image.AddressSpace) error
}

// NoOp is the default Updater. It never modifies the image.
type NoOp struct{}

// Update implements Updater.
func (NoOp) Update(*image.AddressSpace) error { return nil }

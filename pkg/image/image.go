// Package image holds the raw calibration image as a fixed-size,
// bounds-checked byte buffer. Every GMPT-E15 dump is exactly 512 KB;
// anything else is rejected at load time.
package image

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Size is the exact byte length of a GMPT-E15 calibration dump.
const Size = 524288

var (
	// ErrSizeMismatch indicates the input buffer is not exactly 524,288 bytes.
	ErrSizeMismatch = errors.New("image size mismatch")

	// ErrOutOfRange indicates an address outside the image bounds.
	ErrOutOfRange = errors.New("address out of range")

	// ErrValueOverflow indicates a value too wide for the target cell.
	ErrValueOverflow = errors.New("value overflows cell width")
)

// AddressSpace is the owned, mutable calibration image. Its length never
// changes after Load; all reads and writes are bounds-checked.
type AddressSpace struct {
	buf []byte
}

// Load copies data into a new AddressSpace. It fails with ErrSizeMismatch
// unless data is exactly Size bytes.
func Load(data []byte) (*AddressSpace, error) {
	if len(data) != Size {
		return nil, fmt.Errorf("%w: got %d bytes, expected %d", ErrSizeMismatch, len(data), Size)
	}
	buf := make([]byte, Size)
	copy(buf, data)
	return &AddressSpace{buf: buf}, nil
}

// Len returns the image length in bytes.
func (a *AddressSpace) Len() int {
	return len(a.buf)
}

// ReadByte returns the byte at addr.
func (a *AddressSpace) ReadByte(addr int) (byte, error) {
	if addr < 0 || addr >= len(a.buf) {
		return 0, fmt.Errorf("%w: 0x%06X", ErrOutOfRange, addr)
	}
	return a.buf[addr], nil
}

// WriteByte stores value at addr. Value must fit in a single byte; wider
// integers fail with ErrValueOverflow instead of being silently narrowed.
func (a *AddressSpace) WriteByte(addr, value int) error {
	if addr < 0 || addr >= len(a.buf) {
		return fmt.Errorf("%w: 0x%06X", ErrOutOfRange, addr)
	}
	if value < 0 || value > 0xFF {
		return fmt.Errorf("%w: %d does not fit in uint8", ErrValueOverflow, value)
	}
	a.buf[addr] = byte(value)
	return nil
}

// ReadU16BE returns the big-endian 16-bit value at addr.
func (a *AddressSpace) ReadU16BE(addr int) (uint16, error) {
	if addr < 0 || addr+1 >= len(a.buf) {
		return 0, fmt.Errorf("%w: 0x%06X (16-bit)", ErrOutOfRange, addr)
	}
	return binary.BigEndian.Uint16(a.buf[addr:]), nil
}

// WriteU16BE stores value big-endian at addr.
func (a *AddressSpace) WriteU16BE(addr, value int) error {
	if addr < 0 || addr+1 >= len(a.buf) {
		return fmt.Errorf("%w: 0x%06X (16-bit)", ErrOutOfRange, addr)
	}
	if value < 0 || value > 0xFFFF {
		return fmt.Errorf("%w: %d does not fit in uint16", ErrValueOverflow, value)
	}
	binary.BigEndian.PutUint16(a.buf[addr:], uint16(value))
	return nil
}

// Bytes returns the live backing buffer. Callers must treat it as read-only;
// mutation goes through WriteByte/WriteU16BE so every change is recordable.
func (a *AddressSpace) Bytes() []byte {
	return a.buf
}

// Snapshot returns an independent copy of the current image bytes.
func (a *AddressSpace) Snapshot() []byte {
	out := make([]byte, len(a.buf))
	copy(out, a.buf)
	return out
}

// Restore overwrites the image with data, which must match the image length.
func (a *AddressSpace) Restore(data []byte) error {
	if len(data) != len(a.buf) {
		return fmt.Errorf("%w: restore source is %d bytes", ErrSizeMismatch, len(data))
	}
	copy(a.buf, data)
	return nil
}

// Clone returns an independent AddressSpace with identical contents.
func (a *AddressSpace) Clone() *AddressSpace {
	return &AddressSpace{buf: a.Snapshot()}
}

// Package reader decodes the fixed-offset identity fields of a calibration
// image: part number, calibration ID, immobiliser PIN and the rev-limit
// thresholds. All operations are read-only.
package reader

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/zewy9910-ux/Z22SE-Tuner/pkg/image"
	"github.com/zewy9910-ux/Z22SE-Tuner/pkg/models"
)

// ErrInvalidBCD indicates a PIN nibble outside 0-9. Identify still returns
// the remaining identity fields when this happens; only the PIN is lost.
var ErrInvalidBCD = errors.New("invalid BCD digit")

// Identify decodes the identity fields from as using cat's scalar
// descriptors. On a bad PIN it returns the identity with an empty PIN
// together with an error wrapping ErrInvalidBCD.
func Identify(as *image.AddressSpace, cat *models.Catalog) (models.Identity, error) {
	var id models.Identity

	part, err := readASCII(as, cat, models.TablePartNumber)
	if err != nil {
		return id, err
	}
	id.PartNumber = part

	cal, err := readASCII(as, cat, models.TableCalibrationID)
	if err != nil {
		return id, err
	}
	id.CalibrationID = cal

	engage, err := readU16(as, cat, models.TableRevEngage)
	if err != nil {
		return id, err
	}
	id.RevLimitEngage = engage

	hyst, err := readU16(as, cat, models.TableRevHysteresis)
	if err != nil {
		return id, err
	}
	id.RevLimitHysteresis = hyst

	pin, pinErr := readPIN(as, cat)
	if pinErr != nil {
		return id, fmt.Errorf("pin decode: %w", pinErr)
	}
	id.PIN = pin
	return id, nil
}

// DecodePIN unpacks two BCD bytes into a four-digit string.
// Bytes 0x33 0x05 decode to "3305".
func DecodePIN(b0, b1 byte) (string, error) {
	digits := [4]byte{b0 >> 4, b0 & 0xF, b1 >> 4, b1 & 0xF}
	var sb strings.Builder
	for _, d := range digits {
		if d > 9 {
			return "", fmt.Errorf("%w: nibble 0x%X", ErrInvalidBCD, d)
		}
		sb.WriteByte('0' + d)
	}
	return sb.String(), nil
}

func readPIN(as *image.AddressSpace, cat *models.Catalog) (string, error) {
	desc, err := cat.Lookup(models.TablePIN)
	if err != nil {
		return "", err
	}
	b0, err := as.ReadByte(desc.Offset)
	if err != nil {
		return "", err
	}
	b1, err := as.ReadByte(desc.Offset + 1)
	if err != nil {
		return "", err
	}
	return DecodePIN(b0, b1)
}

// readASCII decodes the named field up to its declared length, trimming
// trailing 0x00/0xFF padding and dropping non-printable bytes.
func readASCII(as *image.AddressSpace, cat *models.Catalog, name string) (string, error) {
	desc, err := cat.Lookup(name)
	if err != nil {
		return "", err
	}
	raw := make([]byte, 0, desc.Length)
	for i := 0; i < desc.Length; i++ {
		b, err := as.ReadByte(desc.Offset + i)
		if err != nil {
			return "", err
		}
		raw = append(raw, b)
	}
	trimmed := bytes.TrimRight(raw, "\x00\xff\xfe ")
	var sb strings.Builder
	for _, c := range trimmed {
		if c >= 0x20 && c < 0x7F {
			sb.WriteByte(c)
		}
	}
	return sb.String(), nil
}

// readU16 reads the first cell of a mirrored big-endian scalar table.
func readU16(as *image.AddressSpace, cat *models.Catalog, name string) (int, error) {
	desc, err := cat.Lookup(name)
	if err != nil {
		return 0, err
	}
	v, err := as.ReadU16BE(desc.Offset)
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

// Package delta applies per-cell transforms to table regions of the
// calibration image. Every mutation goes through here so it can be captured
// as a change record; out-of-range results saturate silently because the
// cells are physically 8-bit storage.
package delta

import (
	"fmt"

	"github.com/zewy9910-ux/Z22SE-Tuner/pkg/image"
	"github.com/zewy9910-ux/Z22SE-Tuner/pkg/models"
)

// Apply runs one delta spec against desc's region, returning a record for
// every byte that actually changed. Additive results clamp to [0, 255];
// absolute values must already fit a byte.
func Apply(as *image.AddressSpace, desc models.TableDescriptor, spec models.DeltaSpec, profile string) ([]models.ChangeRecord, error) {
	switch spec.Kind {
	case models.DeltaUniform:
		return applyRange(as, desc, 0, desc.Length, spec.Delta, profile)

	case models.DeltaZoned:
		var records []models.ChangeRecord
		for _, z := range spec.Zones {
			if z.Start < 0 || z.End < z.Start {
				return nil, fmt.Errorf("%w: zone [%d, %d) in table %q", image.ErrOutOfRange, z.Start, z.End, desc.Name)
			}
			recs, err := applyRange(as, desc, z.Start, z.End, z.Delta, profile)
			if err != nil {
				return nil, err
			}
			records = append(records, recs...)
		}
		return records, nil

	case models.DeltaAbsolute:
		if spec.Value < 0 || spec.Value > 0xFF {
			return nil, fmt.Errorf("%w: absolute value %d for table %q", image.ErrValueOverflow, spec.Value, desc.Name)
		}
		var records []models.ChangeRecord
		for i := 0; i < desc.Length; i++ {
			addr := desc.Offset + i
			old, err := as.ReadByte(addr)
			if err != nil {
				return nil, err
			}
			if int(old) == spec.Value {
				continue
			}
			if err := as.WriteByte(addr, spec.Value); err != nil {
				return nil, err
			}
			records = append(records, models.ChangeRecord{
				Addr: addr, Table: desc.Name, Old: old, New: byte(spec.Value), Profile: profile,
			})
		}
		return records, nil

	default:
		return nil, fmt.Errorf("unknown delta kind %q", spec.Kind)
	}
}

// applyRange adds delta to every byte in [start, end) relative to the table
// offset. Cells whose clamped result equals the old value produce no record.
func applyRange(as *image.AddressSpace, desc models.TableDescriptor, start, end, delta int, profile string) ([]models.ChangeRecord, error) {
	if delta == 0 {
		return nil, nil
	}
	var records []models.ChangeRecord
	for i := start; i < end; i++ {
		addr := desc.Offset + i
		old, err := as.ReadByte(addr)
		if err != nil {
			return nil, err
		}
		nv := clamp(int(old)+delta, 0, 0xFF)
		if nv == int(old) {
			continue
		}
		if err := as.WriteByte(addr, nv); err != nil {
			return nil, err
		}
		records = append(records, models.ChangeRecord{
			Addr: addr, Table: desc.Name, Old: old, New: byte(nv), Profile: profile,
		})
	}
	return records, nil
}

// ApplyScalar writes value big-endian into every mirrored 16-bit cell of a
// scalar table. Values outside [0, 65535] saturate. Only bytes that change
// are recorded.
func ApplyScalar(as *image.AddressSpace, desc models.TableDescriptor, value int, profile string) ([]models.ChangeRecord, error) {
	if desc.CellWidth != 2 {
		return nil, fmt.Errorf("table %q is not a 16-bit scalar field", desc.Name)
	}
	v := clamp(value, 0, 0xFFFF)
	hi, lo := byte(v>>8), byte(v&0xFF)

	var records []models.ChangeRecord
	for off := 0; off+2 <= desc.Length; off += 2 {
		addr := desc.Offset + off
		for i, nb := range [2]byte{hi, lo} {
			old, err := as.ReadByte(addr + i)
			if err != nil {
				return nil, err
			}
			if old == nb {
				continue
			}
			if err := as.WriteByte(addr+i, int(nb)); err != nil {
				return nil, err
			}
			records = append(records, models.ChangeRecord{
				Addr: addr + i, Table: desc.Name, Old: old, New: nb, Profile: profile,
			})
		}
	}
	return records, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

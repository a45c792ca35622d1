// Package editor orchestrates the application of tuning profiles against a
// loaded calibration image. A profile either applies completely or not at
// all: every address it would touch is validated against the table catalog
// before the first byte is written.
package editor

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/zewy9910-ux/Z22SE-Tuner/pkg/checksum"
	"github.com/zewy9910-ux/Z22SE-Tuner/pkg/delta"
	"github.com/zewy9910-ux/Z22SE-Tuner/pkg/image"
	"github.com/zewy9910-ux/Z22SE-Tuner/pkg/models"
)

// ErrUnmappedAddress indicates a delta spec reaches bytes outside every
// catalog descriptor. The whole profile apply fails with zero bytes mutated.
var ErrUnmappedAddress = errors.New("delta touches unmapped address")

// Applier applies tuning profiles against an address space using a fixed
// catalog. The zero Checksum is replaced with the no-op updater.
type Applier struct {
	Catalog  *models.Catalog
	Checksum checksum.Updater
}

// NewApplier returns an Applier over cat with the no-op checksum updater.
func NewApplier(cat *models.Catalog) *Applier {
	return &Applier{Catalog: cat, Checksum: checksum.NoOp{}}
}

// Apply runs every delta spec of p in declared order, then its scalar
// overrides, returning the accumulated change records. Deltas are relative
// to the current bytes: applying the same profile twice compounds the
// change. Callers switching profiles should revert to the pristine image
// first, or compose profiles and apply once.
func (ap *Applier) Apply(as *image.AddressSpace, p models.TuningProfile) ([]models.ChangeRecord, error) {
	if err := ap.validate(as, p); err != nil {
		return nil, err
	}

	var records []models.ChangeRecord
	for _, spec := range p.Deltas {
		desc, err := ap.Catalog.Lookup(spec.Table)
		if err != nil {
			return records, err
		}
		recs, err := delta.Apply(as, desc, spec, p.Name)
		if err != nil {
			return records, err
		}
		records = append(records, recs...)
	}
	for _, s := range p.Scalars {
		desc, err := ap.Catalog.Lookup(s.Table)
		if err != nil {
			return records, err
		}
		recs, err := delta.ApplyScalar(as, desc, s.Value, p.Name)
		if err != nil {
			return records, err
		}
		records = append(records, recs...)
	}

	cs := ap.Checksum
	if cs == nil {
		cs = checksum.NoOp{}
	}
	if err := cs.Update(as); err != nil {
		return records, fmt.Errorf("checksum update: %w", err)
	}
	return records, nil
}

// validate resolves every table name and walks every address the profile
// will touch, before any write. Zones may extend past their own table only
// into another mapped region, never into unmapped bytes.
func (ap *Applier) validate(as *image.AddressSpace, p models.TuningProfile) error {
	check := func(table string, start, end int) error {
		for addr := start; addr < end; addr++ {
			if addr < 0 || addr >= as.Len() {
				return fmt.Errorf("%w: 0x%06X via table %q", image.ErrOutOfRange, addr, table)
			}
			if _, ok := ap.Catalog.Resolve(addr); !ok {
				return fmt.Errorf("%w: 0x%06X via table %q", ErrUnmappedAddress, addr, table)
			}
		}
		return nil
	}

	for _, spec := range p.Deltas {
		desc, err := ap.Catalog.Lookup(spec.Table)
		if err != nil {
			return err
		}
		switch spec.Kind {
		case models.DeltaUniform:
			if err := check(spec.Table, desc.Offset, desc.End()); err != nil {
				return err
			}
		case models.DeltaAbsolute:
			if spec.Value < 0 || spec.Value > 0xFF {
				return fmt.Errorf("%w: absolute value %d for table %q", image.ErrValueOverflow, spec.Value, spec.Table)
			}
			if err := check(spec.Table, desc.Offset, desc.End()); err != nil {
				return err
			}
		case models.DeltaZoned:
			for _, z := range spec.Zones {
				if z.Start < 0 || z.End < z.Start {
					return fmt.Errorf("%w: zone [%d, %d) in table %q", image.ErrOutOfRange, z.Start, z.End, spec.Table)
				}
				if err := check(spec.Table, desc.Offset+z.Start, desc.Offset+z.End); err != nil {
					return err
				}
			}
		default:
			return fmt.Errorf("unknown delta kind %q in table %q", spec.Kind, spec.Table)
		}
	}
	for _, s := range p.Scalars {
		desc, err := ap.Catalog.Lookup(s.Table)
		if err != nil {
			return err
		}
		if desc.CellWidth != 2 {
			return fmt.Errorf("scalar override targets non-16-bit table %q", s.Table)
		}
		if err := check(s.Table, desc.Offset, desc.End()); err != nil {
			return err
		}
	}
	return nil
}

// CreateBackup writes a timestamped copy of the file next to it and returns
// the backup path.
func CreateBackup(filename string) (string, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return "", err
	}

	timestamp := time.Now().Format("20060102_150405")
	backupName := filename + ".backup_" + timestamp
	if err := os.WriteFile(backupName, data, 0644); err != nil {
		return "", err
	}
	return backupName, nil
}

package models

import (
	"errors"
	"fmt"
	"sort"

	"github.com/zewy9910-ux/Z22SE-Tuner/pkg/image"
)

// ErrUnknownTable indicates a lookup for a table name not in the catalog.
var ErrUnknownTable = errors.New("unknown table")

// Table names used by the built-in profiles and the identity reader.
const (
	TablePartNumber    = "Part Number"
	TableCalibrationID = "Calibration ID"
	TablePIN           = "PIN Code"
	TableRevEngage     = "Rev Limit Engage"
	TableRevHysteresis = "Rev Limit Hysteresis"
	TableRPMAxis       = "RPM Axis"
	TableLoadAxis      = "Load Axis"
	TableIgnTrimHigh   = "Ignition Trim High-RPM"
	TableIgnTrimTrans  = "Ignition Trim Transient"
	TableLambdaPrimary = "Lambda Target Primary"
	TableLambdaBackup  = "Lambda Target Backup"
)

// IgnMapName and FuelMapName build the names of the four ignition and
// four fuel correction maps ("Ignition Map 1".."4", "Fuel Map 1".."4").
func IgnMapName(n int) string  { return fmt.Sprintf("Ignition Map %d", n) }
func FuelMapName(n int) string { return fmt.Sprintf("Fuel Map %d", n) }

// Z22SETables is the confirmed region layout of the 2004 Astra G Z22SE
// calibration (Hw 12591333). Offsets validated against real binaries.
var Z22SETables = []TableDescriptor{
	{
		Name:        TablePartNumber,
		Offset:      0x00800C,
		Length:      8,
		CellWidth:   1,
		Encoding:    EncASCII,
		Description: "Hardware part number, padded ASCII",
	},
	{
		Name:        TableCalibrationID,
		Offset:      0x00602C,
		Length:      17,
		CellWidth:   1,
		Encoding:    EncASCII,
		Description: "Calibration identifier (W0L0... VIN prefix)",
	},
	{
		Name:        TablePIN,
		Offset:      0x008141,
		Length:      2,
		CellWidth:   1,
		Encoding:    EncBCD,
		Description: "Immobiliser PIN, four packed BCD digits",
	},
	{
		Name:        TableRevEngage,
		Offset:      0x00B568,
		Length:      4,
		CellWidth:   2,
		Encoding:    EncUint16BE,
		Unit:        "RPM",
		Description: "Fuel-cut engage threshold, mirrored uint16 pair",
	},
	{
		Name:        TableRevHysteresis,
		Offset:      0x00B570,
		Length:      8,
		CellWidth:   2,
		Encoding:    EncUint16BE,
		Unit:        "RPM",
		Description: "Fuel-cut resume threshold, four mirrored uint16 cells",
	},
	{
		Name:        TableRPMAxis,
		Offset:      0x0081C0,
		Length:      24,
		Rows:        1,
		Cols:        12,
		CellWidth:   2,
		Encoding:    EncUint16BE,
		Unit:        "RPM",
		Description: "RPM axis breakpoints, 12 points",
	},
	{
		Name:        TableLoadAxis,
		Offset:      0x008290,
		Length:      12,
		Rows:        1,
		Cols:        12,
		CellWidth:   1,
		Encoding:    EncUint8,
		Unit:        "kPa",
		Description: "Load axis breakpoints (MAP kPa, high to low)",
	},

	{Name: IgnMapName(1), Offset: 0x0082C9, Length: 163, Rows: 12, Cols: 13, CellWidth: 1, Encoding: EncUint8, Scale: 0.75, Unit: "deg", Description: "Spark advance map 1 (7-byte header + 12x13)"},
	{Name: IgnMapName(2), Offset: 0x0083A9, Length: 163, Rows: 12, Cols: 13, CellWidth: 1, Encoding: EncUint8, Scale: 0.75, Unit: "deg", Description: "Spark advance map 2"},
	{Name: IgnMapName(3), Offset: 0x008489, Length: 163, Rows: 12, Cols: 13, CellWidth: 1, Encoding: EncUint8, Scale: 0.75, Unit: "deg", Description: "Spark advance map 3"},
	{Name: IgnMapName(4), Offset: 0x008569, Length: 163, Rows: 12, Cols: 13, CellWidth: 1, Encoding: EncUint8, Scale: 0.75, Unit: "deg", Description: "Spark advance map 4"},

	{Name: FuelMapName(1), Offset: 0x0086C9, Length: 115, Rows: 10, Cols: 11, CellWidth: 1, Encoding: EncUint8, Scale: 0.01, Unit: "%", Description: "Fuel correction map 1 (5-byte prefix + 10x11 zones)"},
	{Name: FuelMapName(2), Offset: 0x00876C, Length: 115, Rows: 10, Cols: 11, CellWidth: 1, Encoding: EncUint8, Scale: 0.01, Unit: "%", Description: "Fuel correction map 2"},
	{Name: FuelMapName(3), Offset: 0x00880F, Length: 115, Rows: 10, Cols: 11, CellWidth: 1, Encoding: EncUint8, Scale: 0.01, Unit: "%", Description: "Fuel correction map 3"},
	{Name: FuelMapName(4), Offset: 0x0088B2, Length: 115, Rows: 10, Cols: 11, CellWidth: 1, Encoding: EncUint8, Scale: 0.01, Unit: "%", Description: "Fuel correction map 4"},

	{
		Name:        TableIgnTrimHigh,
		Offset:      0x00896B,
		Length:      62,
		Rows:        6,
		Cols:        9,
		CellWidth:   1,
		Encoding:    EncUint8,
		Scale:       0.75,
		Unit:        "deg",
		Description: "High-RPM ignition trim",
	},
	{
		Name:        TableIgnTrimTrans,
		Offset:      0x0089CE,
		Length:      22,
		Rows:        2,
		Cols:        11,
		CellWidth:   1,
		Encoding:    EncUint8,
		Scale:       0.75,
		Unit:        "deg",
		Description: "Transient ignition trim",
	},

	{Name: TableLambdaPrimary, Offset: 0x00C7A7, Length: 163, Rows: 12, Cols: 13, CellWidth: 1, Encoding: EncUint8, Scale: 0.01, Unit: "λ", Group: "lambda-target", Description: "Lambda target map, primary copy"},
	{Name: TableLambdaBackup, Offset: 0x00C885, Length: 163, Rows: 12, Cols: 13, CellWidth: 1, Encoding: EncUint8, Scale: 0.01, Unit: "λ", Group: "lambda-target", Description: "Lambda target map, backup copy (kept identical to primary)"},
}

// Catalog indexes a set of table descriptors by name and address. It is
// read-only after construction.
type Catalog struct {
	tables []TableDescriptor
	byName map[string]TableDescriptor
}

// NewCatalog validates the descriptor set and builds a catalog. Every
// descriptor must fit inside the image, carry a unique name, and not overlap
// another descriptor unless both belong to the same duplicate group.
func NewCatalog(tables []TableDescriptor) (*Catalog, error) {
	byName := make(map[string]TableDescriptor, len(tables))
	for _, t := range tables {
		if t.Length <= 0 {
			return nil, fmt.Errorf("table %q has non-positive length %d", t.Name, t.Length)
		}
		if t.Offset < 0 || t.End() > image.Size {
			return nil, fmt.Errorf("table %q [0x%06X, 0x%06X) exceeds image bounds", t.Name, t.Offset, t.End())
		}
		if _, dup := byName[t.Name]; dup {
			return nil, fmt.Errorf("duplicate table name %q", t.Name)
		}
		byName[t.Name] = t
	}

	sorted := make([]TableDescriptor, len(tables))
	copy(sorted, tables)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Offset < sorted[j].Offset })
	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		if cur.Offset < prev.End() {
			if prev.Group != "" && prev.Group == cur.Group {
				continue
			}
			return nil, fmt.Errorf("tables %q and %q overlap at 0x%06X", prev.Name, cur.Name, cur.Offset)
		}
	}

	return &Catalog{tables: sorted, byName: byName}, nil
}

// Default returns the catalog for the Z22SE 2004 layout. It panics if the
// built-in table data is inconsistent, which only happens on a bad edit of
// Z22SETables itself.
func Default() *Catalog {
	c, err := NewCatalog(Z22SETables)
	if err != nil {
		panic(err)
	}
	return c
}

// Lookup returns the descriptor for name, or ErrUnknownTable.
func (c *Catalog) Lookup(name string) (TableDescriptor, error) {
	t, ok := c.byName[name]
	if !ok {
		return TableDescriptor{}, fmt.Errorf("%w: %q", ErrUnknownTable, name)
	}
	return t, nil
}

// All returns every descriptor, ordered by offset.
func (c *Catalog) All() []TableDescriptor {
	out := make([]TableDescriptor, len(c.tables))
	copy(out, c.tables)
	return out
}

// Resolve returns the descriptor whose region contains addr, if any.
func (c *Catalog) Resolve(addr int) (TableDescriptor, bool) {
	i := sort.Search(len(c.tables), func(i int) bool { return c.tables[i].End() > addr })
	if i < len(c.tables) && c.tables[i].Contains(addr) {
		return c.tables[i], true
	}
	return TableDescriptor{}, false
}

// Linked returns the descriptors sharing a duplicate group with t,
// excluding t itself.
func (c *Catalog) Linked(t TableDescriptor) []TableDescriptor {
	if t.Group == "" {
		return nil
	}
	var out []TableDescriptor
	for _, other := range c.tables {
		if other.Group == t.Group && other.Name != t.Name {
			out = append(out, other)
		}
	}
	return out
}

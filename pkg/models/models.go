// Package models defines the table catalog, tuning profiles and value types
// shared by every other package. All addresses in the tool live here, as
// data, so another ECU variant can be supported by swapping the catalog
// without touching engine code.
package models

// Cell encodings used by TableDescriptor.
const (
	EncUint8    = "uint8"    // single raw byte per cell
	EncUint16BE = "uint16be" // big-endian 16-bit per cell
	EncASCII    = "ascii"    // padded ASCII string
	EncBCD      = "bcd"      // packed BCD digit pairs
)

// TableDescriptor describes one named byte region of the calibration image.
// Rows/Cols give display geometry for dimensioned maps; Length is always the
// authoritative byte count (the 163-byte ignition tables carry a 7-byte
// header ahead of the 12x13 cells).
type TableDescriptor struct {
	Name        string
	Offset      int
	Length      int
	Rows        int
	Cols        int
	CellWidth   int
	Encoding    string
	Scale       float64
	Unit        string
	Group       string // descriptors sharing a group are duplicate copies of one logical table
	Description string
}

// End returns the first address past the descriptor's region.
func (d TableDescriptor) End() int {
	return d.Offset + d.Length
}

// Contains reports whether addr falls inside the descriptor's region.
func (d TableDescriptor) Contains(addr int) bool {
	return addr >= d.Offset && addr < d.End()
}

// Cells returns the number of addressable cells in the region.
func (d TableDescriptor) Cells() int {
	if d.CellWidth == 2 {
		return d.Length / 2
	}
	return d.Length
}

// ChangeRecord captures a single mutated byte. Immutable once created.
type ChangeRecord struct {
	Addr    int
	Table   string
	Old     byte
	New     byte
	Profile string
}

// Identity holds the scalar fields decoded from fixed offsets in the image.
type Identity struct {
	PartNumber         string
	CalibrationID      string
	PIN                string
	RevLimitEngage     int // RPM
	RevLimitHysteresis int // RPM
}

// Package scanner locates the rev-limit threshold heuristically. Some
// firmware revisions keep the fuel-cut pair at a different address than the
// 2004 calibration, so when the catalog's engage value looks implausible the
// CLI falls back to scanning the image for it.
package scanner

import (
	"encoding/binary"
	"fmt"

	"github.com/pterm/pterm"
)

// Plausible fuel-cut RPM window for the Z22SE family.
const (
	minPlausibleRPM = 5500
	maxPlausibleRPM = 7500
)

// Calibration-area address window favoured when ranking candidates.
const (
	calAreaStart = 0x8000
	calAreaEnd   = 0xC000
)

// RevLimitHit is one candidate fuel-cut location.
type RevLimitHit struct {
	Offset   int
	RPM      int
	Mirrored bool // same value repeats at Offset+2 (engage/cut pair)
}

// ScanRevLimit searches data for a big-endian 16-bit RPM value in the
// plausible fuel-cut range. Candidates whose value repeats two bytes later
// are ranked first, preferring the calibration area; with no mirrored pair
// it falls back to the most frequent candidate value in the first half of
// the image.
func ScanRevLimit(data []byte) (RevLimitHit, bool) {
	type hit struct {
		offset int
		rpm    int
	}
	var hits []hit
	rpmAt := make(map[int]int)
	for i := 0; i+1 < len(data); i += 2 {
		v := int(binary.BigEndian.Uint16(data[i:]))
		if v >= minPlausibleRPM && v <= maxPlausibleRPM {
			hits = append(hits, hit{offset: i, rpm: v})
			rpmAt[i] = v
		}
	}
	if len(hits) == 0 {
		return RevLimitHit{}, false
	}

	best := RevLimitHit{Offset: -1}
	for _, h := range hits {
		if rpmAt[h.offset+2] != h.rpm {
			continue
		}
		inCalArea := h.offset >= calAreaStart && h.offset <= calAreaEnd
		if best.Offset < 0 || (inCalArea && !(best.Offset >= calAreaStart && best.Offset <= calAreaEnd)) {
			best = RevLimitHit{Offset: h.offset, RPM: h.rpm, Mirrored: true}
		}
	}
	if best.Offset >= 0 {
		return best, true
	}

	// No mirrored pair: take the most common candidate RPM in the first
	// half of the file and its first occurrence.
	counts := make(map[int]int)
	for _, h := range hits {
		if h.offset < len(data)/2 {
			counts[h.rpm]++
		}
	}
	bestRPM, bestCount := 0, 0
	for rpm, n := range counts {
		if n > bestCount || (n == bestCount && rpm < bestRPM) {
			bestRPM, bestCount = rpm, n
		}
	}
	if bestCount == 0 {
		return RevLimitHit{}, false
	}
	for _, h := range hits {
		if h.rpm == bestRPM {
			return RevLimitHit{Offset: h.offset, RPM: h.rpm}, true
		}
	}
	return RevLimitHit{}, false
}

// Report scans data and prints the result.
func Report(data []byte) {
	spinner, _ := pterm.DefaultSpinner.Start("Scanning for rev-limit location...")

	hit, ok := ScanRevLimit(data)
	if !ok {
		spinner.Fail("No plausible rev-limit value found")
		return
	}
	spinner.Success("Scan complete")

	tableData := pterm.TableData{
		{"Offset", "RPM", "Mirrored pair"},
		{
			fmt.Sprintf("0x%06X", hit.Offset),
			fmt.Sprintf("%d", hit.RPM),
			fmt.Sprintf("%t", hit.Mirrored),
		},
	}
	pterm.DefaultTable.WithHasHeader().WithData(tableData).Render()
}

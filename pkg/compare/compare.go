// Package compare diffs two calibration images byte-for-byte, merging
// nearby changed bytes into regions and annotating each region with the
// catalog table it falls in.
package compare

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"

	"github.com/zewy9910-ux/Z22SE-Tuner/pkg/image"
	"github.com/zewy9910-ux/Z22SE-Tuner/pkg/models"
)

// mergeGap bounds region coalescing: a changed span joins the previous
// region when it starts within mergeGap bytes of that region's last changed
// byte, so at most mergeGap-1 equal bytes are absorbed between them.
const mergeGap = 8

// Region is a contiguous changed span, inclusive of both ends.
type Region struct {
	Start int
	End   int
	Table string // catalog table covering the region, if any
}

// Size returns the region's byte count.
func (r Region) Size() int { return r.End - r.Start + 1 }

// Diff compares a against b and returns the merged changed regions. Both
// inputs must be the same length.
func Diff(a, b []byte, cat *models.Catalog) ([]Region, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("%w: files differ in size (%d vs %d bytes)", image.ErrSizeMismatch, len(a), len(b))
	}

	var regions []Region
	start, prev := -1, 0
	for i := range a {
		if a[i] != b[i] {
			if start < 0 {
				start = i
			}
			prev = i
			continue
		}
		if start >= 0 {
			regions = appendRegion(regions, start, prev)
			start = -1
		}
	}
	if start >= 0 {
		regions = appendRegion(regions, start, prev)
	}

	for i := range regions {
		regions[i].Table = annotate(regions[i], cat)
	}
	return regions, nil
}

func appendRegion(regions []Region, start, end int) []Region {
	if n := len(regions); n > 0 && start-regions[n-1].End <= mergeGap {
		regions[n-1].End = end
		return regions
	}
	return append(regions, Region{Start: start, End: end})
}

func annotate(r Region, cat *models.Catalog) string {
	if cat == nil {
		return ""
	}
	if t, ok := cat.Resolve(r.Start); ok {
		return t.Name
	}
	if t, ok := cat.Resolve(r.End); ok {
		return t.Name
	}
	return ""
}

// Report prints a comparison of the two images.
func Report(nameA, nameB string, a, b []byte, regions []Region) {
	pterm.DefaultHeader.WithFullWidth().Println("Calibration Comparison")
	pterm.Info.Printf("%s  vs  %s\n", nameA, nameB)

	total := 0
	for _, r := range regions {
		for i := r.Start; i <= r.End; i++ {
			if a[i] != b[i] {
				total++
			}
		}
	}
	pterm.Info.Printf("Total changed bytes: %d   Regions: %d\n", total, len(regions))

	if len(regions) == 0 {
		pterm.Success.Println("Files are identical")
		return
	}

	var sb strings.Builder
	for _, r := range regions {
		tag := ""
		if r.Table != "" {
			tag = "  <- " + r.Table
		}
		sb.WriteString(fmt.Sprintf("0x%06X-0x%06X  (%5d B)%s%s\n",
			r.Start, r.End, r.Size(), tag, sampleDeltas(a, b, r)))
	}
	pterm.DefaultBox.Println(strings.TrimRight(sb.String(), "\n"))
}

// sampleDeltas shows per-byte deltas for small regions and the set of
// distinct delta values for large ones.
func sampleDeltas(a, b []byte, r Region) string {
	if r.Size() <= 20 {
		var cells []string
		for i := r.Start; i <= r.End && len(cells) < 6; i++ {
			if a[i] != b[i] {
				cells = append(cells, fmt.Sprintf("%d->%d(%+d)", a[i], b[i], int(b[i])-int(a[i])))
			}
		}
		if len(cells) == 0 {
			return ""
		}
		return "  |  " + strings.Join(cells, " ")
	}

	seen := make(map[int]bool)
	var uniq []int
	for i := r.Start; i <= r.End && len(uniq) < 8; i++ {
		if a[i] == b[i] {
			continue
		}
		d := int(b[i]) - int(a[i])
		if !seen[d] {
			seen[d] = true
			uniq = append(uniq, d)
		}
	}
	return fmt.Sprintf("  |  distinct deltas: %v", uniq)
}

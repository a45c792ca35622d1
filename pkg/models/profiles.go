package models

import (
	"fmt"
	"strings"
)

// DeltaSpec kinds.
const (
	DeltaUniform  = "uniform"  // one additive delta across the whole region
	DeltaZoned    = "zoned"    // per-zone additive deltas
	DeltaAbsolute = "absolute" // overwrite every cell with one value
)

// Zone byte boundaries inside the 163-byte ignition/lambda tables.
// The 7-byte header is counted into the WOT band, matching the layout
// confirmed against real Stage 1 binaries:
//
//	WOT       rows 0-4  (load >= 94 kPa): bytes [0, 72)
//	Part-load rows 5-8  (load 77-91 kPa): bytes [72, 124)
//	Overrun   rows 9-11 (load <= 63 kPa): bytes [124, 163)
const (
	IgnWOTStart  = 0
	IgnWOTEnd    = 72
	IgnPLEnd     = 124
	IgnOverEnd   = 163
	FuelWOTStart = 0
	FuelWOTEnd   = 46
	FuelPLEnd    = 75
	FuelOverEnd  = 115
)

// Zone maps a byte sub-range [Start, End) of a table to an additive delta.
// Deltas are raw storage counts, never physical units.
type Zone struct {
	Start int
	End   int
	Delta int
}

// DeltaSpec is one transform rule against a named table. Exactly one of
// Delta (uniform), Zones (zoned) or Value (absolute) is meaningful,
// selected by Kind.
type DeltaSpec struct {
	Table string
	Kind  string
	Delta int
	Zones []Zone
	Value int
}

// ScalarOverride writes a big-endian 16-bit value into every mirrored cell
// of a scalar table (rev-limit engage pair, hysteresis quad).
type ScalarOverride struct {
	Table string
	Value int
}

// TuningProfile is a named, ordered bundle of table deltas plus scalar
// overrides. Profiles are immutable value objects; deltas are relative to
// the current bytes, so re-applying a profile compounds the change.
type TuningProfile struct {
	Name    string
	Summary string
	Deltas  []DeltaSpec
	Scalars []ScalarOverride
}

// ignZones builds the zoned specs for all four ignition maps.
func ignZones(wot, pl, overrun int) []DeltaSpec {
	specs := make([]DeltaSpec, 0, 4)
	for n := 1; n <= 4; n++ {
		specs = append(specs, DeltaSpec{
			Table: IgnMapName(n),
			Kind:  DeltaZoned,
			Zones: []Zone{
				{Start: IgnWOTStart, End: IgnWOTEnd, Delta: wot},
				{Start: IgnWOTEnd, End: IgnPLEnd, Delta: pl},
				{Start: IgnPLEnd, End: IgnOverEnd, Delta: overrun},
			},
		})
	}
	return specs
}

// fuelZones builds the zoned specs for all four fuel correction maps.
func fuelZones(wot, pl, overrun int) []DeltaSpec {
	specs := make([]DeltaSpec, 0, 4)
	for n := 1; n <= 4; n++ {
		specs = append(specs, DeltaSpec{
			Table: FuelMapName(n),
			Kind:  DeltaZoned,
			Zones: []Zone{
				{Start: FuelWOTStart, End: FuelWOTEnd, Delta: wot},
				{Start: FuelWOTEnd, End: FuelPLEnd, Delta: pl},
				{Start: FuelPLEnd, End: FuelOverEnd, Delta: overrun},
			},
		})
	}
	return specs
}

// trims builds uniform specs for both ignition trim tables.
func trims(delta int) []DeltaSpec {
	return []DeltaSpec{
		{Table: TableIgnTrimHigh, Kind: DeltaUniform, Delta: delta},
		{Table: TableIgnTrimTrans, Kind: DeltaUniform, Delta: delta},
	}
}

// lambdaZones builds zoned specs for the lambda pair. One spec per physical
// copy: the two lambda maps are a linked duplicate pair and must receive
// identical edits.
func lambdaZones(wot, pl int) []DeltaSpec {
	specs := make([]DeltaSpec, 0, 2)
	for _, name := range []string{TableLambdaPrimary, TableLambdaBackup} {
		specs = append(specs, DeltaSpec{
			Table: name,
			Kind:  DeltaZoned,
			Zones: []Zone{
				{Start: IgnWOTStart, End: IgnWOTEnd, Delta: wot},
				{Start: IgnWOTEnd, End: IgnPLEnd, Delta: pl},
			},
		})
	}
	return specs
}

func concat(groups ...[]DeltaSpec) []DeltaSpec {
	var out []DeltaSpec
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// revLimit builds the scalar overrides for a new fuel-cut threshold.
// Hysteresis trails the engage RPM by 6, as in the factory calibrations.
func revLimit(rpm int) []ScalarOverride {
	return []ScalarOverride{
		{Table: TableRevEngage, Value: rpm},
		{Table: TableRevHysteresis, Value: rpm - 6},
	}
}

// RevLimitProfile builds a profile that only moves the fuel-cut threshold.
func RevLimitProfile(rpm int) TuningProfile {
	return TuningProfile{
		Name:    fmt.Sprintf("Rev Limit %d", rpm),
		Summary: fmt.Sprintf("Fuel cut at %d RPM, resume at %d", rpm, rpm-6),
		Scalars: revLimit(rpm),
	}
}

// Built-in profiles. Delta values verified against real tuned binaries.
var (
	Stage1 = TuningProfile{
		Name:    "Stage 1",
		Summary: "Ign +2 WOT / +1 PL, Fuel +2/+1, trims +1, lambda -7 WOT",
		Deltas: concat(
			ignZones(2, 1, 0),
			fuelZones(2, 1, 0),
			trims(1),
			lambdaZones(-7, 0),
		),
	}

	Stage1Plus = TuningProfile{
		Name:    "Stage 1+",
		Summary: "Ign +3 WOT / +2 PL, Fuel +3/+2, trims +1, lambda -9/-3",
		Deltas: concat(
			ignZones(3, 2, 0),
			fuelZones(3, 2, 0),
			trims(1),
			lambdaZones(-9, -3),
		),
	}

	Stage2 = TuningProfile{
		Name:    "Stage 2",
		Summary: "Ign +5 WOT / +3 PL, Fuel +4/+2, trims +2, lambda -11/-5, rev limit 6800",
		Deltas: concat(
			ignZones(5, 3, 0),
			fuelZones(4, 2, 0),
			trims(2),
			lambdaZones(-11, -5),
		),
		Scalars: revLimit(6800),
	}

	PopBang = TuningProfile{
		Name:    "Pop & Bang",
		Summary: "Overrun zone only: ign -12, fuel +4",
		Deltas: concat(
			ignZones(0, 0, -12),
			fuelZones(0, 0, 4),
		),
	}

	Burble = TuningProfile{
		Name:    "Burble",
		Summary: "Aggressive overrun: ign -20, fuel +7",
		Deltas: concat(
			ignZones(0, 0, -20),
			fuelZones(0, 0, 7),
		),
	}
)

// Profiles lists every built-in profile in menu order.
var Profiles = []TuningProfile{Stage1, Stage1Plus, Stage2, PopBang, Burble}

// ProfileByName resolves a profile from a CLI-friendly name ("stage1",
// "Stage 1", "pop&bang", "popbang" all match).
func ProfileByName(name string) (TuningProfile, bool) {
	key := normalizeProfileName(name)
	for _, p := range Profiles {
		if normalizeProfileName(p.Name) == key {
			return p, true
		}
	}
	return TuningProfile{}, false
}

func normalizeProfileName(name string) string {
	s := strings.ToLower(name)
	// "stage1+" and "stage1plus" collapse to the same key
	s = strings.ReplaceAll(s, "+", "plus")
	for _, cut := range []string{" ", "-", "_", "&"} {
		s = strings.ReplaceAll(s, cut, "")
	}
	return s
}

// Compose concatenates profiles into one, preserving declaration order for
// both deltas and scalar overrides. Composing and applying once is the safe
// way to combine tunes; applying profiles one after another against an
// already-modified image compounds relative deltas.
func Compose(name string, profiles ...TuningProfile) TuningProfile {
	out := TuningProfile{Name: name}
	var parts []string
	for _, p := range profiles {
		out.Deltas = append(out.Deltas, p.Deltas...)
		out.Scalars = append(out.Scalars, p.Scalars...)
		parts = append(parts, p.Name)
	}
	out.Summary = strings.Join(parts, " + ")
	return out
}

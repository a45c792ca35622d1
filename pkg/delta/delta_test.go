package delta

import (
	"errors"
	"testing"

	"github.com/zewy9910-ux/Z22SE-Tuner/pkg/image"
	"github.com/zewy9910-ux/Z22SE-Tuner/pkg/models"
)

func blankImage(t *testing.T) *image.AddressSpace {
	t.Helper()
	as, err := image.Load(make([]byte, image.Size))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return as
}

func ignMap1(t *testing.T) models.TableDescriptor {
	t.Helper()
	d, err := models.Default().Lookup(models.IgnMapName(1))
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	return d
}

func TestUniformDelta(t *testing.T) {
	as := blankImage(t)
	desc := ignMap1(t)

	// saturate everything except the first seven cells so only they change
	for i := 0; i < desc.Length; i++ {
		if err := as.WriteByte(desc.Offset+i, 0xFF); err != nil {
			t.Fatalf("setup write failed: %v", err)
		}
	}
	seed := []int{104, 90, 83, 79, 71, 69, 67}
	for i, v := range seed {
		if err := as.WriteByte(desc.Offset+i, v); err != nil {
			t.Fatalf("setup write failed: %v", err)
		}
	}

	records, err := Apply(as, desc, models.DeltaSpec{
		Table: desc.Name, Kind: models.DeltaUniform, Delta: 2,
	}, "Stage 1")
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if len(records) != len(seed) {
		t.Fatalf("got %d records, want %d (saturated cells must not be recorded)", len(records), len(seed))
	}
	want := []int{106, 92, 85, 81, 73, 71, 69}
	for i, w := range want {
		b, _ := as.ReadByte(desc.Offset + i)
		if int(b) != w {
			t.Errorf("cell %d = %d, want %d", i, b, w)
		}
		if records[i].Addr != desc.Offset+i || int(records[i].New) != w || records[i].Profile != "Stage 1" {
			t.Errorf("record %d = %+v", i, records[i])
		}
	}
}

func TestZeroDeltaProducesNoRecords(t *testing.T) {
	as := blankImage(t)
	desc := ignMap1(t)

	records, err := Apply(as, desc, models.DeltaSpec{
		Table: desc.Name, Kind: models.DeltaUniform, Delta: 0,
	}, "noop")
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("zero delta produced %d records", len(records))
	}
}

func TestClampSaturates(t *testing.T) {
	as := blankImage(t)
	desc := ignMap1(t)

	if err := as.WriteByte(desc.Offset, 100); err != nil {
		t.Fatalf("setup write failed: %v", err)
	}
	records, err := Apply(as, desc, models.DeltaSpec{
		Table: desc.Name, Kind: models.DeltaZoned,
		Zones: []models.Zone{{Start: 0, End: 1, Delta: 200}},
	}, "t")
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if len(records) != 1 || records[0].New != 255 {
		t.Fatalf("100 + 200 -> %+v, want saturation at 255", records)
	}

	// and the low side
	records, err = Apply(as, desc, models.DeltaSpec{
		Table: desc.Name, Kind: models.DeltaZoned,
		Zones: []models.Zone{{Start: 1, End: 2, Delta: -10}},
	}, "t")
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	// cell held 0 already: clamped result equals old value, no record
	if len(records) != 0 {
		t.Errorf("0 - 10 recorded %+v, want silent floor with no record", records)
	}
}

func TestZonedDeltaSelectsByZone(t *testing.T) {
	as := blankImage(t)
	desc := ignMap1(t)

	for i := 0; i < desc.Length; i++ {
		if err := as.WriteByte(desc.Offset+i, 0x80); err != nil {
			t.Fatalf("setup write failed: %v", err)
		}
	}

	records, err := Apply(as, desc, models.DeltaSpec{
		Table: desc.Name, Kind: models.DeltaZoned,
		Zones: []models.Zone{
			{Start: models.IgnWOTStart, End: models.IgnWOTEnd, Delta: 2},
			{Start: models.IgnWOTEnd, End: models.IgnPLEnd, Delta: 1},
			{Start: models.IgnPLEnd, End: models.IgnOverEnd, Delta: 0},
		},
	}, "Stage 1")
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if len(records) != models.IgnPLEnd {
		t.Errorf("got %d records, want %d (overrun zone delta 0 records nothing)", len(records), models.IgnPLEnd)
	}
	wot, _ := as.ReadByte(desc.Offset)
	pl, _ := as.ReadByte(desc.Offset + models.IgnWOTEnd)
	over, _ := as.ReadByte(desc.Offset + models.IgnPLEnd)
	if wot != 0x82 || pl != 0x81 || over != 0x80 {
		t.Errorf("zone values wot=0x%02X pl=0x%02X over=0x%02X, want 0x82 0x81 0x80", wot, pl, over)
	}
}

func TestZoneOutOfRange(t *testing.T) {
	as := blankImage(t)
	desc := ignMap1(t)

	_, err := Apply(as, desc, models.DeltaSpec{
		Table: desc.Name, Kind: models.DeltaZoned,
		Zones: []models.Zone{{Start: -1, End: 5, Delta: 1}},
	}, "t")
	if !errors.Is(err, image.ErrOutOfRange) {
		t.Errorf("negative zone start: expected ErrOutOfRange, got %v", err)
	}
}

func TestAbsoluteOverride(t *testing.T) {
	as := blankImage(t)
	desc := ignMap1(t)

	if err := as.WriteByte(desc.Offset, 0x40); err != nil {
		t.Fatalf("setup write failed: %v", err)
	}
	records, err := Apply(as, desc, models.DeltaSpec{
		Table: desc.Name, Kind: models.DeltaAbsolute, Value: 0x40,
	}, "t")
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	// every cell except the first changes from 0x00 to 0x40
	if len(records) != desc.Length-1 {
		t.Errorf("got %d records, want %d", len(records), desc.Length-1)
	}
	for i := 0; i < desc.Length; i++ {
		b, _ := as.ReadByte(desc.Offset + i)
		if b != 0x40 {
			t.Fatalf("cell %d = 0x%02X, want 0x40", i, b)
		}
	}

	if _, err := Apply(as, desc, models.DeltaSpec{
		Table: desc.Name, Kind: models.DeltaAbsolute, Value: 300,
	}, "t"); !errors.Is(err, image.ErrValueOverflow) {
		t.Errorf("absolute 300: expected ErrValueOverflow, got %v", err)
	}
}

func TestApplyScalarWritesMirroredCells(t *testing.T) {
	as := blankImage(t)
	cat := models.Default()
	desc, err := cat.Lookup(models.TableRevEngage)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}

	records, err := ApplyScalar(as, desc, 6800, "Stage 2")
	if err != nil {
		t.Fatalf("ApplyScalar failed: %v", err)
	}
	if len(records) != 4 {
		t.Errorf("got %d records, want 4 (two mirrored u16 cells)", len(records))
	}
	for _, addr := range []int{desc.Offset, desc.Offset + 2} {
		v, _ := as.ReadU16BE(addr)
		if v != 6800 {
			t.Errorf("cell at 0x%06X = %d, want 6800", addr, v)
		}
	}

	// re-writing the same value records nothing
	records, err = ApplyScalar(as, desc, 6800, "Stage 2")
	if err != nil {
		t.Fatalf("ApplyScalar failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("unchanged scalar recorded %d records", len(records))
	}
}

func TestApplyScalarClamps(t *testing.T) {
	as := blankImage(t)
	desc, err := models.Default().Lookup(models.TableRevEngage)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}

	if _, err := ApplyScalar(as, desc, 70000, "t"); err != nil {
		t.Fatalf("ApplyScalar failed: %v", err)
	}
	v, _ := as.ReadU16BE(desc.Offset)
	if v != 0xFFFF {
		t.Errorf("70000 stored as %d, want saturation at 65535", v)
	}
}

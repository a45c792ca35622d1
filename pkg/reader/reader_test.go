package reader

import (
	"errors"
	"testing"

	"github.com/zewy9910-ux/Z22SE-Tuner/pkg/image"
	"github.com/zewy9910-ux/Z22SE-Tuner/pkg/models"
)

// testImage builds a 512 KB image with the identity fields planted at their
// catalog offsets.
func testImage(t *testing.T) *image.AddressSpace {
	t.Helper()
	data := make([]byte, image.Size)

	copy(data[0x00800C:], "12591333")
	copy(data[0x00602C:], "W0L0TGF675123456\x00")
	data[0x008141] = 0x33
	data[0x008142] = 0x05
	// engage 6500, mirrored
	data[0x00B568], data[0x00B569] = 0x19, 0x64
	data[0x00B56A], data[0x00B56B] = 0x19, 0x64
	// hysteresis 6494
	for _, off := range []int{0x00B570, 0x00B572, 0x00B574, 0x00B576} {
		data[off], data[off+1] = 0x19, 0x5E
	}

	as, err := image.Load(data)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return as
}

func TestDecodePIN(t *testing.T) {
	cases := []struct {
		b0, b1 byte
		want   string
		bad    bool
	}{
		{0x33, 0x05, "3305", false},
		{0x00, 0x00, "0000", false},
		{0x99, 0x99, "9999", false},
		{0xA3, 0x05, "", true},
		{0x33, 0x0A, "", true},
		{0xFF, 0xFF, "", true},
	}
	for _, c := range cases {
		got, err := DecodePIN(c.b0, c.b1)
		if c.bad {
			if !errors.Is(err, ErrInvalidBCD) {
				t.Errorf("DecodePIN(0x%02X, 0x%02X): expected ErrInvalidBCD, got %v", c.b0, c.b1, err)
			}
			continue
		}
		if err != nil || got != c.want {
			t.Errorf("DecodePIN(0x%02X, 0x%02X) = (%q, %v), want %q", c.b0, c.b1, got, err, c.want)
		}
	}
}

func TestIdentify(t *testing.T) {
	as := testImage(t)
	id, err := Identify(as, models.Default())
	if err != nil {
		t.Fatalf("Identify failed: %v", err)
	}

	if id.PartNumber != "12591333" {
		t.Errorf("part number %q, want 12591333", id.PartNumber)
	}
	if id.CalibrationID != "W0L0TGF675123456" {
		t.Errorf("calibration id %q", id.CalibrationID)
	}
	if id.PIN != "3305" {
		t.Errorf("pin %q, want 3305", id.PIN)
	}
	if id.RevLimitEngage != 6500 {
		t.Errorf("engage %d, want 6500", id.RevLimitEngage)
	}
	if id.RevLimitHysteresis != 6494 {
		t.Errorf("hysteresis %d, want 6494", id.RevLimitHysteresis)
	}
}

func TestIdentifyTrimsPadding(t *testing.T) {
	as := testImage(t)
	// part number padded with 0xFF instead of 0x00
	for i, b := range []byte{'1', '2', '5', '9', 0xFF, 0xFF, 0xFF, 0xFF} {
		if err := as.WriteByte(0x00800C+i, int(b)); err != nil {
			t.Fatalf("WriteByte failed: %v", err)
		}
	}

	id, err := Identify(as, models.Default())
	if err != nil {
		t.Fatalf("Identify failed: %v", err)
	}
	if id.PartNumber != "1259" {
		t.Errorf("part number %q, want 1259 (padding trimmed)", id.PartNumber)
	}
}

func TestIdentifyBadPINIsPartialDegrade(t *testing.T) {
	as := testImage(t)
	if err := as.WriteByte(0x008141, 0xAA); err != nil {
		t.Fatalf("WriteByte failed: %v", err)
	}

	id, err := Identify(as, models.Default())
	if !errors.Is(err, ErrInvalidBCD) {
		t.Fatalf("expected ErrInvalidBCD, got %v", err)
	}
	if id.PIN != "" {
		t.Errorf("pin %q, want empty on invalid BCD", id.PIN)
	}
	// the other fields survive
	if id.PartNumber != "12591333" || id.RevLimitEngage != 6500 {
		t.Errorf("partial identity lost fields: %+v", id)
	}
}

func TestIdentifyIsReadOnly(t *testing.T) {
	as := testImage(t)
	before := as.Snapshot()
	if _, err := Identify(as, models.Default()); err != nil {
		t.Fatalf("Identify failed: %v", err)
	}
	after := as.Bytes()
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("Identify mutated the image at 0x%06X", i)
		}
	}
}

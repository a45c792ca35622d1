package models

import "testing"

func TestProfileByName(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"stage1", "Stage 1", true},
		{"Stage 1", "Stage 1", true},
		{"stage1+", "Stage 1+", true},
		{"stage1plus", "Stage 1+", true},
		{"STAGE2", "Stage 2", true},
		{"pop&bang", "Pop & Bang", true},
		{"popbang", "Pop & Bang", true},
		{"burble", "Burble", true},
		{"stage3", "", false},
	}
	for _, c := range cases {
		p, ok := ProfileByName(c.in)
		if ok != c.ok || (ok && p.Name != c.want) {
			t.Errorf("ProfileByName(%q) = (%q, %t), want (%q, %t)", c.in, p.Name, ok, c.want, c.ok)
		}
	}
}

func TestLambdaPairGetsOneSpecPerCopy(t *testing.T) {
	for _, p := range []TuningProfile{Stage1, Stage1Plus, Stage2} {
		counts := map[string]int{}
		for _, spec := range p.Deltas {
			counts[spec.Table]++
		}
		if counts[TableLambdaPrimary] != 1 || counts[TableLambdaBackup] != 1 {
			t.Errorf("%s lambda specs: primary=%d backup=%d, want one each",
				p.Name, counts[TableLambdaPrimary], counts[TableLambdaBackup])
		}
	}
}

func TestZoneBoundariesCoverTables(t *testing.T) {
	if IgnWOTStart != 0 || IgnOverEnd != 163 {
		t.Errorf("ignition zones span [%d, %d), want [0, 163)", IgnWOTStart, IgnOverEnd)
	}
	if IgnWOTEnd >= IgnPLEnd || IgnPLEnd >= IgnOverEnd {
		t.Error("ignition zone boundaries out of order")
	}
	if FuelWOTStart != 0 || FuelOverEnd != 115 {
		t.Errorf("fuel zones span [%d, %d), want [0, 115)", FuelWOTStart, FuelOverEnd)
	}
}

func TestOverrunProfilesLeaveWOTAlone(t *testing.T) {
	for _, p := range []TuningProfile{PopBang, Burble} {
		for _, spec := range p.Deltas {
			for _, z := range spec.Zones {
				if z.End <= IgnWOTEnd && z.Delta != 0 {
					t.Errorf("%s touches WOT zone of %s with delta %d", p.Name, spec.Table, z.Delta)
				}
			}
		}
	}
}

func TestCompose(t *testing.T) {
	combo := Compose("Stage 1 + Pop & Bang", Stage1, PopBang)
	if len(combo.Deltas) != len(Stage1.Deltas)+len(PopBang.Deltas) {
		t.Errorf("composed profile has %d deltas, want %d",
			len(combo.Deltas), len(Stage1.Deltas)+len(PopBang.Deltas))
	}
	// declaration order: Stage 1 specs first
	if combo.Deltas[0].Table != Stage1.Deltas[0].Table {
		t.Error("composed profile reordered delta specs")
	}
	if len(combo.Scalars) != 0 {
		t.Errorf("composed profile invented %d scalar overrides", len(combo.Scalars))
	}
}

func TestRevLimitProfile(t *testing.T) {
	p := RevLimitProfile(6800)
	if len(p.Scalars) != 2 {
		t.Fatalf("rev-limit profile has %d scalars, want 2", len(p.Scalars))
	}
	if p.Scalars[0].Table != TableRevEngage || p.Scalars[0].Value != 6800 {
		t.Errorf("engage override = %+v", p.Scalars[0])
	}
	if p.Scalars[1].Table != TableRevHysteresis || p.Scalars[1].Value != 6794 {
		t.Errorf("hysteresis override = %+v, want 6794", p.Scalars[1])
	}
}

func TestStage2SetsRevLimit(t *testing.T) {
	if len(Stage2.Scalars) != 2 {
		t.Fatalf("Stage 2 has %d scalar overrides, want 2", len(Stage2.Scalars))
	}
	if Stage2.Scalars[0].Value != 6800 {
		t.Errorf("Stage 2 engage RPM = %d, want 6800", Stage2.Scalars[0].Value)
	}
}

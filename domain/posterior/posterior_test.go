package posterior

import "testing"

func TestNewDrawSet_Validation(t *testing.T) {
	if _, err := NewDrawSet(nil, nil, nil, nil); err == nil {
		t.Error("empty draw set should be rejected")
	}
	if _, err := NewDrawSet([]float64{1, 2}, []float64{1}, []float64{1, 2}, nil); err == nil {
		t.Error("misaligned columns should be rejected")
	}
	if _, err := NewDrawSet([]float64{1, 2}, []float64{1, 2}, []float64{1, 2}, [][]float64{{0}}); err == nil {
		t.Error("offsets row count mismatch should be rejected")
	}
}

func TestDrawSet_Immutability(t *testing.T) {
	alpha := []float64{1, 2}
	offsets := [][]float64{{0.1, 0.2}, {0.3, 0.4}}
	ds, err := NewDrawSet(alpha, []float64{0, 0}, []float64{0.5, 0.5}, offsets)
	if err != nil {
		t.Fatalf("NewDrawSet: %v", err)
	}
	alpha[0] = 99
	offsets[0][0] = 99
	if ds.Draw(0).Alpha != 1 {
		t.Error("draw set should copy parameter columns")
	}
	if ds.Draw(0).Offsets[0] != 0.1 {
		t.Error("draw set should copy offset rows")
	}
	if !ds.HasOffsets() {
		t.Error("HasOffsets should report retained offsets")
	}
}

func TestDrawSet_NoOffsets(t *testing.T) {
	ds, err := NewDrawSet([]float64{1}, []float64{2}, []float64{0}, nil)
	if err != nil {
		t.Fatalf("NewDrawSet: %v", err)
	}
	if ds.HasOffsets() {
		t.Error("HasOffsets should be false without offsets")
	}
	if ds.Draw(0).Offsets != nil {
		t.Error("draw should carry nil offsets")
	}
}

func TestDiagnostics_Converged(t *testing.T) {
	good := Diagnostics{
		Divergences: 0,
		AcceptAlpha: 0.4, AcceptBeta: 0.4, AcceptSigma: 0.4,
		MinESS: 200,
	}
	if !good.Converged() {
		t.Error("healthy diagnostics should converge")
	}

	cases := []struct {
		name string
		d    Diagnostics
	}{
		{"divergences", Diagnostics{Divergences: 1, AcceptAlpha: 0.4, AcceptBeta: 0.4, AcceptSigma: 0.4, MinESS: 200}},
		{"low ess", Diagnostics{AcceptAlpha: 0.4, AcceptBeta: 0.4, AcceptSigma: 0.4, MinESS: 10}},
		{"stuck chain", Diagnostics{AcceptAlpha: 0.01, AcceptBeta: 0.4, AcceptSigma: 0.4, MinESS: 200}},
		{"always accepting", Diagnostics{AcceptAlpha: 0.4, AcceptBeta: 0.95, AcceptSigma: 0.4, MinESS: 200}},
	}
	for _, tc := range cases {
		if tc.d.Converged() {
			t.Errorf("%s: diagnostics should not converge: %+v", tc.name, tc.d)
		}
	}
}

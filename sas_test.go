/*
Copyright © 2017 the SAS authors.
This file is part of SAS.

SAS is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

SAS is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with SAS.  If not, see <http://www.gnu.org/licenses/>.
*/

package sas

import (
	"errors"
	"math"
	"testing"

	"github.com/ctessum/sparse"
	"github.com/sirupsen/logrus/hooks/test"
)

var defaultSASCoeffs = SASCoeffs{Cs: 0.262, Kappa: 0.41, Zeta2: 1.47, SigmaPhi: 2.0 / 3.0, C: 2, BetaStar: 0.09}

func TestSASSourceZeroStrain(t *testing.T) {
	for _, c := range []SASCell{
		{K: 1, Omega: 1, Beta: 0.075, Gamma: 5.0 / 9.0, Delta: 0.1},
		{K: 1.0e-3, Omega: 100, MagLapU: 10, MagSqrGradK: 1, MagSqrGradOmega: 1.0e4,
			Beta: 0.0828, Gamma: 0.44, Delta: 0.01},
		{K: kMin, Omega: omegaMin, MagSqrGradK: 1, Beta: 0.08, Gamma: 0.5, Delta: 1},
	} {
		q, _ := SASSource(c, defaultSASCoeffs)
		if q != 0 {
			t.Errorf("%+v: Qsas = %g, want 0", c, q)
		}
	}
}

func TestSASSourceProduction(t *testing.T) {
	c := SASCell{K: 1, Omega: 1, S2: 4, MagLapU: 1, Beta: 0.075, Gamma: 5.0 / 9.0, Delta: 0.01}
	q, lvk := SASSource(c, defaultSASCoeffs)
	if different(lvk, 0.82, 1.0e-12) {
		t.Errorf("Lvk = %g, want 0.82", lvk)
	}
	l := 1 / math.Pow(0.09, 0.25)
	want := 1.47 * 0.41 * 4 * (l / 0.82) * (l / 0.82)
	if different(q, want, 1.0e-12) {
		t.Errorf("Qsas = %g, want %g", q, want)
	}

	// The lower limit of Lvk applies for large second derivatives.
	c.MagLapU = 1.0e6
	_, lvk = SASSource(c, defaultSASCoeffs)
	wantLvk := 0.262 * math.Sqrt(0.41*1.47/(0.075/0.09-5.0/9.0)) * 0.01
	if different(lvk, wantLvk, 1.0e-12) {
		t.Errorf("limited Lvk = %g, want %g", lvk, wantLvk)
	}

	// Destruction larger than production is clipped.
	c.MagLapU = 1
	c.MagSqrGradOmega = 1.0e3
	if q, _ := SASSource(c, defaultSASCoeffs); q != 0 {
		t.Errorf("destruction dominated Qsas = %g, want 0", q)
	}
}

func TestSASSourceNonNegative(t *testing.T) {
	vals := []float64{0, kMin, 1.0e-6, 1.0e-2, 1, 1.0e3}
	for _, k := range vals {
		for _, omega := range vals[1:] {
			for _, s2 := range vals {
				for _, grad := range vals {
					q, lvk := SASSource(SASCell{
						K: k, Omega: omega, S2: s2, MagLapU: grad,
						MagSqrGradK: grad, MagSqrGradOmega: grad * 10,
						Beta: 0.08, Gamma: 0.5, Delta: 0.01,
					}, defaultSASCoeffs)
					if !(q >= 0) || math.IsInf(q, 0) {
						t.Errorf("k=%g omega=%g s2=%g grad=%g: Qsas = %g", k, omega, s2, grad, q)
					}
					if math.IsNaN(lvk) {
						t.Errorf("k=%g omega=%g s2=%g grad=%g: Lvk is NaN", k, omega, s2, grad)
					}
				}
			}
		}
	}
}

// captureSource wraps the omega source of m so that the state it is
// called with is saved.
func captureSource(m *KOmegaSSTSAS) *SourceState {
	captured := new(SourceState)
	orig := m.base.omegaSource
	m.base.omegaSource = func(s *SourceState) *sparse.DenseArray {
		*captured = *s
		captured.K = s.K.Copy()
		captured.Omega = s.Omega.Copy()
		return orig(s)
	}
	return captured
}

// expectedQsas recalculates the SAS source from a captured state.
func expectedQsas(m *KOmegaSSTSAS, s *SourceState, p SASCoeffs) []float64 {
	lapU := LaplacianVector(s.U)
	o := make([]float64, len(s.K.Elements))
	for row := range o {
		o[row], _ = SASSource(SASCell{
			K:               s.K.Elements[row],
			Omega:           s.Omega.Elements[row],
			S2:              s.S2.Elements[row],
			MagLapU:         math.Sqrt(lapU.At(row).MagSqr()),
			MagSqrGradK:     s.GradK.At(row).MagSqr(),
			MagSqrGradOmega: s.GradOmega.At(row).MagSqr(),
			Beta:            s.Beta.Elements[row],
			Gamma:           s.Gamma.Elements[row],
			Delta:           m.Delta().At(row),
		}, p)
	}
	return o
}

func TestSASUniformFlow(t *testing.T) {
	m, err := NewMesh(MeshConfig{Nx: 3, Ny: 3, Nz: 3, Dx: []float64{0.1}, Dy: []float64{0.2}, Dz: []float64{0.1},
		Periodic: [3]bool{true, true, true}})
	if err != nil {
		t.Fatal(err)
	}
	u := NewVectorField(m)
	for i := range u.X.Elements {
		u.X.Elements[i] = 1
		u.Y.Elements[i] = 0.5
	}
	model := newTestModel(t, KOmegaSSTSASName, u, FluxFromVelocity(u), nil).(*KOmegaSSTSAS)
	s := captureSource(model)
	model.Correct()
	for i := 0; i < m.NCells(); i++ {
		if s.S2.Elements[i] != 0 {
			t.Errorf("cell %d: S2 = %g", i, s.S2.Elements[i])
		}
		if q := model.Qsas().At(i); q != 0 {
			t.Errorf("cell %d: Qsas = %g", i, q)
		}
	}
}

func TestSASNegligibleSecondDerivative(t *testing.T) {
	m, err := NewMesh(MeshConfig{Nx: 1, Ny: 10, Nz: 1, Dx: []float64{1}, Dy: []float64{0.1}, Dz: []float64{1},
		Periodic: [3]bool{true, false, true}})
	if err != nil {
		t.Fatal(err)
	}
	_, y, _ := m.Centers()
	u := NewVectorField(m)
	for j, yy := range y {
		u.X.Elements[j] = 3 * yy
	}
	model := newTestModel(t, KOmegaSSTSASName, u, FluxFromVelocity(u), nil).(*KOmegaSSTSAS)
	model.Correct()
	for j := 1; j < m.Ny-1; j++ {
		if lvk := model.Lvk().At(j); lvk < 1.0e6 {
			t.Errorf("cell %d: Lvk = %g, should be large", j, lvk)
		}
		if q := model.Qsas().At(j); q > 1.0e-12 {
			t.Errorf("cell %d: Qsas = %g, want approximately 0", j, q)
		}
	}
}

func TestSASZeta2Reload(t *testing.T) {
	_, u, phi := channel(t, 4, 8, 2, 0.2)
	src := NewStaticDict(nil)
	logger, hook := test.NewNullLogger()
	model := newTestModel(t, KOmegaSSTSASName, u, phi, src, WithLogger(logger)).(*KOmegaSSTSAS)
	if changed, err := model.Read(); err != nil || changed {
		t.Fatalf("read before change: %v, %v", changed, err)
	}

	src.Set(2.0, "kOmegaSSTSASCoeffs", "zeta2")
	if changed, err := model.Read(); err != nil || !changed {
		t.Fatalf("read after change: %v, %v", changed, err)
	}
	e := hook.LastEntry()
	if e == nil || e.Message != "coefficient changed" || e.Data["name"] != "zeta2" ||
		e.Data["old"] != 1.47 || e.Data["new"] != 2.0 {
		t.Errorf("log entry: %+v", e)
	}
	if changed, err := model.Read(); err != nil || changed {
		t.Errorf("second read: %v, %v", changed, err)
	}
	if z := model.SASCoefficients().Value("zeta2"); z != 2.0 {
		t.Errorf("zeta2 = %g", z)
	}

	s := captureSource(model)
	model.Correct()
	p := defaultSASCoeffs
	p.Zeta2 = 2.0
	want := expectedQsas(model, s, p)
	for i, w := range want {
		if have := model.Qsas().At(i); have != w {
			t.Errorf("cell %d: Qsas = %g, want %g", i, have, w)
		}
	}
	if model.Qsas().Max() <= 0 {
		t.Error("channel flow should have some SAS production")
	}
}

func TestSASReadInvalidKeepsCoefficients(t *testing.T) {
	_, u, phi := channel(t, 2, 4, 1, 0)
	src := NewStaticDict(nil)
	model := newTestModel(t, KOmegaSSTSASName, u, phi, src).(*KOmegaSSTSAS)
	const group = "kOmegaSSTSASCoeffs"

	src.Set(0.07, group, "beta1")
	src.Set(true, group, "zeta2")
	if _, err := model.Read(); err == nil {
		t.Fatal("boolean zeta2 should cause an error")
	}
	if b := model.Base().Coefficients().Value("beta1"); b != 0.075 {
		t.Errorf("beta1 changed to %g by a failed read", b)
	}

	src.Set(2.0, group, "zeta2")
	src.Set(true, group, "cubeRootVolCoeffs", "deltaCoeff")
	if _, err := model.Read(); err == nil {
		t.Fatal("boolean deltaCoeff should cause an error")
	}
	if b := model.Base().Coefficients().Value("beta1"); b != 0.075 {
		t.Errorf("beta1 changed to %g by a failed delta read", b)
	}
	if z := model.SASCoefficients().Value("zeta2"); z != 1.47 {
		t.Errorf("zeta2 changed to %g by a failed delta read", z)
	}

	src.Delete(group, "cubeRootVolCoeffs")
	if changed, err := model.Read(); err != nil || !changed {
		t.Fatalf("read after fix: %v, %v", changed, err)
	}
	if b := model.Base().Coefficients().Value("beta1"); b != 0.07 {
		t.Errorf("beta1 = %g", b)
	}
	if changed, err := model.Read(); err != nil || changed {
		t.Errorf("second read: %v, %v", changed, err)
	}
}

func TestSASReadNaN(t *testing.T) {
	_, u, phi := channel(t, 2, 4, 1, 0)
	src := NewStaticDict(nil)
	model := newTestModel(t, KOmegaSSTSASName, u, phi, src).(*KOmegaSSTSAS)
	src.Set(math.NaN(), "kOmegaSSTSASCoeffs", "zeta2")
	for i := 0; i < 3; i++ {
		changed, err := model.Read()
		var cErr *ConfigurationError
		if changed || !errors.As(err, &cErr) || cErr.Key != "zeta2" {
			t.Errorf("read %d: %v, %v", i, changed, err)
		}
	}
}

func TestSASReadDelta(t *testing.T) {
	_, u, phi := channel(t, 2, 4, 1, 0)
	src := NewStaticDict(Dict{"kOmegaSSTSASCoeffs": Dict{"delta": "maxDeltaxyz"}})
	model := newTestModel(t, KOmegaSSTSASName, u, phi, src).(*KOmegaSSTSAS)
	if model.DeltaName() != MaxDeltaxyzDelta {
		t.Errorf("delta: %s", model.DeltaName())
	}
	d0 := model.Delta().Max()
	src.Set(1.0, "kOmegaSSTSASCoeffs", "maxDeltaxyzCoeffs", "deltaCoeff")
	if changed, err := model.Read(); err != nil || !changed {
		t.Fatalf("read: %v, %v", changed, err)
	}
	if d := model.Delta().Max(); different(d, d0/2, 1.0e-12) {
		t.Errorf("delta = %g, want %g", d, d0/2)
	}
}

func TestSASUnknownDelta(t *testing.T) {
	_, u, phi := channel(t, 2, 4, 1, 0)
	src := NewStaticDict(Dict{"kOmegaSSTSASCoeffs": Dict{"delta": "smooth"}})
	logger, _ := test.NewNullLogger()
	model, err := New(KOmegaSSTSASName, nil, nil, u, nil, phi, NewNewtonian(testNu), src, WithLogger(logger))
	var cErr *ConfigurationError
	if !errors.As(err, &cErr) {
		t.Fatalf("want ConfigurationError, have %v", err)
	}
	if model != nil {
		t.Error("model should not be created")
	}

	// The base model does not use a delta strategy.
	if _, err := New(KOmegaSSTName, nil, nil, u, nil, phi, NewNewtonian(testNu), src, WithLogger(logger)); err != nil {
		t.Error(err)
	}
}

func TestSASCustomDelta(t *testing.T) {
	_, u, phi := channel(t, 2, 4, 1, 0)
	src := NewStaticDict(Dict{"kOmegaSSTSASCoeffs": Dict{"delta": "constant", "constantCoeffs": Dict{"value": 0.5}}})
	model := newTestModel(t, KOmegaSSTSASName, u, phi, src,
		WithDeltaStrategy("constant", func(m *Mesh, d Dict) (DeltaStrategy, error) {
			c := &constantDelta{m: m}
			_, err := c.Read(d)
			return c, err
		})).(*KOmegaSSTSAS)
	if d := model.Delta().Min(); d != 0.5 {
		t.Errorf("delta = %g, want 0.5", d)
	}
}

func TestQsasLimit(t *testing.T) {
	_, u, phi := channel(t, 4, 8, 2, 0.2)
	const limit = 1.0e-3
	src := NewStaticDict(Dict{"kOmegaSSTSASCoeffs": Dict{"QsasLimit": limit}})
	c := DefaultControls()
	c.DeltaT = 0.5
	model := newTestModel(t, KOmegaSSTSASName, u, phi, src, WithControls(c)).(*KOmegaSSTSAS)
	s := captureSource(model)
	model.Correct()
	unlimited := expectedQsas(model, s, defaultSASCoeffs)
	for i, q := range unlimited {
		want := math.Min(q, limit*s.Omega.Elements[i]/c.DeltaT)
		if have := model.Qsas().At(i); different(have, want, 1.0e-12) {
			t.Errorf("cell %d: Qsas = %g, want %g", i, have, want)
		}
	}
}

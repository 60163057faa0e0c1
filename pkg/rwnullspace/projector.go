package rwnullspace

import (
	"errors"
	"fmt"
	"math"

	"github.com/adcs-fsw/rwnullspace/pkg/effector"
	"gonum.org/v1/gonum/mat"
)

// ErrDegenerateGeometry means the wheel axes do not span body space, so G·Gᵗ
// cannot be inverted. It is a configuration error and must stop start-up.
var ErrDegenerateGeometry = errors.New("degenerate reaction wheel geometry")

// MaxGramCondition bounds the 2-norm condition number of G·Gᵗ.
const MaxGramCondition = 1e10

// Projector is the null-space projector P = I − Gᵗ(G·Gᵗ)⁻¹G of a wheel
// geometry. For any v, G·P·v ≈ 0. It is read-only once computed.
type Projector struct {
	k        int
	p        *mat.Dense // k x k
	ginv     *mat.Dense // 3 x k, (G·Gᵗ)⁻¹G
	cond     float64
	residual float64
}

// ComputeProjector derives the projector for cfg. It fails with
// ErrDegenerateGeometry when fewer than three independent axes are present.
func ComputeProjector(cfg Config) (*Projector, error) {
	k := cfg.NumWheels()
	if k < 3 {
		return nil, fmt.Errorf("%w: %d wheel(s) cannot span three body axes", ErrDegenerateGeometry, k)
	}

	g := cfg.GsMatrix()

	var gram mat.Dense
	gram.Mul(g, g.T())

	cond := mat.Cond(&gram, 2)
	if math.IsNaN(cond) || cond > MaxGramCondition {
		return nil, fmt.Errorf("%w: condition number of G*Gt is %.3g (limit %.3g)",
			ErrDegenerateGeometry, cond, MaxGramCondition)
	}

	var gramInv mat.Dense
	if err := gramInv.Inverse(&gram); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDegenerateGeometry, err)
	}

	ginv := mat.NewDense(3, k, nil)
	ginv.Mul(&gramInv, g)

	var temp mat.Dense
	temp.Mul(g.T(), ginv)

	ones := make([]float64, k)
	for i := range ones {
		ones[i] = 1
	}
	p := mat.NewDense(k, k, nil)
	p.Sub(mat.NewDiagDense(k, ones), &temp)

	var gp mat.Dense
	gp.Mul(g, p)

	return &Projector{
		k:        k,
		p:        p,
		ginv:     ginv,
		cond:     cond,
		residual: maxAbs(&gp),
	}, nil
}

// NumWheels returns the projector dimension.
func (p *Projector) NumWheels() int { return p.k }

// At returns entry (i, j) of P.
func (p *Projector) At(i, j int) float64 { return p.p.At(i, j) }

// Matrix returns a copy of P.
func (p *Projector) Matrix() *mat.Dense { return mat.DenseCopyOf(p.p) }

// PseudoInverse returns a copy of the 3 x k term (G·Gᵗ)⁻¹G.
func (p *Projector) PseudoInverse() *mat.Dense { return mat.DenseCopyOf(p.ginv) }

// GramCondition returns the 2-norm condition number of G·Gᵗ.
func (p *Projector) GramCondition() float64 { return p.cond }

// Residual returns max |(G·P)ij|, the torque leakage of the projector.
func (p *Projector) Residual() float64 { return p.residual }

// Apply returns P·v. Entries of v past its length are treated as zero.
func (p *Projector) Apply(v effector.Vector) effector.Vector {
	// k never exceeds MaxEffCount, so Resize cannot fail
	v, _ = v.Resize(p.k)
	in := mat.NewVecDense(p.k, v.Slice())

	var out mat.VecDense
	out.MulVec(p.p, in)

	res, _ := effector.NewVector(p.k)
	for i := 0; i < p.k; i++ {
		res.SetAt(i, out.AtVec(i))
	}
	return res
}

// Correct applies the momentum-dumping law for one cycle:
//
//	final = raw + P·(−gain·speeds)
//
// Only the first NumWheels entries are used; the result has NumWheels entries.
func Correct(p *Projector, gain float64, raw, speeds effector.Vector) effector.Vector {
	seed, _ := speeds.Resize(p.k)
	for i := 0; i < p.k; i++ {
		seed.SetAt(i, -gain*seed.At(i))
	}

	raw, _ = raw.Resize(p.k)
	final := p.Apply(seed)
	for i := 0; i < p.k; i++ {
		final.SetAt(i, final.At(i)+raw.At(i))
	}
	return final
}

func maxAbs(m mat.Matrix) float64 {
	r, c := m.Dims()
	var largest float64
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if a := math.Abs(m.At(i, j)); a > largest {
				largest = a
			}
		}
	}
	return largest
}

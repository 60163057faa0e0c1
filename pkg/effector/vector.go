// Package effector holds the fixed-capacity per-wheel containers and the
// message records exchanged between attitude-control modules.
package effector

import (
	"errors"
	"fmt"
)

// MaxEffCount is the build-time bound on the number of effectors a vehicle carries.
const MaxEffCount = 36

// ErrCapacity is returned when a vector would exceed MaxEffCount entries.
var ErrCapacity = errors.New("effector count exceeds capacity")

// Vector is a bounds-checked fixed-capacity vector of per-effector values.
// Entries past Len are always zero.
type Vector struct {
	values [MaxEffCount]float64
	n      int
}

// NewVector returns a zeroed vector with n active entries.
func NewVector(n int) (Vector, error) {
	if n < 0 || n > MaxEffCount {
		return Vector{}, fmt.Errorf("%w: %d (max %d)", ErrCapacity, n, MaxEffCount)
	}
	return Vector{n: n}, nil
}

// VectorFrom copies vals into a new vector.
func VectorFrom(vals []float64) (Vector, error) {
	v, err := NewVector(len(vals))
	if err != nil {
		return Vector{}, err
	}
	copy(v.values[:], vals)
	return v, nil
}

// MustVector is VectorFrom that panics on overflow. Intended for literals.
func MustVector(vals ...float64) Vector {
	v, err := VectorFrom(vals)
	if err != nil {
		panic(err)
	}
	return v
}

// Len returns the number of active entries.
func (v Vector) Len() int { return v.n }

// At returns entry i. It panics if i is outside [0, Len).
func (v Vector) At(i int) float64 {
	v.check(i)
	return v.values[i]
}

// SetAt sets entry i. It panics if i is outside [0, Len).
func (v *Vector) SetAt(i int, x float64) {
	v.check(i)
	v.values[i] = x
}

// Slice returns a copy of the active entries.
func (v Vector) Slice() []float64 {
	out := make([]float64, v.n)
	copy(out, v.values[:v.n])
	return out
}

// Padded returns the full zero-padded record.
func (v Vector) Padded() [MaxEffCount]float64 { return v.values }

// Resize returns a copy with n active entries. New entries are zero and
// entries past n are dropped.
func (v Vector) Resize(n int) (Vector, error) {
	out, err := NewVector(n)
	if err != nil {
		return Vector{}, err
	}
	m := n
	if v.n < m {
		m = v.n
	}
	copy(out.values[:m], v.values[:m])
	return out, nil
}

func (v Vector) check(i int) {
	if i < 0 || i >= v.n {
		panic(fmt.Sprintf("effector: index %d out of range [0,%d)", i, v.n))
	}
}

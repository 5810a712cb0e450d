// Package timebase provides the rational time arithmetic used throughout the
// conversion pipeline for packet/frame timestamps and the output clock.
package timebase

import "fmt"

// Rational represents a point or duration in time as Num/Den seconds.
// Den is always > 0; Rational values are compared and combined without
// floating point to avoid cross-track drift.
type Rational struct {
	Num int64
	Den int64
}

// New returns the Rational num/den as given; it is not reduced. Den must be positive.
func New(num, den int64) Rational {
	if den <= 0 {
		panic(fmt.Sprintf("timebase: non-positive denominator %d", den))
	}
	return Rational{Num: num, Den: den}
}

// Zero is the additive identity at an arbitrary (1/1) time base.
var Zero = Rational{Num: 0, Den: 1}

// Seconds returns the floating point seconds value. Used only for logging,
// user-facing progress, and test assertions — never for pipeline math.
func (r Rational) Seconds() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

// Rescale converts r to the given denominator, rounding to the nearest tick.
func (r Rational) Rescale(den int64) Rational {
	if den <= 0 {
		panic(fmt.Sprintf("timebase: non-positive denominator %d", den))
	}
	if r.Den == den {
		return r
	}
	num := r.Num * den
	// Round to nearest, ties away from zero.
	half := r.Den / 2
	if num >= 0 {
		num += half
	} else {
		num -= half
	}
	return Rational{Num: num / r.Den, Den: den}
}

// Add returns r+o, rescaling o to r's denominator first.
func (r Rational) Add(o Rational) Rational {
	o = o.Rescale(r.Den)
	return Rational{Num: r.Num + o.Num, Den: r.Den}
}

// Sub returns r-o, rescaling o to r's denominator first.
func (r Rational) Sub(o Rational) Rational {
	o = o.Rescale(r.Den)
	return Rational{Num: r.Num - o.Num, Den: r.Den}
}

// Cmp returns -1, 0, or 1 as r is less than, equal to, or greater than o.
func (r Rational) Cmp(o Rational) int {
	// Cross-multiply; both denominators are positive so sign is preserved.
	lhs := r.Num * o.Den
	rhs := o.Num * r.Den
	switch {
	case lhs < rhs:
		return -1
	case lhs > rhs:
		return 1
	default:
		return 0
	}
}

// Less reports whether r < o.
func (r Rational) Less(o Rational) bool { return r.Cmp(o) < 0 }

// LessEqual reports whether r <= o.
func (r Rational) LessEqual(o Rational) bool { return r.Cmp(o) <= 0 }

// IsZero reports whether r represents zero seconds.
func (r Rational) IsZero() bool { return r.Num == 0 }

// Clamp0 returns r, or Zero rescaled to r's denominator if r is negative.
func (r Rational) Clamp0() Rational {
	if r.Num < 0 {
		return Rational{Num: 0, Den: r.Den}
	}
	return r
}

// String implements fmt.Stringer for logging.
func (r Rational) String() string {
	return fmt.Sprintf("%d/%d", r.Num, r.Den)
}

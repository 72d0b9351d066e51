// Package biquad provides the second-order IIR runtime used by the weighting
// filters and loudness meters.
//
// A [Section] runs Direct Form II Transposed on one set of [Coefficients];
// a [Chain] cascades sections behind an optional input gain. Both keep their
// memory private and flush denormals so that arbitrarily long silence keeps
// the state at exact zero.
package biquad

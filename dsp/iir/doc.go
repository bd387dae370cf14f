// Package iir provides a general recursive (IIR) filter defined by arbitrary
// feedforward and feedback coefficient lists.
//
// Coefficients are validated, zero-padded to a common length and normalized
// by the first feedback coefficient. Processing uses the transposed direct
// form with one state vector per channel.
package iir

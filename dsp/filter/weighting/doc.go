// Package weighting provides the frequency-weighting curves applied to a
// signal before its energy is measured.
//
// Supported curves:
//
//   - None: identity, the unweighted (Z) reference.
//   - A (6th order): IEC 61672 40-phon contour, the usual noise weighting.
//   - B (5th order): IEC 61672 70-phon contour.
//   - C (4th order): IEC 61672 100-phon contour.
//   - D (4th order): IEC 537 aircraft-noise curve with its +11.5 dB bump
//     near 3 kHz.
//   - K (4th order): ITU-R BS.1770-4 pre-filter (high shelf) followed by the
//     RLB high-pass, the curve used for LUFS/LKFS.
//
// A, B, C and D are normalized to 0 dB at 1 kHz. K is not normalized: its
// +0.69 dB at 1 kHz is compensated by the -0.691 LUFS calibration offset.
//
// [New] returns a bare [biquad.Chain]; [Bank] holds one chain per channel and
// resets every chain's memory whenever the curve changes.
package weighting

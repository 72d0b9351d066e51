// Package autogain implements a loudness-based automatic gain control.
//
// The main input is measured over a short and a long period with a
// selectable frequency weighting (none, A, B, C, D or the BS.1770 K curve).
// A dual-timescale controller derives a rate-limited gain that moves the
// signal toward a target loudness, holds during silence and respects a gain
// ceiling and floor. The gain is applied to a lookahead-delayed copy of the
// input, so corrections can land before the transient that caused them.
//
// A sidechain can take over the measurement (Control) or provide a moving
// target (Match). Input, sidechain and output loudness are published after
// every block together with the gain, and optionally recorded in scrolling
// graphs.
//
// Parameters are immutable snapshots: SetParameters validates and publishes
// them atomically and Process picks up the latest one at block start.
package autogain

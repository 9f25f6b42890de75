// Package ir provides the data model shared by every overclock package.
//
// This package contains type definitions and pure helpers only. All other
// internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Item quantities are int64; the Unbounded sentinel is math.MaxInt64
//   - Products of quantities go through MulClamp, never raw multiplication
//   - Energy is float64 in the model but int64 milli-units in traces (no
//     floats in canonical JSON)
//   - All JSON tags use snake_case
//   - Step events are ordered by logical seq, never wall-clock timestamps
package ir

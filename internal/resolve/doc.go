// Package resolve computes how many repetitions of a recipe fit in one step.
//
// The answer follows the bucket effect: the resolved count is the minimum of
// the requested acceleration factor and three independent limits.
//
//	resolved = min(factor, materialLimit, outputLimit, energyLimit)
//
// Everything here is a pure function of its inputs. Resolving twice against
// an unmodified snapshot yields an identical plan. Limit checks never fail; they
// return 0 for malformed input.
package resolve

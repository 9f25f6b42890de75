// Package config holds the tunable ceilings of the engine.
//
// Configuration files are CUE. A file is unified with the embedded schema
// (schema.cue), which is closed and carries the range constraints, then
// applied on top of Default(). Fields a file does not set keep their
// defaults. Scenario files may also override fields with a plain map, which
// is decoded with mapstructure and checked against the same schema.
//
// Ceilings only clamp what the resolver computes; they never bypass it.
// Every getter clamps the raw field the same way the loader's schema does,
// so a Config built in code behaves like a loaded one.
package config

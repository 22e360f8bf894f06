// Package domain models surface observations and station forecast
// profiles for an SREF-style ensemble.
//
// # Observations
//
// Observations arrive as flat JSON on the source topic:
//
//	{"obtype":"temp","time":"2024-04-26T03:00:00Z","location":"klgb","value":18.3,"error":1.0}
//
// obtype names a state variable ("temp", "dewp", "uwnd", "vwnd", "psfc",
// "wspd", "precip", "cldfrac"). time must be RFC 3339 and is normalized to
// UTC. error is the observation error variance, in squared units of the
// variable.
//
// # Coordinate matching
//
// An observation addresses the ensemble state by (location, time, var).
// Locations are ICAO-style station identifiers and match
// case-insensitively: the observation's location is uppercased before
// lookup and state location labels are uppercase. Times match by instant.
// A triple the state does not contain is an error; the ensemble estimate
// is never defaulted.
//
// # Forward operator
//
// The forward operator is a selection: [Observation.H] is a state-length
// row vector with a single 1.0, and [Observation.HXb] reads the same
// element for every member directly. Both use one selection, so
// H · X equals HXb for any state.
//
// # Priors
//
// [AttachPrior] records the ensemble mean and sample variance (n-1) of
// HXb as the observation prior. Posterior fields are carried on the wire
// but never computed here.
//
// # ID Generation
//
// Observation IDs default to a SHA-256 hash of obtype|LOCATION|time|value,
// prefixed with the obtype. Replays of the same observation produce the
// same Kafka key.
package domain

// Package params implements named, domain-constrained parameters and the
// versioned Configurable container that owns them.
//
// A Parameter is a single named cell holding an integer, floating-point or
// enumeration value together with its admissible domain. The domain is an
// interval [lo, hi] whose sides are tagged LE (closed) or LT (open); every
// assignment is validated bit-exactly against both bounds. Enumeration
// parameters additionally carry their string↔value mapping and reject
// unknown strings.
//
// A Set is an ordered collection of parameters with unique names. Solvers,
// line-search strategies and benchmark functions each own a Set and expose
// their tunables through it.
//
// A Configurable couples a Set with the library version triple and supports
// a little-endian binary round-trip. Reading a stream whose major version
// is strictly greater than the library's fails with ErrVersionMismatch.
//
// Errors (sentinel):
//
//	– ErrInvalidValue       if an assignment falls outside the declared domain.
//	– ErrDuplicateParameter if a name is registered twice within one Set.
//	– ErrUnknownParameter   if a looked-up name is absent from the Set.
//	– ErrWrongKind          if a typed accessor does not match the parameter kind.
//	– ErrUnknownEnum        if an enumeration assignment names an unmapped string.
//	– ErrVersionMismatch    if a deserialized major version exceeds the library's.
//	– ErrCorruptStream      if the binary stream is truncated or malformed.
package params

// Package modname turns symbolic module identifiers into the pieces the
// resolution cascade builds candidate locations from. Everything here is pure:
// no I/O, no state, no failures beyond Validate.
package modname

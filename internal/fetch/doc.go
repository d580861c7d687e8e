// Package fetch holds the collaborators that retrieve module text for a
// root-relative location. A missing location is reported through the found
// result, never as an error; errors are reserved for transport failures.
package fetch

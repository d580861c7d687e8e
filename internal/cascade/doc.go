// Package cascade turns a module record into a loaded record by trying its
// candidate locations in order: the direct name, the package descriptor's
// main entry, and the package-prefixed fallback.
package cascade

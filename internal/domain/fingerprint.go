// Package domain holds the immutable value objects and entities that make
// up Chimera's data model: fingerprints, nodes, deployments, drift and
// congruence reports, playbooks, SLOs, policies, and domain events. Every
// type here is a value: transitions return a new instance rather than
// mutating the receiver.
package domain

import "github.com/chimera-systems/chimera/internal/errors"

// Fingerprint is an opaque, non-empty string identifying a built,
// content-addressed configuration artifact. Equality is string equality;
// the core never interprets its internal format.
type Fingerprint string

// NewFingerprint validates and constructs a Fingerprint.
func NewFingerprint(s string) (Fingerprint, error) {
	if s == "" {
		return "", errors.Validation("fingerprint.new", "fingerprint must not be empty")
	}
	return Fingerprint(s), nil
}

// String returns the underlying value.
func (f Fingerprint) String() string {
	return string(f)
}

// Empty reports whether the fingerprint carries no value, i.e. was never
// assigned (as opposed to an invalid one, which NewFingerprint rejects
// outright).
func (f Fingerprint) Empty() bool {
	return f == ""
}

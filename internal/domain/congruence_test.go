package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestCongruenceReportBiconditional is universal property 4 in spec §8:
// IsCongruent holds iff actual equals expected and actual is present.
func TestCongruenceReportBiconditional(t *testing.T) {
	n, _ := ParseNode("root@n1:22")

	congruent := FromActual(n, "fp-A", "fp-A", true)
	assert.True(t, congruent.IsCongruent)
	assert.Equal(t, Fingerprint("fp-A"), congruent.Actual)

	drifted := FromActual(n, "fp-A", "fp-B", true)
	assert.False(t, drifted.IsCongruent)

	unreachable := FromActual(n, "fp-A", "", false)
	assert.False(t, unreachable.IsCongruent)
	assert.False(t, unreachable.HasActual)
	assert.Equal(t, "unreachable", unreachable.Details)
}

package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePlaybook() Playbook {
	return NewPlaybook("pb-1", "restart-and-verify", "1.0", []Step{
		{
			ID:                "restart",
			Name:              "restart service",
			Action:            RestartServiceAction("chimera-agent"),
			TimeoutSeconds:    30,
			Rollback:          nil,
			ContinueOnFailure: false,
		},
		{
			ID:                "verify",
			Name:              "assert fingerprint",
			Action:            AssertFingerprintAction("fp-AAA"),
			TimeoutSeconds:    10,
			ContinueOnFailure: false,
		},
	}, nil, nil)
}

func TestPlaybookValidateComputesChecksum(t *testing.T) {
	pb, err := samplePlaybook().Validate()
	require.NoError(t, err)
	assert.True(t, pb.Validated)
	assert.NotEmpty(t, pb.Checksum)
}

func TestPlaybookValidateRejectsDuplicateStepIDs(t *testing.T) {
	pb := samplePlaybook()
	pb.Steps[1].ID = pb.Steps[0].ID
	_, err := pb.Validate()
	assert.Error(t, err)
}

func TestPlaybookValidateRejectsUnknownActionKind(t *testing.T) {
	pb := samplePlaybook()
	pb.Steps[0].Action.Kind = "NOT_A_REAL_ACTION"
	_, err := pb.Validate()
	assert.Error(t, err)
}

func TestPlaybookValidateRejectsNonPositiveTimeout(t *testing.T) {
	pb := samplePlaybook()
	pb.Steps[0].TimeoutSeconds = 0
	_, err := pb.Validate()
	assert.Error(t, err)
}

func TestPlaybookValidateRejectsChecksumMismatch(t *testing.T) {
	pb, err := samplePlaybook().Validate()
	require.NoError(t, err)
	pb.Checksum = "not-the-real-checksum"
	pb.Steps = append(pb.Steps, Step{
		ID: "extra", Name: "extra", Action: WaitSecondsAction(1), TimeoutSeconds: 1,
	})
	_, err = pb.Validate()
	assert.Error(t, err)
}

func TestPlaybookValidateRejectsEmptySteps(t *testing.T) {
	pb := NewPlaybook("pb-empty", "noop", "1.0", nil, nil, nil)
	_, err := pb.Validate()
	assert.Error(t, err)
}

package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPolicyBuiltinRoles(t *testing.T) {
	p := NewPolicy().BindRole("alice", RoleViewer).BindRole("bob", RoleOperator).BindRole("carol", RoleAdmin)

	assert.Equal(t, Allow, p.Authorize("alice", PermView))
	assert.Equal(t, Deny, p.Authorize("alice", PermDeploy))

	assert.Equal(t, Allow, p.Authorize("bob", PermDeploy))
	assert.Equal(t, Allow, p.Authorize("bob", PermHealRestart))
	assert.Equal(t, Deny, p.Authorize("bob", PermHealRebuild))

	assert.Equal(t, Allow, p.Authorize("carol", PermHealRebuild))
	assert.Equal(t, Allow, p.Authorize("carol", PermRollback))
}

// TestDenyDominance is universal property 3 in spec §8: an explicit deny
// always wins over a role-derived allow.
func TestDenyDominance(t *testing.T) {
	p := NewPolicy().BindRole("carol", RoleAdmin).Deny("carol", PermRollback)

	assert.Equal(t, Deny, p.Authorize("carol", PermRollback))
	assert.Equal(t, Allow, p.Authorize("carol", PermDeploy))
}

func TestUnknownSubjectAlwaysDenies(t *testing.T) {
	p := NewPolicy()
	assert.Equal(t, Deny, p.Authorize("mallory", PermView))
}

func TestPolicyIsImmutable(t *testing.T) {
	base := NewPolicy()
	withAlice := base.BindRole("alice", RoleViewer)

	assert.Equal(t, Deny, base.Authorize("alice", PermView))
	assert.Equal(t, Allow, withAlice.Authorize("alice", PermView))
}

func TestUnbindAndRemoveDeny(t *testing.T) {
	p := NewPolicy().BindRole("alice", RoleOperator).Deny("alice", PermDeploy)
	assert.Equal(t, Deny, p.Authorize("alice", PermDeploy))

	p2 := p.RemoveDeny("alice", PermDeploy)
	assert.Equal(t, Allow, p2.Authorize("alice", PermDeploy))

	p3 := p2.UnbindRole("alice", RoleOperator)
	assert.Equal(t, Deny, p3.Authorize("alice", PermDeploy))
}

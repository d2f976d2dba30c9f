package domain

// Permission is a capability a subject may be granted.
type Permission string

const (
	PermDeploy      Permission = "DEPLOY"
	PermRollback    Permission = "ROLLBACK"
	PermHealRestart Permission = "HEAL_RESTART"
	PermHealRebuild Permission = "HEAL_REBUILD"
	PermView        Permission = "VIEW"

	// Supplemental permissions recovered from the original Python
	// implementation's role model (domain/entities/policy.py), kept
	// because Chimera's registry/SLO surfaces need a management scope
	// distinct from the core heal/deploy actions.
	PermManageNodes Permission = "MANAGE_NODES"
	PermManageSLOs  Permission = "MANAGE_SLOS"
)

// RoleName identifies a named bundle of permissions.
type RoleName string

const (
	RoleViewer   RoleName = "viewer"
	RoleOperator RoleName = "operator"
	RoleAdmin    RoleName = "admin"
)

// Decision is the outcome of a policy evaluation.
type Decision string

const (
	Allow Decision = "ALLOW"
	Deny  Decision = "DENY"
)

type subjectPermission struct {
	subject    string
	permission Permission
}

// Policy is an immutable RBAC configuration: named role → permission
// sets, subject → role bindings, and an explicit deny list that
// overrides any role-derived grant.
type Policy struct {
	roles    map[RoleName]map[Permission]bool
	bindings map[string]map[RoleName]bool
	denies   map[subjectPermission]bool
}

// NewPolicy returns a Policy pre-populated with the built-in roles:
// viewer = {VIEW}, operator = {VIEW, DEPLOY, HEAL_RESTART},
// admin = all known permissions.
func NewPolicy() Policy {
	all := []Permission{PermDeploy, PermRollback, PermHealRestart, PermHealRebuild, PermView, PermManageNodes, PermManageSLOs}
	adminSet := make(map[Permission]bool, len(all))
	for _, p := range all {
		adminSet[p] = true
	}

	return Policy{
		roles: map[RoleName]map[Permission]bool{
			RoleViewer:   {PermView: true},
			RoleOperator: {PermView: true, PermDeploy: true, PermHealRestart: true},
			RoleAdmin:    adminSet,
		},
		bindings: map[string]map[RoleName]bool{},
		denies:   map[subjectPermission]bool{},
	}
}

func (p Policy) clone() Policy {
	roles := make(map[RoleName]map[Permission]bool, len(p.roles))
	for r, perms := range p.roles {
		cp := make(map[Permission]bool, len(perms))
		for perm := range perms {
			cp[perm] = true
		}
		roles[r] = cp
	}
	bindings := make(map[string]map[RoleName]bool, len(p.bindings))
	for s, rs := range p.bindings {
		cp := make(map[RoleName]bool, len(rs))
		for r := range rs {
			cp[r] = true
		}
		bindings[s] = cp
	}
	denies := make(map[subjectPermission]bool, len(p.denies))
	for k := range p.denies {
		denies[k] = true
	}
	return Policy{roles: roles, bindings: bindings, denies: denies}
}

// WithRole defines or replaces a named role's permission set, returning
// a new Policy.
func (p Policy) WithRole(name RoleName, perms ...Permission) Policy {
	next := p.clone()
	set := make(map[Permission]bool, len(perms))
	for _, perm := range perms {
		set[perm] = true
	}
	next.roles[name] = set
	return next
}

// BindRole grants subjectID a role, returning a new Policy.
func (p Policy) BindRole(subjectID string, role RoleName) Policy {
	next := p.clone()
	if next.bindings[subjectID] == nil {
		next.bindings[subjectID] = map[RoleName]bool{}
	}
	next.bindings[subjectID][role] = true
	return next
}

// UnbindRole revokes a role from subjectID, returning a new Policy.
func (p Policy) UnbindRole(subjectID string, role RoleName) Policy {
	next := p.clone()
	delete(next.bindings[subjectID], role)
	return next
}

// Deny adds an explicit (subject, permission) deny entry, returning a
// new Policy. Explicit denies always dominate role-derived grants.
func (p Policy) Deny(subjectID string, permission Permission) Policy {
	next := p.clone()
	next.denies[subjectPermission{subjectID, permission}] = true
	return next
}

// RemoveDeny removes an explicit deny entry, returning a new Policy.
func (p Policy) RemoveDeny(subjectID string, permission Permission) Policy {
	next := p.clone()
	delete(next.denies, subjectPermission{subjectID, permission})
	return next
}

// Authorize evaluates whether subjectID may exercise permission, per
// spec §4.2: explicit deny wins; otherwise a role-derived grant allows;
// otherwise default deny. Unknown subjects always deny.
func (p Policy) Authorize(subjectID string, permission Permission) Decision {
	if p.denies[subjectPermission{subjectID, permission}] {
		return Deny
	}
	for role := range p.bindings[subjectID] {
		if p.roles[role][permission] {
			return Allow
		}
	}
	return Deny
}

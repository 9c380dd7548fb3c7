package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleOwner.Valid())
	assert.True(t, RoleAdmin.Valid())
	assert.True(t, RoleViewer.Valid())
	assert.False(t, Role("superadmin").Valid())
	assert.False(t, Role("").Valid())
}

func TestRoleCanMutate(t *testing.T) {
	assert.True(t, RoleOwner.CanMutate())
	assert.True(t, RoleAdmin.CanMutate())
	assert.False(t, RoleViewer.CanMutate())
}

func TestRoleCanManageRoles(t *testing.T) {
	assert.True(t, RoleOwner.CanManageRoles())
	assert.False(t, RoleAdmin.CanManageRoles())
	assert.False(t, RoleViewer.CanManageRoles())
}

func TestPlanValid(t *testing.T) {
	assert.True(t, PlanFree.Valid())
	assert.True(t, PlanPro.Valid())
	assert.True(t, PlanEnterprise.Valid())
	assert.False(t, Plan("unlimited").Valid())
}

package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleAdministrator.Valid())
	assert.True(t, RoleManager.Valid())
	assert.True(t, RoleViewer.Valid())

	assert.False(t, Role("").Valid())
	assert.False(t, Role("admin").Valid())
	assert.False(t, Role("Administrator").Valid())
	assert.False(t, Role("superuser").Valid())
}

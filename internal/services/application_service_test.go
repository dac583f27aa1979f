package services

import (
	"strings"
	"testing"

	"upam/internal/models"
	apperrors "upam/pkg/errors"
	"upam/pkg/pagination"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplicationCreate(t *testing.T) {
	db := newTestDB(t)
	svc := NewApplicationService(db)

	app, err := svc.Create("crm")
	require.NoError(t, err)
	assert.NotZero(t, app.ID)

	_, err = svc.Create("crm")
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	_, err = svc.Create("")
	assert.ErrorIs(t, err, apperrors.ErrInvalidName)
	_, err = svc.Create(strings.Repeat("x", 33))
	assert.ErrorIs(t, err, apperrors.ErrInvalidName)

	found, err := svc.GetByName("crm")
	require.NoError(t, err)
	assert.Equal(t, app.ID, found.ID)
	_, err = svc.GetByName("ghost")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestApplicationList(t *testing.T) {
	db := newTestDB(t)
	svc := NewApplicationService(db)

	for _, name := range []string{"a1", "a2", "a3"} {
		_, err := svc.Create(name)
		require.NoError(t, err)
	}

	apps, info, err := svc.List(&pagination.PageParams{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, apps, 2)
	assert.EqualValues(t, 3, info.Total)
	assert.Equal(t, 2, info.TotalPages)
}

func TestApplicationDeleteCascades(t *testing.T) {
	db := newTestDB(t)
	svc := NewApplicationService(db)
	roles := NewRoleService(db)
	privileges := NewPrivilegeService(db)
	resources := NewResourceService(db)

	app, err := svc.Create("crm")
	require.NoError(t, err)
	keep, err := svc.Create("erp")
	require.NoError(t, err)

	role, err := roles.Create("admin", app.ID)
	require.NoError(t, err)
	_, err = roles.AssignUser(role.ID, []uint{1})
	require.NoError(t, err)
	_, err = privileges.AssignPrivilege(app.ID, Assignee{User: []uint{1}, Role: []uint{role.ID}},
		[]models.Privilege{models.PrivilegeReadResource})
	require.NoError(t, err)
	_, err = resources.CreateResource(100, app.ID, ACLInput{Users: AccessLists{Readers: []uint{1}}})
	require.NoError(t, err)

	keepRole, err := roles.Create("admin", keep.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(app.ID))

	_, err = svc.GetByID(app.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = roles.GetByID(role.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	var count int64
	require.NoError(t, db.Model(&models.PrivilegeUserAssignment{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
	require.NoError(t, db.Model(&models.Resource{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)

	// 别的应用不受影响
	_, err = roles.GetByID(keepRole.ID)
	assert.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(app.ID), apperrors.ErrNotFound)
}

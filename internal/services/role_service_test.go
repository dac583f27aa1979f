package services

import (
	"testing"

	"upam/internal/models"
	apperrors "upam/pkg/errors"
	"upam/pkg/pagination"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleCreate(t *testing.T) {
	db := newTestDB(t)
	svc := NewRoleService(db)
	app := mustApplication(t, db, "crm")

	role, err := svc.Create("admin", app.ID)
	require.NoError(t, err)
	assert.NotZero(t, role.ID)

	// 同应用下重名冲突
	_, err = svc.Create("admin", app.ID)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	// 另一个应用可以用同名
	other := mustApplication(t, db, "erp")
	_, err = svc.Create("admin", other.ID)
	assert.NoError(t, err)

	_, err = svc.Create("", app.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidName)
}

func TestRoleInheritClosure(t *testing.T) {
	db := newTestDB(t)
	svc := NewRoleService(db)
	app := mustApplication(t, db, "crm")

	a, err := svc.Create("a", app.ID)
	require.NoError(t, err)
	b, err := svc.Create("b", app.ID)
	require.NoError(t, err)
	c, err := svc.Create("c", app.ID)
	require.NoError(t, err)

	// a继承b，b继承c，a的闭包是{a,b,c}
	require.NoError(t, svc.InheritTo([]string{"a"}, "b", app.ID))
	require.NoError(t, svc.InheritTo([]string{"b"}, "c", app.ID))

	closure, err := svc.ListRoleInherited(app.ID, a.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{a.ID, b.ID, c.ID}, closure)

	// 重复继承无副作用
	require.NoError(t, svc.InheritTo([]string{"a"}, "b", app.ID))
	var edges int64
	require.NoError(t, db.Model(&models.RoleInherit{}).Count(&edges).Error)
	assert.EqualValues(t, 2, edges)

	// 目标角色不存在
	err = svc.InheritTo([]string{"a"}, "ghost", app.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRoleInheritCycleTerminates(t *testing.T) {
	db := newTestDB(t)
	svc := NewRoleService(db)
	app := mustApplication(t, db, "crm")

	a, err := svc.Create("a", app.ID)
	require.NoError(t, err)
	b, err := svc.Create("b", app.ID)
	require.NoError(t, err)

	// a与b互相继承，闭包遍历仍然终止
	require.NoError(t, svc.InheritTo([]string{"a"}, "b", app.ID))
	require.NoError(t, svc.InheritTo([]string{"b"}, "a", app.ID))

	closure, err := svc.ListRoleInherited(app.ID, a.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{a.ID, b.ID}, closure)
}

func TestRoleAssignment(t *testing.T) {
	db := newTestDB(t)
	svc := NewRoleService(db)
	app := mustApplication(t, db, "crm")
	user := mustUser(t, db, "alice")

	role, err := svc.Create("viewer", app.ID)
	require.NoError(t, err)
	parent, err := svc.Create("auditor", app.ID)
	require.NoError(t, err)
	require.NoError(t, svc.InheritTo([]string{"viewer"}, "auditor", app.ID))

	added, err := svc.AssignUser(role.ID, []uint{user.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, added)

	// 重复授予跳过
	added, err = svc.AssignUser(role.ID, []uint{user.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 0, added)

	// 用户的角色闭包带上继承来的角色
	roles, err := svc.ListRolesOfUser(app.ID, user.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{role.ID, parent.ID}, roles)

	removed, err := svc.RevokeUser(role.ID, []uint{user.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)
	roles, err = svc.ListRolesOfUser(app.ID, user.ID)
	require.NoError(t, err)
	assert.Empty(t, roles)
}

func TestRoleGroupAssignment(t *testing.T) {
	db := newTestDB(t)
	svc := NewRoleService(db)
	groups := NewGroupService(db)
	app := mustApplication(t, db, "crm")

	group, err := groups.Create("dev", nil)
	require.NoError(t, err)
	role, err := svc.Create("editor", app.ID)
	require.NoError(t, err)

	added, err := svc.AssignGroup(role.ID, []uint{group.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, added)

	roles, err := svc.ListRolesOfGroup(app.ID, group.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{role.ID}, roles)

	removed, err := svc.RevokeGroup(role.ID, []uint{group.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)
}

func TestRoleDeleteDetaches(t *testing.T) {
	db := newTestDB(t)
	svc := NewRoleService(db)
	app := mustApplication(t, db, "crm")
	user := mustUser(t, db, "alice")

	role, err := svc.Create("temp", app.ID)
	require.NoError(t, err)
	keep, err := svc.Create("keep", app.ID)
	require.NoError(t, err)
	require.NoError(t, svc.InheritTo([]string{"temp"}, "keep", app.ID))
	_, err = svc.AssignUser(role.ID, []uint{user.ID})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(role.ID))

	_, err = svc.GetByID(role.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	var edges int64
	require.NoError(t, db.Model(&models.RoleInherit{}).Count(&edges).Error)
	assert.EqualValues(t, 0, edges)
	var assignments int64
	require.NoError(t, db.Model(&models.RoleUserAssignment{}).Count(&assignments).Error)
	assert.EqualValues(t, 0, assignments)

	_, err = svc.GetByID(keep.ID)
	assert.NoError(t, err)
}

func TestRoleList(t *testing.T) {
	db := newTestDB(t)
	svc := NewRoleService(db)
	app := mustApplication(t, db, "crm")

	names := []string{"r1", "r2", "r3"}
	for _, name := range names {
		_, err := svc.Create(name, app.ID)
		require.NoError(t, err)
	}

	roles, err := svc.ListRoles(app.ID, &pagination.CursorParams{Count: 2})
	require.NoError(t, err)
	require.Len(t, roles, 2)

	rest, err := svc.ListRoles(app.ID, &pagination.CursorParams{Skip: 2, Count: 10})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "r3", rest[0].Name)
}

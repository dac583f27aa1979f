package services

import (
	"net/http"
	"testing"

	"upam/internal/models"
	apperrors "upam/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequiredPrivilege(t *testing.T) {
	cases := map[string]models.Privilege{
		http.MethodGet:     models.PrivilegeReadResource,
		http.MethodPost:    models.PrivilegeCreateResource,
		http.MethodPut:     models.PrivilegeModifyResource,
		http.MethodPatch:   models.PrivilegeModifyResource,
		http.MethodDelete:  models.PrivilegeDeleteResource,
		http.MethodHead:    models.PrivilegeNone,
		http.MethodOptions: models.PrivilegeNone,
	}
	for method, want := range cases {
		assert.Equal(t, want, RequiredPrivilege(method), method)
	}
}

func TestIdentifyResolvesGroupClosure(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuthorizeService(db)
	groups := NewGroupService(db)
	user := mustUser(t, db, "alice")

	leaf, err := groups.Create("dev/beijing/acme", nil)
	require.NoError(t, err)
	_, err = groups.AppendUser([]uint{user.ID}, leaf.ID)
	require.NoError(t, err)

	identity, err := svc.Identify(user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, identity.UserID)
	assert.Len(t, identity.Groups, 3)
	assert.NotNil(t, identity.Roles)
	assert.Empty(t, identity.Roles)
}

func TestAuthorizeApplicationNotFound(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuthorizeService(db)

	identity := &models.Identity{UserID: 1}
	_, _, err := svc.AuthorizeApplication(identity, "ghost", http.MethodGet)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Contains(t, err.Error(), "ghost")
}

func TestAuthorizeApplicationNoneShortCircuits(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuthorizeService(db)
	mustApplication(t, db, "crm")

	// HEAD无需特权，未持有任何授予也放行
	identity := &models.Identity{UserID: 1}
	app, state, err := svc.AuthorizeApplication(identity, "crm", http.MethodHead)
	require.NoError(t, err)
	assert.Equal(t, "crm", app.Name)
	assert.Empty(t, state.Grant)
}

func TestAuthorizeApplicationForbidden(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuthorizeService(db)
	mustApplication(t, db, "crm")

	identity := &models.Identity{UserID: 1}
	_, _, err := svc.AuthorizeApplication(identity, "crm", http.MethodGet)
	var forbidden *ForbiddenError
	require.ErrorAs(t, err, &forbidden)
	assert.Equal(t, models.PrivilegeReadResource, forbidden.Privilege)
	assert.Equal(t, "crm", forbidden.Application)
	// 报文点名所需特权和应用
	assert.Contains(t, err.Error(), "crm")
	assert.Contains(t, err.Error(), string(models.PrivilegeReadResource))
}

func TestAuthorizeApplicationMergesThreeDimensions(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuthorizeService(db)
	groups := NewGroupService(db)
	roles := NewRoleService(db)
	privileges := NewPrivilegeService(db)
	app := mustApplication(t, db, "crm")
	user := mustUser(t, db, "alice")

	group, err := groups.Create("dev", nil)
	require.NoError(t, err)
	_, err = groups.AppendUser([]uint{user.ID}, group.ID)
	require.NoError(t, err)

	role, err := roles.Create("writer", app.ID)
	require.NoError(t, err)
	_, err = roles.AssignGroup(role.ID, []uint{group.ID})
	require.NoError(t, err)

	// 三个维度各授一个特权
	_, err = privileges.AssignPrivilege(app.ID, Assignee{User: []uint{user.ID}},
		[]models.Privilege{models.PrivilegeReadResource})
	require.NoError(t, err)
	_, err = privileges.AssignPrivilege(app.ID, Assignee{Group: []uint{group.ID}},
		[]models.Privilege{models.PrivilegeCreateResource})
	require.NoError(t, err)
	_, err = privileges.AssignPrivilege(app.ID, Assignee{Role: []uint{role.ID}},
		[]models.Privilege{models.PrivilegeModifyResource})
	require.NoError(t, err)

	identity, err := svc.Identify(user.ID)
	require.NoError(t, err)

	_, state, err := svc.AuthorizeApplication(identity, "crm", http.MethodPut)
	require.NoError(t, err)
	assert.ElementsMatch(t, []models.Privilege{
		models.PrivilegeReadResource,
		models.PrivilegeCreateResource,
		models.PrivilegeModifyResource,
	}, state.Grant)

	// 角色闭包随授权解析写回身份
	assert.Equal(t, []uint{role.ID}, identity.RolesOf(app.ID))

	// 有效集不含删除级别
	_, _, err = svc.AuthorizeApplication(identity, "crm", http.MethodDelete)
	var forbidden *ForbiddenError
	assert.ErrorAs(t, err, &forbidden)
}

func TestAuthorizeResourceFlags(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuthorizeService(db)
	resources := NewResourceService(db)
	app := mustApplication(t, db, "crm")

	_, err := resources.CreateResource(100, app.ID, ACLInput{
		Users: AccessLists{Readers: []uint{1}, Authors: []uint{2}},
	})
	require.NoError(t, err)

	// 读者只拿到读
	grant, err := svc.AuthorizeResource(100, app.ID, &models.Identity{UserID: 1})
	require.NoError(t, err)
	require.NotNil(t, grant)
	assert.Equal(t, []models.Privilege{models.PrivilegeReadResource}, grant.Grant)

	// 作者拿到删
	grant, err = svc.AuthorizeResource(100, app.ID, &models.Identity{UserID: 2})
	require.NoError(t, err)
	require.NotNil(t, grant)
	assert.Equal(t, []models.Privilege{models.PrivilegeDeleteResource}, grant.Grant)

	// ACL里没有的身份一无所获
	grant, err = svc.AuthorizeResource(100, app.ID, &models.Identity{UserID: 3})
	require.NoError(t, err)
	require.NotNil(t, grant)
	assert.Empty(t, grant.Grant)
}

func TestAuthorizeResourceGroupAndRole(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuthorizeService(db)
	resources := NewResourceService(db)
	app := mustApplication(t, db, "crm")

	_, err := resources.CreateResource(100, app.ID, ACLInput{
		Groups: AccessLists{Readers: []uint{5}},
		Roles:  AccessLists{Authors: []uint{9}},
	})
	require.NoError(t, err)

	identity := &models.Identity{
		UserID: 1,
		Groups: []uint{5},
		Roles:  map[uint][]uint{app.ID: {9}},
	}
	grant, err := svc.AuthorizeResource(100, app.ID, identity)
	require.NoError(t, err)
	require.NotNil(t, grant)
	assert.ElementsMatch(t, []models.Privilege{
		models.PrivilegeReadResource,
		models.PrivilegeDeleteResource,
	}, grant.Grant)
}

func TestAuthorizeResourceUnrestricted(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuthorizeService(db)
	resources := NewResourceService(db)
	app := mustApplication(t, db, "crm")

	_, err := resources.CreateResource(100, app.ID, ACLInput{})
	require.NoError(t, err)

	// 没有任何ACL行的资源不做细化
	grant, err := svc.AuthorizeResource(100, app.ID, &models.Identity{UserID: 1})
	require.NoError(t, err)
	assert.Nil(t, grant)

	// 资源行缺失同样按无限制处理
	grant, err = svc.AuthorizeResource(404, app.ID, &models.Identity{UserID: 1})
	require.NoError(t, err)
	assert.Nil(t, grant)
}

func TestAuthorizeResourceStorageError(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuthorizeService(db)
	resources := NewResourceService(db)
	app := mustApplication(t, db, "crm")
	user := mustUser(t, db, "alice")

	_, err := resources.CreateResource(100, app.ID, ACLInput{
		Users: AccessLists{Readers: []uint{user.ID + 1}},
	})
	require.NoError(t, err)

	// 存储故障必须上抛，不能降级成无限制
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	grant, err := svc.AuthorizeResource(100, app.ID, &models.Identity{UserID: user.ID})
	require.Error(t, err)
	assert.Nil(t, grant)
}

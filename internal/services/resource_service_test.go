package services

import (
	"testing"

	"upam/internal/models"
	apperrors "upam/pkg/errors"
	"upam/pkg/pagination"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateResourceWithACL(t *testing.T) {
	db := newTestDB(t)
	svc := NewResourceService(db)
	app := mustApplication(t, db, "crm")

	resource, err := svc.CreateResource(100, app.ID, ACLInput{
		Users: AccessLists{Readers: []uint{1, 2}, Authors: []uint{2}},
	})
	require.NoError(t, err)
	require.Len(t, resource.UserACLs, 2)

	// 同时出现在读者和作者清单里的用户两个标志都为真
	flags := make(map[uint]models.UserACL, len(resource.UserACLs))
	for _, acl := range resource.UserACLs {
		flags[acl.UserID] = acl
	}
	assert.True(t, flags[1].Reader)
	assert.False(t, flags[1].Author)
	assert.True(t, flags[2].Reader)
	assert.True(t, flags[2].Author)

	// 资源id由调用方提供，重复创建冲突
	_, err = svc.CreateResource(100, app.ID, ACLInput{})
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestUpdateResourceACLOverwrites(t *testing.T) {
	db := newTestDB(t)
	svc := NewResourceService(db)
	app := mustApplication(t, db, "crm")

	_, err := svc.CreateResource(100, app.ID, ACLInput{
		Users:  AccessLists{Readers: []uint{1}},
		Groups: AccessLists{Readers: []uint{5}},
	})
	require.NoError(t, err)

	// 全量覆盖：旧ACL不保留
	require.NoError(t, svc.UpdateResourceACL(100, ACLInput{
		Users: AccessLists{Authors: []uint{9}},
	}))

	resource, err := svc.FindResourceACL(100)
	require.NoError(t, err)
	require.Len(t, resource.UserACLs, 1)
	assert.EqualValues(t, 9, resource.UserACLs[0].UserID)
	assert.True(t, resource.UserACLs[0].Author)
	assert.False(t, resource.UserACLs[0].Reader)
	assert.Empty(t, resource.GroupACLs)

	err = svc.UpdateResourceACL(404, ACLInput{})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestFindAllResourcesFiltersByIdentity(t *testing.T) {
	db := newTestDB(t)
	svc := NewResourceService(db)
	app := mustApplication(t, db, "crm")

	_, err := svc.CreateResource(1, app.ID, ACLInput{Users: AccessLists{Readers: []uint{7}}})
	require.NoError(t, err)
	_, err = svc.CreateResource(2, app.ID, ACLInput{Groups: AccessLists{Readers: []uint{3}}})
	require.NoError(t, err)
	_, err = svc.CreateResource(3, app.ID, ACLInput{Users: AccessLists{Readers: []uint{8}}})
	require.NoError(t, err)

	cursor := &pagination.CursorParams{Count: 10}

	// 不带身份时全量返回
	all, err := svc.FindAllResources(app.ID, nil, cursor, false)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	// 用户7本人在资源1的ACL里，所属组3在资源2的ACL里
	identity := &models.Identity{UserID: 7, Groups: []uint{3}}
	visible, err := svc.FindAllResources(app.ID, identity, cursor, false)
	require.NoError(t, err)
	require.Len(t, visible, 2)
	assert.EqualValues(t, 1, visible[0].ID)
	assert.EqualValues(t, 2, visible[1].ID)

	// 倒序游标
	visible, err = svc.FindAllResources(app.ID, identity, cursor, true)
	require.NoError(t, err)
	require.Len(t, visible, 2)
	assert.EqualValues(t, 2, visible[0].ID)
}

func TestRemoveResourceRequiresAuthor(t *testing.T) {
	db := newTestDB(t)
	svc := NewResourceService(db)
	app := mustApplication(t, db, "crm")

	_, err := svc.CreateResource(100, app.ID, ACLInput{
		Users: AccessLists{Readers: []uint{1}, Authors: []uint{2}},
	})
	require.NoError(t, err)

	// 仅读者无权删除
	deleted, err := svc.RemoveResource(100, &models.Identity{UserID: 1})
	require.NoError(t, err)
	assert.False(t, deleted)

	// 作者可以删除，ACL行同事务清理
	deleted, err = svc.RemoveResource(100, &models.Identity{UserID: 2})
	require.NoError(t, err)
	assert.True(t, deleted)

	var acls int64
	require.NoError(t, db.Model(&models.UserACL{}).Count(&acls).Error)
	assert.EqualValues(t, 0, acls)

	// 不存在的资源返回false而非错误
	deleted, err = svc.RemoveResource(100, nil)
	require.NoError(t, err)
	assert.False(t, deleted)
}

package services

import (
	"fmt"
	"strings"
	"testing"

	"upam/internal/models"
	apperrors "upam/pkg/errors"
	"upam/pkg/pagination"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupCreateHierarchy(t *testing.T) {
	db := newTestDB(t)
	svc := NewGroupService(db)

	leaf, err := svc.Create("a/b/c", nil)
	require.NoError(t, err)
	require.NotZero(t, leaf.ID)
	assert.Equal(t, "a", leaf.Name)

	var total int64
	require.NoError(t, db.Model(&models.Group{}).Count(&total).Error)
	assert.EqualValues(t, 3, total)

	// 根组只有最末一段
	roots, err := svc.ListRoot(&pagination.CursorParams{Count: 10})
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(t, "c", roots[0].Name)

	// 叶子的全名能沿上级边还原
	paths, err := svc.GetGroupFullName(leaf.ID)
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, "a/b/c", paths[0].FullName)
	assert.Len(t, paths[0].IDs, 3)
	assert.Equal(t, leaf.ID, paths[0].IDs[2])
}

func TestGroupCreateIdempotent(t *testing.T) {
	db := newTestDB(t)
	svc := NewGroupService(db)

	first, err := svc.Create("a/b/c", nil)
	require.NoError(t, err)
	second, err := svc.Create("a/b/c", nil)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var total int64
	require.NoError(t, db.Model(&models.Group{}).Count(&total).Error)
	assert.EqualValues(t, 3, total)
}

func TestGroupCreateWithUnitID(t *testing.T) {
	db := newTestDB(t)
	svc := NewGroupService(db)

	parent, err := svc.Create("b/c", nil)
	require.NoError(t, err)

	leaf, err := svc.Create("a/b/c", &parent.ID)
	require.NoError(t, err)
	assert.Equal(t, "a", leaf.Name)

	// 同一上级下重复创建幂等返回已有叶子
	again, err := svc.Create("a/b/c", &parent.ID)
	require.NoError(t, err)
	assert.Equal(t, leaf.ID, again.ID)

	// unitID不在解析出的上级集合里
	bogus := parent.ID + 1000
	_, err = svc.Create("a/b/c", &bogus)
	assert.ErrorIs(t, err, apperrors.ErrParentNotFound)

	// 根组不可能指定上级
	_, err = svc.Create("c", &parent.ID)
	assert.ErrorIs(t, err, apperrors.ErrParentNotFound)
}

func TestGroupCreateManySharedPrefix(t *testing.T) {
	db := newTestDB(t)
	svc := NewGroupService(db)

	// 两个全名共享 x/root 前缀，只应创建 root、x、a、b 四行
	count, err := svc.CreateMany([]string{"a/x/root", "b/x/root"})
	require.NoError(t, err)
	assert.EqualValues(t, 4, count)

	var total int64
	require.NoError(t, db.Model(&models.Group{}).Count(&total).Error)
	assert.EqualValues(t, 4, total)

	// 再来一遍不新建任何行
	count, err = svc.CreateMany([]string{"a/x/root", "b/x/root"})
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)
}

func TestGroupRemove(t *testing.T) {
	db := newTestDB(t)
	svc := NewGroupService(db)

	_, err := svc.Create("a/b/c", nil)
	require.NoError(t, err)

	// 有下级时非递归删除被拒绝
	_, err = svc.Remove("b/c", false)
	assert.ErrorIs(t, err, apperrors.ErrHasMembers)

	// 无下级的叶子直接删
	count, err := svc.Remove("a/b/c", false)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	// 递归删除整棵子树
	_, err = svc.Create("a/b/c", nil)
	require.NoError(t, err)
	count, err = svc.Remove("c", true)
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)

	var total int64
	require.NoError(t, db.Model(&models.Group{}).Count(&total).Error)
	assert.EqualValues(t, 0, total)
	require.NoError(t, db.Model(&models.GroupMember{}).Count(&total).Error)
	assert.EqualValues(t, 0, total)
}

func TestGroupRemoveMissing(t *testing.T) {
	db := newTestDB(t)
	svc := NewGroupService(db)

	count, err := svc.Remove("nope", false)
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)
}

func TestListGroupsOfUserClosure(t *testing.T) {
	db := newTestDB(t)
	svc := NewGroupService(db)
	user := mustUser(t, db, "alice")

	leaf, err := svc.Create("a/b/c", nil)
	require.NoError(t, err)
	added, err := svc.AppendUser([]uint{user.ID}, leaf.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, added)

	// 重复加入直接跳过
	added, err = svc.AppendUser([]uint{user.ID}, leaf.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, added)

	// 闭包含直接组和全部祖先
	groups, err := svc.ListGroupsOfUser(user.ID)
	require.NoError(t, err)
	assert.Len(t, groups, 3)

	// 人为制造环后遍历仍然终止且不重复
	var root models.Group
	require.NoError(t, db.Where("name = ?", "c").First(&root).Error)
	require.NoError(t, db.Create(&models.GroupMember{UnitID: leaf.ID, MemberID: root.ID}).Error)
	groups, err = svc.ListGroupsOfUser(user.ID)
	require.NoError(t, err)
	assert.Len(t, groups, 3)
}

func TestMoveUser(t *testing.T) {
	db := newTestDB(t)
	svc := NewGroupService(db)
	user := mustUser(t, db, "bob")

	from, err := svc.Create("ops", nil)
	require.NoError(t, err)
	to, err := svc.Create("dev", nil)
	require.NoError(t, err)

	_, err = svc.AppendUser([]uint{user.ID}, from.ID)
	require.NoError(t, err)
	require.NoError(t, svc.MoveUser([]uint{user.ID}, from.ID, to.ID))

	groups, err := svc.ListGroupsOfUser(user.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{to.ID}, groups)
}

func TestGetGroupFullNameMultiParent(t *testing.T) {
	db := newTestDB(t)
	svc := NewGroupService(db)

	leaf, err := svc.Create("a/b/c", nil)
	require.NoError(t, err)
	other, err := svc.Create("d", nil)
	require.NoError(t, err)

	// 给中间组补一条指向另一个根的上级边
	var mid models.Group
	require.NoError(t, db.Where("name = ?", "b").First(&mid).Error)
	require.NoError(t, db.Create(&models.GroupMember{UnitID: other.ID, MemberID: mid.ID}).Error)

	paths, err := svc.GetGroupFullName(leaf.ID)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	names := []string{paths[0].FullName, paths[1].FullName}
	assert.ElementsMatch(t, []string{"a/b/c", "a/b/d"}, names)
}

func TestGetGroupFullNameDeepChain(t *testing.T) {
	db := newTestDB(t)
	svc := NewGroupService(db)

	// 直接造一条很深的挂靠链，i挂在i+1下
	const depth = 500
	ids := make([]uint, depth)
	for i := 0; i < depth; i++ {
		group := models.Group{Name: fmt.Sprintf("g%d", i)}
		require.NoError(t, db.Create(&group).Error)
		ids[i] = group.ID
	}
	for i := 0; i < depth-1; i++ {
		require.NoError(t, db.Create(&models.GroupMember{UnitID: ids[i+1], MemberID: ids[i]}).Error)
	}

	paths, err := svc.GetGroupFullName(ids[0])
	require.NoError(t, err)
	require.Len(t, paths, 1)
	segments := strings.Split(paths[0].FullName, "/")
	require.Len(t, segments, depth)
	assert.Equal(t, "g0", segments[0])
	assert.Equal(t, fmt.Sprintf("g%d", depth-1), segments[depth-1])
	require.Len(t, paths[0].IDs, depth)
	assert.Equal(t, ids[depth-1], paths[0].IDs[0])
	assert.Equal(t, ids[0], paths[0].IDs[depth-1])
}

func TestGetGroupWithEdges(t *testing.T) {
	db := newTestDB(t)
	svc := NewGroupService(db)

	leaf, err := svc.Create("a/b", nil)
	require.NoError(t, err)
	var root models.Group
	require.NoError(t, db.Where("name = ?", "b").First(&root).Error)

	record, err := svc.GetGroup(root.ID, LookupOption{SelfMember: true})
	require.NoError(t, err)
	assert.Equal(t, []uint{leaf.ID}, record.Members)

	record, err = svc.GetGroup(leaf.ID, LookupOption{SelfUnit: true})
	require.NoError(t, err)
	assert.Equal(t, []uint{root.ID}, record.Units)

	_, err = svc.GetGroup(99999, LookupOption{})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

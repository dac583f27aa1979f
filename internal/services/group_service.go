package services

import (
	"fmt"
	"strings"

	"upam/internal/models"
	"upam/pkg/errors"
	"upam/pkg/executor"
	"upam/pkg/hierarchy"
	"upam/pkg/pagination"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GroupService 组层级存储
// 组按全名寻址（dev/beijing/root），上下级关系存在group_members边表里，
// 根组的判定标准是不存在以它为member的边
type GroupService struct {
	db *gorm.DB
}

func NewGroupService(db *gorm.DB) *GroupService {
	return &GroupService{db: db}
}

// GroupRecord 按全名解析出的组记录
type GroupRecord struct {
	ID      uint   `json:"id"`
	Name    string `json:"name"`
	Units   []uint `json:"units,omitempty"`   // 上级边指向的组id（selfUnit时填充）
	Members []uint `json:"members,omitempty"` // 下级边指向的组id（selfMember时填充）
}

// GroupLookup 某一层全名的解析结果
// 同名同上级的组可能有多条（歧义数据），调用方必须同时处理单条和多条两种分支
type GroupLookup struct {
	records []GroupRecord
}

// Single 恰好一条时返回该记录
func (l GroupLookup) Single() (GroupRecord, bool) {
	if len(l.records) == 1 {
		return l.records[0], true
	}
	return GroupRecord{}, false
}

// Multiple 全部记录
func (l GroupLookup) Multiple() []GroupRecord {
	return l.records
}

// Empty 该层未找到
func (l GroupLookup) Empty() bool {
	return len(l.records) == 0
}

// Ambiguous 多条记录（歧义）
func (l GroupLookup) Ambiguous() bool {
	return len(l.records) > 1
}

func (l GroupLookup) first() GroupRecord {
	return l.records[0]
}

// LookupOption 控制底层（叶子）记录是否带上边信息
type LookupOption struct {
	SelfUnit   bool // 叶子记录附带上级边
	SelfMember bool // 叶子记录附带下级边
}

// 根组判定：不存在以自身为member的上级边
const rootCriteria = "NOT EXISTS (SELECT 1 FROM group_members gm WHERE gm.member_id = groups.id)"

// ========== 层级解析 ==========

// FindGroupMapByName 自顶向下解析全名的每一层
// 每层的查询条件是“同名且上级边指向上一层已解析到的某个id”（根层改为无上级边），
// 返回已找到的每个前缀到记录的映射；没找到的前缀直接缺席，歧义不视为错误
func (s *GroupService) FindGroupMapByName(fullname string, opt LookupOption) (map[string]GroupLookup, error) {
	chain, err := hierarchy.ByName(fullname)
	if err != nil {
		return nil, err
	}

	result := make(map[string]GroupLookup, len(chain))
	for _, levelName := range chain {
		name, rest := hierarchy.SplitHead(levelName)
		root := rest == ""

		query := s.db.Model(&models.Group{}).Where("name = ?", name)
		if root {
			query = query.Where(rootCriteria)
		} else {
			parent, ok := result[rest]
			if !ok {
				// 上一层缺席，这一层以及更深层都解析不到
				continue
			}
			parentIDs := make([]uint, 0, len(parent.records))
			for _, r := range parent.records {
				parentIDs = append(parentIDs, r.ID)
			}
			query = query.Where(
				"EXISTS (SELECT 1 FROM group_members gm WHERE gm.member_id = groups.id AND gm.unit_id IN ?)",
				parentIDs,
			)
		}

		var groups []models.Group
		if err := query.Find(&groups).Error; err != nil {
			return nil, err
		}
		if len(groups) == 0 {
			continue
		}

		records := make([]GroupRecord, 0, len(groups))
		for _, g := range groups {
			records = append(records, GroupRecord{ID: g.ID, Name: g.Name})
		}

		// 只有叶子层需要附带边信息
		if levelName == fullname && (opt.SelfUnit || opt.SelfMember) {
			if err := s.attachEdges(records, opt); err != nil {
				return nil, err
			}
		}
		result[levelName] = GroupLookup{records: records}
	}
	return result, nil
}

// attachEdges 批量补充记录的上级/下级边
func (s *GroupService) attachEdges(records []GroupRecord, opt LookupOption) error {
	ids := make([]uint, 0, len(records))
	index := make(map[uint]int, len(records))
	for i, r := range records {
		ids = append(ids, r.ID)
		index[r.ID] = i
	}

	if opt.SelfUnit {
		var edges []models.GroupMember
		if err := s.db.Where("member_id IN ?", ids).Find(&edges).Error; err != nil {
			return err
		}
		for _, e := range edges {
			i := index[e.MemberID]
			records[i].Units = append(records[i].Units, e.UnitID)
		}
	}
	if opt.SelfMember {
		var edges []models.GroupMember
		if err := s.db.Where("unit_id IN ?", ids).Find(&edges).Error; err != nil {
			return err
		}
		for _, e := range edges {
			i := index[e.UnitID]
			records[i].Members = append(records[i].Members, e.MemberID)
		}
	}
	return nil
}

// ========== 创建 ==========

// createNode 插入组行，非根组同时插入上级边
func (s *GroupService) createNode(name string, unitID *uint) (GroupRecord, error) {
	var record GroupRecord
	err := s.db.Transaction(func(tx *gorm.DB) error {
		group := models.Group{Name: name}
		if err := tx.Create(&group).Error; err != nil {
			return err
		}
		if unitID != nil {
			edge := models.GroupMember{UnitID: *unitID, MemberID: group.ID}
			if err := tx.Create(&edge).Error; err != nil {
				return err
			}
			record.Units = []uint{*unitID}
		}
		record.ID = group.ID
		record.Name = group.Name
		return nil
	})
	return record, err
}

// Create 按全名创建组，缺失的祖先层自根向下补齐，已存在的层直接复用
// unitID只约束叶子层挂接到哪个确切的上级之下，中间层不受其影响；
// 重复调用同一个全名不会产生新行，直接返回已有叶子
func (s *GroupService) Create(fullname string, unitID *uint) (*models.Group, error) {
	chain, err := hierarchy.ByName(fullname)
	if err != nil {
		return nil, err
	}

	groupMap, err := s.FindGroupMapByName(fullname, LookupOption{SelfUnit: true})
	if err != nil {
		return nil, err
	}

	var last GroupLookup
	for _, levelName := range chain {
		existing := groupMap[levelName]
		leaf := levelName == fullname

		// 指定了unitID时中间层不创建，留给叶子层按unitID校验
		if !leaf && unitID != nil {
			last = existing
			continue
		}

		name, rest := hierarchy.SplitHead(levelName)
		root := rest == ""

		if !root && unitID == nil && last.Empty() {
			return nil, fmt.Errorf("创建组(%s)时无法取得上级组", levelName)
		}

		// 该层已存在则复用（叶子层带unitID时要继续校验，不能直接复用）
		if !existing.Empty() && (!leaf || unitID == nil) {
			last = existing
			continue
		}

		if unitID != nil {
			if root {
				// 根组不可能有上级
				return nil, errors.ErrParentNotFound
			}
			matched := false
			for _, r := range last.Multiple() {
				if r.ID == *unitID {
					matched = true
					break
				}
			}
			if !matched {
				return nil, errors.ErrParentNotFound
			}
			// 该上级之下已有同名叶子则幂等返回
			for _, r := range existing.Multiple() {
				for _, u := range r.Units {
					if u == *unitID {
						return &models.Group{ID: r.ID, Name: r.Name}, nil
					}
				}
			}
		}

		var parentID *uint
		if !root {
			if unitID != nil {
				parentID = unitID
			} else {
				id := last.first().ID
				parentID = &id
			}
		}
		record, err := s.createNode(name, parentID)
		if err != nil {
			return nil, err
		}
		last = GroupLookup{records: []GroupRecord{record}}
	}

	if last.Ambiguous() {
		// 创建流程解析出多个叶子，属于数据完整性问题而不是调用方错误
		return nil, errors.ErrAmbiguousGroup
	}
	record, ok := last.Single()
	if !ok {
		return nil, fmt.Errorf("创建组(%s)未得到结果", fullname)
	}
	return &models.Group{ID: record.ID, Name: record.Name}, nil
}

// CreateMany 批量创建多个全名
// 按树深分层推进：整层解析/创建完毕后才处理下一层，
// 共享前缀只创建一次；返回新建的组行数（已存在的不计入）
func (s *GroupService) CreateMany(fullnames []string) (int64, error) {
	// 按深度归组，根层在前
	var layers []map[string]struct{}
	for _, fullname := range fullnames {
		chain, err := hierarchy.ByName(fullname)
		if err != nil {
			return 0, err
		}
		for level, name := range chain {
			for len(layers) <= level {
				layers = append(layers, make(map[string]struct{}))
			}
			layers[level][name] = struct{}{}
		}
	}

	// 先解析每个输入已有的前缀
	created := make(map[string]GroupLookup)
	for _, fullname := range fullnames {
		groupMap, err := s.FindGroupMapByName(fullname, LookupOption{})
		if err != nil {
			return 0, err
		}
		for k, v := range groupMap {
			created[k] = v
		}
	}

	var count int64
	for _, layer := range layers {
		// 每层的创建经限额执行器并发提交，整层结清后进入下一层
		type creation struct {
			fullname string
			record   GroupRecord
		}
		exec := executor.New[creation](executor.DefaultQuota)
		for fullname := range layer {
			if _, ok := created[fullname]; ok {
				continue
			}
			name, rest := hierarchy.SplitHead(fullname)
			var parentID *uint
			if rest != "" {
				parent, ok := created[rest]
				if !ok || parent.Empty() {
					exec.Finish()
					return count, fmt.Errorf("创建组(%s)时无法取得上级组", fullname)
				}
				id := parent.first().ID
				parentID = &id
			}
			captured := fullname
			exec.Add(func() (creation, error) {
				record, err := s.createNode(name, parentID)
				return creation{fullname: captured, record: record}, err
			})
		}
		for _, result := range exec.Finish() {
			if result.Err != nil {
				return count, result.Err
			}
			created[result.Value.fullname] = GroupLookup{records: []GroupRecord{result.Value.record}}
			count++
		}
	}
	return count, nil
}

// ========== 查询 ==========

// ListRoot 分页列出根组，按id升序保证稳定遍历
func (s *GroupService) ListRoot(cursor *pagination.CursorParams) ([]models.Group, error) {
	query := s.db.Model(&models.Group{}).Where(rootCriteria).Order("id asc")
	if cursor.Start > 0 {
		query = query.Where("id >= ?", cursor.Start)
	} else if cursor.Skip > 0 {
		query = query.Offset(cursor.Skip)
	}

	var groups []models.Group
	err := query.Limit(cursor.Count).Find(&groups).Error
	return groups, err
}

// GetGroup 按id点查，可选附带上级/下级边
func (s *GroupService) GetGroup(id uint, opt LookupOption) (*GroupRecord, error) {
	var group models.Group
	if err := s.db.First(&group, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrNotFound
		}
		return nil, err
	}
	records := []GroupRecord{{ID: group.ID, Name: group.Name}}
	if opt.SelfUnit || opt.SelfMember {
		if err := s.attachEdges(records, opt); err != nil {
			return nil, err
		}
	}
	return &records[0], nil
}

// GetGroupFullName 沿上级边回溯到根，拼出组的全名
// 多上级（歧义数据）时返回每条可能的路径；IDs为根到自身的组id
func (s *GroupService) GetGroupFullName(id uint) ([]models.GroupPath, error) {
	// 部分路径：chain从自身到当前节点，names是对应的组名
	type partial struct {
		chain []uint
		names []string
	}
	stack := []partial{{chain: []uint{id}}}

	var paths []models.GroupPath
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		currentID := cur.chain[len(cur.chain)-1]

		var group models.Group
		if err := s.db.First(&group, currentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, errors.ErrNotFound
			}
			return nil, err
		}
		names := append(append([]string(nil), cur.names...), group.Name)

		var edges []models.GroupMember
		if err := s.db.Where("member_id = ?", currentID).Find(&edges).Error; err != nil {
			return nil, err
		}
		if len(edges) == 0 {
			// 到根了，chain是自身到根，翻转成根到自身
			ids := make([]uint, len(cur.chain))
			for i, gid := range cur.chain {
				ids[len(ids)-1-i] = gid
			}
			paths = append(paths, models.GroupPath{
				FullName: strings.Join(names, "/"),
				IDs:      ids,
			})
			continue
		}
		for i := len(edges) - 1; i >= 0; i-- {
			upper := edges[i].UnitID
			onPath := false
			for _, gid := range cur.chain {
				if gid == upper {
					onPath = true
					break
				}
			}
			if onPath {
				// 上级边成环，终止这条路径
				continue
			}
			stack = append(stack, partial{
				chain: append(append([]uint(nil), cur.chain...), upper),
				names: names,
			})
		}
	}
	return paths, nil
}

// ========== 删除 ==========

// Remove 按全名删除组
// 有下级且未指定recursive时拒绝删除；recursive时深度优先级联，
// 先删边后删行，整个级联在一个事务内完成；返回删除的组行数
func (s *GroupService) Remove(fullname string, recursive bool) (int64, error) {
	groupMap, err := s.FindGroupMapByName(fullname, LookupOption{SelfMember: true})
	if err != nil {
		return 0, err
	}
	lookup, ok := groupMap[fullname]
	if !ok || lookup.Empty() {
		return 0, nil
	}
	group := lookup.first()

	if len(group.Members) == 0 {
		err := s.db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("member_id = ?", group.ID).Delete(&models.GroupMember{}).Error; err != nil {
				return err
			}
			if err := tx.Where("group_id = ?", group.ID).Delete(&models.UserGroup{}).Error; err != nil {
				return err
			}
			return tx.Delete(&models.Group{}, group.ID).Error
		})
		if err != nil {
			return 0, err
		}
		return 1, nil
	}

	if !recursive {
		return 0, errors.ErrHasMembers
	}

	var count int64
	err = s.db.Transaction(func(tx *gorm.DB) error {
		visited := map[uint]bool{group.ID: true}
		for _, m := range group.Members {
			visited[m] = true
		}
		deleted, err := removeDescendants(tx, group.Members, visited)
		if err != nil {
			return err
		}
		count = deleted

		if err := tx.Where("member_id = ? OR unit_id = ?", group.ID, group.ID).Delete(&models.GroupMember{}).Error; err != nil {
			return err
		}
		if err := tx.Where("group_id = ?", group.ID).Delete(&models.UserGroup{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Group{}, group.ID).Error; err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// removeDescendants 深度优先删除一批组和它们的全部后代
// visited防止环状边导致的重复删除和死循环
func removeDescendants(tx *gorm.DB, ids []uint, visited map[uint]bool) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	var edges []models.GroupMember
	if err := tx.Where("unit_id IN ?", ids).Find(&edges).Error; err != nil {
		return 0, err
	}
	var next []uint
	for _, e := range edges {
		if visited[e.MemberID] {
			continue
		}
		visited[e.MemberID] = true
		next = append(next, e.MemberID)
	}

	count, err := removeDescendants(tx, next, visited)
	if err != nil {
		return count, err
	}

	if err := tx.Where("member_id IN ? OR unit_id IN ?", ids, ids).Delete(&models.GroupMember{}).Error; err != nil {
		return count, err
	}
	if err := tx.Where("group_id IN ?", ids).Delete(&models.UserGroup{}).Error; err != nil {
		return count, err
	}
	result := tx.Where("id IN ?", ids).Delete(&models.Group{})
	if result.Error != nil {
		return count, result.Error
	}
	return count + result.RowsAffected, nil
}

// RemoveMany 逐个删除多个全名并累计行数
// 各全名的删除相互独立，单个失败不回滚其余
func (s *GroupService) RemoveMany(fullnames []string, recursive bool) (int64, error) {
	var count int64
	for _, fullname := range fullnames {
		deleted, err := s.Remove(fullname, recursive)
		count += deleted
		if err != nil {
			return count, err
		}
	}
	return count, nil
}

// ========== 成员关系 ==========

// ListGroupsOfUser 用户的组闭包
// 直接归属的组先查出，再沿上级边逐层向上展开（下级组的成员同时视为
// 全部祖先组的成员），已发现的id不会再次进队，环状数据自然终止
func (s *GroupService) ListGroupsOfUser(userID uint) ([]uint, error) {
	var direct []models.UserGroup
	if err := s.db.Where("user_id = ?", userID).Find(&direct).Error; err != nil {
		return nil, err
	}

	discovered := make(map[uint]bool, len(direct))
	frontier := make([]uint, 0, len(direct))
	for _, ug := range direct {
		if !discovered[ug.GroupID] {
			discovered[ug.GroupID] = true
			frontier = append(frontier, ug.GroupID)
		}
	}

	groups := append([]uint{}, frontier...)
	for len(frontier) > 0 {
		var edges []models.GroupMember
		if err := s.db.Where("member_id IN ?", frontier).Find(&edges).Error; err != nil {
			return nil, err
		}
		frontier = frontier[:0]
		for _, e := range edges {
			if discovered[e.UnitID] {
				continue
			}
			discovered[e.UnitID] = true
			frontier = append(frontier, e.UnitID)
			groups = append(groups, e.UnitID)
		}
	}
	return groups, nil
}

// AppendUser 把用户批量加入组，重复的成员关系直接跳过
func (s *GroupService) AppendUser(userIDs []uint, groupID uint) (int64, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}
	rows := make([]models.UserGroup, 0, len(userIDs))
	for _, userID := range userIDs {
		rows = append(rows, models.UserGroup{UserID: userID, GroupID: groupID})
	}
	result := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows)
	return result.RowsAffected, result.Error
}

// MoveUser 把用户从一个组移到另一个组，移出和加入在同一事务内完成
func (s *GroupService) MoveUser(userIDs []uint, fromGroupID, toGroupID uint) error {
	if len(userIDs) == 0 {
		return nil
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id IN ? AND group_id = ?", userIDs, fromGroupID).
			Delete(&models.UserGroup{}).Error; err != nil {
			return err
		}
		rows := make([]models.UserGroup, 0, len(userIDs))
		for _, userID := range userIDs {
			rows = append(rows, models.UserGroup{UserID: userID, GroupID: toGroupID})
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
	})
}

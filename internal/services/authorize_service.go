package services

import (
	"fmt"
	"net/http"

	"upam/internal/models"
	apperrors "upam/pkg/errors"

	"gorm.io/gorm"
)

// AuthorizeService 授权解析器
// 把认证身份解析成组闭包和应用内角色闭包，按用户/组/角色三个维度
// 独立匹配授权记录，并成一份有效特权集后与动作要求的最低特权比较
type AuthorizeService struct {
	db         *gorm.DB
	groups     *GroupService
	roles      *RoleService
	privileges *PrivilegeService
	resources  *ResourceService
}

func NewAuthorizeService(db *gorm.DB) *AuthorizeService {
	return &AuthorizeService{
		db:         db,
		groups:     NewGroupService(db),
		roles:      NewRoleService(db),
		privileges: NewPrivilegeService(db),
		resources:  NewResourceService(db),
	}
}

// ForbiddenError 特权不足，报文里点名所需特权和应用
type ForbiddenError struct {
	Privilege   models.Privilege
	Application string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("无权在应用(%s)上执行%s", e.Application, e.Privilege)
}

// Identify 构建请求期身份：组闭包立即解析，角色留到访问应用时再解析
func (s *AuthorizeService) Identify(userID uint) (*models.Identity, error) {
	groups, err := s.groups.ListGroupsOfUser(userID)
	if err != nil {
		return nil, err
	}
	return &models.Identity{
		UserID: userID,
		Groups: groups,
		Roles:  make(map[uint][]uint),
	}, nil
}

// RequiredPrivilege HTTP动词到最低所需特权的固定映射
func RequiredPrivilege(method string) models.Privilege {
	switch method {
	case http.MethodGet:
		return models.PrivilegeReadResource
	case http.MethodPost:
		return models.PrivilegeCreateResource
	case http.MethodPut, http.MethodPatch:
		return models.PrivilegeModifyResource
	case http.MethodDelete:
		return models.PrivilegeDeleteResource
	default:
		return models.PrivilegeNone
	}
}

// EffectivePrivileges 三个身份维度各自过滤授予记录后并成一个特权集
// 用户维度按本人id匹配，组维度按组闭包匹配，
// 角色维度只用该应用下已解析的角色闭包匹配
func (s *AuthorizeService) EffectivePrivileges(applicationID uint, identity *models.Identity) ([]models.Privilege, error) {
	assignments, err := s.privileges.ListPrivilegeAssignments(applicationID)
	if err != nil {
		return nil, err
	}

	set := make(map[models.Privilege]bool)

	for _, a := range assignments.User {
		if a.UserID == identity.UserID {
			set[a.Privilege] = true
		}
	}

	groups := make(map[uint]bool, len(identity.Groups))
	for _, id := range identity.Groups {
		groups[id] = true
	}
	for _, a := range assignments.Group {
		if groups[a.GroupID] {
			set[a.Privilege] = true
		}
	}

	roles := make(map[uint]bool)
	for _, id := range identity.RolesOf(applicationID) {
		roles[id] = true
	}
	for _, a := range assignments.Role {
		if roles[a.RoleID] {
			set[a.Privilege] = true
		}
	}

	privileges := make([]models.Privilege, 0, len(set))
	for p := range set {
		privileges = append(privileges, p)
	}
	return privileges, nil
}

// AuthorizeApplication 按应用授权一次请求
// 应用不存在返回ErrNotFound；动作无需特权时直接放行（不查授予记录）；
// 有效特权集不含所需级别时返回ForbiddenError
func (s *AuthorizeService) AuthorizeApplication(identity *models.Identity, applicationName, method string) (*models.Application, *models.PrivilegeState, error) {
	var application models.Application
	if err := s.db.Where("name = ?", applicationName).First(&application).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, fmt.Errorf("应用(%s)不存在: %w", applicationName, apperrors.ErrNotFound)
		}
		return nil, nil, err
	}

	// 角色闭包 = 本人直接持有的 ∪ 所属各组持有的，各自再沿继承边展开
	userRoles, err := s.roles.ListRolesOfUser(application.ID, identity.UserID)
	if err != nil {
		return nil, nil, err
	}
	groupRoles, err := s.roles.ListRolesOfGroups(application.ID, identity.Groups)
	if err != nil {
		return nil, nil, err
	}
	seen := make(map[uint]bool, len(userRoles)+len(groupRoles))
	roles := make([]uint, 0, len(userRoles)+len(groupRoles))
	for _, id := range append(userRoles, groupRoles...) {
		if !seen[id] {
			seen[id] = true
			roles = append(roles, id)
		}
	}
	if identity.Roles == nil {
		identity.Roles = make(map[uint][]uint)
	}
	identity.Roles[application.ID] = roles

	state := &models.PrivilegeState{ApplicationID: application.ID}

	required := RequiredPrivilege(method)
	if required == models.PrivilegeNone {
		return &application, state, nil
	}

	effective, err := s.EffectivePrivileges(application.ID, identity)
	if err != nil {
		return nil, nil, err
	}
	if !models.ContainsPrivilege(effective, required) {
		return nil, nil, &ForbiddenError{Privilege: required, Application: application.Name}
	}

	state.Grant = effective
	return &application, state, nil
}

// AuthorizeResource 资源级细化
// 没有任何ACL行的资源不做过滤，返回nil；有ACL时先按用户、再按组、
// 再按角色匹配标志位，reader给读、author给删，两个标志都凑齐就提前返回
func (s *AuthorizeService) AuthorizeResource(resourceID, applicationID uint, identity *models.Identity) (*models.ResourceGrant, error) {
	resource, err := s.resources.FindResourceACL(resourceID)
	if apperrors.Is(err, apperrors.ErrNotFound) {
		// 资源行缺失按无限制处理，特权回落到授予记录
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(resource.UserACLs) == 0 && len(resource.GroupACLs) == 0 && len(resource.RoleACLs) == 0 {
		return nil, nil
	}

	grant := &models.ResourceGrant{ResourceID: resourceID}
	set := make(map[models.Privilege]bool)
	collect := func(reader, author bool) bool {
		if reader {
			set[models.PrivilegeReadResource] = true
		}
		if author {
			set[models.PrivilegeDeleteResource] = true
		}
		return len(set) == 2
	}
	assemble := func() *models.ResourceGrant {
		for p := range set {
			grant.Grant = append(grant.Grant, p)
		}
		return grant
	}

	for _, acl := range resource.UserACLs {
		if acl.UserID == identity.UserID && collect(acl.Reader, acl.Author) {
			return assemble(), nil
		}
	}

	groups := make(map[uint]bool, len(identity.Groups))
	for _, id := range identity.Groups {
		groups[id] = true
	}
	for _, acl := range resource.GroupACLs {
		if groups[acl.GroupID] && collect(acl.Reader, acl.Author) {
			return assemble(), nil
		}
	}

	roles := make(map[uint]bool)
	for _, id := range identity.RolesOf(applicationID) {
		roles[id] = true
	}
	for _, acl := range resource.RoleACLs {
		if roles[acl.RoleID] && collect(acl.Reader, acl.Author) {
			return assemble(), nil
		}
	}

	return assemble(), nil
}

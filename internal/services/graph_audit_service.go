package services

import (
	"fmt"

	"upam/internal/models"
	"upam/pkg/config"
	"upam/pkg/logger"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// GraphAuditService 关系图巡检服务
// 组的挂靠边和角色的继承边允许写入成环，遍历算法用已发现集保证终止，
// 这里按计划任务定期扫一遍全图，发现环就告警留痕，供管理员手工拆解
type GraphAuditService struct {
	db   *gorm.DB
	cron *cron.Cron
}

func NewGraphAuditService(db *gorm.DB) *GraphAuditService {
	return &GraphAuditService{
		db:   db,
		cron: cron.New(),
	}
}

// Start 按配置的cron表达式启动巡检
func (s *GraphAuditService) Start(cfg *config.AuditConfig) error {
	if cfg.Disabled {
		logger.GetLogger().Info("关系图巡检已禁用")
		return nil
	}
	if _, err := s.cron.AddFunc(cfg.CycleScanSpec, func() {
		if err := s.ScanOnce(); err != nil {
			logger.GetLogger().WithError(err).Error("关系图巡检失败")
		}
	}); err != nil {
		return fmt.Errorf("注册巡检任务失败: %v", err)
	}
	s.cron.Start()
	logger.GetLogger().WithField("spec", cfg.CycleScanSpec).Info("关系图巡检已启动")
	return nil
}

// Stop 停止巡检并等待在跑的任务结束
func (s *GraphAuditService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// CycleReport 单次巡检发现的环
type CycleReport struct {
	GroupCycles [][]uint `json:"group_cycles"`
	RoleCycles  [][]uint `json:"role_cycles"`
}

// Scan 全量扫一遍组图和角色继承图，返回发现的环
func (s *GraphAuditService) Scan() (*CycleReport, error) {
	groupCycles, err := s.scanGroupCycles()
	if err != nil {
		return nil, err
	}
	roleCycles, err := s.scanRoleCycles()
	if err != nil {
		return nil, err
	}
	return &CycleReport{GroupCycles: groupCycles, RoleCycles: roleCycles}, nil
}

// ScanOnce 扫描一次并把发现的环记录到日志
func (s *GraphAuditService) ScanOnce() error {
	report, err := s.Scan()
	if err != nil {
		return err
	}

	log := logger.GetLogger()
	for _, cycle := range report.GroupCycles {
		log.WithField("cycle", cycle).Warn("组挂靠关系存在环")
	}
	for _, cycle := range report.RoleCycles {
		log.WithField("cycle", cycle).Warn("角色继承关系存在环")
	}
	if len(report.GroupCycles) == 0 && len(report.RoleCycles) == 0 {
		log.Debug("关系图巡检通过，未发现环")
	}
	return nil
}

// scanGroupCycles 扫描组挂靠边，边方向为成员指向上级
func (s *GraphAuditService) scanGroupCycles() ([][]uint, error) {
	var edges []models.GroupMember
	if err := s.db.Find(&edges).Error; err != nil {
		return nil, err
	}
	adjacency := make(map[uint][]uint)
	for _, e := range edges {
		adjacency[e.MemberID] = append(adjacency[e.MemberID], e.UnitID)
	}
	return findCycles(adjacency), nil
}

// scanRoleCycles 扫描角色继承边，边方向为角色指向被继承者
func (s *GraphAuditService) scanRoleCycles() ([][]uint, error) {
	var edges []models.RoleInherit
	if err := s.db.Find(&edges).Error; err != nil {
		return nil, err
	}
	adjacency := make(map[uint][]uint)
	for _, e := range edges {
		adjacency[e.RoleID] = append(adjacency[e.RoleID], e.AssignorID)
	}
	return findCycles(adjacency), nil
}

// findCycles 三色标记法找有向图中的环，返回每个环上的节点序列
func findCycles(adjacency map[uint][]uint) [][]uint {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[uint]int)
	var cycles [][]uint

	// 显式栈的深度优先，frame记录下一条待探的出边
	type frame struct {
		node uint
		next int
	}

	for start := range adjacency {
		if color[start] != white {
			continue
		}
		color[start] = gray
		stack := []frame{{node: start}}
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			edges := adjacency[top.node]
			if top.next >= len(edges) {
				color[top.node] = black
				stack = stack[:len(stack)-1]
				continue
			}
			next := edges[top.next]
			top.next++
			switch color[next] {
			case white:
				color[next] = gray
				stack = append(stack, frame{node: next})
			case gray:
				// 栈上从next到当前节点这一段就是环
				for i := len(stack) - 1; i >= 0; i-- {
					if stack[i].node == next {
						cycle := make([]uint, 0, len(stack)-i)
						for _, f := range stack[i:] {
							cycle = append(cycle, f.node)
						}
						cycles = append(cycles, cycle)
						break
					}
				}
			}
		}
	}
	return cycles
}

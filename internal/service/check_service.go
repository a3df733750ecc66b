package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"electrohub-protection/internal/domain"
	"electrohub-protection/internal/protection"
	"electrohub-protection/internal/repository"
	"electrohub-protection/internal/store"
)

// CheckService 弧闪检查编排：加载点位上下文 → 解析上游脱扣时间 → 纯计算 → 持久化
// 曲线生成复用同样的上下文解析，结果 JSON 缓存在 KV（参数更新时失效）
type CheckService interface {
	RunCheck(ctx context.Context, req PointRequest) (*CheckResult, error)
	GenerateCurve(ctx context.Context, req PointRequest) (*CurveResult, error)
}

// PointRequest 点位定位（site 即租户）
type PointRequest struct {
	Site          string
	SwitchboardID string
	DeviceID      string
}

// Validate 必填标识校验
func (r PointRequest) Validate() error {
	if r.Site == "" || r.SwitchboardID == "" || r.DeviceID == "" {
		return fmt.Errorf("%w: site, switchboard and device are required", ErrValidation)
	}
	return nil
}

// CheckResult 检查结果（响应载荷）
type CheckResult struct {
	Status            string                `json:"status"`
	IncidentEnergyCal float64               `json:"incident_energy"`
	PPECategory       int                   `json:"ppe_category"`
	Details           string                `json:"details,omitempty"`
	Missing           []string              `json:"missing,omitempty"`
	Remediation       []string              `json:"remediation,omitempty"`
	RiskZones         []protection.RiskZone `json:"riskZones"`
}

// 静态整改建议（at-risk 时返回）
var remediationHints = []string{
	"Increase the working distance or use remote operation for switching tasks.",
	"Reduce the upstream clearing time (lower tsd/tr settings) to cut arc duration.",
	"Verify the selectivity chain: a closer instantaneous pickup shortens arcing time.",
	"Consider arc-resistant switchgear or additional PPE for this location.",
}

type checkService struct {
	devicesRepo repository.DevicesRepository
	arcRepo     repository.ArcFlashRepository
	kv          store.KV
	cacheTTL    time.Duration
	logger      *zap.Logger
}

// NewCheckService 创建 CheckService 实例
// kv 可为 nil（禁用曲线缓存）
func NewCheckService(devicesRepo repository.DevicesRepository, arcRepo repository.ArcFlashRepository, kv store.KV, cacheTTL time.Duration, logger *zap.Logger) CheckService {
	return &checkService{
		devicesRepo: devicesRepo,
		arcRepo:     arcRepo,
		kv:          kv,
		cacheTTL:    cacheTTL,
		logger:      logger,
	}
}

// pointContext 一次检查需要的全部输入
type pointContext struct {
	device   *domain.Device
	params   *domain.ArcFlashParameters
	voltageV float64
	voltOK   bool
	faultKA  float64
	faultOK  bool
}

// loadPointContext 加载设备、参数并解析电压/故障电流
// 故障电流优先级：fault_levels 记录 → 参数兜底值 → 分断能力额定值
// 电压优先级：设备额定电压 → 配电柜母线电压
func (s *checkService) loadPointContext(ctx context.Context, req PointRequest) (*pointContext, error) {
	device, err := s.devicesRepo.GetDevice(ctx, req.Site, req.DeviceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPointNotFound
		}
		return nil, fmt.Errorf("load device: %w", err)
	}
	if device.SwitchboardID != req.SwitchboardID {
		return nil, ErrPointNotFound
	}

	pc := &pointContext{device: device}

	params, err := s.arcRepo.GetParameters(ctx, req.Site, req.SwitchboardID, req.DeviceID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("load parameters: %w", err)
		}
		params = domain.NewDefaultParameters(req.Site, req.SwitchboardID, req.DeviceID)
	}
	pc.params = params

	if device.VoltageV.Valid && device.VoltageV.Float64 > 0 {
		pc.voltageV, pc.voltOK = device.VoltageV.Float64, true
	} else if sb, err := s.devicesRepo.GetSwitchboard(ctx, req.Site, req.SwitchboardID); err == nil {
		if sb.VoltageV.Valid && sb.VoltageV.Float64 > 0 {
			pc.voltageV, pc.voltOK = sb.VoltageV.Float64, true
		}
	}

	if fl, err := s.devicesRepo.GetFaultLevel(ctx, req.Site, req.SwitchboardID); err == nil && fl.FaultKA > 0 {
		pc.faultKA, pc.faultOK = fl.FaultKA, true
	} else if params.FaultCurrentKA.Valid && params.FaultCurrentKA.Float64 > 0 {
		pc.faultKA, pc.faultOK = params.FaultCurrentKA.Float64, true
	} else if device.BreakingKA.Valid && device.BreakingKA.Float64 > 0 {
		pc.faultKA, pc.faultOK = device.BreakingKA.Float64, true
	}

	return pc, nil
}

// resolveArcingTime 上游解析（一跳）：上游设备在下游故障电流下的脱扣时间
// 有限值覆盖存储的兜底燃弧时间；无上游或不脱扣时保持兜底值
func (s *checkService) resolveArcingTime(ctx context.Context, pc *pointContext) float64 {
	fallback := pc.params.ArcingTimeS
	if pc.device.IsMainIncoming || !pc.device.ParentID.Valid {
		return fallback
	}

	parent, err := s.devicesRepo.GetDevice(ctx, pc.device.Site, pc.device.ParentID.String)
	if err != nil {
		s.logger.Warn("upstream device lookup failed, keeping stored arcing time",
			zap.String("site", pc.device.Site),
			zap.String("device_id", pc.device.DeviceID),
			zap.String("parent_id", pc.device.ParentID.String),
			zap.Error(err),
		)
		return fallback
	}

	tripS := protection.TripTime(parent.Settings, parent.RatedCurrentA, pc.faultKA*1000)
	if protection.NeverTrips(tripS) {
		return fallback
	}
	return tripS
}

// RunCheck 执行弧闪检查并持久化结果
// 电压或故障电流缺失是正常终态（status=incomplete），不是错误
func (s *checkService) RunCheck(ctx context.Context, req PointRequest) (*CheckResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	pc, err := s.loadPointContext(ctx, req)
	if err != nil {
		return nil, err
	}

	if !pc.voltOK || !pc.faultOK {
		return s.persistIncomplete(ctx, req, pc)
	}

	arcingTimeS := s.resolveArcingTime(ctx, pc)
	res := protection.ComputeArcFlash(
		pc.voltageV,
		pc.faultKA,
		arcingTimeS,
		pc.params.WorkingDistanceMM,
		pc.params.EnclosureType,
		pc.params.ElectrodeGapMM,
	)

	status := domain.CheckStatusAtRisk
	if res.PPECategory <= 2 {
		status = domain.CheckStatusSafe
	}

	details := fmt.Sprintf("E=%.2f cal/cm² at %.0fmm (Ibf=%.1fkA, t=%.3fs, %s, gap %.0fmm)",
		res.IncidentEnergyCal, pc.params.WorkingDistanceMM, pc.faultKA, arcingTimeS,
		pc.params.EnclosureType, pc.params.ElectrodeGapMM)

	check := &domain.ArcFlashCheck{
		DeviceID:          req.DeviceID,
		SwitchboardID:     req.SwitchboardID,
		Site:              req.Site,
		IncidentEnergyCal: res.IncidentEnergyCal,
		PPECategory:       res.PPECategory,
		Status:            status,
		Details:           sql.NullString{String: details, Valid: true},
	}
	if err := s.arcRepo.UpsertCheck(ctx, check); err != nil {
		s.logger.Error("UpsertCheck failed",
			zap.String("site", req.Site),
			zap.String("device_id", req.DeviceID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to persist check")
	}

	out := &CheckResult{
		Status:            status,
		IncidentEnergyCal: res.IncidentEnergyCal,
		PPECategory:       res.PPECategory,
		Details:           details,
		RiskZones:         []protection.RiskZone{},
	}
	if res.RiskZone != nil {
		out.RiskZones = append(out.RiskZones, *res.RiskZone)
	}
	if status == domain.CheckStatusAtRisk {
		out.Remediation = remediationHints
	}

	s.logger.Info("arc flash check completed",
		zap.String("site", req.Site),
		zap.String("device_id", req.DeviceID),
		zap.Float64("incident_energy", res.IncidentEnergyCal),
		zap.Int("ppe_category", res.PPECategory),
		zap.String("status", status),
	)
	return out, nil
}

// persistIncomplete 缺失物理输入时的正常终态：能量=0、PPE=0、status=incomplete
func (s *checkService) persistIncomplete(ctx context.Context, req PointRequest, pc *pointContext) (*CheckResult, error) {
	missing := []string{}
	switch {
	case !pc.voltOK && !pc.faultOK:
		missing = append(missing, "voltage_v or fault_current_ka")
	case !pc.voltOK:
		missing = append(missing, "voltage_v")
	default:
		missing = append(missing, "fault_current_ka")
	}

	check := &domain.ArcFlashCheck{
		DeviceID:      req.DeviceID,
		SwitchboardID: req.SwitchboardID,
		Site:          req.Site,
		Status:        domain.CheckStatusIncomplete,
		Details:       sql.NullString{String: "missing: " + missing[0], Valid: true},
	}
	if err := s.arcRepo.UpsertCheck(ctx, check); err != nil {
		s.logger.Error("UpsertCheck (incomplete) failed",
			zap.String("site", req.Site),
			zap.String("device_id", req.DeviceID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to persist check")
	}

	return &CheckResult{
		Status:    domain.CheckStatusIncomplete,
		Missing:   missing,
		RiskZones: []protection.RiskZone{},
	}, nil
}

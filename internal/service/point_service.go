package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"electrohub-protection/internal/domain"
	"electrohub-protection/internal/repository"
	"electrohub-protection/internal/store"
)

// PointService 点位列表、参数更新与租户重置
type PointService interface {
	ListPoints(ctx context.Context, req ListPointsRequest) (*ListPointsResponse, error)
	UpdateParameters(ctx context.Context, req UpdateParametersRequest) (*UpdateParametersResponse, error)
	Reset(ctx context.Context, site string) error
}

type pointService struct {
	devicesRepo repository.DevicesRepository
	arcRepo     repository.ArcFlashRepository
	kv          store.KV
	logger      *zap.Logger
}

// NewPointService 创建 PointService 实例（kv 可为 nil）
func NewPointService(devicesRepo repository.DevicesRepository, arcRepo repository.ArcFlashRepository, kv store.KV, logger *zap.Logger) PointService {
	return &pointService{
		devicesRepo: devicesRepo,
		arcRepo:     arcRepo,
		kv:          kv,
		logger:      logger,
	}
}

// ListPointsRequest 点位列表请求
type ListPointsRequest struct {
	Site          string // 必填
	Query         string // 可选：设备名模糊搜索
	SwitchboardID string
	Building      string
	Floor         string
	Sort          string
	Dir           string
	Page          int // 默认 1
	PageSize      int // 默认 20
}

// ListPointsResponse 点位列表响应
type ListPointsResponse struct {
	Items []*repository.PointRow
	Total int
}

func (s *pointService) ListPoints(ctx context.Context, req ListPointsRequest) (*ListPointsResponse, error) {
	if req.Site == "" {
		return nil, fmt.Errorf("%w: site is required", ErrValidation)
	}

	filters := repository.PointFilters{
		Query:         strings.TrimSpace(req.Query),
		SwitchboardID: strings.TrimSpace(req.SwitchboardID),
		Building:      strings.TrimSpace(req.Building),
		Floor:         strings.TrimSpace(req.Floor),
		Sort:          req.Sort,
		Dir:           req.Dir,
	}

	page := req.Page
	if page <= 0 {
		page = 1
	}
	size := req.PageSize
	if size <= 0 {
		size = 20
	}

	items, total, err := s.devicesRepo.ListPoints(ctx, req.Site, filters, page, size)
	if err != nil {
		s.logger.Error("ListPoints failed",
			zap.String("site", req.Site),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to list points")
	}
	return &ListPointsResponse{Items: items, Total: total}, nil
}

// SettingsPayload 整定值更新载荷（仅提供的字段会写入，其余清空为缺省）
type SettingsPayload struct {
	Ir  *float64 `json:"ir"`
	Tr  *float64 `json:"tr"`
	Isd *float64 `json:"isd"`
	Tsd *float64 `json:"tsd"`
	Ii  *float64 `json:"ii"`
}

func (p *SettingsPayload) toDomain() domain.ProtectionSettings {
	s := domain.ProtectionSettings{}
	if p.Ir != nil {
		s.Ir = sql.NullFloat64{Float64: *p.Ir, Valid: true}
	}
	if p.Tr != nil {
		s.Tr = sql.NullFloat64{Float64: *p.Tr, Valid: true}
	}
	if p.Isd != nil {
		s.Isd = sql.NullFloat64{Float64: *p.Isd, Valid: true}
	}
	if p.Tsd != nil {
		s.Tsd = sql.NullFloat64{Float64: *p.Tsd, Valid: true}
	}
	if p.Ii != nil {
		s.Ii = sql.NullFloat64{Float64: *p.Ii, Valid: true}
	}
	return s
}

// UpdateParametersRequest 参数更新请求（POST /parameters 的 body）
type UpdateParametersRequest struct {
	Site          string `json:"site"`
	DeviceID      string `json:"device_id"`
	SwitchboardID string `json:"switchboard_id"`

	WorkingDistanceMM *float64 `json:"working_distance"`
	EnclosureType     *string  `json:"enclosure_type"`
	ElectrodeGapMM    *float64 `json:"electrode_gap"`
	ArcingTimeS       *float64 `json:"arcing_time"`
	FaultCurrentKA    *float64 `json:"fault_current_ka"`

	Settings *SettingsPayload `json:"settings"`
	ParentID *string          `json:"parent_id"` // 空字符串表示清除上游链接
}

// UpdateParametersResponse 参数更新响应
type UpdateParametersResponse struct {
	Params *domain.ArcFlashParameters
}

// UpdateParameters upsert 弧闪参数，并按需回写设备整定值/上游链接
// parent 必须指向同租户内存在且不同于本设备的设备；任何深度的环都拒绝
// 更新后本设备及其直接下游的检查结果标记为 incomplete，相关缓存失效
func (s *pointService) UpdateParameters(ctx context.Context, req UpdateParametersRequest) (*UpdateParametersResponse, error) {
	if req.Site == "" || req.DeviceID == "" || req.SwitchboardID == "" {
		return nil, fmt.Errorf("%w: site, device_id and switchboard_id are required", ErrValidation)
	}
	if req.EnclosureType != nil && !domain.IsValidEnclosure(*req.EnclosureType) {
		return nil, fmt.Errorf("%w: unknown enclosure_type %q", ErrValidation, *req.EnclosureType)
	}

	device, err := s.devicesRepo.GetDevice(ctx, req.Site, req.DeviceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPointNotFound
		}
		return nil, fmt.Errorf("load device: %w", err)
	}

	// 1. 合并参数（已有记录或缺省值为基底）
	params, err := s.arcRepo.GetParameters(ctx, req.Site, req.SwitchboardID, req.DeviceID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("load parameters: %w", err)
		}
		params = domain.NewDefaultParameters(req.Site, req.SwitchboardID, req.DeviceID)
	}
	if req.WorkingDistanceMM != nil {
		params.WorkingDistanceMM = *req.WorkingDistanceMM
	}
	if req.EnclosureType != nil {
		params.EnclosureType = *req.EnclosureType
	}
	if req.ElectrodeGapMM != nil {
		params.ElectrodeGapMM = *req.ElectrodeGapMM
	}
	if req.ArcingTimeS != nil {
		params.ArcingTimeS = *req.ArcingTimeS
	}
	if req.FaultCurrentKA != nil {
		params.FaultCurrentKA = sql.NullFloat64{Float64: *req.FaultCurrentKA, Valid: true}
	}
	if err := s.arcRepo.UpsertParameters(ctx, params); err != nil {
		s.logger.Error("UpsertParameters failed",
			zap.String("site", req.Site),
			zap.String("device_id", req.DeviceID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to save parameters")
	}

	// 2. 整定值回写
	if req.Settings != nil {
		if err := s.devicesRepo.UpdateDeviceSettings(ctx, req.Site, req.DeviceID, req.Settings.toDomain()); err != nil {
			return nil, fmt.Errorf("update settings: %w", err)
		}
	}

	// 3. 上游链接回写（含环检测）
	if req.ParentID != nil {
		if err := s.updateParent(ctx, device, *req.ParentID); err != nil {
			return nil, err
		}
	}

	// 4. 依赖的选择性结果过期：本设备 + 直接下游
	if err := s.invalidatePoint(ctx, req.Site, req.SwitchboardID, req.DeviceID); err != nil {
		s.logger.Warn("invalidate dependents failed",
			zap.String("site", req.Site),
			zap.String("device_id", req.DeviceID),
			zap.Error(err),
		)
	}

	return &UpdateParametersResponse{Params: params}, nil
}

// updateParent 校验并写入上游链接
func (s *pointService) updateParent(ctx context.Context, device *domain.Device, parentID string) error {
	if parentID == "" {
		return s.devicesRepo.UpdateDeviceParent(ctx, device.Site, device.DeviceID, sql.NullString{})
	}
	if parentID == device.DeviceID {
		return fmt.Errorf("%w: device cannot be its own parent", ErrInvalidParent)
	}
	if device.IsMainIncoming {
		return fmt.Errorf("%w: main incoming device has no upstream", ErrInvalidParent)
	}

	parent, err := s.devicesRepo.GetDevice(ctx, device.Site, parentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: parent device %q not found in site", ErrInvalidParent, parentID)
		}
		return fmt.Errorf("load parent: %w", err)
	}

	// 环检测：沿候选上游的祖先链走，遇到本设备即成环
	visited := map[string]bool{device.DeviceID: true}
	cur := parent
	for {
		if visited[cur.DeviceID] {
			return fmt.Errorf("%w: via device %q", ErrParentCycle, cur.DeviceID)
		}
		visited[cur.DeviceID] = true
		if !cur.ParentID.Valid {
			break
		}
		next, err := s.devicesRepo.GetDevice(ctx, device.Site, cur.ParentID.String)
		if err != nil {
			break // 断链按无环处理
		}
		cur = next
	}

	return s.devicesRepo.UpdateDeviceParent(ctx, device.Site, device.DeviceID,
		sql.NullString{String: parentID, Valid: true})
}

// invalidatePoint 把设备及其直接下游的检查标记为 incomplete，并清相关缓存
func (s *pointService) invalidatePoint(ctx context.Context, site, switchboardID, deviceID string) error {
	affected := []string{deviceID}
	keys := []string{store.CurveKey(site, switchboardID, deviceID)}

	devices, err := s.devicesRepo.ListDevices(ctx, site)
	if err == nil {
		for _, d := range devices {
			if d.ParentID.Valid && d.ParentID.String == deviceID {
				affected = append(affected, d.DeviceID)
				keys = append(keys, store.CurveKey(site, d.SwitchboardID, d.DeviceID))
			}
		}
	}

	if err := s.arcRepo.MarkChecksIncomplete(ctx, site, affected); err != nil {
		return err
	}
	if s.kv != nil {
		if err := s.kv.Del(ctx, keys...); err != nil && !errors.Is(err, store.ErrMiss) {
			return err
		}
	}
	return nil
}

// Reset 删除租户的全部检查与参数（幂等），并清空缓存
func (s *pointService) Reset(ctx context.Context, site string) error {
	if site == "" {
		return fmt.Errorf("%w: site is required", ErrValidation)
	}
	if err := s.arcRepo.DeleteAllForSite(ctx, site); err != nil {
		s.logger.Error("Reset failed",
			zap.String("site", site),
			zap.Error(err),
		)
		return fmt.Errorf("failed to reset site data")
	}
	if s.kv != nil {
		if keys, err := s.kv.ScanKeys(ctx, store.SiteKeyPattern(site)); err == nil && len(keys) > 0 {
			_ = s.kv.Del(ctx, keys...)
		}
	}
	s.logger.Info("site arc flash data reset", zap.String("site", site))
	return nil
}

package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"electrohub-protection/internal/domain"
	"electrohub-protection/internal/repository"
)

// AutofillService 对租户设备做一次顺序补全扫描
type AutofillService interface {
	Autofill(ctx context.Context, req AutofillRequest) (*AutofillResponse, error)
}

// AutofillRequest 自动补全请求
type AutofillRequest struct {
	Site string `json:"site"`
}

// AutofillUpdate 单台设备的补全结果
type AutofillUpdate struct {
	DeviceID       string `json:"device_id"`
	DeviceName     string `json:"device_name"`
	ParentAssigned string `json:"parent_assigned,omitempty"`
	SettingsFilled bool   `json:"settings_filled"`
	Error          string `json:"error,omitempty"`
}

// AutofillResponse 自动补全响应
type AutofillResponse struct {
	Updates []AutofillUpdate `json:"updates"`
	Skipped int              `json:"skipped"`
	Failed  int              `json:"failed"`
}

type autofillService struct {
	devicesRepo repository.DevicesRepository
	assist      AssistClient
	logger      *zap.Logger
}

// NewAutofillService 创建 AutofillService 实例（assist 可为 nil，表示未启用 AI 助手）
func NewAutofillService(devicesRepo repository.DevicesRepository, assist AssistClient, logger *zap.Logger) AutofillService {
	return &autofillService{
		devicesRepo: devicesRepo,
		assist:      assist,
		logger:      logger,
	}
}

// Autofill 逐台处理：缺上游的启发式选父，缺整定值的请求 AI 建议
// 单台失败只记录并跳过，不影响其余设备
func (s *autofillService) Autofill(ctx context.Context, req AutofillRequest) (*AutofillResponse, error) {
	if req.Site == "" {
		return nil, fmt.Errorf("%w: site is required", ErrValidation)
	}

	devices, err := s.devicesRepo.ListDevices(ctx, req.Site)
	if err != nil {
		s.logger.Error("Autofill: list devices failed",
			zap.String("site", req.Site),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to list devices")
	}

	// 名称序保证扫描结果可复现
	sort.Slice(devices, func(i, j int) bool { return devices[i].Name < devices[j].Name })

	byID := make(map[string]*domain.Device, len(devices))
	for _, d := range devices {
		byID[d.DeviceID] = d
	}

	resp := &AutofillResponse{}
	for _, device := range devices {
		update := AutofillUpdate{DeviceID: device.DeviceID, DeviceName: device.Name}
		changed := false

		if !device.ParentID.Valid && !device.IsMainIncoming {
			if parent := s.pickUpstream(device, devices, byID); parent != nil {
				if err := s.devicesRepo.UpdateDeviceParent(ctx, req.Site, device.DeviceID,
					sql.NullString{String: parent.DeviceID, Valid: true}); err != nil {
					update.Error = fmt.Sprintf("assign parent: %v", err)
				} else {
					device.ParentID = sql.NullString{String: parent.DeviceID, Valid: true}
					update.ParentAssigned = parent.DeviceID
					changed = true
				}
			}
		}

		if update.Error == "" && !device.HasSettings() && s.assist != nil {
			if err := s.fillSettings(ctx, device, byID); err != nil {
				update.Error = fmt.Sprintf("suggest settings: %v", err)
			} else {
				update.SettingsFilled = true
				changed = true
			}
		}

		switch {
		case update.Error != "":
			resp.Failed++
			resp.Updates = append(resp.Updates, update)
			s.logger.Warn("Autofill: device skipped after error",
				zap.String("site", req.Site),
				zap.String("device_id", device.DeviceID),
				zap.String("error", update.Error),
			)
		case changed:
			resp.Updates = append(resp.Updates, update)
		default:
			resp.Skipped++
		}
	}

	s.logger.Info("autofill sweep finished",
		zap.String("site", req.Site),
		zap.Int("updated", len(resp.Updates)-resp.Failed),
		zap.Int("skipped", resp.Skipped),
		zap.Int("failed", resp.Failed),
	)
	return resp, nil
}

// pickUpstream 启发式上游候选：同配电柜、额定电流不小于本设备，
// 优先进线总开关，其次名称含 main/incomer/总 的设备，再次额定电流最小的可行者
func (s *autofillService) pickUpstream(device *domain.Device, devices []*domain.Device, byID map[string]*domain.Device) *domain.Device {
	var candidates []*domain.Device
	for _, c := range devices {
		if c.DeviceID == device.DeviceID || c.SwitchboardID != device.SwitchboardID {
			continue
		}
		if c.RatedCurrentA < device.RatedCurrentA {
			continue
		}
		if createsCycle(device.DeviceID, c, byID) {
			continue
		}
		candidates = append(candidates, c)
	}
	if len(candidates) == 0 {
		return nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.IsMainIncoming != b.IsMainIncoming {
			return a.IsMainIncoming
		}
		an, bn := looksLikeIncomer(a.Name), looksLikeIncomer(b.Name)
		if an != bn {
			return an
		}
		if a.RatedCurrentA != b.RatedCurrentA {
			return a.RatedCurrentA < b.RatedCurrentA
		}
		return a.Name < b.Name
	})
	return candidates[0]
}

func looksLikeIncomer(name string) bool {
	n := strings.ToLower(name)
	return strings.Contains(n, "main") || strings.Contains(n, "incom") || strings.Contains(n, "总")
}

// createsCycle 判断把 candidate 设为 deviceID 的上游是否成环
func createsCycle(deviceID string, candidate *domain.Device, byID map[string]*domain.Device) bool {
	visited := map[string]bool{deviceID: true}
	cur := candidate
	for cur != nil {
		if visited[cur.DeviceID] {
			return true
		}
		visited[cur.DeviceID] = true
		if !cur.ParentID.Valid {
			return false
		}
		cur = byID[cur.ParentID.String]
	}
	return false
}

// fillSettings 请求 AI 建议并写回设备整定值
func (s *autofillService) fillSettings(ctx context.Context, device *domain.Device, byID map[string]*domain.Device) error {
	req := SuggestSettingsRequest{
		Site:          device.Site,
		DeviceID:      device.DeviceID,
		DeviceName:    device.Name,
		RatedCurrentA: device.RatedCurrentA,
	}
	if device.BreakingKA.Valid {
		v := device.BreakingKA.Float64
		req.BreakingKA = &v
	}
	if device.VoltageV.Valid {
		v := device.VoltageV.Float64
		req.VoltageV = &v
	}
	if device.ParentID.Valid {
		if parent := byID[device.ParentID.String]; parent != nil {
			req.ParentName = parent.Name
		}
	}

	suggested, err := s.assist.SuggestSettings(ctx, req)
	if err != nil {
		return err
	}

	settings := domain.ProtectionSettings{}
	if suggested.Ir != nil {
		settings.Ir = sql.NullFloat64{Float64: *suggested.Ir, Valid: true}
	}
	if suggested.Tr != nil {
		settings.Tr = sql.NullFloat64{Float64: *suggested.Tr, Valid: true}
	}
	if suggested.Isd != nil {
		settings.Isd = sql.NullFloat64{Float64: *suggested.Isd, Valid: true}
	}
	if suggested.Tsd != nil {
		settings.Tsd = sql.NullFloat64{Float64: *suggested.Tsd, Valid: true}
	}
	if suggested.Ii != nil {
		settings.Ii = sql.NullFloat64{Float64: *suggested.Ii, Valid: true}
	}

	if err := s.devicesRepo.UpdateDeviceSettings(ctx, device.Site, device.DeviceID, settings); err != nil {
		return err
	}
	device.Settings = settings
	return nil
}

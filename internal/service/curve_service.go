package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"electrohub-protection/internal/protection"
	"electrohub-protection/internal/store"
)

// CurveResult 距离-能量曲线（可视化载荷）
type CurveResult struct {
	Curve []protection.CurvePoint `json:"curve"`
}

// GenerateCurve 生成点位的入射能量-距离曲线
// 曲线是当前存储参数的纯函数，响应 JSON 按点位缓存；参数更新/reset 时失效
func (s *checkService) GenerateCurve(ctx context.Context, req PointRequest) (*CurveResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	cacheKey := store.CurveKey(req.Site, req.SwitchboardID, req.DeviceID)
	if s.kv != nil {
		if cached, err := s.kv.Get(ctx, cacheKey); err == nil {
			var out CurveResult
			if err := json.Unmarshal([]byte(cached), &out); err == nil {
				return &out, nil
			}
			// 缓存内容损坏：忽略并重算
		}
	}

	pc, err := s.loadPointContext(ctx, req)
	if err != nil {
		return nil, err
	}
	if !pc.faultOK {
		// 无故障电流没法画曲线：返回空序列（与 incomplete 检查一致，不报错）
		return &CurveResult{Curve: []protection.CurvePoint{}}, nil
	}

	arcingTimeS := s.resolveArcingTime(ctx, pc)
	out := &CurveResult{
		Curve: protection.GenerateCurve(pc.faultKA, arcingTimeS, pc.params.EnclosureType, pc.params.ElectrodeGapMM),
	}

	if s.kv != nil {
		if payload, err := json.Marshal(out); err == nil {
			if err := s.kv.Set(ctx, cacheKey, string(payload), s.cacheTTL); err != nil {
				s.logger.Warn("curve cache write failed",
					zap.String("key", cacheKey),
					zap.Error(err),
				)
			}
		}
	}
	return out, nil
}

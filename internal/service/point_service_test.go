package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"electrohub-protection/internal/domain"
	"electrohub-protection/internal/repository"
	"electrohub-protection/internal/store"
)

func strPtr(s string) *string   { return &s }
func f64Ptr(v float64) *float64 { return &v }

func newTestPointService(repo *repository.MemoryRepo, kv store.KV) PointService {
	return NewPointService(repo, repo, kv, zap.NewNop())
}

func TestListPoints_RequiresSite(t *testing.T) {
	svc := newTestPointService(repository.NewMemoryRepo(), nil)
	_, err := svc.ListPoints(context.Background(), ListPointsRequest{})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestListPoints_FilterAndPaginate(t *testing.T) {
	repo := repository.NewMemoryRepo()
	site := "plant-a"
	sbID := repo.SeedSwitchboard(domain.Switchboard{Site: site, Name: "MSB-1"})
	for _, name := range []string{"F1 Lighting", "F2 HVAC", "F3 Lighting"} {
		repo.SeedDevice(domain.Device{Site: site, SwitchboardID: sbID, Name: name, RatedCurrentA: 100})
	}

	svc := newTestPointService(repo, nil)
	resp, err := svc.ListPoints(context.Background(), ListPointsRequest{Site: site, Query: "lighting"})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Total)
	require.Len(t, resp.Items, 2)

	resp, err = svc.ListPoints(context.Background(), ListPointsRequest{Site: site, Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Total)
	assert.Len(t, resp.Items, 1)
}

func TestUpdateParameters_MergesAndPersists(t *testing.T) {
	repo := repository.NewMemoryRepo()
	site := "plant-a"
	sbID := repo.SeedSwitchboard(domain.Switchboard{Site: site, Name: "MSB-1"})
	devID := repo.SeedDevice(domain.Device{Site: site, SwitchboardID: sbID, Name: "F1", RatedCurrentA: 250})

	svc := newTestPointService(repo, nil)
	ctx := context.Background()

	resp, err := svc.UpdateParameters(ctx, UpdateParametersRequest{
		Site: site, DeviceID: devID, SwitchboardID: sbID,
		WorkingDistanceMM: f64Ptr(600),
		EnclosureType:     strPtr(domain.EnclosureHCB),
	})
	require.NoError(t, err)
	assert.Equal(t, 600.0, resp.Params.WorkingDistanceMM)
	assert.Equal(t, domain.EnclosureHCB, resp.Params.EnclosureType)
	// 未提供的字段保持缺省
	assert.Equal(t, domain.DefaultElectrodeGapMM, resp.Params.ElectrodeGapMM)

	// 第二次更新只改间隙，已有的工作距离保留（合并而非覆盖）
	resp, err = svc.UpdateParameters(ctx, UpdateParametersRequest{
		Site: site, DeviceID: devID, SwitchboardID: sbID,
		ElectrodeGapMM: f64Ptr(40),
	})
	require.NoError(t, err)
	assert.Equal(t, 600.0, resp.Params.WorkingDistanceMM)
	assert.Equal(t, 40.0, resp.Params.ElectrodeGapMM)

	stored, err := repo.GetParameters(ctx, site, sbID, devID)
	require.NoError(t, err)
	assert.Equal(t, 40.0, stored.ElectrodeGapMM)
}

func TestUpdateParameters_RejectsUnknownEnclosure(t *testing.T) {
	repo := repository.NewMemoryRepo()
	site := "plant-a"
	sbID := repo.SeedSwitchboard(domain.Switchboard{Site: site, Name: "MSB-1"})
	devID := repo.SeedDevice(domain.Device{Site: site, SwitchboardID: sbID, Name: "F1", RatedCurrentA: 250})

	svc := newTestPointService(repo, nil)
	_, err := svc.UpdateParameters(context.Background(), UpdateParametersRequest{
		Site: site, DeviceID: devID, SwitchboardID: sbID,
		EnclosureType: strPtr("CUBE"),
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUpdateParameters_WritesSettings(t *testing.T) {
	repo := repository.NewMemoryRepo()
	site := "plant-a"
	sbID := repo.SeedSwitchboard(domain.Switchboard{Site: site, Name: "MSB-1"})
	devID := repo.SeedDevice(domain.Device{Site: site, SwitchboardID: sbID, Name: "F1", RatedCurrentA: 250})

	svc := newTestPointService(repo, nil)
	_, err := svc.UpdateParameters(context.Background(), UpdateParametersRequest{
		Site: site, DeviceID: devID, SwitchboardID: sbID,
		Settings: &SettingsPayload{Ir: f64Ptr(0.8), Tsd: f64Ptr(0.3)},
	})
	require.NoError(t, err)

	dev, err := repo.GetDevice(context.Background(), site, devID)
	require.NoError(t, err)
	require.True(t, dev.Settings.Ir.Valid)
	assert.Equal(t, 0.8, dev.Settings.Ir.Float64)
	assert.Equal(t, 0.3, dev.Settings.Tsd.Float64)
	assert.False(t, dev.Settings.Ii.Valid)
}

func TestUpdateParameters_ParentValidation(t *testing.T) {
	repo := repository.NewMemoryRepo()
	site := "plant-a"
	sbID := repo.SeedSwitchboard(domain.Switchboard{Site: site, Name: "MSB-1"})
	a := repo.SeedDevice(domain.Device{Site: site, SwitchboardID: sbID, Name: "A", RatedCurrentA: 1000})
	b := repo.SeedDevice(domain.Device{Site: site, SwitchboardID: sbID, Name: "B", RatedCurrentA: 250})
	c := repo.SeedDevice(domain.Device{Site: site, SwitchboardID: sbID, Name: "C", RatedCurrentA: 100})
	repo.SeedDevice(domain.Device{Site: "plant-b", DeviceID: "foreign", SwitchboardID: "x", Name: "X", RatedCurrentA: 100})

	svc := newTestPointService(repo, nil)
	ctx := context.Background()

	// 自引用
	_, err := svc.UpdateParameters(ctx, UpdateParametersRequest{
		Site: site, DeviceID: a, SwitchboardID: sbID, ParentID: strPtr(a),
	})
	assert.ErrorIs(t, err, ErrInvalidParent)

	// 跨租户（同租户内不存在）
	_, err = svc.UpdateParameters(ctx, UpdateParametersRequest{
		Site: site, DeviceID: a, SwitchboardID: sbID, ParentID: strPtr("foreign"),
	})
	assert.ErrorIs(t, err, ErrInvalidParent)

	// 合法链 C→B→A
	_, err = svc.UpdateParameters(ctx, UpdateParametersRequest{
		Site: site, DeviceID: b, SwitchboardID: sbID, ParentID: strPtr(a),
	})
	require.NoError(t, err)
	_, err = svc.UpdateParameters(ctx, UpdateParametersRequest{
		Site: site, DeviceID: c, SwitchboardID: sbID, ParentID: strPtr(b),
	})
	require.NoError(t, err)

	// 直接环 A→B
	_, err = svc.UpdateParameters(ctx, UpdateParametersRequest{
		Site: site, DeviceID: a, SwitchboardID: sbID, ParentID: strPtr(b),
	})
	assert.ErrorIs(t, err, ErrParentCycle)

	// 深层环 A→C（C 的祖先链经 B 到 A）
	_, err = svc.UpdateParameters(ctx, UpdateParametersRequest{
		Site: site, DeviceID: a, SwitchboardID: sbID, ParentID: strPtr(c),
	})
	assert.ErrorIs(t, err, ErrParentCycle)

	// 空字符串清除链接
	_, err = svc.UpdateParameters(ctx, UpdateParametersRequest{
		Site: site, DeviceID: c, SwitchboardID: sbID, ParentID: strPtr(""),
	})
	require.NoError(t, err)
	dev, err := repo.GetDevice(ctx, site, c)
	require.NoError(t, err)
	assert.False(t, dev.ParentID.Valid)
}

func TestUpdateParameters_InvalidatesDependents(t *testing.T) {
	repo := repository.NewMemoryRepo()
	site := "plant-a"
	sbID := repo.SeedSwitchboard(domain.Switchboard{Site: site, Name: "MSB-1", VoltageV: nullF(400)})
	parent := repo.SeedDevice(domain.Device{Site: site, SwitchboardID: sbID, Name: "Q1", RatedCurrentA: 1000})
	child := repo.SeedDevice(domain.Device{Site: site, SwitchboardID: sbID, Name: "F1", RatedCurrentA: 250})
	repo.SeedFaultLevel(domain.FaultLevel{Site: site, SwitchboardID: sbID, FaultKA: 20})

	kv := newFakeKV()
	checkSvc := newTestCheckService(repo, kv)
	pointSvc := newTestPointService(repo, kv)
	ctx := context.Background()

	// 建立层级并跑出两个检查结果与一条缓存曲线
	_, err := pointSvc.UpdateParameters(ctx, UpdateParametersRequest{
		Site: site, DeviceID: child, SwitchboardID: sbID, ParentID: strPtr(parent),
	})
	require.NoError(t, err)
	_, err = checkSvc.RunCheck(ctx, PointRequest{Site: site, SwitchboardID: sbID, DeviceID: parent})
	require.NoError(t, err)
	_, err = checkSvc.RunCheck(ctx, PointRequest{Site: site, SwitchboardID: sbID, DeviceID: child})
	require.NoError(t, err)
	_, err = checkSvc.GenerateCurve(ctx, PointRequest{Site: site, SwitchboardID: sbID, DeviceID: child})
	require.NoError(t, err)

	// 更新上游参数：上游和直接下游的检查都应过期，下游曲线缓存被清掉
	_, err = pointSvc.UpdateParameters(ctx, UpdateParametersRequest{
		Site: site, DeviceID: parent, SwitchboardID: sbID,
		Settings: &SettingsPayload{Ii: f64Ptr(8)},
	})
	require.NoError(t, err)

	// incomplete 状态不能携带上一次的能量/PPE
	pCheck, err := repo.GetCheck(ctx, site, sbID, parent)
	require.NoError(t, err)
	assert.Equal(t, domain.CheckStatusIncomplete, pCheck.Status)
	assert.Zero(t, pCheck.IncidentEnergyCal)
	assert.Zero(t, pCheck.PPECategory)
	cCheck, err := repo.GetCheck(ctx, site, sbID, child)
	require.NoError(t, err)
	assert.Equal(t, domain.CheckStatusIncomplete, cCheck.Status)
	assert.Zero(t, cCheck.IncidentEnergyCal)
	assert.Zero(t, cCheck.PPECategory)

	_, err = kv.Get(ctx, store.CurveKey(site, sbID, child))
	assert.ErrorIs(t, err, store.ErrMiss)
}

func TestReset_ClearsSiteDataAndCache(t *testing.T) {
	repo := repository.NewMemoryRepo()
	site := "plant-a"
	sbID, devID := seedPoint(t, repo, site, 20)
	otherSB, otherDev := seedPoint(t, repo, "plant-b", 10)

	kv := newFakeKV()
	checkSvc := newTestCheckService(repo, kv)
	pointSvc := newTestPointService(repo, kv)
	ctx := context.Background()

	_, err := checkSvc.RunCheck(ctx, PointRequest{Site: site, SwitchboardID: sbID, DeviceID: devID})
	require.NoError(t, err)
	_, err = checkSvc.GenerateCurve(ctx, PointRequest{Site: site, SwitchboardID: sbID, DeviceID: devID})
	require.NoError(t, err)
	_, err = checkSvc.RunCheck(ctx, PointRequest{Site: "plant-b", SwitchboardID: otherSB, DeviceID: otherDev})
	require.NoError(t, err)

	require.NoError(t, pointSvc.Reset(ctx, site))

	_, err = repo.GetCheck(ctx, site, sbID, devID)
	assert.Error(t, err)
	// 其他租户不受影响
	_, err = repo.GetCheck(ctx, "plant-b", otherSB, otherDev)
	assert.NoError(t, err)

	// 幂等
	require.NoError(t, pointSvc.Reset(ctx, site))
	// 设备与配电柜保留
	devices, err := repo.ListDevices(ctx, site)
	require.NoError(t, err)
	assert.NotEmpty(t, devices)
}

func TestReset_RequiresSite(t *testing.T) {
	svc := newTestPointService(repository.NewMemoryRepo(), nil)
	assert.ErrorIs(t, svc.Reset(context.Background(), ""), ErrValidation)
}

// 编译期校验 fakeKV 实现 KV 接口
var _ store.KV = (*fakeKV)(nil)

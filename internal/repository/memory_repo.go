package repository

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"electrohub-protection/internal/domain"
)

// MemoryRepo: DB 未就绪时的联测实现，同时充当 service 单测的 fake
// - 按 site 隔离
// - IDs 使用 uuid（Seed 时未指定则生成）
// - 同时实现 DevicesRepository 和 ArcFlashRepository
type MemoryRepo struct {
	mu sync.RWMutex

	switchboards map[string]map[string]domain.Switchboard // site -> id -> switchboard
	devices      map[string]map[string]domain.Device      // site -> id -> device
	faults       map[string]map[string]domain.FaultLevel  // site -> switchboardID -> fault level

	params map[string]domain.ArcFlashParameters // composite key -> params
	checks map[string]domain.ArcFlashCheck      // composite key -> check
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		switchboards: map[string]map[string]domain.Switchboard{},
		devices:      map[string]map[string]domain.Device{},
		faults:       map[string]map[string]domain.FaultLevel{},
		params:       map[string]domain.ArcFlashParameters{},
		checks:       map[string]domain.ArcFlashCheck{},
	}
}

func pointKey(site, switchboardID, deviceID string) string {
	return site + "/" + switchboardID + "/" + deviceID
}

// ---- seeding（dev 联测 / 单测用）----

func (r *MemoryRepo) SeedSwitchboard(s domain.Switchboard) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.SwitchboardID == "" {
		s.SwitchboardID = uuid.NewString()
	}
	if r.switchboards[s.Site] == nil {
		r.switchboards[s.Site] = map[string]domain.Switchboard{}
	}
	r.switchboards[s.Site][s.SwitchboardID] = s
	return s.SwitchboardID
}

func (r *MemoryRepo) SeedDevice(d domain.Device) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d.DeviceID == "" {
		d.DeviceID = uuid.NewString()
	}
	if r.devices[d.Site] == nil {
		r.devices[d.Site] = map[string]domain.Device{}
	}
	r.devices[d.Site][d.DeviceID] = d
	return d.DeviceID
}

func (r *MemoryRepo) SeedFaultLevel(f domain.FaultLevel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.faults[f.Site] == nil {
		r.faults[f.Site] = map[string]domain.FaultLevel{}
	}
	r.faults[f.Site][f.SwitchboardID] = f
}

// ---- DevicesRepository ----

func (r *MemoryRepo) GetDevice(_ context.Context, site, deviceID string) (*domain.Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.devices[site][deviceID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := d
	return &cp, nil
}

func (r *MemoryRepo) GetSwitchboard(_ context.Context, site, switchboardID string) (*domain.Switchboard, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.switchboards[site][switchboardID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := s
	return &cp, nil
}

func (r *MemoryRepo) ListDevices(_ context.Context, site string) ([]*domain.Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*domain.Device{}
	for _, d := range r.devices[site] {
		cp := d
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MemoryRepo) ListPoints(_ context.Context, site string, filters PointFilters, page, size int) ([]*PointRow, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows := []*PointRow{}
	for _, d := range r.devices[site] {
		if filters.Query != "" && !strings.Contains(strings.ToLower(d.Name), strings.ToLower(filters.Query)) {
			continue
		}
		if filters.SwitchboardID != "" && d.SwitchboardID != filters.SwitchboardID {
			continue
		}
		row := &PointRow{Device: d}
		if sb, ok := r.switchboards[site][d.SwitchboardID]; ok {
			row.SwitchboardName = sb.Name
			row.BuildingCode = sb.BuildingCode
			row.Floor = sb.Floor
			if filters.Building != "" && (!sb.BuildingCode.Valid || sb.BuildingCode.String != filters.Building) {
				continue
			}
			if filters.Floor != "" && (!sb.Floor.Valid || sb.Floor.String != filters.Floor) {
				continue
			}
		} else if filters.Building != "" || filters.Floor != "" {
			continue
		}
		if p, ok := r.params[pointKey(site, d.SwitchboardID, d.DeviceID)]; ok {
			cp := p
			row.Params = &cp
		}
		if c, ok := r.checks[pointKey(site, d.SwitchboardID, d.DeviceID)]; ok {
			cp := c
			row.Check = &cp
		}
		rows = append(rows, row)
	}

	desc := strings.EqualFold(filters.Dir, "desc")
	sort.Slice(rows, func(i, j int) bool {
		var less bool
		switch filters.Sort {
		case "energy":
			ei, ej := 0.0, 0.0
			if rows[i].Check != nil {
				ei = rows[i].Check.IncidentEnergyCal
			}
			if rows[j].Check != nil {
				ej = rows[j].Check.IncidentEnergyCal
			}
			less = ei < ej
		case "ppe":
			pi, pj := 0, 0
			if rows[i].Check != nil {
				pi = rows[i].Check.PPECategory
			}
			if rows[j].Check != nil {
				pj = rows[j].Check.PPECategory
			}
			less = pi < pj
		case "switchboard":
			less = rows[i].SwitchboardName < rows[j].SwitchboardName
		default:
			less = rows[i].Device.Name < rows[j].Device.Name
		}
		if desc {
			return !less
		}
		return less
	})

	total := len(rows)
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	start := (page - 1) * size
	if start >= total {
		return []*PointRow{}, total, nil
	}
	end := start + size
	if end > total {
		end = total
	}
	return rows[start:end], total, nil
}

func (r *MemoryRepo) GetFaultLevel(_ context.Context, site, switchboardID string) (*domain.FaultLevel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.faults[site][switchboardID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := f
	return &cp, nil
}

func (r *MemoryRepo) UpdateDeviceSettings(_ context.Context, site, deviceID string, settings domain.ProtectionSettings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.devices[site][deviceID]
	if !ok {
		return sql.ErrNoRows
	}
	d.Settings = settings
	r.devices[site][deviceID] = d
	return nil
}

func (r *MemoryRepo) UpdateDeviceParent(_ context.Context, site, deviceID string, parentID sql.NullString) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.devices[site][deviceID]
	if !ok {
		return sql.ErrNoRows
	}
	d.ParentID = parentID
	r.devices[site][deviceID] = d
	return nil
}

// ---- ArcFlashRepository ----

func (r *MemoryRepo) GetParameters(_ context.Context, site, switchboardID, deviceID string) (*domain.ArcFlashParameters, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.params[pointKey(site, switchboardID, deviceID)]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := p
	return &cp, nil
}

func (r *MemoryRepo) UpsertParameters(_ context.Context, params *domain.ArcFlashParameters) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := *params
	p.UpdatedAt = time.Now()
	r.params[pointKey(p.Site, p.SwitchboardID, p.DeviceID)] = p
	return nil
}

func (r *MemoryRepo) GetCheck(_ context.Context, site, switchboardID, deviceID string) (*domain.ArcFlashCheck, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.checks[pointKey(site, switchboardID, deviceID)]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := c
	return &cp, nil
}

func (r *MemoryRepo) UpsertCheck(_ context.Context, check *domain.ArcFlashCheck) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *check
	c.CheckedAt = time.Now()
	r.checks[pointKey(c.Site, c.SwitchboardID, c.DeviceID)] = c
	return nil
}

func (r *MemoryRepo) MarkChecksIncomplete(_ context.Context, site string, deviceIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, c := range r.checks {
		if c.Site != site {
			continue
		}
		for _, id := range deviceIDs {
			if c.DeviceID == id {
				c.Status = domain.CheckStatusIncomplete
				c.IncidentEnergyCal = 0
				c.PPECategory = 0
				c.CheckedAt = time.Now()
				r.checks[key] = c
			}
		}
	}
	return nil
}

func (r *MemoryRepo) DeleteAllForSite(_ context.Context, site string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, c := range r.checks {
		if c.Site == site {
			delete(r.checks, key)
		}
	}
	for key, p := range r.params {
		if p.Site == site {
			delete(r.params, key)
		}
	}
	return nil
}

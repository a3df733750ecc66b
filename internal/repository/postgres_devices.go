package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"electrohub-protection/internal/domain"
)

type PostgresDevicesRepo struct {
	db *sql.DB
}

func NewPostgresDevicesRepo(db *sql.DB) *PostgresDevicesRepo {
	return &PostgresDevicesRepo{db: db}
}

const deviceColumns = `
	d.device_id::text,
	d.switchboard_id::text,
	d.site,
	d.name,
	d.rated_current_a,
	d.breaking_ka,
	d.voltage_v,
	d.is_main_incoming,
	CASE WHEN d.parent_id IS NULL THEN NULL ELSE d.parent_id::text END as parent_id,
	d.settings_ir,
	d.settings_tr,
	d.settings_isd,
	d.settings_tsd,
	d.settings_ii`

func scanDevice(row interface{ Scan(...any) error }) (*domain.Device, error) {
	var d domain.Device
	if err := row.Scan(
		&d.DeviceID,
		&d.SwitchboardID,
		&d.Site,
		&d.Name,
		&d.RatedCurrentA,
		&d.BreakingKA,
		&d.VoltageV,
		&d.IsMainIncoming,
		&d.ParentID,
		&d.Settings.Ir,
		&d.Settings.Tr,
		&d.Settings.Isd,
		&d.Settings.Tsd,
		&d.Settings.Ii,
	); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *PostgresDevicesRepo) GetDevice(ctx context.Context, site, deviceID string) (*domain.Device, error) {
	q := `
		SELECT ` + deviceColumns + `
		FROM devices d
		WHERE d.site = $1 AND d.device_id = $2
	`
	return scanDevice(r.db.QueryRowContext(ctx, q, site, deviceID))
}

func (r *PostgresDevicesRepo) GetSwitchboard(ctx context.Context, site, switchboardID string) (*domain.Switchboard, error) {
	q := `
		SELECT
			s.switchboard_id::text,
			s.site,
			s.name,
			s.building_code,
			s.floor,
			s.voltage_v
		FROM switchboards s
		WHERE s.site = $1 AND s.switchboard_id = $2
	`
	var s domain.Switchboard
	if err := r.db.QueryRowContext(ctx, q, site, switchboardID).Scan(
		&s.SwitchboardID,
		&s.Site,
		&s.Name,
		&s.BuildingCode,
		&s.Floor,
		&s.VoltageV,
	); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *PostgresDevicesRepo) ListDevices(ctx context.Context, site string) ([]*domain.Device, error) {
	q := `
		SELECT ` + deviceColumns + `
		FROM devices d
		WHERE d.site = $1
		ORDER BY d.name
	`
	rows, err := r.db.QueryContext(ctx, q, site)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Device{}
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *PostgresDevicesRepo) GetFaultLevel(ctx context.Context, site, switchboardID string) (*domain.FaultLevel, error) {
	q := `
		SELECT f.switchboard_id::text, f.site, f.fault_ka
		FROM fault_levels f
		WHERE f.site = $1 AND f.switchboard_id = $2
	`
	var f domain.FaultLevel
	if err := r.db.QueryRowContext(ctx, q, site, switchboardID).Scan(
		&f.SwitchboardID,
		&f.Site,
		&f.FaultKA,
	); err != nil {
		return nil, err
	}
	return &f, nil
}

// pointSortColumns /points 排序白名单（防注入）
var pointSortColumns = map[string]string{
	"name":        "d.name",
	"switchboard": "s.name",
	"energy":      "c.incident_energy_cal",
	"ppe":         "c.ppe_category",
	"checked_at":  "c.checked_at",
}

func (r *PostgresDevicesRepo) ListPoints(ctx context.Context, site string, filters PointFilters, page, size int) ([]*PointRow, int, error) {
	if site == "" {
		return []*PointRow{}, 0, nil
	}

	where := []string{"d.site = $1"}
	args := []any{site}
	argN := 2

	if filters.Query != "" {
		where = append(where, fmt.Sprintf("d.name ILIKE $%d", argN))
		args = append(args, "%"+filters.Query+"%")
		argN++
	}
	if filters.SwitchboardID != "" {
		where = append(where, fmt.Sprintf("d.switchboard_id = $%d", argN))
		args = append(args, filters.SwitchboardID)
		argN++
	}
	if filters.Building != "" {
		where = append(where, fmt.Sprintf("s.building_code = $%d", argN))
		args = append(args, filters.Building)
		argN++
	}
	if filters.Floor != "" {
		where = append(where, fmt.Sprintf("s.floor = $%d", argN))
		args = append(args, filters.Floor)
		argN++
	}

	queryCount := `
		SELECT COUNT(*)
		FROM devices d
		JOIN switchboards s ON d.switchboard_id = s.switchboard_id AND s.site = d.site
		WHERE ` + strings.Join(where, " AND ")
	var total int
	if err := r.db.QueryRowContext(ctx, queryCount, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	orderBy := "d.name"
	if col, ok := pointSortColumns[filters.Sort]; ok {
		orderBy = col
	}
	dir := "ASC"
	if strings.EqualFold(filters.Dir, "desc") {
		dir = "DESC"
	}

	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	offset := (page - 1) * size
	argsList := append(args, size, offset)

	q := `
		SELECT ` + deviceColumns + `,
			s.name as switchboard_name,
			s.building_code,
			s.floor,
			p.device_id IS NOT NULL as has_params,
			p.working_distance_mm,
			p.enclosure_type,
			p.electrode_gap_mm,
			p.arcing_time_s,
			p.fault_current_ka,
			c.device_id IS NOT NULL as has_check,
			c.incident_energy_cal,
			c.ppe_category,
			c.status,
			c.details,
			c.checked_at
		FROM devices d
		JOIN switchboards s ON d.switchboard_id = s.switchboard_id AND s.site = d.site
		LEFT JOIN arc_flash_parameters p
			ON p.device_id = d.device_id AND p.switchboard_id = d.switchboard_id AND p.site = d.site
		LEFT JOIN arc_flash_checks c
			ON c.device_id = d.device_id AND c.switchboard_id = d.switchboard_id AND c.site = d.site
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY ` + orderBy + ` ` + dir + `, d.device_id
		LIMIT $` + fmt.Sprintf("%d", argN) + ` OFFSET $` + fmt.Sprintf("%d", argN+1)

	rows, err := r.db.QueryContext(ctx, q, argsList...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []*PointRow{}
	for rows.Next() {
		var (
			row       PointRow
			hasParams bool
			workDist  sql.NullFloat64
			enclosure sql.NullString
			gap       sql.NullFloat64
			arcTime   sql.NullFloat64
			faultKA   sql.NullFloat64
			hasCheck  bool
			energy    sql.NullFloat64
			ppe       sql.NullInt64
			status    sql.NullString
			details   sql.NullString
			checkedAt sql.NullTime
		)
		d := &row.Device
		if err := rows.Scan(
			&d.DeviceID,
			&d.SwitchboardID,
			&d.Site,
			&d.Name,
			&d.RatedCurrentA,
			&d.BreakingKA,
			&d.VoltageV,
			&d.IsMainIncoming,
			&d.ParentID,
			&d.Settings.Ir,
			&d.Settings.Tr,
			&d.Settings.Isd,
			&d.Settings.Tsd,
			&d.Settings.Ii,
			&row.SwitchboardName,
			&row.BuildingCode,
			&row.Floor,
			&hasParams,
			&workDist,
			&enclosure,
			&gap,
			&arcTime,
			&faultKA,
			&hasCheck,
			&energy,
			&ppe,
			&status,
			&details,
			&checkedAt,
		); err != nil {
			return nil, 0, err
		}
		if hasParams {
			row.Params = &domain.ArcFlashParameters{
				DeviceID:          d.DeviceID,
				SwitchboardID:     d.SwitchboardID,
				Site:              d.Site,
				WorkingDistanceMM: workDist.Float64,
				EnclosureType:     enclosure.String,
				ElectrodeGapMM:    gap.Float64,
				ArcingTimeS:       arcTime.Float64,
				FaultCurrentKA:    faultKA,
			}
		}
		if hasCheck {
			row.Check = &domain.ArcFlashCheck{
				DeviceID:          d.DeviceID,
				SwitchboardID:     d.SwitchboardID,
				Site:              d.Site,
				IncidentEnergyCal: energy.Float64,
				PPECategory:       int(ppe.Int64),
				Status:            status.String,
				Details:           details,
				CheckedAt:         checkedAt.Time,
			}
		}
		out = append(out, &row)
	}
	return out, total, rows.Err()
}

func (r *PostgresDevicesRepo) UpdateDeviceSettings(ctx context.Context, site, deviceID string, settings domain.ProtectionSettings) error {
	q := `
		UPDATE devices
		SET settings_ir = $3,
		    settings_tr = $4,
		    settings_isd = $5,
		    settings_tsd = $6,
		    settings_ii = $7
		WHERE site = $1 AND device_id = $2
	`
	res, err := r.db.ExecContext(ctx, q, site, deviceID,
		settings.Ir, settings.Tr, settings.Isd, settings.Tsd, settings.Ii)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *PostgresDevicesRepo) UpdateDeviceParent(ctx context.Context, site, deviceID string, parentID sql.NullString) error {
	q := `
		UPDATE devices
		SET parent_id = $3
		WHERE site = $1 AND device_id = $2
	`
	res, err := r.db.ExecContext(ctx, q, site, deviceID, parentID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

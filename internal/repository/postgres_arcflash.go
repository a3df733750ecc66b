package repository

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"electrohub-protection/internal/domain"
)

type PostgresArcFlashRepo struct {
	db *sql.DB
}

func NewPostgresArcFlashRepo(db *sql.DB) *PostgresArcFlashRepo {
	return &PostgresArcFlashRepo{db: db}
}

func (r *PostgresArcFlashRepo) GetParameters(ctx context.Context, site, switchboardID, deviceID string) (*domain.ArcFlashParameters, error) {
	q := `
		SELECT
			p.device_id::text,
			p.switchboard_id::text,
			p.site,
			p.working_distance_mm,
			p.enclosure_type,
			p.electrode_gap_mm,
			p.arcing_time_s,
			p.fault_current_ka,
			p.updated_at
		FROM arc_flash_parameters p
		WHERE p.site = $1 AND p.switchboard_id = $2 AND p.device_id = $3
	`
	var p domain.ArcFlashParameters
	if err := r.db.QueryRowContext(ctx, q, site, switchboardID, deviceID).Scan(
		&p.DeviceID,
		&p.SwitchboardID,
		&p.Site,
		&p.WorkingDistanceMM,
		&p.EnclosureType,
		&p.ElectrodeGapMM,
		&p.ArcingTimeS,
		&p.FaultCurrentKA,
		&p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PostgresArcFlashRepo) UpsertParameters(ctx context.Context, params *domain.ArcFlashParameters) error {
	q := `
		INSERT INTO arc_flash_parameters (
			device_id, switchboard_id, site,
			working_distance_mm, enclosure_type, electrode_gap_mm,
			arcing_time_s, fault_current_ka, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (device_id, switchboard_id, site)
		DO UPDATE SET working_distance_mm = EXCLUDED.working_distance_mm,
		              enclosure_type = EXCLUDED.enclosure_type,
		              electrode_gap_mm = EXCLUDED.electrode_gap_mm,
		              arcing_time_s = EXCLUDED.arcing_time_s,
		              fault_current_ka = EXCLUDED.fault_current_ka,
		              updated_at = NOW()
	`
	_, err := r.db.ExecContext(ctx, q,
		params.DeviceID,
		params.SwitchboardID,
		params.Site,
		params.WorkingDistanceMM,
		params.EnclosureType,
		params.ElectrodeGapMM,
		params.ArcingTimeS,
		params.FaultCurrentKA,
	)
	return err
}

func (r *PostgresArcFlashRepo) GetCheck(ctx context.Context, site, switchboardID, deviceID string) (*domain.ArcFlashCheck, error) {
	q := `
		SELECT
			c.device_id::text,
			c.switchboard_id::text,
			c.site,
			c.incident_energy_cal,
			c.ppe_category,
			c.status,
			c.details,
			c.checked_at
		FROM arc_flash_checks c
		WHERE c.site = $1 AND c.switchboard_id = $2 AND c.device_id = $3
	`
	var c domain.ArcFlashCheck
	if err := r.db.QueryRowContext(ctx, q, site, switchboardID, deviceID).Scan(
		&c.DeviceID,
		&c.SwitchboardID,
		&c.Site,
		&c.IncidentEnergyCal,
		&c.PPECategory,
		&c.Status,
		&c.Details,
		&c.CheckedAt,
	); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *PostgresArcFlashRepo) UpsertCheck(ctx context.Context, check *domain.ArcFlashCheck) error {
	// 后写覆盖：结果是当前参数的纯函数，同点并发重算无需加锁
	q := `
		INSERT INTO arc_flash_checks (
			device_id, switchboard_id, site,
			incident_energy_cal, ppe_category, status, details, checked_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (device_id, switchboard_id, site)
		DO UPDATE SET incident_energy_cal = EXCLUDED.incident_energy_cal,
		              ppe_category = EXCLUDED.ppe_category,
		              status = EXCLUDED.status,
		              details = EXCLUDED.details,
		              checked_at = NOW()
	`
	_, err := r.db.ExecContext(ctx, q,
		check.DeviceID,
		check.SwitchboardID,
		check.Site,
		check.IncidentEnergyCal,
		check.PPECategory,
		check.Status,
		check.Details,
	)
	return err
}

func (r *PostgresArcFlashRepo) MarkChecksIncomplete(ctx context.Context, site string, deviceIDs []string) error {
	if len(deviceIDs) == 0 {
		return nil
	}
	// incomplete 必须伴随能量=0、PPE=0，不能留下过期数值
	q := `
		UPDATE arc_flash_checks
		SET status = 'incomplete',
		    incident_energy_cal = 0,
		    ppe_category = 0,
		    checked_at = NOW()
		WHERE site = $1 AND device_id = ANY($2)
	`
	_, err := r.db.ExecContext(ctx, q, site, pq.Array(deviceIDs))
	return err
}

func (r *PostgresArcFlashRepo) DeleteAllForSite(ctx context.Context, site string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM arc_flash_checks WHERE site = $1`, site); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `DELETE FROM arc_flash_parameters WHERE site = $1`, site)
	return err
}

package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"electrohub-protection/internal/domain"
)

func setupDevicesMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresDevicesRepo) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, NewPostgresDevicesRepo(db)
}

func deviceRowColumns() []string {
	return []string{
		"device_id", "switchboard_id", "site", "name",
		"rated_current_a", "breaking_ka", "voltage_v",
		"is_main_incoming", "parent_id",
		"settings_ir", "settings_tr", "settings_isd", "settings_tsd", "settings_ii",
	}
}

func TestGetDevice_ScansSettings(t *testing.T) {
	db, mock, repo := setupDevicesMock(t)
	defer db.Close()

	rows := sqlmock.NewRows(deviceRowColumns()).
		AddRow("dev-1", "swb-1", "site-a", "Feeder 01",
			250.0, 36.0, 400.0,
			false, "dev-main",
			1.0, nil, 6.0, nil, 10.0)

	mock.ExpectQuery(`SELECT`).
		WithArgs("site-a", "dev-1").
		WillReturnRows(rows)

	d, err := repo.GetDevice(context.Background(), "site-a", "dev-1")
	require.NoError(t, err)
	assert.Equal(t, "Feeder 01", d.Name)
	assert.Equal(t, 250.0, d.RatedCurrentA)
	require.True(t, d.ParentID.Valid)
	assert.Equal(t, "dev-main", d.ParentID.String)

	// 部分缺失的整定值保持 NULL，由 Effective() 补缺省
	assert.True(t, d.Settings.Ir.Valid)
	assert.False(t, d.Settings.Tr.Valid)
	eff := d.Settings.Effective()
	assert.Equal(t, 1.0, eff.Ir)
	assert.Equal(t, domain.DefaultTr, eff.Tr)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetFaultLevel(t *testing.T) {
	db, mock, repo := setupDevicesMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"switchboard_id", "site", "fault_ka"}).
		AddRow("swb-1", "site-a", 20.0)

	mock.ExpectQuery(`SELECT`).
		WithArgs("site-a", "swb-1").
		WillReturnRows(rows)

	f, err := repo.GetFaultLevel(context.Background(), "site-a", "swb-1")
	require.NoError(t, err)
	assert.Equal(t, 20.0, f.FaultKA)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateDeviceParent_NotFound(t *testing.T) {
	db, mock, repo := setupDevicesMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE devices`).
		WithArgs("site-a", "dev-missing", sql.NullString{String: "dev-main", Valid: true}).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateDeviceParent(context.Background(), "site-a", "dev-missing",
		sql.NullString{String: "dev-main", Valid: true})
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestListPoints_CountAndPage(t *testing.T) {
	db, mock, repo := setupDevicesMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT`).
		WithArgs("site-a").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	cols := append(deviceRowColumns(),
		"switchboard_name", "building_code", "floor",
		"has_params", "working_distance_mm", "enclosure_type", "electrode_gap_mm", "arcing_time_s", "fault_current_ka",
		"has_check", "incident_energy_cal", "ppe_category", "status", "details", "checked_at")
	rows := sqlmock.NewRows(cols).
		AddRow("dev-1", "swb-1", "site-a", "Feeder 01",
			250.0, nil, 400.0, false, nil,
			nil, nil, nil, nil, nil,
			"TGBT", "B1", "0",
			true, 455.0, "VCB", 32.0, 0.2, nil,
			false, nil, nil, nil, nil, nil)

	mock.ExpectQuery(`SELECT`).
		WithArgs("site-a", 20, 0).
		WillReturnRows(rows)

	out, total, err := repo.ListPoints(context.Background(), "site-a", PointFilters{}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, out, 1)
	assert.Equal(t, "TGBT", out[0].SwitchboardName)
	require.NotNil(t, out[0].Params)
	assert.Equal(t, 455.0, out[0].Params.WorkingDistanceMM)
	assert.Nil(t, out[0].Check)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListPoints_EmptySite(t *testing.T) {
	db, mock, repo := setupDevicesMock(t)
	defer db.Close()

	out, total, err := repo.ListPoints(context.Background(), "", PointFilters{}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Empty(t, out)
	assert.NoError(t, mock.ExpectationsWereMet())
}

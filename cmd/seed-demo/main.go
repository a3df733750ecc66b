package main

import (
	"database/sql"
	"fmt"
	"log"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"electrohub-protection/internal/config"
	"electrohub-protection/pkg/database"
)

// 向数据库写入一个演示站点：主配电柜（进线 + 两路馈线）和一个分配电柜
// 重复执行安全（按 site+name 跳过已存在的行）

const site = "demo-plant"

func main() {
	cfg := config.Load()
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Cannot connect to database: %v", err)
	}
	defer db.Close()

	msb := ensureSwitchboard(db, "MSB-1", "B1", "G", 400)
	db1 := ensureSwitchboard(db, "DB-1.1", "B1", "1", 400)

	ensureFaultLevel(db, msb, 25)
	ensureFaultLevel(db, db1, 10)

	mainID := ensureDevice(db, msb, "Q1 Main Incomer", 1600, 50, true, "",
		[5]sql.NullFloat64{nf(1), nf(10), nf(6), nf(0.3), nf(10)})
	ensureDevice(db, msb, "F1 Chiller Feeder", 400, 36, false, mainID,
		[5]sql.NullFloat64{nf(0.9), {}, {}, {}, {}})
	ensureDevice(db, msb, "F2 Riser Feeder", 250, 36, false, mainID,
		[5]sql.NullFloat64{})
	ensureDevice(db, db1, "DB1 Lighting", 63, 10, false, "",
		[5]sql.NullFloat64{})

	fmt.Printf("Demo site %q seeded\n", site)
}

func nf(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: true}
}

func ensureSwitchboard(db *sql.DB, name, building, floor string, voltageV float64) string {
	var id string
	err := db.QueryRow(
		`SELECT switchboard_id::text FROM switchboards WHERE site = $1 AND name = $2`,
		site, name,
	).Scan(&id)
	if err == nil {
		return id
	}
	if err != sql.ErrNoRows {
		log.Fatalf("query switchboard %q: %v", name, err)
	}

	id = uuid.NewString()
	_, err = db.Exec(
		`INSERT INTO switchboards (switchboard_id, site, name, building_code, floor, voltage_v)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		id, site, name, building, floor, voltageV,
	)
	if err != nil {
		log.Fatalf("insert switchboard %q: %v", name, err)
	}
	return id
}

func ensureFaultLevel(db *sql.DB, switchboardID string, faultKA float64) {
	_, err := db.Exec(
		`INSERT INTO fault_levels (switchboard_id, site, fault_ka)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (switchboard_id, site) DO UPDATE SET fault_ka = EXCLUDED.fault_ka`,
		switchboardID, site, faultKA,
	)
	if err != nil {
		log.Fatalf("upsert fault level: %v", err)
	}
}

func ensureDevice(db *sql.DB, switchboardID, name string, ratedA, breakingKA float64, isMain bool, parentID string, settings [5]sql.NullFloat64) string {
	var id string
	err := db.QueryRow(
		`SELECT device_id::text FROM devices WHERE site = $1 AND name = $2`,
		site, name,
	).Scan(&id)
	if err == nil {
		return id
	}
	if err != sql.ErrNoRows {
		log.Fatalf("query device %q: %v", name, err)
	}

	id = uuid.NewString()
	parent := sql.NullString{String: parentID, Valid: parentID != ""}
	_, err = db.Exec(
		`INSERT INTO devices (
			device_id, switchboard_id, site, name,
			rated_current_a, breaking_ka, is_main_incoming, parent_id,
			settings_ir, settings_tr, settings_isd, settings_tsd, settings_ii
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		id, switchboardID, site, name,
		ratedA, breakingKA, isMain, parent,
		settings[0], settings[1], settings[2], settings[3], settings[4],
	)
	if err != nil {
		log.Fatalf("insert device %q: %v", name, err)
	}
	return id
}

package main

import (
	"database/sql"

	"electrohub-protection/internal/domain"
	"electrohub-protection/internal/repository"
)

const demoSite = "demo-plant"

// seedDemoSite 预置一个小型配电系统：主配电柜（进线 + 两路馈线）和一个分配电柜
func seedDemoSite(mem *repository.MemoryRepo) {
	msb := mem.SeedSwitchboard(domain.Switchboard{
		Site:         demoSite,
		Name:         "MSB-1",
		BuildingCode: sql.NullString{String: "B1", Valid: true},
		Floor:        sql.NullString{String: "G", Valid: true},
		VoltageV:     sql.NullFloat64{Float64: 400, Valid: true},
	})
	db1 := mem.SeedSwitchboard(domain.Switchboard{
		Site:         demoSite,
		Name:         "DB-1.1",
		BuildingCode: sql.NullString{String: "B1", Valid: true},
		Floor:        sql.NullString{String: "1", Valid: true},
		VoltageV:     sql.NullFloat64{Float64: 400, Valid: true},
	})

	mem.SeedFaultLevel(domain.FaultLevel{Site: demoSite, SwitchboardID: msb, FaultKA: 25})
	mem.SeedFaultLevel(domain.FaultLevel{Site: demoSite, SwitchboardID: db1, FaultKA: 10})

	mainID := mem.SeedDevice(domain.Device{
		Site:           demoSite,
		SwitchboardID:  msb,
		Name:           "Q1 Main Incomer",
		RatedCurrentA:  1600,
		BreakingKA:     sql.NullFloat64{Float64: 50, Valid: true},
		IsMainIncoming: true,
		Settings: domain.ProtectionSettings{
			Ir:  sql.NullFloat64{Float64: 1, Valid: true},
			Tr:  sql.NullFloat64{Float64: 10, Valid: true},
			Isd: sql.NullFloat64{Float64: 6, Valid: true},
			Tsd: sql.NullFloat64{Float64: 0.3, Valid: true},
			Ii:  sql.NullFloat64{Float64: 10, Valid: true},
		},
	})
	mem.SeedDevice(domain.Device{
		Site:          demoSite,
		SwitchboardID: msb,
		Name:          "F1 Chiller Feeder",
		RatedCurrentA: 400,
		BreakingKA:    sql.NullFloat64{Float64: 36, Valid: true},
		ParentID:      sql.NullString{String: mainID, Valid: true},
		Settings: domain.ProtectionSettings{
			Ir: sql.NullFloat64{Float64: 0.9, Valid: true},
		},
	})
	// 整定值缺失：autofill 演示对象
	mem.SeedDevice(domain.Device{
		Site:          demoSite,
		SwitchboardID: msb,
		Name:          "F2 Riser Feeder",
		RatedCurrentA: 250,
		BreakingKA:    sql.NullFloat64{Float64: 36, Valid: true},
	})
	mem.SeedDevice(domain.Device{
		Site:          demoSite,
		SwitchboardID: db1,
		Name:          "DB1 Lighting",
		RatedCurrentA: 63,
		BreakingKA:    sql.NullFloat64{Float64: 10, Valid: true},
	})
}

package httpapi

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"electrohub-protection/internal/repository"
)

// PointsExportHeader 点位导出表头
var PointsExportHeader = []string{
	"Device Name",
	"Switchboard",
	"Building",
	"Floor",
	"Rated Current (A)",
	"Breaking (kA)",
	"Voltage (V)",
	"Working Distance (mm)",
	"Enclosure",
	"Incident Energy (cal/cm²)",
	"PPE Category",
	"Status",
	"Checked At",
}

// GeneratePointsExport 生成点位清单 xlsx
func GeneratePointsExport(rows []*repository.PointRow) ([]byte, error) {
	f := excelize.NewFile()
	// WriteTo 之前不能 Close

	sheetName := "Arc Flash Points"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range PointsExportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
	}

	for i, row := range rows {
		values := pointRowValues(row)
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to convert coordinates: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set cell %s: %w", cell, err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// pointRowValues 一行导出数据（与 PointsExportHeader 对齐）
func pointRowValues(row *repository.PointRow) []any {
	d := row.Device
	values := []any{
		d.Name,
		row.SwitchboardName,
		"", // Building
		"", // Floor
		d.RatedCurrentA,
		"", // Breaking
		"", // Voltage
		"", // Working Distance
		"", // Enclosure
		"", // Energy
		"", // PPE
		"", // Status
		"", // Checked At
	}
	if row.BuildingCode.Valid {
		values[2] = row.BuildingCode.String
	}
	if row.Floor.Valid {
		values[3] = row.Floor.String
	}
	if d.BreakingKA.Valid {
		values[5] = d.BreakingKA.Float64
	}
	if d.VoltageV.Valid {
		values[6] = d.VoltageV.Float64
	}
	if row.Params != nil {
		values[7] = row.Params.WorkingDistanceMM
		values[8] = row.Params.EnclosureType
	}
	if row.Check != nil {
		values[9] = row.Check.IncidentEnergyCal
		values[10] = row.Check.PPECategory
		values[11] = row.Check.Status
		values[12] = row.Check.CheckedAt.Format("2006-01-02 15:04:05")
	}
	return values
}

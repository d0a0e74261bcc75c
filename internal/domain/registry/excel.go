package registry

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/medsave/rxwizard/internal/domain/prescription"
	"github.com/medsave/rxwizard/internal/platform/medsave"
)

const patientSheet = "Patients"

// PatientExportHeader is the header row of the patient workbook.
var PatientExportHeader = []string{
	"ID",
	"Registration No",
	"Name",
	"Phone",
	"Email",
	"Gender",
	"Age",
	"DOB",
	"Blood Group",
	"District",
	"State",
	"PIN",
}

var patientColumnWidths = []float64{8, 18, 28, 14, 26, 10, 8, 12, 12, 18, 18, 10}

func patientRow(p medsave.Patient) []any {
	return []any{
		p.ID.String(),
		p.RegistrationNo,
		prescription.FullName(p.Title, p.FirstName, p.MiddleName, p.LastName),
		p.Phone.String(),
		p.Email,
		p.Gender,
		p.Age.String(),
		p.DOB,
		p.BloodGroup,
		p.AddressDistrict,
		p.AddressState,
		p.AddressPin.String(),
	}
}

// PatientWorkbook writes the patients to a single sheet workbook, one row per
// patient under a styled header.
func PatientWorkbook(patients []medsave.Patient) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(patientSheet)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("drop default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	if err := f.SetSheetRow(patientSheet, "A1", &PatientExportHeader); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(PatientExportHeader), 1)
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(patientSheet, "A1", last, headerStyle); err != nil {
		return nil, fmt.Errorf("style header: %w", err)
	}
	for i, w := range patientColumnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(patientSheet, col, col, w); err != nil {
			return nil, fmt.Errorf("set column width: %w", err)
		}
	}

	for i, p := range patients {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := patientRow(p)
		if err := f.SetSheetRow(patientSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

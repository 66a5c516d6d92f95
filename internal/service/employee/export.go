package employee

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cmlabs-hris/employee-directory/internal/domain/employee"
	"github.com/xuri/excelize/v2"
)

// ExportSheet is the worksheet name used by WriteWorkbook.
const ExportSheet = "Employees"

var exportHeader = []interface{}{"ID", "Name", "Email", "Mobile", "Designation", "Gender", "Courses", "Create Date"}

// WriteWorkbook writes rows, in order, to w as a single-sheet XLSX workbook.
func WriteWorkbook(w io.Writer, rows []employee.Employee) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", ExportSheet); err != nil {
		return fmt.Errorf("failed to name worksheet: %w", err)
	}

	sw, err := f.NewStreamWriter(ExportSheet)
	if err != nil {
		return fmt.Errorf("failed to open stream writer: %w", err)
	}
	if err := sw.SetColWidth(1, len(exportHeader), 18); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	if err := sw.SetRow("A1", exportHeader, excelize.RowOpts{StyleID: bold}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []interface{}{
			strconv.FormatInt(r.EmployeeID, 10),
			r.Name,
			r.Email,
			r.Mobile,
			r.Designation,
			r.Gender,
			strings.Join(r.Courses, ", "),
			r.CreateDate,
		}
		if err := sw.SetRow(cell, values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush worksheet: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

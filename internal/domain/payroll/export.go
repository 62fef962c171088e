package payroll

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

var registerHeaders = []string{
	"statement_id", "driver_id", "driver_name", "period_start", "period_end", "status",
	"load_count", "total_miles", "gross_revenue", "driver_pay", "deductions", "net_pay", "paid_at",
}

func registerRow(st PayStatement) []string {
	paidAt := ""
	if st.PaidAt != nil {
		paidAt = st.PaidAt.Format(dateLayout)
	}
	return []string{
		st.ID,
		st.DriverID,
		st.DriverName,
		st.PeriodStart.Format(dateLayout),
		st.PeriodEnd.Format(dateLayout),
		st.Status,
		fmt.Sprintf("%d", st.LoadCount),
		fmt.Sprintf("%.1f", st.TotalMiles),
		fmt.Sprintf("%.2f", st.TotalGrossPay),
		fmt.Sprintf("%.2f", st.TotalDriverPay),
		fmt.Sprintf("%.2f", st.TotalDeductions),
		fmt.Sprintf("%.2f", st.NetPay),
		paidAt,
	}
}

// WriteRegisterCSV writes one row per statement.
func WriteRegisterCSV(w io.Writer, statements []PayStatement) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(registerHeaders); err != nil {
		return err
	}
	for _, st := range statements {
		if err := writer.Write(registerRow(st)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

const (
	registerSheet   = "Statements"
	deductionsSheet = "Deductions"
)

// WriteRegisterXLSX writes a workbook with a statements sheet and a sheet
// listing every deduction line.
func WriteRegisterXLSX(w io.Writer, statements []PayStatement) error {
	f := excelize.NewFile()
	defer f.Close()

	if _, err := f.NewSheet(registerSheet); err != nil {
		return err
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}
	index, err := f.GetSheetIndex(registerSheet)
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)

	for i, header := range registerHeaders {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(registerSheet, cell, header); err != nil {
			return err
		}
	}
	for rowIndex, st := range statements {
		paidAt := ""
		if st.PaidAt != nil {
			paidAt = st.PaidAt.Format(dateLayout)
		}
		values := []any{
			st.ID, st.DriverID, st.DriverName,
			st.PeriodStart.Format(dateLayout), st.PeriodEnd.Format(dateLayout), st.Status,
			st.LoadCount, st.TotalMiles, st.TotalGrossPay, st.TotalDriverPay, st.TotalDeductions, st.NetPay,
			paidAt,
		}
		cell, err := excelize.CoordinatesToCellName(1, rowIndex+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(registerSheet, cell, &values); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(deductionsSheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(deductionsSheet, "A1", &[]any{"statement_id", "driver_name", "type", "description", "amount"}); err != nil {
		return err
	}
	row := 2
	for _, st := range statements {
		for _, deduction := range st.Deductions {
			cell, err := excelize.CoordinatesToCellName(1, row)
			if err != nil {
				return err
			}
			values := []any{st.ID, st.DriverName, deduction.Type, deduction.Description, deduction.Amount}
			if err := f.SetSheetRow(deductionsSheet, cell, &values); err != nil {
				return err
			}
			row++
		}
	}

	return f.Write(w)
}

package payroll

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"truckbooks/internal/domain/fleet"
)

const dateLayout = "2006-01-02"

// RenderStatementPDF lays out a printable pay statement.
func RenderStatementPDF(st PayStatement) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "Letter", "")
	pdf.SetTitle("Pay Statement "+st.ID, false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "Driver Pay Statement")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 6, fmt.Sprintf("Driver: %s", st.DriverName))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Period: %s to %s", st.PeriodStart.Format(dateLayout), st.PeriodEnd.Format(dateLayout)))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Pay basis: %s", describePayBasis(st.PaymentType, st.PayRate)))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Status: %s", strings.ToUpper(st.Status)))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 10)
	widths := []float64{28, 22, 50, 50, 20, 22}
	headers := []string{"Load #", "Date", "Origin", "Destination", "Miles", "Pay"}
	for i, header := range headers {
		pdf.CellFormat(widths[i], 7, header, "B", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, load := range st.Loads {
		pdf.CellFormat(widths[0], 6, load.LoadNumber, "", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 6, load.Date.Format(dateLayout), "", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 6, truncate(load.Origin, 30), "", 0, "L", false, 0, "")
		pdf.CellFormat(widths[3], 6, truncate(load.Destination, 30), "", 0, "L", false, 0, "")
		pdf.CellFormat(widths[4], 6, fmt.Sprintf("%.0f", load.TotalMiles), "", 0, "R", false, 0, "")
		pdf.CellFormat(widths[5], 6, money(load.DriverPay), "", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 6, fmt.Sprintf("Loads: %d    Miles: %.0f    Gross revenue: %s", st.LoadCount, st.TotalMiles, money(st.TotalGrossPay)))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Driver pay: %s", money(st.TotalDriverPay)))
	pdf.Ln(10)

	if len(st.Deductions) > 0 {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.Cell(0, 6, "Deductions")
		pdf.Ln(7)
		pdf.SetFont("Helvetica", "", 10)
		for _, deduction := range st.Deductions {
			pdf.CellFormat(140, 6, deduction.Description, "", 0, "L", false, 0, "")
			pdf.CellFormat(40, 6, money(deduction.Amount), "", 0, "R", false, 0, "")
			pdf.Ln(-1)
		}
		pdf.Ln(2)
	}

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, fmt.Sprintf("Total deductions: %s", money(st.TotalDeductions)))
	pdf.Ln(7)
	pdf.Cell(0, 7, fmt.Sprintf("Net pay: %s", money(st.NetPay)))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 9)
	pdf.Cell(0, 5, fmt.Sprintf("Fuel: %d transactions, %.1f gal, %s", st.FuelSummary.Transactions, st.FuelSummary.Gallons, money(st.FuelSummary.Amount)))
	if st.Notes != "" {
		pdf.Ln(6)
		pdf.MultiCell(0, 5, "Notes: "+st.Notes, "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func describePayBasis(paymentType string, rate float64) string {
	switch paymentType {
	case fleet.PaymentTypePerMile:
		return fmt.Sprintf("$%.3f per mile", rate)
	case fleet.PaymentTypePercentage:
		return fmt.Sprintf("%s%% of gross", formatRate(rate))
	case fleet.PaymentTypeFlatRate:
		return fmt.Sprintf("%s flat per load", money(rate))
	default:
		return "unspecified"
	}
}

func money(amount float64) string {
	if amount < 0 {
		return fmt.Sprintf("-$%.2f", -amount)
	}
	return fmt.Sprintf("$%.2f", amount)
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-3]) + "..."
}

package reports

import (
	"fmt"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"
)

const dateLayout = "2006-01-02 15:04"

// DonationsWorkbook renders the donations report as an xlsx workbook with a
// Donations row sheet and a Summary sheet.
func DonationsWorkbook(rep *DonationsReport) (*excelize.File, error) {
	f := excelize.NewFile()
	const sheet = "Donations"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Date", "Donor", "Program", "Amount", "Payment Method", "Status", "Note"}
	if err := writeRow(f, sheet, 1, toAnySlice(headers)); err != nil {
		return nil, err
	}
	for i, d := range rep.Rows {
		row := []any{
			d.Date.Format(dateLayout),
			d.DisplayName(),
			d.ProgramID.Hex(),
			d.Amount,
			d.PaymentMethod,
			string(d.Status),
			d.Note,
		}
		if err := writeRow(f, sheet, i+2, row); err != nil {
			return nil, err
		}
	}

	if _, err := f.NewSheet("Summary"); err != nil {
		return nil, err
	}
	rows := [][]any{
		{"Range", string(rep.Range)},
		{"From", rep.From.Format(dateLayout)},
		{"To", rep.To.Format(dateLayout)},
		{"Total Amount", rep.TotalAmount},
		{"Donations", rep.Count},
		{},
		{"Program", "Amount"},
	}
	rows = append(rows, sortedAmountRows(rep.ByProgram)...)
	rows = append(rows, []any{}, []any{"Payment Method", "Amount"})
	rows = append(rows, sortedAmountRows(rep.ByPaymentMethod)...)
	for i, row := range rows {
		if err := writeRow(f, "Summary", i+1, row); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// ProgramsWorkbook renders the programs report as a single-sheet workbook.
func ProgramsWorkbook(rep *ProgramsReport) (*excelize.File, error) {
	f := excelize.NewFile()
	const sheet = "Programs"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Title", "Category", "Status", "Target", "Raised", "Progress %", "Volunteers"}
	if err := writeRow(f, sheet, 1, toAnySlice(headers)); err != nil {
		return nil, err
	}
	for i, p := range rep.Rows {
		row := []any{p.Title, p.Category, p.Status, p.Target, p.Raised, p.Progress, p.Volunteers}
		if err := writeRow(f, sheet, i+2, row); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// VolunteersWorkbook renders the volunteers report with a row sheet and a
// per-program active-count sheet.
func VolunteersWorkbook(rep *VolunteersReport) (*excelize.File, error) {
	f := excelize.NewFile()
	const sheet = "Volunteers"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Name", "Email", "Phone", "Role", "Program", "Joined", "Status"}
	if err := writeRow(f, sheet, 1, toAnySlice(headers)); err != nil {
		return nil, err
	}
	for i, v := range rep.Rows {
		row := []any{
			v.Name,
			v.Email,
			v.Phone,
			v.Role,
			v.ProgramID.Hex(),
			v.JoinedDate.Format(dateLayout),
			string(v.Status),
		}
		if err := writeRow(f, sheet, i+2, row); err != nil {
			return nil, err
		}
	}

	if _, err := f.NewSheet("Active By Program"); err != nil {
		return nil, err
	}
	if err := writeRow(f, "Active By Program", 1, []any{"Program", "Active Volunteers"}); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(rep.ActiveByProgram))
	for name := range rep.ActiveByProgram {
		names = append(names, name)
	}
	sort.Strings(names)
	for i, name := range names {
		if err := writeRow(f, "Active By Program", i+2, []any{name, rep.ActiveByProgram[name]}); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// ExportFilename builds the download filename for a report type.
func ExportFilename(kind string, now time.Time) string {
	return fmt.Sprintf("%s-report-%s.xlsx", kind, now.Format("2006-01-02"))
}

func toAnySlice(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func sortedAmountRows(m map[string]float64) [][]any {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	rows := make([][]any, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []any{k, m[k]})
	}
	return rows
}

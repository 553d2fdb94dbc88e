// Package export renders bill listings as XLSX spreadsheets.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/cidadao-ativo/cidadao-api/internal/bill"
)

// Sheet names.
const (
	SheetBills           = "Projetos"
	SheetRepresentatives = "Deputados"
	SheetCategories      = "Categorias"
)

// ContentType is the MIME type of the generated workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var billHeader = []any{
	"ID", "Título", "Categoria", "Status", "Votos Sim", "Votos Não", "Pontos", "Resumo", "Texto Original",
}

var representativeHeader = []any{"Projeto", "Deputado", "Partido", "UF", "Voto"}

var voteLabels = map[bill.Vote]string{
	bill.VoteYes:       "Sim",
	bill.VoteNo:        "Não",
	bill.VoteAbstained: "Abstenção",
}

// Filename returns the attachment name of a listing fetched at t.
func Filename(t time.Time) string {
	return fmt.Sprintf("projetos-%s.xlsx", t.Format("2006-01-02"))
}

// WriteBills writes bills as a workbook with one sheet of bills, one of
// recorded representative votes and one of per-category counts.
func WriteBills(w io.Writer, bills []bill.Bill) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetBills); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SheetRepresentatives, SheetCategories} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"1B5E20"}},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	if err := writeBills(f, header, bills); err != nil {
		return err
	}
	if err := writeRepresentatives(f, header, bills); err != nil {
		return err
	}
	if err := writeCategories(f, header, bills); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeBills(f *excelize.File, header int, bills []bill.Bill) error {
	rows := make([][]any, 0, len(bills))
	for _, b := range bills {
		rows = append(rows, []any{
			b.ID,
			b.Title,
			b.Category.Label(),
			b.Status.Label(),
			b.VotesYes,
			b.VotesNo,
			b.Points,
			b.SimplifiedDescription,
			b.OriginalText,
		})
	}
	if err := writeTable(f, SheetBills, header, billHeader, rows); err != nil {
		return err
	}

	widths := map[string]float64{"A": 10, "B": 18, "C": 16, "D": 14, "H": 60, "I": 60}
	for col, width := range widths {
		if err := f.SetColWidth(SheetBills, col, col, width); err != nil {
			return fmt.Errorf("set width %s: %w", col, err)
		}
	}
	return nil
}

func writeRepresentatives(f *excelize.File, header int, bills []bill.Bill) error {
	var rows [][]any
	for _, b := range bills {
		for _, r := range b.Representatives {
			if r.IsPlaceholder() {
				continue
			}
			rows = append(rows, []any{b.Title, r.Name, r.Party, r.State, voteLabels[r.Vote]})
		}
	}
	return writeTable(f, SheetRepresentatives, header, representativeHeader, rows)
}

func writeCategories(f *excelize.File, header int, bills []bill.Bill) error {
	counts := bill.CountByCategory(bills)
	rows := make([][]any, 0, len(counts))
	for _, c := range bill.Categories() {
		if n := counts[c]; n > 0 {
			rows = append(rows, []any{c.Label(), n})
		}
	}
	return writeTable(f, SheetCategories, header, []any{"Categoria", "Projetos"}, rows)
}

// writeTable writes a styled, frozen, filterable header followed by rows.
func writeTable(f *excelize.File, sheet string, style int, header []any, rows [][]any) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write %s header: %w", sheet, err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+2, err)
		}
	}

	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return fmt.Errorf("style %s header: %w", sheet, err)
	}
	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze %s header: %w", sheet, err)
	}
	if len(rows) > 0 {
		lastRow, err := excelize.CoordinatesToCellName(len(header), len(rows)+1)
		if err != nil {
			return err
		}
		if err := f.AutoFilter(sheet, "A1:"+lastRow, nil); err != nil {
			return fmt.Errorf("filter %s: %w", sheet, err)
		}
	}
	return nil
}

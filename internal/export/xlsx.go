// Package export writes dashboard snapshots as spreadsheets.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/stellarlinkco/wamonitor/internal/dashboard"
)

const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	SheetSummary = "Resumo"
	SheetSenders = "Participantes"
	SheetHourly  = "Atividade por Hora"
	SheetRecent  = "Mensagens Recentes"
)

// Build lays out snap as a workbook. The caller must Close it.
func Build(snap dashboard.Snapshot) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		f.Close()
		return nil, err
	}
	for _, name := range []string{SheetSenders, SheetHourly, SheetRecent} {
		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create style: %w", err)
	}

	w := &sheetWriter{f: f, bold: bold}
	w.summary(snap)
	w.senders(snap)
	w.hourly(snap)
	w.recent(snap)
	if w.err != nil {
		f.Close()
		return nil, w.err
	}
	return f, nil
}

// Write streams the workbook for snap to out.
func Write(out io.Writer, snap dashboard.Snapshot) error {
	f, err := Build(snap)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.Write(out); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// WriteFile saves the workbook for snap at path.
func WriteFile(path string, snap dashboard.Snapshot) error {
	f, err := Build(snap)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// sheetWriter keeps the first error so the layout code stays linear.
type sheetWriter struct {
	f    *excelize.File
	bold int
	err  error
}

func (w *sheetWriter) row(sheet string, n int, values ...any) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		w.err = err
		return
	}
	if err := w.f.SetSheetRow(sheet, cell, &values); err != nil {
		w.err = fmt.Errorf("%s row %d: %w", sheet, n, err)
	}
}

func (w *sheetWriter) header(sheet string, titles ...string) {
	values := make([]any, len(titles))
	for i, t := range titles {
		values[i] = t
	}
	w.row(sheet, 1, values...)
	if w.err != nil {
		return
	}
	last, err := excelize.CoordinatesToCellName(len(titles), 1)
	if err != nil {
		w.err = err
		return
	}
	if err := w.f.SetCellStyle(sheet, "A1", last, w.bold); err != nil {
		w.err = err
	}
}

func (w *sheetWriter) width(sheet, from, to string, width float64) {
	if w.err != nil {
		return
	}
	w.err = w.f.SetColWidth(sheet, from, to, width)
}

func (w *sheetWriter) summary(snap dashboard.Snapshot) {
	s := snap.Summary
	w.header(SheetSummary, "Métrica", "Valor")
	w.row(SheetSummary, 2, "Fonte", snap.Source)
	w.row(SheetSummary, 3, "Gerado em", snap.GeneratedAt.Format("02/01/2006 15:04:05"))
	w.row(SheetSummary, 4, "Total de Mensagens", s.Total)
	w.row(SheetSummary, 5, "Mensagens de Grupo", s.Group)
	w.row(SheetSummary, 6, "Mensagens Diretas", s.Direct)
	w.row(SheetSummary, 7, "Participantes Únicos", s.UniqueSenders)
	if snap.Error != "" {
		w.row(SheetSummary, 8, "Erro", snap.Error)
	}
	w.width(SheetSummary, "A", "A", 24)
	w.width(SheetSummary, "B", "B", 48)
}

func (w *sheetWriter) senders(snap dashboard.Snapshot) {
	w.header(SheetSenders, "#", "Participante", "Mensagens")
	for i, sc := range snap.Summary.TopSenders {
		w.row(SheetSenders, i+2, i+1, sc.Name, sc.Count)
	}
	w.width(SheetSenders, "B", "B", 32)
}

func (w *sheetWriter) hourly(snap dashboard.Snapshot) {
	w.header(SheetHourly, "Hora do Dia", "Nº de Mensagens")
	if !snap.Summary.HasHourly {
		return
	}
	for hour, c := range snap.Summary.Hourly {
		w.row(SheetHourly, hour+2, hour, c)
	}
}

func (w *sheetWriter) recent(snap dashboard.Snapshot) {
	w.header(SheetRecent, "Horário", "Grupo", "Remetente", "Mensagem")
	for i, e := range snap.Summary.Recent {
		group := strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(e.Prefix), "["), "]")
		w.row(SheetRecent, i+2, e.TimeLabel, group, e.Sender, e.Body)
	}
	w.width(SheetRecent, "C", "C", 24)
	w.width(SheetRecent, "D", "D", 80)
}

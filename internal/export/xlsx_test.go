package export

import (
	"bytes"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/stellarlinkco/wamonitor/internal/dashboard"
	"github.com/stellarlinkco/wamonitor/internal/message"
	"github.com/stellarlinkco/wamonitor/internal/stats"
)

func sampleSnapshot(t *testing.T) dashboard.Snapshot {
	t.Helper()
	ds, err := message.Parse([]byte(`[
  {"timestamp":1717000000000,"fromName":"Alice","body":"hi","isGroup":false},
  {"timestamp":1717000005000,"fromName":"Bob","body":"hello all","isGroup":true,"groupName":"Team"},
  {"timestamp":1717000009000,"fromName":"Bob","body":"again","isGroup":true}
]`), time.UTC)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	return dashboard.Snapshot{
		Source:      "/data/messages.json",
		GeneratedAt: time.Date(2024, 5, 29, 16, 30, 0, 0, time.UTC),
		Summary:     stats.Summarize(ds, stats.Options{}),
	}
}

func TestWriteFile_Sheets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	if err := WriteFile(path, sampleSnapshot(t)); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile error: %v", err)
	}
	defer f.Close()

	want := []string{SheetSummary, SheetSenders, SheetHourly, SheetRecent}
	if got := f.GetSheetList(); !slices.Equal(got, want) {
		t.Errorf("sheets = %v, want %v", got, want)
	}

	total, err := f.GetCellValue(SheetSummary, "B4")
	if err != nil {
		t.Fatal(err)
	}
	if total != "3" {
		t.Errorf("total = %q, want 3", total)
	}

	rows, err := f.GetRows(SheetSenders)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("participant rows = %d, want 3", len(rows))
	}
	if rows[1][1] != "Bob" || rows[1][2] != "2" {
		t.Errorf("first participant row = %v, want [1 Bob 2]", rows[1])
	}

	hours, err := f.GetRows(SheetHourly)
	if err != nil {
		t.Fatal(err)
	}
	if len(hours) != 25 {
		t.Fatalf("hour rows = %d, want 25", len(hours))
	}
	if hours[17][0] != "16" || hours[17][1] != "3" {
		t.Errorf("hour 16 row = %v, want [16 3]", hours[17])
	}

	recent, err := f.GetRows(SheetRecent)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 4 {
		t.Fatalf("recent rows = %d, want 4", len(recent))
	}
	if got := recent[1]; got[0] != "29/05 16:26:49" || got[1] != "Direto" || got[2] != "Bob" || got[3] != "again" {
		t.Errorf("newest row = %v", got)
	}
	if got := recent[2]; got[1] != "Team" {
		t.Errorf("group = %q, want Team", got[1])
	}
}

func TestWrite_EmptySnapshotWithError(t *testing.T) {
	snap := dashboard.Snapshot{
		Source:  "/data/messages.json",
		Error:   "Erro ao carregar mensagens: boom",
		Warning: dashboard.EmptyWarning,
		Summary: stats.Summarize(message.Empty(), stats.Options{}),
	}

	var buf bytes.Buffer
	if err := Write(&buf, snap); err != nil {
		t.Fatalf("Write error: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader error: %v", err)
	}
	defer f.Close()

	msg, err := f.GetCellValue(SheetSummary, "B8")
	if err != nil {
		t.Fatal(err)
	}
	if msg != snap.Error {
		t.Errorf("error cell = %q, want %q", msg, snap.Error)
	}
	hours, err := f.GetRows(SheetHourly)
	if err != nil {
		t.Fatal(err)
	}
	if len(hours) != 1 {
		t.Errorf("hour rows = %d, want header only", len(hours))
	}
}

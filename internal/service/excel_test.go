package service

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func buildWorkbook(t *testing.T, rows [][]string) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for r, cells := range rows {
		for c, value := range cells {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
			f.SetCellValue(sheet, cell, value)
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return &buf
}

func newTestExcel(t *testing.T) (*ExcelService, *ProjectService, *RequirementService) {
	t.Helper()
	db := openTestDB(t)
	projects := NewProjectService(db)
	requirements := NewRequirementService(db)
	svc := NewExcelService(db, requirements, projects, nil, t.TempDir())
	return svc, projects, requirements
}

func TestImportGermanHeaders(t *testing.T) {
	svc, projects, requirements := newTestExcel(t)
	owner := createUser(t, svc.db, "owner@example.com")
	project, _ := projects.Create("Demo", owner.ID)

	buf := buildWorkbook(t, [][]string{
		{"Titel", "Beschreibung", "Prioritaet", "Kategorie", "Status"},
		{"Login", "Anmeldung am System", "Hoch", "Auth", "Offen"},
		{"Logout", "Abmeldung", "–", "Auth", "Fertig"},
		{"Kein Inhalt", "", "", "", ""},
		{"", "", "", "", ""},
	})

	result, err := svc.Import(context.Background(), project.ID, owner.ID, "anforderungen.xlsx", buf, false, "")
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if result.Saved != 2 || result.Skipped != 1 {
		t.Fatalf("want saved=2 skipped=1 got %+v", result)
	}
	if len(result.NewColumns) != 1 || result.NewColumns[0] != "Prioritaet" {
		t.Fatalf("want new column Prioritaet, got %v", result.NewColumns)
	}

	loaded, _ := projects.GetByID(project.ID)
	if !loaded.CustomColumns.Contains("Prioritaet") {
		t.Fatalf("column not merged: %v", loaded.CustomColumns)
	}

	reqs, _ := requirements.ListByProject(project.ID)
	if len(reqs) != 2 {
		t.Fatalf("want 2 requirements got %d", len(reqs))
	}
	for i := range reqs {
		latest := reqs[i].LatestVersion()
		if latest.SourceFileID == nil || *latest.SourceFileID != result.FileID {
			t.Fatalf("source file not recorded: %+v", latest)
		}
		switch latest.Title {
		case "Login":
			if latest.CustomData["Prioritaet"] != "Hoch" || latest.Status != "Open" {
				t.Fatalf("login row wrong: %+v", latest)
			}
		case "Logout":
			// A dash cell counts as empty and stays out of the sparse map.
			if _, ok := latest.CustomData["Prioritaet"]; ok {
				t.Fatalf("dash cell stored: %+v", latest.CustomData)
			}
			if latest.Status != "Done" {
				t.Fatalf("status alias not normalized: %s", latest.Status)
			}
		}
	}

	files, err := svc.ListFiles(project.ID, owner.ID)
	if err != nil || len(files) != 1 {
		t.Fatalf("want 1 file record, got %d (%v)", len(files), err)
	}
	if files[0].Kind != "import" || files[0].Name != "anforderungen.xlsx" {
		t.Fatalf("unexpected file record: %+v", files[0])
	}
}

func TestImportEnglishHeadersAndExportLayout(t *testing.T) {
	svc, projects, _ := newTestExcel(t)
	owner := createUser(t, svc.db, "owner@example.com")
	project, _ := projects.Create("Demo", owner.ID)
	projects.AddColumn(project.ID, owner.ID, "Risiko")

	buf := buildWorkbook(t, [][]string{
		{"Title", "Description", "Category", "Status"},
		{"Login", "sign in", "Auth", "in progress"},
	})
	if _, err := svc.Import(context.Background(), project.ID, owner.ID, "reqs.xlsx", buf, false, ""); err != nil {
		t.Fatalf("Import: %v", err)
	}

	file, path, err := svc.Export(project.ID, owner.ID)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if file.Kind != "export" || !strings.HasSuffix(file.Name, ".xlsx") {
		t.Fatalf("unexpected export record: %+v", file)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open export: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("want header+1 row, got %d", len(rows))
	}

	header := strings.Join(rows[0], "|")
	if header != "Version|ID|Title|Beschreibung|Risiko|Kategorie|Status" {
		t.Fatalf("unexpected header: %s", header)
	}

	row := rows[1]
	if row[0] != "A" || row[2] != "Login" || row[3] != "sign in" {
		t.Fatalf("unexpected row: %v", row)
	}
	if row[4] != "–" {
		t.Fatalf("empty custom cell must export as dash, got %q", row[4])
	}
	if row[6] != "InProgress" {
		t.Fatalf("unexpected status: %q", row[6])
	}
}

func TestImportRejectsSheetWithoutTitleColumn(t *testing.T) {
	svc, projects, _ := newTestExcel(t)
	owner := createUser(t, svc.db, "owner@example.com")
	project, _ := projects.Create("Demo", owner.ID)

	buf := buildWorkbook(t, [][]string{
		{"Beschreibung", "Status"},
		{"nur text", "Offen"},
	})
	_, err := svc.Import(context.Background(), project.ID, owner.ID, "broken.xlsx", buf, false, "")
	if err == nil || !strings.Contains(err.Error(), "40002") {
		t.Fatalf("want 40002, got %v", err)
	}
}

func TestExportOwnerOnly(t *testing.T) {
	svc, projects, _ := newTestExcel(t)
	owner := createUser(t, svc.db, "owner@example.com")
	guest := createUser(t, svc.db, "guest@example.com")
	project, _ := projects.Create("Demo", owner.ID)
	shareProject(t, svc.db, project.ID, guest.ID)

	_, _, err := svc.Export(project.ID, guest.ID)
	if err == nil || !strings.Contains(err.Error(), "40302") {
		t.Fatalf("want 40302 for shared user, got %v", err)
	}
}

func TestImportReimportAppendsVersions(t *testing.T) {
	svc, projects, requirements := newTestExcel(t)
	owner := createUser(t, svc.db, "owner@example.com")
	project, _ := projects.Create("Demo", owner.ID)

	first := buildWorkbook(t, [][]string{
		{"Titel", "Beschreibung"},
		{"Login", "v1"},
	})
	if _, err := svc.Import(context.Background(), project.ID, owner.ID, "a.xlsx", first, false, ""); err != nil {
		t.Fatalf("first import: %v", err)
	}

	// A re-imported export carries Version and ID columns; they are ignored
	// and matching titles get a new version.
	second := buildWorkbook(t, [][]string{
		{"Version", "ID", "Titel", "Beschreibung"},
		{"A", "1", "Login", "v2"},
	})
	if _, err := svc.Import(context.Background(), project.ID, owner.ID, "b.xlsx", second, false, ""); err != nil {
		t.Fatalf("second import: %v", err)
	}

	reqs, _ := requirements.ListByProject(project.ID)
	if len(reqs) != 1 {
		t.Fatalf("want 1 requirement got %d", len(reqs))
	}
	latest := reqs[0].LatestVersion()
	if latest.VersionLabel != "B" || latest.Description != "v2" {
		t.Fatalf("want version B/v2, got %s/%s", latest.VersionLabel, latest.Description)
	}
}

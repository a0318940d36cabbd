package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Aliwes1999/Interface-for-MBSE-Models/internal/model"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// headerAliases maps spreadsheet header spellings (German and English) onto
// the fixed version fields. Unmapped headers become custom columns.
var headerAliases = map[string]string{
	"title":        "title",
	"titel":        "title",
	"description":  "description",
	"beschreibung": "description",
	"category":     "category",
	"kategorie":    "category",
	"status":       "status",
}

// ignoredHeaders are columns a previously exported sheet carries that have no
// meaning on import.
var ignoredHeaders = map[string]bool{
	"version": true,
	"id":      true,
}

// emptyCell is written for absent values on export.
const emptyCell = "–"

type ExcelService struct {
	db           *gorm.DB
	requirements *RequirementService
	projects     *ProjectService
	generation   *GenerationService
	uploadDir    string
}

func NewExcelService(db *gorm.DB, requirements *RequirementService, projects *ProjectService, generation *GenerationService, uploadDir string) *ExcelService {
	return &ExcelService{
		db:           db,
		requirements: requirements,
		projects:     projects,
		generation:   generation,
		uploadDir:    uploadDir,
	}
}

// ImportResult summarizes one finished spreadsheet import.
type ImportResult struct {
	FileID     uint     `json:"file_id"`
	Saved      int      `json:"saved"`
	Skipped    int      `json:"skipped"`
	NewColumns []string `json:"new_columns"`
}

// Import parses an uploaded xlsx, merges any new custom columns into the
// project, and appends one version per usable row. With optimize set the rows
// pass through the AI collaborator before they are saved. The uploaded file is
// kept on disk and recorded so versions can reference their source.
func (s *ExcelService) Import(ctx context.Context, projectID, userID uint, filename string, r io.Reader, optimize bool, description string) (*ImportResult, error) {
	project, err := s.projects.GetByID(projectID)
	if err != nil {
		return nil, err
	}
	if err := s.projects.CheckAccess(project, userID); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	rows, newColumns, skipped, err := parseSheet(data, project.CustomColumns)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("40002:表格中没有可导入的需求行")
	}

	if optimize && s.generation != nil {
		columns := targetColumns(append(append([]string{}, project.CustomColumns...), newColumns...))
		rows, err = s.generation.Optimize(ctx, userID, rows, columns, description)
		if err != nil {
			return nil, err
		}
	}

	storedName, size, err := s.store(filename, data)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{NewColumns: newColumns}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.projects.MergeColumns(tx, project, newColumns); err != nil {
			return err
		}

		file := &model.File{
			ProjectID:  projectID,
			UploaderID: userID,
			Name:       filename,
			StoredName: storedName,
			Kind:       model.FileKindImport,
			Size:       size,
		}
		if err := tx.Create(file).Error; err != nil {
			return err
		}
		result.FileID = file.ID

		saved, batchSkipped, err := s.requirements.SaveRowsInTx(tx, projectID, rows, project.CustomColumns, userID, &file.ID, nil)
		if err != nil {
			return err
		}
		result.Saved = saved
		result.Skipped = skipped + batchSkipped
		return nil
	})
	if err != nil {
		s.remove(storedName)
		return nil, err
	}

	logOperation(s.db, userID, "file.import", "project", projectID, model.JSONMap{
		"file":  filename,
		"saved": result.Saved,
	})
	return result, nil
}

// parseSheet reads the first sheet into candidate rows. Header aliases are
// resolved case-insensitively; rows missing a title or description are
// dropped and counted.
func parseSheet(data []byte, known model.StringList) ([]map[string]string, []string, int, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, 0, fmt.Errorf("40002:无法解析 Excel 文件")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, 0, fmt.Errorf("40002:Excel 文件中没有工作表")
	}
	raw, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, 0, fmt.Errorf("40002:无法读取工作表")
	}
	if len(raw) < 2 {
		return nil, nil, 0, fmt.Errorf("40002:表格中没有可导入的需求行")
	}

	// fields[i] is the canonical key for column i; "" means ignore.
	fields := make([]string, len(raw[0]))
	var newColumns []string
	hasTitle := false
	for i, header := range raw[0] {
		header = strings.TrimSpace(header)
		if header == "" || ignoredHeaders[strings.ToLower(header)] {
			continue
		}
		if field, ok := headerAliases[strings.ToLower(header)]; ok {
			fields[i] = field
			if field == "title" {
				hasTitle = true
			}
			continue
		}
		fields[i] = header
		if !known.Contains(header) && !containsString(newColumns, header) {
			newColumns = append(newColumns, header)
		}
	}
	if !hasTitle {
		return nil, nil, 0, fmt.Errorf("40002:表格缺少 Titel/Title 列")
	}

	var rows []map[string]string
	skipped := 0
	for _, cells := range raw[1:] {
		row := map[string]string{}
		for i, field := range fields {
			if field == "" || i >= len(cells) {
				continue
			}
			value := strings.TrimSpace(cells[i])
			if value == emptyCell {
				value = ""
			}
			row[field] = value
		}
		if row["title"] == "" && row["description"] == "" {
			continue
		}
		if row["title"] == "" || row["description"] == "" {
			skipped++
			continue
		}
		rows = append(rows, row)
	}
	return rows, newColumns, skipped, nil
}

// Export writes the project's current state (latest version per requirement)
// to an xlsx on disk and records it. Owner-only.
func (s *ExcelService) Export(projectID, userID uint) (*model.File, string, error) {
	project, err := s.projects.GetByID(projectID)
	if err != nil {
		return nil, "", err
	}
	if err := s.projects.CheckOwner(project, userID); err != nil {
		return nil, "", err
	}

	reqs, err := s.requirements.ListByProject(projectID)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	headers := []string{"Version", "ID", "Title", "Beschreibung"}
	headers = append(headers, project.CustomColumns...)
	headers = append(headers, "Kategorie", "Status")
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	rowNum := 2
	for i := range reqs {
		latest := reqs[i].LatestVersion()
		if latest == nil {
			continue
		}
		// The ID column is a display counter, not the database id.
		cells := []string{
			latest.VersionLabel,
			fmt.Sprintf("%d", rowNum-1),
			orDash(latest.Title),
			orDash(latest.Description),
		}
		for _, col := range project.CustomColumns {
			cells = append(cells, orDash(latest.CustomData[col]))
		}
		cells = append(cells, orDash(latest.Category), orDash(latest.Status))
		for j, value := range cells {
			cell, _ := excelize.CoordinatesToCellName(j+1, rowNum)
			f.SetCellValue(sheet, cell, value)
		}
		rowNum++
	}

	name := fmt.Sprintf("%s_export.xlsx", sanitizeFilename(project.Name))
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, "", fmt.Errorf("write workbook: %w", err)
	}
	storedName, size, err := s.store(name, buf.Bytes())
	if err != nil {
		return nil, "", err
	}

	file := &model.File{
		ProjectID:  projectID,
		UploaderID: userID,
		Name:       name,
		StoredName: storedName,
		Kind:       model.FileKindExport,
		Size:       size,
	}
	if err := s.db.Create(file).Error; err != nil {
		s.remove(storedName)
		return nil, "", err
	}

	logOperation(s.db, userID, "file.export", "project", projectID, model.JSONMap{"file": name})
	return file, filepath.Join(s.uploadDir, storedName), nil
}

// ListFiles returns the project's import/export records, newest first.
func (s *ExcelService) ListFiles(projectID, userID uint) ([]model.File, error) {
	project, err := s.projects.GetByID(projectID)
	if err != nil {
		return nil, err
	}
	if err := s.projects.CheckAccess(project, userID); err != nil {
		return nil, err
	}

	var files []model.File
	err = s.db.Where("project_id = ?", projectID).
		Preload("Uploader").
		Order("created_at desc").
		Find(&files).Error
	if err != nil {
		return nil, err
	}
	return files, nil
}

// FilePath resolves a recorded file to its on-disk path for download.
func (s *ExcelService) FilePath(fileID, userID uint) (*model.File, string, error) {
	var file model.File
	if err := s.db.First(&file, fileID).Error; err != nil {
		return nil, "", fmt.Errorf("40404:文件不存在")
	}
	project, err := s.projects.GetByID(file.ProjectID)
	if err != nil {
		return nil, "", err
	}
	if err := s.projects.CheckAccess(project, userID); err != nil {
		return nil, "", err
	}
	return &file, filepath.Join(s.uploadDir, file.StoredName), nil
}

func (s *ExcelService) store(name string, data []byte) (string, int64, error) {
	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return "", 0, fmt.Errorf("create upload dir: %w", err)
	}
	ext := filepath.Ext(name)
	if ext == "" {
		ext = ".xlsx"
	}
	storedName := uuid.NewString() + ext
	if err := os.WriteFile(filepath.Join(s.uploadDir, storedName), data, 0o644); err != nil {
		return "", 0, fmt.Errorf("store file: %w", err)
	}
	return storedName, int64(len(data)), nil
}

func (s *ExcelService) remove(storedName string) {
	if storedName != "" {
		os.Remove(filepath.Join(s.uploadDir, storedName))
	}
}

func orDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return emptyCell
	}
	return value
}

func sanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r == ' ':
			b.WriteByte('_')
		case strings.ContainsRune(`/\:*?"<>|`, r):
		default:
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "project"
	}
	return b.String()
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

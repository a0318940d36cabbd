package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Aliwes1999/Interface-for-MBSE-Models/internal/config"
	"github.com/Aliwes1999/Interface-for-MBSE-Models/internal/model"
	"github.com/Aliwes1999/Interface-for-MBSE-Models/internal/sse"
	"github.com/Aliwes1999/Interface-for-MBSE-Models/pkg/ai"
	"gorm.io/gorm"
)

// knownFields are the fixed version fields; everything else in a candidate
// row is a custom column.
var knownFields = map[string]bool{
	"title":       true,
	"description": true,
	"category":    true,
	"status":      true,
}

// Generator is the text-generation collaborator consumed by the engine.
// *ai.Client is the production implementation.
type Generator interface {
	Generate(ctx context.Context, req ai.GenerateRequest) ([]map[string]string, error)
	GenerateAlternative(ctx context.Context, req ai.AlternativeRequest) (map[string]string, error)
}

type GenerationService struct {
	db           *gorm.DB
	requirements *RequirementService
	projects     *ProjectService
	settings     *SettingService
	hub          *sse.Hub
	defaults     config.AIConfig

	// newGenerator builds the client per request so per-user settings apply;
	// tests swap it for a fake.
	newGenerator func(ai.Config) Generator
}

func NewGenerationService(db *gorm.DB, requirements *RequirementService, projects *ProjectService, settings *SettingService, hub *sse.Hub, defaults config.AIConfig) *GenerationService {
	return &GenerationService{
		db:           db,
		requirements: requirements,
		projects:     projects,
		settings:     settings,
		hub:          hub,
		defaults:     defaults,
		newGenerator: func(cfg ai.Config) Generator { return ai.NewClient(cfg) },
	}
}

// GenerateResult summarizes one finished batch.
type GenerateResult struct {
	Saved   int `json:"saved"`
	Skipped int `json:"skipped"`
}

// Generate runs one AI batch for a project: asks the collaborator for
// candidate rows against the project's current column list, merges any new
// columns the rows introduce, and appends all versions in one transaction.
func (s *GenerationService) Generate(ctx context.Context, projectID, userID uint, description string, inputs map[string]string) (*GenerateResult, error) {
	project, err := s.projects.GetByID(projectID)
	if err != nil {
		return nil, err
	}
	if err := s.projects.CheckAccess(project, userID); err != nil {
		return nil, err
	}

	gen, err := s.generatorFor(userID)
	if err != nil {
		return nil, err
	}

	columns := targetColumns(project.CustomColumns)
	s.publish(projectID, sse.EventGenerationStarted, map[string]interface{}{
		"project_id": projectID,
	})

	rows, err := gen.Generate(ctx, ai.GenerateRequest{
		Description: description,
		Inputs:      inputs,
		Columns:     columns,
	})
	if err != nil {
		coded := mapAIError(err)
		s.publish(projectID, sse.EventGenerationFailed, map[string]interface{}{"error": coded.Error()})
		return nil, coded
	}

	result := &GenerateResult{}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.projects.MergeColumns(tx, project, extraColumns(rows, project.CustomColumns)); err != nil {
			return err
		}
		saved, skipped, err := s.requirements.SaveRowsInTx(tx, projectID, rows, project.CustomColumns, userID, nil, func(v *model.RequirementVersion) {
			s.publish(projectID, sse.EventGenerationRow, map[string]interface{}{
				"requirement_id": v.RequirementID,
				"version_label":  v.VersionLabel,
				"title":          v.Title,
			})
		})
		if err != nil {
			return err
		}
		result.Saved = saved
		result.Skipped = skipped
		return nil
	})
	if err != nil {
		s.publish(projectID, sse.EventGenerationFailed, map[string]interface{}{"error": err.Error()})
		return nil, err
	}

	s.publish(projectID, sse.EventGenerationCompleted, map[string]interface{}{
		"saved":   result.Saved,
		"skipped": result.Skipped,
	})
	if s.hub != nil {
		s.hub.SetExpire(projectID, time.Hour)
	}
	return result, nil
}

// Regenerate asks the collaborator for one improved alternative of a
// requirement's latest version and appends it as the next version.
func (s *GenerationService) Regenerate(ctx context.Context, requirementID, userID uint) (*model.RequirementVersion, error) {
	req, err := s.requirements.GetByID(requirementID)
	if err != nil {
		return nil, err
	}
	project := req.Project
	if project == nil {
		return nil, fmt.Errorf("40401:项目不存在")
	}
	if err := s.projects.CheckAccess(project, userID); err != nil {
		return nil, err
	}

	latest := req.LatestVersion()
	if latest == nil {
		return nil, fmt.Errorf("40003:没有可用于再生成的版本")
	}

	gen, err := s.generatorFor(userID)
	if err != nil {
		return nil, err
	}

	customData := make(map[string]string, len(project.CustomColumns))
	for _, col := range project.CustomColumns {
		if v, ok := latest.CustomData[col]; ok {
			customData[col] = v
		}
	}

	row, err := gen.GenerateAlternative(ctx, ai.AlternativeRequest{
		ProjectName: project.Name,
		Title:       latest.Title,
		Description: latest.Description,
		Category:    latest.Category,
		CustomData:  customData,
		Columns:     targetColumns(project.CustomColumns),
	})
	if err != nil {
		return nil, mapAIError(err)
	}

	// Fall back to the previous version for anything the model left out.
	pick := func(key, fallback string) string {
		if v := row[key]; v != "" {
			return v
		}
		return fallback
	}
	custom := make(map[string]string, len(project.CustomColumns))
	for _, col := range project.CustomColumns {
		custom[col] = pick(col, latest.CustomData[col])
	}

	var version *model.RequirementVersion
	err = s.db.Transaction(func(tx *gorm.DB) error {
		version, err = s.requirements.AppendVersion(tx, req, VersionInput{
			Title:       pick("title", latest.Title),
			Description: pick("description", latest.Description),
			Category:    pick("category", latest.Category),
			Status:      model.StatusOpen,
			Custom:      custom,
			CreatedByID: &userID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return version, nil
}

// Optimize passes existing rows through the collaborator before they are
// saved; used by the spreadsheet import's optimize flag.
func (s *GenerationService) Optimize(ctx context.Context, userID uint, rows []map[string]string, columns []string, description string) ([]map[string]string, error) {
	gen, err := s.generatorFor(userID)
	if err != nil {
		return nil, err
	}
	optimized, err := gen.Generate(ctx, ai.GenerateRequest{
		Description: description,
		Columns:     columns,
		Existing:    rows,
	})
	if err != nil {
		return nil, mapAIError(err)
	}
	return optimized, nil
}

func (s *GenerationService) generatorFor(userID uint) (Generator, error) {
	cfg, err := s.settings.ResolveAIConfig(userID, s.defaults)
	if err != nil {
		return nil, err
	}
	return s.newGenerator(cfg), nil
}

func (s *GenerationService) publish(projectID uint, eventType string, data interface{}) {
	if s.hub == nil {
		return
	}
	s.hub.Broadcast(projectID, sse.Event{Type: eventType, Data: data})
}

// targetColumns is the ordered column list sent to the collaborator:
// title, description, the project's custom columns, then category.
func targetColumns(custom []string) []string {
	columns := make([]string, 0, len(custom)+3)
	columns = append(columns, "title", "description")
	columns = append(columns, custom...)
	columns = append(columns, "category")
	return columns
}

// extraColumns collects row keys that are neither fixed fields nor known
// custom columns. Keys are sorted per row so the merge order is stable.
func extraColumns(rows []map[string]string, known model.StringList) []string {
	var extras []string
	seen := map[string]bool{}
	for _, row := range rows {
		keys := make([]string, 0, len(row))
		for key := range row {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			if knownFields[key] || known.Contains(key) || seen[key] {
				continue
			}
			seen[key] = true
			extras = append(extras, key)
		}
	}
	return extras
}

func mapAIError(err error) error {
	switch {
	case errors.Is(err, ai.ErrNotConfigured):
		return fmt.Errorf("50002:AI 服务未配置，请先设置 API Key")
	case errors.Is(err, ai.ErrGeneration):
		return fmt.Errorf("50003:AI 生成失败: %v", err)
	default:
		return err
	}
}

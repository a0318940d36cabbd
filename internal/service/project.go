package service

import (
	"fmt"
	"strings"

	"github.com/Aliwes1999/Interface-for-MBSE-Models/internal/model"
	"gorm.io/gorm"
)

type ProjectService struct {
	db *gorm.DB
}

func NewProjectService(db *gorm.DB) *ProjectService {
	return &ProjectService{db: db}
}

func (s *ProjectService) Create(name string, ownerID uint) (*model.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("40002:项目名称不能为空")
	}

	var count int64
	s.db.Model(&model.Project{}).Where("name = ? AND owner_id = ?", name, ownerID).Count(&count)
	if count > 0 {
		return nil, fmt.Errorf("40005:项目名称已存在")
	}

	project := &model.Project{
		Name:          name,
		OwnerID:       ownerID,
		CustomColumns: model.StringList{},
	}
	if err := s.db.Create(project).Error; err != nil {
		return nil, err
	}
	s.db.Preload("Owner").First(project, project.ID)
	return project, nil
}

// List returns projects the user owns or that are shared with them.
func (s *ProjectService) List(userID uint) ([]model.Project, error) {
	var projects []model.Project
	err := s.db.
		Where("owner_id = ? OR id IN (SELECT project_id FROM project_shares WHERE user_id = ?)", userID, userID).
		Preload("Owner").
		Order("updated_at desc").
		Find(&projects).Error
	if err != nil {
		return nil, err
	}
	return projects, nil
}

func (s *ProjectService) GetByID(id uint) (*model.Project, error) {
	var project model.Project
	if err := s.db.Preload("Owner").Preload("SharedWith").First(&project, id).Error; err != nil {
		return nil, fmt.Errorf("40401:项目不存在")
	}
	return &project, nil
}

func (s *ProjectService) Rename(id, userID uint, name string) (*model.Project, error) {
	project, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	if err := s.CheckOwner(project, userID); err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("40002:项目名称不能为空")
	}
	var count int64
	s.db.Model(&model.Project{}).Where("name = ? AND owner_id = ? AND id != ?", name, userID, id).Count(&count)
	if count > 0 {
		return nil, fmt.Errorf("40005:项目名称已存在")
	}

	if err := s.db.Model(project).Update("name", name).Error; err != nil {
		return nil, err
	}
	return s.GetByID(id)
}

// Delete removes a project and everything under it: requirements, versions,
// shares and file records. Owner-only.
func (s *ProjectService) Delete(id, userID uint) error {
	project, err := s.GetByID(id)
	if err != nil {
		return err
	}
	if err := s.CheckOwner(project, userID); err != nil {
		return err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var reqIDs []uint
		tx.Model(&model.Requirement{}).Where("project_id = ?", id).Pluck("id", &reqIDs)
		if len(reqIDs) > 0 {
			if err := tx.Where("requirement_id IN ?", reqIDs).Delete(&model.RequirementVersion{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("project_id = ?", id).Delete(&model.Requirement{}).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM project_shares WHERE project_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", id).Delete(&model.File{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Project{}, id).Error
	})
	if err != nil {
		return err
	}
	logOperation(s.db, userID, "project.delete", "project", id, model.JSONMap{"name": project.Name})
	return nil
}

// AddColumn appends one custom column. Owner-only; duplicates are rejected.
func (s *ProjectService) AddColumn(projectID, userID uint, name string) (*model.Project, error) {
	project, err := s.GetByID(projectID)
	if err != nil {
		return nil, err
	}
	if err := s.CheckOwner(project, userID); err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("40002:列名不能为空")
	}
	if project.CustomColumns.Contains(name) {
		return nil, fmt.Errorf("40005:列已存在")
	}

	project.CustomColumns = append(project.CustomColumns, name)
	if err := s.db.Model(project).Update("custom_columns", project.CustomColumns).Error; err != nil {
		return nil, err
	}
	logOperation(s.db, userID, "project.add_column", "project", projectID, model.JSONMap{"column": name})
	return project, nil
}

// RemoveColumn drops the name from the project's column list. Values already
// stored in version custom-data maps are kept; the field just becomes
// unreferenced.
func (s *ProjectService) RemoveColumn(projectID, userID uint, name string) (*model.Project, error) {
	project, err := s.GetByID(projectID)
	if err != nil {
		return nil, err
	}
	if err := s.CheckOwner(project, userID); err != nil {
		return nil, err
	}

	if !project.CustomColumns.Contains(name) {
		return nil, fmt.Errorf("40402:列不存在")
	}

	columns := make(model.StringList, 0, len(project.CustomColumns)-1)
	for _, col := range project.CustomColumns {
		if col != name {
			columns = append(columns, col)
		}
	}
	project.CustomColumns = columns
	if err := s.db.Model(project).Update("custom_columns", columns).Error; err != nil {
		return nil, err
	}
	logOperation(s.db, userID, "project.remove_column", "project", projectID, model.JSONMap{"column": name})
	return project, nil
}

// MergeColumns appends any names the project has not seen yet, preserving
// existing order and de-duplicating. Used when AI output or an imported
// spreadsheet introduces new columns.
func (s *ProjectService) MergeColumns(tx *gorm.DB, project *model.Project, newNames []string) error {
	changed := false
	for _, name := range newNames {
		name = strings.TrimSpace(name)
		if name == "" || project.CustomColumns.Contains(name) {
			continue
		}
		project.CustomColumns = append(project.CustomColumns, name)
		changed = true
	}
	if !changed {
		return nil
	}
	return tx.Model(&model.Project{}).Where("id = ?", project.ID).
		Update("custom_columns", project.CustomColumns).Error
}

// Share grants another user access by email. Owner-only; the owner cannot
// share with themselves.
func (s *ProjectService) Share(projectID, userID uint, email string) (*model.User, error) {
	project, err := s.GetByID(projectID)
	if err != nil {
		return nil, err
	}
	if err := s.CheckOwner(project, userID); err != nil {
		return nil, err
	}

	var target model.User
	if err := s.db.Where("email = ?", strings.TrimSpace(email)).First(&target).Error; err != nil {
		return nil, fmt.Errorf("40404:用户不存在")
	}
	if target.ID == project.OwnerID {
		return nil, fmt.Errorf("40003:不能与项目所有者共享")
	}

	var count int64
	s.db.Table("project_shares").Where("project_id = ? AND user_id = ?", projectID, target.ID).Count(&count)
	if count > 0 {
		return nil, fmt.Errorf("40005:已与该用户共享")
	}

	if err := s.db.Model(project).Association("SharedWith").Append(&target); err != nil {
		return nil, err
	}
	logOperation(s.db, userID, "project.share", "project", projectID, model.JSONMap{"user_id": target.ID, "email": target.Email})
	return &target, nil
}

func (s *ProjectService) Unshare(projectID, userID, targetUserID uint) error {
	project, err := s.GetByID(projectID)
	if err != nil {
		return err
	}
	if err := s.CheckOwner(project, userID); err != nil {
		return err
	}

	var count int64
	s.db.Table("project_shares").Where("project_id = ? AND user_id = ?", projectID, targetUserID).Count(&count)
	if count == 0 {
		return fmt.Errorf("40404:该用户不在共享列表中")
	}

	if err := s.db.Exec("DELETE FROM project_shares WHERE project_id = ? AND user_id = ?", projectID, targetUserID).Error; err != nil {
		return err
	}
	logOperation(s.db, userID, "project.unshare", "project", projectID, model.JSONMap{"user_id": targetUserID})
	return nil
}

// CheckAccess verifies read/write access: owner or shared user.
func (s *ProjectService) CheckAccess(project *model.Project, userID uint) error {
	if project.OwnerID == userID {
		return nil
	}
	var count int64
	s.db.Table("project_shares").Where("project_id = ? AND user_id = ?", project.ID, userID).Count(&count)
	if count == 0 {
		return fmt.Errorf("40301:无权访问该项目")
	}
	return nil
}

// CheckOwner verifies an owner-only operation.
func (s *ProjectService) CheckOwner(project *model.Project, userID uint) error {
	if project.OwnerID != userID {
		return fmt.Errorf("40302:仅项目所有者可执行此操作")
	}
	return nil
}

// Stats counts a project's non-deleted requirements by latest-version status.
func (s *ProjectService) Stats(projectID uint) (map[string]int64, error) {
	var reqs []model.Requirement
	err := s.db.Where("project_id = ? AND is_deleted = ?", projectID, false).
		Preload("Versions", func(db *gorm.DB) *gorm.DB { return db.Order("version_index asc") }).
		Find(&reqs).Error
	if err != nil {
		return nil, err
	}

	stats := map[string]int64{
		model.StatusOpen:       0,
		model.StatusInProgress: 0,
		model.StatusDone:       0,
	}
	for i := range reqs {
		if latest := reqs[i].LatestVersion(); latest != nil {
			stats[latest.Status]++
		}
	}
	stats["total"] = int64(len(reqs))
	return stats, nil
}

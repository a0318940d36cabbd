package service

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/Aliwes1999/Interface-for-MBSE-Models/internal/model"
	"gorm.io/gorm"
)

type RequirementService struct {
	db *gorm.DB
}

func NewRequirementService(db *gorm.DB) *RequirementService {
	return &RequirementService{db: db}
}

// NormalizeKey derives the dedup key for a title: lower-cased, Unicode
// letters and digits kept, every other run collapsed to one space, trimmed,
// truncated to 200 runes. "Café Login!!" -> "café login".
func NormalizeKey(title string) string {
	var b strings.Builder
	pendingSpace := false
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
		} else {
			pendingSpace = true
		}
	}
	key := b.String()
	if runes := []rune(key); len(runes) > 200 {
		key = strings.TrimSpace(string(runes[:200]))
	}
	return key
}

// ResolveOrCreate finds the non-deleted requirement matching the title's key
// within the project, creating it on first sight. The create is flushed
// immediately so later rows of the same batch see a stable id.
func (s *RequirementService) ResolveOrCreate(tx *gorm.DB, projectID uint, title string) (*model.Requirement, error) {
	key := NormalizeKey(title)
	if key == "" {
		return nil, fmt.Errorf("40002:标题不能为空")
	}

	var req model.Requirement
	err := tx.Where("project_id = ? AND `key` = ? AND is_deleted = ?", projectID, key, false).First(&req).Error
	if err == nil {
		return &req, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	req = model.Requirement{ProjectID: projectID, Key: key}
	if err := tx.Create(&req).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

// NextVersion returns max(version_index)+1 and the derived label. The maximum
// is always read from the database, never from an in-memory slice: within a
// batch earlier iterations may have appended versions a stale relationship
// would not show, and gaps left by deleted versions must not be reused.
func (s *RequirementService) NextVersion(tx *gorm.DB, requirementID uint) (int, string, error) {
	var maxIndex int
	err := tx.Model(&model.RequirementVersion{}).
		Where("requirement_id = ?", requirementID).
		Select("COALESCE(MAX(version_index), 0)").
		Scan(&maxIndex).Error
	if err != nil {
		return 0, "", err
	}
	next := maxIndex + 1
	return next, model.VersionLabel(next), nil
}

// VersionInput carries the fields of a new version. Custom holds candidate
// custom-column values; empty ones are not stored (sparse map).
type VersionInput struct {
	Title        string
	Description  string
	Category     string
	Status       string
	Custom       map[string]string
	CreatedByID  *uint
	SourceFileID *uint
}

func (s *RequirementService) AppendVersion(tx *gorm.DB, req *model.Requirement, in VersionInput) (*model.RequirementVersion, error) {
	index, label, err := s.NextVersion(tx, req.ID)
	if err != nil {
		return nil, err
	}

	status := in.Status
	if status == "" {
		status = model.StatusOpen
	}

	custom := model.StringMap{}
	for col, value := range in.Custom {
		if value != "" {
			custom[col] = value
		}
	}

	version := &model.RequirementVersion{
		RequirementID: req.ID,
		VersionIndex:  index,
		VersionLabel:  label,
		Title:         in.Title,
		Description:   in.Description,
		Category:      in.Category,
		Status:        status,
		CustomData:    custom,
		CreatedByID:   in.CreatedByID,
		SourceFileID:  in.SourceFileID,
	}
	if err := tx.Create(version).Error; err != nil {
		return nil, err
	}
	return version, nil
}

// SaveRows persists a batch of candidate rows (AI generation or import) in a
// single transaction. Rows without a usable title are skipped and counted;
// any persistence error rolls the whole batch back. onRow, if set, is called
// after each saved version (still inside the transaction).
func (s *RequirementService) SaveRows(projectID uint, rows []map[string]string, customColumns []string, creatorID uint, sourceFileID *uint, onRow func(*model.RequirementVersion)) (int, int, error) {
	saved, skipped := 0, 0
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		saved, skipped, err = s.SaveRowsInTx(tx, projectID, rows, customColumns, creatorID, sourceFileID, onRow)
		return err
	})
	if err != nil {
		return 0, 0, err
	}
	return saved, skipped, nil
}

// SaveRowsInTx is SaveRows running inside a caller-provided transaction, so
// column merges and file records can commit or roll back with the rows.
func (s *RequirementService) SaveRowsInTx(tx *gorm.DB, projectID uint, rows []map[string]string, customColumns []string, creatorID uint, sourceFileID *uint, onRow func(*model.RequirementVersion)) (int, int, error) {
	saved, skipped := 0, 0
	for _, row := range rows {
		title := strings.TrimSpace(row["title"])
		if title == "" || NormalizeKey(title) == "" {
			skipped++
			continue
		}

		req, err := s.ResolveOrCreate(tx, projectID, title)
		if err != nil {
			return 0, 0, err
		}

		custom := make(map[string]string, len(customColumns))
		for _, col := range customColumns {
			custom[col] = strings.TrimSpace(row[col])
		}

		version, err := s.AppendVersion(tx, req, VersionInput{
			Title:        title,
			Description:  strings.TrimSpace(row["description"]),
			Category:     strings.TrimSpace(row["category"]),
			Status:       NormalizeStatus(row["status"]),
			Custom:       custom,
			CreatedByID:  &creatorID,
			SourceFileID: sourceFileID,
		})
		if err != nil {
			return 0, 0, err
		}

		saved++
		if onRow != nil {
			onRow(version)
		}
	}
	return saved, skipped, nil
}

// NormalizeStatus maps German and English spreadsheet values onto the stored
// status set. Unknown values fall back to Open.
func NormalizeStatus(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "open", "offen":
		return model.StatusOpen
	case "inprogress", "in progress", "in arbeit":
		return model.StatusInProgress
	case "done", "fertig":
		return model.StatusDone
	default:
		return model.StatusOpen
	}
}

// ListByProject returns the project's non-deleted requirements with their
// versions loaded in index order.
func (s *RequirementService) ListByProject(projectID uint) ([]model.Requirement, error) {
	var reqs []model.Requirement
	err := s.db.Where("project_id = ? AND is_deleted = ?", projectID, false).
		Preload("Versions", func(db *gorm.DB) *gorm.DB { return db.Order("version_index asc") }).
		Order("id asc").
		Find(&reqs).Error
	if err != nil {
		return nil, err
	}
	return reqs, nil
}

func (s *RequirementService) GetByID(id uint) (*model.Requirement, error) {
	var req model.Requirement
	err := s.db.Preload("Project").
		Preload("Versions", func(db *gorm.DB) *gorm.DB { return db.Order("version_index asc") }).
		First(&req, id).Error
	if err != nil {
		return nil, fmt.Errorf("40402:需求不存在")
	}
	return &req, nil
}

// History returns all versions of a requirement in ascending index order.
func (s *RequirementService) History(requirementID uint) ([]model.RequirementVersion, error) {
	var versions []model.RequirementVersion
	err := s.db.Where("requirement_id = ?", requirementID).
		Preload("CreatedBy").Preload("LastModifiedBy").Preload("BlockedBy").
		Order("version_index asc").
		Find(&versions).Error
	if err != nil {
		return nil, err
	}
	return versions, nil
}

func (s *RequirementService) GetVersionByID(id uint) (*model.RequirementVersion, error) {
	var version model.RequirementVersion
	err := s.db.Preload("Requirement").Preload("Requirement.Project").First(&version, id).Error
	if err != nil {
		return nil, fmt.Errorf("40403:版本不存在")
	}
	return &version, nil
}

// VersionUpdate carries an edit to an existing version. Custom values are
// written as given, empty strings included: an explicit edit may clear a cell.
type VersionUpdate struct {
	Title       string
	Description string
	Category    string
	Status      string
	Custom      map[string]string
}

func (s *RequirementService) UpdateVersion(versionID, userID uint, in VersionUpdate) (*model.RequirementVersion, error) {
	version, err := s.GetVersionByID(versionID)
	if err != nil {
		return nil, err
	}
	project := version.Requirement.Project
	if err := s.checkAccess(project, userID); err != nil {
		return nil, err
	}
	if !version.CanBeEditedBy(userID, project.OwnerID) {
		return nil, fmt.Errorf("40303:版本已被其他用户阻塞，无法编辑")
	}

	title := strings.TrimSpace(in.Title)
	description := strings.TrimSpace(in.Description)
	if title == "" || description == "" {
		return nil, fmt.Errorf("40002:标题和描述不能为空")
	}

	version.Title = title
	version.Description = description
	version.Category = strings.TrimSpace(in.Category)
	if in.Status != "" {
		if !validStatus(in.Status) {
			return nil, fmt.Errorf("40002:无效的状态值")
		}
		version.Status = in.Status
	}

	if version.CustomData == nil {
		version.CustomData = model.StringMap{}
	}
	for col, value := range in.Custom {
		version.CustomData[col] = strings.TrimSpace(value)
	}
	version.LastModifiedByID = &userID

	if err := s.db.Save(version).Error; err != nil {
		return nil, err
	}
	return version, nil
}

func (s *RequirementService) UpdateStatus(versionID, userID uint, status string) (*model.RequirementVersion, error) {
	if !validStatus(status) {
		return nil, fmt.Errorf("40002:无效的状态值")
	}

	version, err := s.GetVersionByID(versionID)
	if err != nil {
		return nil, err
	}
	project := version.Requirement.Project
	if err := s.checkAccess(project, userID); err != nil {
		return nil, err
	}
	if !version.CanBeEditedBy(userID, project.OwnerID) {
		return nil, fmt.Errorf("40303:版本已被其他用户阻塞，无法编辑")
	}

	version.Status = status
	version.LastModifiedByID = &userID
	if err := s.db.Save(version).Error; err != nil {
		return nil, err
	}
	return version, nil
}

// SetCustomValue writes one custom-column cell. Unlike version creation this
// stores empty strings when they are set explicitly.
func (s *RequirementService) SetCustomValue(versionID, userID uint, column, value string) (*model.RequirementVersion, error) {
	if strings.TrimSpace(column) == "" {
		return nil, fmt.Errorf("40002:列名不能为空")
	}

	version, err := s.GetVersionByID(versionID)
	if err != nil {
		return nil, err
	}
	project := version.Requirement.Project
	if err := s.checkAccess(project, userID); err != nil {
		return nil, err
	}
	if !version.CanBeEditedBy(userID, project.OwnerID) {
		return nil, fmt.Errorf("40303:版本已被其他用户阻塞，无法编辑")
	}

	if version.CustomData == nil {
		version.CustomData = model.StringMap{}
	}
	version.CustomData[column] = strings.TrimSpace(value)
	version.LastModifiedByID = &userID
	if err := s.db.Save(version).Error; err != nil {
		return nil, err
	}
	return version, nil
}

// ToggleBlock flips the advisory lock. The owner may always block and
// unblock; a non-owner may claim an unblocked version but may only release
// a block they set themselves.
func (s *RequirementService) ToggleBlock(versionID, userID uint) (*model.RequirementVersion, error) {
	version, err := s.GetVersionByID(versionID)
	if err != nil {
		return nil, err
	}
	project := version.Requirement.Project
	if err := s.checkAccess(project, userID); err != nil {
		return nil, err
	}

	isOwner := project.OwnerID == userID
	if version.IsBlocked {
		blockedBySelf := version.BlockedByID != nil && *version.BlockedByID == userID
		if !isOwner && !blockedBySelf {
			return nil, fmt.Errorf("40303:只有阻塞者或项目所有者可以解除阻塞")
		}
		version.IsBlocked = false
		version.BlockedByID = nil
		version.BlockedAt = nil
	} else {
		now := time.Now()
		version.IsBlocked = true
		version.BlockedByID = &userID
		version.BlockedAt = &now
	}

	if err := s.db.Save(version).Error; err != nil {
		return nil, err
	}
	return version, nil
}

// DeleteVersion removes one version. If it is the requirement's only version
// the requirement is soft-deleted instead, so no empty shell is left behind.
func (s *RequirementService) DeleteVersion(versionID, userID uint) error {
	version, err := s.GetVersionByID(versionID)
	if err != nil {
		return err
	}
	project := version.Requirement.Project
	if project.OwnerID != userID {
		return fmt.Errorf("40302:仅项目所有者可删除版本")
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.RequirementVersion{}).
			Where("requirement_id = ?", version.RequirementID).
			Count(&count).Error; err != nil {
			return err
		}
		if count <= 1 {
			return tx.Model(&model.Requirement{}).
				Where("id = ?", version.RequirementID).
				Update("is_deleted", true).Error
		}
		return tx.Delete(&model.RequirementVersion{}, version.ID).Error
	})
}

// SoftDelete moves a requirement to the trash.
func (s *RequirementService) SoftDelete(requirementID, userID uint) error {
	req, project, err := s.getWithProject(requirementID)
	if err != nil {
		return err
	}
	if project.OwnerID != userID {
		return fmt.Errorf("40302:仅项目所有者可删除需求")
	}
	return s.db.Model(req).Update("is_deleted", true).Error
}

// Restore brings a trashed requirement back.
func (s *RequirementService) Restore(requirementID, userID uint) error {
	req, project, err := s.getWithProject(requirementID)
	if err != nil {
		return err
	}
	if project.OwnerID != userID {
		return fmt.Errorf("40302:仅项目所有者可恢复需求")
	}
	if !req.IsDeleted {
		return fmt.Errorf("40003:需求不在回收站中")
	}
	return s.db.Model(req).Update("is_deleted", false).Error
}

// Purge permanently deletes a trashed requirement and all of its versions.
func (s *RequirementService) Purge(requirementID, userID uint) error {
	req, project, err := s.getWithProject(requirementID)
	if err != nil {
		return err
	}
	if project.OwnerID != userID {
		return fmt.Errorf("40302:仅项目所有者可彻底删除需求")
	}
	if !req.IsDeleted {
		return fmt.Errorf("40003:只能彻底删除回收站中的需求")
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("requirement_id = ?", req.ID).Delete(&model.RequirementVersion{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Requirement{}, req.ID).Error
	})
	if err != nil {
		return err
	}
	logOperation(s.db, userID, "requirement.purge", "requirement", req.ID, model.JSONMap{"key": req.Key, "project_id": req.ProjectID})
	return nil
}

// ListDeleted returns trashed requirements across the user's own projects,
// with versions loaded so the latest title can be shown.
func (s *RequirementService) ListDeleted(userID uint) ([]model.Requirement, error) {
	var reqs []model.Requirement
	err := s.db.
		Joins("JOIN projects ON projects.id = requirements.project_id").
		Where("projects.owner_id = ? AND requirements.is_deleted = ?", userID, true).
		Preload("Project").
		Preload("Versions", func(db *gorm.DB) *gorm.DB { return db.Order("version_index asc") }).
		Find(&reqs).Error
	if err != nil {
		return nil, err
	}
	return reqs, nil
}

func (s *RequirementService) getWithProject(requirementID uint) (*model.Requirement, *model.Project, error) {
	var req model.Requirement
	if err := s.db.Preload("Project").First(&req, requirementID).Error; err != nil {
		return nil, nil, fmt.Errorf("40402:需求不存在")
	}
	if req.Project == nil {
		return nil, nil, fmt.Errorf("40401:项目不存在")
	}
	return &req, req.Project, nil
}

// checkAccess verifies the user is the project owner or in the shared set.
func (s *RequirementService) checkAccess(project *model.Project, userID uint) error {
	if project == nil {
		return fmt.Errorf("40401:项目不存在")
	}
	if project.OwnerID == userID {
		return nil
	}
	var count int64
	s.db.Table("project_shares").
		Where("project_id = ? AND user_id = ?", project.ID, userID).
		Count(&count)
	if count == 0 {
		return fmt.Errorf("40301:无权访问该项目")
	}
	return nil
}

func validStatus(status string) bool {
	switch status {
	case model.StatusOpen, model.StatusInProgress, model.StatusDone:
		return true
	}
	return false
}

func (s *RequirementService) DB() *gorm.DB {
	return s.db
}

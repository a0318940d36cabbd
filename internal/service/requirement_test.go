package service

import (
	"strings"
	"testing"

	"github.com/Aliwes1999/Interface-for-MBSE-Models/internal/model"
)

func TestNormalizeKey(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Login", "login"},
		{"  Login  ", "login"},
		{"Café Login!!", "café login"},
		{"User--Login__Form", "user login form"},
		{"ABC 123", "abc 123"},
		{"!!!", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := NormalizeKey(tc.in); got != tc.want {
			t.Fatalf("NormalizeKey(%q): want=%q got=%q", tc.in, tc.want, got)
		}
	}

	long := strings.Repeat("a", 300)
	if got := NormalizeKey(long); len([]rune(got)) != 200 {
		t.Fatalf("long key: want 200 runes got %d", len([]rune(got)))
	}
}

func TestNormalizeStatus(t *testing.T) {
	cases := map[string]string{
		"Open":        model.StatusOpen,
		"offen":       model.StatusOpen,
		"In Arbeit":   model.StatusInProgress,
		"in progress": model.StatusInProgress,
		"InProgress":  model.StatusInProgress,
		"Fertig":      model.StatusDone,
		"done":        model.StatusDone,
		"whatever":    model.StatusOpen,
		"":            model.StatusOpen,
	}
	for in, want := range cases {
		if got := NormalizeStatus(in); got != want {
			t.Fatalf("NormalizeStatus(%q): want=%q got=%q", in, want, got)
		}
	}
}

func TestSaveRowsDeduplicatesByTitle(t *testing.T) {
	db := openTestDB(t)
	user := createUser(t, db, "owner@example.com")
	project := createProject(t, db, user.ID, "Demo")
	svc := NewRequirementService(db)

	rows := []map[string]string{
		{"title": "Login", "description": "first draft"},
		{"title": "  login!  ", "description": "second draft"},
		{"title": "Logout", "description": "other"},
	}
	saved, skipped, err := svc.SaveRows(project.ID, rows, nil, user.ID, nil, nil)
	if err != nil {
		t.Fatalf("SaveRows: %v", err)
	}
	if saved != 3 || skipped != 0 {
		t.Fatalf("want saved=3 skipped=0 got saved=%d skipped=%d", saved, skipped)
	}

	reqs, err := svc.ListByProject(project.ID)
	if err != nil {
		t.Fatalf("ListByProject: %v", err)
	}
	if len(reqs) != 2 {
		t.Fatalf("want 2 requirements got %d", len(reqs))
	}

	var login *model.Requirement
	for i := range reqs {
		if reqs[i].Key == "login" {
			login = &reqs[i]
		}
	}
	if login == nil {
		t.Fatalf("login requirement not found")
	}
	if len(login.Versions) != 2 {
		t.Fatalf("want 2 versions got %d", len(login.Versions))
	}
	if login.Versions[0].VersionLabel != "A" || login.Versions[1].VersionLabel != "B" {
		t.Fatalf("want labels A,B got %s,%s", login.Versions[0].VersionLabel, login.Versions[1].VersionLabel)
	}
}

func TestSaveRowsSkipsEmptyTitles(t *testing.T) {
	db := openTestDB(t)
	user := createUser(t, db, "owner@example.com")
	project := createProject(t, db, user.ID, "Demo")
	svc := NewRequirementService(db)

	rows := []map[string]string{
		{"title": "", "description": "no title"},
		{"title": "???", "description": "key collapses to empty"},
		{"title": "Valid", "description": "ok"},
	}
	saved, skipped, err := svc.SaveRows(project.ID, rows, nil, user.ID, nil, nil)
	if err != nil {
		t.Fatalf("SaveRows: %v", err)
	}
	if saved != 1 || skipped != 2 {
		t.Fatalf("want saved=1 skipped=2 got saved=%d skipped=%d", saved, skipped)
	}
}

func TestNextVersionNeverReusesGaps(t *testing.T) {
	db := openTestDB(t)
	user := createUser(t, db, "owner@example.com")
	project := createProject(t, db, user.ID, "Demo")
	svc := NewRequirementService(db)

	for i := 0; i < 3; i++ {
		_, _, err := svc.SaveRows(project.ID, []map[string]string{
			{"title": "Login", "description": "draft"},
		}, nil, user.ID, nil, nil)
		if err != nil {
			t.Fatalf("SaveRows: %v", err)
		}
	}

	reqs, _ := svc.ListByProject(project.ID)
	if len(reqs) != 1 || len(reqs[0].Versions) != 3 {
		t.Fatalf("setup: want 1 requirement with 3 versions")
	}

	// Delete the newest version (C), then append: the next index must be 4,
	// not a reused 3.
	if err := svc.DeleteVersion(reqs[0].Versions[2].ID, user.ID); err != nil {
		t.Fatalf("DeleteVersion: %v", err)
	}
	_, _, err := svc.SaveRows(project.ID, []map[string]string{
		{"title": "Login", "description": "newer"},
	}, nil, user.ID, nil, nil)
	if err != nil {
		t.Fatalf("SaveRows: %v", err)
	}

	reqs, _ = svc.ListByProject(project.ID)
	latest := reqs[0].LatestVersion()
	if latest.VersionIndex != 4 || latest.VersionLabel != "D" {
		t.Fatalf("want index=4 label=D got index=%d label=%s", latest.VersionIndex, latest.VersionLabel)
	}
}

func TestDeleteLastVersionSoftDeletesRequirement(t *testing.T) {
	db := openTestDB(t)
	user := createUser(t, db, "owner@example.com")
	project := createProject(t, db, user.ID, "Demo")
	svc := NewRequirementService(db)

	_, _, err := svc.SaveRows(project.ID, []map[string]string{
		{"title": "Solo", "description": "only one"},
	}, nil, user.ID, nil, nil)
	if err != nil {
		t.Fatalf("SaveRows: %v", err)
	}

	reqs, _ := svc.ListByProject(project.ID)
	if err := svc.DeleteVersion(reqs[0].Versions[0].ID, user.ID); err != nil {
		t.Fatalf("DeleteVersion: %v", err)
	}

	// Parent moved to trash, version row kept.
	var req model.Requirement
	if err := db.First(&req, reqs[0].ID).Error; err != nil {
		t.Fatalf("load requirement: %v", err)
	}
	if !req.IsDeleted {
		t.Fatalf("want requirement soft-deleted")
	}
	var count int64
	db.Model(&model.RequirementVersion{}).Where("requirement_id = ?", req.ID).Count(&count)
	if count != 1 {
		t.Fatalf("want sole version kept, got %d", count)
	}
}

func TestDeleteVersionOwnerOnly(t *testing.T) {
	db := openTestDB(t)
	owner := createUser(t, db, "owner@example.com")
	guest := createUser(t, db, "guest@example.com")
	project := createProject(t, db, owner.ID, "Demo")
	shareProject(t, db, project.ID, guest.ID)
	svc := NewRequirementService(db)

	svc.SaveRows(project.ID, []map[string]string{
		{"title": "Login", "description": "draft"},
	}, nil, owner.ID, nil, nil)
	reqs, _ := svc.ListByProject(project.ID)

	err := svc.DeleteVersion(reqs[0].Versions[0].ID, guest.ID)
	if err == nil || !strings.Contains(err.Error(), "40302") {
		t.Fatalf("want 40302 for shared user, got %v", err)
	}
}

func TestToggleBlockRules(t *testing.T) {
	db := openTestDB(t)
	owner := createUser(t, db, "owner@example.com")
	guest := createUser(t, db, "guest@example.com")
	other := createUser(t, db, "other@example.com")
	project := createProject(t, db, owner.ID, "Demo")
	shareProject(t, db, project.ID, guest.ID)
	shareProject(t, db, project.ID, other.ID)
	svc := NewRequirementService(db)

	svc.SaveRows(project.ID, []map[string]string{
		{"title": "Login", "description": "draft"},
	}, nil, owner.ID, nil, nil)
	reqs, _ := svc.ListByProject(project.ID)
	versionID := reqs[0].Versions[0].ID

	// Guest claims the unblocked version.
	v, err := svc.ToggleBlock(versionID, guest.ID)
	if err != nil {
		t.Fatalf("guest block: %v", err)
	}
	if !v.IsBlocked || v.BlockedByID == nil || *v.BlockedByID != guest.ID {
		t.Fatalf("want blocked by guest, got %+v", v)
	}

	// A third shared user cannot release someone else's block.
	if _, err := svc.ToggleBlock(versionID, other.ID); err == nil {
		t.Fatalf("want error for foreign unblock")
	}

	// The blocked version rejects edits from others.
	_, err = svc.UpdateStatus(versionID, other.ID, model.StatusDone)
	if err == nil || !strings.Contains(err.Error(), "40303") {
		t.Fatalf("want 40303 editing blocked version, got %v", err)
	}

	// The owner can always release.
	v, err = svc.ToggleBlock(versionID, owner.ID)
	if err != nil {
		t.Fatalf("owner unblock: %v", err)
	}
	if v.IsBlocked || v.BlockedByID != nil || v.BlockedAt != nil {
		t.Fatalf("want block cleared, got %+v", v)
	}
}

func TestUpdateVersion(t *testing.T) {
	db := openTestDB(t)
	owner := createUser(t, db, "owner@example.com")
	project := createProject(t, db, owner.ID, "Demo")
	project.CustomColumns = model.StringList{"Priorität"}
	db.Save(project)
	svc := NewRequirementService(db)

	svc.SaveRows(project.ID, []map[string]string{
		{"title": "Login", "description": "draft"},
	}, nil, owner.ID, nil, nil)
	reqs, _ := svc.ListByProject(project.ID)
	versionID := reqs[0].Versions[0].ID

	v, err := svc.UpdateVersion(versionID, owner.ID, VersionUpdate{
		Title:       "Login v2",
		Description: "better",
		Category:    "Auth",
		Status:      model.StatusInProgress,
		Custom:      map[string]string{"Priorität": "Hoch"},
	})
	if err != nil {
		t.Fatalf("UpdateVersion: %v", err)
	}
	if v.Title != "Login v2" || v.Status != model.StatusInProgress {
		t.Fatalf("unexpected version: %+v", v)
	}
	if v.CustomData["Priorität"] != "Hoch" {
		t.Fatalf("custom data not stored: %+v", v.CustomData)
	}
	if v.LastModifiedByID == nil || *v.LastModifiedByID != owner.ID {
		t.Fatalf("last modifier not recorded")
	}

	// Editing an existing version keeps its label.
	if v.VersionLabel != "A" {
		t.Fatalf("edit must not change label, got %s", v.VersionLabel)
	}

	if _, err := svc.UpdateVersion(versionID, owner.ID, VersionUpdate{Title: "", Description: "x"}); err == nil {
		t.Fatalf("want error for empty title")
	}
	if _, err := svc.UpdateStatus(versionID, owner.ID, "Offen"); err == nil {
		t.Fatalf("alias is not a stored status, want error")
	}
}

func TestTrashLifecycle(t *testing.T) {
	db := openTestDB(t)
	owner := createUser(t, db, "owner@example.com")
	project := createProject(t, db, owner.ID, "Demo")
	svc := NewRequirementService(db)

	svc.SaveRows(project.ID, []map[string]string{
		{"title": "Login", "description": "draft"},
	}, nil, owner.ID, nil, nil)
	reqs, _ := svc.ListByProject(project.ID)
	reqID := reqs[0].ID

	if err := svc.SoftDelete(reqID, owner.ID); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
	if list, _ := svc.ListByProject(project.ID); len(list) != 0 {
		t.Fatalf("trashed requirement still listed")
	}

	trash, err := svc.ListDeleted(owner.ID)
	if err != nil || len(trash) != 1 {
		t.Fatalf("want 1 trashed requirement, got %d (%v)", len(trash), err)
	}

	// Purge requires the trash state; restore clears it.
	if err := svc.Restore(reqID, owner.ID); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if err := svc.Purge(reqID, owner.ID); err == nil {
		t.Fatalf("purge of a live requirement must fail")
	}

	if err := svc.SoftDelete(reqID, owner.ID); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
	if err := svc.Purge(reqID, owner.ID); err != nil {
		t.Fatalf("Purge: %v", err)
	}

	var count int64
	db.Model(&model.RequirementVersion{}).Where("requirement_id = ?", reqID).Count(&count)
	if count != 0 {
		t.Fatalf("purge must remove versions, %d left", count)
	}
}

func TestAccessDeniedWithoutShare(t *testing.T) {
	db := openTestDB(t)
	owner := createUser(t, db, "owner@example.com")
	stranger := createUser(t, db, "stranger@example.com")
	project := createProject(t, db, owner.ID, "Demo")
	svc := NewRequirementService(db)

	svc.SaveRows(project.ID, []map[string]string{
		{"title": "Login", "description": "draft"},
	}, nil, owner.ID, nil, nil)
	reqs, _ := svc.ListByProject(project.ID)

	_, err := svc.UpdateStatus(reqs[0].Versions[0].ID, stranger.ID, model.StatusDone)
	if err == nil || !strings.Contains(err.Error(), "40301") {
		t.Fatalf("want 40301 for stranger, got %v", err)
	}
}

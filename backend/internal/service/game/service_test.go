package game

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	domain "game-hub-app/backend/internal/domain/game"
)

func mustIngest(t *testing.T, svc *Service, title, category string) *domain.Game {
	t.Helper()

	upload := tempUpload(t, "entry.html", "<html>"+title+"</html>")
	record, err := svc.Ingest(context.Background(), IngestParams{
		Title:      title,
		Category:   category,
		UploaderID: 42,
		File:       upload,
	})
	if err != nil {
		t.Fatalf("ingest %q: %v", title, err)
	}
	return record
}

func TestResolvePlayIncrementsExactlyOncePerCall(t *testing.T) {
	svc, _, _ := newTestService(t)
	record := mustIngest(t, svc, "Clicker", "Arcade")

	const plays = 5
	for i := 0; i < plays; i++ {
		resolution, err := svc.ResolvePlay(context.Background(), record.ID)
		if err != nil {
			t.Fatalf("resolve play %d: %v", i, err)
		}
		if resolution.Remote {
			t.Fatal("local backend must resolve to a non-remote location")
		}
		if _, err := os.Stat(resolution.Location); err != nil {
			t.Fatalf("play location should exist on disk: %v", err)
		}
	}

	after, err := svc.Get(context.Background(), record.ID)
	if err != nil {
		t.Fatalf("get after plays: %v", err)
	}
	if after.PlayCount != plays {
		t.Fatalf("expected play count %d, got %d", plays, after.PlayCount)
	}
}

func TestResolvePlayUnknownID(t *testing.T) {
	svc, _, _ := newTestService(t)

	if _, err := svc.ResolvePlay(context.Background(), 9999); !errors.Is(err, ErrGameNotFound) {
		t.Fatalf("expected ErrGameNotFound, got %v", err)
	}
}

func TestDeleteCascadesToStorage(t *testing.T) {
	svc, db, storageRoot := newTestService(t)
	record := mustIngest(t, svc, "Doomed Game", "Action")

	if err := svc.Delete(context.Background(), record.ID, 42, false); err != nil {
		t.Fatalf("delete as owner: %v", err)
	}

	if got := countGames(t, db); got != 0 {
		t.Fatalf("expected no records, got %d", got)
	}
	if _, err := os.Stat(filepath.Join(storageRoot, record.Slug)); !os.IsNotExist(err) {
		t.Fatal("expected namespace to be removed")
	}
	if _, err := svc.ResolvePlay(context.Background(), record.ID); !errors.Is(err, ErrGameNotFound) {
		t.Fatalf("expected play resolution to fail after delete, got %v", err)
	}
}

func TestDeleteRequiresOwnerOrAdmin(t *testing.T) {
	svc, db, _ := newTestService(t)
	record := mustIngest(t, svc, "Protected Game", "Action")

	if err := svc.Delete(context.Background(), record.ID, 7, false); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	if got := countGames(t, db); got != 1 {
		t.Fatalf("record should survive denied delete, got %d", got)
	}

	// 管理员可以删任何人的记录。
	if err := svc.Delete(context.Background(), record.ID, 7, true); err != nil {
		t.Fatalf("delete as admin: %v", err)
	}
}

func TestVisibilityGatesPublicListing(t *testing.T) {
	svc, _, _ := newTestService(t)
	record := mustIngest(t, svc, "Hidden Gem", "Puzzle")

	items, total, _, _, err := svc.List(context.Background(), ListParams{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 0 || len(items) != 0 {
		t.Fatalf("fresh upload must not appear publicly, got %d items", len(items))
	}

	if _, err := svc.SetVisibility(context.Background(), record.ID, true); err != nil {
		t.Fatalf("set visibility: %v", err)
	}

	items, total, _, _, err = svc.List(context.Background(), ListParams{})
	if err != nil {
		t.Fatalf("list after approve: %v", err)
	}
	if total != 1 || len(items) != 1 {
		t.Fatalf("expected one public record, got %d", len(items))
	}

	// 管理列表不过滤可见性。
	adminItems, _, _, _, err := svc.AdminList(context.Background(), ListParams{})
	if err != nil {
		t.Fatalf("admin list: %v", err)
	}
	if len(adminItems) != 1 {
		t.Fatalf("admin list should always include the record, got %d", len(adminItems))
	}
}

func TestListFiltersByCategory(t *testing.T) {
	svc, _, _ := newTestService(t)

	action := mustIngest(t, svc, "Action One", "Action")
	puzzle := mustIngest(t, svc, "Puzzle One", "Puzzle")
	for _, id := range []uint{action.ID, puzzle.ID} {
		if _, err := svc.SetVisibility(context.Background(), id, true); err != nil {
			t.Fatalf("approve %d: %v", id, err)
		}
	}

	items, total, _, _, err := svc.List(context.Background(), ListParams{Category: "Action"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 1 || len(items) != 1 {
		t.Fatalf("expected one Action record, got %d", len(items))
	}
	if items[0].Category != domain.CategoryAction {
		t.Fatalf("expected Action category, got %q", items[0].Category)
	}
	if !items[0].IsVisible {
		t.Fatal("public listing returned a hidden record")
	}
}

func TestListSearchMatchesTitleAndDescription(t *testing.T) {
	svc, _, _ := newTestService(t)

	a := mustIngest(t, svc, "Space Shooter", "Action")
	b := mustIngest(t, svc, "Farm Sim", "Strategy")
	for _, id := range []uint{a.ID, b.ID} {
		if _, err := svc.SetVisibility(context.Background(), id, true); err != nil {
			t.Fatalf("approve: %v", err)
		}
	}

	items, _, _, _, err := svc.List(context.Background(), ListParams{Search: "shooter"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 || items[0].Title != "Space Shooter" {
		t.Fatalf("unexpected search result: %+v", items)
	}
}

func TestFeaturedListing(t *testing.T) {
	svc, _, _ := newTestService(t)

	plain := mustIngest(t, svc, "Plain Game", "Other")
	starred := mustIngest(t, svc, "Starred Game", "Other")
	for _, id := range []uint{plain.ID, starred.ID} {
		if _, err := svc.SetVisibility(context.Background(), id, true); err != nil {
			t.Fatalf("approve: %v", err)
		}
	}
	if _, err := svc.SetFeatured(context.Background(), starred.ID, true); err != nil {
		t.Fatalf("feature: %v", err)
	}

	items, _, _, _, err := svc.Featured(context.Background(), ListParams{})
	if err != nil {
		t.Fatalf("featured: %v", err)
	}
	if len(items) != 1 || items[0].ID != starred.ID {
		t.Fatalf("unexpected featured set: %+v", items)
	}
}

func TestUpdateMetadataAndThumbnail(t *testing.T) {
	svc, _, storageRoot := newTestService(t)
	record := mustIngest(t, svc, "Renamable", "Other")

	thumb := tempUpload(t, "new-cover.png", "PNG2")
	newTitle := "Renamable Deluxe"
	newCategory := "Racing"

	updated, err := svc.Update(context.Background(), record.ID, UpdateParams{
		Title:     &newTitle,
		Category:  &newCategory,
		Thumbnail: thumb,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	if updated.Title != newTitle {
		t.Fatalf("expected title %q, got %q", newTitle, updated.Title)
	}
	if updated.Category != domain.CategoryRacing {
		t.Fatalf("expected category Racing, got %q", updated.Category)
	}
	// slug 在创建后保持不变，存储命名空间不迁移。
	if updated.Slug != record.Slug {
		t.Fatalf("slug must not change on title edit: %q -> %q", record.Slug, updated.Slug)
	}
	if updated.ThumbnailLocation == "" {
		t.Fatal("expected thumbnail to be set")
	}
	if _, err := os.Stat(filepath.Join(storageRoot, "thumbnails", record.Slug+".png")); err != nil {
		t.Fatalf("expected stored thumbnail: %v", err)
	}
}

func TestUpdateRejectsUnknownCategory(t *testing.T) {
	svc, _, _ := newTestService(t)
	record := mustIngest(t, svc, "Strict Game", "Other")

	bad := "Roguelike"
	if _, err := svc.Update(context.Background(), record.ID, UpdateParams{Category: &bad}); !errors.Is(err, ErrInvalidCategory) {
		t.Fatalf("expected ErrInvalidCategory, got %v", err)
	}
}

func TestCategoryCountsAndStats(t *testing.T) {
	svc, _, _ := newTestService(t)

	a := mustIngest(t, svc, "Alpha", "Action")
	b := mustIngest(t, svc, "Beta", "Action")
	c := mustIngest(t, svc, "Gamma", "Puzzle")
	for _, id := range []uint{a.ID, b.ID} {
		if _, err := svc.SetVisibility(context.Background(), id, true); err != nil {
			t.Fatalf("approve: %v", err)
		}
	}
	_ = c // Gamma 保持隐藏，不应计入公开分类统计

	counts, err := svc.CategoryCounts(context.Background())
	if err != nil {
		t.Fatalf("category counts: %v", err)
	}
	if len(counts) != 1 || counts[0].Category != domain.CategoryAction || counts[0].Count != 2 {
		t.Fatalf("unexpected counts: %+v", counts)
	}

	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalGames != 3 {
		t.Fatalf("expected 3 total games, got %d", stats.TotalGames)
	}
	if stats.VisibleGames != 2 {
		t.Fatalf("expected 2 visible games, got %d", stats.VisibleGames)
	}
	if stats.TotalBytes <= 0 {
		t.Fatalf("expected positive total bytes, got %d", stats.TotalBytes)
	}
}

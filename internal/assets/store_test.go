package assets_test

import (
	"context"
	"os"
	"strings"
	"testing"

	"alchemy/internal/assets"
	"alchemy/internal/testsupport"
)

func openStore(t *testing.T) *assets.Store {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store, err := assets.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSaveImageWritesFileAndRow(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	asset, err := store.SaveImage(ctx, "sess-1", "Gen Z", "neon skyline", []byte("png-bytes"), "image/png")
	if err != nil {
		t.Fatalf("SaveImage: %v", err)
	}
	if asset.ID == "" {
		t.Error("expected generated id")
	}
	if asset.Kind != assets.KindImage {
		t.Errorf("kind = %q", asset.Kind)
	}
	if !strings.HasSuffix(asset.FilePath, ".png") {
		t.Errorf("expected .png file, got %q", asset.FilePath)
	}
	data, err := os.ReadFile(asset.FilePath)
	if err != nil {
		t.Fatalf("read stored file: %v", err)
	}
	if string(data) != "png-bytes" {
		t.Errorf("stored bytes = %q", data)
	}

	fetched, err := store.GetByID(ctx, asset.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if fetched == nil || fetched.Title != "Gen Z" || fetched.Session != "sess-1" {
		t.Errorf("unexpected row: %+v", fetched)
	}
}

func TestSaveVideoRecordsSourceURI(t *testing.T) {
	store := openStore(t)

	asset, err := store.SaveVideo(context.Background(), "sess-1", "Millennials", "surf ad", []byte("mp4"), "https://files.example/v.mp4")
	if err != nil {
		t.Fatalf("SaveVideo: %v", err)
	}
	if asset.SourceURI != "https://files.example/v.mp4" {
		t.Errorf("source uri = %q", asset.SourceURI)
	}
	if !strings.HasSuffix(asset.FilePath, ".mp4") {
		t.Errorf("expected .mp4 file, got %q", asset.FilePath)
	}
}

func TestListFiltersBySession(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	if _, err := store.SaveImage(ctx, "sess-a", "One", "p", []byte("a"), "image/png"); err != nil {
		t.Fatalf("SaveImage: %v", err)
	}
	if _, err := store.SaveImage(ctx, "sess-b", "Two", "p", []byte("b"), "image/png"); err != nil {
		t.Fatalf("SaveImage: %v", err)
	}

	all, err := store.List(ctx, "")
	if err != nil {
		t.Fatalf("List all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 assets, got %d", len(all))
	}

	scoped, err := store.List(ctx, "sess-a")
	if err != nil {
		t.Fatalf("List scoped: %v", err)
	}
	if len(scoped) != 1 || scoped[0].Title != "One" {
		t.Errorf("unexpected scoped result: %+v", scoped)
	}
}

func TestSaveRejectsEmptyPayload(t *testing.T) {
	store := openStore(t)
	if _, err := store.SaveImage(context.Background(), "sess", "t", "p", nil, "image/png"); err == nil {
		t.Fatal("expected error for empty payload")
	}
}

func TestGetByIDMissingReturnsNil(t *testing.T) {
	store := openStore(t)
	asset, err := store.GetByID(context.Background(), "no-such-id")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if asset != nil {
		t.Errorf("expected nil asset, got %+v", asset)
	}
}

package db

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestOpenAndClose(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	d, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer d.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Fatalf("database file was not created")
	}
}

func TestUpsertAndListMedia(t *testing.T) {
	dir := t.TempDir()
	d, err := Open(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer d.Close()

	record := MediaRecord{
		Title:     "Some Clip",
		Platform:  "YouTube",
		MediaType: "video",
		FilePath:  "/tmp/test/clip.mp4",
		SourceURL: "https://youtube.com/watch?v=abc",
		FileSize:  1024,
	}

	id, err := d.UpsertMedia(record)
	if err != nil {
		t.Fatalf("UpsertMedia failed: %v", err)
	}
	if id <= 0 {
		t.Fatalf("expected positive id, got %d", id)
	}

	records, err := d.ListMedia(10, 0)
	if err != nil {
		t.Fatalf("ListMedia failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Title != "Some Clip" {
		t.Fatalf("expected title 'Some Clip', got %q", records[0].Title)
	}
	if records[0].Platform != "YouTube" {
		t.Fatalf("expected platform 'YouTube', got %q", records[0].Platform)
	}
	if records[0].FileSize != 1024 {
		t.Fatalf("expected file_size 1024, got %d", records[0].FileSize)
	}
}

func TestUpsertMediaReplacesByFilePath(t *testing.T) {
	dir := t.TempDir()
	d, err := Open(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer d.Close()

	record := MediaRecord{
		Title:     "Original Title",
		Platform:  "TikTok",
		MediaType: "video",
		FilePath:  "/tmp/test/video.mp4",
		FileSize:  100,
	}

	first, err := d.UpsertMedia(record)
	if err != nil {
		t.Fatalf("first UpsertMedia failed: %v", err)
	}

	record.Title = "Updated Title"
	record.FileSize = 200
	second, err := d.UpsertMedia(record)
	if err != nil {
		t.Fatalf("second UpsertMedia failed: %v", err)
	}
	if first != second {
		t.Fatalf("upsert changed row id: %d != %d", first, second)
	}

	records, err := d.ListMedia(10, 0)
	if err != nil {
		t.Fatalf("ListMedia failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record after upsert, got %d", len(records))
	}
	if records[0].Title != "Updated Title" {
		t.Fatalf("expected updated title, got %q", records[0].Title)
	}
	if records[0].FileSize != 200 {
		t.Fatalf("expected updated file_size, got %d", records[0].FileSize)
	}
}

func TestListMediaLimitAndOffset(t *testing.T) {
	dir := t.TempDir()
	d, err := Open(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer d.Close()

	for i := 0; i < 5; i++ {
		_, err := d.UpsertMedia(MediaRecord{
			Title:    fmt.Sprintf("Clip %d", i),
			Platform: "Instagram",
			FilePath: fmt.Sprintf("/tmp/test/clip%d.mp4", i),
		})
		if err != nil {
			t.Fatalf("UpsertMedia failed: %v", err)
		}
	}

	records, err := d.ListMedia(2, 0)
	if err != nil {
		t.Fatalf("ListMedia failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	records, err = d.ListMedia(10, 4)
	if err != nil {
		t.Fatalf("ListMedia with offset failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record past offset 4, got %d", len(records))
	}
}

func TestCount(t *testing.T) {
	dir := t.TempDir()
	d, err := Open(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer d.Close()

	count, err := d.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0, got %d", count)
	}

	for i := 0; i < 3; i++ {
		_, err := d.UpsertMedia(MediaRecord{
			Title:    "Clip",
			FilePath: fmt.Sprintf("/tmp/test/clip%d.mp4", i),
		})
		if err != nil {
			t.Fatalf("UpsertMedia failed: %v", err)
		}
	}

	count, err = d.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3, got %d", count)
	}
}

func TestNilDatabase(t *testing.T) {
	var d *DB
	if err := d.Close(); err != nil {
		t.Fatalf("Close on nil DB: %v", err)
	}
	if _, err := d.UpsertMedia(MediaRecord{FilePath: "/tmp/x"}); err == nil {
		t.Fatal("expected error upserting into nil DB")
	}
	if _, err := d.ListMedia(1, 0); err == nil {
		t.Fatal("expected error listing from nil DB")
	}
	if _, err := d.Count(); err == nil {
		t.Fatal("expected error counting nil DB")
	}
}

package library

import (
	"context"
	"testing"
	"time"

	"crownworks/internal/logging"
	"crownworks/internal/media"
	"crownworks/internal/testsupport"
)

func TestOpenEmptyLibrary(t *testing.T) {
	ctx := context.Background()
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))

	lib, err := Open(ctx, st, logging.NewNop())
	if err != nil {
		t.Fatalf("open library: %v", err)
	}
	if lib.Len() != 0 {
		t.Fatalf("expected empty library, got %d records", lib.Len())
	}
}

func TestAppendPersistsNewestFirst(t *testing.T) {
	ctx := context.Background()
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))

	lib, err := Open(ctx, st, logging.NewNop())
	if err != nil {
		t.Fatalf("open library: %v", err)
	}

	first := media.Record{Title: "Zirconia crown", Type: media.KindImage, CreatedAt: time.Now().UTC()}
	second := media.Record{Title: "Milling timelapse", Type: media.KindVideo, CreatedAt: time.Now().UTC()}
	if err := lib.Append(ctx, first); err != nil {
		t.Fatalf("append first: %v", err)
	}
	if err := lib.Append(ctx, second); err != nil {
		t.Fatalf("append second: %v", err)
	}

	records := lib.Records()
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Title != "Milling timelapse" {
		t.Fatalf("expected newest record first, got %q", records[0].Title)
	}

	reloaded, err := Open(ctx, st, logging.NewNop())
	if err != nil {
		t.Fatalf("reopen library: %v", err)
	}
	if reloaded.Len() != 2 {
		t.Fatalf("expected persisted library to have 2 records, got %d", reloaded.Len())
	}
	if reloaded.Records()[0].Title != "Milling timelapse" {
		t.Fatalf("persisted order lost: got %q first", reloaded.Records()[0].Title)
	}
}

func TestOpenDiscardsCorruptDocument(t *testing.T) {
	ctx := context.Background()
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))

	if err := st.SetContent(ctx, Key, "{not json"); err != nil {
		t.Fatalf("seed corrupt document: %v", err)
	}
	lib, err := Open(ctx, st, logging.NewNop())
	if err != nil {
		t.Fatalf("open library: %v", err)
	}
	if lib.Len() != 0 {
		t.Fatalf("corrupt document should yield empty library, got %d records", lib.Len())
	}

	if err := lib.Append(ctx, media.Record{Title: "Recovered"}); err != nil {
		t.Fatalf("append after corrupt load: %v", err)
	}
	reloaded, err := Open(ctx, st, logging.NewNop())
	if err != nil {
		t.Fatalf("reopen library: %v", err)
	}
	if reloaded.Len() != 1 {
		t.Fatalf("expected append to replace corrupt document, got %d records", reloaded.Len())
	}
}

func TestRecordsReturnsCopy(t *testing.T) {
	ctx := context.Background()
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))

	lib, err := Open(ctx, st, logging.NewNop())
	if err != nil {
		t.Fatalf("open library: %v", err)
	}
	if err := lib.Append(ctx, media.Record{Title: "Original"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	records := lib.Records()
	records[0].Title = "Mutated"
	if lib.Records()[0].Title != "Original" {
		t.Fatal("Records should return an isolated copy")
	}
}

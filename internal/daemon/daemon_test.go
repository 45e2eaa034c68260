package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"crownworks/internal/config"
	"crownworks/internal/library"
	"crownworks/internal/logging"
	"crownworks/internal/media"
	"crownworks/internal/pagecache"
	"crownworks/internal/testsupport"
	"crownworks/internal/worker"
)

func newTestDaemon(t *testing.T) (*Daemon, *config.Config) {
	t.Helper()

	cfg := testsupport.NewConfig(t, testsupport.WithMissingTools())
	st := testsupport.MustOpenStore(t, cfg)
	lib, err := library.Open(context.Background(), st, logging.NewNop())
	if err != nil {
		t.Fatalf("open library: %v", err)
	}
	cache := pagecache.New(time.Minute, 5*time.Minute, logging.NewNop())
	processor := media.NewProcessor(cfg, logging.NewNop())
	wk := worker.New(cfg, st, processor, lib, cache, logging.NewNop())

	d, err := New(cfg, st, lib, cache, wk, logging.NewNop())
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	return d, cfg
}

func startDaemon(t *testing.T, d *Daemon) string {
	t.Helper()
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start daemon: %v", err)
	}
	t.Cleanup(d.Stop)
	addr := d.APIAddr()
	if addr == "" {
		t.Fatal("expected bound api address after start")
	}
	return "http://" + addr
}

func getJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s response: %v", url, err)
		}
	}
	return resp
}

func TestSecondInstanceRefusesToStart(t *testing.T) {
	d, cfg := newTestDaemon(t)
	startDaemon(t, d)

	st2 := testsupport.MustOpenStore(t, cfg)
	lib2, err := library.Open(context.Background(), st2, logging.NewNop())
	if err != nil {
		t.Fatalf("open second library: %v", err)
	}
	cache2 := pagecache.New(time.Minute, 5*time.Minute, logging.NewNop())
	wk2 := worker.New(cfg, st2, media.NewProcessor(cfg, logging.NewNop()), lib2, cache2, logging.NewNop())
	second, err := New(cfg, st2, lib2, cache2, wk2, logging.NewNop())
	if err != nil {
		t.Fatalf("new second daemon: %v", err)
	}

	err = second.Start(context.Background())
	if err == nil {
		second.Stop()
		t.Fatal("second daemon should refuse to start while lock is held")
	}
	if !strings.Contains(err.Error(), "already running") {
		t.Fatalf("unexpected lock error: %v", err)
	}
}

func TestStatusEndpointReportsQueueCounts(t *testing.T) {
	d, _ := newTestDaemon(t)
	base := startDaemon(t, d)

	testsupport.EnqueueImport(t, d.store, "https://example.com/a.jpg")

	var status struct {
		Running bool           `json:"running"`
		Jobs    map[string]int `json:"jobs"`
	}
	resp := getJSON(t, base+"/api/status", &status)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status endpoint returned %d", resp.StatusCode)
	}
	if !status.Running {
		t.Fatal("expected running true")
	}
	total := 0
	for _, count := range status.Jobs {
		total += count
	}
	if total != 1 {
		t.Fatalf("expected one job in counts, got %v", status.Jobs)
	}
}

func TestJobsEndpointEnqueueAndFetch(t *testing.T) {
	d, _ := newTestDaemon(t)
	base := startDaemon(t, d)

	body, _ := json.Marshal(map[string]string{
		"kind":  "import_url",
		"url":   "https://example.com/crown.jpg",
		"title": "Crown detail",
	})
	resp, err := http.Post(base+"/api/jobs", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST /api/jobs: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	var created struct {
		ID int64 `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode enqueue response: %v", err)
	}
	if created.ID <= 0 {
		t.Fatalf("expected positive job id, got %d", created.ID)
	}

	var job struct {
		ID     int64  `json:"id"`
		Type   string `json:"type"`
		Status string `json:"status"`
	}
	getJSON(t, fmt.Sprintf("%s/api/jobs/%d", base, created.ID), &job)
	if job.Type != "import_url" {
		t.Fatalf("expected import_url type, got %q", job.Type)
	}

	var list struct {
		Jobs []struct {
			ID int64 `json:"id"`
		} `json:"jobs"`
	}
	getJSON(t, base+"/api/jobs?limit=5", &list)
	if len(list.Jobs) != 1 || list.Jobs[0].ID != created.ID {
		t.Fatalf("unexpected job list %+v", list.Jobs)
	}
}

func TestJobsEndpointRejectsUnknownKind(t *testing.T) {
	d, _ := newTestDaemon(t)
	base := startDaemon(t, d)

	resp, err := http.Post(base+"/api/jobs", "application/json", strings.NewReader(`{"kind":"transcode"}`))
	if err != nil {
		t.Fatalf("POST /api/jobs: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown kind, got %d", resp.StatusCode)
	}
}

func TestContentPutInvalidatesPageCache(t *testing.T) {
	d, _ := newTestDaemon(t)
	base := startDaemon(t, d)

	d.cache.Put(worker.PagePrefix+"home", "<html>stale copy</html>")

	req, err := http.NewRequest(http.MethodPut, base+"/api/content?key=homepage_intro", strings.NewReader("Precision dental restorations since 1998."))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT /api/content: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	if _, ok := d.cache.Get(worker.PagePrefix + "home"); ok {
		t.Fatal("content write should invalidate cached pages")
	}

	var fetched struct {
		Value string `json:"value"`
	}
	getJSON(t, base+"/api/content?key=homepage_intro", &fetched)
	if !strings.Contains(fetched.Value, "Precision dental") {
		t.Fatalf("unexpected content value %q", fetched.Value)
	}
}

func TestContentGetMissingKeyReturns404(t *testing.T) {
	d, _ := newTestDaemon(t)
	base := startDaemon(t, d)

	resp := getJSON(t, base+"/api/content?key=absent", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestCacheInvalidateEndpoint(t *testing.T) {
	d, _ := newTestDaemon(t)
	base := startDaemon(t, d)

	d.cache.Put("page:one", "<html/>")
	d.cache.Put("page:two", "<html/>")
	d.cache.Put("fragment:nav", "<nav/>")

	resp, err := http.Post(base+"/api/cache/invalidate", "application/json", strings.NewReader(`{"prefix":"page:"}`))
	if err != nil {
		t.Fatalf("POST /api/cache/invalidate: %v", err)
	}
	defer resp.Body.Close()
	var result struct {
		Removed int `json:"removed"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Removed != 2 {
		t.Fatalf("expected 2 removed, got %d", result.Removed)
	}
	if d.cache.Len() != 1 {
		t.Fatalf("expected surviving fragment entry, got %d entries", d.cache.Len())
	}
}

func TestLibraryEndpointReturnsRecords(t *testing.T) {
	d, _ := newTestDaemon(t)
	base := startDaemon(t, d)

	if err := d.library.Append(context.Background(), media.Record{Title: "Full arch restoration", Type: media.KindImage}); err != nil {
		t.Fatalf("append record: %v", err)
	}

	var payload struct {
		Records []struct {
			Title string `json:"title"`
		} `json:"records"`
	}
	getJSON(t, base+"/api/library", &payload)
	if len(payload.Records) != 1 || payload.Records[0].Title != "Full arch restoration" {
		t.Fatalf("unexpected library payload %+v", payload.Records)
	}
}

func TestStopIsIdempotentAndReleasesLock(t *testing.T) {
	d, cfg := newTestDaemon(t)
	startDaemon(t, d)
	d.Stop()
	d.Stop()

	st2 := testsupport.MustOpenStore(t, cfg)
	lib2, err := library.Open(context.Background(), st2, logging.NewNop())
	if err != nil {
		t.Fatalf("open library: %v", err)
	}
	cache2 := pagecache.New(time.Minute, 5*time.Minute, logging.NewNop())
	wk2 := worker.New(cfg, st2, media.NewProcessor(cfg, logging.NewNop()), lib2, cache2, logging.NewNop())
	second, err := New(cfg, st2, lib2, cache2, wk2, logging.NewNop())
	if err != nil {
		t.Fatalf("new second daemon: %v", err)
	}
	if err := second.Start(context.Background()); err != nil {
		t.Fatalf("restart after stop should acquire released lock: %v", err)
	}
	second.Stop()
}

package store

import (
	"encoding/json"
	"strings"
	"time"
)

// JobType identifies how a media job's payload should be interpreted.
type JobType string

const (
	JobTypeImportURL  JobType = "import_url"
	JobTypeUploadFile JobType = "upload_file"
)

// Status represents the lifecycle of a media job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{StatusPending, StatusProcessing, StatusDone, StatusFailed}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allStatuses {
		if status == normalized {
			return status, true
		}
	}
	return "", false
}

// IsTerminal reports whether a status can no longer transition.
func (s Status) IsTerminal() bool {
	return s == StatusDone || s == StatusFailed
}

// maxLastErrorLen bounds stored error messages so a pathological failure
// cannot grow the database without limit.
const maxLastErrorLen = 2000

// sqlTimeLayout is RFC 3339 with fixed-width fractional seconds. Stored
// timestamps are compared lexically in SQL (RecycleStalled), and
// RFC3339Nano trims trailing fractional zeros, which breaks text ordering
// across the fractional boundary. The padded layout keeps lexical and
// chronological order identical for UTC values.
const sqlTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(sqlTimeLayout)
}

// ImportPayload is the payload for import_url jobs.
type ImportPayload struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// UploadPayload is the payload for upload_file jobs. Path points at the
// staged temporary upload; the worker removes it after processing.
type UploadPayload struct {
	Path         string `json:"path"`
	OriginalName string `json:"original_name"`
	MimeType     string `json:"mime_type"`
	Title        string `json:"title,omitempty"`
}

// Job represents a media job persisted in SQLite. Payload is immutable after
// creation; only status, attempts, last_error, and the timestamps change.
type Job struct {
	ID         int64
	Type       JobType
	Payload    string
	Status     Status
	Attempts   int
	LastError  string
	CreatedAt  time.Time
	StartedAt  *time.Time
	FinishedAt *time.Time
}

// ImportPayload decodes the job payload as an import_url variant. On decode
// failure the zero payload is returned alongside the error so callers can
// degrade to an empty payload instead of dropping the row; they should log
// the error rather than swallow it.
func (j *Job) ImportPayload() (ImportPayload, error) {
	var payload ImportPayload
	if err := json.Unmarshal([]byte(j.Payload), &payload); err != nil {
		return ImportPayload{}, err
	}
	return payload, nil
}

// UploadPayload decodes the job payload as an upload_file variant, with the
// same fallback contract as ImportPayload.
func (j *Job) UploadPayload() (UploadPayload, error) {
	var payload UploadPayload
	if err := json.Unmarshal([]byte(j.Payload), &payload); err != nil {
		return UploadPayload{}, err
	}
	return payload, nil
}

package media

import (
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"crownworks/internal/config"
	"crownworks/internal/logging"
)

// ErrUnsupportedMedia marks payloads whose MIME or content type is neither
// image nor video.
var ErrUnsupportedMedia = errors.New("unsupported media type")

// Kind partitions supported media into the two families the site serves.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// Record describes one processed media asset for the site library.
type Record struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Alt          string    `json:"alt"`
	Source       string    `json:"source"`
	Type         Kind      `json:"type"`
	SourceURL    string    `json:"source_url"`
	OptimizedURL string    `json:"optimized_url"`
	CreatedAt    time.Time `json:"created_at"`
}

// Upload describes a staged admin upload awaiting processing.
type Upload struct {
	Path         string
	OriginalName string
	MimeType     string
}

// Processor performs media imports and optimization.
type Processor struct {
	cfg    *config.Config
	logger *slog.Logger
	client *http.Client
}

// NewProcessor constructs a media processor. The HTTP client timeout comes
// from media.fetch_timeout_seconds (0 disables it).
func NewProcessor(cfg *config.Config, logger *slog.Logger) *Processor {
	return &Processor{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "media"),
		client: &http.Client{
			Timeout: time.Duration(cfg.Media.FetchTimeoutSeconds) * time.Second,
		},
	}
}

func kindForMime(mimeType string) (Kind, bool) {
	parsed, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		parsed = strings.ToLower(strings.TrimSpace(mimeType))
	}
	switch {
	case strings.HasPrefix(parsed, "image/"):
		return KindImage, true
	case strings.HasPrefix(parsed, "video/"):
		return KindVideo, true
	default:
		return "", false
	}
}

var mimeExtensions = map[string]string{
	"image/jpeg":       ".jpg",
	"image/png":        ".png",
	"image/webp":       ".webp",
	"image/gif":        ".gif",
	"image/avif":       ".avif",
	"video/mp4":        ".mp4",
	"video/quicktime":  ".mov",
	"video/webm":       ".webm",
	"video/x-matroska": ".mkv",
}

func extensionFor(mimeType, name string) string {
	if ext := strings.ToLower(filepath.Ext(name)); ext != "" && ext != "." {
		return ext
	}
	parsed, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		parsed = strings.ToLower(strings.TrimSpace(mimeType))
	}
	if ext, ok := mimeExtensions[parsed]; ok {
		return ext
	}
	return ".bin"
}

// newAssetName generates a collision-resistant asset filename: a UTC
// timestamp for operator-friendly sorting plus a random suffix.
func newAssetName(ext string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return time.Now().UTC().Format("20060102-150405") + "-" + suffix + ext
}

func inferTitle(name string) string {
	base := strings.TrimSpace(filepath.Base(name))
	if base == "" || base == "." || base == "/" {
		return "Imported media"
	}
	base = strings.TrimSuffix(base, filepath.Ext(base))
	cleaned := strings.TrimSpace(strings.NewReplacer("-", " ", "_", " ").Replace(base))
	if cleaned == "" {
		return "Imported media"
	}
	return cleaned
}

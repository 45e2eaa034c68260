package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"crownworks/internal/logging"
)

// ImportFromURL fetches a remote media asset, archives the original bytes
// under the source directory, and produces an optimized derivative. The
// returned record is ready for the library mirror.
func (p *Processor) ImportFromURL(ctx context.Context, rawURL, title string) (Record, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return Record{}, fmt.Errorf("parse media URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return Record{}, fmt.Errorf("unsupported URL scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return Record{}, fmt.Errorf("media URL %q has no host", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return Record{}, fmt.Errorf("build media request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return Record{}, fmt.Errorf("fetch %s: %w", parsed.Host, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Record{}, fmt.Errorf("fetch %s: unexpected status %d", parsed.Host, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	kind, ok := kindForMime(contentType)
	if !ok {
		return Record{}, fmt.Errorf("%w: content type %q from %s", ErrUnsupportedMedia, contentType, parsed.Host)
	}

	ext := extensionFor(contentType, parsed.Path)
	sourceName := newAssetName(ext)
	sourcePath := filepath.Join(p.cfg.Paths.SourceDir, sourceName)
	if err := p.writeSource(sourcePath, resp.Body); err != nil {
		return Record{}, err
	}

	optimizedName, err := p.optimize(ctx, sourcePath, kind)
	if err != nil {
		return Record{}, err
	}

	if title == "" {
		title = inferTitle(parsed.Path)
	}
	p.logger.Info("imported media from URL",
		logging.String("host", parsed.Host),
		logging.String("source_file", sourceName),
		logging.String("optimized_file", optimizedName),
		logging.String("media_type", string(kind)))

	return Record{
		ID:           uuid.NewString(),
		Title:        title,
		Alt:          title,
		Source:       SourceLabel(rawURL),
		Type:         kind,
		SourceURL:    "/media/source/" + sourceName,
		OptimizedURL: "/media/optimized/" + optimizedName,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

func (p *Processor) writeSource(path string, body io.Reader) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create source file: %w", err)
	}
	if _, err := io.Copy(out, body); err != nil {
		out.Close()
		os.Remove(path)
		return fmt.Errorf("write source file: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close source file: %w", err)
	}
	return nil
}

package media

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"crownworks/internal/fileutil"
	"crownworks/internal/logging"
)

// ProcessUpload archives a staged admin upload under the source directory
// and produces an optimized derivative. The staged file itself is left in
// place; removal is the caller's responsibility so cleanup happens whether
// processing succeeds or fails.
func (p *Processor) ProcessUpload(ctx context.Context, upload Upload, title string) (Record, error) {
	kind, ok := kindForMime(upload.MimeType)
	if !ok {
		return Record{}, fmt.Errorf("%w: mime type %q for upload %q", ErrUnsupportedMedia, upload.MimeType, upload.OriginalName)
	}

	ext := extensionFor(upload.MimeType, upload.OriginalName)
	sourceName := newAssetName(ext)
	sourcePath := filepath.Join(p.cfg.Paths.SourceDir, sourceName)
	if err := fileutil.CopyFile(upload.Path, sourcePath); err != nil {
		return Record{}, fmt.Errorf("archive upload: %w", err)
	}

	optimizedName, err := p.optimize(ctx, sourcePath, kind)
	if err != nil {
		return Record{}, err
	}

	if title == "" {
		title = inferTitle(upload.OriginalName)
	}
	p.logger.Info("processed uploaded media",
		logging.String("original_name", upload.OriginalName),
		logging.String("source_file", sourceName),
		logging.String("optimized_file", optimizedName),
		logging.String("media_type", string(kind)))

	return Record{
		ID:           uuid.NewString(),
		Title:        title,
		Alt:          title,
		Source:       "Upload",
		Type:         kind,
		SourceURL:    "/media/source/" + sourceName,
		OptimizedURL: "/media/optimized/" + optimizedName,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

package archive

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"threephase/internal/logging"
	"threephase/internal/recipe"
	"threephase/internal/services"
)

// Summary reports what an upload stored.
type Summary struct {
	Keys  []string
	Bytes int64
}

// Size renders Bytes for humans.
func (s Summary) Size() string {
	return humanize.IBytes(uint64(s.Bytes))
}

// Uploader copies recipe directories into a bucket.
type Uploader struct {
	cfg    Config
	store  ObjectStore
	logger *slog.Logger
}

// NewUploader validates cfg and wraps store.
func NewUploader(cfg Config, store ObjectStore, logger *slog.Logger) (*Uploader, error) {
	if err := cfg.Validate(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "archive", "config", "", err)
	}
	if store == nil {
		return nil, services.Wrap(services.ErrConfiguration, "archive", "config", "object store required", nil)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Uploader{cfg: cfg, store: store, logger: logging.NewComponentLogger(logger, "archive")}, nil
}

// Check verifies that the bucket exists.
func (u *Uploader) Check(ctx context.Context) error {
	ok, err := u.store.BucketExists(ctx, u.cfg.Bucket)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "archive", "check", u.cfg.Endpoint, err)
	}
	if !ok {
		return services.Wrap(services.ErrConfiguration, "archive", "check", "bucket missing: "+u.cfg.Bucket, nil)
	}
	return nil
}

// UploadSession uploads every file of a calculated session's directory.
func (u *Uploader) UploadSession(ctx context.Context, session recipe.Session) (Summary, error) {
	if session.State != recipe.Calculated {
		return Summary{}, services.Wrap(services.ErrState, "archive", "upload",
			fmt.Sprintf("recipe is %s; only calculated runs are archived", session.State), nil)
	}
	return u.UploadDir(ctx, session.Project, session.ID, session.Paths.Dir)
}

// UploadDir uploads the regular files under dir in lexical order.
func (u *Uploader) UploadDir(ctx context.Context, project, runID, dir string) (Summary, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() && d.Name() != recipe.LockFile {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return Summary{}, services.Wrap(services.ErrDirectory, "archive", "upload", dir, err)
	}

	ctx = services.WithProject(services.WithRunID(ctx, runID), project)
	logger := logging.WithContext(ctx, u.logger)
	var summary Summary
	for _, path := range files {
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return summary, services.Wrap(services.ErrDirectory, "archive", "upload", path, err)
		}
		key := ObjectKey(u.cfg.Prefix, project, runID, filepath.ToSlash(rel))
		size, err := u.store.PutFile(ctx, u.cfg.Bucket, key, path, contentType(path))
		if err != nil {
			return summary, services.Wrap(services.ErrExternalTool, "archive", "upload", key, err)
		}
		summary.Keys = append(summary.Keys, key)
		summary.Bytes += size
		logger.Debug("archived file", logging.String("key", key), logging.String("size", humanize.IBytes(uint64(size))))
	}
	logger.Info("run archived",
		logging.String(logging.FieldEventType, "archived"),
		logging.String("bucket", u.cfg.Bucket),
		logging.Int("objects", len(summary.Keys)),
		logging.String("size", summary.Size()),
	)
	return summary, nil
}

func contentType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".sh":
		return "text/x-shellscript"
	case ".xml":
		return "application/xml"
	default:
		return "text/plain"
	}
}

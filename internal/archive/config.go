package archive

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"threephase/internal/config"
)

// Config describes the archive endpoint and bucket.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	Bucket    string
	Prefix    string
	UseSSL    bool
}

// FromConfig copies the [archive] section of cfg.
func FromConfig(cfg config.Archive) Config {
	return Config{
		Endpoint:  cfg.Endpoint,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		Region:    cfg.Region,
		Bucket:    cfg.Bucket,
		Prefix:    cfg.Prefix,
		UseSSL:    cfg.UseSSL,
	}
}

// Validate reports the first missing or malformed field.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return errors.New("endpoint is required")
	}
	if strings.TrimSpace(c.AccessKey) == "" {
		return errors.New("access key is required")
	}
	if strings.TrimSpace(c.SecretKey) == "" {
		return errors.New("secret key is required")
	}
	if strings.TrimSpace(c.Bucket) == "" {
		return errors.New("bucket is required")
	}
	if strings.Contains(c.Endpoint, "://") {
		return fmt.Errorf("endpoint must not include scheme: %q", c.Endpoint)
	}
	return nil
}

// ObjectKey joins the key of one archived file. Empty segments are skipped
// and backslashes in file become slashes.
func ObjectKey(prefix, project, runID, file string) string {
	file = strings.ReplaceAll(file, `\`, "/")
	parts := make([]string, 0, 4)
	for _, part := range []string{prefix, project, runID, file} {
		if part = strings.Trim(part, "/ "); part != "" {
			parts = append(parts, part)
		}
	}
	return path.Join(parts...)
}

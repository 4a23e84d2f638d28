package archive_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"threephase/internal/archive"
	"threephase/internal/recipe"
	"threephase/internal/services"
	"threephase/internal/testsupport"
)

type fakeStore struct {
	mu      sync.Mutex
	buckets map[string]bool
	puts    map[string]string
	failKey string
}

func newFakeStore(buckets ...string) *fakeStore {
	s := &fakeStore{buckets: map[string]bool{}, puts: map[string]string{}}
	for _, b := range buckets {
		s.buckets[b] = true
	}
	return s
}

func (s *fakeStore) BucketExists(_ context.Context, bucket string) (bool, error) {
	return s.buckets[bucket], nil
}

func (s *fakeStore) PutFile(_ context.Context, bucket, key, path, _ string) (int64, error) {
	if key == s.failKey {
		return 0, errors.New("connection reset")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts[bucket+"/"+key] = string(data)
	return int64(len(data)), nil
}

func validConfig() archive.Config {
	return archive.Config{
		Endpoint:  "localhost:9000",
		AccessKey: "a",
		SecretKey: "b",
		Region:    "us-east-1",
		Bucket:    "daylight",
		Prefix:    "threephase",
	}
}

func TestConfigValidate(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("Validate() err=%v", err)
	}
	mutations := map[string]func(*archive.Config){
		"scheme":     func(c *archive.Config) { c.Endpoint = "http://localhost:9000" },
		"endpoint":   func(c *archive.Config) { c.Endpoint = "" },
		"access key": func(c *archive.Config) { c.AccessKey = " " },
		"secret key": func(c *archive.Config) { c.SecretKey = "" },
		"bucket":     func(c *archive.Config) { c.Bucket = "" },
	}
	for name, mutate := range mutations {
		cfg := validConfig()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestObjectKey(t *testing.T) {
	cases := []struct {
		prefix, project, run, file string
		want                       string
	}{
		{"threephase", "office", "r1", "office.vmx", "threephase/office/r1/office.vmx"},
		{"", "office", "r1", "office.vmx", "office/r1/office.vmx"},
		{"/archive/", "office", "r1", `sub\illuminance.ill`, "archive/office/r1/sub/illuminance.ill"},
	}
	for _, tc := range cases {
		if got := archive.ObjectKey(tc.prefix, tc.project, tc.run, tc.file); got != tc.want {
			t.Fatalf("ObjectKey(%q, %q, %q, %q) = %q, want %q", tc.prefix, tc.project, tc.run, tc.file, got, tc.want)
		}
	}
}

func writeRunDir(t *testing.T) recipe.Session {
	t.Helper()
	paths, err := recipe.NewArtifactPaths(t.TempDir(), "office", "threephase")
	if err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(paths.Dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for path, content := range map[string]string{
		paths.Script: "#!/bin/sh\n",
		paths.Result: "1 2 3\n",
		paths.Lock:   "",
	} {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return recipe.Session{ID: "run-1", Project: "office", State: recipe.Calculated, Paths: paths}
}

func TestUploadSession(t *testing.T) {
	store := newFakeStore("daylight")
	uploader, err := archive.NewUploader(validConfig(), store, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := uploader.Check(context.Background()); err != nil {
		t.Fatalf("Check: %v", err)
	}

	session := writeRunDir(t)
	summary, err := uploader.UploadSession(context.Background(), session)
	if err != nil {
		t.Fatalf("UploadSession: %v", err)
	}
	wantKeys := []string{
		"threephase/office/run-1/illuminance.ill",
		"threephase/office/run-1/office.sh",
	}
	if diff := cmp.Diff(wantKeys, summary.Keys); diff != "" {
		t.Fatalf("unexpected keys (-want +got):\n%s", diff)
	}
	if summary.Bytes != int64(len("#!/bin/sh\n")+len("1 2 3\n")) {
		t.Fatalf("unexpected byte count %d", summary.Bytes)
	}
	if summary.Size() != "16 B" {
		t.Fatalf("unexpected size %q", summary.Size())
	}
	if got := store.puts["daylight/threephase/office/run-1/illuminance.ill"]; got != "1 2 3\n" {
		t.Fatalf("unexpected uploaded content %q", got)
	}
}

func TestUploadSessionCountsMatrixBytes(t *testing.T) {
	store := newFakeStore("daylight")
	uploader, err := archive.NewUploader(validConfig(), store, nil)
	if err != nil {
		t.Fatal(err)
	}
	session := writeRunDir(t)
	const matrixSize = 3 << 20
	testsupport.WriteMatrixArtifact(t, session.Paths.DaylightMatrix, matrixSize)

	summary, err := uploader.UploadSession(context.Background(), session)
	if err != nil {
		t.Fatalf("UploadSession: %v", err)
	}
	if len(summary.Keys) != 3 {
		t.Fatalf("expected 3 uploaded files, got %v", summary.Keys)
	}
	if want := int64(matrixSize + len("#!/bin/sh\n") + len("1 2 3\n")); summary.Bytes != want {
		t.Fatalf("expected %d bytes, got %d", want, summary.Bytes)
	}
	if summary.Size() != "3.0 MiB" {
		t.Fatalf("unexpected size %q", summary.Size())
	}
}

func TestUploadRequiresCalculatedSession(t *testing.T) {
	uploader, err := archive.NewUploader(validConfig(), newFakeStore("daylight"), nil)
	if err != nil {
		t.Fatal(err)
	}
	session := writeRunDir(t)
	session.State = recipe.FilesWritten
	if _, err := uploader.UploadSession(context.Background(), session); !errors.Is(err, services.ErrState) {
		t.Fatalf("expected state error, got %v", err)
	}
}

func TestUploadReportsStoreFailure(t *testing.T) {
	store := newFakeStore("daylight")
	store.failKey = "threephase/office/run-1/office.sh"
	uploader, err := archive.NewUploader(validConfig(), store, nil)
	if err != nil {
		t.Fatal(err)
	}
	summary, err := uploader.UploadSession(context.Background(), writeRunDir(t))
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if len(summary.Keys) != 1 {
		t.Fatalf("expected partial summary with one key, got %v", summary.Keys)
	}
}

func TestCheckMissingBucket(t *testing.T) {
	uploader, err := archive.NewUploader(validConfig(), newFakeStore(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := uploader.Check(context.Background()); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestNewUploaderRejectsInvalidConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Bucket = ""
	if _, err := archive.NewUploader(cfg, newFakeStore(), nil); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if _, err := archive.NewMinioStore(cfg); err == nil {
		t.Fatal("expected minio store to reject invalid config")
	}
}

func TestUploadDirMissing(t *testing.T) {
	uploader, err := archive.NewUploader(validConfig(), newFakeStore("daylight"), nil)
	if err != nil {
		t.Fatal(err)
	}
	_, err = uploader.UploadDir(context.Background(), "office", "r", filepath.Join(t.TempDir(), "missing"))
	if !errors.Is(err, services.ErrDirectory) {
		t.Fatalf("expected directory error, got %v", err)
	}
}

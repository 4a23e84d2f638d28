package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

const matrixHeader = "#?RADIANCE\nFORMAT=ascii\n\n"

// WriteMatrixArtifact writes a Radiance-style ASCII matrix of exactly size
// bytes to path, creating parent directories. Sizes smaller than the header
// are rounded up to it. It stands in for large .vmx/.dmx artifacts.
func WriteMatrixArtifact(t testing.TB, path string, size int64) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}

	var buf bytes.Buffer
	buf.WriteString(matrixHeader)
	for int64(buf.Len()) < size {
		if size-int64(buf.Len()) == 1 {
			buf.WriteByte('\n')
		} else {
			buf.WriteString("0\t")
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// RadianceTools are the engine binaries a recipe invokes.
var RadianceTools = []string{"rfluxmtx", "rcontrib", "xform", "dctimestep", "epw2wea", "gendaymtx"}

// StubOptions shapes the output of the stub Radiance tools.
type StubOptions struct {
	// Sensors and Steps size the matrix dctimestep prints.
	Sensors int
	Steps   int
	// DctimestepExit makes dctimestep exit with this status after writing.
	DctimestepExit int
}

// RadianceStubs writes shell stand-ins for the Radiance tools into dir and
// returns it. dctimestep fails unless all four of its inputs exist, so stage
// ordering problems surface the way they would with the real engine.
func RadianceStubs(t testing.TB, dir string, opts StubOptions) string {
	t.Helper()
	if opts.Sensors <= 0 {
		opts.Sensors = 1
	}
	if opts.Steps <= 0 {
		opts.Steps = 1
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir stub dir: %v", err)
	}

	stubs := map[string]string{
		"xform":     "for last; do :; done\ncat \"$last\"\n",
		"rfluxmtx":  "echo '#?RADIANCE'\necho \"rfluxmtx $*\"\n",
		"rcontrib":  "exit 0\n",
		"epw2wea":   "[ -f \"$1\" ] || exit 1\n: > \"$2\"\n",
		"gendaymtx": "echo '#?RADIANCE'\necho \"gendaymtx $*\"\n",
		"dctimestep": fmt.Sprintf(`for f in "$1" "$2" "$3" "$4"; do
  [ -f "$f" ] || { echo "missing $f" >&2; exit 2; }
done
awk 'BEGIN {
  print "#?RADIANCE"; print "NROWS=%[1]d"; print "NCOLS=%[2]d"; print "NCOMP=3"; print "FORMAT=ascii"; print ""
  for (r = 0; r < %[1]d; r++) {
    line = ""
    for (c = 0; c < %[2]d; c++) line = line (c ? "\t" : "") (r + 1) " 0 0"
    print line
  }
}'
exit %[3]d
`, opts.Sensors, opts.Steps, opts.DctimestepExit),
	}
	for name, body := range stubs {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
			t.Fatalf("write stub %s: %v", name, err)
		}
	}
	return dir
}

package markup

import (
	"fmt"
	"os"
)

// ApplyToFile reads path, rewrites its contents with Apply, and writes the
// result back in place. The original compiler's equivalent step slurps
// the whole file into memory, applies every pattern, then truncates and
// rewrites it — the same shape here, since the whole generated source
// file is small enough to hold in memory at once.
//
// Unlike the original, this does not sleep before opening or after
// writing: that delay let a separate process (the still-closing previous
// compiler stage) release its file handle on the same path. Everything
// here runs in one process and one goroutine, so there is no handle to
// wait out.
func ApplyToFile(path string, patterns []Pattern) error {
	contents, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("markup: reading %s: %w", path, err)
	}

	marked := Apply(string(contents), patterns)

	if err := os.WriteFile(path, []byte(marked), 0o644); err != nil {
		return fmt.Errorf("markup: writing %s: %w", path, err)
	}
	return nil
}

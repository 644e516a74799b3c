package datasets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/janpfeifer/must"
)

// writeCSV writes a CSV file with the given header and rows to path.
func writeCSV(t *testing.T, path, header string, rows []string) {
	t.Helper()
	writeLines(t, path, append([]string{header}, rows...))
}

// writeLines writes lines, each terminated by a newline, to path.
func writeLines(t *testing.T, path string, lines []string) {
	t.Helper()
	contents := strings.Join(lines, "\n") + "\n"
	must.M(os.WriteFile(path, []byte(contents), 0o644))
}

// readLines returns the lines of a text file, without the trailing empty line.
func readLines(t *testing.T, path string) []string {
	t.Helper()
	contents := string(must.M1(os.ReadFile(path)))
	return strings.Split(strings.TrimSuffix(contents, "\n"), "\n")
}

// fixtureDir returns a new temporary directory for dataset files.
func fixtureDir(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "data")
	must.M(os.MkdirAll(dir, 0o755))
	return dir
}

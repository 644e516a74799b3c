package datasets

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

func parseFloat32(s string) (float32, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty string")
	}
	v, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return 0, err
	}
	return float32(v), nil
}

// formatFloat32 writes v with the fewest digits that parse back to the same float32.
func formatFloat32(v float32) string {
	return strconv.FormatFloat(float64(v), 'g', -1, 32)
}

// expandRoot replaces a leading "~" in root by the user's home directory.
func expandRoot(root string) (string, error) {
	if root != "~" && !strings.HasPrefix(root, "~/") {
		return root, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrapf(err, "failed to expand %q", root)
	}
	return filepath.Join(home, root[1:]), nil
}

// fileExists returns whether path exists, or an error if the filesystem could not tell.
func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, errors.Wrapf(err, "failed to stat %q", path)
}

// readFields reads path line by line and splits each non-blank line with split.
// lineNums holds the 1-based source line of each returned row.
func readFields(path string, split func(string) []string) (rows [][]string, lineNums []int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to open %q", path)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		rows = append(rows, split(line))
		lineNums = append(lineNums, lineNum)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, errors.Wrapf(err, "failed to read %q", path)
	}
	return rows, lineNums, nil
}

// splitComma splits a line on commas and trims every field.
func splitComma(line string) []string {
	fields := strings.Split(line, ",")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields
}

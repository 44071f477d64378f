package workunit

import (
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/hpcc-systems/gohpcc/pkg/options"
)

// SourceExt is the extension of query source files.
const SourceExt = ".ecl"

// FindSources expands glob patterns (with ** support) into regular files.
// Matches are returned in pattern order without duplicates.
func FindSources(patterns []string) ([]string, error) {
	var files []string
	seen := make(map[string]struct{})
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, err
		}
		for _, name := range matches {
			info, err := os.Lstat(name)
			if err != nil {
				continue
			}
			if !info.Mode().IsRegular() {
				continue
			}
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			files = append(files, name)
		}
	}
	return files, nil
}

// SourcePath returns <dir>/<job name>.ecl with whitespace in the job name
// replaced by underscores.
func SourcePath(dir, jobName string) string {
	return filepath.Join(dir, options.SanitizeJobName(jobName)+SourceExt)
}

// WriteSource writes query to the source path for jobName inside dir and
// returns that path.
func WriteSource(query, dir, jobName string) (string, error) {
	path := SourcePath(dir, jobName)
	file, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	if _, err := file.WriteString(query); err != nil {
		return "", err
	}
	return path, file.Close()
}

package convert

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cyclopcam/framedet/pkg/frames"
	"github.com/cyclopcam/logs"
)

// AnnotationExtensions are the extensions of annotation files
var AnnotationExtensions = []string{".json"}

// EnumerateFiles returns every file below dir (at any depth) whose extension is one of 'extensions'.
// Extensions include the leading dot, and are compared case-insensitively.
// Directories in skipDirs (and everything below them) are not visited.
// The order of the result is unspecified.
func EnumerateFiles(dir string, extensions []string, skipDirs ...string) ([]string, error) {
	allowed := map[string]bool{}
	for _, ext := range extensions {
		allowed[strings.ToLower(ext)] = true
	}
	return walkFiles(dir, func(name string) bool {
		return allowed[strings.ToLower(filepath.Ext(name))]
	}, skipDirs)
}

func walkFiles(dir string, match func(name string) bool, skipDirs []string) ([]string, error) {
	skip := map[string]bool{}
	for _, d := range skipDirs {
		if d != "" {
			skip[absPath(d)] = true
		}
	}
	files := []string{}
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && skip[absPath(path)] {
				return fs.SkipDir
			}
			return nil
		}
		if match(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// Absolute, cleaned path. Falls back to the cleaned path if the working directory is unknown.
func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}

// Returns true if a and b refer to the same directory path
func SamePath(a, b string) bool {
	return absPath(a) == absPath(b)
}

// ListFrames returns the frame images below folder, sorted
func ListFrames(folder string) ([]string, error) {
	files, err := walkFiles(folder, frames.IsFrameFile, nil)
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// ListAnnotations returns the annotation files below dir, sorted.
// skipDirs are typically the output directory, which holds .json files of its own when
// it lives inside the annotation directory.
func ListAnnotations(dir string, skipDirs ...string) ([]string, error) {
	files, err := EnumerateFiles(dir, AnnotationExtensions, skipDirs...)
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// MakeOutputDir creates the output directory, and any missing parents.
// An existing directory is fine (created = false). Anything else that goes wrong is an error,
// including a non-directory sitting at 'dir'.
func MakeOutputDir(log logs.Log, dir string) (created bool, err error) {
	st, err := os.Stat(dir)
	if err == nil {
		if !st.IsDir() {
			return false, fmt.Errorf("Output path '%v' exists, but is not a directory", dir)
		}
		log.Infof("Output directory %v already exists", dir)
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("Failed to inspect output directory '%v': %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return false, fmt.Errorf("Failed to create output directory '%v': %w", dir, err)
	}
	log.Infof("Directory %v created successfully", dir)
	return true, nil
}

package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/karrick/godirwalk"
	shutil "github.com/termie/go-shutil"
	"github.com/theckman/go-flock"
	"github.com/pkg/errors"
)

// findSarifReports walks root looking for *.sarif files, skipping VCS
// metadata directories. The run itself does not call it: resolveTargets
// opens the configured sarif path as a single report file. Mirrors
// the teacher's own preference for godirwalk over filepath.Walk when it
// needs to descend a tree quickly without per-entry lstat overhead.
func findSarifReports(root string) ([]string, error) {
	var found []string
	err := godirwalk.Walk(root, &godirwalk.Options{
		Unsorted: true,
		Callback: func(path string, de *godirwalk.Dirent) error {
			if de.IsDir() {
				switch filepath.Base(path) {
				case ".git", ".svn", ".hg", ".bzr":
					return filepath.SkipDir
				}
				return nil
			}
			if strings.EqualFold(filepath.Ext(path), ".sarif") {
				found = append(found, path)
			}
			return nil
		},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "klee-search: failed to walk %q for SARIF reports", root)
	}
	return found, nil
}

// archiveSarifInput copies the SARIF report at sarifPath into outDir and
// returns the copy's path. The run itself does not call it, so a run's
// output directory does not receive its SARIF input. Symlinks are
// preserved rather than followed, matching the teacher's own
// exportVersionTo CopyTreeOptions.
func archiveSarifInput(sarifPath, outDir string) (string, error) {
	dst := filepath.Join(outDir, filepath.Base(sarifPath))
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", errors.Wrapf(err, "klee-search: failed to create %q", outDir)
	}
	if _, err := shutil.Copy(sarifPath, dst, true); err != nil {
		return "", errors.Wrapf(err, "klee-search: failed to archive %q into %q", sarifPath, outDir)
	}
	return dst, nil
}

// acquireRunLock takes an exclusive, non-blocking lock on a sentinel file
// inside outDir for the run's duration, so a second run over the same
// outDir fails instead of running concurrently.
func acquireRunLock(outDir string) (*flock.Flock, error) {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, errors.Wrapf(err, "klee-search: failed to create %q", outDir)
	}
	lockPath := filepath.Join(outDir, ".klee-search.lock")
	fl := flock.NewFlock(lockPath)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, errors.Wrapf(err, "klee-search: failed to lock %q", lockPath)
	}
	if !locked {
		return nil, errors.Errorf("klee-search: %q is already locked by another run", lockPath)
	}
	return fl, nil
}

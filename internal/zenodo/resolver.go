package zenodo

import (
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
)

// TargetKind classifies an upload target.
type TargetKind int

const (
	TargetFile TargetKind = iota
	TargetDirectory
	TargetRemoteURL
)

func (k TargetKind) String() string {
	switch k {
	case TargetFile:
		return "file"
	case TargetDirectory:
		return "directory"
	case TargetRemoteURL:
		return "url"
	}
	return "unknown"
}

// Target is a classified upload source. Value is a filesystem path for
// files and directories, and the full URL for remote targets.
type Target struct {
	Kind  TargetKind
	Value string
}

// UnresolvableTargetError is returned when an upload target is neither a
// valid URL nor an existing filesystem path.
type UnresolvableTargetError struct {
	Target string
}

func (e *UnresolvableTargetError) Error() string {
	return fmt.Sprintf("path does not exist and is not a valid URL: %s", e.Target)
}

// hostPattern rejects URLs whose host is not domain-like. "has scheme and
// host" alone would accept strings like "http://foo".
var hostPattern = regexp.MustCompile(`^[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidURL reports whether raw is an absolute http(s) URL with a
// domain-like host.
func ValidURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}
	return hostPattern.MatchString(parsed.Hostname())
}

// Resolve classifies raw as a remote URL, a local directory, or a local
// file. Classification happens once; callers dispatch on the returned kind
// instead of re-probing the filesystem.
func Resolve(raw string) (Target, error) {
	if ValidURL(raw) {
		return Target{Kind: TargetRemoteURL, Value: raw}, nil
	}
	info, err := os.Stat(raw)
	if err != nil {
		return Target{}, &UnresolvableTargetError{Target: raw}
	}
	if info.IsDir() {
		return Target{Kind: TargetDirectory, Value: raw}, nil
	}
	if info.Mode().IsRegular() {
		return Target{Kind: TargetFile, Value: raw}, nil
	}
	return Target{}, &UnresolvableTargetError{Target: raw}
}

// Files lists all regular files under dir recursively, in lexical walk
// order. The order is stable across traversals of an unchanged tree, which
// downstream name-collision checks rely on.
func Files(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", dir, err)
	}
	return files, nil
}

// Package discover finds class source files in the class directory.
package discover

import (
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/phobologic/classgraph/internal/errors"
	"github.com/phobologic/classgraph/internal/framework"
	"github.com/phobologic/classgraph/internal/fsutil"
	"github.com/phobologic/classgraph/internal/lang"
)

// DefaultIgnore lists the test-file patterns that never count as classes.
var DefaultIgnore = []string{
	"*.test.*",
	"*.spec.*",
	"__tests__/",
	"*.d.ts",
}

// classIDRe is a plain identifier; other basenames cannot name a class.
var classIDRe = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// FileEntry represents a discovered class file.
type FileEntry struct {
	Path     string // Absolute path
	ClassID  string
	Language string
}

// Options selects which files of the directory are classes.
type Options struct {
	// Extensions limits discovery to these extensions (".ts"); empty means
	// every registered language.
	Extensions []string
	// Entry is the basename, without extension, of the bootstrap file.
	Entry string
	// Ignore holds extra gitignore-style patterns.
	Ignore []string
}

// Filter decides whether a path in the class directory is a class file.
type Filter struct {
	dir   string
	opts  Options
	gi    *ignore.GitIgnore
	extra []string
}

// NewFilter builds a filter for dir from opts, DefaultIgnore and the
// directory's own .gitignore.
func NewFilter(dir string, opts Options) *Filter {
	if opts.Entry == "" {
		opts.Entry = framework.EntryBase
	}
	lines := append(slices.Clone(DefaultIgnore), opts.Ignore...)
	gi, err := ignore.CompileIgnoreFileAndLines(filepath.Join(dir, ".gitignore"), lines...)
	if err != nil {
		gi = ignore.CompileIgnoreLines(lines...)
	}
	return &Filter{dir: dir, opts: opts, gi: gi}
}

// Dir returns the class directory.
func (f *Filter) Dir() string {
	return f.dir
}

// IsEntry reports whether path is the bootstrap file.
func (f *Filter) IsEntry(path string) bool {
	if filepath.Dir(filepath.Clean(path)) != filepath.Clean(f.dir) {
		return false
	}
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name)) == f.opts.Entry
}

// IsIgnored reports whether path matches a test or ignore pattern.
func (f *Filter) IsIgnored(path string) bool {
	rel, err := filepath.Rel(f.dir, path)
	if err != nil {
		rel = filepath.Base(path)
	}
	return f.gi.MatchesPath(filepath.ToSlash(rel))
}

// Match returns the class id and language of path when it is a class
// file: a direct child of the directory with a supported extension, not
// hidden, not the entry file and not ignored.
func (f *Filter) Match(path string) (FileEntry, bool) {
	if filepath.Dir(filepath.Clean(path)) != filepath.Clean(f.dir) {
		return FileEntry{}, false
	}
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") || f.IsEntry(path) || f.IsIgnored(path) {
		return FileEntry{}, false
	}
	ext := filepath.Ext(name)
	if len(f.opts.Extensions) > 0 && !slices.Contains(f.opts.Extensions, ext) {
		return FileEntry{}, false
	}
	langName := lang.ForExtension(ext)
	if langName == "" {
		return FileEntry{}, false
	}
	id := strings.TrimSuffix(name, ext)
	if !classIDRe.MatchString(id) {
		return FileEntry{}, false
	}
	return FileEntry{Path: path, ClassID: id, Language: langName}, true
}

// ValidClassID reports whether id can name a class file.
func ValidClassID(id string) bool {
	return classIDRe.MatchString(id)
}

// Locate returns the existing file of classID, trying each allowed
// extension in order.
func (f *Filter) Locate(classID string) (string, bool) {
	exts := f.opts.Extensions
	if len(exts) == 0 {
		exts = []string{".ts", ".tsx"}
	}
	for _, ext := range exts {
		path := filepath.Join(f.dir, classID+ext)
		if _, ok := f.Match(path); ok && fsutil.Exists(path) {
			return path, true
		}
	}
	return "", false
}

// PathFor returns where the file of classID lives.
func (f *Filter) PathFor(classID string) string {
	ext := ".ts"
	if len(f.opts.Extensions) > 0 {
		ext = f.opts.Extensions[0]
	}
	return filepath.Join(f.dir, classID+ext)
}

// EntryPath returns the bootstrap file's path.
func (f *Filter) EntryPath() string {
	ext := ".ts"
	if len(f.opts.Extensions) > 0 {
		ext = f.opts.Extensions[0]
	}
	return filepath.Join(f.dir, f.opts.Entry+ext)
}

// Files lists the class files directly inside the filter's directory,
// sorted by class id. A missing directory yields no files.
func (f *Filter) Files() ([]FileEntry, error) {
	entries, err := os.ReadDir(f.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WrapFS(err, "list %s", f.dir)
	}

	var results []FileEntry
	for _, d := range entries {
		// Skip directories and symlinks
		if d.IsDir() || d.Type()&os.ModeSymlink != 0 {
			continue
		}
		if fe, ok := f.Match(filepath.Join(f.dir, d.Name())); ok {
			results = append(results, fe)
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].ClassID < results[j].ClassID
	})
	return results, nil
}

// Files discovers the class files of dir with opts.
func Files(dir string, opts Options) ([]FileEntry, error) {
	return NewFilter(dir, opts).Files()
}

// IsTestFile reports whether path looks like a test file under the default patterns.
func IsTestFile(path string) bool {
	return ignore.CompileIgnoreLines(DefaultIgnore...).MatchesPath(filepath.ToSlash(path))
}

package classifier

import (
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"

	domainerrors "libpack/internal/core/errors"
)

// OutputExtension is the extension every compiled module is written with.
const OutputExtension = ".js"

type Options struct {
	PackageName  string
	SourceRoot   string
	Extension    string
	IndexName    string
	ManifestFile string
	Rules        []Rule
}

// File is one classified source path.
type File struct {
	Path       string
	Rel        string
	Derived    string
	ModuleName string
	Eligible   bool
	Reason     string
}

type Classifier struct {
	packageName  string
	sourceRoot   string
	extension    string
	indexFile    string
	manifestFile string
	rules        []compiledRule
}

func New(opts Options) (*Classifier, error) {
	if strings.TrimSpace(opts.PackageName) == "" {
		return nil, domainerrors.New(domainerrors.CodeValidationError, "package name must not be empty")
	}
	ext := opts.Extension
	if ext == "" {
		ext = ".js"
	}
	index := opts.IndexName
	if index == "" {
		index = "index"
	}
	rules := opts.Rules
	if rules == nil {
		rules = DefaultRules
	}
	compiled, err := compileRules(rules)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeValidationError, "invalid exclusion rules")
	}
	return &Classifier{
		packageName:  opts.PackageName,
		sourceRoot:   filepath.Clean(opts.SourceRoot),
		extension:    ext,
		indexFile:    index + ext,
		manifestFile: opts.ManifestFile,
		rules:        compiled,
	}, nil
}

func (c *Classifier) PackageName() string { return c.packageName }

func (c *Classifier) SourceRoot() string { return c.sourceRoot }

// Classify decides from the path string alone whether p takes part in the build
// and which public module name it maps to.
func (c *Classifier) Classify(p string) File {
	f := File{Path: p}

	rel, ok := c.relative(p)
	if !ok {
		f.Reason = "outside source root"
		return f
	}
	f.Rel = rel

	if rule, excluded := matchRule(c.rules, rel); excluded {
		f.Reason = rule.Reason
		return f
	}
	if !strings.HasSuffix(rel, c.extension) {
		f.Reason = "not a " + c.extension + " source"
		return f
	}

	f.Derived = c.derive(rel)
	f.ModuleName = c.moduleName(f.Derived)
	f.Eligible = true
	return f
}

// ExcludesDir reports whether everything below dir is excluded, so walkers and
// watchers can skip it entirely.
func (c *Classifier) ExcludesDir(dir string) bool {
	rel, ok := c.relative(dir)
	if !ok {
		return true
	}
	if rel == "" {
		return false
	}
	_, excluded := matchRule(c.rules, rel+"/")
	return excluded
}

// OutputRel is the file's path below a format directory.
func (c *Classifier) OutputRel(f File) string {
	return strings.TrimSuffix(f.Rel, c.extension) + OutputExtension
}

func (c *Classifier) relative(p string) (string, bool) {
	rel, err := filepath.Rel(c.sourceRoot, filepath.Clean(p))
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if rel == "." {
		return "", true
	}
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", false
	}
	return rel, true
}

func (c *Classifier) derive(rel string) string {
	if path.Base(rel) == c.indexFile {
		dir := path.Dir(rel)
		if dir == "." {
			return ""
		}
		return dir
	}
	return strings.TrimSuffix(rel, c.extension)
}

func (c *Classifier) moduleName(derived string) string {
	if derived == "" {
		return c.packageName
	}
	return c.packageName + "/" + derived
}

// Discover walks the source root in lexical order and returns the eligible
// files. Colliding module names are rejected.
func (c *Classifier) Discover() ([]File, error) {
	var files []File
	err := filepath.WalkDir(c.sourceRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != c.sourceRoot && c.ExcludesDir(p) {
				return filepath.SkipDir
			}
			return nil
		}
		f := c.Classify(p)
		if f.Eligible {
			files = append(files, f)
		}
		return nil
	})
	if err != nil {
		return nil, domainerrors.AddContext(
			domainerrors.Wrap(err, domainerrors.CodeIOFailed, "walk source tree"),
			domainerrors.CtxPath, c.sourceRoot,
		)
	}
	if err := CheckUnique(files); err != nil {
		return nil, err
	}
	if err := c.checkManifestCollision(files); err != nil {
		return nil, err
	}
	return files, nil
}

func (c *Classifier) checkManifestCollision(files []File) error {
	if c.manifestFile == "" {
		return nil
	}
	for _, f := range files {
		if c.OutputRel(f) == c.manifestFile {
			return domainerrors.AddContext(
				domainerrors.New(domainerrors.CodeConflict, "source file would overwrite the manifest module"),
				domainerrors.CtxPath, f.Path,
			)
		}
	}
	return nil
}

// CheckUnique fails when two files map to the same module name, e.g. a.js next
// to a/index.js.
func CheckUnique(files []File) error {
	owners := make(map[string][]string, len(files))
	for _, f := range files {
		owners[f.ModuleName] = append(owners[f.ModuleName], f.Rel)
	}

	var dupes []string
	for name, rels := range owners {
		if len(rels) > 1 {
			dupes = append(dupes, fmt.Sprintf("%s <- %s", name, strings.Join(rels, ", ")))
		}
	}
	if len(dupes) == 0 {
		return nil
	}
	sort.Strings(dupes)
	return domainerrors.AddContext(
		domainerrors.New(domainerrors.CodeConflict, "duplicate module names"),
		domainerrors.CtxModule, strings.Join(dupes, "; "),
	)
}

// ModuleNames returns the external name set for a discovery pass, in walk order.
func ModuleNames(files []File) []string {
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.ModuleName)
	}
	return names
}

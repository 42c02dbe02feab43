package loader

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"mercator-hq/auditor/pkg/checks"
)

// Config contains configuration for the rule loader.
type Config struct {
	// MaxFileSize is the largest rule file accepted, in bytes.
	// Default: 1 MiB
	MaxFileSize int64

	// AllowedExtensions lists the file extensions loaded from directories.
	// Default: .yaml, .yml, .json
	AllowedExtensions []string

	// SkipHidden skips dot-files and dot-directories when walking directories.
	SkipHidden bool
}

// DefaultConfig returns the default loader configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxFileSize:       1 << 20,
		AllowedExtensions: []string{".yaml", ".yml", ".json"},
		SkipHidden:        true,
	}
}

// Loader turns rule documents into ordered check definitions.
type Loader struct {
	config *Config
}

// New creates a loader. A nil config selects DefaultConfig.
func New(config *Config) *Loader {
	if config == nil {
		config = DefaultConfig()
	}
	return &Loader{config: config}
}

// rawEntry mirrors one element of the rule document's check collection.
// Fields not listed here are ignored.
type rawEntry struct {
	ID          string `yaml:"id"`
	Description string `yaml:"description"`
	Query       string `yaml:"query"`
	Result      struct {
		Multi *checks.Branch `yaml:"multi"`
		None  *checks.Branch `yaml:"none"`
	} `yaml:"result"`
	Fix string `yaml:"fix"`
}

// collectionKeys are the accepted names of the top-level check collection.
var collectionKeys = []string{"checks", "rules"}

// Load reads definitions from a file or, when path is a directory, from
// every rule file beneath it.
func (l *Loader) Load(path string) ([]*checks.Definition, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &checks.RuleDocumentError{Source: path, Message: "failed to access path", Cause: err}
	}
	if info.IsDir() {
		return l.LoadFromDirectory(path)
	}
	return l.LoadFromFile(path)
}

// LoadFromFile loads a single rule document. It enforces the file size
// limit and UTF-8 encoding before parsing.
func (l *Loader) LoadFromFile(path string) ([]*checks.Definition, error) {
	info, err := os.Stat(path)
	if err != nil {
		msg := "failed to access file"
		if os.IsNotExist(err) {
			msg = "file not found"
		}
		return nil, &checks.RuleDocumentError{Source: path, Message: msg, Cause: err}
	}

	if !info.Mode().IsRegular() {
		return nil, &checks.RuleDocumentError{Source: path, Message: "not a regular file"}
	}

	if info.Size() > l.config.MaxFileSize {
		return nil, &checks.RuleDocumentError{
			Source:  path,
			Message: fmt.Sprintf("file size %d bytes exceeds maximum %d bytes", info.Size(), l.config.MaxFileSize),
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &checks.RuleDocumentError{Source: path, Message: "failed to read file", Cause: err}
	}

	return l.Parse(data, path)
}

// LoadReader parses a rule document read from r.
func (l *Loader) LoadReader(r io.Reader, source string) ([]*checks.Definition, error) {
	data, err := io.ReadAll(io.LimitReader(r, l.config.MaxFileSize+1))
	if err != nil {
		return nil, &checks.RuleDocumentError{Source: source, Message: "failed to read document", Cause: err}
	}
	if int64(len(data)) > l.config.MaxFileSize {
		return nil, &checks.RuleDocumentError{
			Source:  source,
			Message: fmt.Sprintf("document exceeds maximum %d bytes", l.config.MaxFileSize),
		}
	}
	return l.Parse(data, source)
}

// LoadFromDirectory loads every rule file under dir in lexical path order
// and concatenates their definitions. A single malformed file fails the load.
func (l *Loader) LoadFromDirectory(dir string) ([]*checks.Definition, error) {
	files, err := l.collectFiles(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, &checks.RuleDocumentError{Source: dir, Message: "no rule files found in directory"}
	}

	var defs []*checks.Definition
	for _, path := range files {
		loaded, err := l.LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		defs = append(defs, loaded...)
	}

	if err := checkUniqueIDs(defs); err != nil {
		return nil, err
	}
	return defs, nil
}

// Parse decodes a rule document. JSON documents are accepted as YAML.
func (l *Loader) Parse(data []byte, source string) ([]*checks.Definition, error) {
	if !utf8.Valid(data) {
		return nil, &checks.RuleDocumentError{Source: source, Message: "document contains invalid UTF-8 encoding"}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &checks.RuleDocumentError{Source: source, Message: "document is empty"}
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, &checks.RuleDocumentError{Source: source, Message: "YAML parsing failed", Cause: err}
	}

	collection, err := findCollection(&root, source)
	if err != nil {
		return nil, err
	}

	defs := make([]*checks.Definition, 0, len(collection.Content))
	for i, item := range collection.Content {
		def, err := decodeEntry(item, i+1, source)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}

	if err := checkUniqueIDs(defs); err != nil {
		return nil, err
	}
	return defs, nil
}

// findCollection locates the sequence node holding the check entries.
func findCollection(root *yaml.Node, source string) (*yaml.Node, error) {
	doc := root
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		doc = doc.Content[0]
	}
	if doc.Kind != yaml.MappingNode {
		return nil, &checks.RuleDocumentError{Source: source, Message: "top level must be a mapping"}
	}

	for i := 0; i+1 < len(doc.Content); i += 2 {
		key, value := doc.Content[i], doc.Content[i+1]
		for _, name := range collectionKeys {
			if key.Value != name {
				continue
			}
			if value.Kind != yaml.SequenceNode {
				return nil, &checks.RuleDocumentError{
					Source:  source,
					Line:    value.Line,
					Message: fmt.Sprintf("%q must be a list", name),
				}
			}
			return value, nil
		}
	}

	return nil, &checks.RuleDocumentError{
		Source:  source,
		Message: fmt.Sprintf("missing top-level %q collection", collectionKeys[0]),
	}
}

// decodeEntry converts one collection element into a Definition.
func decodeEntry(node *yaml.Node, index int, source string) (*checks.Definition, error) {
	var raw rawEntry
	if err := node.Decode(&raw); err != nil {
		return nil, &checks.RuleDocumentError{
			Source: source, Index: index, Line: node.Line,
			Message: "invalid check entry", Cause: err,
		}
	}

	if strings.TrimSpace(raw.Query) == "" {
		return nil, &checks.RuleDocumentError{
			Source: source, Index: index, Line: node.Line,
			Message: "missing query",
		}
	}
	if raw.Result.Multi == nil && raw.Result.None == nil {
		return nil, &checks.RuleDocumentError{
			Source: source, Index: index, Line: node.Line,
			Message: "missing both result.multi and result.none",
		}
	}

	def := &checks.Definition{
		ID:          strings.TrimSpace(raw.ID),
		Description: raw.Description,
		Query:       raw.Query,
		Fix:         raw.Fix,
		Source:      source,
	}
	if def.ID == "" {
		def.ID = fmt.Sprintf("check-%d", index)
	}
	if raw.Result.Multi != nil {
		def.Multi = *raw.Result.Multi
	}
	if raw.Result.None != nil {
		def.None = *raw.Result.None
	}
	return def, nil
}

func checkUniqueIDs(defs []*checks.Definition) error {
	seen := make(map[string]*checks.Definition, len(defs))
	for i, def := range defs {
		if prev, ok := seen[def.ID]; ok {
			return &checks.RuleDocumentError{
				Source:  def.Source,
				Index:   i + 1,
				Message: fmt.Sprintf("duplicate check id %q (first defined in %s)", def.ID, prev.Source),
			}
		}
		seen[def.ID] = def
	}
	return nil
}

// collectFiles returns rule file paths under dir sorted lexically.
func (l *Loader) collectFiles(dir string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if l.config.SkipHidden && strings.HasPrefix(d.Name(), ".") && path != dir {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() || !l.hasValidExtension(path) {
			return nil
		}

		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, &checks.RuleDocumentError{Source: dir, Message: "failed to walk directory", Cause: err}
	}

	sort.Strings(files)
	return files, nil
}

// hasValidExtension checks if the file has an accepted rule file extension.
func (l *Loader) hasValidExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, valid := range l.config.AllowedExtensions {
		if ext == strings.ToLower(valid) {
			return true
		}
	}
	return false
}

// IsRuleFile reports whether path has one of the loader's rule file extensions.
func (l *Loader) IsRuleFile(path string) bool {
	return l.hasValidExtension(path)
}

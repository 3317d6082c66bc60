package deploy

import (
	"path"
	"regexp"
	"strings"

	"github.com/modcollect/modcollect/pkg/logging"
	"github.com/rs/zerolog"
)

// Category is where a classified file is routed.
type Category int

const (
	// CategorySkip excludes the file from deployment.
	CategorySkip Category = iota
	// CategoryGameRoot routes the file relative to the game root.
	CategoryGameRoot
	// CategoryData routes the file relative to the game's data tree.
	CategoryData
)

// Classification is the result of classifying one staged file. Dest is the
// destination-relative path for game-root and data files; Reason explains
// skips.
type Classification struct {
	Category Category
	Dest     string
	Reason   string
}

// Plugin and archive extensions recognized as game content.
var pluginExtensions = map[string]bool{
	".esm": true,
	".esp": true,
	".esl": true,
	".ba2": true,
}

// Asset directories that belong under the data tree.
var assetDirs = map[string]bool{
	"geometries":    true,
	"textures":      true,
	"meshes":        true,
	"scripts":       true,
	"sound":         true,
	"materials":     true,
	"interface":     true,
	"video":         true,
	"terrain":       true,
	"strings":       true,
	"music":         true,
	"shadersfx":     true,
	"vis":           true,
	"seq":           true,
	"lodsettings":   true,
	"grass":         true,
	"facegen":       true,
	"dialogueviews": true,
	"source":        true,
}

// Names skipped during classification: packaging metadata, our own state
// and output files, manager droppings.
var skipNames = map[string]bool{
	"fomod":                      true,
	".modcollect-state.json":     true,
	"load-order.txt":             true,
	"plugins.txt":                true,
	"__folder_managed_by_vortex": true,
}

// Document, image and log extensions that are never game content. Plugin
// extensions always win over this list.
var skipExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".pdf":  true,
	".log":  true,
}

var (
	// numberedOptionRE matches installer option wrapper folders such as
	// "00 - Base" or "01_Main Files".
	numberedOptionRE = regexp.MustCompile(`^\d{2,3}\s*[-_]\s*`)

	// versionedLoaderRE matches versioned script-extender directories such
	// as "sfse_0_2_18".
	versionedLoaderRE = regexp.MustCompile(`(?i)^sfse_[\d_]+$`)
)

// loaderDirName is the script-extender plugin subdirectory recognized at
// any depth.
const loaderDirName = "sfse"

// Classifier maps staged relative paths onto destination categories for a
// target game domain. Classification is a pure function of the path; file
// content is never inspected.
type Classifier struct {
	gameDomain string
	skipNames  map[string]bool
	assetDirs  map[string]bool
	logger     zerolog.Logger
}

// ClassifierOption customizes a Classifier.
type ClassifierOption func(*Classifier)

// WithSkipNames adds extra names to the skip list.
func WithSkipNames(names []string) ClassifierOption {
	return func(c *Classifier) {
		for _, n := range names {
			c.skipNames[strings.ToLower(n)] = true
		}
	}
}

// WithAssetDirs adds extra data-tree asset directory names.
func WithAssetDirs(dirs []string) ClassifierOption {
	return func(c *Classifier) {
		for _, d := range dirs {
			c.assetDirs[strings.ToLower(d)] = true
		}
	}
}

// NewClassifier creates a classifier for a game domain.
func NewClassifier(gameDomain string, opts ...ClassifierOption) *Classifier {
	c := &Classifier{
		gameDomain: strings.ToLower(gameDomain),
		skipNames:  make(map[string]bool, len(skipNames)),
		assetDirs:  make(map[string]bool, len(assetDirs)),
		logger:     logging.GetLogger("deploy.classify"),
	}
	for k := range skipNames {
		c.skipNames[k] = true
	}
	for k := range assetDirs {
		c.assetDirs[k] = true
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// pathInfo is the pre-computed view of a relative path the rule chain
// operates on.
type pathInfo struct {
	parts      []string
	lowerParts []string
	name       string
	nameLower  string
	ext        string
}

// classifyRule is one predicate in the prioritized chain. It returns the
// classification and true when it decides the file; false passes the file
// to the next rule.
type classifyRule struct {
	name  string
	apply func(c *Classifier, p pathInfo) (Classification, bool)
}

// chain is the ordered rule list. More specific structural signals must be
// checked before the generic fallback or files are misplaced; the order
// mirrors the documented classification precedence.
var chain = []classifyRule{
	{"skip-metadata", ruleSkipMetadata},
	{"loader-root-file", ruleLoaderRootFile},
	{"loader-plugin-dir", ruleLoaderPluginDir},
	{"explicit-data-prefix", ruleExplicitDataPrefix},
	{"loose-plugin", ruleLoosePlugin},
	{"asset-dir", ruleAssetDir},
	{"root-library-or-config", ruleRootLibraryOrConfig},
	{"data-fallback", ruleDataFallback},
}

// Classify maps one staged relative path to its destination. Wrapper
// segments (numbered option folders, versioned loader directories) are
// stripped repeatedly before the rule chain runs; a fully stripped path is
// skipped as empty.
func (c *Classifier) Classify(relPath string) Classification {
	parts := splitPath(relPath)

	for len(parts) > 0 && (numberedOptionRE.MatchString(parts[0]) || versionedLoaderRE.MatchString(parts[0])) {
		parts = parts[1:]
	}
	if len(parts) == 0 {
		return Classification{Category: CategorySkip, Reason: "empty after stripping option folders"}
	}

	info := pathInfo{
		parts:      parts,
		lowerParts: lowerAll(parts),
		name:       parts[len(parts)-1],
	}
	info.nameLower = strings.ToLower(info.name)
	info.ext = strings.ToLower(path.Ext(info.name))

	for _, rule := range chain {
		if result, ok := rule.apply(c, info); ok {
			c.logger.Trace().
				Str("path", relPath).
				Str("rule", rule.name).
				Str("dest", result.Dest).
				Msg("Classified file")
			return result
		}
	}

	// The fallback rule always decides, so this is unreachable.
	return Classification{Category: CategorySkip, Reason: "unclassified"}
}

func ruleSkipMetadata(c *Classifier, p pathInfo) (Classification, bool) {
	skip := func(reason string) (Classification, bool) {
		return Classification{Category: CategorySkip, Reason: reason}, true
	}

	if c.skipNames[p.nameLower] || strings.HasPrefix(p.nameLower, "readme") {
		return skip("metadata/docs")
	}
	if skipExtensions[p.ext] && !pluginExtensions[p.ext] {
		return skip("document extension")
	}
	for _, part := range p.lowerParts {
		if c.skipNames[part] {
			return skip("inside skipped directory")
		}
	}
	return Classification{}, false
}

func ruleLoaderRootFile(c *Classifier, p pathInfo) (Classification, bool) {
	if strings.HasPrefix(p.nameLower, loaderDirName+"_") && (p.ext == ".exe" || p.ext == ".dll") {
		return Classification{Category: CategoryGameRoot, Dest: p.name}, true
	}
	return Classification{}, false
}

func ruleLoaderPluginDir(c *Classifier, p pathInfo) (Classification, bool) {
	for i, part := range p.lowerParts {
		if part == loaderDirName {
			// A leading data-root segment is redundant: the path from
			// the loader directory onward is already data-relative.
			return Classification{
				Category: CategoryData,
				Dest:     joinPath(p.parts[i:]),
			}, true
		}
	}
	return Classification{}, false
}

func ruleExplicitDataPrefix(c *Classifier, p pathInfo) (Classification, bool) {
	if p.lowerParts[0] == "data" && len(p.parts) > 1 {
		return Classification{Category: CategoryData, Dest: joinPath(p.parts[1:])}, true
	}
	return Classification{}, false
}

func ruleLoosePlugin(c *Classifier, p pathInfo) (Classification, bool) {
	if len(p.parts) == 1 && pluginExtensions[p.ext] {
		return Classification{Category: CategoryData, Dest: p.name}, true
	}
	return Classification{}, false
}

func ruleAssetDir(c *Classifier, p pathInfo) (Classification, bool) {
	for i, part := range p.lowerParts {
		if c.assetDirs[part] {
			return Classification{Category: CategoryData, Dest: joinPath(p.parts[i:])}, true
		}
	}
	return Classification{}, false
}

func ruleRootLibraryOrConfig(c *Classifier, p pathInfo) (Classification, bool) {
	if len(p.parts) == 1 && (p.ext == ".dll" || p.ext == ".ini") {
		return Classification{Category: CategoryGameRoot, Dest: p.name}, true
	}
	return Classification{}, false
}

// ruleDataFallback routes anything not decided earlier into the data tree
// unchanged. Nothing is silently dropped past this point.
func ruleDataFallback(c *Classifier, p pathInfo) (Classification, bool) {
	return Classification{Category: CategoryData, Dest: joinPath(p.parts)}, true
}

func splitPath(p string) []string {
	cleaned := strings.Trim(path.Clean(strings.ReplaceAll(p, "\\", "/")), "/")
	if cleaned == "" || cleaned == "." {
		return nil
	}
	return strings.Split(cleaned, "/")
}

func joinPath(parts []string) string {
	return strings.Join(parts, "/")
}

func lowerAll(parts []string) []string {
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = strings.ToLower(p)
	}
	return out
}

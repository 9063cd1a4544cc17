// File: internal/config/layers.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/codewarden/warden-cli/api/schemas"
	"github.com/codewarden/warden-cli/internal/observability"
)

// Layer is one configuration source. Pointer fields distinguish "unset"
// from an explicit zero value, so a layer only overrides what it actually
// defines. Scalars overwrite layer by layer; slice fields replace the
// lower layer's value wholesale, never union with it.
type Layer struct {
	MinSeverity    *schemas.Severity        `yaml:"min_severity,omitempty"`
	FailOnSeverity *schemas.Severity        `yaml:"fail_on_severity,omitempty"`
	DisabledRules  *[]string                `yaml:"disabled_rules,omitempty"`
	CustomRules    *[]schemas.CustomRuleDef `yaml:"custom_rules,omitempty"`
	Parallel       *bool                    `yaml:"parallel,omitempty"`
	MaxFiles       *int                     `yaml:"max_files,omitempty"`
	MaxConcurrency *int                     `yaml:"max_concurrency,omitempty"`
	Categories     *[]schemas.Category      `yaml:"categories,omitempty"`
	Deep           *bool                    `yaml:"deep,omitempty"`

	// Ambient sections merge key-wise onto the accumulated configuration,
	// so a layer that sets logging.level leaves logging.format alone.
	Logging map[string]any `yaml:"logging,omitempty"`
	History map[string]any `yaml:"history,omitempty"`
	Store   map[string]any `yaml:"store,omitempty"`
	GitHub  map[string]any `yaml:"github,omitempty"`
	Assist  map[string]any `yaml:"assist,omitempty"`
	Watch   map[string]any `yaml:"watch,omitempty"`

	unknown []string
}

// Setter helpers for building override layers from CLI flags.

func (l *Layer) SetMinSeverity(s schemas.Severity)    { l.MinSeverity = &s }
func (l *Layer) SetFailOnSeverity(s schemas.Severity) { l.FailOnSeverity = &s }
func (l *Layer) SetDisabledRules(ids []string)        { l.DisabledRules = &ids }
func (l *Layer) SetCategories(cs []schemas.Category)  { l.Categories = &cs }
func (l *Layer) SetParallel(b bool)                   { l.Parallel = &b }
func (l *Layer) SetMaxFiles(n int)                    { l.MaxFiles = &n }
func (l *Layer) SetMaxConcurrency(n int)              { l.MaxConcurrency = &n }
func (l *Layer) SetDeep(b bool)                       { l.Deep = &b }

// LoadOptions names the inputs of a Load call.
type LoadOptions struct {
	// Root is the audit root; the project layer is read from
	// Root/.warden.yaml unless ProjectPath overrides it.
	Root string
	// GlobalPath overrides the user-scoped file location, for tests.
	GlobalPath string
	// ProjectPath overrides the project-scoped file location, for tests.
	ProjectPath string
	// Overrides is the highest-precedence layer, built from CLI flags.
	Overrides Layer
	Logger    *zap.Logger
}

// Load merges the four configuration layers: built-in defaults, the global
// user file, the project file, and the caller's overrides. Malformed or
// invalid file content never fails the load; the offending layer is
// discarded wholesale with one logged diagnostic per failed field, and the
// merge continues with the remaining layers.
func Load(opts LoadOptions) *Config {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	log := logger.Named("config")

	cfg := Default()

	globalPath := opts.GlobalPath
	if globalPath == "" {
		p, err := GlobalConfigPath()
		if err != nil {
			log.Debug("skipping global config layer", zap.Error(err))
		} else {
			globalPath = p
		}
	}
	projectPath := opts.ProjectPath
	if projectPath == "" && opts.Root != "" {
		projectPath = filepath.Join(opts.Root, ProjectConfigName)
	}

	for _, src := range []struct{ name, path string }{
		{"global", globalPath},
		{"project", projectPath},
	} {
		if src.path == "" {
			continue
		}
		layer, ok := loadFileLayer(src.path, log)
		if ok {
			log.Debug("applying config layer",
				zap.String("layer", src.name), zap.String("file", src.path))
			cfg.apply(layer, log)
		}
	}

	if errs := validateLayer(opts.Overrides); len(errs) > 0 {
		for _, fe := range errs {
			log.Warn("invalid override value",
				zap.String("field", fe.field), zap.String("reason", fe.reason))
		}
		log.Warn("override layer discarded", zap.Int("invalid_fields", len(errs)))
	} else {
		cfg.apply(opts.Overrides, log)
	}

	bindEnv(cfg)
	return cfg
}

// loadFileLayer reads and validates one file-sourced layer. A missing file
// contributes nothing; an unparseable file or any invalid field discards
// the whole layer.
func loadFileLayer(path string, log *zap.Logger) (Layer, bool) {
	if _, err := os.Stat(path); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Debug("config file not accessible", zap.String("file", path), zap.Error(err))
		}
		return Layer{}, false
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		log.Warn("config file unparseable, layer discarded",
			zap.String("file", path), zap.Error(err))
		return Layer{}, false
	}

	layer, errs := extractLayer(v.AllSettings())
	errs = append(errs, validateLayer(layer)...)
	if len(errs) > 0 {
		for _, fe := range errs {
			log.Warn("invalid config field",
				zap.String("file", path),
				zap.String("field", fe.field),
				zap.String("reason", fe.reason))
		}
		log.Warn("config layer discarded",
			zap.String("file", path), zap.Int("invalid_fields", len(errs)))
		return Layer{}, false
	}

	for _, key := range layer.unknown {
		log.Debug("ignoring unknown config key",
			zap.String("file", path), zap.String("key", key))
	}
	return layer, true
}

type fieldError struct {
	field  string
	reason string
}

// extractLayer converts the raw parsed file into a typed Layer, collecting
// one error per field that fails its schema check.
func extractLayer(raw map[string]any) (Layer, []fieldError) {
	var l Layer
	var errs []fieldError

	fail := func(field, reason string) {
		errs = append(errs, fieldError{field: field, reason: reason})
	}

	for key, val := range raw {
		switch key {
		case "min_severity":
			s, err := severityValue(val)
			if err != nil {
				fail(key, err.Error())
				continue
			}
			l.MinSeverity = &s
		case "fail_on_severity":
			s, err := severityValue(val)
			if err != nil {
				fail(key, err.Error())
				continue
			}
			l.FailOnSeverity = &s
		case "disabled_rules":
			ids, err := stringList(val)
			if err != nil {
				fail(key, err.Error())
				continue
			}
			l.DisabledRules = &ids
		case "custom_rules":
			defs, defErrs := customRuleList(val)
			if len(defErrs) > 0 {
				errs = append(errs, defErrs...)
				continue
			}
			l.CustomRules = &defs
		case "parallel":
			b, ok := val.(bool)
			if !ok {
				fail(key, "must be a boolean")
				continue
			}
			l.Parallel = &b
		case "deep":
			b, ok := val.(bool)
			if !ok {
				fail(key, "must be a boolean")
				continue
			}
			l.Deep = &b
		case "max_files":
			n, err := positiveInt(val)
			if err != nil {
				fail(key, err.Error())
				continue
			}
			l.MaxFiles = &n
		case "max_concurrency":
			n, err := positiveInt(val)
			if err != nil {
				fail(key, err.Error())
				continue
			}
			l.MaxConcurrency = &n
		case "categories":
			cats, err := categoryList(val)
			if err != nil {
				fail(key, err.Error())
				continue
			}
			l.Categories = &cats
		case "logging", "history", "store", "github", "assist", "watch":
			section, ok := val.(map[string]any)
			if !ok {
				fail(key, "must be a mapping")
				continue
			}
			if err := checkSection(key, section); err != nil {
				fail(key, err.Error())
				continue
			}
			switch key {
			case "logging":
				l.Logging = section
			case "history":
				l.History = section
			case "store":
				l.Store = section
			case "github":
				l.GitHub = section
			case "assist":
				l.Assist = section
			case "watch":
				l.Watch = section
			}
		default:
			l.unknown = append(l.unknown, key)
		}
	}
	return l, errs
}

// validateLayer runs the semantic checks shared by file layers and typed
// override layers.
func validateLayer(l Layer) []fieldError {
	var errs []fieldError
	if l.MinSeverity != nil && !l.MinSeverity.Valid() {
		errs = append(errs, fieldError{"min_severity", fmt.Sprintf("unknown severity %q", *l.MinSeverity)})
	}
	if l.FailOnSeverity != nil && !l.FailOnSeverity.Valid() {
		errs = append(errs, fieldError{"fail_on_severity", fmt.Sprintf("unknown severity %q", *l.FailOnSeverity)})
	}
	if l.DisabledRules != nil {
		for _, id := range *l.DisabledRules {
			if id == "" {
				errs = append(errs, fieldError{"disabled_rules", "entries must be non-empty strings"})
				break
			}
		}
	}
	if l.MaxFiles != nil && *l.MaxFiles <= 0 {
		errs = append(errs, fieldError{"max_files", "must be a positive number"})
	}
	if l.MaxConcurrency != nil && *l.MaxConcurrency <= 0 {
		errs = append(errs, fieldError{"max_concurrency", "must be a positive number"})
	}
	if l.Categories != nil {
		for _, c := range *l.Categories {
			if !c.Valid() {
				errs = append(errs, fieldError{"categories", fmt.Sprintf("unknown category %q", c)})
			}
		}
	}
	return errs
}

// apply merges one validated layer onto the configuration.
func (c *Config) apply(l Layer, log *zap.Logger) {
	if l.MinSeverity != nil {
		c.Engine.MinSeverity = *l.MinSeverity
	}
	if l.FailOnSeverity != nil {
		c.Engine.FailOnSeverity = *l.FailOnSeverity
	}
	if l.DisabledRules != nil {
		c.Engine.DisabledRules = append([]string(nil), (*l.DisabledRules)...)
	}
	if l.CustomRules != nil {
		c.Engine.CustomRules = append([]schemas.CustomRuleDef(nil), (*l.CustomRules)...)
	}
	if l.Parallel != nil {
		c.Engine.Parallel = *l.Parallel
	}
	if l.MaxFiles != nil {
		c.Engine.MaxFiles = *l.MaxFiles
	}
	if l.MaxConcurrency != nil {
		c.Engine.MaxConcurrency = *l.MaxConcurrency
	}
	if l.Categories != nil {
		c.Engine.Categories = append([]schemas.Category(nil), (*l.Categories)...)
	}
	if l.Deep != nil {
		c.Engine.Deep = *l.Deep
	}

	sections := []struct {
		name   string
		source map[string]any
		target any
	}{
		{"logging", l.Logging, &c.Logging},
		{"history", l.History, &c.History},
		{"store", l.Store, &c.Store},
		{"github", l.GitHub, &c.GitHub},
		{"assist", l.Assist, &c.Assist},
		{"watch", l.Watch, &c.Watch},
	}
	for _, s := range sections {
		if s.source == nil {
			continue
		}
		if err := decodeSection(s.source, s.target); err != nil {
			log.Warn("skipping unmergeable config section",
				zap.String("section", s.name), zap.Error(err))
		}
	}
}

// bindEnv fills sensitive values from the environment when no layer set them.
func bindEnv(c *Config) {
	if c.GitHub.Token == "" {
		c.GitHub.Token = os.Getenv("WARDEN_GITHUB_TOKEN")
	}
	if c.Assist.APIKey == "" {
		if k := os.Getenv("WARDEN_GEMINI_API_KEY"); k != "" {
			c.Assist.APIKey = k
		} else {
			c.Assist.APIKey = os.Getenv("GEMINI_API_KEY")
		}
	}
	if c.Store.URL == "" {
		c.Store.URL = os.Getenv("WARDEN_DB_URL")
	}
}

// -- Field Conversion Helpers --

func severityValue(val any) (schemas.Severity, error) {
	s, ok := val.(string)
	if !ok {
		return "", errors.New("must be a severity string")
	}
	return schemas.ParseSeverity(s)
}

func stringList(val any) ([]string, error) {
	switch list := val.(type) {
	case []string:
		for _, s := range list {
			if s == "" {
				return nil, errors.New("entries must be non-empty strings")
			}
		}
		return append([]string(nil), list...), nil
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok || s == "" {
				return nil, errors.New("entries must be non-empty strings")
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, errors.New("must be a list of strings")
	}
}

func categoryList(val any) ([]schemas.Category, error) {
	raw, err := stringList(val)
	if err != nil {
		return nil, err
	}
	out := make([]schemas.Category, 0, len(raw))
	for _, s := range raw {
		c, err := schemas.ParseCategory(s)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func positiveInt(val any) (int, error) {
	switch n := val.(type) {
	case int:
		if n > 0 {
			return n, nil
		}
	case int64:
		if n > 0 {
			return int(n), nil
		}
	case uint64:
		if n > 0 {
			return int(n), nil
		}
	case float64:
		if n > 0 && n == float64(int(n)) {
			return int(n), nil
		}
	}
	return 0, errors.New("must be a positive number")
}

func customRuleList(val any) ([]schemas.CustomRuleDef, []fieldError) {
	list, ok := val.([]any)
	if !ok {
		return nil, []fieldError{{"custom_rules", "must be a list"}}
	}
	defs := make([]schemas.CustomRuleDef, 0, len(list))
	var errs []fieldError
	for i, item := range list {
		var def schemas.CustomRuleDef
		if err := decodeSection(item, &def); err != nil {
			errs = append(errs, fieldError{
				field:  fmt.Sprintf("custom_rules[%d]", i),
				reason: err.Error(),
			})
			continue
		}
		defs = append(defs, def)
	}
	return defs, errs
}

// checkSection decodes an ambient section onto a throwaway target so type
// errors are caught while the layer can still be rejected as a whole.
func checkSection(name string, section map[string]any) error {
	var probe any
	switch name {
	case "logging":
		probe = &observability.LoggerConfig{}
	case "history":
		probe = &HistoryConfig{}
	case "store":
		probe = &StoreConfig{}
	case "github":
		probe = &GitHubConfig{}
	case "assist":
		probe = &AssistConfig{}
	case "watch":
		probe = &WatchConfig{}
	default:
		return nil
	}
	return decodeSection(section, probe)
}

func decodeSection(section any, target any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.StringToTimeDurationHookFunc(),
		Result:     target,
	})
	if err != nil {
		return err
	}
	return dec.Decode(section)
}

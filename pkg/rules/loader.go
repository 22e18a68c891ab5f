package rules

import (
	_ "embed"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/arthur-debert/dosort/pkg/errors"
	"github.com/arthur-debert/dosort/pkg/filesystem"
	"github.com/arthur-debert/dosort/pkg/logging"
	"github.com/arthur-debert/dosort/pkg/matchers"
	"github.com/arthur-debert/dosort/pkg/paths"
	"github.com/arthur-debert/dosort/pkg/types"
	"github.com/go-viper/mapstructure/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed embedded/schema.json
var schemaJSON []byte

//go:embed embedded/sample_rules.yaml
var sampleRules []byte

var schemaLoader = gojsonschema.NewBytesLoader(schemaJSON)

// Format is the syntax of a rule document
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFor picks the document format from a file extension. Anything that
// is not .toml is read as YAML.
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

// Template returns the sample rule document written by "dosort init"
func Template() string {
	return string(sampleRules)
}

type rawDocument struct {
	Version int       `mapstructure:"version"`
	BaseDir string    `mapstructure:"base_dir"`
	Rules   []rawRule `mapstructure:"rules"`
}

type rawRule struct {
	Name        string                 `mapstructure:"name"`
	Description string                 `mapstructure:"description"`
	If          map[string]interface{} `mapstructure:"if"`
	Then        rawThen                `mapstructure:"then"`
}

type rawThen struct {
	MoveTo   string   `mapstructure:"move_to"`
	CopyTo   string   `mapstructure:"copy_to"`
	LinkTo   string   `mapstructure:"link_to"`
	RenameTo string   `mapstructure:"rename_to"`
	Rename   string   `mapstructure:"rename"`
	LinkType string   `mapstructure:"link_type"`
	TagsAdd  []string `mapstructure:"tags_add"`
}

// LoadRules reads and validates the rule document at path
func LoadRules(path string) (*Ruleset, error) {
	return LoadRulesFS(filesystem.NewOS(), path)
}

// LoadRulesFS reads and validates the rule document at path from fsys
func LoadRulesFS(fsys types.FS, path string) (*Ruleset, error) {
	logger := logging.GetLogger("rules.loader")

	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigLoad, "cannot read rules file %s", path).
			WithDetail("path", path)
	}

	rs, err := ParseRules(data, FormatFor(path))
	if err != nil {
		if de, ok := err.(*errors.DosortError); ok {
			de.WithDetail("path", path)
		}
		return nil, err
	}
	if abs, err := filepath.Abs(path); err == nil {
		rs.Source = abs
	} else {
		rs.Source = path
	}

	// Relative placements are anchored next to the rule document unless it
	// names its own base.
	docDir := filepath.Dir(rs.Source)
	switch {
	case rs.BaseDir == "":
		rs.BaseDir = docDir
	case !filepath.IsAbs(rs.BaseDir):
		rs.BaseDir = filepath.Join(docDir, rs.BaseDir)
	}

	logger.Info().
		Str("path", rs.Source).
		Str("baseDir", rs.BaseDir).
		Int("rules", len(rs.Rules)).
		Msg("Loaded rules")
	return rs, nil
}

// ParseRules parses a rule document held in memory
func ParseRules(data []byte, format Format) (*Ruleset, error) {
	doc, err := decodeDocument(data, format)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigParse, "cannot parse %s rules", format)
	}

	if err := validateSchema(doc); err != nil {
		return nil, err
	}

	var raw rawDocument
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &raw,
		WeaklyTypedInput: false,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "cannot build rules decoder")
	}
	if err := decoder.Decode(doc); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigValid, "invalid rules document")
	}

	var order [][]string
	if format != FormatTOML {
		order = yamlConditionOrder(data)
	}

	rs := &Ruleset{
		Version: raw.Version,
		BaseDir: paths.ExpandHome(raw.BaseDir),
		Rules:   make([]Rule, 0, len(raw.Rules)),
	}
	var problems []string
	for i, r := range raw.Rules {
		var keys []string
		if i < len(order) {
			keys = order[i]
		}
		rule, errs := convertRule(r, keys)
		for _, e := range errs {
			problems = append(problems, fmt.Sprintf("rule %d (%s): %s", i+1, r.Name, e))
		}
		rs.Rules = append(rs.Rules, rule)
	}
	if len(problems) > 0 {
		return nil, errors.Newf(errors.ErrConfigValid, "invalid rules: %s", strings.Join(problems, "; ")).
			WithDetail("errors", problems)
	}
	return rs, nil
}

func decodeDocument(data []byte, format Format) (map[string]interface{}, error) {
	var doc map[string]interface{}
	switch format {
	case FormatTOML:
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
	default:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
	}
	if doc == nil {
		doc = map[string]interface{}{}
	}
	normalized, _ := normalize(doc).(map[string]interface{})
	return normalized, nil
}

// normalize turns decoder-specific values into plain JSON-like values so
// the schema validator and the matchers see one shape for both formats.
func normalize(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[k] = normalize(item)
		}
		return out
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[fmt.Sprint(k)] = normalize(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = normalize(item)
		}
		return out
	case toml.LocalDate:
		return val.String()
	case toml.LocalDateTime:
		return val.String()
	case time.Time:
		// yaml decodes an unquoted 2023-06-04 as midnight UTC
		if val.Equal(val.Truncate(24*time.Hour)) && val.Location() == time.UTC {
			return val.Format(matchers.DateLayout)
		}
		return val.Format(time.RFC3339)
	}
	return v
}

func validateSchema(doc map[string]interface{}) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return errors.Wrap(err, errors.ErrConfigValid, "cannot validate rules document")
	}
	if result.Valid() {
		return nil
	}
	var errs []string
	for _, desc := range result.Errors() {
		errs = append(errs, desc.String())
	}
	return errors.Newf(errors.ErrConfigValid, "rules document does not match schema: %s", strings.Join(errs, "; ")).
		WithDetail("errors", errs)
}

func convertRule(r rawRule, keyOrder []string) (Rule, []string) {
	rule := Rule{Name: r.Name}
	var problems []string

	if len(keyOrder) != len(r.If) {
		keyOrder = make([]string, 0, len(r.If))
		for k := range r.If {
			keyOrder = append(keyOrder, k)
		}
		sort.Strings(keyOrder)
	}
	for _, key := range keyOrder {
		value, ok := r.If[key]
		if !ok {
			continue
		}
		if err := matchers.ValidateValue(key, value); err != nil {
			problems = append(problems, err.Error())
			continue
		}
		rule.Condition = append(rule.Condition, types.Predicate{Key: key, Value: value})
	}

	action, err := convertAction(r.Then)
	if err != nil {
		problems = append(problems, err.Error())
	}
	rule.Action = action
	return rule, problems
}

func convertAction(t rawThen) (Action, error) {
	tags := Tagging{Tags: t.TagsAdd}

	var placements []string
	for name, value := range map[string]string{
		"move_to":   t.MoveTo,
		"copy_to":   t.CopyTo,
		"link_to":   t.LinkTo,
		"rename_to": t.RenameTo,
	} {
		if value != "" {
			placements = append(placements, name)
		}
	}
	if len(placements) > 1 {
		sort.Strings(placements)
		return nil, fmt.Errorf("only one of move_to, copy_to, link_to, rename_to is allowed, got %s",
			strings.Join(placements, ", "))
	}
	if t.Rename != "" && t.RenameTo != "" {
		return nil, fmt.Errorf("rename cannot be combined with rename_to")
	}
	if t.Rename != "" && len(placements) == 0 {
		return nil, fmt.Errorf("rename needs move_to, copy_to or link_to")
	}
	if t.LinkType != "" && t.LinkTo == "" {
		return nil, fmt.Errorf("link_type is only valid with link_to")
	}

	switch {
	case t.MoveTo != "":
		return MoveAction{Dir: t.MoveTo, Rename: t.Rename, Tagging: tags}, nil
	case t.CopyTo != "":
		return CopyAction{Dir: t.CopyTo, Rename: t.Rename, Tagging: tags}, nil
	case t.LinkTo != "":
		linkType := LinkType(t.LinkType)
		if linkType == "" {
			linkType = LinkHard
		}
		return LinkAction{Dir: t.LinkTo, Rename: t.Rename, LinkType: linkType, Tagging: tags}, nil
	case t.RenameTo != "":
		return RenameAction{Name: t.RenameTo, Tagging: tags}, nil
	}
	return TagOnly{Tagging: tags}, nil
}

// yamlConditionOrder returns the "if" keys of every rule in document order
func yamlConditionOrder(data []byte) [][]string {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil
	}
	doc := &root
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		doc = doc.Content[0]
	}
	rulesNode := mappingValue(doc, "rules")
	if rulesNode == nil || rulesNode.Kind != yaml.SequenceNode {
		return nil
	}

	order := make([][]string, len(rulesNode.Content))
	for i, item := range rulesNode.Content {
		cond := mappingValue(item, "if")
		if cond == nil || cond.Kind != yaml.MappingNode {
			continue
		}
		for j := 0; j+1 < len(cond.Content); j += 2 {
			order[i] = append(order[i], cond.Content[j].Value)
		}
	}
	return order
}

func mappingValue(node *yaml.Node, key string) *yaml.Node {
	if node != nil && node.Kind == yaml.AliasNode {
		node = node.Alias
	}
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			value := node.Content[i+1]
			if value.Kind == yaml.AliasNode {
				value = value.Alias
			}
			return value
		}
	}
	return nil
}

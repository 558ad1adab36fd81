package route

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// Manifest is the materialized route table exported by the host application.
type Manifest struct {
	// Config is nil when the manifest does not carry its own layout.
	Config   *Config
	Entities map[string]*EntityModel
	Routes   []Route
}

const manifestSchemaURL = "https://grape2openapi.local/manifest.schema.json"

// manifestSchema is the input contract: a route must always carry a method
// and a path. Everything else is declarative metadata that degrades gracefully.
const manifestSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["routes"],
  "properties": {
    "config": {
      "type": "object",
      "properties": {
        "apiPrefix": {"type": "string"},
        "apiVersion": {"type": "string"}
      }
    },
    "entities": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "attributes": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["name"],
              "properties": {"name": {"type": "string", "minLength": 1}}
            }
          }
        }
      }
    },
    "routes": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["method", "path"],
        "properties": {
          "method": {"type": "string", "minLength": 1},
          "path": {"type": "string", "minLength": 1},
          "tags": {"type": "array", "items": {"type": "string"}},
          "params": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["name"],
              "properties": {"name": {"type": "string", "minLength": 1}}
            }
          }
        }
      }
    }
  }
}`

// ParseManifest decodes a YAML or JSON manifest. location is used for error
// reporting only.
func ParseManifest(data []byte, location string) (*Manifest, error) {
	if err := validateManifest(data, location); err != nil {
		return nil, err
	}

	var file manifestFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, &ManifestError{Code: ParseError, Message: fmt.Sprintf("parse manifest: %v", err), Location: location, Cause: err}
	}
	return file.build(), nil
}

func validateManifest(data []byte, location string) error {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return &ManifestError{Code: ParseError, Message: fmt.Sprintf("parse manifest: %v", err), Location: location, Cause: err}
	}
	// jsonschema expects JSON-decoded values.
	encoded, err := json.Marshal(raw)
	if err != nil {
		return &ManifestError{Code: ParseError, Message: fmt.Sprintf("parse manifest: %v", err), Location: location, Cause: err}
	}
	var doc any
	if err := json.Unmarshal(encoded, &doc); err != nil {
		return &ManifestError{Code: ParseError, Message: fmt.Sprintf("parse manifest: %v", err), Location: location, Cause: err}
	}

	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft7
	if err := compiler.AddResource(manifestSchemaURL, strings.NewReader(manifestSchema)); err != nil {
		return fmt.Errorf("manifest schema: %w", err)
	}
	schema, err := compiler.Compile(manifestSchemaURL)
	if err != nil {
		return fmt.Errorf("manifest schema: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		merr := &ManifestError{Code: ValidationError, Message: fmt.Sprintf("invalid manifest: %v", err), Location: location, Cause: err}
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			merr.JSONPointer = deepestInstanceLocation(ve)
		}
		return merr
	}
	return nil
}

func deepestInstanceLocation(ve *jsonschema.ValidationError) string {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return ve.InstanceLocation
}

type manifestFile struct {
	Config   *configDecl  `yaml:"config"`
	Entities []entityDecl `yaml:"entities"`
	Routes   []routeDecl  `yaml:"routes"`
}

type configDecl struct {
	APIPrefix  string `yaml:"apiPrefix"`
	APIVersion string `yaml:"apiVersion"`
}

type entityDecl struct {
	Name       string          `yaml:"name"`
	Attributes []attributeDecl `yaml:"attributes"`
}

type attributeDecl struct {
	Name    string   `yaml:"name"`
	As      string   `yaml:"as"`
	Type    typeList `yaml:"type"`
	Format  string   `yaml:"format"`
	Desc    string   `yaml:"desc"`
	Default any      `yaml:"default"`
	Example any      `yaml:"example"`
	IsArray bool     `yaml:"isArray"`
	Using   string   `yaml:"using"`
}

type routeDecl struct {
	Method      string           `yaml:"method"`
	Path        string           `yaml:"path"`
	Description string           `yaml:"description"`
	Detail      *detailDecl      `yaml:"detail"`
	Tags        []string         `yaml:"tags"`
	Params      []paramDecl      `yaml:"params"`
	Validations []validationDecl `yaml:"validations"`
	Success     successDecl      `yaml:"success"`
	Failure     []failureDecl    `yaml:"failure"`
}

type detailDecl struct {
	Description string `yaml:"description"`
	Detail      string `yaml:"detail"`
}

type paramDecl struct {
	Name          string             `yaml:"name"`
	Type          typeList           `yaml:"type"`
	Desc          string             `yaml:"desc"`
	Required      bool               `yaml:"required"`
	Default       any                `yaml:"default"`
	Values        valuesDecl         `yaml:"values"`
	Documentation *documentationDecl `yaml:"documentation"`
}

type documentationDecl struct {
	Desc    string `yaml:"desc"`
	Example any    `yaml:"example"`
	Format  string `yaml:"format"`
	IsArray bool   `yaml:"isArray"`
}

type validationDecl struct {
	Attributes []string `yaml:"attributes"`
	Validator  string   `yaml:"validator"`
	Options    string   `yaml:"options"`
}

// typeList accepts `type: String` as well as `type: [Integer, String]`.
type typeList []string

func (t *typeList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var s string
		if err := value.Decode(&s); err != nil {
			return err
		}
		if s != "" {
			*t = typeList{s}
		}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := value.Decode(&list); err != nil {
			return err
		}
		*t = list
		return nil
	default:
		return fmt.Errorf("line %d: type must be a string or a list of strings", value.Line)
	}
}

// marker renders the list in the single-string form params carry: a lone
// type as is, a union as "[A, B]".
func (t typeList) marker() string {
	switch len(t) {
	case 0:
		return ""
	case 1:
		return t[0]
	default:
		return "[" + strings.Join(t, ", ") + "]"
	}
}

// members splits a quoted "[A, B]" union into its member types.
func (t typeList) members() []string {
	if len(t) != 1 {
		return []string(t)
	}
	s := strings.TrimSpace(t[0])
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") || !strings.Contains(s, ",") {
		return []string(t)
	}
	var out []string
	for _, part := range strings.Split(s[1:len(s)-1], ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// valuesDecl accepts an enum list or a {min, max} range.
type valuesDecl struct {
	List  []any
	Range *ValueRange
}

func (v *valuesDecl) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		list := make([]any, 0, len(value.Content))
		if err := value.Decode(&list); err != nil {
			return err
		}
		if list == nil {
			list = []any{}
		}
		v.List = list
		return nil
	case yaml.MappingNode:
		var r struct {
			Min float64 `yaml:"min"`
			Max float64 `yaml:"max"`
		}
		if err := value.Decode(&r); err != nil {
			return err
		}
		v.Range = &ValueRange{Min: r.Min, Max: r.Max}
		return nil
	default:
		return fmt.Errorf("line %d: values must be a list or a {min, max} range", value.Line)
	}
}

// successDecl mirrors the three accepted shapes of `success`: a class name,
// a {model, code, message} hash, or a list of either.
type successDecl struct {
	set     bool
	model   string
	meta    bool
	code    int
	message string
	isArray bool
	items   []successDecl
	list    bool
}

func (s *successDecl) UnmarshalYAML(value *yaml.Node) error {
	s.set = true
	switch value.Kind {
	case yaml.ScalarNode:
		return value.Decode(&s.model)
	case yaml.MappingNode:
		var m struct {
			Model   string `yaml:"model"`
			Code    int    `yaml:"code"`
			Message string `yaml:"message"`
			IsArray bool   `yaml:"isArray"`
		}
		if err := value.Decode(&m); err != nil {
			return err
		}
		s.meta = true
		s.model, s.code, s.message, s.isArray = m.Model, m.Code, m.Message, m.IsArray
		return nil
	case yaml.SequenceNode:
		s.list = true
		return value.Decode(&s.items)
	default:
		return fmt.Errorf("line %d: unsupported success declaration", value.Line)
	}
}

// failureDecl accepts {code, message} or a [code, message] tuple.
type failureDecl struct {
	Code    int
	Message string
}

func (f *failureDecl) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.MappingNode:
		var m struct {
			Code    int    `yaml:"code"`
			Message string `yaml:"message"`
		}
		if err := value.Decode(&m); err != nil {
			return err
		}
		f.Code, f.Message = m.Code, m.Message
		return nil
	case yaml.SequenceNode:
		if len(value.Content) == 0 || len(value.Content) > 2 {
			return fmt.Errorf("line %d: failure tuple must be [code, message]", value.Line)
		}
		if err := value.Content[0].Decode(&f.Code); err != nil {
			return err
		}
		if len(value.Content) == 2 {
			return value.Content[1].Decode(&f.Message)
		}
		return nil
	default:
		return fmt.Errorf("line %d: unsupported failure declaration", value.Line)
	}
}

func (f manifestFile) build() *Manifest {
	m := &Manifest{Entities: make(map[string]*EntityModel, len(f.Entities))}
	if f.Config != nil {
		m.Config = &Config{APIPrefix: strings.TrimSpace(f.Config.APIPrefix), APIVersion: strings.TrimSpace(f.Config.APIVersion)}
	}

	// Entities are allocated first so `using` can point at any of them,
	// including the entity itself.
	for _, ed := range f.Entities {
		name := strings.TrimSpace(ed.Name)
		m.Entities[name] = &EntityModel{Name: name}
	}
	for _, ed := range f.Entities {
		ent := m.Entities[strings.TrimSpace(ed.Name)]
		ent.Exposures = make([]Attribute, 0, len(ed.Attributes))
		for _, ad := range ed.Attributes {
			ent.Exposures = append(ent.Exposures, Attribute{
				Name:    ad.Name,
				As:      ad.As,
				Types:   ad.Type.members(),
				Format:  ad.Format,
				Desc:    ad.Desc,
				Default: ad.Default,
				Example: ad.Example,
				IsArray: ad.IsArray,
				Using:   m.lookup(ad.Using),
			})
		}
	}

	m.Routes = make([]Route, 0, len(f.Routes))
	for _, rd := range f.Routes {
		m.Routes = append(m.Routes, m.buildRoute(rd))
	}
	return m
}

func (m *Manifest) buildRoute(rd routeDecl) Route {
	r := Route{
		Method: strings.ToUpper(strings.TrimSpace(rd.Method)),
		Path:   strings.TrimSpace(rd.Path),
		Settings: Settings{
			Description: rd.Description,
			Tags:        rd.Tags,
		},
		Success: m.buildSuccess(rd.Success),
	}
	if rd.Detail != nil {
		r.Settings.Detail = &DescriptionMeta{Description: rd.Detail.Description, Detail: rd.Detail.Detail}
	}
	for _, pd := range rd.Params {
		p := ParamSpec{
			Name:     pd.Name,
			Type:     pd.Type.marker(),
			Desc:     pd.Desc,
			Required: pd.Required,
			Default:  pd.Default,
			Values:   pd.Values.List,
			Range:    pd.Values.Range,
		}
		if pd.Documentation != nil {
			p.Documentation = Documentation{
				Desc:    pd.Documentation.Desc,
				Example: pd.Documentation.Example,
				Format:  pd.Documentation.Format,
				IsArray: pd.Documentation.IsArray,
			}
		}
		r.Params = append(r.Params, p)
	}
	for _, vd := range rd.Validations {
		r.Validations = append(r.Validations, Validation{Attributes: vd.Attributes, Validator: vd.Validator, Options: vd.Options})
	}
	for _, fd := range rd.Failure {
		r.Failures = append(r.Failures, FailureSpec{Code: fd.Code, Message: fd.Message})
	}
	return r
}

func (m *Manifest) buildSuccess(sd successDecl) SuccessSpec {
	switch {
	case !sd.set:
		return nil
	case sd.list:
		list := make(SuccessList, 0, len(sd.items))
		for _, item := range sd.items {
			if spec := m.buildSuccess(item); spec != nil {
				list = append(list, spec)
			}
		}
		return list
	case sd.meta:
		return EntityWithMeta{Model: m.lookup(sd.model), Code: sd.code, Message: sd.message, IsArray: sd.isArray}
	default:
		model := m.lookup(sd.model)
		if model == nil {
			return nil
		}
		return SingleEntity{Model: model}
	}
}

// lookup resolves a class name to its declared entity, falling back to a
// plain class for names that are not entities.
func (m *Manifest) lookup(name string) Model {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	if ent, ok := m.Entities[name]; ok {
		return ent
	}
	return PlainClass{Name: name}
}

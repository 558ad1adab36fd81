package route

import "strings"

// Route value types handed to the converter pipeline. They are produced by a
// host adapter (see manifest.go) and are never mutated once built.

// WildcardMethod marks framework catch-all routes.
const WildcardMethod = "*"

// RegexpValidator is the validator name carried by regular-expression validations.
const RegexpValidator = "regexp"

type Route struct {
	Method      string
	Path        string // raw pattern, e.g. /api/:version/projects/:id(.:format)
	Params      []ParamSpec
	Validations []Validation
	Success     SuccessSpec // nil when nothing was declared
	Failures    []FailureSpec
	Settings    Settings
}

type ParamSpec struct {
	Name     string
	Type     string // "String", "[String]", "[String, Integer]", "File", ...
	Desc     string
	Required bool
	Default  any
	// Values is nil when no enum was declared; an empty non-nil slice is an
	// explicitly empty enum.
	Values        []any
	Range         *ValueRange
	Documentation Documentation
}

// ValueRange is a declared numeric range (values: 1..20).
type ValueRange struct {
	Min float64
	Max float64
}

type Documentation struct {
	Desc    string
	Example any
	Format  string
	IsArray bool
}

type Validation struct {
	Attributes []string
	Validator  string
	Options    string // regexp literal such as /^[a-z]+$/i
}

// IsRegexp reports whether the validation is a regular-expression validator.
func (v Validation) IsRegexp() bool {
	return strings.EqualFold(strings.TrimSpace(v.Validator), RegexpValidator)
}

// Targets reports whether the validation applies to the named parameter.
func (v Validation) Targets(name string) bool {
	for _, a := range v.Attributes {
		if a == name {
			return true
		}
	}
	return false
}

type Settings struct {
	Description string
	Detail      *DescriptionMeta
	Tags        []string
}

// DescriptionMeta is the nested `desc 'x' do ... end` block of a route.
type DescriptionMeta struct {
	Description string
	Detail      string
}

// Config carries the host API layout used for path normalization and tag
// derivation.
type Config struct {
	APIPrefix  string
	APIVersion string
}

// DefaultConfig mirrors the usual /api/v4 layout.
func DefaultConfig() Config {
	return Config{APIPrefix: "api", APIVersion: "v4"}
}

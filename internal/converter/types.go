package converter

import (
	"strings"

	"github.com/go-openapi/strfmt"
)

type typeMapping struct {
	typ    string
	format string
}

// typeTable maps declared Grape/Ruby type names to OpenAPI type and format.
var typeTable = map[string]typeMapping{
	"String":     {typ: "string"},
	"Symbol":     {typ: "string"},
	"symbol":     {typ: "string"},
	"Integer":    {typ: "integer"},
	"Float":      {typ: "number", format: "float"},
	"BigDecimal": {typ: "number", format: "double"},
	"Numeric":    {typ: "number", format: "double"},
	"Boolean":    {typ: "boolean"},
	"TrueClass":  {typ: "boolean"},
	"FalseClass": {typ: "boolean"},
	"Hash":       {typ: "object"},
	"JSON":       {typ: "object"},
	"Array":      {typ: "array"},
	"DateTime":   {typ: "string", format: "date-time"},
	"Time":       {typ: "string", format: "date-time"},
	"Date":       {typ: "string", format: "date"},

	"Grape::API::Boolean": {typ: "boolean"},

	"File":                                   {typ: "string", format: "binary"},
	"Rack::Multipart::UploadedFile":          {typ: "string", format: "binary"},
	"API::Validations::Types::WorkhorseFile": {typ: "string", format: "binary"},
}

var fileTypes = map[string]struct{}{
	"File":                                   {},
	"Rack::Multipart::UploadedFile":          {},
	"API::Validations::Types::WorkhorseFile": {},
}

// formats OpenAPI defines on top of the strfmt registry.
var openAPIFormats = map[string]struct{}{
	"int32":    {},
	"int64":    {},
	"float":    {},
	"double":   {},
	"byte":     {},
	"binary":   {},
	"password": {},
}

// ResolveType maps a declared type to its OpenAPI type. Unknown types pass
// through unchanged; an empty declaration resolves to "".
func ResolveType(declared string) string {
	declared = strings.TrimSpace(declared)
	if declared == "" {
		return ""
	}
	if m, ok := typeTable[declared]; ok {
		return m.typ
	}
	return declared
}

// ResolveFormat returns the declared format when present, otherwise the
// format implied by the declared type.
func ResolveFormat(format, declared string) string {
	if format = strings.TrimSpace(format); format != "" {
		return format
	}
	return typeTable[strings.TrimSpace(declared)].format
}

// IsFileType reports whether declared is a file-upload marker.
func IsFileType(declared string) bool {
	_, ok := fileTypes[strings.TrimSpace(declared)]
	return ok
}

// KnownFormat reports whether name is an OpenAPI or strfmt registered format.
func KnownFormat(name string) bool {
	if _, ok := openAPIFormats[name]; ok {
		return true
	}
	return strfmt.Default.ContainsName(name)
}

func orString(t string) string {
	if t == "" {
		return "string"
	}
	return t
}

// isUnionType reports the multi-type marker "[A, B]".
func isUnionType(declared string) bool {
	return strings.HasPrefix(declared, "[") && strings.Contains(declared, ",")
}

func unionMembers(declared string) []string {
	inner := strings.TrimSuffix(strings.TrimPrefix(declared, "["), "]")
	parts := strings.Split(inner, ",")
	members := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			members = append(members, p)
		}
	}
	return members
}

// arrayInner unwraps "[T]" and "Array[T]".
func arrayInner(declared string) (string, bool) {
	declared = strings.TrimSpace(declared)
	if !strings.HasSuffix(declared, "]") {
		return "", false
	}
	var inner string
	switch {
	case strings.HasPrefix(declared, "Array["):
		inner = declared[len("Array[") : len(declared)-1]
	case strings.HasPrefix(declared, "["):
		inner = declared[1 : len(declared)-1]
	default:
		return "", false
	}
	if strings.Contains(inner, ",") {
		return "", false
	}
	return strings.TrimSpace(inner), true
}

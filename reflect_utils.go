package goprojection

import (
	"reflect"
	"strings"
)

// ResolveElementName applies the repository-wide rule to resolve a struct
// field's element name in documents.
// Priority: bson tag name > json tag name > field name; "-" disables the field.
func ResolveElementName(sf reflect.StructField) string {
	for _, key := range []string{"bson", "json"} {
		tag, ok := sf.Tag.Lookup(key)
		if !ok {
			continue
		}
		if tag == "-" {
			return "-"
		}
		name := tag
		if i := strings.IndexByte(tag, ','); i >= 0 {
			name = tag[:i]
		}
		if name != "" {
			return name
		}
	}
	return sf.Name
}

package namespace

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/funnyzak/reqstash/pkg/record"
)

// Extension is appended to the method name to form a record file name.
const Extension = ".json"

// Methods lists the supported HTTP methods in display order.
var Methods = []string{"GET", "POST", "PUT", "DELETE"}

var urlPrefixes = []string{"http://", "https://"}

// IsURL reports whether target is a literal destination URL rather than a
// namespace.
func IsURL(target string) bool {
	lower := strings.ToLower(strings.TrimSpace(target))
	for _, prefix := range urlPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// ParseMethod upper-cases m and checks it against Methods.
func ParseMethod(m string) (string, error) {
	upper := strings.ToUpper(strings.TrimSpace(m))
	for _, allowed := range Methods {
		if upper == allowed {
			return upper, nil
		}
	}
	return "", &record.ValidationError{
		Field:  "method",
		Value:  m,
		Reason: "supported methods are " + strings.Join(Methods, ", "),
	}
}

// FileName returns the record file name for method.
func FileName(method string) string {
	return strings.ToUpper(method) + Extension
}

// Segments splits ns on "/" without interpreting the parts.
func Segments(ns string) []string {
	if ns == "" {
		return nil
	}
	return strings.Split(ns, "/")
}

// Dir returns the directory holding every record of ns.
func Dir(root, ns string) string {
	parts := append([]string{root}, Segments(ns)...)
	return filepath.Join(parts...)
}

// Resolve returns the record location for (ns, method). It is pure: the
// filesystem is not consulted and ns is used verbatim as relative segments.
func Resolve(root, ns, method string) string {
	return filepath.Join(Dir(root, ns), FileName(method))
}

// Relative converts a directory under root back into a namespace.
func Relative(root, dir string) (string, error) {
	rel, err := filepath.Rel(root, dir)
	if err != nil {
		return "", err
	}
	if rel == "." {
		return "", nil
	}
	return filepath.ToSlash(rel), nil
}

// Validate rejects namespaces that would address locations outside the
// storage root or collide with one another after path cleaning.
func Validate(ns string) error {
	if strings.TrimSpace(ns) == "" {
		return &record.ValidationError{Field: "namespace", Reason: "cannot be empty"}
	}
	if strings.HasPrefix(ns, "/") || filepath.IsAbs(ns) || filepath.VolumeName(ns) != "" {
		return &record.ValidationError{Field: "namespace", Value: ns, Reason: "must be relative"}
	}
	if strings.Contains(ns, `\`) {
		return &record.ValidationError{Field: "namespace", Value: ns, Reason: "must use '/' as separator"}
	}
	for _, seg := range Segments(ns) {
		switch seg {
		case "":
			return &record.ValidationError{Field: "namespace", Value: ns, Reason: "contains an empty segment"}
		case ".", "..":
			return &record.ValidationError{Field: "namespace", Value: ns, Reason: "contains a relative segment"}
		}
	}
	if path.Clean(ns) != ns {
		return &record.ValidationError{Field: "namespace", Value: ns, Reason: "is not in canonical form"}
	}
	return nil
}

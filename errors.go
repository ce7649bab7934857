package goprojection

import (
	"errors"
	"fmt"
	"strings"

	"github.com/reoring/goprojection/i18n"
)

// Issue codes (exported consts for IDE completion and type safety by convention)
const (
	// CodeFieldNotResolvable reports a field reference the serializer metadata
	// cannot map to a document path.
	CodeFieldNotResolvable = "field_not_resolvable"
	// CodeInvalidProjectionTarget reports an operator applied to a field whose
	// serializer lacks the capability the operator needs.
	CodeInvalidProjectionTarget = "invalid_projection_target"
	// CodeUnknownNode reports a projection value built outside the builder.
	CodeUnknownNode = "unknown_node"
)

// Issue represents a single render failure.
type Issue struct {
	Path    string // Dotted document path resolved so far ("" at the root).
	Code    string // One of the codes listed above.
	Message string
	Cause   error // Optional: underlying error.
	// Params carries structured parameters (e.g., {"member":"Name"}) for i18n
	// and observability.
	Params map[string]any
}

// Issues is a collection of render errors that implements error.
type Issues []Issue

// Error summarizes the first few issues.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	n := len(iss)
	lim := min(n, maxShown)
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		it := iss[i]
		// e.g. field_not_resolvable at address: unknown member "Zip"
		if it.Path == "" {
			fmt.Fprintf(b, "%s: %s", it.Code, it.Message)
		} else {
			fmt.Fprintf(b, "%s at %s: %s", it.Code, it.Path, it.Message)
		}
	}
	if n > lim {
		fmt.Fprintf(b, "; ... (total %d)", n)
	}
	return b.String()
}

// Unwrap exposes the causes so errors.Is reaches collaborator errors.
func (iss Issues) Unwrap() []error {
	var errs []error
	for _, it := range iss {
		if it.Cause != nil {
			errs = append(errs, it.Cause)
		}
	}
	return errs
}

// AsIssues extracts Issues from an error using errors.As internally.
func AsIssues(err error) (Issues, bool) {
	if err == nil {
		return nil, false
	}
	var iss Issues
	if errors.As(err, &iss) {
		return iss, true
	}
	return nil, false
}

// HasCode reports whether err carries an Issue with the given code.
func HasCode(err error, code string) bool {
	iss, ok := AsIssues(err)
	if !ok {
		return false
	}
	for _, it := range iss {
		if it.Code == code {
			return true
		}
	}
	return false
}

// FirstCode returns the code of the first Issue in err, or "" when err does
// not carry Issues.
func FirstCode(err error) string {
	iss, ok := AsIssues(err)
	if !ok || len(iss) == 0 {
		return ""
	}
	return iss[0].Code
}

func fieldNotResolvable(path, member, typ, reason string) Issues {
	return Issues{{
		Path:    path,
		Code:    CodeFieldNotResolvable,
		Message: i18n.T(CodeFieldNotResolvable, map[string]string{"member": member, "reason": reason}),
		Params:  map[string]any{"member": member, "type": typ},
	}}
}

func invalidProjectionTarget(field, expected string) Issues {
	return Issues{{
		Path:    field,
		Code:    CodeInvalidProjectionTarget,
		Message: i18n.T(CodeInvalidProjectionTarget, map[string]string{"field": field, "expected": expected}),
		Params:  map[string]any{"field": field, "expected": expected},
	}}
}

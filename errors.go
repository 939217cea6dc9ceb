package clientflow

import (
	"errors"
	"fmt"
	"strings"
)

// Issue codes (exported consts for IDE completion and type safety by convention)
const (
	// Authoring-time schema defects
	CodeMetaSchema              = "meta_schema"
	CodeRefForbidden            = "ref_forbidden"
	CodeMissingExample          = "missing_example"
	CodeInvalidExample          = "invalid_example"
	CodeIllogicalDefault        = "illogical_default"
	CodeMissingDefault          = "missing_default"
	CodeInvalidDefault          = "invalid_default"
	CodeInvalidProperties       = "invalid_properties"
	CodeNestedDiscriminator     = "nested_discriminator"
	CodeDiscriminatorProperties = "discriminator_properties"
	CodeInvalidDiscriminator    = "invalid_discriminator"
	CodeDiscriminatorBranch     = "discriminator_branch"
	CodeDuplicateDiscriminator  = "duplicate_discriminator"
	CodeInvalidRequired         = "invalid_required"
	// Flow screen lint
	CodeUnsafeFlowScreen     = "unsafe_flow_screen"
	CodeUnknownReference     = "unknown_reference"
	CodeEmptyOutputPath      = "empty_output_path"
	CodeInvalidFormat        = "invalid_format"
	CodeInvalidExtractSource = "invalid_extract_source"
)

// Issue represents a single authoring defect.
type Issue struct {
	Path    string // pretty path (for example: $.properties.items[0])
	Code    string // One of the codes listed above.
	Message string
	// Params carries structured parameters (e.g., {"value": "x"}) for i18n and
	// admin tooling.
	Params map[string]any
}

// Error renders the issue as "<path>: <message>".
func (it Issue) Error() string {
	if it.Path == "" {
		return it.Message
	}
	return it.Path + ": " + it.Message
}

// Issues is a collection of issues that implements error.
type Issues []Issue

// Error summarizes the first few issues.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	n := len(iss)
	lim := n
	if lim > maxShown {
		lim = maxShown
	}
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(iss[i].Error())
	}
	if n > lim {
		fmt.Fprintf(b, "; ... (total %d)", n)
	}
	return b.String()
}

// AppendIssues appends issues to the destination, initializing the slice when
// needed.
func AppendIssues(dst Issues, more ...Issue) Issues {
	if dst == nil {
		dst = Issues{}
	}
	dst = append(dst, more...)
	return dst
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

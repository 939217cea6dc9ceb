package clientflow_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/clientflow"
	"github.com/reoring/clientflow/deep"
)

func TestIssues_Error(t *testing.T) {
	var iss clientflow.Issues
	assert.Empty(t, iss.Error())

	iss = clientflow.AppendIssues(iss,
		clientflow.IssueAt(deep.P("properties", "a"), clientflow.CodeMissingDefault, "needs a default", nil),
		clientflow.Issue{Code: clientflow.CodeUnsafeFlowScreen, Message: "unsafe"},
	)
	assert.Equal(t, "$.properties.a: needs a default; unsafe", iss.Error())

	for i := range 3 {
		iss = clientflow.AppendIssues(iss, clientflow.Issue{Message: fmt.Sprint(i)})
	}
	assert.Equal(t, "$.properties.a: needs a default; unsafe; 0; ... (total 5)", iss.Error())
}

func TestAppendIssues_InitializesNil(t *testing.T) {
	iss := clientflow.AppendIssues(nil)
	require.NotNil(t, iss)
	assert.Empty(t, iss)
}

// Issues survive wrapping so callers can keep adding context.
func TestAsIssues(t *testing.T) {
	_, ok := clientflow.AsIssues(nil)
	assert.False(t, ok)

	_, ok = clientflow.AsIssues(errors.New("plain"))
	assert.False(t, ok)

	err := clientflow.Failf(deep.P("oneOf", 1), clientflow.CodeDiscriminatorBranch, "branch %d does not pin %q", 1, "type")
	wrapped := fmt.Errorf("check screen schema: %w", err)
	iss, ok := clientflow.AsIssues(wrapped)
	require.True(t, ok)
	require.Len(t, iss, 1)
	assert.Equal(t, clientflow.Issue{
		Path:    "$.oneOf[1]",
		Code:    clientflow.CodeDiscriminatorBranch,
		Message: `branch 1 does not pin "type"`,
	}, iss[0])
}

package cli

import (
	"fmt"
	"io"

	json "github.com/goccy/go-json"

	"github.com/reoring/clientflow"
	"github.com/reoring/clientflow/i18n"
)

func printIssues(w io.Writer, iss clientflow.Issues) {
	for _, it := range iss {
		fmt.Fprintf(w, "[%s] %s\n", i18n.Message(it.Code), it.Error())
	}
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return failure("encode output", err)
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

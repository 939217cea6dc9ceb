package cli

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/reoring/clientflow/internal/jsonio"
	"github.com/reoring/clientflow/touchpoint"
)

func newCheckTouchPointCommand(a *app) *cobra.Command {
	var schemaPath, messagesPath string
	cmd := &cobra.Command{
		Use:   "check-touch-point",
		Short: "Check a touch point's messages against its event schema",
		Long: `Check a touch point's messages against its event schema. Email messages
are also checked against their template, fetched from the service at
email_templates_url.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			schema, err := jsonio.LoadObject(schemaPath)
			if err != nil {
				return failure("load event schema", err)
			}
			var messages touchpoint.Messages
			if err := jsonio.LoadInto(messagesPath, &messages); err != nil {
				return failure("load messages", err)
			}

			checker := &touchpoint.Checker{Logger: a.logger}
			if url := a.cfg.EmailTemplatesURL; url != "" {
				checker.Templates = touchpoint.NewHTTPTemplateProvider(url,
					touchpoint.WithHTTPClient(&http.Client{Timeout: a.cfg.HTTPTimeout}),
					touchpoint.WithCache(a.cfg.TemplateCacheTTL, a.cfg.TemplateCacheSize),
					touchpoint.WithProviderLogger(a.logger),
				)
			}
			problem, err := checker.Check(cmd.Context(), schema, messages)
			if err != nil {
				return failure("check touch point", err)
			}
			if problem != nil {
				fmt.Fprintln(cmd.OutOrStdout(), problem.String())
				return findings(1, string(problem.Category)+" problem")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&schemaPath, "schema", "", "Event schema file")
	f.StringVar(&messagesPath, "messages", "", "Messages file")
	_ = cmd.MarkFlagRequired("schema")
	_ = cmd.MarkFlagRequired("messages")
	return cmd
}

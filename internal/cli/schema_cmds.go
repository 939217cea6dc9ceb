package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reoring/clientflow"
	"github.com/reoring/clientflow/deep"
	"github.com/reoring/clientflow/internal/jsonio"
	"github.com/reoring/clientflow/oas"
)

func newCheckSchemaCommand(a *app) *cobra.Command {
	var opts oas.CheckOptions
	cmd := &cobra.Command{
		Use:   "check-schema FILE",
		Short: "Check an authored OpenAPI 3.0.3 schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, err := jsonio.LoadObject(args[0])
			if err != nil {
				return failure("load schema", err)
			}
			a.logger.Debug("checking schema", "file", args[0])
			err = oas.CheckSchema(schema, opts)
			if iss, ok := clientflow.AsIssues(err); ok {
				printIssues(cmd.OutOrStdout(), iss)
				return findings(len(iss), "schema issue(s)")
			}
			if err != nil {
				return failure("check schema", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
	f := cmd.Flags()
	f.BoolVar(&opts.RequireExample, "require-example", false, "Require an example on every node")
	f.BoolVar(&opts.AllowMissingDefault, "allow-missing-default", false, "Do not require defaults on optional fields")
	f.BoolVar(&opts.AllowUndiscriminatedOneOf, "allow-undiscriminated-oneof", false, "Allow oneOf without x-enum-discriminator")
	return cmd
}

func newDefaultCommand(a *app) *cobra.Command {
	var schemaPath, fixedPath, path string
	cmd := &cobra.Command{
		Use:   "default",
		Short: "Resolve the value a schema path takes, falling back to schema defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			schema, err := jsonio.LoadObject(schemaPath)
			if err != nil {
				return failure("load schema", err)
			}
			var fixed any = map[string]any{}
			if fixedPath != "" {
				if fixed, err = jsonio.Load(fixedPath); err != nil {
					return failure("load fixed value", err)
				}
			}
			a.logger.Debug("resolving default", "path", path)
			res, err := oas.ExtractSchemaDefault(schema, fixed, deep.ParseDotted(path))
			if err != nil {
				return failure("resolve default", err)
			}
			if res.Irrelevant {
				fmt.Fprintln(cmd.OutOrStdout(), "irrelevant: a nullable parent is null")
				return nil
			}
			return printJSON(cmd.OutOrStdout(), res.Value)
		},
	}
	f := cmd.Flags()
	f.StringVar(&schemaPath, "schema", "", "Schema file (JSON or YAML)")
	f.StringVar(&fixedPath, "fixed", "", "Fixed value file; defaults to an empty object")
	f.StringVar(&path, "path", "", "Dotted path, for example a.b.0")
	_ = cmd.MarkFlagRequired("schema")
	return cmd
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reoring/clientflow"
	"github.com/reoring/clientflow/flows"
	"github.com/reoring/clientflow/internal/fixtures"
	"github.com/reoring/clientflow/internal/jsonio"
	"github.com/reoring/clientflow/internal/logging"
)

type flowFiles struct {
	flow, flowScreen string
}

func (f *flowFiles) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.flow, "flow", "", "Client flow file")
	cmd.Flags().StringVar(&f.flowScreen, "flow-screen", "", "Flow screen file")
	_ = cmd.MarkFlagRequired("flow")
	_ = cmd.MarkFlagRequired("flow-screen")
}

func (f *flowFiles) load() (*flows.ClientFlow, *flows.FlowScreen, error) {
	var flow flows.ClientFlow
	if err := jsonio.LoadInto(f.flow, &flow); err != nil {
		return nil, nil, failure("load flow", err)
	}
	var fs flows.FlowScreen
	if err := jsonio.LoadInto(f.flowScreen, &fs); err != nil {
		return nil, nil, failure("load flow screen", err)
	}
	return &flow, &fs, nil
}

func newLintFlowScreenCommand(a *app) *cobra.Command {
	var files flowFiles
	var clientScreenPath, standardPath string
	cmd := &cobra.Command{
		Use:   "lint-flow-screen",
		Short: "Check a flow screen's bindings against its flow and client screen",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flow, fs, err := files.load()
			if err != nil {
				return err
			}
			var screen flows.ClientScreen
			if err := jsonio.LoadInto(clientScreenPath, &screen); err != nil {
				return failure("load client screen", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "requires:")
			for rp, err := range flows.RequiredParameters(fs) {
				if err != nil {
					continue
				}
				line := fmt.Sprintf("  variable[%d] %s %s", rp.Binding, rp.Usage, rp.Path.Pretty())
				if rp.FormatSpec != "" {
					line += " :" + rp.FormatSpec
				}
				fmt.Fprintln(out, line)
			}

			iss := flows.CheckFlowScreen(flow, fs, screen)
			if standardPath != "" {
				model, err := jsonio.LoadObject(standardPath)
				if err != nil {
					return failure("load standard parameters schema", err)
				}
				iss = clientflow.AppendIssues(iss, flows.CheckStandardReferences(fs, model)...)
			}
			a.logger.Debug("linted flow screen", logging.FlowKey, flow.Slug, logging.ScreenKey, fs.Screen.Slug, "issues", len(iss))
			if len(iss) > 0 {
				printIssues(out, iss)
				return findings(len(iss), "flow screen issue(s)")
			}
			fmt.Fprintln(out, "ok")
			return nil
		},
	}
	files.register(cmd)
	cmd.Flags().StringVar(&clientScreenPath, "client-screen", "", "Client screen file")
	cmd.Flags().StringVar(&standardPath, "standard-schema", "", "Standard parameters model schema")
	_ = cmd.MarkFlagRequired("client-screen")
	return cmd
}

func newRenderCommand(a *app) *cobra.Command {
	var files flowFiles
	var serverPath, clientPath, standardPath, fixturesPath string
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Run the trigger-time transformations and print the screen input",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flow, fs, err := files.load()
			if err != nil {
				return err
			}
			server, err := jsonio.LoadObject(serverPath)
			if err != nil {
				return failure("load server parameters", err)
			}
			client, err := optionalObject(clientPath)
			if err != nil {
				return failure("load client parameters", err)
			}
			standard, err := optionalObject(standardPath)
			if err != nil {
				return failure("load standard parameters", err)
			}
			store, err := fixtures.Load(fixturesPath)
			if err != nil {
				return failure("load fixtures", err)
			}

			tr := flows.NewTransformer(store, store, flows.WithLogger(a.logger))
			res, err := tr.HandleTriggerTimeTransformations(cmd.Context(), flow, fs, server)
			if err != nil {
				return failure("transform", err)
			}
			if res.Skipped {
				fmt.Fprintln(cmd.OutOrStdout(), "skipped: a required entity is missing")
				return nil
			}
			input, err := flows.ProduceScreenInputParameters(res.FlowScreen, client, res.ServerParameters, standard)
			if err != nil {
				return failure("produce screen input", err)
			}
			return printJSON(cmd.OutOrStdout(), input)
		},
	}
	files.register(cmd)
	f := cmd.Flags()
	f.StringVar(&serverPath, "server", "", "Server parameters file")
	f.StringVar(&clientPath, "client", "", "Client parameters file")
	f.StringVar(&standardPath, "standard", "", "Standard parameters file")
	f.StringVar(&fixturesPath, "fixtures", "", "Courses and journeys file")
	_ = cmd.MarkFlagRequired("server")
	_ = cmd.MarkFlagRequired("fixtures")
	return cmd
}

func optionalObject(path string) (map[string]any, error) {
	if path == "" {
		return map[string]any{}, nil
	}
	return jsonio.LoadObject(path)
}

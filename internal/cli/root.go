// Package cli implements the clientflow command line: authoring checks for
// schemas, flow screens and touch points, plus offline rendering.
package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/reoring/clientflow/i18n"
	"github.com/reoring/clientflow/internal/config"
	"github.com/reoring/clientflow/internal/logging"
)

// app is the state shared by every subcommand once flags are parsed.
type app struct {
	v          *viper.Viper
	configPath string
	cfg        *config.Config
	logger     *slog.Logger
}

// NewRootCommand creates the root command with every subcommand attached.
func NewRootCommand() *cobra.Command {
	a := &app{v: config.New()}
	cmd := &cobra.Command{
		Use:   "clientflow",
		Short: "Check and render client flow screens and touch points",
		Long: `clientflow checks the authoring artifacts of client flows: screen and
flow parameter schemas, flow screen bindings and touch point messages.
It can also render a flow screen's input offline from fixture entities.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "Path to a YAML config file")
	pf.String("log-level", "info", "Log level (debug, info, warn, error)")
	pf.String("log-format", "text", "Log format (json, text)")
	pf.String("lang", "en", "Language of issue titles (en, ja)")
	pf.String("email-templates-url", "", "Base URL of the email-template service")
	for key, flag := range map[string]string{
		config.KeyLogLevel:          "log-level",
		config.KeyLogFormat:         "log-format",
		config.KeyLang:              "lang",
		config.KeyEmailTemplatesURL: "email-templates-url",
	} {
		if err := a.v.BindPFlag(key, pf.Lookup(flag)); err != nil {
			panic(fmt.Sprintf("bind --%s: %v", flag, err))
		}
	}

	cmd.AddCommand(
		newCheckSchemaCommand(a),
		newDefaultCommand(a),
		newLintFlowScreenCommand(a),
		newRenderCommand(a),
		newCheckTouchPointCommand(a),
	)
	return cmd
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.v, a.configPath)
	if err != nil {
		return &ExitError{Code: ExitFailure, Message: "invalid configuration", Cause: err}
	}
	a.cfg = cfg
	a.logger = logging.New(&logging.Config{
		Level:  cfg.LogLevel,
		Format: logging.Format(cfg.LogFormat),
		Output: cmd.ErrOrStderr(),
	})
	i18n.SetLanguage(cfg.Lang)
	a.logger.Debug("configuration loaded", "config", a.configPath, "lang", cfg.Lang)
	return nil
}

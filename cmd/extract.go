// -- cmd/extract.go --
package cmd

import (
	"bufio"
	"fmt"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/vmaturana/corfex-cli/internal/authflow"
	"github.com/vmaturana/corfex-cli/internal/browser"
	"github.com/vmaturana/corfex-cli/internal/config"
	"github.com/vmaturana/corfex-cli/internal/formscan"
	"github.com/vmaturana/corfex-cli/internal/interact"
	"github.com/vmaturana/corfex-cli/internal/observability"
)

// newExtractCmd creates and configures the `extract` command: log in, scan
// the form, write the artifact.
func newExtractCmd() *cobra.Command {
	var rut, password string

	extractCmd := &cobra.Command{
		Use:   "extract",
		Short: "Logs into the platform and writes a JSON description of the application form",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Bind flags to their viper keys so command-line values override
			// config file and environment values with the right precedence.
			if err := viper.BindPFlag("auth.url", cmd.Flags().Lookup("url")); err != nil {
				return err
			}
			if err := viper.BindPFlag("auth.wait_timeout", cmd.Flags().Lookup("login-wait")); err != nil {
				return err
			}
			if err := viper.BindPFlag("extract.wait_timeout", cmd.Flags().Lookup("form-wait")); err != nil {
				return err
			}
			if err := viper.BindPFlag("extract.panel_selector", cmd.Flags().Lookup("panel-selector")); err != nil {
				return err
			}
			if err := viper.BindPFlag("extract.output", cmd.Flags().Lookup("output")); err != nil {
				return err
			}
			if err := viper.BindPFlag("extract.auto_close", cmd.Flags().Lookup("auto-close")); err != nil {
				return err
			}
			return viper.BindPFlag("browser.headless", cmd.Flags().Lookup("headless"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			var cfg config.Config
			if err := viper.Unmarshal(&cfg); err != nil {
				return fmt.Errorf("failed to unmarshal config with flag overrides: %w", err)
			}

			creds, err := resolveCredentials(rut, password)
			if err != nil {
				return err
			}

			session, err := browser.NewSession(ctx, cfg.Browser, logger)
			if err != nil {
				return err
			}
			defer session.Close()

			page := session.Page()
			activator := interact.New(page, logger)

			sequencer := authflow.New(page, activator, authflow.Config{
				URL:             cfg.Auth.URL,
				WaitTimeout:     cfg.Auth.WaitTimeout,
				PostLoginSettle: cfg.Auth.PostLoginSettle,
			}, logger)

			if err := sequencer.Run(ctx, creds); err != nil {
				// Leave the browser up for inspection before tearing down,
				// unless the run is unattended.
				holdOpen(cfg.Extract.AutoClose, "Login failed. Press ENTER to close the browser...")
				return err
			}

			extractor := formscan.NewExtractor(page, activator, formscan.Config{
				PanelSelector: cfg.Extract.PanelSelector,
				WaitTimeout:   cfg.Extract.WaitTimeout,
				InitialSettle: cfg.Extract.InitialSettle,
				PanelSettle:   cfg.Extract.PanelSettle,
				ExpandTimeout: cfg.Extract.ExpandTimeout,
			}, logger)

			fields, err := extractor.Run(ctx)
			if err != nil {
				holdOpen(cfg.Extract.AutoClose, "Extraction failed. Press ENTER to close the browser...")
				return err
			}

			if err := formscan.WriteArtifact(cfg.Extract.Output, fields); err != nil {
				return err
			}
			logger.Info("Artifact written.",
				zap.String("path", cfg.Extract.Output),
				zap.Int("fields", len(fields)))

			holdOpen(cfg.Extract.AutoClose, "Done. Press ENTER to close the browser...")
			return nil
		},
	}

	extractCmd.Flags().StringVar(&rut, "rut", "", "login RUT (prompted when omitted)")
	extractCmd.Flags().StringVar(&password, "password", "", "login password (prompted when omitted)")
	extractCmd.Flags().String("url", config.DefaultLoginURL, "login entry point URL")
	extractCmd.Flags().String("output", "formulario.json", "destination path of the JSON artifact")
	extractCmd.Flags().Bool("headless", false, "run the browser without a window")
	extractCmd.Flags().Duration("login-wait", 0, "per-step wait timeout of the login sequence")
	extractCmd.Flags().Duration("form-wait", 0, "wait timeout for the form panels")
	extractCmd.Flags().String("panel-selector", "", "CSS selector of the form panel containers")
	extractCmd.Flags().Bool("auto-close", false, "close the browser on completion without waiting for ENTER")

	return extractCmd
}

// resolveCredentials takes the flag values and prompts interactively for
// whatever is missing. Credentials never have a config or environment
// fallback; they are either given explicitly or typed at the prompt.
func resolveCredentials(rut, password string) (authflow.Credentials, error) {
	creds := authflow.Credentials{RUT: rut, Clave: password}

	if creds.RUT == "" {
		prompt := &survey.Input{Message: "RUT:"}
		if err := survey.AskOne(prompt, &creds.RUT, survey.WithValidator(survey.Required)); err != nil {
			return creds, fmt.Errorf("reading RUT: %w", err)
		}
	}
	if creds.Clave == "" {
		prompt := &survey.Password{Message: "Clave:"}
		if err := survey.AskOne(prompt, &creds.Clave, survey.WithValidator(survey.Required)); err != nil {
			return creds, fmt.Errorf("reading clave: %w", err)
		}
	}
	return creds, nil
}

// holdOpen blocks on ENTER so the operator can inspect the browser window
// before it closes. Skipped in unattended runs.
func holdOpen(autoClose bool, message string) {
	if autoClose {
		return
	}
	fmt.Fprintln(os.Stderr, message)
	_, _ = bufio.NewReader(os.Stdin).ReadString('\n')
}

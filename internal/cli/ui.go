package cli

import (
	"github.com/spf13/cobra"

	"github.com/desolution/erpshell/internal/tui"
)

var uiCompany string

func init() {
	rootCmd.AddCommand(uiCmd)
	uiCmd.Flags().StringVar(&uiCompany, "company", "", "company code to prefill on the login form")
}

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Launch the erpshell TUI",
	Long:  "Launch the erpshell terminal user interface (TUI).",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI(cmd)
	},
}

func runTUI(cmd *cobra.Command) error {
	if IsNonInteractive() {
		return &PreflightError{
			Message:  "TUI requires an interactive terminal",
			Hint:     "Run without --non-interactive and with a TTY, or use CLI subcommands",
			NextStep: "erpshell --help",
		}
	}

	ctx := cmd.Context()
	a, err := openApp(ctx, GetConfig())
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close storage cleanly")
		}
	}()

	opts := tui.Options{
		Theme:   a.themes,
		Session: a.sessions,
		Auth:    a.authService(),
		Company: firstNonEmpty(uiCompany, getenv("ERPSHELL_COMPANY")),
	}
	if a.eventRepo != nil {
		opts.Activity = a.eventRepo
	}

	// The TUI bootstraps the stores itself behind its loading view.
	return tui.Run(ctx, opts)
}

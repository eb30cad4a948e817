package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/desolution/erpshell/internal/theme"
)

func init() {
	rootCmd.AddCommand(themeCmd)
	themeCmd.AddCommand(themeListCmd)
	themeCmd.AddCommand(themeShowCmd)
	themeCmd.AddCommand(themeSetCmd)
}

var themeCmd = &cobra.Command{
	Use:   "theme",
	Short: "Show or change the colour theme",
}

var themeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available themes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			return runThemeList(cmd.OutOrStdout(), a)
		})
	},
}

var themeShowCmd = &cobra.Command{
	Use:   "show [theme]",
	Short: "Show a theme's colours",
	Long:  "Show the colours of the named theme, or of the active theme when none is given.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			return runThemeShow(cmd.OutOrStdout(), a, name)
		})
	},
}

var themeSetCmd = &cobra.Command{
	Use:   "set <theme>",
	Short: "Activate and save a theme",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			return runThemeSet(cmd.Context(), cmd.OutOrStdout(), a, args[0])
		})
	},
}

type themeRow struct {
	ID      theme.ID `json:"id"`
	Name    string   `json:"name"`
	Dark    bool     `json:"dark"`
	Current bool     `json:"current"`
}

func runThemeList(out io.Writer, a *app) error {
	current := a.themes.ID()
	all := theme.All()

	rows := make([]themeRow, 0, len(all))
	for _, t := range all {
		rows = append(rows, themeRow{ID: t.ID, Name: t.Name, Dark: t.Dark, Current: t.ID == current})
	}

	if IsJSONOutput() || IsJSONLOutput() {
		return WriteOutput(out, rows)
	}

	table := make([][]string, 0, len(rows))
	for _, row := range rows {
		marker := ""
		if row.Current {
			marker = colorize("*", colorGreen)
		}
		table = append(table, []string{marker, string(row.ID), row.Name, formatYesNo(row.Dark)})
	}
	return writeTable(out, []string{"", "ID", "NAME", "DARK"}, table)
}

func runThemeShow(out io.Writer, a *app, name string) error {
	id := a.themes.ID()
	if strings.TrimSpace(name) != "" {
		parsed, err := parseThemeArg(name)
		if err != nil {
			return err
		}
		id = parsed
	}

	t, _ := theme.Lookup(id)
	if IsJSONOutput() || IsJSONLOutput() {
		return WriteOutput(out, t)
	}

	fmt.Fprintf(out, "%s (%s)\n", t.Name, t.ID)
	fmt.Fprintf(out, "Dark:   %s\n", formatYesNo(t.Dark))
	fmt.Fprintf(out, "Active: %s\n\n", formatYesNo(t.ID == a.themes.ID()))

	c := t.Colors
	return writeTable(out, []string{"ROLE", "COLOUR"}, [][]string{
		{"primary", c.Primary},
		{"primaryDark", c.PrimaryDark},
		{"background", c.Background},
		{"surface", c.Surface},
		{"text", c.Text},
		{"textSecondary", c.TextSecondary},
		{"textDark", c.TextDark},
		{"border", c.Border},
		{"error", c.Error},
		{"success", c.Success},
		{"warning", c.Warning},
		{"info", c.Info},
	})
}

func runThemeSet(ctx context.Context, out io.Writer, a *app, name string) error {
	id, err := parseThemeArg(name)
	if err != nil {
		return err
	}

	previous := a.themes.ID()
	if !a.themes.Activate(string(id)) {
		return fmt.Errorf("theme store is not ready")
	}
	if err := a.flush(ctx); err != nil {
		return fmt.Errorf("theme activated but not saved: %w", err)
	}

	t := a.themes.Theme()
	if IsJSONOutput() || IsJSONLOutput() {
		return WriteOutput(out, themeRow{ID: t.ID, Name: t.Name, Dark: t.Dark, Current: true})
	}
	if previous == id {
		fmt.Fprintf(out, "Theme %s (%s) is already active\n", t.Name, t.ID)
		return nil
	}
	fmt.Fprintf(out, "Theme set to %s (%s)\n", t.Name, t.ID)
	return nil
}

func parseThemeArg(name string) (theme.ID, error) {
	id, err := theme.Parse(strings.TrimSpace(name))
	if err != nil {
		ids := make([]string, 0, len(theme.IDs()))
		for _, known := range theme.IDs() {
			ids = append(ids, string(known))
		}
		return "", &PreflightError{
			Message:  fmt.Sprintf("Unknown theme %q", name),
			Hint:     "Available themes: " + strings.Join(ids, ", "),
			NextStep: "erpshell theme list",
		}
	}
	return id, nil
}

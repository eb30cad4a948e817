package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/desolution/erpshell/internal/auth"
	"github.com/desolution/erpshell/internal/session"
)

var (
	loginUsername      string
	loginCompany       string
	loginPasswordStdin bool
)

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)

	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "user id to sign in as")
	loginCmd.Flags().StringVar(&loginCompany, "company", "", "company code")
	loginCmd.Flags().BoolVar(&loginPasswordStdin, "password-stdin", false, "read the password from stdin")
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the ERP backend",
	Long:  "Sign in and keep the session for later runs. Prompts for missing values when a terminal is attached.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			prompter := newPrompter(cmd.InOrStdin(), os.Stderr)
			creds, err := collectCredentials(prompter, loginOptions{
				Username:      loginUsername,
				Company:       firstNonEmpty(loginCompany, getenv("ERPSHELL_COMPANY")),
				PasswordStdin: loginPasswordStdin,
				Interactive:   IsInteractive(),
			})
			if err != nil {
				return err
			}
			return runLogin(cmd.Context(), cmd.OutOrStdout(), a, a.authService(), creds)
		})
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the saved session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			return runLogout(cmd.Context(), cmd.OutOrStdout(), a)
		})
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			return runWhoami(cmd.OutOrStdout(), a)
		})
	},
}

type loginOptions struct {
	Username      string
	Company       string
	PasswordStdin bool
	Interactive   bool
}

// prompter reads answers from the user.
type prompter struct {
	in       *bufio.Reader
	out      io.Writer
	password func() (string, error)
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	p := &prompter{in: bufio.NewReader(in), out: out}
	p.password = func() (string, error) {
		fd := int(os.Stdin.Fd())
		if !term.IsTerminal(fd) {
			return p.line()
		}
		secret, err := term.ReadPassword(fd)
		fmt.Fprintln(p.out)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(secret), nil
	}
	return p
}

func (p *prompter) ask(label, fallback string) (string, error) {
	if fallback != "" {
		fmt.Fprintf(p.out, "%s [%s]: ", label, fallback)
	} else {
		fmt.Fprintf(p.out, "%s: ", label)
	}
	answer, err := p.line()
	if err != nil {
		return "", err
	}
	if answer == "" {
		return fallback, nil
	}
	return answer, nil
}

func (p *prompter) askPassword() (string, error) {
	fmt.Fprint(p.out, "Password: ")
	return p.password()
}

func (p *prompter) line() (string, error) {
	text, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && text != "") {
		if errors.Is(err, io.EOF) {
			return "", fmt.Errorf("no input")
		}
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimRight(text, "\r\n"), nil
}

func collectCredentials(p *prompter, opts loginOptions) (auth.Credentials, error) {
	creds := auth.Credentials{
		Username: strings.TrimSpace(opts.Username),
		Company:  strings.TrimSpace(opts.Company),
	}

	if creds.Username == "" {
		if !opts.Interactive {
			return creds, fmt.Errorf("--username is required in non-interactive mode")
		}
		username, err := p.ask("Username", "")
		if err != nil {
			return creds, err
		}
		creds.Username = strings.TrimSpace(username)
		company, err := p.ask("Company", creds.Company)
		if err != nil {
			return creds, err
		}
		creds.Company = strings.TrimSpace(company)
	}

	switch {
	case opts.PasswordStdin:
		password, err := p.line()
		if err != nil {
			return creds, fmt.Errorf("failed to read password from stdin: %w", err)
		}
		creds.Password = password
	case opts.Interactive:
		password, err := p.askPassword()
		if err != nil {
			return creds, err
		}
		creds.Password = password
	default:
		return creds, fmt.Errorf("--password-stdin is required in non-interactive mode")
	}

	return creds, nil
}

// Authenticator runs a login against the backend.
type Authenticator interface {
	Login(ctx context.Context, creds auth.Credentials) (*auth.Result, error)
}

func runLogin(ctx context.Context, out io.Writer, a *app, authenticator Authenticator, creds auth.Credentials) error {
	if strings.TrimSpace(a.cfg.API.BaseURL) == "" {
		return &PreflightError{
			Message:  "API base URL is not configured",
			Hint:     "Set API_BASE_URL in .env or api.base_url in config.yaml",
			NextStep: "erpshell login",
		}
	}

	progress := startProgress("Signing in")
	result, err := authenticator.Login(ctx, creds)
	if err != nil {
		progress.Fail(nil)
		if flushErr := a.recorder.Flush(ctx); flushErr != nil {
			logger.Debug().Err(flushErr).Msg("audit events not flushed")
		}
		return loginFailure(err)
	}
	progress.Done()

	if err := a.flush(ctx); err != nil {
		return fmt.Errorf("signed in but the session was not saved: %w", err)
	}

	if IsJSONOutput() || IsJSONLOutput() {
		return WriteOutput(out, whoamiFor(a.sessions.Current()))
	}
	fmt.Fprintf(out, "Signed in as %s\n", result.User.DisplayName())
	if result.Message != "" {
		fmt.Fprintln(out, result.Message)
	}
	return nil
}

func loginFailure(err error) error {
	var fieldErrs auth.FieldErrors
	if errors.As(err, &fieldErrs) {
		return &PreflightError{Message: fieldErrs.Error(), NextStep: "erpshell login --help"}
	}

	preflight := &PreflightError{Message: auth.UserMessage(err)}
	var authErr *auth.AuthError
	if errors.As(err, &authErr) && authErr.Message == auth.MessageNetworkError {
		preflight.Hint = "Check api.base_url and your network connection"
	}
	return preflight
}

func runLogout(ctx context.Context, out io.Writer, a *app) error {
	current := a.sessions.Current()
	if !current.IsAuthenticated() {
		fmt.Fprintln(out, "Not signed in")
		return nil
	}

	if err := a.sessions.Logout(); err != nil {
		return err
	}
	if err := a.flush(ctx); err != nil {
		return fmt.Errorf("signed out but the saved session was not removed: %w", err)
	}
	fmt.Fprintf(out, "Signed out %s\n", current.User.DisplayName())
	return nil
}

type whoamiOutput struct {
	Authenticated bool   `json:"authenticated"`
	UserID        string `json:"user_id,omitempty"`
	Name          string `json:"name,omitempty"`
	Company       string `json:"company,omitempty"`
	HasToken      bool   `json:"has_token"`
}

func whoamiFor(s session.Session) whoamiOutput {
	if !s.IsAuthenticated() {
		return whoamiOutput{}
	}
	return whoamiOutput{
		Authenticated: true,
		UserID:        s.User.ID(),
		Name:          s.User.DisplayName(),
		Company:       s.User.Company(),
		HasToken:      s.Token != "",
	}
}

func runWhoami(out io.Writer, a *app) error {
	info := whoamiFor(a.sessions.Current())
	if IsJSONOutput() || IsJSONLOutput() {
		return WriteOutput(out, info)
	}
	if !info.Authenticated {
		return &PreflightError{Message: "Not signed in", NextStep: "erpshell login"}
	}

	rows := [][]string{
		{"User", info.UserID},
		{"Name", info.Name},
	}
	if info.Company != "" {
		rows = append(rows, []string{"Company", info.Company})
	}
	rows = append(rows, []string{"Token", formatYesNo(info.HasToken)})
	return writeTable(out, nil, rows)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// Package tui implements the erpshell terminal user interface.
package tui

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/desolution/erpshell/internal/auth"
	"github.com/desolution/erpshell/internal/models"
	"github.com/desolution/erpshell/internal/session"
	"github.com/desolution/erpshell/internal/theme"
	"github.com/desolution/erpshell/internal/tui/components"
	"github.com/desolution/erpshell/internal/tui/styles"
)

// Options wires the TUI to the application stores.
type Options struct {
	Theme    *theme.Selector
	Session  *session.Store
	Auth     Authenticator
	Activity ActivityLister
	// Company prefills the login form.
	Company string
}

// Run launches the erpshell TUI program.
func Run(ctx context.Context, opts Options) error {
	if opts.Theme == nil || opts.Session == nil {
		return errors.New("theme selector and session store are required")
	}

	program := tea.NewProgram(newModel(ctx, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	unsubscribe := subscribe(program, opts.Theme, opts.Session)
	defer unsubscribe()

	_, err := program.Run()
	return err
}

const (
	minWidth        = 50
	minHeight       = 16
	spinnerInterval = 120 * time.Millisecond
	toastDuration   = 3 * time.Second
	activityLimit   = 8
	activityTimeout = 2 * time.Second
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

type screen int

const (
	screenLoading screen = iota
	screenLogin
	screenDashboard
	screenThemes
)

type toast struct {
	text    string
	isError bool
	seq     int
}

type model struct {
	ctx    context.Context
	opts   Options
	width  int
	height int
	styles styles.Styles
	screen screen
	// returnTo is where the theme picker goes back to.
	returnTo screen
	form     loginForm
	cursor   int
	ticking  bool
	frame    int
	toast    toast

	activity       []*models.Event
	activityErr    error
	activityLoaded bool
}

func newModel(ctx context.Context, opts Options) model {
	if ctx == nil {
		ctx = context.Background()
	}
	return model{
		ctx:     ctx,
		opts:    opts,
		styles:  styles.ForID(opts.Theme.ID()),
		screen:  screenLoading,
		form:    newLoginForm(opts.Company),
		ticking: true,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		bootstrapCmd(m.ctx, m.opts.Theme.Bootstrap),
		bootstrapCmd(m.ctx, m.opts.Session.Bootstrap),
		waitForStores(m.ctx, m.opts.Theme.Done(), m.opts.Session.Done()),
		tickCmd(),
	)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tickMsg:
		if !m.busy() {
			m.ticking = false
			return m, nil
		}
		m.frame = (m.frame + 1) % len(spinnerFrames)
		return m, tickCmd()
	case StoresReadyMsg:
		m.styles = styles.ForID(m.opts.Theme.ID())
		return m.goHome()
	case ThemeChangedMsg:
		m.styles = styles.ForID(msg.Current)
	case ThemeRejectedMsg:
		return m.withToast(fmt.Sprintf("Unknown theme %q", msg.ID), true)
	case SessionChangedMsg:
		switch m.screen {
		case screenLoading:
		case screenThemes:
			m.returnTo = m.homeScreen()
		default:
			return m.goHome()
		}
	case LoginResultMsg:
		m.form.submitting = false
		if msg.Err != nil {
			var fieldErrs auth.FieldErrors
			if errors.As(msg.Err, &fieldErrs) {
				m.form.errors = fieldErrs
				return m, nil
			}
			return m.withToast(auth.UserMessage(msg.Err), true)
		}
		m.form.reset()
		next, cmd := m.goHome()
		nm := next.(model)
		greeting := "Signed in"
		if msg.Result != nil && msg.Result.User != nil {
			greeting = fmt.Sprintf("Welcome, %s", msg.Result.User.DisplayName())
		}
		nm, toastCmd := nm.withToast(greeting, false)
		return nm, tea.Batch(cmd, toastCmd)
	case LogoutResultMsg:
		if msg.Err != nil {
			return m.withToast("Could not sign out: "+msg.Err.Error(), true)
		}
		next, cmd := m.goHome()
		nm, toastCmd := next.(model).withToast("Signed out", false)
		return nm, tea.Batch(cmd, toastCmd)
	case ActivityMsg:
		m.activity = msg.Events
		m.activityErr = msg.Err
		m.activityLoaded = true
	case toastExpiredMsg:
		if msg.seq == m.toast.seq {
			m.toast = toast{seq: m.toast.seq}
		}
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	switch m.screen {
	case screenLoading:
		switch msg.String() {
		case "q", "esc":
			return m, tea.Quit
		}
	case screenLogin:
		return m.handleLoginKey(msg)
	case screenDashboard:
		switch msg.String() {
		case "t":
			return m.openThemes(), nil
		case "l":
			return m, logoutCmd(m.opts.Session)
		case "r":
			return m, loadActivityCmd(m.ctx, m.opts.Activity)
		case "q", "esc":
			return m, tea.Quit
		}
	case screenThemes:
		ids := theme.IDs()
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(ids)-1 {
				m.cursor++
			}
		case "enter":
			id := ids[m.cursor]
			m.styles = styles.ForID(id)
			m.screen = m.returnTo
			return m, activateThemeCmd(m.opts.Theme, id)
		case "q", "esc":
			m.screen = m.returnTo
		}
	}
	return m, nil
}

func (m model) handleLoginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.form.submitting {
		if msg.String() == "esc" {
			return m, tea.Quit
		}
		return m, nil
	}

	switch msg.Type {
	case tea.KeyRunes:
		m.form.insert(string(msg.Runes))
		return m, nil
	case tea.KeySpace:
		m.form.insert(" ")
		return m, nil
	}

	switch msg.String() {
	case "tab", "down":
		m.form.next()
	case "shift+tab", "up":
		m.form.prev()
	case "backspace":
		m.form.backspace()
	case "ctrl+u":
		m.form.clearField()
	case "ctrl+t":
		return m.openThemes(), nil
	case "enter":
		if !m.form.onLastField() {
			m.form.next()
			return m, nil
		}
		return m.submit()
	case "esc":
		return m, tea.Quit
	}
	return m, nil
}

func (m model) submit() (tea.Model, tea.Cmd) {
	creds := m.form.credentials()
	if err := creds.Validate(); err != nil {
		var fieldErrs auth.FieldErrors
		if errors.As(err, &fieldErrs) {
			m.form.errors = fieldErrs
			if _, ok := fieldErrs[fieldUsername.key()]; ok {
				m.form.focus = fieldUsername
			} else {
				m.form.focus = fieldPassword
			}
		}
		return m, nil
	}

	m.form.errors = nil
	m.form.submitting = true
	cmds := []tea.Cmd{loginCmd(m.ctx, m.opts.Auth, creds)}
	if !m.ticking {
		m.ticking = true
		cmds = append(cmds, tickCmd())
	}
	return m, tea.Batch(cmds...)
}

func (m model) openThemes() model {
	m.returnTo = m.screen
	m.screen = screenThemes
	m.cursor = max(slices.Index(theme.IDs(), m.opts.Theme.ID()), 0)
	return m
}

func (m model) homeScreen() screen {
	if m.opts.Session.IsAuthenticated() {
		return screenDashboard
	}
	return screenLogin
}

func (m model) goHome() (tea.Model, tea.Cmd) {
	previous := m.screen
	m.screen = m.homeScreen()
	if m.screen == screenDashboard && previous != screenDashboard {
		m.activity = nil
		m.activityErr = nil
		m.activityLoaded = false
		return m, loadActivityCmd(m.ctx, m.opts.Activity)
	}
	return m, nil
}

func (m model) withToast(text string, isError bool) (model, tea.Cmd) {
	m.toast = toast{text: text, isError: isError, seq: m.toast.seq + 1}
	return m, expireToastCmd(m.toast.seq)
}

func (m model) busy() bool {
	return m.screen == screenLoading || m.form.submitting
}

func (m model) View() string {
	if m.width > 0 && m.height > 0 {
		if m.width < minWidth || m.height < minHeight {
			return fmt.Sprintf("%s\n", joinLines(m.smallViewLines()))
		}
	}

	lines := []string{m.styles.Title.Render("ERP Shell"), ""}
	lines = append(lines, m.viewLines()...)

	if m.toast.text != "" {
		style := m.styles.Toast
		if m.toast.isError {
			style = m.styles.ToastError
		}
		lines = append(lines, "", style.Render(m.toast.text))
	}

	if bar := m.statusBar(); bar != "" {
		lines = append(lines, "", bar)
	}

	content := joinLines(lines)
	if m.width > 0 && m.height > 0 {
		content = m.styles.App.Width(m.width).Height(m.height).Render(content)
	}
	return fmt.Sprintf("%s\n", content)
}

func (m model) smallViewLines() []string {
	message := fmt.Sprintf("Terminal too small (%dx%d).", m.width, m.height)
	hint := fmt.Sprintf("Resize to at least %dx%d.", minWidth, minHeight)

	return []string{
		m.styles.Warning.Render(message),
		m.styles.Muted.Render(hint),
		m.styles.Muted.Render("Press ctrl+c to quit."),
	}
}

func (m model) viewLines() []string {
	switch m.screen {
	case screenLoading:
		return []string{m.styles.Accent.Render(spinnerFrames[m.frame] + " Loading…")}
	case screenLogin:
		lines := []string{m.styles.Text.Render("Sign in to continue"), ""}
		return append(lines, m.form.view(m.styles, m.width))
	case screenThemes:
		return m.themeLines()
	default:
		return m.dashboardLines()
	}
}

func (m model) dashboardLines() []string {
	s := m.opts.Session.Current()
	if !s.IsAuthenticated() {
		return []string{components.SignedOut().Render(m.styles)}
	}

	lines := []string{m.styles.Accent.Bold(true).Render(fmt.Sprintf("Welcome, %s", s.User.DisplayName()))}
	if company := s.User.Company(); company != "" {
		lines = append(lines, m.styles.Muted.Render("Company: "+company))
	}
	lines = append(lines,
		m.styles.Muted.Render("Theme: ")+m.styles.Text.Render(m.styles.Theme.Name),
		"",
		m.styles.Text.Bold(true).Render("Recent activity"),
	)

	switch {
	case m.opts.Activity == nil:
		lines = append(lines, components.ActivityUnavailable().RenderCompact(m.styles))
	case !m.activityLoaded:
		lines = append(lines, m.styles.Muted.Render("Loading activity…"))
	case m.activityErr != nil:
		lines = append(lines, m.styles.Error.Render("Could not load activity: "+m.activityErr.Error()))
	case len(m.activity) == 0:
		lines = append(lines, components.EmptyActivity().Render(m.styles))
	default:
		for _, event := range m.activity {
			lines = append(lines, fmt.Sprintf("%s  %s  %s",
				m.styles.Muted.Render(event.Timestamp.Local().Format("Jan 02 15:04")),
				components.RenderEventBadge(m.styles, event.Type),
				m.styles.Text.Render(event.EntityID),
			))
		}
	}
	return lines
}

func (m model) themeLines() []string {
	current := m.opts.Theme.ID()
	lines := []string{m.styles.Text.Bold(true).Render("Choose a theme"), ""}
	for i, t := range theme.All() {
		marker := "  "
		if t.ID == current {
			marker = "✓ "
		}
		label := fmt.Sprintf("%s%-16s", marker, t.Name)
		if i == m.cursor {
			label = m.styles.Selected.Render(label)
		} else {
			label = m.styles.Text.Render(label)
		}
		lines = append(lines, fmt.Sprintf("%s %s", styles.Swatch(t), label))
	}
	return lines
}

func (m model) statusBar() string {
	var actions []components.QuickAction
	switch m.screen {
	case screenLogin:
		actions = components.LoginActions(m.form.submitting)
	case screenDashboard:
		actions = components.DashboardActions(m.opts.Activity != nil)
	case screenThemes:
		actions = components.PickerActions()
	default:
		return ""
	}
	return components.RenderStatusBar(m.styles, actions, m.width)
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	out := lines[0]
	for _, line := range lines[1:] {
		out += "\n" + line
	}
	return out
}

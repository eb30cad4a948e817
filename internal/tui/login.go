package tui

import (
	"strings"
	"unicode/utf8"

	"github.com/desolution/erpshell/internal/auth"
	"github.com/desolution/erpshell/internal/tui/styles"
)

type formField int

const (
	fieldUsername formField = iota
	fieldPassword
	fieldCompany
	fieldCount
)

func (f formField) label() string {
	switch f {
	case fieldUsername:
		return "Username"
	case fieldPassword:
		return "Password"
	default:
		return "Company"
	}
}

// key matches the auth.FieldErrors keys.
func (f formField) key() string {
	switch f {
	case fieldUsername:
		return "username"
	case fieldPassword:
		return "password"
	default:
		return "company"
	}
}

type loginForm struct {
	values     [fieldCount]string
	focus      formField
	errors     auth.FieldErrors
	submitting bool
}

func newLoginForm(company string) loginForm {
	form := loginForm{}
	form.values[fieldCompany] = company
	return form
}

func (f loginForm) credentials() auth.Credentials {
	return auth.Credentials{
		Username: strings.TrimSpace(f.values[fieldUsername]),
		Password: f.values[fieldPassword],
		Company:  strings.TrimSpace(f.values[fieldCompany]),
	}
}

func (f *loginForm) insert(text string) {
	f.values[f.focus] += text
	delete(f.errors, f.focus.key())
}

func (f *loginForm) backspace() {
	value := f.values[f.focus]
	if value == "" {
		return
	}
	_, size := utf8.DecodeLastRuneInString(value)
	f.values[f.focus] = value[:len(value)-size]
	delete(f.errors, f.focus.key())
}

func (f *loginForm) clearField() {
	f.values[f.focus] = ""
}

func (f *loginForm) next() {
	f.focus = (f.focus + 1) % fieldCount
}

func (f *loginForm) prev() {
	f.focus = (f.focus + fieldCount - 1) % fieldCount
}

func (f loginForm) onLastField() bool {
	return f.focus == fieldCount-1
}

// reset clears everything except the company code.
func (f *loginForm) reset() {
	company := f.values[fieldCompany]
	*f = newLoginForm(company)
}

func (f loginForm) view(styleSet styles.Styles, width int) string {
	inputWidth := min(max(width-8, 20), 48)

	var lines []string
	for field := formField(0); field < fieldCount; field++ {
		value := f.values[field]
		if field == fieldPassword {
			value = strings.Repeat("•", utf8.RuneCountInString(value))
		}

		label := styleSet.Muted.Render(field.label())
		input := styleSet.Input
		if field == f.focus {
			label = styleSet.Focus.Render(field.label())
			input = styleSet.InputFocus
			value += "▏"
		}

		lines = append(lines, label, input.Width(inputWidth).Render(value))
		if msg, ok := f.errors[field.key()]; ok {
			lines = append(lines, styleSet.Error.Render(msg))
		}
	}

	button := "Sign in"
	if f.submitting {
		button = "Signing in…"
	}
	lines = append(lines, "", styleSet.Button.Render(button))
	return joinLines(lines)
}

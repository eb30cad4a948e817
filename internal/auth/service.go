package auth

import (
	"context"
	"errors"

	"github.com/desolution/erpshell/internal/logging"
	"github.com/desolution/erpshell/internal/session"
	"github.com/rs/zerolog"
)

// Sessions is the part of session.Store the login flow needs.
type Sessions interface {
	SetCredentials(user session.User, token string) error
	Token() string
}

// FailureRecorder is notified of rejected logins.
type FailureRecorder interface {
	LoginFailed(username, message string)
}

// Service runs a login and stores the resulting credentials.
type Service struct {
	client   *Client
	sessions Sessions
	recorder FailureRecorder
	throttle *Throttle
	logger   zerolog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithThrottle replaces the default login throttle. nil disables throttling.
func WithThrottle(throttle *Throttle) ServiceOption {
	return func(s *Service) {
		s.throttle = throttle
	}
}

// NewService creates a Service. recorder may be nil.
func NewService(client *Client, sessions Sessions, recorder FailureRecorder, opts ...ServiceOption) *Service {
	s := &Service{
		client:   client,
		sessions: sessions,
		recorder: recorder,
		throttle: NewThrottle(DefaultThrottle),
		logger:   logging.Component("auth"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login validates creds, calls the server and, on success, signs the user in.
// Form problems are returned as FieldErrors; server and network problems as
// *AuthError.
func (s *Service) Login(ctx context.Context, creds Credentials) (*Result, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	if !s.throttle.Allow(creds.Username) {
		s.logger.Warn().Str("username", creds.Username).Msg("login throttled")
		return nil, &AuthError{Message: MessageTooManyAttempts}
	}

	s.logger.Debug().Str("username", creds.Username).Str("company", creds.Company).Msg("login started")

	result, err := s.client.Login(ctx, creds, s.sessions.Token())
	if err != nil {
		message := MessageLoginFailed
		var authErr *AuthError
		if errors.As(err, &authErr) {
			message = authErr.Message
		}
		s.logger.Warn().Err(err).Str("username", creds.Username).Msg("login failed")
		if s.recorder != nil {
			s.recorder.LoginFailed(creds.Username, message)
		}
		return nil, err
	}

	if err := s.sessions.SetCredentials(result.User, result.Token); err != nil {
		return nil, err
	}

	s.throttle.Reset(creds.Username)
	s.logger.Info().Str("user_id", result.User.ID()).Msg("login succeeded")
	return result, nil
}

// UserMessage extracts the text to show a user for a login error.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var fieldErrs FieldErrors
	if errors.As(err, &fieldErrs) {
		return fieldErrs.Error()
	}
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.Message
	}
	return "Please check your credentials and try again."
}

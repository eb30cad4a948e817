package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/desolution/erpshell/internal/kv"
	"github.com/desolution/erpshell/internal/session"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	Method      string
	Path        string
	ContentType string
	Auth        string
	RequestID   string
	Username    string
	Password    string
	Company     string
}

func newLoginServer(t *testing.T, status int, response string) (*httptest.Server, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}
	handler := func(w http.ResponseWriter, r *http.Request) {
		captured.Method = r.Method
		captured.Path = r.URL.Path
		captured.ContentType = r.Header.Get("Content-Type")
		captured.Auth = r.Header.Get("Authorization")
		captured.RequestID = r.Header.Get("X-Request-ID")

		if r.Header.Get("Content-Type") == "application/json" {
			var creds Credentials
			_ = json.NewDecoder(r.Body).Decode(&creds)
			captured.Username, captured.Password, captured.Company = creds.Username, creds.Password, creds.Company
		} else {
			_ = r.ParseMultipartForm(1 << 20)
			captured.Username = r.FormValue("username")
			captured.Password = r.FormValue("password")
			captured.Company = r.FormValue("company")
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}

	router := mux.NewRouter()
	router.HandleFunc("/"+loginPath, handler).Methods(http.MethodPost)
	router.HandleFunc("/erp/api/"+loginPath, handler).Methods(http.MethodPost)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, captured
}

const successBody = `{
	"status": "true",
	"message": "Welcome back!",
	"data": [
		{"user_id": "other", "name": "Someone Else"},
		{"user_id": "ada", "name": "Ada Lovelace", "company": "01"}
	]
}`

func TestLoginSelectsMatchingUser(t *testing.T) {
	server, captured := newLoginServer(t, http.StatusOK, successBody)
	client := NewClient(server.URL+"/", EncodingJSON, time.Second)

	result, err := client.Login(context.Background(), Credentials{Username: "ada", Password: "secret", Company: "01"}, "")
	require.NoError(t, err)
	require.Equal(t, "ada", result.User.ID())
	require.Equal(t, "Ada Lovelace", result.User.DisplayName())
	require.Equal(t, "Welcome back!", result.Message)
	require.Empty(t, result.Token)

	assert.Equal(t, http.MethodPost, captured.Method)
	assert.Equal(t, "/users.php", captured.Path)
	assert.Equal(t, "application/json", captured.ContentType)
	assert.Equal(t, "secret", captured.Password)
	assert.Equal(t, "01", captured.Company)
	assert.NotEmpty(t, captured.RequestID)
	assert.Empty(t, captured.Auth)
}

func TestLoginUnderPathPrefix(t *testing.T) {
	server, captured := newLoginServer(t, http.StatusOK, successBody)
	client := NewClient(server.URL+"/erp/api/", EncodingJSON, time.Second)

	_, err := client.Login(context.Background(), Credentials{Username: "ada", Password: "secret"}, "")
	require.NoError(t, err)
	assert.Equal(t, "/erp/api/users.php", captured.Path)
}

func TestLoginWrongEndpoint(t *testing.T) {
	server, _ := newLoginServer(t, http.StatusOK, successBody)
	client := NewClient(server.URL+"/v2", EncodingJSON, time.Second)

	_, err := client.Login(context.Background(), Credentials{Username: "ada", Password: "secret"}, "")
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, http.StatusNotFound, authErr.Status)
}

func TestLoginEncodings(t *testing.T) {
	for _, encoding := range []Encoding{EncodingForm, EncodingMultipart} {
		t.Run(string(encoding), func(t *testing.T) {
			server, captured := newLoginServer(t, http.StatusOK, successBody)
			client := NewClient(server.URL, encoding, time.Second)

			_, err := client.Login(context.Background(), Credentials{Username: "ada", Password: "secret", Company: "07"}, "tok")
			require.NoError(t, err)
			assert.Equal(t, "ada", captured.Username)
			assert.Equal(t, "secret", captured.Password)
			assert.Equal(t, "07", captured.Company)
			assert.Equal(t, "Bearer tok", captured.Auth)
			assert.NotEqual(t, "application/json", captured.ContentType)
		})
	}
}

func TestLoginRejected(t *testing.T) {
	server, _ := newLoginServer(t, http.StatusOK, `{"status":"false","message":"Invalid password"}`)
	client := NewClient(server.URL, EncodingJSON, time.Second)

	_, err := client.Login(context.Background(), Credentials{Username: "ada", Password: "wrong"}, "")
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	require.Equal(t, "Invalid password", authErr.Message)
}

func TestLoginRejectedWithoutMessage(t *testing.T) {
	server, _ := newLoginServer(t, http.StatusUnauthorized, `{"status":false}`)
	client := NewClient(server.URL, EncodingJSON, time.Second)

	_, err := client.Login(context.Background(), Credentials{Username: "ada", Password: "wrong"}, "")
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	require.Equal(t, MessageLoginFailed, authErr.Message)
	require.Equal(t, http.StatusUnauthorized, authErr.Status)
}

func TestLoginUserMissingFromResponse(t *testing.T) {
	server, _ := newLoginServer(t, http.StatusOK, `{"status":"true","data":[{"user_id":"other"}]}`)
	client := NewClient(server.URL, EncodingJSON, time.Second)

	_, err := client.Login(context.Background(), Credentials{Username: "ada", Password: "secret"}, "")
	require.ErrorIs(t, err, ErrUserNotInResponse)
}

func TestLoginServerErrorWithoutJSON(t *testing.T) {
	server, _ := newLoginServer(t, http.StatusBadGateway, `<html>bad gateway</html>`)
	client := NewClient(server.URL, EncodingJSON, time.Second)

	_, err := client.Login(context.Background(), Credentials{Username: "ada", Password: "secret"}, "")
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	require.Equal(t, MessageNetworkError, authErr.Message)
}

func TestLoginNetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := NewClient(url, EncodingJSON, time.Second)
	_, err := client.Login(context.Background(), Credentials{Username: "ada", Password: "secret"}, "")
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	require.Equal(t, MessageNetworkError, authErr.Message)
	require.Error(t, errors.Unwrap(authErr))
}

func TestLoginRequiresBaseURL(t *testing.T) {
	client := NewClient("  ", EncodingJSON, 0)
	_, err := client.Login(context.Background(), Credentials{Username: "ada", Password: "secret"}, "")
	require.ErrorIs(t, err, ErrBaseURLRequired)
}

func TestParseEncoding(t *testing.T) {
	enc, err := ParseEncoding("")
	require.NoError(t, err)
	require.Equal(t, EncodingJSON, enc)

	enc, err = ParseEncoding(" Multipart ")
	require.NoError(t, err)
	require.Equal(t, EncodingMultipart, enc)

	_, err = ParseEncoding("xml")
	require.Error(t, err)
}

func TestCredentialsValidate(t *testing.T) {
	require.NoError(t, Credentials{Username: "ada", Password: "abc"}.Validate())

	err := Credentials{Username: " ", Password: ""}.Validate()
	var fieldErrs FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	require.Equal(t, MessageUsernameRequired, fieldErrs["username"])
	require.Equal(t, MessagePasswordRequired, fieldErrs["password"])
	require.Equal(t, "Username is required; Password is required", err.Error())

	err = Credentials{Username: "ada", Password: "ab"}.Validate()
	require.ErrorAs(t, err, &fieldErrs)
	require.Equal(t, MessagePasswordTooShort, fieldErrs["password"])
}

type recordedFailure struct {
	username, message string
}

type failureLog struct {
	mu       sync.Mutex
	failures []recordedFailure
}

func (f *failureLog) LoginFailed(username, message string) {
	f.mu.Lock()
	f.failures = append(f.failures, recordedFailure{username, message})
	f.mu.Unlock()
}

func newSessionStore(t *testing.T) *session.Store {
	t.Helper()
	store := session.NewStore(kv.NewMemory(), session.WithLogger(zerolog.Nop()))
	store.Bootstrap(context.Background())
	t.Cleanup(func() { _ = store.Close(context.Background()) })
	return store
}

func TestServiceLoginSetsCredentials(t *testing.T) {
	server, _ := newLoginServer(t, http.StatusOK, `{"status":"true","token":"jwt","data":[{"user_id":"ada"}]}`)
	sessions := newSessionStore(t)
	failures := &failureLog{}
	svc := NewService(NewClient(server.URL, EncodingJSON, time.Second), sessions, failures)

	result, err := svc.Login(context.Background(), Credentials{Username: "ada", Password: "secret"})
	require.NoError(t, err)
	require.Equal(t, "ada", result.User.ID())
	require.True(t, sessions.IsAuthenticated())
	require.Equal(t, "jwt", sessions.Token())
	require.Empty(t, failures.failures)
}

func TestServiceLoginFailureLeavesSessionAlone(t *testing.T) {
	server, _ := newLoginServer(t, http.StatusOK, `{"status":"false","message":"Unknown company"}`)
	sessions := newSessionStore(t)
	failures := &failureLog{}
	svc := NewService(NewClient(server.URL, EncodingJSON, time.Second), sessions, failures)

	_, err := svc.Login(context.Background(), Credentials{Username: "ada", Password: "secret"})
	require.Error(t, err)
	require.Equal(t, "Unknown company", UserMessage(err))
	require.False(t, sessions.IsAuthenticated())
	require.Equal(t, []recordedFailure{{"ada", "Unknown company"}}, failures.failures)
}

func TestServiceLoginValidatesBeforeCalling(t *testing.T) {
	server, captured := newLoginServer(t, http.StatusOK, successBody)
	sessions := newSessionStore(t)
	svc := NewService(NewClient(server.URL, EncodingJSON, time.Second), sessions, nil)

	_, err := svc.Login(context.Background(), Credentials{Username: "ada", Password: "x"})
	require.Error(t, err)
	require.Equal(t, MessagePasswordTooShort, UserMessage(err))
	require.Empty(t, captured.Method)
}

func TestUserMessage(t *testing.T) {
	require.Empty(t, UserMessage(nil))
	require.Equal(t, "Please check your credentials and try again.", UserMessage(errors.New("boom")))
}

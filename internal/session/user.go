// Package session holds the authenticated-user state of the running process.
package session

import (
	"encoding/json"
	"fmt"
	"maps"
	"strconv"
	"strings"
)

// User is an opaque, server-defined user record. Only user_id is required.
type User map[string]any

// UserIDField is the key identifying a user record.
const UserIDField = "user_id"

// ID returns user_id rendered as a string, or "" when absent.
func (u User) ID() string {
	return field(u, UserIDField)
}

// DisplayName picks the most human-friendly name the server provided.
func (u User) DisplayName() string {
	for _, key := range []string{"name", "full_name", "user_name", "username"} {
		if v := field(u, key); v != "" {
			return v
		}
	}
	return u.ID()
}

// Company returns the company code if present.
func (u User) Company() string {
	return field(u, "company")
}

// Clone returns a shallow copy.
func (u User) Clone() User {
	if u == nil {
		return nil
	}
	return maps.Clone(u)
}

func field(u User, key string) string {
	if u == nil {
		return ""
	}
	switch v := u[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// ParseUser decodes a JSON user record. JSON null decodes to nil.
func ParseUser(data []byte) (User, error) {
	var u User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return u, nil
}

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/desolution/erpshell/internal/db"
	"github.com/desolution/erpshell/internal/models"
)

var (
	eventsLimit  int
	eventsType   string
	eventsEntity string
	eventsSince  string
	eventsCursor string
)

func init() {
	rootCmd.AddCommand(eventsCmd)

	eventsCmd.Flags().IntVarP(&eventsLimit, "limit", "n", 20, "maximum number of events")
	eventsCmd.Flags().StringVar(&eventsType, "type", "", "filter by event type (e.g. theme.changed)")
	eventsCmd.Flags().StringVar(&eventsEntity, "entity", "", "filter by user or theme id")
	eventsCmd.Flags().StringVar(&eventsSince, "since", "", "only events after this time (RFC3339 or duration like 24h)")
	eventsCmd.Flags().StringVar(&eventsCursor, "cursor", "", "continue from a previous page")
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show the audit trail",
	Long:  "Show recent sign-ins, sign-outs and theme changes recorded in the local database.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		query, err := buildEventQuery(eventsType, eventsEntity, eventsSince, eventsCursor, eventsLimit, time.Now())
		if err != nil {
			return err
		}
		return withApp(cmd.Context(), func(a *app) error {
			return runEvents(cmd.Context(), cmd.OutOrStdout(), a, query)
		})
	},
}

func buildEventQuery(eventType, entity, since, cursor string, limit int, now time.Time) (db.EventQuery, error) {
	query := db.EventQuery{Cursor: strings.TrimSpace(cursor), Limit: limit}
	if limit <= 0 {
		return query, fmt.Errorf("--limit must be positive")
	}

	if eventType = strings.TrimSpace(eventType); eventType != "" {
		t := models.EventType(eventType)
		if !t.Valid() {
			return query, fmt.Errorf("unknown event type %q", eventType)
		}
		query.Type = &t
	}
	if entity = strings.TrimSpace(entity); entity != "" {
		query.EntityID = &entity
	}
	if since = strings.TrimSpace(since); since != "" {
		ts, err := parseSince(since, now)
		if err != nil {
			return query, err
		}
		query.Since = &ts
	}
	return query, nil
}

func parseSince(value string, now time.Time) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts, nil
	}
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return now.Add(-d), nil
	}
	if days, ok := strings.CutSuffix(value, "d"); ok {
		if n, err := strconv.Atoi(days); err == nil && n > 0 {
			return now.AddDate(0, 0, -n), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid --since value %q (use RFC3339, 24h or 7d)", value)
}

func runEvents(ctx context.Context, out io.Writer, a *app, query db.EventQuery) error {
	if a.eventRepo == nil {
		return &PreflightError{
			Message:  "The audit trail needs the local database",
			Hint:     "The memory storage backend does not keep events",
			NextStep: "erpshell --storage sqlite events",
		}
	}

	page, err := a.eventRepo.Query(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to query events: %w", err)
	}

	if IsJSONOutput() || IsJSONLOutput() {
		if IsJSONLOutput() {
			return WriteOutput(out, page.Events)
		}
		return WriteOutput(out, struct {
			Events     []*models.Event `json:"events"`
			NextCursor string          `json:"next_cursor,omitempty"`
		}{page.Events, page.NextCursor})
	}

	if len(page.Events) == 0 {
		fmt.Fprintln(out, "No events recorded")
		return nil
	}

	rows := make([][]string, 0, len(page.Events))
	for _, event := range page.Events {
		rows = append(rows, []string{
			formatTimestamp(event.Timestamp),
			formatEventType(event.Type),
			event.EntityID,
			describePayload(event),
		})
	}
	if err := writeTable(out, []string{"TIME", "EVENT", "SUBJECT", "DETAILS"}, rows); err != nil {
		return err
	}
	if page.NextCursor != "" {
		fmt.Fprintf(out, "\nMore: erpshell events --cursor %s\n", page.NextCursor)
	}
	return nil
}

func describePayload(event *models.Event) string {
	if len(event.Payload) == 0 {
		return ""
	}
	switch event.Type {
	case models.EventTypeThemeChanged:
		var p models.ThemeChangedPayload
		if json.Unmarshal(event.Payload, &p) == nil {
			return fmt.Sprintf("%s -> %s", p.From, p.To)
		}
	case models.EventTypeSessionStarted, models.EventTypeSessionRestored, models.EventTypeSessionEnded:
		var p models.SessionPayload
		if json.Unmarshal(event.Payload, &p) == nil {
			if p.Company == "" {
				return fmt.Sprintf("token=%s", formatYesNo(p.HasToken))
			}
			return fmt.Sprintf("company=%s token=%s", p.Company, formatYesNo(p.HasToken))
		}
	case models.EventTypeLoginFailed:
		var p models.LoginFailedPayload
		if json.Unmarshal(event.Payload, &p) == nil {
			return p.Message
		}
	}
	return string(event.Payload)
}

package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// CalendarEntry is one calendar from the user's calendar list.
type CalendarEntry struct {
	ID       string `json:"id"`
	Summary  string `json:"summary"`
	Primary  bool   `json:"primary"`
	TimeZone string `json:"timeZone"`
}

// EventTime is either a full timestamp (DateTime) or a calendar date
// (Date) for all-day events. Exactly one of the two is set.
type EventTime struct {
	DateTime string `json:"dateTime,omitempty"`
	Date     string `json:"date,omitempty"`
	TimeZone string `json:"timeZone,omitempty"`
}

// Event is the subset of a Calendar v3 event this application reads.
type Event struct {
	ID        string    `json:"id"`
	Summary   string    `json:"summary"`
	Location  string    `json:"location"`
	HTMLLink  string    `json:"htmlLink"`
	Status    string    `json:"status"`
	Start     EventTime `json:"start"`
	End       EventTime `json:"end"`
	Organizer *struct {
		Email string `json:"email"`
	} `json:"organizer"`
}

// EventsQuery bounds an events-list call.
type EventsQuery struct {
	TimeMin    time.Time
	TimeMax    time.Time
	MaxResults int
}

// ListCalendars returns the user's calendar list.
func (c *Client) ListCalendars(ctx context.Context, accessToken string) ([]CalendarEntry, error) {
	u := c.CalendarBaseURL + "/users/me/calendarList?maxResults=250"

	var payload struct {
		Items []CalendarEntry `json:"items"`
	}
	if err := c.getJSON(ctx, u, accessToken, &payload); err != nil {
		return nil, err
	}
	return payload.Items, nil
}

// ListEvents returns single (non-recurring-expanded) events ordered by
// start time within the query window.
func (c *Client) ListEvents(ctx context.Context, accessToken, calendarID string, q EventsQuery) ([]Event, error) {
	v := url.Values{}
	v.Set("singleEvents", "true")
	v.Set("orderBy", "startTime")
	v.Set("timeMin", q.TimeMin.Format(time.RFC3339))
	v.Set("timeMax", q.TimeMax.Format(time.RFC3339))
	v.Set("maxResults", strconv.Itoa(q.MaxResults))

	u := c.CalendarBaseURL + "/calendars/" + url.PathEscape(calendarID) + "/events?" + v.Encode()

	var payload struct {
		Items []Event `json:"items"`
	}
	if err := c.getJSON(ctx, u, accessToken, &payload); err != nil {
		return nil, err
	}
	return payload.Items, nil
}

func (c *Client) getJSON(ctx context.Context, u, accessToken string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return &APIError{StatusCode: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("google: decode response: %w", err)
	}
	return nil
}

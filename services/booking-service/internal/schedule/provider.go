package schedule

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DaySchedule is a teacher's declared availability for one calendar date:
// the colored range set resolved for that date, plus the teacher's timezone.
type DaySchedule struct {
	TimeRanges []string
	Timezone   string
}

// Provider fetches a teacher's day schedule from profile-service.
type Provider interface {
	DaySchedule(ctx context.Context, teacherID, date string) (DaySchedule, bool, error)
}

type httpProvider struct {
	baseURL string
	client  *http.Client
}

// NewHTTPProvider talks to profile-service's internal schedule endpoint.
func NewHTTPProvider(baseURL string) Provider {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil
	}
	return &httpProvider{
		baseURL: baseURL,
		client: &http.Client{
			Timeout:   3 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type dayScheduleResponse struct {
	TimeRanges []string `json:"time_ranges"`
	Timezone   string   `json:"timezone"`
}

func (p *httpProvider) DaySchedule(ctx context.Context, teacherID, date string) (DaySchedule, bool, error) {
	endpoint := fmt.Sprintf("%s/internal/v1/schedule?teacher_id=%s&date=%s",
		p.baseURL, url.QueryEscape(teacherID), url.QueryEscape(date))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return DaySchedule{}, false, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return DaySchedule{}, false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return DaySchedule{}, false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return DaySchedule{}, false, fmt.Errorf("schedule fetch: unexpected status %d", resp.StatusCode)
	}

	var body dayScheduleResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return DaySchedule{}, false, err
	}
	if len(body.TimeRanges) == 0 {
		return DaySchedule{}, false, nil
	}
	return DaySchedule{TimeRanges: body.TimeRanges, Timezone: body.Timezone}, true, nil
}

// internal/collaborators/intent/client.go
package intent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	httpclient "api-insights/internal/common/http"
	"api-insights/internal/common/logger"
	"api-insights/internal/models"
)

var (
	ErrIntentResolutionFailed = errors.New("INTENT_RESOLUTION_FAILED")
	ErrIntentAPITimeout       = errors.New("INTENT_API_TIMEOUT")
)

// acceptedLayouts covers the reply formats the collaborator is known to
// produce: full RFC 3339 timestamps and bare dates.
var acceptedLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}

// predictionWindow is the minimum lookback for forward-looking questions.
// Predicting from less than a month of history produces noise.
const predictionWindow = 30 * 24 * time.Hour

var predictionTerms = []string{"predict", "forecast", "project", "expect", "anticipat", "next week", "next month"}

func isPredictionQuery(userQuery string) bool {
	q := strings.ToLower(userQuery)
	for _, term := range predictionTerms {
		if strings.Contains(q, term) {
			return true
		}
	}
	return false
}

// Client resolves a free-text query into a time range and target entity
// via the intent-resolution collaborator.
type Client struct {
	config *Config
	http   *httpclient.Client
	logger logger.Logger
	now    func() time.Time
}

func NewClient(config *Config, log logger.Logger) *Client {
	return &Client{
		config: config,
		http:   httpclient.NewClient(config.Timeout, config.MaxRetries, config.APIKey),
		logger: log.WithFields(map[string]interface{}{"collaborator": "intent"}),
		now:    time.Now,
	}
}

// Resolve calls the collaborator and parses its reply into an Intent. The
// API inventory grounds target selection; the collaborator answers with
// the TargetNoData sentinel when no inventory entry matches.
func (c *Client) Resolve(ctx context.Context, userQuery string, apis []models.APIInfo) (*models.Intent, error) {
	req := request{
		UserQuery:   userQuery,
		CurrentTime: c.now().UTC().Format(time.RFC3339),
		Model:       c.config.Model,
		APIs:        apis,
	}

	var resp response
	if err := c.http.PostJSON(ctx, c.config.GenAIBaseURL+"/api/ai/resolve-intent", req, &resp); err != nil {
		if errors.Is(err, httpclient.ErrDeadline) {
			return nil, ErrIntentAPITimeout
		}
		return nil, fmt.Errorf("%w: %v", ErrIntentResolutionFailed, err)
	}

	intent, err := c.parse(&resp)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIntentResolutionFailed, err)
	}

	// Forward-looking questions need at least a month of history behind
	// them, whatever window the collaborator picked.
	if isPredictionQuery(userQuery) && intent.TimeRange.Span() < predictionWindow {
		intent.TimeRange.Start = intent.TimeRange.End.Add(-predictionWindow)
	}

	c.logger.Info("intent resolved", map[string]interface{}{
		"start":      intent.TimeRange.Start.Format(time.RFC3339),
		"end":        intent.TimeRange.End.Format(time.RFC3339),
		"targetId":   intent.Target.ID,
		"targetName": intent.Target.Name,
	})

	return intent, nil
}

// parse validates the wire reply against the intent contract and widens
// the window to the 24-hour minimum when the collaborator returned less.
func (c *Client) parse(resp *response) (*models.Intent, error) {
	if resp.StartTime == "" || resp.EndTime == "" {
		return nil, errors.New("reply missing start_time or end_time")
	}
	if resp.TargetID == "" {
		return nil, errors.New("reply missing targetId")
	}

	start, err := parseTimestamp(resp.StartTime)
	if err != nil {
		return nil, fmt.Errorf("invalid start_time %q: %v", resp.StartTime, err)
	}
	end, err := parseTimestamp(resp.EndTime)
	if err != nil {
		return nil, fmt.Errorf("invalid end_time %q: %v", resp.EndTime, err)
	}

	if !end.After(start) {
		return nil, fmt.Errorf("end_time %q not after start_time %q", resp.EndTime, resp.StartTime)
	}

	if end.Sub(start) < models.MinWindow {
		start = end.Add(-models.MinWindow)
	}

	return &models.Intent{
		TimeRange: models.TimeRange{Start: start, End: end},
		Target:    models.Target{Name: resp.TargetName, ID: resp.TargetID},
	}, nil
}

func parseTimestamp(value string) (time.Time, error) {
	var lastErr error
	for _, layout := range acceptedLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

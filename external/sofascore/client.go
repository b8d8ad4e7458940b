package sofascore

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/valyala/fasthttp"
	"golang.org/x/time/rate"

	"github.com/riskibarqy/matchpoint/internal/domain/match"
	"github.com/riskibarqy/matchpoint/internal/platform/cache"
	"github.com/riskibarqy/matchpoint/internal/platform/logging"
	"github.com/riskibarqy/matchpoint/internal/platform/resilience"
	"github.com/riskibarqy/matchpoint/internal/usecase"
)

const (
	ProviderName = "sofascore"

	dayEventsPathFormat  = "/sport/tennis/scheduled-events/%s"
	liveEventsPath       = "/sport/tennis/events/live"
	statisticsPathFormat = "/event/%s/statistics"

	maxResponseBodySize = 6 << 20
)

// The second host answers when the first one serves a 403 challenge.
var defaultBaseURLs = []string{
	"https://api.sofascore.com/api/v1",
	"https://www.sofascore.com/api/v1",
}

// The public API rejects non-browser clients, so every request carries a
// full browser header set.
var browserHeaders = map[string]string{
	"User-Agent": "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) " +
		"Chrome/121.0.0.0 Safari/537.36",
	"Accept":             "application/json, text/plain, */*",
	"Accept-Language":    "en-US,en;q=0.9",
	"Origin":             "https://www.sofascore.com",
	"Referer":            "https://www.sofascore.com/",
	"sec-ch-ua":          `"Chromium";v="121", "Not A(Brand";v="99", "Google Chrome";v="121"`,
	"sec-ch-ua-mobile":   "?0",
	"sec-ch-ua-platform": `"Windows"`,
	"Sec-Fetch-Site":     "same-site",
	"Sec-Fetch-Mode":     "cors",
	"Sec-Fetch-Dest":     "empty",
}

type ClientConfig struct {
	HTTPClient     *fasthttp.Client
	BaseURLs       []string
	Timeout        time.Duration
	MaxRetries     int
	RateLimit      float64
	RateBurst      int
	ScheduleTTL    time.Duration
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

type Client struct {
	httpClient *fasthttp.Client
	bases      []string
	timeout    time.Duration
	maxRetries int
	limiter    *rate.Limiter
	logger     *logging.Logger
	breaker    *resilience.CircuitBreaker
	flight     resilience.SingleFlight[[]byte]
	schedule   *cache.Store[[]match.Event]
	now        func() time.Time
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &fasthttp.Client{
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxResponseBodySize: maxResponseBodySize,
		}
	}

	bases := make([]string, 0, len(cfg.BaseURLs))
	for _, base := range cfg.BaseURLs {
		base = strings.TrimRight(strings.TrimSpace(base), "/")
		if base != "" {
			bases = append(bases, base)
		}
	}
	if len(bases) == 0 {
		bases = defaultBaseURLs
	}

	rateLimit := cfg.RateLimit
	if rateLimit <= 0 {
		rateLimit = 2
	}
	rateBurst := cfg.RateBurst
	if rateBurst < 1 {
		rateBurst = 4
	}

	scheduleTTL := cfg.ScheduleTTL
	if scheduleTTL <= 0 {
		scheduleTTL = time.Minute
	}

	return &Client{
		httpClient: httpClient,
		bases:      bases,
		timeout:    timeout,
		maxRetries: maxInt(cfg.MaxRetries, 0),
		limiter:    rate.NewLimiter(rate.Limit(rateLimit), rateBurst),
		logger:     logger,
		breaker:    resilience.NewCircuitBreaker(cfg.CircuitBreaker),
		schedule:   cache.NewStore[[]match.Event](scheduleTTL),
		now:        time.Now,
	}
}

func (c *Client) Name() string {
	return ProviderName
}

// FindTodayEvents returns the current local day's events whose home or away
// participant matches playerName. The day schedule is fetched at most once
// per TTL no matter how many names the engine asks about.
func (c *Client) FindTodayEvents(ctx context.Context, playerName string, loc *time.Location) ([]match.Event, error) {
	if strings.TrimSpace(playerName) == "" {
		return nil, fmt.Errorf("%w: player name is required", usecase.ErrInvalidInput)
	}

	day := match.FormatDay(c.now(), loc)
	events, err := c.EventsByDate(ctx, day)
	if err != nil {
		return nil, err
	}

	matched := make([]match.Event, 0, 2)
	for _, ev := range events {
		if match.NameMatches(ev.HomeName, playerName) || match.NameMatches(ev.AwayName, playerName) {
			matched = append(matched, ev)
		}
	}
	return matched, nil
}

// EventsByDate returns the filtered day schedule. A 403 challenge from every
// base falls back to the live feed so menus keep working.
func (c *Client) EventsByDate(ctx context.Context, day string) ([]match.Event, error) {
	day = strings.TrimSpace(day)
	if _, err := time.Parse(match.DayLayout, day); err != nil {
		return nil, fmt.Errorf("%w: day must be formatted YYYY-MM-DD", usecase.ErrInvalidInput)
	}

	return c.schedule.GetOrLoad(ctx, "schedule:"+day, func(ctx context.Context) ([]match.Event, error) {
		var envelope scheduleEnvelope
		err := c.getJSON(ctx, fmt.Sprintf(dayEventsPathFormat, day), &envelope)
		if err != nil {
			var httpErr *usecase.ProviderHTTPError
			if !stderrors.As(err, &httpErr) || httpErr.Status != http.StatusForbidden {
				return nil, fmt.Errorf("fetch day schedule day=%s: %w", day, err)
			}
			c.logger.WarnContext(ctx, "sofascore day schedule blocked, falling back to live feed", "day", day)
			if liveErr := c.getJSON(ctx, liveEventsPath, &envelope); liveErr != nil {
				return nil, fmt.Errorf("fetch live events day=%s: %w", day, liveErr)
			}
		}
		return mapAllowedEvents(envelope.Events), nil
	})
}

// FetchStatistics returns the normalized statistics payload for one event.
// An answer without a statistics section is ErrStatsMissing, not a failure.
func (c *Client) FetchStatistics(ctx context.Context, providerEventID string) (usecase.ExternalMatchStats, error) {
	eventID := strings.TrimSpace(providerEventID)
	if eventID == "" {
		return usecase.ExternalMatchStats{}, fmt.Errorf("%w: event id is required", usecase.ErrInvalidInput)
	}

	var envelope statisticsEnvelope
	if err := c.getJSON(ctx, fmt.Sprintf(statisticsPathFormat, eventID), &envelope); err != nil {
		return usecase.ExternalMatchStats{}, fmt.Errorf("fetch statistics event_id=%s: %w", eventID, err)
	}
	if len(envelope.Statistics) == 0 {
		return usecase.ExternalMatchStats{}, fmt.Errorf("event_id=%s: %w", eventID, usecase.ErrStatsMissing)
	}

	return mapStatistics(eventID, envelope), nil
}

// GroupTournaments builds the name-sorted tournament menu from a day's
// events. Events that never resolved an id are left out.
func (c *Client) GroupTournaments(events []match.Event) []match.Tournament {
	seen := make(map[string]struct{}, len(events))
	out := make([]match.Tournament, 0, len(events))
	for _, ev := range events {
		id := strings.TrimSpace(ev.Tournament.ID)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, ev.Tournament)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (c *Client) getJSON(ctx context.Context, path string, target any) error {
	if err := c.breaker.Allow(); err != nil {
		c.logger.WarnContext(ctx, "sofascore circuit breaker rejected request", "state", c.breaker.State())
		return fmt.Errorf("%w: match data provider is temporarily unavailable", usecase.ErrDependencyUnavailable)
	}

	raw, err, _ := c.flight.Do(path, func() ([]byte, error) {
		body, reqErr := c.executeRequest(ctx, path)
		if reqErr != nil && isSofaScoreCircuitFailure(reqErr) {
			c.breaker.RecordFailure()
		} else {
			c.breaker.RecordSuccess()
		}
		return body, reqErr
	})
	if err != nil {
		return err
	}

	if err := sonic.Unmarshal(raw, target); err != nil {
		return &usecase.ProviderHTTPError{
			Provider: ProviderName,
			Err:      fmt.Errorf("decode provider payload: %w", err),
		}
	}
	return nil
}

// executeRequest walks the base hosts in order and retries transient
// failures with a linear backoff. The returned error is the last base's
// one, matching the fallback decision made by EventsByDate.
func (c *Client) executeRequest(ctx context.Context, path string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		for _, base := range c.bases {
			body, err := c.fetchOnce(ctx, base+path)
			if err == nil {
				return body, nil
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
		}

		if attempt == c.maxRetries || !isSofaScoreCircuitFailure(lastErr) {
			break
		}
		backoff := time.Duration(attempt+1) * time.Second
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = &usecase.ProviderHTTPError{Provider: ProviderName, Err: crerr.New("no base url configured")}
	}
	c.logger.WarnContext(ctx, "sofascore request failed", "path", path, "error", lastErr)
	return nil, lastErr
}

func (c *Client) fetchOnce(ctx context.Context, fullURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(fullURL)
	req.Header.SetMethod(fasthttp.MethodGet)
	for key, value := range browserHeaders {
		req.Header.Set(key, value)
	}

	deadline := time.Now().Add(c.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	if err := c.httpClient.DoDeadline(req, resp, deadline); err != nil {
		return nil, &usecase.ProviderHTTPError{
			Provider: ProviderName,
			Err:      fmt.Errorf("send request: %w", err),
		}
	}

	status := resp.StatusCode()
	body := append([]byte(nil), resp.Body()...)
	if status < 200 || status >= 300 {
		return nil, &usecase.ProviderHTTPError{
			Provider: ProviderName,
			Status:   status,
			Err:      fmt.Errorf("body=%s", abbreviateBody(body)),
		}
	}
	return body, nil
}

// isSofaScoreCircuitFailure reports whether the failure says anything about
// provider health: transport errors and retryable statuses do, a clean
// 4xx answer or our own cancellation does not.
func isSofaScoreCircuitFailure(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var httpErr *usecase.ProviderHTTPError
	if !stderrors.As(err, &httpErr) {
		return false
	}
	return httpErr.Status == 0 || isRetryableStatus(httpErr.Status)
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func abbreviateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= 240 {
		return text
	}
	return text[:240] + "..."
}

func maxInt(left, right int) int {
	if left > right {
		return left
	}
	return right
}

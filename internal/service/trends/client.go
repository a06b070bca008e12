package trends

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"strings"
	"sync"
	"time"

	"TrendPulse/internal/domain/models"
	drepo "TrendPulse/internal/domain/repository"
	xhttp "TrendPulse/pkg/http"
	applogger "TrendPulse/pkg/logger"
	"TrendPulse/pkg/util"
)

const (
	explorePath   = "/api/explore"
	multilinePath = "/api/widgetdata/multiline"
	timeseriesID  = "TIMESERIES"
	userAgent     = "Mozilla/5.0 (compatible; trendpulse/1.0)"
)

// Options configures the Google Trends client.
type Options struct {
	BaseURL  string
	Language string
	TZOffset int
	Geo      string
	Timeout  time.Duration
}

// Client implements TrendSource against the Google Trends widget API.
type Client struct {
	opts   Options
	client *xhttp.Client
	l      *applogger.Logger

	mu      sync.Mutex
	session bool
}

// New builds the client. It holds no per-request state beyond the session cookies
// shared by every call, and is safe for concurrent use.
func New(opts Options, l *applogger.Logger, clientOpts ...xhttp.ClientOption) *Client {
	if l == nil {
		l = applogger.Nop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	jar, _ := cookiejar.New(nil) // never fails without options
	clientOpts = append([]xhttp.ClientOption{
		xhttp.WithTimeout(opts.Timeout),
		xhttp.WithCookieJar(jar),
		xhttp.WithHeader("User-Agent", userAgent),
		xhttp.WithHeader("Accept", "application/json"),
	}, clientOpts...)
	return &Client{
		opts:   opts,
		client: xhttp.NewClient(clientOpts...),
		l:      l.With(applogger.String("component", "trends")),
	}
}

var _ drepo.TrendSource = (*Client)(nil)

type comparisonItem struct {
	Keyword string `json:"keyword"`
	Geo     string `json:"geo"`
	Time    string `json:"time"`
}

type exploreRequest struct {
	ComparisonItem []comparisonItem `json:"comparisonItem"`
	Category       int              `json:"category"`
	Property       string           `json:"property"`
}

type widget struct {
	ID      string          `json:"id"`
	Token   string          `json:"token"`
	Request json.RawMessage `json:"request"`
}

type exploreResponse struct {
	Widgets []widget `json:"widgets"`
}

type timelinePoint struct {
	Time      string `json:"time"`
	Value     []int  `json:"value"`
	HasData   []bool `json:"hasData"`
	IsPartial bool   `json:"isPartial"`
}

type multilineResponse struct {
	Default struct {
		TimelineData []timelinePoint `json:"timelineData"`
	} `json:"default"`
}

// InterestOverTime returns the interest table for keywords over timeframe ("YYYY-MM-DD YYYY-MM-DD").
func (c *Client) InterestOverTime(ctx context.Context, keywords []string, timeframe string) (models.InterestTable, error) {
	if len(keywords) == 0 {
		return models.InterestTable{}, fatalf("no keywords")
	}
	if err := c.ensureSession(ctx); err != nil {
		return models.InterestTable{}, err
	}
	w, err := c.explore(ctx, keywords, timeframe)
	if err != nil {
		c.dropSessionIfThrottled(err)
		return models.InterestTable{}, err
	}

	var body []byte
	err = c.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.opts.BaseURL + multilinePath,
		QueryParams: map[string][]string{
			"hl":    {c.opts.Language},
			"tz":    {strconv.Itoa(c.opts.TZOffset)},
			"req":   {string(w.Request)},
			"token": {w.Token},
		},
	}, &body)
	if err != nil {
		err = classify(ctx, "multiline", err)
		c.dropSessionIfThrottled(err)
		return models.InterestTable{}, err
	}

	var resp multilineResponse
	if err := decode(body, &resp); err != nil {
		return models.InterestTable{}, fatalf("decode multiline: %v", err)
	}
	tbl, err := toTable(keywords, resp.Default.TimelineData)
	if err != nil {
		return models.InterestTable{}, err
	}
	c.l.Debug("interest over time fetched",
		applogger.Strings("keywords", keywords),
		applogger.String("timeframe", timeframe),
		applogger.Int("rows", len(tbl.Index)),
	)
	return tbl, nil
}

// ensureSession fetches the landing page once so the cookie jar holds the NID cookie
// the widget API expects. Without it explore answers 429.
func (c *Client) ensureSession(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session {
		return nil
	}
	err := c.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         c.opts.BaseURL + "/",
		QueryParams: map[string][]string{"geo": {c.sessionGeo()}},
		Headers:     map[string]string{"Accept": "text/html"},
	}, nil)
	if err != nil {
		return classify(ctx, "session", err)
	}
	c.session = true
	c.l.Debug("trends session established")
	return nil
}

// dropSessionIfThrottled makes the next call fetch fresh cookies after a 429.
func (c *Client) dropSessionIfThrottled(err error) {
	if !errors.Is(err, drepo.ErrThrottled) {
		return
	}
	c.mu.Lock()
	c.session = false
	c.mu.Unlock()
}

// sessionGeo is the configured geo, or the region of the language ("en-US" gives "US").
func (c *Client) sessionGeo() string {
	if c.opts.Geo != "" {
		return c.opts.Geo
	}
	if i := strings.LastIndexByte(c.opts.Language, '-'); i >= 0 {
		return c.opts.Language[i+1:]
	}
	return ""
}

func (c *Client) explore(ctx context.Context, keywords []string, timeframe string) (*widget, error) {
	items := make([]comparisonItem, len(keywords))
	for i, k := range keywords {
		items[i] = comparisonItem{Keyword: k, Geo: c.opts.Geo, Time: timeframe}
	}
	req, err := json.Marshal(exploreRequest{ComparisonItem: items})
	if err != nil {
		return nil, fatalf("encode explore request: %v", err)
	}

	var body []byte
	err = c.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.opts.BaseURL + explorePath,
		QueryParams: map[string][]string{
			"hl":  {c.opts.Language},
			"tz":  {strconv.Itoa(c.opts.TZOffset)},
			"req": {string(req)},
		},
	}, &body)
	if err != nil {
		return nil, classify(ctx, "explore", err)
	}

	var resp exploreResponse
	if err := decode(body, &resp); err != nil {
		return nil, fatalf("decode explore: %v", err)
	}
	for i := range resp.Widgets {
		if resp.Widgets[i].ID == timeseriesID {
			return &resp.Widgets[i], nil
		}
	}
	return nil, fatalf("explore response has no %s widget", timeseriesID)
}

func toTable(keywords []string, points []timelinePoint) (models.InterestTable, error) {
	if len(points) == 0 {
		return models.InterestTable{}, nil
	}
	tbl := models.InterestTable{
		Index:     make([]time.Time, 0, len(points)),
		Values:    make(map[string][]float64, len(keywords)),
		IsPartial: make([]bool, 0, len(points)),
	}
	for _, p := range points {
		ts, ok := util.ParseUnix(p.Time)
		if !ok {
			return models.InterestTable{}, fatalf("bad timeline time %q", p.Time)
		}
		if len(p.Value) < len(keywords) {
			return models.InterestTable{}, fatalf("timeline row at %s has %d values for %d keywords", p.Time, len(p.Value), len(keywords))
		}
		tbl.Index = append(tbl.Index, ts)
		tbl.IsPartial = append(tbl.IsPartial, p.IsPartial)
		for i, k := range keywords {
			tbl.Values[k] = append(tbl.Values[k], float64(p.Value[i]))
		}
	}
	return tbl, nil
}

// decode strips the anti-XSSI prefix (")]}'") that precedes the JSON object.
func decode(body []byte, dest interface{}) error {
	i := bytes.IndexByte(body, '{')
	if i < 0 {
		return errors.New("no json object in response")
	}
	return json.Unmarshal(body[i:], dest)
}

// classify maps a transport failure onto a SourceError. Cancellation of ctx is passed
// through unclassified so the caller stops retrying.
func classify(ctx context.Context, call string, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%s: %w", call, err)
	}
	wrapped := fmt.Errorf("%s: %w", call, err)
	var se *xhttp.StatusError
	if !errors.As(err, &se) {
		return &drepo.SourceError{Class: drepo.ClassTransient, Err: wrapped}
	}
	switch {
	case se.StatusCode == http.StatusTooManyRequests:
		return &drepo.SourceError{Class: drepo.ClassThrottled, StatusCode: se.StatusCode, Err: fmt.Errorf("%s: %w", call, drepo.ErrThrottled)}
	case se.StatusCode >= 500:
		return &drepo.SourceError{Class: drepo.ClassTransient, StatusCode: se.StatusCode, Err: wrapped}
	default:
		return &drepo.SourceError{Class: drepo.ClassFatal, StatusCode: se.StatusCode, Err: wrapped}
	}
}

func fatalf(format string, a ...interface{}) error {
	return &drepo.SourceError{Class: drepo.ClassFatal, Err: fmt.Errorf(format, a...)}
}

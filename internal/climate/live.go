package climate

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rshade/carbonfocus/internal/cache"
	"github.com/rshade/carbonfocus/internal/logging"
)

// Upstream endpoints.
const (
	DefaultGridURL = "https://api.carbonintensity.org.uk/intensity"
	DefaultCO2URL  = "https://gml.noaa.gov/webdata/ccgg/trends/co2/co2_weekly_mlo.txt"
	DefaultNewsURL = "https://climate.nasa.gov/news/rss.xml"

	// DefaultTimeout bounds each upstream request.
	DefaultTimeout = 5 * time.Second

	userAgent    = "carbonfocus/1.0"
	maxBodyBytes = 2 << 20
	headlineLead = "Latest: "
)

const (
	cacheGrid = "grid"
	cacheCO2  = "co2"
	cacheNews = "news"
)

// Endpoints lists the upstream URLs. Empty fields use the defaults.
type Endpoints struct {
	GridURL string `yaml:"grid_url" json:"grid_url"`
	CO2URL  string `yaml:"co2_url"  json:"co2_url"`
	NewsURL string `yaml:"news_url" json:"news_url"`
}

func (e Endpoints) withDefaults() Endpoints {
	if e.GridURL == "" {
		e.GridURL = DefaultGridURL
	}
	if e.CO2URL == "" {
		e.CO2URL = DefaultCO2URL
	}
	if e.NewsURL == "" {
		e.NewsURL = DefaultNewsURL
	}
	return e
}

// Options configure a LiveProvider.
type Options struct {
	Endpoints  Endpoints
	Timeout    time.Duration
	HTTPClient *http.Client
	// Cache keeps the last good reading per source. Nil disables caching.
	Cache *cache.FileStore
	// Offline skips the network and serves cached readings or defaults.
	Offline bool
	Now     func() time.Time
}

// LiveProvider fetches grid intensity, atmospheric CO2 and a headline
// concurrently. A fresh cached reading is served without a request.
type LiveProvider struct {
	endpoints Endpoints
	timeout   time.Duration
	client    *http.Client
	cache     *cache.FileStore
	offline   bool
	now       func() time.Time
}

// NewLiveProvider builds a provider from opts.
func NewLiveProvider(opts Options) *LiveProvider {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &LiveProvider{
		endpoints: opts.Endpoints.withDefaults(),
		timeout:   timeout,
		client:    client,
		cache:     opts.Cache,
		offline:   opts.Offline,
		now:       now,
	}
}

type gridReading struct {
	GPerKWh float64 `json:"g_per_kwh"`
	Index   string  `json:"index"`
	From    string  `json:"from"`
}

type co2Reading struct {
	PPM  float64 `json:"ppm"`
	Date string  `json:"date"`
}

type newsReading struct {
	Headline string `json:"headline"`
}

// Fetch implements Provider.
func (p *LiveProvider) Fetch(ctx context.Context) Snapshot {
	log := logging.FromContext(ctx)
	start := p.now()

	var (
		grid     gridReading
		gridSrc  Source
		gridOK   bool
		co2      co2Reading
		co2Src   Source
		co2OK    bool
		news     newsReading
		newsSrc  Source
		newsOK   bool
		failures errgroup.Group
	)

	failures.Go(func() error {
		var err error
		gridOK, gridSrc, err = resolve(ctx, p, cache.Key(cacheGrid, p.endpoints.GridURL), &grid, p.fetchGrid)
		return err
	})
	failures.Go(func() error {
		var err error
		co2OK, co2Src, err = resolve(ctx, p, cache.Key(cacheCO2, p.endpoints.CO2URL), &co2, p.fetchCO2)
		return err
	})
	failures.Go(func() error {
		var err error
		newsOK, newsSrc, err = resolve(ctx, p, cache.Key(cacheNews, p.endpoints.NewsURL), &news, p.fetchNews)
		return err
	})

	if err := failures.Wait(); err != nil {
		ev := log.Warn()
		if p.offline {
			ev = log.Debug()
		}
		ev.Ctx(ctx).
			Str("component", "climate").
			Str("operation", "fetch").
			Err(err).
			Msg("climate data degraded")
	}

	snap := FallbackSnapshot(start.UTC())
	if gridOK {
		v := grid.GPerKWh
		snap.GridIntensityGPerKWh = &v
		snap.GridIndex = grid.Index
		snap.GridRegion = GridRegionUK
		snap.GridSource = gridSrc
	}
	if co2OK {
		v := co2.PPM
		snap.AtmosphericCO2PPM = &v
		snap.CO2Source = co2Src
	}
	if newsOK {
		snap.Headline = news.Headline
	}
	snap.Source = summarizeSource(snap.GridSource, snap.CO2Source, newsSrc)

	log.Debug().
		Ctx(ctx).
		Str("component", "climate").
		Str("operation", "fetch").
		Str("source", string(snap.Source)).
		Bool("grid", gridOK).
		Bool("co2", co2OK).
		Bool("news", newsOK).
		Dur("duration_ms", p.now().Sub(start)).
		Msg("climate snapshot ready")

	return snap
}

// resolve serves a fresh cache entry, otherwise fetches live and stores the
// result, otherwise falls back to a stale cache entry. ok is false when no
// value could be produced; err carries the upstream failure for logging.
func resolve[T any](
	ctx context.Context,
	p *LiveProvider,
	key string,
	out *T,
	fetch func(context.Context) (T, error),
) (bool, Source, error) {
	if p.cache != nil {
		if entry, fresh := p.cache.Fresh(key); fresh && entry.Decode(out) == nil {
			return true, SourceCached, nil
		}
	}

	var fetchErr error
	if p.offline {
		fetchErr = fmt.Errorf("%w: offline mode", ErrExternalDataUnavailable)
	} else {
		reqCtx, cancel := context.WithTimeout(ctx, p.timeout)
		v, err := fetch(reqCtx)
		cancel()
		if err == nil {
			*out = v
			if p.cache != nil {
				if putErr := p.cache.Put(key, v); putErr != nil {
					logging.FromContext(ctx).Debug().
						Ctx(ctx).
						Str("component", "climate").
						Str("key", key).
						Err(putErr).
						Msg("failed to cache climate reading")
				}
			}
			return true, SourceLive, nil
		}
		fetchErr = err
	}

	if p.cache != nil {
		if entry, err := p.cache.Get(key); err == nil && entry.Decode(out) == nil {
			return true, SourceCached, fetchErr
		}
	}
	return false, SourceCached, fetchErr
}

func (p *LiveProvider) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExternalDataUnavailable, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrExternalDataUnavailable, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned status %d", ErrExternalDataUnavailable, url, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrExternalDataUnavailable, url, err)
	}
	return body, nil
}

type intensityResponse struct {
	Data []struct {
		From      string `json:"from"`
		Intensity struct {
			Actual   *float64 `json:"actual"`
			Forecast *float64 `json:"forecast"`
			Index    string   `json:"index"`
		} `json:"intensity"`
	} `json:"data"`
}

func (p *LiveProvider) fetchGrid(ctx context.Context) (gridReading, error) {
	body, err := p.get(ctx, p.endpoints.GridURL)
	if err != nil {
		return gridReading{}, err
	}
	return parseGrid(body)
}

// parseGrid reads the first period, preferring the actual value over the forecast.
func parseGrid(body []byte) (gridReading, error) {
	var resp intensityResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return gridReading{}, fmt.Errorf("%w: grid intensity: %w", ErrExternalDataUnavailable, err)
	}
	if len(resp.Data) == 0 {
		return gridReading{}, fmt.Errorf("%w: grid intensity: empty data", ErrExternalDataUnavailable)
	}
	first := resp.Data[0]
	value := first.Intensity.Actual
	if value == nil {
		value = first.Intensity.Forecast
	}
	if value == nil || *value < 0 {
		return gridReading{}, fmt.Errorf("%w: grid intensity: no reading", ErrExternalDataUnavailable)
	}
	return gridReading{GPerKWh: *value, Index: first.Intensity.Index, From: first.From}, nil
}

func (p *LiveProvider) fetchCO2(ctx context.Context) (co2Reading, error) {
	body, err := p.get(ctx, p.endpoints.CO2URL)
	if err != nil {
		return co2Reading{}, err
	}
	return parseCO2(body)
}

// parseCO2 reads the last data row of the NOAA weekly table:
// year month day decimal_date ppm ...
func parseCO2(body []byte) (co2Reading, error) {
	var last string
	scanner := bufio.NewScanner(bytes.NewReader(body))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		last = line
	}
	if err := scanner.Err(); err != nil {
		return co2Reading{}, fmt.Errorf("%w: co2: %w", ErrExternalDataUnavailable, err)
	}

	const minFields = 5
	fields := strings.Fields(last)
	if len(fields) < minFields {
		return co2Reading{}, fmt.Errorf("%w: co2: no data rows", ErrExternalDataUnavailable)
	}
	ppm, err := strconv.ParseFloat(fields[4], 64)
	if err != nil {
		return co2Reading{}, fmt.Errorf("%w: co2: %w", ErrExternalDataUnavailable, err)
	}
	// NOAA marks missing weeks with -999.99.
	if ppm <= 0 {
		return co2Reading{}, fmt.Errorf("%w: co2: missing value %v", ErrExternalDataUnavailable, ppm)
	}
	return co2Reading{PPM: ppm, Date: strings.Join(fields[:3], "-")}, nil
}

type rssFeed struct {
	Channel struct {
		Title string `xml:"title"`
		Items []struct {
			Title string `xml:"title"`
		} `xml:"item"`
	} `xml:"channel"`
}

func (p *LiveProvider) fetchNews(ctx context.Context) (newsReading, error) {
	body, err := p.get(ctx, p.endpoints.NewsURL)
	if err != nil {
		return newsReading{}, err
	}
	return parseNews(body)
}

// parseNews takes the first item title of an RSS 2.0 feed.
func parseNews(body []byte) (newsReading, error) {
	var feed rssFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return newsReading{}, fmt.Errorf("%w: news: %w", ErrExternalDataUnavailable, err)
	}
	for _, item := range feed.Channel.Items {
		if title := strings.TrimSpace(item.Title); title != "" {
			return newsReading{Headline: headlineLead + title}, nil
		}
	}
	return newsReading{}, fmt.Errorf("%w: news: feed has no items", ErrExternalDataUnavailable)
}

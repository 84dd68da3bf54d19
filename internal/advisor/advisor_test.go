package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/carbonfocus/internal/climate"
	"github.com/rshade/carbonfocus/internal/emissions"
	"github.com/rshade/carbonfocus/internal/footprint"
	"github.com/rshade/carbonfocus/internal/history"
	"github.com/rshade/carbonfocus/internal/trend"
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

type fakeBackend struct {
	text   string
	err    error
	delay  time.Duration
	prompt string
}

func (f *fakeBackend) Name() string  { return "fake" }
func (f *fakeBackend) Model() string { return "fake-model" }

func (f *fakeBackend) Complete(ctx context.Context, prompt string) (string, error) {
	f.prompt = prompt
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.text, f.err
}

func sampleResult(total float64) footprint.Result {
	per := map[emissions.Category]float64{
		emissions.CategoryTransport:   total * 0.4,
		emissions.CategoryDiet:        total * 0.3,
		emissions.CategoryHeating:     total * 0.1,
		emissions.CategoryElectricity: total * 0.2,
		emissions.CategoryConsumption: 0,
	}
	return footprint.Result{
		Timestamp:   fixedNow,
		PerCategory: per,
		Total:       footprint.Sum(per),
		RegionUsed:  "uk",
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeComprehensive, false},
		{"quick-tips", ModeQuickTips, false},
		{"ACTION_PLAN", ModeActionPlan, false},
		{"compare", ModeCompare, false},
		{"poetry", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidRequest)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGenerateSuccess(t *testing.T) {
	backend := &fakeBackend{text: "  Cycle to work twice a week.  "}
	gen := NewGenerator(backend, WithClock(func() time.Time { return fixedNow }))

	advice, err := gen.Generate(context.Background(), Request{Footprint: sampleResult(10)})
	require.NoError(t, err)

	assert.Equal(t, "Cycle to work twice a week.", advice.Text)
	assert.Equal(t, ModeComprehensive, advice.Mode)
	assert.Equal(t, "fake-model", advice.Model)
	assert.Equal(t, fixedNow, advice.GeneratedAt)
	assert.Contains(t, backend.prompt, "March 14, 2026")
}

func TestGenerateBackendFailure(t *testing.T) {
	gen := NewGenerator(&fakeBackend{err: errors.New("connection refused")})

	advice, err := gen.Generate(context.Background(), Request{Footprint: sampleResult(10)})
	require.ErrorIs(t, err, ErrAdvisoryUnavailable)
	assert.Empty(t, advice.Text)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestGenerateEmptyResponse(t *testing.T) {
	gen := NewGenerator(&fakeBackend{text: "   "})
	_, err := gen.Generate(context.Background(), Request{Footprint: sampleResult(10)})
	require.ErrorIs(t, err, ErrAdvisoryUnavailable)
}

func TestGenerateTimeout(t *testing.T) {
	gen := NewGenerator(&fakeBackend{text: "late", delay: time.Second}, WithTimeout(20*time.Millisecond))

	_, err := gen.Generate(context.Background(), Request{Footprint: sampleResult(10), Mode: ModeQuickTips})
	require.ErrorIs(t, err, ErrAdvisoryUnavailable)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGenerateNoBackend(t *testing.T) {
	var gen *Generator
	_, err := gen.Generate(context.Background(), Request{})
	require.ErrorIs(t, err, ErrAdvisoryUnavailable)
}

func TestGenerateCompareNeedsReference(t *testing.T) {
	backend := &fakeBackend{text: "ok"}
	gen := NewGenerator(backend)

	_, err := gen.Generate(context.Background(), Request{Footprint: sampleResult(10), Mode: ModeCompare})
	require.ErrorIs(t, err, ErrInvalidRequest)
	assert.False(t, errors.Is(err, ErrAdvisoryUnavailable))
	assert.Empty(t, backend.prompt, "backend must not be called for an invalid request")
}

func TestBuildPromptComprehensive(t *testing.T) {
	intensity := 182.0
	ppm := 427.3
	snap := &climate.Snapshot{
		GridIntensityGPerKWh: &intensity,
		GridIndex:            "moderate",
		GridRegion:           "uk",
		GridSource:           climate.SourceLive,
		AtmosphericCO2PPM:    &ppm,
		CO2Source:            climate.SourceLive,
		Headline:             "Record heat in March",
	}
	avg := 12.0
	summary := trend.Summary{
		Window:       history.DateRange{From: fixedNow.AddDate(0, 0, -30), To: fixedNow},
		Count:        5,
		AverageTotal: &avg,
		SumTotal:     60,
		BestDay:      &trend.Extreme{Total: 8},
		WorstDay:     &trend.Extreme{Total: 15},
	}
	req := Request{
		Footprint: sampleResult(10),
		Trend:     &summary,
		Climate:   snap,
		Activity:  &footprint.ActivityInput{TransportMode: "car", DistanceKm: 23.5, DietType: "average"},
		Location:  "Leeds",
		Guidance:  "I work from home on Fridays",
	}

	prompt, err := BuildPrompt(req, fixedNow)
	require.NoError(t, err)

	for _, want := range []string{
		"Atmospheric CO₂: 427.3 ppm (live)",
		"Record heat in March",
		"182 gCO₂/kWh (moderate - UK, live)",
		"User Location: Leeds",
		"## USER'S SPECIFIC GUIDANCE\nI work from home on Fridays",
		"Total Daily Emissions: 10.00 kg CO₂",
		"Transport: 4.00 kg CO₂ (car, 23.5 km)",
		"HISTORICAL TREND (30 days, 5 records)",
		"Best Day: 8.00",
		"Trend: Improving",
		"IMPORTANT: Pay special attention",
	} {
		assert.Contains(t, prompt, want)
	}
}

func TestBuildPromptComprehensiveWithoutContext(t *testing.T) {
	prompt, err := BuildPrompt(Request{Footprint: sampleResult(10)}, fixedNow)
	require.NoError(t, err)
	assert.Contains(t, prompt, "425.0 ppm (cached)")
	assert.Contains(t, prompt, climate.DefaultHeadline)
	assert.NotContains(t, prompt, "HISTORICAL TREND")
	assert.NotContains(t, prompt, "Grid Carbon Intensity")
}

func TestBuildPromptQuickTips(t *testing.T) {
	prompt, err := BuildPrompt(Request{
		Footprint: sampleResult(10),
		Mode:      ModeQuickTips,
		Guidance:  "vegetarian already",
	}, fixedNow)
	require.NoError(t, err)
	assert.Contains(t, prompt, "3 quick, actionable tips to reduce a 10.0 kg CO₂/day footprint")
	assert.Contains(t, prompt, "biggest contributor is Transport")
	assert.True(t, strings.HasSuffix(prompt, "User's specific context/goals: vegetarian already\n"))
}

func TestBuildPromptCompare(t *testing.T) {
	ref := sampleResult(8)
	prompt, err := BuildPrompt(Request{Footprint: sampleResult(10), Mode: ModeCompare, Reference: &ref}, fixedNow)
	require.NoError(t, err)
	assert.Contains(t, prompt, "Previous: 8.00")
	assert.Contains(t, prompt, "Change: +2.00 kg CO₂/day (+25.0%)")
	assert.Contains(t, prompt, "Transport: 3.20 → 4.00 kg CO₂ (+0.80)")

	zero := footprint.Result{}
	prompt, err = BuildPrompt(Request{Footprint: sampleResult(10), Mode: ModeCompare, Reference: &zero}, fixedNow)
	require.NoError(t, err)
	assert.Contains(t, prompt, "Change: +10.00 kg CO₂/day\n")
}

func TestBuildPromptActionPlan(t *testing.T) {
	avg := 15.0
	summary := trend.Summary{AverageTotal: &avg, Count: 3}

	tests := []struct {
		name string
		req  Request
		want string
	}{
		{"explicit average", Request{Footprint: sampleResult(10), Mode: ModeActionPlan, CurrentAverage: 12}, "Current Average: 12.00"},
		{"trend average", Request{Footprint: sampleResult(10), Mode: ModeActionPlan, Trend: &summary}, "Current Average: 15.00"},
		{"footprint total", Request{Footprint: sampleResult(10), Mode: ModeActionPlan}, "Reduction Needed: 4.00 kg CO₂/day (40.0% reduction)"},
		{"custom target", Request{Footprint: sampleResult(10), Mode: ModeActionPlan, TargetDaily: 8}, "Target: 8.00 kg CO₂/day"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prompt, err := BuildPrompt(tt.req, fixedNow)
			require.NoError(t, err)
			assert.Contains(t, prompt, tt.want)
			assert.Contains(t, prompt, "3-month action plan")
		})
	}

	_, err := BuildPrompt(Request{Mode: ModeActionPlan}, fixedNow)
	require.ErrorIs(t, err, ErrInvalidRequest)
}

func TestOllamaBackend(t *testing.T) {
	var got ollamaGenerateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(ollamaGenerateResponse{Model: got.Model, Response: "Take the train.", Done: true})
	}))
	defer srv.Close()

	backend := NewOllamaBackend(srv.URL+"/", "", srv.Client())
	assert.Equal(t, DefaultOllamaModel, backend.Model())

	text, err := backend.Complete(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "Take the train.", text)
	assert.Equal(t, "hello", got.Prompt)
	assert.False(t, got.Stream)
}

func TestOllamaBackendErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	backend := NewOllamaBackend(srv.URL, "missing", srv.Client())
	_, err := backend.Complete(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")

	gen := NewGenerator(backend)
	_, err = gen.Generate(context.Background(), Request{Footprint: sampleResult(5)})
	require.ErrorIs(t, err, ErrAdvisoryUnavailable)
}

func TestOllamaBackendReportsModelError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(ollamaGenerateResponse{Error: "out of memory"})
	}))
	defer srv.Close()

	_, err := NewOllamaBackend(srv.URL, "", srv.Client()).Complete(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of memory")
}

func TestOllamaPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		_, _ = w.Write([]byte(`{"models":[{"name":"llama3:8b","model":"llama3:8b"}]}`))
	}))
	defer srv.Close()

	var p Pinger = NewOllamaBackend(srv.URL, "", srv.Client())
	require.NoError(t, p.Ping(context.Background()))

	err := NewOllamaBackend(srv.URL, "mistral", srv.Client()).Ping(context.Background())
	require.ErrorIs(t, err, ErrAdvisoryUnavailable)
	assert.Contains(t, err.Error(), "ollama pull mistral")

	srv.Close()
	err = NewOllamaBackend(srv.URL, "", nil).Ping(context.Background())
	require.ErrorIs(t, err, ErrAdvisoryUnavailable)
}

func TestNewBackend(t *testing.T) {
	b, err := NewBackend(context.Background(), Settings{}, nil)
	require.NoError(t, err)
	assert.Equal(t, BackendOllama, b.Name())

	_, err = NewBackend(context.Background(), Settings{Backend: BackendGemini}, nil)
	require.ErrorIs(t, err, ErrMissingAPIKey)

	_, err = NewBackend(context.Background(), Settings{Backend: "carrier-pigeon"}, nil)
	require.ErrorIs(t, err, ErrInvalidRequest)

	gen, err := New(context.Background(), Settings{Timeout: time.Minute})
	require.NoError(t, err)
	assert.Equal(t, time.Minute, gen.timeout)
}

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rshade/carbonfocus/internal/advisor"
	"github.com/rshade/carbonfocus/internal/emissions"
	"github.com/rshade/carbonfocus/internal/engine"
	"github.com/rshade/carbonfocus/internal/footprint"
	"github.com/rshade/carbonfocus/internal/greenops"
	"github.com/rshade/carbonfocus/internal/history"
	"github.com/rshade/carbonfocus/internal/logging"
)

const (
	dateLayout    = "2006-01-02"
	defaultLatest = 10
)

type handlers struct {
	eng  *engine.Engine
	opts Options
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": h.opts.Version,
		"advisor": h.eng.HasAdvisor(),
		"history": h.eng.Store() != nil,
	})
}

func (h *handlers) factors(w http.ResponseWriter, r *http.Request) {
	table := h.eng.Table()
	category := r.URL.Query().Get("category")
	if category != "" && !emissions.Category(category).IsValid() {
		respondWithError(w, r, http.StatusBadRequest, "Unknown category", nil)
		return
	}

	factors := table.Factors()
	if category != "" {
		filtered := factors[:0]
		for _, f := range factors {
			if string(f.Category) == category {
				filtered = append(filtered, f)
			}
		}
		factors = filtered
	}

	respondWithJSON(w, http.StatusOK, map[string]any{
		"source":  table.Source(),
		"factors": factors,
	})
}

func (h *handlers) benchmarks(w http.ResponseWriter, r *http.Request) {
	payload := map[string]any{"benchmarks": emissions.Targets()}

	if raw := r.URL.Query().Get("daily"); raw != "" {
		daily, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			respondWithError(w, r, http.StatusBadRequest, "Invalid daily value", err)
			return
		}
		cmp, err := greenops.Compare(daily)
		if err != nil {
			respondWithError(w, r, http.StatusBadRequest, "Invalid daily value", err)
			return
		}
		payload["comparison"] = cmp
	}

	respondWithJSON(w, http.StatusOK, payload)
}

func (h *handlers) calculate(w http.ResponseWriter, r *http.Request) {
	var req engine.CalculateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if save, err := queryBool(r, "save"); err != nil {
		respondWithError(w, r, http.StatusBadRequest, "Invalid save flag", err)
		return
	} else if save {
		req.Save = true
	}

	calc, err := h.eng.Calculate(r.Context(), req)
	if err != nil {
		if calc.Result.Timestamp.IsZero() {
			respondWithError(w, r, statusFor(err), "Calculation failed", err)
			return
		}
		// The footprint was computed; only the save failed.
		respondWithJSON(w, statusFor(err), map[string]any{
			"error":       "Saving the footprint failed; the result was not stored",
			"detail":      err.Error(),
			"calculation": calc,
		})
		return
	}

	status := http.StatusOK
	if calc.Record != nil {
		status = http.StatusCreated
	}
	respondWithJSON(w, status, calc)
}

func (h *handlers) history(w http.ResponseWriter, r *http.Request) {
	window, err := h.windowFromQuery(r)
	if err != nil {
		respondWithError(w, r, http.StatusBadRequest, "Invalid window", err)
		return
	}

	records, err := h.eng.History(r.Context(), window)
	if err != nil {
		respondWithError(w, r, statusFor(err), "Failed to read history", err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{
		"window":  window,
		"count":   len(records),
		"records": records,
	})
}

func (h *handlers) latest(w http.ResponseWriter, r *http.Request) {
	n, err := queryInt(r, "n", defaultLatest)
	if err != nil || n <= 0 {
		respondWithError(w, r, http.StatusBadRequest, "Invalid n", err)
		return
	}

	records, err := h.eng.Latest(r.Context(), n)
	if err != nil {
		respondWithError(w, r, statusFor(err), "Failed to read history", err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"records": records})
}

func (h *handlers) trend(w http.ResponseWriter, r *http.Request) {
	window, err := h.windowFromQuery(r)
	if err != nil {
		respondWithError(w, r, http.StatusBadRequest, "Invalid window", err)
		return
	}
	rolling, err := queryInt(r, "rolling", 0)
	if err != nil || rolling < 0 {
		respondWithError(w, r, http.StatusBadRequest, "Invalid rolling window", err)
		return
	}

	report, err := h.eng.Trend(r.Context(), engine.TrendRequest{Range: window, Rolling: rolling})
	if err != nil {
		respondWithError(w, r, statusFor(err), "Failed to summarize history", err)
		return
	}
	respondWithJSON(w, http.StatusOK, report)
}

func (h *handlers) goal(w http.ResponseWriter, r *http.Request) {
	pct := h.opts.ReductionPercent
	if raw := r.URL.Query().Get("reduction"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			respondWithError(w, r, http.StatusBadRequest, "Invalid reduction", err)
			return
		}
		pct = v
	}
	days, err := queryInt(r, "days", h.opts.TrendDays)
	if err != nil || days <= 0 {
		respondWithError(w, r, http.StatusBadRequest, "Invalid days", err)
		return
	}

	report, err := h.eng.Goal(r.Context(), pct, days)
	if err != nil {
		respondWithError(w, r, statusFor(err), "Failed to assess goal", err)
		return
	}
	respondWithJSON(w, http.StatusOK, report)
}

func (h *handlers) climate(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.eng.Climate(r.Context()))
}

func (h *handlers) advise(w http.ResponseWriter, r *http.Request) {
	var req engine.AdviseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	mode, err := advisor.ParseMode(string(req.Mode))
	if err != nil {
		respondWithError(w, r, http.StatusBadRequest, "Unknown advisory mode", err)
		return
	}
	req.Mode = mode

	report, err := h.eng.Advise(r.Context(), req)
	if err != nil {
		if errors.Is(err, advisor.ErrAdvisoryUnavailable) {
			respondWithJSON(w, http.StatusServiceUnavailable, map[string]any{
				"error":     "Advisory service unavailable, try again later",
				"detail":    err.Error(),
				"footprint": report.Footprint,
			})
			return
		}
		respondWithError(w, r, statusFor(err), "Failed to generate advice", err)
		return
	}
	respondWithJSON(w, http.StatusOK, report)
}

func (h *handlers) insights(w http.ResponseWriter, r *http.Request) {
	insights, err := h.eng.Insights(r.Context(), r.URL.Query().Get("record_id"))
	if err != nil {
		respondWithError(w, r, statusFor(err), "Failed to read insights", err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"insights": insights})
}

// windowFromQuery reads days, or from/to as RFC 3339 timestamps or dates.
// A to date covers the whole day.
func (h *handlers) windowFromQuery(r *http.Request) (history.DateRange, error) {
	q := r.URL.Query()
	var window history.DateRange

	if raw := q.Get("from"); raw != "" {
		t, _, err := parseTime(raw)
		if err != nil {
			return window, err
		}
		window.From = t
	}
	if raw := q.Get("to"); raw != "" {
		t, dateOnly, err := parseTime(raw)
		if err != nil {
			return window, err
		}
		if dateOnly {
			t = t.AddDate(0, 0, 1)
		}
		window.To = t
	}
	if err := window.Validate(); err != nil {
		return window, err
	}

	days, err := queryInt(r, "days", h.opts.TrendDays)
	if err != nil || days <= 0 {
		return window, fmt.Errorf("days must be a positive integer")
	}
	return h.eng.Window(days, window), nil
}

func parseTime(raw string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, false, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid time %q: expected RFC 3339 or %s", raw, dateLayout)
	}
	return t, true, nil
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func queryBool(r *http.Request, key string) (bool, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return false, nil
	}
	return strconv.ParseBool(raw)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	return nil
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, footprint.ErrInvalidInput),
		errors.Is(err, emissions.ErrUnknownKey),
		errors.Is(err, advisor.ErrInvalidRequest),
		errors.Is(err, greenops.ErrInvalidReduction),
		errors.Is(err, greenops.ErrNegativeValue):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrNoData),
		errors.Is(err, history.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, history.ErrStorageUnavailable),
		errors.Is(err, history.ErrStoreCorrupted),
		errors.Is(err, advisor.ErrAdvisoryUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("Failed to marshal response"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

func respondWithError(w http.ResponseWriter, r *http.Request, code int, message string, err error) {
	response := map[string]string{"error": message}
	if err != nil {
		if code < http.StatusInternalServerError {
			response["detail"] = err.Error()
		}
		logging.FromContext(r.Context()).Debug().Ctx(r.Context()).
			Str("component", "server").
			Str("path", r.URL.Path).
			Int("status", code).
			Err(err).
			Msg(strings.ToLower(message))
	}
	respondWithJSON(w, code, response)
}

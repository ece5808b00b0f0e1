package http

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tally/internal/core"
)

// parseYearMonth reads the year and month query parameters, defaulting
// to the current month.
func parseYearMonth(r *http.Request) (int, int, error) {
	now := time.Now()
	year := now.Year()
	month := int(now.Month())

	if v := r.URL.Query().Get("year"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid year %q", v)
		}
		year = parsed
	}

	if v := r.URL.Query().Get("month"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid month %q", v)
		}
		month = parsed
	}

	if year < 1900 || year > 3000 {
		return 0, 0, fmt.Errorf("year %d out of range", year)
	}
	if month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("month %d out of range", month)
	}

	return year, month, nil
}

// parseDateParam reads an optional YYYY-MM-DD query parameter. A missing
// parameter yields the zero date.
func parseDateParam(r *http.Request, key string) (core.Date, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return core.Date{}, nil
	}

	d, err := core.ParseDate(v)
	if err != nil {
		return core.Date{}, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

// sanitizeInput strips control characters from user-provided text.
func sanitizeInput(input string) string {
	sanitized := strings.TrimSpace(input)
	sanitized = strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, sanitized)
	return sanitized
}

// generateRequestID creates a random request identifier for log correlation.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

package sources

import (
	"context"
	"crypto/sha1" //nolint:gosec // non-cryptographic id generation
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/arbiscope/odds-tracker/pkg/httpclient"
)

func marketID(sourceID, eventName, marketType string) string {
	sum := sha1.Sum([]byte(sourceID + "|" + eventName + "|" + marketType))
	return hex.EncodeToString(sum[:])
}

func responseSnippet(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}

// fetchBody performs a GET and requires a 200 response, unlike the host-shell
// fetch bridge which relays any status back to its caller.
func fetchBody(ctx context.Context, client httpclient.Client, url, sourceID string, headers map[string]string) ([]byte, error) {
	resp, err := client.Get(ctx, url, headers)
	if err != nil {
		return nil, fmt.Errorf("fetch %s feed: %w", sourceID, err)
	}

	body := resp.Body()
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%s feed returned status %d body: %s", sourceID, resp.StatusCode(), responseSnippet(body))
	}

	return body, nil
}

func parsePrice(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	price, err := strconv.ParseFloat(raw, 64)
	if err != nil || price <= 1.0 {
		return 0, false
	}
	return price, true
}

func parseStartTime(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02T15:04"} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts
		}
	}
	return time.Time{}
}

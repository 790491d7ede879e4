package bridge

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/arbiscope/odds-tracker/pkg/httpclient"
	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
)

// browserUserAgent impersonates a desktop Chrome build so odds sites serve
// the same content they would serve a regular browser.
const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

var (
	sharedOnce   sync.Once
	sharedClient httpclient.Client
)

// defaultClient returns the lazily-initialized shared HTTP client. No timeout
// is configured; the transport defaults apply.
func defaultClient() httpclient.Client {
	sharedOnce.Do(func() {
		sharedClient = httpclient.NewRestyClient(0)
	})
	return sharedClient
}

// Bridge performs outbound GET requests on behalf of a host shell that does
// not issue network requests itself. Each call is stateless and independent.
type Bridge struct {
	client httpclient.Client
}

// New constructs a Bridge with the provided HTTP client (or the shared default).
func New(client httpclient.Client) *Bridge {
	if client == nil {
		client = defaultClient()
	}
	return &Bridge{client: client}
}

// Fetch issues a single GET against url with a browser-like User-Agent and
// returns the full response body decoded as text. The HTTP status code is
// not inspected: a non-2xx response with a readable body is still a success,
// and the caller interprets the body itself.
func (b *Bridge) Fetch(ctx context.Context, url string) (string, error) {
	resp, err := b.client.Get(ctx, url, map[string]string{"User-Agent": browserUserAgent})
	if err != nil {
		return "", err
	}

	text, err := decodeText(resp.Body(), resp.Header("Content-Type"))
	if err != nil {
		return "", fmt.Errorf("decode response body: %w", err)
	}
	return text, nil
}

// decodeText converts body bytes to UTF-8 text using the charset declared in
// contentType, falling back to BOM/meta sniffing and statistical detection
// when no charset is declared.
func decodeText(body []byte, contentType string) (string, error) {
	if len(body) == 0 {
		return "", nil
	}

	if !strings.Contains(strings.ToLower(contentType), "charset=") {
		if detected := detectCharset(body); detected != "" {
			contentType = strings.TrimSpace(contentType)
			if contentType == "" {
				contentType = "text/plain"
			}
			contentType += "; charset=" + detected
		}
	}

	reader, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return "", err
	}
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

// detectCharset guesses the body encoding when none is declared.
func detectCharset(body []byte) string {
	detector := chardet.NewTextDetector()
	result, err := detector.DetectBest(body)
	if err != nil || result == nil {
		return ""
	}
	return strings.ToLower(result.Charset)
}

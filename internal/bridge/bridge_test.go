package bridge

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

func TestFetchReturnsBodyAndSpoofsUserAgent(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte("hello"))
	}))
	defer server.Close()

	body, err := New(nil).Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if body != "hello" {
		t.Fatalf("body = %q, want hello", body)
	}
	if gotUA != browserUserAgent {
		t.Fatalf("User-Agent = %q, want %q", gotUA, browserUserAgent)
	}
}

func TestFetchNonOKStatusStillReturnsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("market temporarily suspended"))
	}))
	defer server.Close()

	body, err := New(nil).Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("expected success for non-2xx status, got %v", err)
	}
	if body != "market temporarily suspended" {
		t.Fatalf("body = %q", body)
	}
}

func TestFetchMalformedURL(t *testing.T) {
	_, err := New(nil).Fetch(context.Background(), "not a url")
	if err == nil {
		t.Fatal("expected error for malformed URL")
	}
	if err.Error() == "" {
		t.Fatal("expected non-empty error description")
	}
}

func TestFetchUnreachableHost(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := New(nil).Fetch(context.Background(), url)
	if err == nil {
		t.Fatal("expected error for unreachable host")
	}
	if err.Error() == "" {
		t.Fatal("expected non-empty error description")
	}
}

func TestFetchConcurrentCallsAreIndependent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/alpha":
			w.Write([]byte("alpha odds"))
		case "/beta":
			w.Write([]byte("beta odds"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	b := New(nil)
	results := make(map[string]string, 2)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, path := range []string{"/alpha", "/beta"} {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			body, err := b.Fetch(context.Background(), server.URL+path)
			if err != nil {
				t.Errorf("Fetch %s: %v", path, err)
				return
			}
			mu.Lock()
			results[path] = body
			mu.Unlock()
		}(path)
	}
	wg.Wait()

	if results["/alpha"] != "alpha odds" || results["/beta"] != "beta odds" {
		t.Fatalf("cross-contaminated results: %#v", results)
	}
}

func TestFetchDecodesDeclaredCharset(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=iso-8859-1")
		w.Write([]byte{'c', 'a', 'f', 0xe9}) // "café" in latin-1
	}))
	defer server.Close()

	body, err := New(nil).Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if body != "café" {
		t.Fatalf("body = %q, want café", body)
	}
}

func TestDecodeTextEmptyBody(t *testing.T) {
	text, err := decodeText(nil, "")
	if err != nil {
		t.Fatalf("decodeText: %v", err)
	}
	if text != "" {
		t.Fatalf("expected empty string, got %q", text)
	}
}

func TestDecodeTextUndeclaredUTF8(t *testing.T) {
	in := "спорт results — 2.10 / 3.40"
	text, err := decodeText([]byte(in), "")
	if err != nil {
		t.Fatalf("decodeText: %v", err)
	}
	if text != in {
		t.Fatalf("decoded = %q, want %q", text, in)
	}
}

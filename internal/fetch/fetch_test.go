package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestText_OK(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != "clashforge" {
			t.Errorf("user-agent=%q", ua)
		}
		_, _ = w.Write([]byte("version: 1\n"))
	}))
	defer ts.Close()

	got, err := Text(context.Background(), KindProfile, ts.URL, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "version: 1\n" {
		t.Fatalf("body=%q", got)
	}
}

func TestText_Errors(t *testing.T) {
	var redirectLoop *httptest.Server
	redirectLoop = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, redirectLoop.URL, http.StatusFound)
	}))
	defer redirectLoop.Close()

	handlers := map[string]http.HandlerFunc{
		"large": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(strings.Repeat("a", 32)))
		},
		"binary": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte{0xff, 0xfe, 0xfd})
		},
		"slow": func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
			_, _ = w.Write([]byte("ok"))
		},
		"status": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		},
		"file-redirect": func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "file:///etc/passwd", http.StatusFound)
		},
	}
	servers := map[string]string{"loop": redirectLoop.URL}
	for name, h := range handlers {
		ts := httptest.NewServer(h)
		defer ts.Close()
		servers[name] = ts.URL
	}

	tests := []struct {
		name      string
		kind      Kind
		url       string
		opt       Options
		wantCode  string
		wantStage string
	}{
		{"scheme", KindInput, "file:///etc/passwd", Options{}, "INVALID_ARGUMENT", "fetch_input"},
		{"too large", KindTemplate, servers["large"], Options{MaxBytes: 10}, "TOO_LARGE", "fetch_template"},
		{"invalid utf8", KindTemplate, servers["binary"], Options{}, "FETCH_INVALID_UTF8", "fetch_template"},
		{"timeout", KindProfile, servers["slow"], Options{Timeout: 50 * time.Millisecond}, "FETCH_TIMEOUT", "fetch_profile"},
		{"non 2xx", KindInput, servers["status"], Options{}, "FETCH_FAILED", "fetch_input"},
		{"redirect loop", KindInput, servers["loop"], Options{MaxRedirects: 2}, "FETCH_FAILED", "fetch_input"},
		{"redirect scheme", KindInput, servers["file-redirect"], Options{}, "INVALID_ARGUMENT", "fetch_input"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Text(context.Background(), tt.kind, tt.url, tt.opt)
			var fe *FetchError
			if !errors.As(err, &fe) {
				t.Fatalf("expected *FetchError, got %T: %v", err, err)
			}
			if fe.AppError.Code != tt.wantCode {
				t.Fatalf("code=%q, want=%q", fe.AppError.Code, tt.wantCode)
			}
			if fe.AppError.Stage != tt.wantStage {
				t.Fatalf("stage=%q, want=%q", fe.AppError.Stage, tt.wantStage)
			}
		})
	}
}

func TestIsURL(t *testing.T) {
	for in, want := range map[string]bool{
		"https://example.com/sub": true,
		"HTTP://example.com":      true,
		"./sub.txt":               false,
		"-":                       false,
		"ftp://example.com":       false,
	} {
		if got := IsURL(in); got != want {
			t.Fatalf("IsURL(%q)=%v, want %v", in, got, want)
		}
	}
}

package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMux_Healthz(t *testing.T) {
	mux := NewMux(Options{})
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rr.Code != http.StatusOK || rr.Body.String() != "ok\n" {
		t.Fatalf("status=%d body=%q", rr.Code, rr.Body.String())
	}
}

func TestMux_Catalog(t *testing.T) {
	mux := NewMux(Options{})
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/catalog", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%q", rr.Code, rr.Body.String())
	}
	var resp catalogResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v\nbody=%q", err, rr.Body.String())
	}
	if len(resp.Categories) != 18 {
		t.Fatalf("categories=%d, want=18", len(resp.Categories))
	}
	if resp.Bindings["Ad Block"] != "REJECT" {
		t.Fatalf("bindings=%v", resp.Bindings)
	}
	if _, ok := resp.Presets["minimal"]; !ok {
		t.Fatalf("presets=%v", resp.Presets)
	}
	if len(resp.Kinds) == 0 || len(resp.Languages) == 0 || len(resp.Regions) == 0 {
		t.Fatalf("resp=%+v", resp)
	}
}

func TestMux_MethodNotAllowed(t *testing.T) {
	mux := NewMux(Options{})
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/convert", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status=%d, want=%d", rr.Code, http.StatusMethodNotAllowed)
	}
}

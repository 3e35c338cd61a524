package httpapi

import (
	"errors"
	"strings"
	"testing"

	"github.com/John-Robertt/clashforge/internal/render"
)

func TestOutputFileName(t *testing.T) {
	cases := []struct {
		req  convertRequest
		want string
	}{
		{convertRequest{Mode: modeConfig}, ""},
		{convertRequest{Mode: modeConfig, FileName: "my clash"}, "my clash.yaml"},
		{convertRequest{Mode: modeConfig, FileName: "a.yml"}, "a.yml"},
		{convertRequest{Mode: modeList, ListFormat: render.ListCSV, FileName: "nodes"}, "nodes.csv"},
		{convertRequest{Mode: modeList, ListFormat: render.ListYAML, FileName: "nodes"}, "nodes.yaml"},
	}
	for _, tc := range cases {
		got, err := outputFileName(tc.req)
		if err != nil {
			t.Fatalf("%+v: unexpected error: %v", tc.req, err)
		}
		if got != tc.want {
			t.Fatalf("file=%q, want=%q", got, tc.want)
		}
	}

	for _, bad := range []string{"a/b", `a\b`, "a\nb", strings.Repeat("x", 201)} {
		_, err := outputFileName(convertRequest{Mode: modeConfig, FileName: bad})
		var ae *APIError
		if !errors.As(err, &ae) || ae.AppError.Code != "INVALID_ARGUMENT" {
			t.Fatalf("%q: err=%v", bad, err)
		}
	}
}

func TestContentDispositionAttachment(t *testing.T) {
	got := contentDispositionAttachment(`我的 "配置".yaml`)
	want := `attachment; filename="我的 \"配置\".yaml"; filename*=UTF-8''%E6%88%91%E7%9A%84%20%22%E9%85%8D%E7%BD%AE%22.yaml`
	if got != want {
		t.Fatalf("got=%q\nwant=%q", got, want)
	}
}

// Package fetch downloads remote CLI inputs (descriptor lists, profiles and
// templates) given as http(s) URLs.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/John-Robertt/clashforge/internal/model"
	"github.com/rs/zerolog/log"
)

type Kind int

const (
	KindInput Kind = iota
	KindProfile
	KindTemplate
)

func (k Kind) stage() string {
	switch k {
	case KindInput:
		return "fetch_input"
	case KindProfile:
		return "fetch_profile"
	case KindTemplate:
		return "fetch_template"
	default:
		return "fetch"
	}
}

func (k Kind) maxBytes() int64 {
	switch k {
	case KindInput:
		return 5 << 20
	case KindTemplate:
		return 2 << 20
	default:
		return 1 << 20
	}
}

type Options struct {
	Timeout      time.Duration // default 15s
	MaxBytes     int64         // default per kind
	MaxRedirects int           // default 5
	UserAgent    string
}

func (o Options) withDefaults(k Kind) Options {
	if o.Timeout <= 0 {
		o.Timeout = 15 * time.Second
	}
	if o.MaxBytes <= 0 {
		o.MaxBytes = k.maxBytes()
	}
	if o.MaxRedirects <= 0 {
		o.MaxRedirects = 5
	}
	if o.UserAgent == "" {
		o.UserAgent = "clashforge"
	}
	return o
}

type FetchError struct {
	AppError model.AppError
	Cause    error
}

func (e *FetchError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.AppError.Code, e.AppError.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.AppError.Code, e.AppError.Message, e.Cause)
}

func (e *FetchError) Unwrap() error { return e.Cause }

var (
	errTooManyRedirects  = errors.New("too many redirects")
	errRedirectBadScheme = errors.New("redirect target scheme is not http/https")
)

// IsURL reports whether s names a remote http(s) resource rather than a path.
func IsURL(s string) bool {
	ls := strings.ToLower(strings.TrimSpace(s))
	return strings.HasPrefix(ls, "http://") || strings.HasPrefix(ls, "https://")
}

// Text downloads rawURL and returns its body, which must be UTF-8 and no
// larger than the kind's limit.
func Text(ctx context.Context, kind Kind, rawURL string, opt Options) (string, error) {
	opt = opt.withDefaults(kind)
	fail := func(code, msg string, cause error) error {
		return &FetchError{
			AppError: model.AppError{Code: code, Message: msg, Stage: kind.stage(), URL: rawURL},
			Cause:    cause,
		}
	}

	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return "", fail("INVALID_ARGUMENT", "仅允许 http/https URL", err)
	}

	client := &http.Client{
		Timeout: opt.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) > opt.MaxRedirects {
				return errTooManyRedirects
			}
			if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
				return errRedirectBadScheme
			}
			return nil
		},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fail("INVALID_ARGUMENT", "请求 URL 不合法", err)
	}
	req.Header.Set("User-Agent", opt.UserAgent)

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		switch {
		case errors.Is(err, errTooManyRedirects):
			return "", fail("FETCH_FAILED", fmt.Sprintf("重定向次数超过上限（>%d）", opt.MaxRedirects), err)
		case errors.Is(err, errRedirectBadScheme):
			return "", fail("INVALID_ARGUMENT", "重定向目标仅允许 http/https", err)
		case isTimeout(err):
			return "", fail("FETCH_TIMEOUT", "拉取远程资源超时", err)
		}
		return "", fail("FETCH_FAILED", "拉取远程资源失败", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fail("FETCH_FAILED", fmt.Sprintf("上游返回非 2xx 状态码：%d", resp.StatusCode), nil)
	}

	// One byte past the limit detects overflow.
	body, err := io.ReadAll(io.LimitReader(resp.Body, opt.MaxBytes+1))
	if err != nil {
		if isTimeout(err) {
			return "", fail("FETCH_TIMEOUT", "拉取远程资源超时", err)
		}
		return "", fail("FETCH_FAILED", "读取上游响应失败", err)
	}
	if int64(len(body)) > opt.MaxBytes {
		return "", fail("TOO_LARGE", fmt.Sprintf("远程资源过大（>%d bytes）", opt.MaxBytes), nil)
	}
	if !utf8.Valid(body) {
		return "", fail("FETCH_INVALID_UTF8", "远程资源不是合法 UTF-8 文本", nil)
	}

	log.Debug().
		Str("component", "fetch").
		Str("url", rawURL).
		Int("bytes", len(body)).
		Dur("elapsed", time.Since(start)).
		Msg("fetched")
	return string(body), nil
}

func isTimeout(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

package httpapi

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/John-Robertt/clashforge/internal/render"
)

// outputFileName returns "" when the client did not ask for an attachment.
func outputFileName(req convertRequest) (string, error) {
	base := strings.TrimSpace(req.FileName)
	if base == "" {
		return "", nil
	}
	if strings.ContainsAny(base, "\r\n\x00") {
		return "", requestError("INVALID_ARGUMENT", "file_name 含有非法控制字符", "")
	}
	if strings.Contains(base, "/") || strings.Contains(base, "\\") {
		return "", requestError("INVALID_ARGUMENT", "file_name 不允许包含路径分隔符", "")
	}
	if len(base) > 200 {
		return "", requestError("INVALID_ARGUMENT", "file_name 过长", "max=200 bytes")
	}
	if !hasExt(base) {
		base += defaultExt(req)
	}
	return base, nil
}

func hasExt(name string) bool {
	i := strings.LastIndexByte(name, '.')
	return i > 0 && i < len(name)-1
}

func defaultExt(req convertRequest) string {
	if req.Mode == modeList && req.ListFormat == render.ListCSV {
		return ".csv"
	}
	return ".yaml"
}

func contentDispositionAttachment(filename string) string {
	// RFC 6266 + RFC 5987.
	escaped := strings.ReplaceAll(filename, "\\", "\\\\")
	escaped = strings.ReplaceAll(escaped, "\"", "\\\"")
	return fmt.Sprintf("attachment; filename=\"%s\"; filename*=UTF-8''%s", escaped, pctEncode(filename))
}

// pctEncode is QueryEscape with spaces as %20 instead of '+'.
func pctEncode(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

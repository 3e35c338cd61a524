package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/John-Robertt/clashforge/internal/convert"
	"github.com/John-Robertt/clashforge/internal/model"
	"github.com/John-Robertt/clashforge/internal/profile"
	"github.com/John-Robertt/clashforge/internal/render"
	"github.com/John-Robertt/clashforge/internal/source"
	"github.com/rs/zerolog/log"
)

const (
	modeConfig = "config"
	modeList   = "list"

	// HeaderDiagnostics carries the number of recovered problems of a run.
	HeaderDiagnostics = "X-Clashforge-Diagnostics"
)

type convertHandler struct {
	opt Options
}

type convertRequest struct {
	Mode          string
	Outbounds     json.RawMessage
	Subscription  string
	Profile       string
	ProfileFormat profile.Format
	Template      string
	ListFormat    render.ListFormat
	FileName      string
}

type convertRequestJSON struct {
	Mode          string          `json:"mode"`
	Outbounds     json.RawMessage `json:"outbounds"`
	Subscription  string          `json:"subscription"`
	Profile       string          `json:"profile"`
	ProfileFormat string          `json:"profile_format"`
	Template      string          `json:"template"`
	Format        string          `json:"format"`
	FileName      string          `json:"file_name"`
}

func (h convertHandler) handleConvert(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.opt.MaxBodyBytes)
	req, err := parseConvertRequest(r.Body)
	if err != nil {
		writeErrorFromErr(w, err)
		return
	}
	filename, err := outputFileName(req)
	if err != nil {
		writeErrorFromErr(w, err)
		return
	}

	body, contentType, diags, err := h.run(req)
	if err != nil {
		writeErrorFromErr(w, err)
		return
	}
	metricsIncConversion(req.Mode, diags)
	for _, d := range diags {
		log.Debug().Str("component", "http").Str("code", d.Code).Str("stage", d.Stage).Str("subject", d.Subject).Msg(d.Message)
	}

	if filename != "" {
		w.Header().Set("Content-Disposition", contentDispositionAttachment(filename))
	}
	w.Header().Set(HeaderDiagnostics, strconv.Itoa(len(diags)))
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, body)
}

func (h convertHandler) run(req convertRequest) (string, string, []model.Diagnostic, error) {
	descs, err := loadDescriptors(req)
	if err != nil {
		return "", "", nil, err
	}

	spec := profile.Default()
	if strings.TrimSpace(req.Profile) != "" {
		spec, err = profile.Parse("request.profile", req.Profile, req.ProfileFormat)
		if err != nil {
			return "", "", nil, err
		}
	}

	if req.Mode == modeList {
		text, diags, err := convert.List(descs, spec, req.ListFormat)
		if err != nil {
			return "", "", nil, err
		}
		ct := "application/yaml; charset=utf-8"
		if req.ListFormat == render.ListCSV {
			ct = "text/csv; charset=utf-8"
		}
		return text, ct, diags, nil
	}

	tmpl, tmplURL := h.opt.Template, ""
	if req.Template != "" {
		tmpl, tmplURL = req.Template, "request.template"
	}
	out, err := convert.Config(descs, spec, convert.Options{
		Template:    tmpl,
		TemplateURL: tmplURL,
		Render:      h.opt.Render,
		Logger:      &log.Logger,
	})
	if err != nil {
		return "", "", nil, err
	}
	return out.Text, "application/yaml; charset=utf-8", out.Result.Diagnostics, nil
}

func loadDescriptors(req convertRequest) ([]model.Descriptor, error) {
	var out []model.Descriptor
	if len(req.Outbounds) > 0 {
		descs, err := source.ParseOutboundsJSON("request.outbounds", string(req.Outbounds))
		if err != nil {
			return nil, err
		}
		out = append(out, descs...)
	}
	if strings.TrimSpace(req.Subscription) != "" {
		descs, err := source.ParseSubscription("request.subscription", req.Subscription)
		if err != nil {
			return nil, err
		}
		out = append(out, descs...)
	}
	return out, nil
}

func parseConvertRequest(r io.Reader) (convertRequest, error) {
	var body convertRequestJSON
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return convertRequest{}, &APIError{
				Status: http.StatusRequestEntityTooLarge,
				AppError: model.AppError{
					Code:    "INVALID_ARGUMENT",
					Message: "请求体过大",
					Stage:   "validate_request",
					Hint:    "max=" + strconv.FormatInt(mbe.Limit, 10) + " bytes",
				},
			}
		}
		return convertRequest{}, requestError("INVALID_ARGUMENT", "JSON body 解析失败", err.Error())
	}
	var extra any
	if err := dec.Decode(&extra); err == nil {
		return convertRequest{}, requestError("INVALID_ARGUMENT", "JSON body 不允许多段", "")
	} else if !errors.Is(err, io.EOF) {
		return convertRequest{}, requestError("INVALID_ARGUMENT", "JSON body 解析失败", err.Error())
	}

	req := convertRequest{
		Mode:         strings.TrimSpace(body.Mode),
		Subscription: body.Subscription,
		Profile:      body.Profile,
		Template:     body.Template,
		FileName:     body.FileName,
	}
	if req.Mode == "" {
		req.Mode = modeConfig
	}
	if req.Mode != modeConfig && req.Mode != modeList {
		return convertRequest{}, requestError("INVALID_ARGUMENT", "不支持的 mode（仅支持 config/list）", req.Mode)
	}

	if raw := bytes.TrimSpace(body.Outbounds); len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
		req.Outbounds = raw
	}
	if len(req.Outbounds) == 0 && strings.TrimSpace(req.Subscription) == "" {
		return convertRequest{}, requestError("INVALID_ARGUMENT", "outbounds 与 subscription 不能同时为空", "expected: outbounds: [...] or subscription: \"ss://...\"")
	}

	pf, ok := profile.ParseFormat(body.ProfileFormat)
	if !ok {
		return convertRequest{}, requestError("INVALID_ARGUMENT", "不支持的 profile_format（仅支持 yaml/ini）", body.ProfileFormat)
	}
	req.ProfileFormat = pf

	if req.Mode == modeConfig {
		if strings.TrimSpace(body.Format) != "" {
			return convertRequest{}, requestError("INVALID_ARGUMENT", "mode=config 不支持 format", "")
		}
		return req, nil
	}

	if req.Template != "" {
		return convertRequest{}, requestError("INVALID_ARGUMENT", "mode=list 不支持 template", "")
	}
	lf, ok := render.ParseListFormat(body.Format)
	if !ok {
		return convertRequest{}, requestError("INVALID_ARGUMENT", "不支持的 format（仅支持 yaml/csv）", body.Format)
	}
	req.ListFormat = lf
	return req, nil
}

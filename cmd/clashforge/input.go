package main

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/John-Robertt/clashforge/internal/fetch"
	"github.com/John-Robertt/clashforge/internal/model"
	"github.com/John-Robertt/clashforge/internal/profile"
	"github.com/John-Robertt/clashforge/internal/source"
	"github.com/spf13/cobra"
)

// readInput reads a file, stdin for "-", or an http(s) URL.
func readInput(cmd *cobra.Command, path string, kind fetch.Kind) (string, error) {
	if fetch.IsURL(path) {
		return fetch.Text(cmd.Context(), kind, path, fetch.Options{Timeout: fetchTimeout(cmd)})
	}
	if path == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(b), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func loadDescriptors(cmd *cobra.Command, inputs []string, format string) ([]model.Descriptor, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("at least one --input is required")
	}
	f, ok := source.ParseFormat(format)
	if !ok {
		return nil, fmt.Errorf("invalid --input-format %q (want auto, json, yaml or ss)", format)
	}
	var out []model.Descriptor
	for _, in := range inputs {
		text, err := readInput(cmd, in, fetch.KindInput)
		if err != nil {
			return nil, err
		}
		descs, err := source.Load(in, text, f)
		if err != nil {
			return nil, err
		}
		out = append(out, descs...)
	}
	return out, nil
}

func loadProfile(cmd *cobra.Command, path, format string) (*profile.Spec, error) {
	if path == "" {
		return profile.Default(), nil
	}
	f, ok := profile.ParseFormat(format)
	if !ok {
		return nil, fmt.Errorf("invalid --profile-format %q (want auto, yaml or ini)", format)
	}
	text, err := readInput(cmd, path, fetch.KindProfile)
	if err != nil {
		return nil, err
	}
	return profile.Parse(path, text, f)
}

// outputName maps a profile path to "<stem>.yaml"; the default profile is "config.yaml".
func outputName(profilePath string) string {
	if profilePath == "" || profilePath == "-" {
		return "config.yaml"
	}
	if fetch.IsURL(profilePath) {
		if u, err := url.Parse(profilePath); err == nil {
			profilePath = u.Path
		}
	}
	base := filepath.Base(profilePath)
	if base == "." || base == "/" {
		return "config.yaml"
	}
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".yaml"
}

func fetchTimeout(cmd *cobra.Command) time.Duration {
	d, err := cmd.Flags().GetDuration("fetch-timeout")
	if err != nil {
		return 0
	}
	return d
}

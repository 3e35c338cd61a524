package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/John-Robertt/clashforge/internal/convert"
	"github.com/John-Robertt/clashforge/internal/fetch"
	"github.com/John-Robertt/clashforge/internal/model"
	"github.com/John-Robertt/clashforge/internal/profile"
	"github.com/alitto/pond/v2"
	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type buildFlags struct {
	inputs        []string
	inputFormat   string
	profiles      []string
	profileFormat string
	template      string
	output        string
	outDir        string
	workers       int
}

type buildJob struct {
	profile string
	out     string

	res *convert.Output
	err error
}

func newBuildCmd() *cobra.Command {
	var f buildFlags
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Compile descriptors into Clash documents, one per profile",
		Example: `  clashforge build -i nodes.json -p profile.yaml -o clash.yaml
  clashforge build -i nodes.json -i sub.txt -p a.yaml -p b.ini --out-dir out/`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, f)
		},
	}
	fl := cmd.Flags()
	fl.StringArrayVarP(&f.inputs, "input", "i", nil, "descriptor input: sing-box JSON/YAML or ss:// subscription (repeatable, - for stdin)")
	fl.StringVar(&f.inputFormat, "input-format", "auto", "input format (auto, json, yaml, ss)")
	fl.StringArrayVarP(&f.profiles, "profile", "p", nil, "profile document (repeatable; default profile when omitted)")
	fl.StringVar(&f.profileFormat, "profile-format", "auto", "profile format (auto, yaml, ini)")
	fl.StringVarP(&f.template, "template", "t", "", "base Clash document with anchors (built-in when omitted)")
	fl.StringVarP(&f.output, "output", "o", "", "output file for a single profile (stdout when omitted)")
	fl.StringVar(&f.outDir, "out-dir", "", "output directory; one <profile>.yaml per profile")
	fl.IntVar(&f.workers, "workers", 4, "profiles compiled concurrently")
	return cmd
}

func runBuild(cmd *cobra.Command, f buildFlags) error {
	if len(f.profiles) > 1 && f.outDir == "" {
		return errors.New("several --profile values need --out-dir")
	}
	if f.output != "" && f.outDir != "" {
		return errors.New("--output and --out-dir are mutually exclusive")
	}
	if f.workers < 1 {
		f.workers = 1
	}

	descs, err := loadDescriptors(cmd, f.inputs, f.inputFormat)
	if err != nil {
		return err
	}
	opt := convert.Options{TemplateURL: f.template, Logger: &log.Logger}
	if f.template != "" {
		if opt.Template, err = readInput(cmd, f.template, fetch.KindTemplate); err != nil {
			return err
		}
	}

	paths := f.profiles
	if len(paths) == 0 {
		paths = []string{""}
	}
	jobs := make([]*buildJob, len(paths))
	for i, p := range paths {
		jobs[i] = &buildJob{profile: p, out: f.output}
		if f.outDir != "" {
			jobs[i].out = filepath.Join(f.outDir, outputName(p))
		}
	}

	// Profiles are read up front: stdin can only be consumed once, and the
	// workers then only compile.
	specs := make([]*profile.Spec, len(jobs))
	for i, j := range jobs {
		spec, err := loadProfile(cmd, j.profile, f.profileFormat)
		if err != nil {
			return fmt.Errorf("%s: %w", displayName(j.profile), err)
		}
		specs[i] = spec
	}

	pool := pond.NewPool(f.workers)
	defer pool.StopAndWait()
	group := pool.NewGroup()
	for i, j := range jobs {
		spec := specs[i]
		group.Submit(func() {
			j.res, j.err = convert.Config(descs, spec, opt)
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}

	if f.outDir != "" {
		if err := os.MkdirAll(f.outDir, 0o755); err != nil {
			return err
		}
	}

	failed := 0
	for _, j := range jobs {
		if j.err == nil {
			j.err = writeOutput(cmd.OutOrStdout(), j.out, j.res.Text)
		}
		printSummary(cmd.ErrOrStderr(), j)
		if j.err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d profiles failed", failed, len(jobs))
	}
	return nil
}

func writeOutput(stdout io.Writer, path, text string) error {
	if path == "" {
		_, err := io.WriteString(stdout, text)
		return err
	}
	log.Debug().Str("path", path).Int("bytes", len(text)).Msg("writing output")
	return os.WriteFile(path, []byte(text), 0o644)
}

func printSummary(w io.Writer, j *buildJob) {
	name := displayName(j.profile)
	if j.err != nil {
		fmt.Fprintf(w, "%s %s: %v\n", color.RedString("✗"), name, j.err)
		return
	}
	dest := j.out
	if dest == "" {
		dest = "stdout"
	}
	r := j.res.Result
	fmt.Fprintf(w, "%s %s -> %s: %d proxies, %d groups, %d rules\n",
		color.GreenString("✓"), name, dest, len(r.Proxies), len(r.Groups), len(r.Rules))
	printDiagnostics(w, r.Diagnostics)
}

func printDiagnostics(w io.Writer, diags []model.Diagnostic) {
	warn := color.New(color.FgYellow)
	for _, d := range diags {
		subject := ""
		if d.Subject != "" {
			subject = " " + d.Subject
		}
		warn.Fprintf(w, "  ! %s [%s]%s: %s\n", d.Code, d.Stage, subject, d.Message)
	}
}

func displayName(profilePath string) string {
	if profilePath == "" {
		return "(default profile)"
	}
	return profilePath
}

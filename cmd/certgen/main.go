// Command certgen fills in a certificate from the command line and writes the PDF.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/terra-clan/certificate-studio/internal/app"
	"github.com/terra-clan/certificate-studio/internal/catalog"
	"github.com/terra-clan/certificate-studio/internal/export"
	"github.com/terra-clan/certificate-studio/internal/logging"
	"github.com/terra-clan/certificate-studio/internal/models"
	"github.com/terra-clan/certificate-studio/internal/render"
	"github.com/terra-clan/certificate-studio/internal/storage"
)

// cliProfile is the profile namespace used in the state file
const cliProfile = "cli"

const outputMode os.FileMode = 0o644

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	data    string
	assets  string
	lang    string
	course  string
	level   string
	name    string
	date    string
	stamp   bool
	out     string
	preview string
	state   string
	scale   float64
	verbose bool

	set map[string]bool
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("certgen", flag.ContinueOnError)
	fs.SetOutput(stderr)

	o := &options{}
	fs.StringVar(&o.data, "data", "./data", "directory or base URL holding translations.json and courseData.json")
	fs.StringVar(&o.assets, "assets", "", "directory with background, logo, holo and stamp artwork")
	fs.StringVar(&o.lang, "lang", "", "interface language (default: saved or "+app.DefaultLanguage+")")
	fs.StringVar(&o.course, "course", "", "course id")
	fs.StringVar(&o.level, "level", "", "level name")
	fs.StringVar(&o.name, "name", "", "student name")
	fs.StringVar(&o.date, "date", "", "issue date, YYYY-MM-DD (default: today)")
	fs.BoolVar(&o.stamp, "stamp", true, "print the stamp")
	fs.StringVar(&o.out, "out", export.FileName, "output PDF path, - for stdout")
	fs.StringVar(&o.preview, "preview", "", "also write a PNG preview to this path")
	fs.StringVar(&o.state, "state", "", "YAML file remembering language, course and level between runs")
	fs.Float64Var(&o.scale, "scale", export.DefaultScale, "rasterization scale")
	fs.BoolVar(&o.verbose, "v", false, "verbose logging")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	o.set = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { o.set[f.Name] = true })
	return o, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	o, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(stderr, err)
		return 2
	}

	level := "warn"
	if o.verbose {
		level = "debug"
	}
	logger, err := logging.New(stderr, logging.Options{Level: level, Format: logging.FormatText})
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	slog.SetDefault(logger)

	if err := generate(ctx, o, stdout, stderr, logger); err != nil {
		fmt.Fprintln(stderr, "certgen:", err)
		return 1
	}
	return 0
}

func generate(ctx context.Context, o *options, stdout, stderr io.Writer, logger *slog.Logger) error {
	source, err := catalog.NewSource(o.data, nil)
	if err != nil {
		return err
	}
	loader := catalog.NewLoader(source)
	// a failed load is reported by Init through the message surface
	_ = loader.Load(ctx)

	var backend storage.Backend = storage.NewMemoryBackend()
	if o.state != "" {
		fb, err := storage.OpenFileBackend(o.state)
		if err != nil {
			return err
		}
		backend = fb
	}
	defer backend.Close()

	var assets *render.Assets
	if o.assets != "" {
		if assets, err = render.LoadAssets(o.assets); err != nil {
			return err
		}
	}
	surface, err := render.NewSurface(assets)
	if err != nil {
		return err
	}
	exporter := export.New(surface, export.WithScale(o.scale))

	ui := newTerminalUI(stderr)
	ctrl := app.NewController(loader, backend.For(cliProfile), ui, exporter, app.WithLogger(logger))
	if err := ctrl.Init(ctx); err != nil {
		return err
	}

	if err := applyFlags(ctx, ctrl, o); err != nil {
		return err
	}

	if o.preview != "" {
		if err := writeFile(o.preview, stdout, func(w io.Writer) error { return ctrl.Preview(ctx, w) }); err != nil {
			return err
		}
	}
	if err := writeFile(o.out, stdout, func(w io.Writer) error { return ctrl.Export(ctx, w) }); err != nil {
		return err
	}

	if o.out != "-" {
		fmt.Fprintf(stderr, "wrote %s\n", o.out)
	}
	return nil
}

// applyFlags replays the given flags as user events, in page order
func applyFlags(ctx context.Context, ctrl *app.Controller, o *options) error {
	if o.set["lang"] {
		if err := ctrl.SwitchLanguage(ctx, o.lang); err != nil {
			return err
		}
	}
	if o.set["course"] {
		if err := ctrl.SelectCourse(ctx, o.course); err != nil {
			return err
		}
	}
	if o.set["level"] {
		if err := ctrl.SelectLevel(ctx, o.level); err != nil {
			return err
		}
	}
	if o.set["date"] {
		if err := ctrl.SetDate(ctx, o.date); err != nil {
			return err
		}
	}
	if o.set["stamp"] {
		if err := ctrl.SetStamp(ctx, o.stamp); err != nil {
			return err
		}
	}
	return ctrl.SetName(ctx, o.name)
}

// writeFile renders into path. The file is only created once rendering succeeded.
func writeFile(path string, stdout io.Writer, fn func(io.Writer) error) error {
	if path == "-" {
		return fn(stdout)
	}

	f, err := os.CreateTemp(filepath.Dir(path), ".certgen-*")
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	// CreateTemp opens with 0600
	if err := f.Chmod(outputMode); err != nil {
		f.Close()
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// terminalUI prints the message surface; the rest of the projection is not shown
type terminalUI struct {
	w io.Writer
}

func newTerminalUI(w io.Writer) *terminalUI {
	return &terminalUI{w: w}
}

func (t *terminalUI) CheckControls() []string { return nil }

func (t *terminalUI) SetActiveLanguage(string) {}

func (t *terminalUI) SetLabels(map[string]string) {}

func (t *terminalUI) SetOptions(string, []models.Option, string) {}

func (t *terminalUI) SetFields(models.CertificateFields) {}

func (t *terminalUI) ShowMessage(text string) { fmt.Fprintln(t.w, text) }

func (t *terminalUI) HideMessage() {}

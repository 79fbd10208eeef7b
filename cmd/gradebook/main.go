// Command gradebook grades student spreadsheets, renders PDF reports and
// serves the results over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/okian/gradebook/internal/adapters/http/api"
	"github.com/okian/gradebook/internal/adapters/http/swagger"
	"github.com/okian/gradebook/internal/adapters/source"
	app "github.com/okian/gradebook/internal/app"
	"github.com/okian/gradebook/internal/config"
	"github.com/okian/gradebook/internal/domain/bmi"
	"github.com/okian/gradebook/internal/domain/query"
	"github.com/okian/gradebook/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 30 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

// Exit codes.
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

const usage = `usage: gradebook <command> [flags]

commands:
  grade    run the pipeline, write the processed gradebook and print a summary
  report   render the PDF report of one group, or of every group
  roster   render a PDF list of students, optionally filtered
  serve    serve the snapshot over HTTP
  bmi      clean a height/weight table and print BMI statistics

Run "gradebook <command> -h" for the flags of a command.
`

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one command and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return exitUsage
	}

	cmd, rest := args[0], args[1:]
	var handler func(context.Context, *config.Config, []string, io.Writer) error
	switch cmd {
	case "grade":
		handler = runGrade
	case "report":
		handler = runReport
	case "roster":
		handler = runRoster
	case "serve":
		handler = runServe
	case "bmi":
		handler = runBMI
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return exitOK
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", cmd, usage)
		return exitUsage
	}

	// Load configuration (defaults -> .env -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintln(stderr, "failed to load config: "+err.Error())
		return exitError
	}

	if err := logger.Init(logger.WithWriter(stderr), logger.WithJSON(cfg.LogJSON)); err != nil {
		fmt.Fprintln(stderr, "failed to initialize logging: "+err.Error())
		return exitError
	}
	defer func() { _ = logger.Sync() }()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := handler(ctx, cfg, rest, stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		var uerr usageError
		if errors.As(err, &uerr) {
			fmt.Fprintln(stderr, uerr.Error())
			return exitUsage
		}
		logger.Get().Error(ctx, cmd+" failed", logger.Error(err))
		return exitError
	}
	return exitOK
}

type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

// pipelineFlags binds the flags every pipeline command shares. Flag
// defaults are the loaded configuration, so flags override it.
func pipelineFlags(fs *flag.FlagSet, cfg *config.Config) {
	fs.StringVar(&cfg.Source, "source", cfg.Source, "gradebook to load (.xlsx, .csv, .tsv)")
	fs.StringVar(&cfg.Sheet, "sheet", cfg.Sheet, "xlsx sheet name (default: first sheet)")
	fs.StringVar(&cfg.Delimiter, "delimiter", cfg.Delimiter, "delimiter for text sources (default: from extension)")
	fs.StringVar(&cfg.NameColumn, "name-column", cfg.NameColumn, "name column")
	fs.StringVar(&cfg.GroupColumn, "group-column", cfg.GroupColumn, "group column")
	fs.Float64Var(&cfg.DefaultScore, "default", cfg.DefaultScore, "score used for missing cells")
	fs.Float64Var(&cfg.ScholarshipRatio, "ratio", cfg.ScholarshipRatio, "share of students that get a scholarship")
	fs.StringVar(&cfg.ScholarshipMarker, "marker", cfg.ScholarshipMarker, "scholarship marker written to the output")
}

// parseFlags maps flag errors other than -h to usage errors.
func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return usageError{msg: err.Error()}
	}
	return nil
}

func parse(fs *flag.FlagSet, cfg *config.Config, args []string) error {
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return usageError{msg: fmt.Sprintf("%s: unexpected arguments %v", fs.Name(), fs.Args())}
	}
	if err := cfg.Validate(); err != nil {
		return usageError{msg: err.Error()}
	}
	return nil
}

// newService builds a service from cfg.
func newService(cfg *config.Config, l logger.Logger) (*app.Service, error) {
	if strings.TrimSpace(cfg.Source) == "" {
		return nil, usageError{msg: "missing -source (or GRADEBOOK_SOURCE)"}
	}
	var delim rune
	if cfg.Delimiter != "" {
		delim, _ = utf8.DecodeRuneInString(cfg.Delimiter)
	}
	return app.New(
		app.WithLogger(l),
		app.WithSource(source.Source{
			Path:        cfg.Source,
			Sheet:       cfg.Sheet,
			Delimiter:   delim,
			NameColumn:  cfg.NameColumn,
			GroupColumn: cfg.GroupColumn,
		}),
		app.WithSubjectKeywords(cfg.SubjectKeywords),
		app.WithDefaultScore(cfg.DefaultScore),
		app.WithScholarshipRatio(cfg.ScholarshipRatio),
		app.WithScholarshipMarker(cfg.ScholarshipMarker),
		app.WithReloadInterval(cfg.ReloadInterval),
	), nil
}

// defaultOutput names the processed file next to the source.
func defaultOutput(src string) string {
	dir, base := filepath.Split(src)
	ext := filepath.Ext(base)
	if ext == "" {
		ext = ".xlsx"
	}
	return filepath.Join(dir, "Processed_"+strings.TrimSuffix(base, filepath.Ext(base))+ext)
}

func runGrade(ctx context.Context, cfg *config.Config, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("grade", flag.ContinueOnError)
	pipelineFlags(fs, cfg)
	fs.StringVar(&cfg.Output, "output", cfg.Output, "processed gradebook path (default: Processed_<source>)")
	if err := parse(fs, cfg, args); err != nil {
		return err
	}

	svc, err := newService(cfg, logger.Named("grade"))
	if err != nil {
		return err
	}
	res, err := svc.Run(ctx)
	if err != nil {
		return err
	}
	out := cfg.Output
	if out == "" {
		out = defaultOutput(cfg.Source)
	}
	if err := svc.Export(ctx, out, cfg.Sheet); err != nil {
		return err
	}

	snap, err := svc.Snapshot(ctx)
	if err != nil {
		return err
	}
	sum, err := snap.Summary(nil)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "students: %d (skipped %d, duplicates %d, defaulted cells %d)\n",
		sum.Count, res.Skipped, len(res.Duplicates), res.Defaulted)
	fmt.Fprintf(stdout, "scholarships: %d\n", sum.ScholarshipCount)
	fmt.Fprintf(stdout, "top scorer: %s\n", sum.TopScorer)
	fmt.Fprintf(stdout, "bottom scorer: %s\n", sum.BottomScorer)
	for _, s := range sum.PerSubjectAverage {
		fmt.Fprintf(stdout, "  %s: %.2f\n", s.Subject, s.Average)
	}
	fmt.Fprintf(stdout, "written: %s\n", out)
	return nil
}

func runReport(ctx context.Context, cfg *config.Config, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	pipelineFlags(fs, cfg)
	group := fs.String("group", "", "group to report on (default: every group)")
	fs.StringVar(&cfg.ReportDir, "dir", cfg.ReportDir, "directory for the PDF files")
	if err := parse(fs, cfg, args); err != nil {
		return err
	}

	svc, err := newService(cfg, logger.Named("report"))
	if err != nil {
		return err
	}
	if _, err := svc.Run(ctx); err != nil {
		return err
	}

	if *group == "" {
		paths, err := svc.WriteGroupReports(ctx, cfg.ReportDir)
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Fprintf(stdout, "written: %s\n", p)
		}
		return nil
	}

	data, err := svc.GroupReport(ctx, *group)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.ReportDir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(cfg.ReportDir, app.GroupReportFile(*group))
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // reports are meant to be shared
		return err
	}
	fmt.Fprintf(stdout, "written: %s\n", path)
	return nil
}

func runRoster(ctx context.Context, cfg *config.Config, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("roster", flag.ContinueOnError)
	pipelineFlags(fs, cfg)
	group := fs.String("group", "", "only list this group")
	scholars := fs.Bool("scholars", false, "only list scholarship holders")
	title := fs.String("title", "", "report title")
	out := fs.String("out", "", "PDF path (default: <dir>/roster.pdf)")
	fs.StringVar(&cfg.ReportDir, "dir", cfg.ReportDir, "directory for the PDF file")
	if err := parse(fs, cfg, args); err != nil {
		return err
	}

	svc, err := newService(cfg, logger.Named("roster"))
	if err != nil {
		return err
	}
	if _, err := svc.Run(ctx); err != nil {
		return err
	}
	data, err := svc.RosterReport(ctx, *title, query.Filter{Group: *group, ScholarsOnly: *scholars})
	if err != nil {
		return err
	}
	path := *out
	if path == "" {
		path = filepath.Join(cfg.ReportDir, "roster.pdf")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // reports are meant to be shared
		return err
	}
	fmt.Fprintf(stdout, "written: %s\n", path)
	return nil
}

// newHandler wires the query API and its docs.
func newHandler(ctx context.Context, cfg *config.Config, svc *app.Service) http.Handler {
	server := api.NewServer(svc,
		api.WithMaxResults(cfg.MaxResults),
		api.WithCORSOrigins(cfg.CORSOrigins),
		api.WithLogger(logger.Named("http")),
	)
	return server.Routes(func(r chi.Router) { swagger.Register(ctx, r) })
}

func runServe(ctx context.Context, cfg *config.Config, args []string, _ io.Writer) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	pipelineFlags(fs, cfg)
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address")
	fs.DurationVar(&cfg.ReloadInterval, "reload", cfg.ReloadInterval, "reload interval (0 disables)")
	if err := parse(fs, cfg, args); err != nil {
		return err
	}

	log := logger.Named("serve")
	svc, err := newService(cfg, logger.Named("service"))
	if err != nil {
		return err
	}
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(ctx, cfg, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info(gctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info(context.Background(), "shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		return err
	}
	log.Info(context.Background(), "server stopped")
	return nil
}

func runBMI(_ context.Context, _ *config.Config, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("bmi", flag.ContinueOnError)
	in := fs.String("in", "", "tab-separated name/height/weight table")
	out := fs.String("out", "", "cleaned table path (default: cleaned_<in>)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *in == "" {
		return usageError{msg: "bmi: missing -in"}
	}
	if *out == "" {
		dir, base := filepath.Split(*in)
		*out = filepath.Join(dir, "cleaned_"+base)
	}

	src, err := os.Open(*in)
	if err != nil {
		return err
	}
	defer src.Close()
	dst, err := os.Create(*out)
	if err != nil {
		return err
	}
	st, err := bmi.Process(src, dst)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "people: %d\n", st.Count)
	fmt.Fprintf(stdout, "average height: %.2f\n", st.AverageHeight)
	fmt.Fprintf(stdout, "average weight: %.2f\n", st.AverageWeight)
	fmt.Fprintf(stdout, "height: %d..%d\n", st.MinHeight, st.MaxHeight)
	fmt.Fprintf(stdout, "weight: %d..%d\n", st.MinWeight, st.MaxWeight)
	for _, s := range st.Shares {
		fmt.Fprintf(stdout, "%s: %.2f%%\n", s.Category, s.Percent)
	}
	fmt.Fprintf(stdout, "written: %s\n", *out)
	return nil
}

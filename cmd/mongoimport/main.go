// Command mongoimport migrates a mongodump directory into a relational store.
// Known collections land in their typed tables; every other collection is
// preserved as normalized JSON in the archive table.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gazihan02-sys/sis-tekniktr/internal/config"
	"github.com/gazihan02-sys/sis-tekniktr/internal/datasource/file"
	"github.com/gazihan02-sys/sis-tekniktr/internal/metrics"
	"github.com/gazihan02-sys/sis-tekniktr/internal/metrics/datadog"
	"github.com/gazihan02-sys/sis-tekniktr/internal/metrics/prompush"

	// register all backends with the storage factory.
	_ "github.com/gazihan02-sys/sis-tekniktr/internal/storage/all"
)

// cliFlags holds raw flag values; set records which were given explicitly so
// they override the config file and environment.
type cliFlags struct {
	configPath     string
	dumpDir        string
	dsn            string
	storageKind    string
	only           string
	onlyFile       string
	commitEvery    int
	fileWorkers    int
	archiveTable   string
	createTables   bool
	manifest       string
	resume         bool
	job            string
	metricsBackend string
	pushgatewayURL string
	datadogAddr    string
	logFile        string
	validate       bool
	verbose        bool

	set map[string]bool
}

func parseFlags(args []string) (cliFlags, error) {
	var f cliFlags
	fs := flag.NewFlagSet("mongoimport", flag.ContinueOnError)
	fs.StringVar(&f.configPath, "config", "", "pipeline config JSON path (optional)")
	fs.StringVar(&f.dumpDir, "dump-dir", config.DefaultDumpDir, "mongo dump directory containing *.bson files")
	fs.StringVar(&f.dsn, "dsn", "", "destination DSN (env MONGOIMPORT_DSN)")
	fs.StringVar(&f.storageKind, "storage", config.DefaultStorageKind, "storage backend: postgres, sqlite, mssql or mysql")
	fs.StringVar(&f.only, "only", "", "comma separated collection names to import")
	fs.StringVar(&f.onlyFile, "only-file", "", "file listing collection names to import, one per line")
	fs.IntVar(&f.commitEvery, "commit-every", config.DefaultCommitEvery, "commit every N documents; <= 0 commits once per file (env MONGOIMPORT_COMMIT_EVERY)")
	fs.IntVar(&f.fileWorkers, "file-workers", config.DefaultFileWorkers, "number of files imported concurrently (env MONGOIMPORT_FILE_WORKERS)")
	fs.StringVar(&f.archiveTable, "archive-table", "", "archive table for collections without a typed mapping")
	fs.BoolVar(&f.createTables, "create-tables", false, "create destination tables when missing")
	fs.StringVar(&f.manifest, "manifest", "", "run manifest path; records committed files")
	fs.BoolVar(&f.resume, "resume", false, "skip files the manifest records as unchanged")
	fs.StringVar(&f.job, "job", "", "job name for metrics; defaults to the run ID")
	fs.StringVar(&f.metricsBackend, "metrics-backend", "", "metrics backend: none, pushgateway or datadog (env METRICS_BACKEND)")
	fs.StringVar(&f.pushgatewayURL, "pushgateway-url", "", "Pushgateway base URL (env PUSHGATEWAY_URL)")
	fs.StringVar(&f.datadogAddr, "datadog-addr", "", "DogStatsD address (env DD_AGENT_ADDR)")
	fs.StringVar(&f.logFile, "log-file", "", "append JSON logs to this file instead of stderr")
	fs.BoolVar(&f.validate, "validate", false, "validate the configuration and exit")
	fs.BoolVar(&f.verbose, "v", false, "enable verbose logs")

	if err := fs.Parse(args); err != nil {
		return cliFlags{}, err
	}
	if fs.NArg() > 0 {
		return cliFlags{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	f.set = map[string]bool{}
	fs.Visit(func(fl *flag.Flag) { f.set[fl.Name] = true })
	return f, nil
}

// buildPipeline layers defaults, the config file, environment and explicit
// flags, in increasing precedence.
func buildPipeline(f cliFlags, getenv func(string) string) (config.Pipeline, error) {
	var p config.Pipeline
	if f.configPath != "" {
		var err error
		if p, err = config.Load(f.configPath); err != nil {
			return config.Pipeline{}, err
		}
	}

	if v := getenv("MONGOIMPORT_DSN"); v != "" {
		p.Storage.DB.DSN = v
	}
	if n, ok := getenvInt(getenv, "MONGOIMPORT_COMMIT_EVERY"); ok {
		p.Runtime.CommitEvery = perFileIfZero(n)
	}
	if n, ok := getenvInt(getenv, "MONGOIMPORT_FILE_WORKERS"); ok {
		p.Runtime.FileWorkers = n
	}
	if v := getenv("METRICS_BACKEND"); v != "" {
		p.Metrics.Backend = v
	}
	if v := getenv("PUSHGATEWAY_URL"); v != "" {
		p.Metrics.PushgatewayURL = v
	}
	if v := getenv("DD_AGENT_ADDR"); v != "" {
		p.Metrics.DatadogAddr = v
	}

	set := f.set
	if set["dump-dir"] || p.Source.DumpDir == "" {
		p.Source.DumpDir = f.dumpDir
	}
	if set["dsn"] {
		p.Storage.DB.DSN = f.dsn
	}
	if set["storage"] || p.Storage.Kind == "" {
		p.Storage.Kind = f.storageKind
	}
	if set["only"] {
		p.Source.Only = file.SplitList(f.only)
	}
	if set["only-file"] {
		p.Source.OnlyFile = f.onlyFile
	}
	if set["commit-every"] {
		p.Runtime.CommitEvery = perFileIfZero(f.commitEvery)
	}
	if set["file-workers"] {
		p.Runtime.FileWorkers = f.fileWorkers
	}
	if set["archive-table"] {
		p.Storage.DB.ArchiveTable = f.archiveTable
	}
	if set["create-tables"] {
		p.Storage.DB.AutoCreateTable = f.createTables
	}
	if set["manifest"] {
		p.Checkpoint.Manifest = f.manifest
	}
	if set["resume"] {
		p.Checkpoint.Resume = f.resume
	}
	if set["job"] {
		p.Job = f.job
	}
	if set["metrics-backend"] {
		p.Metrics.Backend = f.metricsBackend
	}
	if set["pushgateway-url"] {
		p.Metrics.PushgatewayURL = f.pushgatewayURL
	}
	if set["datadog-addr"] {
		p.Metrics.DatadogAddr = f.datadogAddr
	}

	p.ApplyDefaults()
	return p, nil
}

func getenvInt(getenv func(string) string, k string) (int, bool) {
	s := getenv(k)
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// perFileIfZero maps an explicit 0 to config.CommitPerFile; ApplyDefaults
// would otherwise turn 0 into the default.
func perFileIfZero(n int) int {
	if n == 0 {
		return config.CommitPerFile
	}
	return n
}

// newLogger builds the process logger. Verbose mode switches to a console
// writer at debug level.
func newLogger(w io.Writer, verbose bool, runID string) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
		level = zerolog.DebugLevel
	}
	return zerolog.New(w).Level(level).With().Timestamp().Str("run_id", runID).Logger()
}

// setupMetrics installs the configured metrics backend and returns a flush
// function to defer.
func setupMetrics(m config.Metrics, job string, log zerolog.Logger) (func(), error) {
	var b metrics.Backend
	switch m.Backend {
	case "", "none":
		log.Debug().Msg("metrics: disabled")
		return func() {}, nil
	case "pushgateway":
		pb, err := prompush.NewBackend(job, m.PushgatewayURL)
		if err != nil {
			return nil, err
		}
		b = pb
	case "datadog":
		db, err := datadog.NewBackend(datadog.Config{
			Addr:       m.DatadogAddr,
			GlobalTags: []string{"job:" + job},
		})
		if err != nil {
			return nil, err
		}
		b = db
	default:
		return nil, fmt.Errorf("metrics: unknown backend %q", m.Backend)
	}
	log.Info().Str("backend", m.Backend).Str("job", job).Msg("metrics: enabled")
	metrics.SetBackend(b)
	return func() {
		if err := metrics.Flush(); err != nil {
			log.Warn().Err(err).Msg("metrics: flush error")
		}
	}, nil
}

func main() {
	f, err := parseFlags(os.Args[1:])
	if err != nil {
		fatalf("%v", err)
	}
	p, err := buildPipeline(f, os.Getenv)
	if err != nil {
		fatalf("%v", err)
	}

	issues := config.ValidatePipeline(p)
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		fatalf("configuration is invalid")
	}
	if f.validate {
		fmt.Fprintln(os.Stderr, "configuration is valid")
		os.Exit(0)
	}

	if err := execute(f, p, os.Stdout); err != nil {
		fatalf("%v", err)
	}
}

// execute runs the import for a validated pipeline. Deferred cleanup (log
// file, metrics flush) runs before main exits on a returned error.
func execute(f cliFlags, p config.Pipeline, out io.Writer) error {
	runID := uuid.NewString()
	if p.Job == "" {
		p.Job = runID
	}

	logOut := io.Writer(os.Stderr)
	if f.logFile != "" {
		lf, err := os.OpenFile(f.logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o664)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer lf.Close()
		logOut = zerolog.SyncWriter(lf)
	}
	log := newLogger(logOut, f.verbose, runID)

	flush, err := setupMetrics(p.Metrics, p.Job, log)
	if err != nil {
		log.Warn().Err(err).Msg("metrics: init failed; using nop")
		flush = func() {}
	}
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	if _, err := run(ctx, p, log, out); err != nil {
		log.Error().Err(err).Msg("import failed")
		return err
	}
	log.Info().Dur("elapsed", time.Since(start).Truncate(time.Millisecond)).Msg("completed")
	return nil
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/justapithecus/msival/adapter"
	redisadapter "github.com/justapithecus/msival/adapter/redis"
	"github.com/justapithecus/msival/adapter/webhook"
	"github.com/justapithecus/msival/cli/config"
	"github.com/justapithecus/msival/cli/render"
	"github.com/justapithecus/msival/engine"
	"github.com/justapithecus/msival/engine/msi"
	"github.com/justapithecus/msival/journal"
	"github.com/justapithecus/msival/lode"
	"github.com/justapithecus/msival/log"
	"github.com/justapithecus/msival/metrics"
	"github.com/justapithecus/msival/policy"
	"github.com/justapithecus/msival/runtime"
	"github.com/justapithecus/msival/types"
)

// summaryFile is the run summary sidecar written next to the dataset.
const summaryFile = "summary.json"

// publishTimeout bounds the run-completed notification, retries included.
const publishTimeout = time.Minute

// newEngine opens the platform installer engine. Tests replace it.
var newEngine = msi.New

// ValidateCommand returns the validate command.
func ValidateCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:  "config",
			Usage: "Path to YAML config file (default ./" + config.DefaultFile + " if present)",
		},
		&cli.StringFlag{
			Name:  "run-id",
			Usage: "Run ID (default: random UUID)",
		},
		// Action selection
		&cli.StringSliceFlag{
			Name:    "include",
			Aliases: []string{"i"},
			Usage:   "ICE action wildcard to run (repeatable, default *)",
		},
		&cli.StringSliceFlag{
			Name:    "exclude",
			Aliases: []string{"x"},
			Usage:   "ICE action wildcard to skip (repeatable)",
		},
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "Deliver information ICE messages",
		},
		// Rulesets
		&cli.StringSliceFlag{
			Name:    "ruleset",
			Aliases: []string{"cube"},
			Usage:   "Additional ICE ruleset (.cub) to merge (repeatable)",
		},
		&cli.BoolFlag{
			Name:  "no-default",
			Usage: "Do not merge the default ICE ruleset",
		},
		&cli.StringFlag{
			Name:  "default-ruleset",
			Usage: "Path to the default ICE ruleset (overrides discovery)",
		},
		&cli.StringSliceFlag{
			Name:  "transform",
			Usage: "Transform (.mst) to apply before merging (repeatable, in order)",
		},
		&cli.StringFlag{
			Name:  "work-dir",
			Usage: "Directory for working copies (default: OS temp dir)",
		},
		// Outputs
		&cli.StringFlag{
			Name:  "journal",
			Usage: "Write delivered outputs to a msgpack journal file",
		},
		&cli.StringFlag{
			Name:  "report",
			Usage: "Write the run report as JSON to a file (- for stderr)",
		},
		&cli.BoolFlag{
			Name:  "quiet",
			Usage: "Suppress rendering of outputs and summary",
		},
		// Persistence policy
		&cli.StringFlag{
			Name:  "policy",
			Usage: "Persistence policy: strict, buffered, or noop (default strict with storage, noop without)",
		},
		&cli.IntFlag{
			Name:  "buffer-outputs",
			Usage: "Max buffered outputs (buffered policy)",
		},
		// Notifications
		&cli.StringFlag{
			Name:  "adapter",
			Usage: "Run-completed notification adapter: webhook or redis",
		},
		&cli.StringFlag{
			Name:  "adapter-url",
			Usage: "Adapter endpoint URL",
		},
		&cli.StringFlag{
			Name:  "adapter-channel",
			Usage: "Redis pub/sub channel (default " + redisadapter.DefaultChannel + ")",
		},
		&cli.StringSliceFlag{
			Name:  "adapter-header",
			Usage: "Webhook header as key=value (repeatable)",
		},
		&cli.DurationFlag{
			Name:  "adapter-timeout",
			Usage: "Per-attempt adapter timeout",
		},
		&cli.IntFlag{
			Name:  "adapter-retries",
			Usage: "Adapter retry attempts",
			Value: webhook.DefaultRetries,
		},
		FormatFlag,
		NoColorFlag,
		TUIFlag,
	}

	return &cli.Command{
		Name:      "validate",
		Usage:     "Run ICE validation against installer packages",
		ArgsUsage: "<package.msi> [package.msi...]",
		Flags:     append(flags, storageFlags()...),
		Action:    validateAction,
	}
}

// storageChoice holds resolved Lode storage configuration.
type storageChoice struct {
	backend   string // "fs" or "s3"; empty when storage is disabled
	path      string // fs: directory, s3: bucket/prefix
	dataset   string
	region    string
	endpoint  string
	pathStyle bool
}

func (s storageChoice) enabled() bool {
	return s.path != ""
}

// backendName is the metrics dimension for the backend.
func (s storageChoice) backendName() string {
	if !s.enabled() {
		return "none"
	}
	return s.backend
}

// policyChoice holds resolved persistence policy configuration.
type policyChoice struct {
	name          string
	bufferOutputs int
}

// adapterChoice holds resolved notification adapter configuration.
type adapterChoice struct {
	adapterType string
	url         string
	channel     string
	headers     map[string]string
	timeout     time.Duration
	retries     int
}

// validateOptions is the fully resolved validate invocation.
type validateOptions struct {
	paths []string
	runID string

	include    []string
	exclude    []string
	verbose    bool
	rulesets   []string
	noDefault  bool
	defRuleset string
	transforms []string
	workDir    string

	journal string
	report  string
	quiet   bool

	storage storageChoice
	policy  policyChoice
	adapter *adapterChoice
}

func validateAction(c *cli.Context) error {
	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for validate command", runtime.ExitCodeFatal)
	}

	cfg, err := config.Resolve(c.String("config"))
	if err != nil {
		return cli.Exit(err.Error(), runtime.ExitCodeFatal)
	}

	opts, err := resolveValidateOptions(c, cfg)
	if err != nil {
		return cli.Exit(err.Error(), runtime.ExitCodeFatal)
	}

	r, err := render.NewRenderer(c, cfg.Format)
	if err != nil {
		return cli.Exit(err.Error(), runtime.ExitCodeFatal)
	}

	eng, err := newEngine()
	if err != nil {
		return cli.Exit(fmt.Sprintf("installer engine unavailable: %v", err), runtime.ExitCodeFatal)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := executeValidate(ctx, eng, opts, r)
	if err != nil {
		return cli.Exit(err.Error(), runtime.ExitCodeFatal)
	}

	code := runtime.ExitCode(result.Outcome())
	if code == runtime.ExitCodeSuccess {
		return nil
	}
	msg := ""
	if result.Fatal != nil {
		msg = result.Fatal.Error()
	}
	return cli.Exit(msg, code)
}

// resolveValidateOptions merges flags over the config file. Flags always
// win; list flags replace the config list.
func resolveValidateOptions(c *cli.Context, cfg *config.Config) (*validateOptions, error) {
	opts := &validateOptions{
		paths:      c.Args().Slice(),
		runID:      c.String("run-id"),
		include:    resolveSlice(c, "include", cfg.Include),
		exclude:    resolveSlice(c, "exclude", cfg.Exclude),
		verbose:    resolveBool(c, "verbose", cfg.Verbose),
		rulesets:   resolveSlice(c, "ruleset", cfg.Rulesets),
		noDefault:  resolveBool(c, "no-default", cfg.NoDefaultRuleset),
		defRuleset: resolveString(c, "default-ruleset", cfg.DefaultRuleset),
		transforms: resolveSlice(c, "transform", cfg.Transforms),
		workDir:    resolveString(c, "work-dir", cfg.WorkDir),
		journal:    resolveString(c, "journal", cfg.Journal),
		report:     c.String("report"),
		quiet:      c.Bool("quiet"),
	}
	if len(opts.paths) == 0 {
		return nil, errors.New("at least one package path is required")
	}
	if opts.runID == "" {
		opts.runID = uuid.NewString()
	}

	storage, err := resolveStorage(c, cfg.Storage)
	if err != nil {
		return nil, err
	}
	opts.storage = storage

	pc, err := resolvePolicy(c, cfg.Policy, storage)
	if err != nil {
		return nil, err
	}
	opts.policy = pc

	ac, err := resolveAdapter(c, cfg.Adapter)
	if err != nil {
		return nil, err
	}
	opts.adapter = ac

	return opts, nil
}

func resolveStorage(c *cli.Context, sc config.StorageConfig) (storageChoice, error) {
	s := storageChoice{
		backend:   resolveString(c, "storage-backend", sc.Backend),
		path:      resolveString(c, "storage-path", sc.Path),
		dataset:   resolveString(c, "storage-dataset", sc.Dataset),
		region:    resolveString(c, "storage-region", sc.Region),
		endpoint:  resolveString(c, "storage-endpoint", sc.Endpoint),
		pathStyle: resolveBool(c, "storage-s3-path-style", sc.S3PathStyle),
	}
	if s.dataset == "" {
		s.dataset = lode.DefaultDataset
	}
	switch s.backend {
	case "":
		if s.path != "" {
			s.backend = "fs"
		}
	case "fs", "s3":
		if s.path == "" {
			return s, fmt.Errorf("--storage-path is required for the %s backend", s.backend)
		}
	default:
		return s, fmt.Errorf("invalid storage backend %q (must be fs or s3)", s.backend)
	}
	return s, nil
}

func resolvePolicy(c *cli.Context, pc config.PolicyConfig, storage storageChoice) (policyChoice, error) {
	p := policyChoice{
		name:          resolveString(c, "policy", pc.Name),
		bufferOutputs: resolveInt(c, "buffer-outputs", pc.BufferOutputs),
	}
	if p.name == "" {
		p.name = policy.NameNoop
		if storage.enabled() {
			p.name = policy.NameStrict
		}
	}
	switch p.name {
	case policy.NameNoop:
	case policy.NameStrict, policy.NameBuffered:
		if !storage.enabled() {
			return p, fmt.Errorf("%s policy requires --storage-path", p.name)
		}
	default:
		return p, fmt.Errorf("invalid policy %q (must be strict, buffered, or noop)", p.name)
	}
	if p.bufferOutputs < 0 {
		return p, fmt.Errorf("--buffer-outputs must be >= 0, got %d", p.bufferOutputs)
	}
	return p, nil
}

// resolveAdapter returns nil when no adapter is configured.
func resolveAdapter(c *cli.Context, ac config.AdapterConfig) (*adapterChoice, error) {
	adapterType := resolveString(c, "adapter", ac.Type)
	if adapterType == "" {
		return nil, nil
	}
	if adapterType != "webhook" && adapterType != "redis" {
		return nil, fmt.Errorf("invalid adapter %q (must be webhook or redis)", adapterType)
	}

	a := &adapterChoice{
		adapterType: adapterType,
		url:         resolveString(c, "adapter-url", ac.URL),
		channel:     resolveString(c, "adapter-channel", ac.Channel),
		timeout:     resolveDuration(c, "adapter-timeout", ac.Timeout.Duration),
		retries:     c.Int("adapter-retries"),
	}
	if a.url == "" {
		return nil, fmt.Errorf("--adapter-url is required for the %s adapter", adapterType)
	}
	if !c.IsSet("adapter-retries") && ac.Retries != nil {
		a.retries = *ac.Retries
	}
	if a.retries < 0 {
		return nil, fmt.Errorf("--adapter-retries must be >= 0, got %d", a.retries)
	}

	headers, err := parseHeaders(c.StringSlice("adapter-header"))
	if err != nil {
		return nil, err
	}
	if len(ac.Headers) > 0 || len(headers) > 0 {
		a.headers = make(map[string]string, len(ac.Headers)+len(headers))
		for k, v := range ac.Headers {
			a.headers[k] = v
		}
		for k, v := range headers {
			a.headers[k] = v
		}
	}
	return a, nil
}

// parseHeaders parses key=value pairs.
func parseHeaders(pairs []string) (map[string]string, error) {
	headers := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --adapter-header %q (must be key=value)", p)
		}
		headers[k] = v
	}
	return headers, nil
}

// executeValidate runs validation and the post-run steps: metrics and
// summary persistence, the report file, and the notification. Returns an
// error only when the run could not start.
func executeValidate(ctx context.Context, eng engine.Engine, opts *validateOptions, r *render.Renderer) (*runtime.RunResult, error) {
	runMeta := &types.RunMeta{RunID: opts.runID, StartedAt: time.Now()}
	logger := log.NewLogger(runMeta)
	defer func() { _ = logger.Sync() }()

	collector := metrics.NewCollector(opts.policy.name, opts.storage.backendName(), runMeta.RunID)

	client, err := buildLodeClient(ctx, opts.storage, runMeta)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	pol, err := buildPolicy(opts.policy, client, collector, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create policy: %w", err)
	}
	defer func() { _ = pol.Close() }()

	var jw *journal.Writer
	if opts.journal != "" {
		jw, err = journal.Create(opts.journal)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := jw.Close(); err != nil {
				logger.Warn("journal close failed", map[string]any{"error": err.Error()})
			}
		}()
	}

	rcfg := &runtime.Config{
		RunMeta:          runMeta,
		Include:          opts.include,
		Exclude:          opts.exclude,
		Verbose:          opts.verbose,
		Rulesets:         opts.rulesets,
		NoDefaultRuleset: opts.noDefault,
		DefaultRuleset:   opts.defRuleset,
		Transforms:       opts.transforms,
		WorkDir:          opts.workDir,
		Policy:           pol,
		Journal:          jw,
		Collector:        collector,
		Logger:           logger,
	}
	if !opts.quiet {
		rcfg.Observer = func(o *types.Output) {
			if err := r.RenderOutput(o); err != nil {
				logger.Warn("render output failed", map[string]any{"error": err.Error()})
			}
		}
	}

	v, err := runtime.NewValidator(eng, rcfg)
	if err != nil {
		return nil, err
	}

	result, runErr := v.Run(ctx, opts.paths)
	if runErr != nil {
		logger.Error("run failed", map[string]any{"error": runErr.Error()})
	}

	// Post-run work must finish even after a stop request.
	postCtx := context.WithoutCancel(ctx)
	report := runtime.BuildRunReport(result, collector.Snapshot(), opts.policy.name)

	if client != nil {
		persistRunRecords(postCtx, client, report, logger)
	}
	if opts.report != "" {
		if err := runtime.WriteRunReport(report, opts.report); err != nil {
			logger.Error("report write failed", map[string]any{"error": err.Error()})
		}
	}
	if opts.adapter != nil {
		event := adapter.NewRunCompletedEvent(result.Summary(), report.ExitCode, storagePath(opts.storage, runMeta), time.Now())
		if err := publishRunCompleted(postCtx, opts.adapter, event); err != nil {
			logger.Warn("run-completed notification failed", map[string]any{
				"adapter": opts.adapter.adapterType,
				"error":   err.Error(),
			})
		}
	}
	if !opts.quiet {
		if err := r.RenderSummary(result.Summary()); err != nil {
			logger.Warn("render summary failed", map[string]any{"error": err.Error()})
		}
	}
	return result, nil
}

// persistRunRecords writes the metrics record and the summary sidecar.
// Failures are logged; they never change the run outcome.
func persistRunRecords(ctx context.Context, client lode.Client, report *runtime.RunReport, logger *log.Logger) {
	if err := client.WriteMetrics(ctx, *report.Metrics, time.Now()); err != nil {
		logger.Error("metrics write failed", lode.ErrorFields(err))
	}
	data, err := runtime.MarshalRunReport(report)
	if err != nil {
		logger.Error("summary encode failed", map[string]any{"error": err.Error()})
		return
	}
	if err := client.PutFile(ctx, summaryFile, data); err != nil {
		logger.Error("summary write failed", lode.ErrorFields(err))
	}
}

// buildLodeClient returns nil when storage is disabled.
func buildLodeClient(ctx context.Context, sc storageChoice, runMeta *types.RunMeta) (*lode.LodeClient, error) {
	if !sc.enabled() {
		return nil, nil
	}
	cfg := lode.Config{
		Dataset: sc.dataset,
		Day:     runMeta.Day(),
		RunID:   runMeta.RunID,
	}
	switch sc.backend {
	case "fs":
		return lode.NewLodeClient(cfg, sc.path)
	case "s3":
		bucket, prefix := lode.ParseS3Path(sc.path)
		return lode.NewLodeS3Client(ctx, cfg, lode.S3Config{
			Bucket:       bucket,
			Prefix:       prefix,
			Region:       sc.region,
			Endpoint:     sc.endpoint,
			UsePathStyle: sc.pathStyle,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", sc.backend)
	}
}

func buildPolicy(pc policyChoice, client *lode.LodeClient, collector *metrics.Collector, logger *log.Logger) (policy.Policy, error) {
	if pc.name == policy.NameNoop {
		return policy.NewNoopPolicy(), nil
	}
	if client == nil {
		return nil, fmt.Errorf("%s policy requires storage", pc.name)
	}
	sink := lode.NewInstrumentedSink(lode.NewSink(client), collector)

	switch pc.name {
	case policy.NameStrict:
		return policy.NewStrictPolicy(sink), nil
	case policy.NameBuffered:
		bc := policy.DefaultBufferedConfig()
		if pc.bufferOutputs > 0 {
			bc.MaxOutputs = pc.bufferOutputs
		}
		bc.Logger = logger
		return policy.NewBufferedPolicy(sink, bc)
	default:
		return nil, fmt.Errorf("unknown policy: %s", pc.name)
	}
}

// storagePath locates the run's partition for downstream consumers.
// Empty when storage is disabled.
func storagePath(sc storageChoice, runMeta *types.RunMeta) string {
	if !sc.enabled() {
		return ""
	}
	cfg := lode.Config{Dataset: sc.dataset, Day: runMeta.Day(), RunID: runMeta.RunID}
	if sc.backend == "s3" {
		bucket, prefix := lode.ParseS3Path(sc.path)
		return lode.S3Config{Bucket: bucket, Prefix: prefix}.RunURI(cfg)
	}
	root := sc.path
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return filepath.Join(root, filepath.FromSlash(lode.RunPrefix(cfg)))
}

func buildAdapter(ac *adapterChoice) (adapter.Adapter, error) {
	switch ac.adapterType {
	case "webhook":
		a, err := webhook.New(webhook.Config{
			URL:     ac.url,
			Headers: ac.headers,
			Timeout: ac.timeout,
			Retries: ac.retries,
		})
		if err != nil {
			return nil, err
		}
		return a, nil
	case "redis":
		a, err := redisadapter.New(redisadapter.Config{
			URL:     ac.url,
			Channel: ac.channel,
			Timeout: ac.timeout,
			Retries: ac.retries,
		})
		if err != nil {
			return nil, err
		}
		return a, nil
	default:
		return nil, fmt.Errorf("unknown adapter type: %s", ac.adapterType)
	}
}

func publishRunCompleted(ctx context.Context, ac *adapterChoice, event *adapter.RunCompletedEvent) error {
	a, err := buildAdapter(ac)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	return a.Publish(ctx, event)
}

// resolveString returns the flag value when set on the command line,
// else the config value, else the flag default.
func resolveString(c *cli.Context, name, configValue string) string {
	if c.IsSet(name) || configValue == "" {
		return c.String(name)
	}
	return configValue
}

func resolveInt(c *cli.Context, name string, configValue int) int {
	if c.IsSet(name) || configValue == 0 {
		return c.Int(name)
	}
	return configValue
}

func resolveBool(c *cli.Context, name string, configValue bool) bool {
	if c.IsSet(name) {
		return c.Bool(name)
	}
	return configValue || c.Bool(name)
}

func resolveDuration(c *cli.Context, name string, configValue time.Duration) time.Duration {
	if c.IsSet(name) || configValue == 0 {
		return c.Duration(name)
	}
	return configValue
}

// resolveSlice replaces rather than appends: a list given on the command
// line discards the config list.
func resolveSlice(c *cli.Context, name string, configValue []string) []string {
	if c.IsSet(name) || len(configValue) == 0 {
		return c.StringSlice(name)
	}
	return configValue
}

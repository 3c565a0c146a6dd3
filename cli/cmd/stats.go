package cmd

import (
	"errors"
	"fmt"

	lodelib "github.com/justapithecus/lode/lode"
	"github.com/urfave/cli/v2"

	"github.com/justapithecus/msival/cli/config"
	"github.com/justapithecus/msival/cli/render"
	"github.com/justapithecus/msival/cli/tui"
	"github.com/justapithecus/msival/lode"
)

// StatsCommand returns the stats command.
func StatsCommand() *cli.Command {
	flags := append(ReadOnlyFlags(),
		&cli.StringFlag{
			Name:  "config",
			Usage: "Path to YAML config file (storage section is used)",
		},
		&cli.StringFlag{
			Name:  "run-id",
			Usage: "Show metrics for this run (default: latest run)",
		},
	)
	return &cli.Command{
		Name:   "stats",
		Usage:  "Show the metrics recorded for the latest (or a given) run",
		Flags:  append(flags, storageFlags()...),
		Action: statsAction,
	}
}

func statsAction(c *cli.Context) error {
	cfg, err := config.Resolve(c.String("config"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	storage, err := resolveStorage(c, cfg.Storage)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	if !storage.enabled() {
		return cli.Exit("--storage-path is required", 1)
	}

	r, err := render.NewRenderer(c, cfg.Format)
	if err != nil {
		return err
	}

	ds, err := openReadDataset(c, storage)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to open dataset: %v", err), 1)
	}

	record, err := lode.QueryLatestMetrics(c.Context, ds, c.String("run-id"))
	if errors.Is(err, lode.ErrNoMetricsFound) {
		return cli.Exit("no metrics recorded", 1)
	}
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to query metrics: %v", err), 1)
	}
	snap := lode.SnapshotFromRecord(record)

	if c.Bool("tui") {
		return r.RenderTUI(tui.ViewStatsMetrics, snap)
	}
	return r.Render(snap)
}

func openReadDataset(c *cli.Context, sc storageChoice) (lodelib.Dataset, error) {
	switch sc.backend {
	case "fs":
		return lode.NewReadDatasetFS(sc.dataset, sc.path)
	case "s3":
		bucket, prefix := lode.ParseS3Path(sc.path)
		return lode.NewReadDatasetS3(c.Context, sc.dataset, lode.S3Config{
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

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v2"

	"github.com/dev-tams/blobsweep/internal/app"
	"github.com/dev-tams/blobsweep/internal/config"
	"github.com/dev-tams/blobsweep/internal/metrics"
	"github.com/dev-tams/blobsweep/internal/notify"
	"github.com/dev-tams/blobsweep/internal/reportstore"
	"github.com/dev-tams/blobsweep/internal/retention"
	"github.com/dev-tams/blobsweep/internal/server"
	"github.com/dev-tams/blobsweep/internal/storage/blob"
	"github.com/dev-tams/blobsweep/pkg/logger"
)

func loadValidatedConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, err
	}
	if s := c.String("store"); s != "" {
		cfg.Storage.Type = strings.ToLower(s)
	}

	logger.Configure(cfg.Log.Format, cfg.Log.Level)
	if c.Bool("verbose") {
		logger.SetLevel("debug")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// wiring holds what the long-running commands share.
type wiring struct {
	runner  *app.Runner
	reports *reportstore.Store
	metrics *metrics.Collector
}

func (w *wiring) Close() {
	if w.reports != nil {
		_ = w.reports.Close()
	}
}

func wire(c *cli.Context, cfg *config.Config) (*wiring, error) {
	collector := metrics.NewCollector(nil)

	job, err := app.BuildJob(c.Context, cfg, collector)
	if err != nil {
		return nil, err
	}

	dispatcher, err := notify.NewDispatcher(cfg.Notifications)
	if err != nil {
		return nil, err
	}

	w := &wiring{metrics: collector}
	var sink app.ReportSink
	if cfg.Redis.Enabled() {
		rs, err := reportstore.New(c.Context, cfg.Redis)
		if err != nil {
			return nil, err
		}
		w.reports = rs
		sink = rs
	}

	w.runner = app.NewRunner(job, sink, dispatcher)
	return w, nil
}

func runCommand(c *cli.Context) error {
	cfg, err := loadValidatedConfig(c)
	if err != nil {
		return err
	}
	w, err := wire(c, cfg)
	if err != nil {
		return err
	}
	defer w.Close()

	report, err := w.runner.Run(c.Context, app.Options{DryRun: c.Bool("dry-run")})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func serveCommand(c *cli.Context) error {
	cfg, err := loadValidatedConfig(c)
	if err != nil {
		return err
	}
	if cfg.Server.CronSecret == "" {
		return fmt.Errorf("server.cron_secret (or CRON_SECRET) is required to serve")
	}
	w, err := wire(c, cfg)
	if err != nil {
		return err
	}
	defer w.Close()

	gin.SetMode(cfg.Server.Mode)
	deps := server.Deps{
		Runner:  w.runner,
		Metrics: w.metrics.Handler(),
		Secret:  cfg.Server.CronSecret,
	}
	if w.reports != nil {
		deps.Reports = w.reports
	}

	srv := server.New(cfg.Server, server.NewRouter(deps))
	return server.ListenAndServe(c.Context, srv)
}

func daemonCommand(c *cli.Context) error {
	cfg, err := loadValidatedConfig(c)
	if err != nil {
		return err
	}
	if strings.TrimSpace(cfg.Schedule.Cron) == "" {
		return fmt.Errorf("daemon: schedule.cron is empty")
	}
	w, err := wire(c, cfg)
	if err != nil {
		return err
	}
	defer w.Close()

	return app.RunDaemon(c.Context, w.runner, cfg.Schedule)
}

func classifyCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("classify: at least one KEY is required")
	}

	table, err := retention.NewPolicyTable(nil)
	if err != nil {
		return err
	}
	classifier := retention.NewClassifier(retention.DefaultRules())
	evaluator := retention.NewEvaluator(table, retention.DefaultProtected())
	now := time.Now().UTC()

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tCATEGORY\tTIMESTAMP\tDECISION\tREASON")
	for _, key := range c.Args().Slice() {
		obj := blob.Object{Key: key, Size: c.Int64("size")}

		ts := "-"
		if t, ok := retention.ExtractTimestamp(key); ok {
			ts = t.Format(time.RFC3339)
		}

		cat, ok := classifier.Classify(obj)
		if !ok {
			fmt.Fprintf(tw, "%s\t-\t%s\tkeep\tunclassified\n", key, ts)
			continue
		}
		v := evaluator.Evaluate(obj, cat, now)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", key, cat, ts, v.Decision, v.Reason)
	}
	return tw.Flush()
}

func checkCommand(c *cli.Context) error {
	cfg, err := loadValidatedConfig(c)
	if err != nil {
		return err
	}
	table, err := retention.NewPolicyTable(cfg.Retention.MaxAgeDays)
	if err != nil {
		return err
	}

	fmt.Printf("config OK: storage=%s concurrency=%d schedule=%q redis=%t notifications=%d\n",
		cfg.Storage.Type, cfg.Retention.DeleteConcurrency, cfg.Schedule.Cron, cfg.Redis.Enabled(), len(cfg.Notifications))

	classifier := retention.NewClassifier(retention.DefaultRules())
	cats := classifier.Categories()
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tPREFIX\tPOLICY")
	for _, cat := range cats {
		prefix, _ := classifier.Prefix(cat)
		if prefix == "" {
			prefix = "(all)"
		}
		p, _ := table.Lookup(cat)
		policy := "immediate"
		if !p.Immediate {
			policy = fmt.Sprintf("%d days", p.MaxAgeDays)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", cat, prefix, policy)
	}
	return tw.Flush()
}

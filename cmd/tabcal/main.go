package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"tabcal/internal/config"
	appLog "tabcal/internal/log"
	"tabcal/internal/pipeline"
	"tabcal/internal/weekview"
	"tabcal/internal/xlsx"
)

// flagConfig holds CLI flag values; flags override config-file and
// environment settings.
type flagConfig struct {
	input   string
	mapping string
	filters string

	configPath string
	timezone   string
	outputDir  string
	company    string
	skip       string
	exact      bool

	weekView         bool
	weekViewOutput   string
	weekViewTemplate string
	weekViewCalendar string
	weekViewSplit    bool

	watch bool
	debug bool
}

func main() {
	// A local .env may carry TABCAL_* overrides; absence is fine.
	_ = godotenv.Load()

	flags := parseFlags()
	if flags.input == "" {
		fmt.Fprintln(os.Stderr, "usage: tabcal [flags] <timetable.xlsx>")
		flag.PrintDefaults()
		os.Exit(2)
	}

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	applyFlags(conf, flags)
	appLog.Init(conf.Debug)

	appLog.Info("tabcal starting",
		"input", flags.input,
		"mapping", flags.mapping,
		"filters", flags.filters,
		"timezone", conf.Timezone,
		"output_dir", conf.OutputDir,
		"week_view", flags.weekView,
		"watch", flags.watch,
	)

	if err := runOnce(flags, conf); err != nil {
		appLog.Error("run failed", err)
		os.Exit(1)
	}

	if !flags.watch {
		return
	}

	// Watch mode: re-run the export on the configured cron schedule until
	// interrupted. The source file is re-read on every tick.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	c := cron.New()
	if _, err := c.AddFunc(conf.RefreshCron, func() {
		if err := runOnce(flags, conf); err != nil {
			appLog.Error("scheduled run failed", err)
		}
	}); err != nil {
		appLog.Error("invalid refresh schedule", err, "refresh", conf.RefreshCron)
		os.Exit(1)
	}
	c.Start()
	appLog.Info("watching", "refresh", conf.RefreshCron)

	<-ctx.Done()
	<-c.Stop().Done()
	appLog.Info("tabcal exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.mapping, "mapping", "mapping.json", "Path to the column mapping document")
	flag.StringVar(&cfg.filters, "filters", "", "Path to the filters document (optional)")
	flag.StringVar(&cfg.configPath, "config", "", "Path to the YAML config file (optional)")
	flag.StringVar(&cfg.timezone, "timezone", "", "IANA timezone for naive timestamps (overrides config)")
	flag.StringVar(&cfg.outputDir, "output-dir", "", "Directory for generated .ics files (overrides config)")
	flag.StringVar(&cfg.company, "company", "", "PRODID company (overrides config)")
	flag.StringVar(&cfg.skip, "skip", "", "Comma-separated transform/field names to bypass")
	flag.BoolVar(&cfg.exact, "exact", false, "Force exact (case-sensitive) filter matching")

	flag.BoolVar(&cfg.weekView, "week-view", false, "Also render a printable weekly grid")
	flag.StringVar(&cfg.weekViewOutput, "week-view-output", "", "Week view output path (file, or directory with -week-view-split)")
	flag.StringVar(&cfg.weekViewTemplate, "week-view-template", "", "Path to a week view template document")
	flag.StringVar(&cfg.weekViewCalendar, "week-view-calendar", "", "Render only this calendar's week view")
	flag.BoolVar(&cfg.weekViewSplit, "week-view-split", false, "One workbook per calendar instead of one sheet per calendar")

	flag.BoolVar(&cfg.watch, "watch", false, "Keep running and re-export on the refresh schedule")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")

	flag.Parse()
	cfg.input = flag.Arg(0)
	return cfg
}

func applyFlags(conf *config.Config, flags flagConfig) {
	if flags.timezone != "" {
		conf.Timezone = flags.timezone
	}
	if flags.outputDir != "" {
		conf.OutputDir = flags.outputDir
	}
	if flags.company != "" {
		conf.Company = flags.company
	}
	if flags.skip != "" {
		conf.SkipTransforms = strings.Split(flags.skip, ",")
	}
	if flags.debug {
		conf.Debug = true
	}
}

func runOnce(flags flagConfig, conf *config.Config) error {
	loc, err := conf.Location()
	if err != nil {
		return err
	}

	mapping, err := config.LoadMapping(flags.mapping)
	if err != nil {
		return err
	}

	filters := &config.Filters{}
	if flags.filters != "" {
		filters, err = config.LoadFilters(flags.filters)
		if err != nil {
			return err
		}
	}

	outputDir := conf.OutputDir
	if filters.OutputDir != "" && flags.outputDir == "" {
		outputDir = filters.OutputDir
	}

	opts := pipeline.Options{
		Mapping:        mapping,
		Filters:        filters,
		Location:       loc,
		Company:        conf.Company,
		SkipTransforms: conf.SkipSet(),
		ForceExact:     flags.exact,
	}

	if flags.weekView {
		tmplPath := flags.weekViewTemplate
		if tmplPath == "" {
			tmplPath = filters.WeekViewTemplate
		}
		if tmplPath != "" {
			opts.WeekView, err = config.LoadWeekView(tmplPath)
			if err != nil {
				return err
			}
		} else {
			opts.WeekView = config.DefaultWeekView()
		}

		target := flags.weekViewOutput
		if target == "" {
			target = filters.WeekViewOutput
		}
		switch {
		case flags.weekViewCalendar != "":
			opts.WeekViewPolicy = weekview.PolicySingleSheet
			opts.WeekViewCalendar = flags.weekViewCalendar
			if target == "" {
				target = filepath.Join(outputDir, flags.weekViewCalendar+".xlsx")
			}
		case flags.weekViewSplit:
			opts.WeekViewPolicy = weekview.PolicyWorkbookPerCalendar
			if target == "" {
				target = outputDir
			}
		default:
			opts.WeekViewPolicy = weekview.PolicySingleWorkbook
			if target == "" {
				target = filepath.Join(outputDir, "week_view.xlsx")
			}
		}
		opts.WeekViewTarget = target
	}

	records, err := xlsx.ReadRecords(flags.input)
	if err != nil {
		return err
	}

	res, err := pipeline.Run(records, opts)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return err
	}
	for _, name := range res.Order {
		path := filepath.Join(outputDir, name+".ics")
		if err := os.WriteFile(path, []byte(res.Documents[name]), 0o644); err != nil {
			return err
		}
		appLog.Info("calendar written", "path", path, "bytes", len(res.Documents[name]))
	}

	for _, wb := range res.Workbooks {
		if dir := filepath.Dir(wb.Name); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
		}
		f, err := weekview.Render(wb)
		if err != nil {
			return err
		}
		if err := f.SaveAs(wb.Name); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		appLog.Info("week view written", "path", wb.Name, "sheets", len(wb.Sheets))
	}

	report(res)
	return nil
}

// report prints the end-of-run summary the way a user reads it: what was
// produced, then what went wrong.
func report(res *pipeline.Result) {
	appLog.Info("export summary",
		"calendars", len(res.Order),
		"events", res.Assembled,
		"filtered", res.Filtered,
		"record_errors", len(res.RecordErrors),
		"unrouted", len(res.Warnings),
	)
	for _, re := range res.RecordErrors {
		fmt.Fprintf(os.Stderr, "record error: %v\n", re)
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
}

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"

	"github.com/joho/godotenv"

	"valuation_dashboard/pkg/app"
	"valuation_dashboard/pkg/core/config"
	"valuation_dashboard/pkg/core/logging"
	"valuation_dashboard/pkg/core/pipeline"
	"valuation_dashboard/pkg/core/report"
	"valuation_dashboard/pkg/core/statement"
)

type options struct {
	ticker         string
	period         string
	format         string
	forecast       int
	growth         *float64
	workingCapital bool
	window         int
	overlay        bool
}

func parseOptions(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("pipeline", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.ticker, "ticker", "", "ticker symbol (required)")
	fs.StringVar(&o.period, "period", "", "fiscal period end, YYYY-MM-DD (default: latest)")
	fs.StringVar(&o.format, "format", "markdown", "output format: markdown, json or html")
	fs.IntVar(&o.forecast, "forecast", -1, "print an N-period NOPAT forecast instead of the summary")
	fs.Func("growth", "forecast growth rate override, e.g. 0.03 or -0.02", func(v string) error {
		g, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		o.growth = &g
		return nil
	})
	fs.BoolVar(&o.workingCapital, "working-capital", false, "print the working-capital table instead of the summary")
	fs.IntVar(&o.window, "window", 0, "working-capital window, 3 or 5 (default: configured)")
	fs.BoolVar(&o.overlay, "overlay", false, "attach the macro overlay to the working-capital table")

	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.ticker == "" {
		fs.Usage()
		return o, fmt.Errorf("-ticker is required")
	}
	return o, nil
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run returns the process exit code so deferred cleanup always runs.
func run(args []string, stdout, stderr io.Writer) int {
	o, err := parseOptions(args, stderr)
	if err != nil {
		return 2
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 1
	}
	// logs go to stderr so stdout stays clean for the report
	log := logging.NewWithWriter(stderr, cfg.LogLevel, "pretty")

	assumptions, err := config.LoadAssumptions(cfg.AssumptionsFile)
	if err != nil {
		log.Error().Err(err).Msg("load assumptions")
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := app.Build(ctx, cfg, assumptions, log)
	if err != nil {
		log.Error().Err(err).Msg("build service")
		return 1
	}
	defer a.Close()

	var out string
	switch {
	case o.workingCapital:
		rep, err := a.Service.WorkingCapital(ctx, o.ticker, o.window, o.overlay)
		if err != nil {
			log.Error().Err(err).Msg("working capital")
			return 1
		}
		out, err = render(o.format, rep, report.WorkingCapitalMarkdown(rep))
		if err != nil {
			log.Error().Err(err).Msg("render")
			return 1
		}
	case o.forecast >= 0:
		rows, err := a.Service.Forecast(ctx, o.ticker, pipeline.ForecastOptions{Horizon: &o.forecast, GrowthRate: o.growth})
		if err != nil {
			log.Error().Err(err).Msg("forecast")
			return 1
		}
		out, err = render(o.format, rows, report.ForecastMarkdown(o.ticker, rows))
		if err != nil {
			log.Error().Err(err).Msg("render")
			return 1
		}
	default:
		rep, err := a.Service.Run(ctx, o.ticker, statement.Period(o.period))
		if err != nil {
			log.Error().Err(err).Msg("valuation run")
			return 1
		}
		out, err = render(o.format, rep, report.Markdown(rep))
		if err != nil {
			log.Error().Err(err).Msg("render")
			return 1
		}
	}

	_, _ = io.WriteString(stdout, out)
	return 0
}

func render(format string, v any, markdown string) (string, error) {
	switch format {
	case "markdown", "md":
		return markdown, nil
	case "html":
		return report.HTML(markdown)
	case "json":
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return "", err
		}
		return string(b) + "\n", nil
	}
	return "", fmt.Errorf("unknown format %q", format)
}

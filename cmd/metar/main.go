// Command metar decodes METAR reports from the command line.
//
//	metar decode "KJFK 161251Z 28008KT 10SM CLR 22/13 A3012"
//	echo "KJFK 161251Z ..." | metar decode
//	metar fetch KJFK
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/yegors/metar-reader/internal/metar"
	"github.com/yegors/metar-reader/internal/observability"
	"github.com/yegors/metar-reader/internal/weather"
	"github.com/yegors/metar-reader/pkg/logger"
)

const usage = `usage:
  metar decode [-format json|text] [REPORT...]   decode a report (read from stdin when omitted)
  metar fetch  [-format json|text] [-api URL] [-v] CODE   fetch and decode the latest report for an airport`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr, observability.NewMetrics()))
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer, metrics *observability.Metrics) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, usage)
		return 2
	}

	switch args[0] {
	case "decode":
		return runDecode(args[1:], stdin, stdout, stderr)
	case "fetch":
		return runFetch(ctx, args[1:], stdout, stderr, metrics)
	case "-h", "--help", "help":
		fmt.Fprintln(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n%s\n", args[0], usage)
		return 2
	}
}

func runDecode(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("decode", flag.ContinueOnError)
	fs.SetOutput(stderr)
	format := fs.String("format", "json", "output format: json or text")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	raw := strings.Join(fs.Args(), " ")
	if raw == "" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			fmt.Fprintf(stderr, "error reading stdin: %v\n", err)
			return 1
		}
		raw = string(data)
	}

	report, err := metar.Decode(raw)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	return write(stdout, stderr, *format, strings.TrimSpace(raw), report)
}

func runFetch(ctx context.Context, args []string, stdout, stderr io.Writer, metrics *observability.Metrics) int {
	fs := flag.NewFlagSet("fetch", flag.ContinueOnError)
	fs.SetOutput(stderr)
	format := fs.String("format", "json", "output format: json or text")
	apiURL := fs.String("api", weather.DefaultWeatherConfig().APIBaseURL, "aviationweather.gov data API base URL")
	verbose := fs.Bool("v", false, "log requests to stderr")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, usage)
		return 2
	}

	log := logger.NewNop()
	if *verbose {
		var err error
		log, err = logger.New(logger.Config{Level: "debug", Format: "console"})
		if err != nil {
			fmt.Fprintf(stderr, "error creating logger: %v\n", err)
			return 1
		}
		defer log.Sync()
	}

	config := weather.DefaultWeatherConfig()
	config.APIBaseURL = *apiURL
	client := weather.NewClient(config, metrics, log)
	service := weather.NewService(config, client, weather.NewMemoryCache(config.CacheExpiry(), nil, log), nil, metrics, log)

	lookup, err := service.Lookup(ctx, fs.Arg(0))
	if err != nil {
		fmt.Fprintln(stderr, err)
		var validationErr *weather.ValidationError
		if errors.As(err, &validationErr) {
			return 2
		}
		return 1
	}

	if *format == "json" {
		return writeJSON(stdout, stderr, lookup)
	}
	return write(stdout, stderr, *format, lookup.RawMETAR, lookup.Decoded)
}

func write(stdout, stderr io.Writer, format, raw string, report *metar.Report) int {
	switch format {
	case "json":
		return writeJSON(stdout, stderr, map[string]any{"raw_metar": raw, "decoded_data": report})
	case "text":
		fmt.Fprint(stdout, formatText(raw, report))
		return 0
	default:
		fmt.Fprintf(stderr, "unknown format %q\n", format)
		return 2
	}
}

func writeJSON(stdout, stderr io.Writer, v any) int {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(stderr, "error encoding output: %v\n", err)
		return 1
	}
	return 0
}

// formatText renders a report the way the web page lays it out
func formatText(raw string, report *metar.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Raw:          %s\n", raw)

	if report.Time != nil {
		fmt.Fprintf(&b, "Observed:     %s\n", *report.Time)
	}
	if w := report.Wind; w != nil {
		line := w.Description
		if w.Speed > 0 {
			line = fmt.Sprintf("%s at %d knots", w.Description, w.Speed)
			if w.Gust != nil {
				line += fmt.Sprintf(", gusting %d knots", *w.Gust)
			}
		}
		fmt.Fprintf(&b, "Wind:         %s\n", line)
	}
	if report.Visibility != nil {
		fmt.Fprintf(&b, "Visibility:   %s\n", report.Visibility.Description)
	}
	if t := report.Temperature; t != nil {
		fmt.Fprintf(&b, "Temperature:  %d°C (%d°F)\n", t.Celsius, t.Fahrenheit)
	}
	if d := report.Dewpoint; d != nil {
		fmt.Fprintf(&b, "Dewpoint:     %d°C (%d°F)\n", d.Celsius, d.Fahrenheit)
	}
	for _, layer := range report.SkyConditions {
		if layer.Height != nil {
			fmt.Fprintf(&b, "Sky:          %s at %d feet\n", layer.Description, *layer.Height)
		} else {
			fmt.Fprintf(&b, "Sky:          %s\n", layer.Description)
		}
	}
	if len(report.WeatherPhenomena) > 0 {
		descriptions := make([]string, 0, len(report.WeatherPhenomena))
		for _, p := range report.WeatherPhenomena {
			descriptions = append(descriptions, p.Description)
		}
		fmt.Fprintf(&b, "Weather:      %s\n", strings.Join(descriptions, ", "))
	}
	if report.Pressure != nil {
		fmt.Fprintf(&b, "Pressure:     %s\n", report.Pressure.Description)
	}
	return b.String()
}

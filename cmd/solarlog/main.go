// solarlog parses inverter production logs and estimates performance ratios
// from the command line.
//
// Usage:
//
//	solarlog parse [--format auto|xlsx|xlsx-stream|csv|xml] [--tz Asia/Ho_Chi_Minh] FILE
//	solarlog export --out report.xlsx|report.pdf|report.csv FILE
//	solarlog rpr --records records.json [--irradiance irr.csv]
//	solarlog token --secret S --tenant T --role operator
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"isolar-cloud/internal/auth"
	performance "isolar-cloud/internal/performance/domain"
	"isolar-cloud/internal/performance/infrastructure/irradiance"
	"isolar-cloud/internal/production/application"
	production "isolar-cloud/internal/production/domain"
	"isolar-cloud/internal/production/infrastructure/memory"
	"isolar-cloud/internal/production/infrastructure/sources"
	"isolar-cloud/internal/production/interfaces"
)

var version = "dev"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "solarlog",
		Usage:   "Daily production from inverter logs",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "tz",
				Usage:   "Time zone used for day bucketing (default: local)",
				EnvVars: []string{"TIMEZONE"},
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Log diagnostics to stderr",
			},
		},
		Commands: []*cli.Command{
			parseCommand(),
			exportCommand(),
			rprCommand(),
			tokenCommand(),
		},
	}
}

func parseCommand() *cli.Command {
	return &cli.Command{
		Name:      "parse",
		Usage:     "Aggregate a production log into daily kWh",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Value:   "auto",
				Usage:   "Input format (auto, xlsx, xlsx-stream, csv, xml)",
			},
		},
		Action: func(c *cli.Context) error {
			name, data, err := readInput(c)
			if err != nil {
				return err
			}
			format := c.String("format")
			if format == "auto" {
				if format, err = production.DetectFormat(name, production.FormatXLSXStream); err != nil {
					return err
				}
			}
			loc, err := location(c)
			if err != nil {
				return err
			}
			src, err := sources.Open(format, data)
			if err != nil {
				return err
			}
			defer src.Close()
			result, err := production.Compute(c.Context, format, src, production.IngestOptions{Location: loc})
			if err != nil {
				return err
			}
			return printJSON(c.App.Writer, result)
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Write a daily production report as PDF, XLSX or CSV",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "out",
				Aliases:  []string{"o"},
				Usage:    "Output path; the extension selects the format",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "station",
				Usage: "Station id printed on the report",
			},
		},
		Action: func(c *cli.Context) error {
			name, data, err := readInput(c)
			if err != nil {
				return err
			}
			out := c.String("out")
			format := strings.TrimPrefix(strings.ToLower(filepath.Ext(out)), ".")
			loc, err := location(c)
			if err != nil {
				return err
			}
			svc, err := application.NewParseService(memory.NewReportRepository(), nil, logger(c), application.WithLocation(loc))
			if err != nil {
				return err
			}
			report, err := svc.Import(c.Context, application.ImportRequest{
				StationID: c.String("station"),
				FileName:  filepath.Base(name),
				Data:      data,
			})
			if err != nil {
				return err
			}
			if !report.Result.Success {
				return errors.New(report.Result.Message)
			}
			rendered, err := interfaces.BuildReport(format, report)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, rendered, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "%s\n", report.Period.Message)
			return nil
		},
	}
}

func rprCommand() *cli.Command {
	return &cli.Command{
		Name:  "rpr",
		Usage: "Estimate the real performance ratio of 5-minute interval records",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "records",
				Usage:    "JSON array of interval records",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "irradiance",
				Usage: "Optional irradiance CSV or XLSX keyed by timestamp",
			},
		},
		Action: func(c *cli.Context) error {
			raw, err := os.ReadFile(c.String("records"))
			if err != nil {
				return err
			}
			var records []performance.IntervalRecord
			if err := json.Unmarshal(raw, &records); err != nil {
				return fmt.Errorf("decode records: %w", err)
			}
			var table *performance.IrradianceTable
			if path := c.String("irradiance"); path != "" {
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				if table, err = irradiance.Read(path, data); err != nil {
					return err
				}
			}
			var observer performance.Observer
			if c.Bool("verbose") {
				observer = performance.LogObserver{Logger: logger(c)}
			}
			return printJSON(c.App.Writer, performance.NewEstimator(observer).Estimate(records, table))
		},
	}
}

func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Issue an API bearer token",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "secret", Required: true, EnvVars: []string{"AUTH_JWT_SECRET"}},
			&cli.StringFlag{Name: "tenant", Required: true},
			&cli.StringFlag{Name: "role", Value: string(auth.RoleViewer), Usage: "viewer, operator or admin"},
			&cli.StringFlag{Name: "subject", Value: "cli"},
			&cli.DurationFlag{Name: "ttl", Value: 24 * time.Hour},
		},
		Action: func(c *cli.Context) error {
			token, err := auth.IssueJWT([]byte(c.String("secret")), c.String("tenant"), auth.Role(c.String("role")), c.String("subject"), c.Duration("ttl"))
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, token)
			return nil
		},
	}
}

func readInput(c *cli.Context) (string, []byte, error) {
	if c.NArg() != 1 {
		return "", nil, errors.New("expected exactly one input file")
	}
	name := c.Args().First()
	f, err := os.Open(name)
	if err != nil {
		return "", nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	return name, data, err
}

func location(c *cli.Context) (*time.Location, error) {
	if tz := c.String("tz"); tz != "" {
		return time.LoadLocation(tz)
	}
	return time.Local, nil
}

func logger(c *cli.Context) *log.Logger {
	if c.Bool("verbose") {
		return log.New(c.App.ErrWriter, "", log.LstdFlags)
	}
	return log.New(io.Discard, "", 0)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Command rendiconto builds the bimonthly accountant report.
//
//	rendiconto [serve]                      run the HTTP trigger surface and,
//	                                        with AUTO_SEND, the scheduled delivery
//	rendiconto check [-date D | -year Y -bimester B]
//	rendiconto send  [-date D | -year Y -bimester B]
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"rendiconto/internal/backend"
	"rendiconto/internal/cli"
	"rendiconto/internal/config"
	"rendiconto/internal/core"
	apphttp "rendiconto/internal/http"
	applog "rendiconto/internal/log"
	"rendiconto/internal/pdf"
	"rendiconto/internal/services"
	"rendiconto/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	cmd, args := "serve", os.Args[1:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg.LogLevel)

	svc, cleanup, err := buildService(context.Background(), cfg, logger)
	if err != nil {
		logger.LogError(context.Background(), "Startup failed", err, applog.OpStartup, nil)
		os.Exit(1)
	}
	defer cleanup()

	switch cmd {
	case "serve":
		err = serve(cfg, svc, logger)
	case "check", "send":
		err = runOnce(cmd, args, svc, logger)
	default:
		err = fmt.Errorf("unknown command %q (want serve, check or send)", cmd)
	}
	if err != nil {
		logger.LogError(context.Background(), "Command failed", err, cmd, nil)
		cleanup()
		os.Exit(1)
	}
}

func buildService(ctx context.Context, cfg *config.Config, logger *applog.Logger) (*services.ReportService, func(), error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, nil, err
	}

	table := core.DefaultExpectations()
	if cfg.ExpectationsFile != "" {
		table, err = core.LoadExpectations(cfg.ExpectationsFile)
		if err != nil {
			return nil, nil, err
		}
	}
	logger.Info("Loaded bill expectations", applog.FieldCount, table.Len())

	res, err := backend.NewFactory(logger).Create(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	downloader := pdf.NewDownloader(&http.Client{Timeout: cfg.DownloadTimeout})
	composer := services.NewComposer(services.ComposerConfig{
		From:          cfg.ReportSender,
		To:            cfg.ReportTo,
		Cc:            cfg.ReportCc,
		Language:      cfg.IncomeDocLanguage,
		Greeting:      cfg.ReportGreeting,
		Signature:     cfg.ReportSignature,
		AttachSummary: cfg.ReportAttachSummary,
	}, downloader, nil)

	svc := services.NewReportService(res.Books, table, composer, res.Sender, res.Events, loc)

	cleanup := func() {
		if res.Cleanup == nil {
			return
		}
		if err := res.Cleanup(); err != nil {
			logger.Warn("Cleanup failed", applog.FieldError, err)
		}
		res.Cleanup = nil
	}
	return svc, cleanup, nil
}

func serve(cfg *config.Config, svc *services.ReportService, logger *applog.Logger) error {
	opts := apphttp.Options{
		SiteCode: cfg.SiteCode,
		Logger:   logger.WithComponent(applog.ComponentHTTP),
	}
	srv := apphttp.NewServer(":"+cfg.Port, svc, opts)
	srv.ReadTimeout = 10 * time.Second
	// A report run downloads and merges every document before answering.
	srv.WriteTimeout = 10 * time.Minute
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
	})

	if cfg.AutoSend {
		loc, err := cfg.Location()
		if err != nil {
			return err
		}
		sched := worker.NewScheduler(svc, cfg.AutoSendInterval, cfg.AutoSendDay, loc,
			logger.WithComponent(applog.ComponentScheduler))
		go sched.Run(applog.WithContext(ctx, logger))
	}

	logger.Info("Starting HTTP server", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	cli.WaitForShutdown(ctx, done)
	return nil
}

func runOnce(cmd string, args []string, svc *services.ReportService, logger *applog.Logger) error {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	date := fs.String("date", "", "reference date (YYYY-MM-DD); defaults to today")
	year := fs.Int("year", 0, "year of the period, with -bimester")
	bimester := fs.Int("bimester", 0, "bimester 1..6, with -year")
	if err := fs.Parse(args); err != nil {
		return err
	}

	period, err := resolvePeriod(svc, *date, *year, *bimester)
	if err != nil {
		return err
	}

	ctx := applog.WithContext(context.Background(), logger)
	var out any
	if cmd == "check" {
		res, err := svc.Check(ctx, period)
		if err != nil {
			return err
		}
		if !res.Reconciliation.Clean() {
			logger.Warn("Expected bills are missing",
				"missing", res.Reconciliation.Missing,
				"short", res.Reconciliation.Short)
		}
		fmt.Println(services.FormatSummary(res.Undocumented))
		out = res
	} else {
		res, err := svc.Send(ctx, period)
		if err != nil {
			return err
		}
		out = res
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func resolvePeriod(svc *services.ReportService, date string, year, bimester int) (core.ReportingPeriod, error) {
	switch {
	case date != "":
		ref, err := core.ParseReferenceDate(date)
		if err != nil {
			return core.ReportingPeriod{}, err
		}
		return svc.Period(&ref), nil
	case year != 0 || bimester != 0:
		if year == 0 || bimester == 0 {
			return core.ReportingPeriod{}, errors.New("-year and -bimester must be given together")
		}
		return core.PeriodForBimester(year, bimester)
	default:
		return svc.Period(nil), nil
	}
}

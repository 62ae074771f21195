/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// fleetvet runs a health and compliance test catalog against a network
// fleet and reports the results. Exit codes: 0 clean, 1 policy breach,
// 2 engine failure.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carverauto/fleetvet/pkg/archive"
	"github.com/carverauto/fleetvet/pkg/catalog"
	"github.com/carverauto/fleetvet/pkg/config"
	"github.com/carverauto/fleetvet/pkg/device"
	"github.com/carverauto/fleetvet/pkg/events"
	"github.com/carverauto/fleetvet/pkg/inventory"
	"github.com/carverauto/fleetvet/pkg/logger"
	"github.com/carverauto/fleetvet/pkg/models"
	"github.com/carverauto/fleetvet/pkg/render"
	"github.com/carverauto/fleetvet/pkg/report"
	"github.com/carverauto/fleetvet/pkg/runner"
)

const (
	exitClean       = 0
	exitBreach      = 1
	exitEngineError = 2

	defaultProbeTimeout     = 10 * time.Second
	defaultProbeConcurrency = 8
	defaultSNMPPort         = 161
)

var errFailedToLoadConfig = fmt.Errorf("failed to load config")

func main() {
	os.Exit(realMain())
}

func realMain() int {
	configPath := flag.String("config", "/etc/fleetvet/fleetvet.json", "Path to fleetvet config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfgLoader := config.NewConfig(nil)

	var cfg AppConfig

	if err := cfgLoader.LoadAndValidate(ctx, *configPath, &cfg); err != nil {
		log.Printf("%v: %v", errFailedToLoadConfig, err)
		return exitEngineError
	}

	logConfig := cfg.Logging
	if logConfig == nil {
		logConfig = &logger.Config{Level: "info", Output: "stderr"}
	}

	fvLogger, err := logger.NewComponent("fleetvet", logConfig)
	if err != nil {
		log.Printf("failed to initialize logger: %v", err)
		return exitEngineError
	}

	return run(ctx, &cfg, fvLogger)
}

func run(ctx context.Context, cfg *AppConfig, fvLogger logger.Logger) int {
	inv, err := inventory.Load(cfg.Inventory)
	if err != nil {
		fvLogger.Error().Err(err).Msg("Failed to load inventory")
		return exitEngineError
	}

	tests, err := catalog.Load(cfg.Catalog)
	if err != nil {
		fvLogger.Error().Err(err).Msg("Failed to load test catalog")
		return exitEngineError
	}

	if len(cfg.Tests) > 0 {
		if tests, err = catalog.Select(tests, cfg.Tests); err != nil {
			fvLogger.Error().Err(err).Msg("Unknown test selection")
			return exitEngineError
		}
	}

	devices := inv.Build()

	prober := newProber(cfg, inv, fvLogger)
	if err := prober.ProbeAll(ctx, devices); err != nil {
		fvLogger.Error().Err(err).Msg("Probe sweep failed")
		return exitEngineError
	}

	defer prober.CloseAll(devices)

	established := device.Established(devices)
	offline := device.Offline(devices)

	for _, dev := range offline {
		fvLogger.Warn().Str("device", dev.Host).Str("addr", dev.Addr).Msg("Device unreachable; skipping")
	}

	rep := report.New(fvLogger)

	r, err := runner.New(cfg.Runner, catalog.Defaults(), rep, nil, fvLogger)
	if err != nil {
		fvLogger.Error().Err(err).Msg("Failed to build runner")
		return exitEngineError
	}

	runErr := r.Run(ctx, established, tests)

	rep.Finish()

	if err := renderReport(cfg, rep, offline, fvLogger); err != nil {
		fvLogger.Error().Err(err).Msg("Failed to render report")
		return exitEngineError
	}

	publishRun(ctx, cfg, rep, fvLogger)
	archiveRun(ctx, cfg, rep, fvLogger)

	if runErr != nil {
		fvLogger.Error().Err(runErr).Msg("Run did not complete cleanly")
		return exitEngineError
	}

	return exitCode(cfg, rep.Summary(), len(offline))
}

func newProber(cfg *AppConfig, inv *inventory.Inventory, fvLogger logger.Logger) *device.Prober {
	timeout := time.Duration(cfg.Probe.Timeout)
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}

	concurrency := cfg.Probe.Concurrency
	if concurrency <= 0 {
		concurrency = defaultProbeConcurrency
	}

	dialer := device.NewSSHDialer(timeout, fvLogger)

	var enricher *device.SNMPEnricher

	if inv.SNMP != nil && inv.SNMP.Community != "" {
		port := inv.SNMP.Port
		if port == 0 {
			port = defaultSNMPPort
		}

		enricher = device.NewSNMPEnricher(inv.SNMP.Community, port, inv.SNMP.SNMPTimeout(), fvLogger)
	}

	return device.NewProber(dialer, enricher, timeout, concurrency, fvLogger)
}

func renderReport(cfg *AppConfig, rep *report.Report, offline []*device.Device, fvLogger logger.Logger) error {
	switch cfg.Render {
	case renderJSON:
		return render.JSON(os.Stdout, rep, offline)
	case renderLog:
		render.Log(fvLogger, rep)
		return nil
	default:
		return render.Table(os.Stdout, rep, offline)
	}
}

func publishRun(ctx context.Context, cfg *AppConfig, rep *report.Report, fvLogger logger.Logger) {
	if cfg.NATS == nil {
		return
	}

	pub, err := events.Connect(ctx, *cfg.NATS, fvLogger)
	if err != nil {
		fvLogger.Warn().Err(err).Msg("Skipping event publish; NATS unavailable")
		return
	}

	defer pub.Close()

	if err := pub.PublishRunCompleted(ctx, rep.Summary()); err != nil {
		fvLogger.Warn().Err(err).Msg("Failed to publish run summary")
	}

	if err := pub.PublishRecords(ctx, rep.RunID(), rep.Records()); err != nil {
		fvLogger.Warn().Err(err).Msg("Failed to publish run records")
	}
}

func archiveRun(ctx context.Context, cfg *AppConfig, rep *report.Report, fvLogger logger.Logger) {
	if cfg.Archive == nil {
		return
	}

	pool, err := archive.NewPool(ctx, *cfg.Archive)
	if err != nil {
		fvLogger.Warn().Err(err).Msg("Skipping archive; database unavailable")
		return
	}

	store, err := archive.New(ctx, pool, fvLogger)
	if err != nil {
		pool.Close()
		fvLogger.Warn().Err(err).Msg("Skipping archive; schema setup failed")

		return
	}

	defer store.Close()

	if err := store.SaveRun(ctx, rep); err != nil {
		fvLogger.Warn().Err(err).Msg("Failed to archive run")
	}
}

func exitCode(cfg *AppConfig, summary report.Summary, offlineCount int) int {
	switch cfg.FailOn {
	case failOnNever:
		return exitClean
	case failOnError:
		if summary.ByStatus[models.StatusError] > 0 {
			return exitBreach
		}

		return exitClean
	default:
		if !summary.Clean || offlineCount > 0 {
			return exitBreach
		}

		return exitClean
	}
}

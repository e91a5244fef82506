package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/afmlab/maskgen"
	"github.com/afmlab/maskgen/internal/config"
)

func main() {
	var dataRoot, configPath, exportDir, imageGlob string
	var workers int
	var instance, noOverlays, noSummary, inspect, prune, debug bool

	flag.StringVar(&dataRoot, "data", "", "dataset root directory (required)")
	flag.StringVar(&configPath, "config", "", "JSON config file (defaults apply when omitted)")
	flag.IntVar(&workers, "workers", 0, "parallel workers (0 = one per CPU core)")
	flag.BoolVar(&instance, "instance", false, "write instance-labeled masks (1..N per cell) instead of binary")
	flag.BoolVar(&noOverlays, "no-overlays", false, "skip sanity-check overlay rendering")
	flag.BoolVar(&noSummary, "no-summary", false, "skip summary CSV generation")
	flag.BoolVar(&inspect, "inspect", false, "only list datasets and counts, generate nothing")
	flag.BoolVar(&prune, "prune", false, "after the run, remove masks with no matching manual annotation")
	flag.StringVar(&exportDir, "export", "", "after the run, flatten frame+mask pairs into this directory")
	flag.StringVar(&imageGlob, "image-glob", "", `frame filename filter for -export, e.g. "*meas0000.tif"`)
	flag.BoolVar(&debug, "debug", false, "verbose logging")
	flag.Parse()

	if dataRoot == "" {
		fmt.Fprintf(os.Stderr, "usage: %s -data dataset_root [-instance] [-workers N] [-prune] [-export outdir]\n",
			filepath.Base(os.Args[0]))
		os.Exit(2)
	}

	logger := initLogger(debug)

	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.LoadFromFile(configPath)
		if err != nil {
			logger.WithError(err).Fatal("failed to load config")
		}
		cfg = loaded
	}
	if workers > 0 {
		cfg.Runner.Workers = workers
	}
	cfg.Masks.InstanceMode = instance
	if noOverlays {
		cfg.Overlays.Enabled = false
	}
	if noSummary {
		cfg.Summary.Enabled = false
	}
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid config")
	}

	pipeline := maskgen.NewWithConfig(cfg, logger)

	if inspect {
		infos, err := pipeline.Inspect(dataRoot)
		if err != nil {
			logger.WithError(err).Fatal("inspect failed")
		}
		for _, info := range infos {
			fmt.Printf("%s: %d images, %d jsons\n", info.Name, info.Frames, info.Annotations)
		}
		return
	}

	report, err := pipeline.Run(dataRoot)
	if err != nil {
		// run-wide misconfiguration, e.g. the root does not exist
		logger.WithError(err).Error("run aborted")
		os.Exit(2)
	}

	if prune {
		removed, err := pipeline.Prune(dataRoot)
		if err != nil {
			logger.WithError(err).Error("prune failed")
		} else {
			logger.WithField("removed", removed).Info("prune finished")
		}
	}

	if exportDir != "" {
		res, err := pipeline.Export(dataRoot, exportDir, imageGlob)
		if err != nil {
			logger.WithError(err).Error("export failed")
		} else {
			logger.WithFields(logrus.Fields{
				"pairs":   res.Pairs,
				"missing": res.Missing,
			}).Info("export finished")
		}
	}

	fmt.Println(report.String())
	if !report.OK() {
		os.Exit(1)
	}
}

// initLogger initializes the logger with appropriate level
func initLogger(debug bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	if debug {
		logger.SetLevel(logrus.DebugLevel)
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetLevel(logrus.InfoLevel)
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02 15:04:05"})
	}
	return logger
}

package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"cdcflow/config"
	"cdcflow/internal/metrics"
	"cdcflow/logger"
	"cdcflow/recorder"
	"cdcflow/rest"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "config/config.yml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"service":     cfg.App.Name,
		"version":     cfg.App.Version,
		"environment": config.AppEnvironment(),
	}).Info("starting cdcflow")

	if err := run(cfg, log); err != nil {
		log.WithError(err).Error("cdcflow stopped with error")
		os.Exit(1)
	}
	log.Info("cdcflow stopped")
}

func run(cfg *config.Config, log *logger.Log) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.CloudWatch.Enabled {
		logger.InitCloudWatch(cfg.Metrics.CloudWatch.Region, cfg.Metrics.CloudWatch.Namespace, cfg.Logging.DashboardName)
	}

	if cfg.REST.BaseURL != "" && len(cfg.Session.Subscriptions.Instruments) > 0 {
		checkInstruments(ctx, cfg, log)
	}

	rec, err := newRecorder(ctx, cfg.Recorder)
	if err != nil {
		return err
	}

	c, err := openSession(ctx, cfg.Session)
	if err != nil {
		if rec != nil {
			_ = rec.Close()
		}
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Metrics.Enabled {
		defer metrics.UnregisterMetricHandler(metrics.ExportEmitted())
		g.Go(func() error { return metrics.Serve(gctx, cfg.Metrics.Addr) })
		c.StartQueueMetrics(gctx, cfg.Metrics.QueueInterval)
	}
	logger.StartReport(gctx, log, cfg.Metrics.ReportInterval)

	if rec != nil {
		rec.Start(gctx)
	}

	handle := c.Listen(context.Background(), eventHandler(log, rec))

	g.Go(func() error {
		<-gctx.Done()
		log.WithComponent("main").Info("closing session")
		return c.Close()
	})
	g.Go(func() error {
		err := handle.Wait()
		stop()
		return err
	})

	err = g.Wait()
	if rec != nil {
		if cerr := rec.Close(); cerr != nil {
			log.WithComponent("recorder").WithError(cerr).Warn("failed to flush recorder")
		}
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// checkInstruments warns about configured instruments the venue does not
// list. A failed lookup is logged and otherwise ignored.
func checkInstruments(ctx context.Context, cfg *config.Config, log *logger.Log) {
	l := log.WithComponent("rest")

	client, err := rest.NewClient(cfg.REST.BaseURL)
	if err != nil {
		l.WithError(err).Warn("rest client unavailable")
		return
	}
	reqCtx, cancel := context.WithTimeout(ctx, cfg.REST.Timeout)
	defer cancel()

	listed, err := client.GetInstruments(reqCtx)
	if err != nil {
		l.WithError(err).Warn("failed to list instruments")
		return
	}
	known := make(map[string]struct{}, len(listed.Instruments))
	for _, inst := range listed.Instruments {
		known[inst.InstrumentName] = struct{}{}
	}
	for _, name := range cfg.Session.Subscriptions.Instruments {
		if _, ok := known[name]; !ok {
			l.WithFields(logger.Fields{"instrument": name}).Warn("instrument not listed by venue")
		}
	}
}

func newRecorder(ctx context.Context, rc config.RecorderConfig) (*recorder.Recorder, error) {
	if !rc.Enabled {
		return nil, nil
	}

	var sinks []recorder.Sink
	if rc.Parquet.Enabled || rc.S3.Enabled {
		var opts []recorder.ParquetOption
		opts = append(opts, recorder.WithCompression(rc.Parquet.Compression))
		if rc.Parquet.Enabled {
			opts = append(opts, recorder.WithLocalDir(rc.Parquet.Dir))
		}
		if rc.S3.Enabled {
			client, err := recorder.NewS3Client(ctx, rc.S3)
			if err != nil {
				return nil, err
			}
			opts = append(opts, recorder.WithS3(client, rc.S3.Bucket, rc.S3.Prefix))
		}
		sink, err := recorder.NewParquetSink(opts...)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, sink)
	}
	if rc.Kafka.Enabled {
		sink, err := recorder.NewKafkaSink(rc.Kafka.Brokers, rc.Kafka.Topic)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, sink)
	}

	return recorder.New(recorder.Options{BatchSize: rc.BatchSize, FlushInterval: rc.FlushInterval}, sinks...), nil
}

package worker

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmehdipour/engage-dispatch/internal/config"
	"github.com/jmehdipour/engage-dispatch/internal/dispatcher"
	"github.com/jmehdipour/engage-dispatch/internal/kafka"
	"github.com/jmehdipour/engage-dispatch/internal/logger"
	"github.com/jmehdipour/engage-dispatch/internal/metrics"
	"github.com/jmehdipour/engage-dispatch/internal/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	metricsAddr string
	maxAttempts int
)

var senderCmd = &cobra.Command{
	Use:   "sender",
	Short: "Run the sender worker that dispatches requests from Kafka",
	RunE:  runSender,
}

func init() {
	senderCmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9102", "address for the /metrics endpoint (empty disables it)")
	senderCmd.Flags().IntVar(&maxAttempts, "max-attempts", 3, "deliveries per request including retries")
}

func runSender(cmd *cobra.Command, args []string) error {
	// 1) load config
	cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Init(cfg.Logging.Level, cfg.Logging.Encoding)
	defer func() { _ = logger.Log.Sync() }()

	metrics.MustRegister(prometheus.DefaultRegisterer)
	stats := metrics.NewPromStats("msgd", prometheus.DefaultRegisterer)

	// 2) channels → dispatcher
	disp := dispatcher.FromConfig(cfg, logger.Log, stats)

	// 3) kafka consumer + retry producer
	groupID := cfg.Kafka.GroupID
	if groupID == "" {
		groupID = "msgd-sender"
	}
	consumer := kafka.NewConsumerFromConfig(kafka.Config{
		Brokers:        cfg.Kafka.Brokers,
		Topic:          cfg.Kafka.Topic,
		GroupID:        groupID,
		MinBytes:       cfg.Kafka.MinBytes,
		MaxBytes:       cfg.Kafka.MaxBytes,
		CommitInterval: time.Duration(cfg.Kafka.CommitInterval) * time.Millisecond,
	})
	defer consumer.Close()

	retry := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	defer retry.Close()

	w := worker.NewSenderKafka(consumer, disp, logger.Log)
	w.Retry = retry
	w.MaxAttempts = maxAttempts

	// tune knobs
	if cfg.Worker.Count > 0 {
		w.Workers = cfg.Worker.Count
	}
	if cfg.Worker.InvokeTimeout > 0 {
		w.InvokeTimeout = cfg.Worker.InvokeTimeout
	}

	// 4) metrics endpoint
	if metricsAddr != "" {
		srv := &http.Server{Addr: metricsAddr, Handler: promhttp.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Log.Error("metrics server exited", zap.Error(err))
			}
		}()
		defer func() { _ = srv.Close() }()
	}

	// 5) graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Log.Info("sender started",
		zap.String("topic", cfg.Kafka.Topic),
		zap.String("group", groupID),
		zap.Int("workers", w.Workers),
		zap.Duration("invoke_timeout", w.InvokeTimeout),
		zap.Strings("channels", channelNames(disp)),
	)

	return w.Run(ctx)
}

func channelNames(d *dispatcher.Dispatcher) []string {
	var out []string
	for _, ch := range d.Channels() {
		out = append(out, ch.String())
	}
	return out
}

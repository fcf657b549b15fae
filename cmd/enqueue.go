package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmehdipour/engage-dispatch/internal/kafka"
	"github.com/jmehdipour/engage-dispatch/internal/util"
	"github.com/spf13/cobra"
)

var enqueueCmd = &cobra.Command{
	Use:   "enqueue <request.json>",
	Short: "Publish a dispatch request to the Kafka topic consumed by the sender worker",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		req, err := readRequest(args[0])
		if err != nil {
			return err
		}
		if req.ID == "" {
			req.ID = util.NewID()
		}
		value, err := json.Marshal(req)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}

		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer producer.Close()

		if err := producer.Publish(context.Background(), kafka.Message{Key: []byte(req.ID), Value: value}); err != nil {
			return fmt.Errorf("publish: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s on %s\n", req.ID, cfg.Kafka.Topic)
		return nil
	},
}

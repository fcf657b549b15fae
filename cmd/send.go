package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jmehdipour/engage-dispatch/internal/channel"
	"github.com/jmehdipour/engage-dispatch/internal/dispatcher"
	httpSrv "github.com/jmehdipour/engage-dispatch/internal/http"
	"github.com/jmehdipour/engage-dispatch/internal/logger"
	"github.com/jmehdipour/engage-dispatch/internal/model"
	"github.com/jmehdipour/engage-dispatch/internal/tracker"
	"github.com/spf13/cobra"
)

var sendCmd = &cobra.Command{
	Use:   "send <request.json>",
	Short: "Dispatch a single request read from a JSON file (- for stdin)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Log.Sync() }()

		req, err := readRequest(args[0])
		if err != nil {
			return err
		}

		stats := &tracker.Recorder{}
		res, err := dispatcher.FromConfig(cfg, logger.Log, stats).Dispatch(context.Background(), req)

		return printResult(cmd.OutOrStdout(), res, err, stats.Metrics())
	},
}

// printResult writes the same shapes the HTTP API returns, plus the recorded
// metrics.
func printResult(w io.Writer, res *channel.Result, err error, recorded []tracker.Metric) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err != nil {
		status, body := httpSrv.ErrorResponse(err)
		_ = enc.Encode(map[string]any{"error": body, "http_status": status, "metrics": recorded})
		return fmt.Errorf("dispatch: %w", err)
	}

	return enc.Encode(map[string]any{"result": httpSrv.ToSendResp(res), "metrics": recorded})
}

func readRequest(path string) (model.Request, error) {
	var (
		b   []byte
		err error
	)
	if path == "-" {
		b, err = io.ReadAll(os.Stdin)
	} else {
		b, err = os.ReadFile(path)
	}
	if err != nil {
		return model.Request{}, fmt.Errorf("read request: %w", err)
	}

	var req model.Request
	if err := json.Unmarshal(b, &req); err != nil {
		return model.Request{}, fmt.Errorf("decode request: %w", err)
	}
	return req, nil
}

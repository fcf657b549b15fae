package dispatcher

import (
	"github.com/jmehdipour/engage-dispatch/internal/channel"
	"github.com/jmehdipour/engage-dispatch/internal/config"
	"github.com/jmehdipour/engage-dispatch/internal/profile"
	"github.com/jmehdipour/engage-dispatch/internal/tracker"
	"github.com/jmehdipour/engage-dispatch/internal/transport"
	"go.uber.org/zap"
)

// FromConfig wires every channel sender over one shared HTTP transport.
func FromConfig(cfg config.Config, log *zap.Logger, stats tracker.StatsClient) *Dispatcher {
	requester := transport.NewHTTPClient(nil, transport.HTTPOpts{
		Timeout:       cfg.Transport.Timeout(),
		FailThreshold: cfg.Transport.Breaker.FailThreshold,
		OpenFor:       cfg.Transport.Breaker.OpenFor(),
		MaxBodyBytes:  cfg.Transport.MaxBodyBytes,
	})

	deps := &channel.Deps{
		Requester: requester,
		Logger:    log,
		Stats:     stats,
		Endpoints: channel.Endpoints{
			Twilio:   cfg.Endpoints.Twilio,
			Content:  cfg.Endpoints.Content,
			Notify:   cfg.Endpoints.Notify,
			SendGrid: cfg.Endpoints.SendGrid,
			Profile:  profile.Endpoints(cfg.Endpoints.Profile),
		},
		VerboseFlag:    cfg.Worker.VerboseFlag,
		TrustedCallers: cfg.Worker.TrustedCallers,
	}

	return NewDispatcher(channel.NewSenders(deps)...)
}

package providers

import (
	"github.com/samber/do/v2"

	"github.com/saucierapp/saucier-server/internal/config"
	"github.com/saucierapp/saucier-server/internal/logger"
	"github.com/saucierapp/saucier-server/internal/service"
	"github.com/saucierapp/saucier-server/internal/upstream"
)

// ProvideUpstreamClient provides the recipe server client. The memory://
// URL selects the in-memory server so the workspace can be explored
// without a real recipe server behind it.
func ProvideUpstreamClient(i do.Injector) (service.UpstreamClient, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Upstream.BaseURL == "memory://" {
		log.Info("Using in-memory recipe server")
		return upstream.NewMemory(nil), nil
	}

	client := upstream.NewHTTP(upstream.Config{
		BaseURL: cfg.Upstream.BaseURL,
		Token:   cfg.Upstream.Token,
		Timeout: cfg.Upstream.Timeout,
		RPS:     cfg.Upstream.RPS,
		Burst:   cfg.Upstream.Burst,
	}, log.Logger)

	log.Info("Recipe server client initialized", "base_url", cfg.Upstream.BaseURL)

	return client, nil
}

package main

import (
	"github.com/pdftranslate/client/internal/client"
	"github.com/pdftranslate/client/internal/config"
	"github.com/pdftranslate/client/internal/logger"
	"github.com/pdftranslate/client/internal/presenter"
	"github.com/pdftranslate/client/internal/service"
)

// core is the front-end independent part of the program
type core struct {
	presenter *presenter.Presenter
	downloads *service.DownloadService
	poller    *service.Poller
	uploads   *service.UploadService
}

func newCore(cfg *config.Config, notifier service.Notifier, defaultHref string, exporters ...service.Exporter) *core {
	api := client.NewTranslationClient(&cfg.API, logger.WithComponent("client"))
	p := presenter.New()

	downloads := service.NewDownloadService(p, defaultHref, logger.WithComponent("download"), exporters...)
	poller := service.NewPoller(api, p, downloads, notifier, cfg.API.PollInterval(), cfg.API.MaxWaitDuration(), logger.WithComponent("poller"))
	uploads := service.NewUploadService(api, p, poller, downloads, notifier, logger.WithComponent("upload"))

	return &core{
		presenter: p,
		downloads: downloads,
		poller:    poller,
		uploads:   uploads,
	}
}

func (c *core) close() {
	c.uploads.Shutdown()
	c.presenter.Close()
}

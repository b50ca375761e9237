package localfs

import (
	"go.uber.org/zap"

	"xdao.co/npk/storage"
	"xdao.co/npk/storage/registry"
)

func init() {
	registry.MustRegister(registry.Backend{
		Name:        "localfs",
		Description: "Local filesystem store (directory)",
		Usage:       registry.UsageCLI | registry.UsageDaemon,
		Options: []registry.Option{
			{Key: "dir", Description: "store directory"},
		},
		Open: func(opts registry.Options, logger *zap.Logger) (storage.Store, error) {
			dir, err := opts.Require("dir")
			if err != nil {
				return nil, err
			}
			s, err := New(dir)
			if err != nil {
				return nil, err
			}
			logger.Debug("opened store", zap.String("dir", dir))
			return s, nil
		},
	})
}

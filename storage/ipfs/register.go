package ipfs

import (
	"go.uber.org/zap"

	"xdao.co/npk/storage"
	"xdao.co/npk/storage/registry"
)

func init() {
	registry.MustRegister(registry.Backend{
		Name:        "ipfs",
		Description: "Local Kubo repository via the ipfs CLI",
		Usage:       registry.UsageCLI | registry.UsageDaemon,
		Options: []registry.Option{
			{Key: "bin", Description: "path to the ipfs binary"},
			{Key: "repo", Description: "IPFS_PATH of the repository"},
			{Key: "pin", Description: "pin blocks on put (true/false)"},
		},
		Open: func(opts registry.Options, logger *zap.Logger) (storage.Store, error) {
			pin, err := opts.Bool("pin", false)
			if err != nil {
				return nil, err
			}
			o := Options{Bin: opts.String("bin", ""), RepoPath: opts.String("repo", ""), Pin: pin}
			logger.Debug("using ipfs cli", zap.String("bin", o.Bin), zap.String("repo", o.RepoPath), zap.Bool("pin", pin))
			return New(o), nil
		},
	})
}

package grpcstore

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"xdao.co/npk/storage"
	"xdao.co/npk/storage/registry"
)

func init() {
	registry.MustRegister(registry.Backend{
		Name:        "grpc",
		Description: "gRPC client (talks to an npk-stored daemon)",
		Usage:       registry.UsageCLI,
		Options: []registry.Option{
			{Key: "target", Description: "gRPC target host:port"},
			{Key: "timeout", Description: "per-RPC timeout, e.g. 5s"},
			{Key: "max-msg-bytes", Description: "max message size in bytes (send+recv)"},
		},
		Open: func(opts registry.Options, logger *zap.Logger) (storage.Store, error) {
			target, err := opts.Require("target")
			if err != nil {
				return nil, err
			}
			timeout, err := opts.Duration("timeout", 30*time.Second)
			if err != nil {
				return nil, err
			}
			maxMsg, err := opts.Int("max-msg-bytes", 0)
			if err != nil {
				return nil, err
			}
			client, err := Dial(strings.TrimSpace(target), DialOptions{Timeout: timeout, MaxMsgBytes: maxMsg})
			if err != nil {
				return nil, err
			}
			logger.Debug("created client", zap.String("target", target), zap.Duration("timeout", timeout))
			return client, nil
		},
	})
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	runtimepkg "github.com/drblury/topicflow/internal/runtime"
	"github.com/drblury/topicflow/internal/runtime/config"
	"github.com/drblury/topicflow/internal/runtime/logging"
	"github.com/drblury/topicflow/internal/runtime/metadata"
)

var errConfigFlagRequired = errors.New("publish needs --config")

func newPublishCmd(opts *options) *cobra.Command {
	var headers []string
	cmd := &cobra.Command{
		Use:   "publish <tag> [field=value...]",
		Short: "Encode a message and publish it on the configured transport",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.configFile == "" {
				return errConfigFlagRequired
			}
			reg, err := opts.loadShapes()
			if err != nil {
				return err
			}
			msg, err := buildMessage(reg, args[0], args[1:])
			if err != nil {
				return err
			}
			md, err := parseHeaders(headers)
			if err != nil {
				return err
			}

			cfg, err := config.Load(opts.configFile)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			logger := logging.NewSlogServiceLogger(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil)))
			svc, err := runtimepkg.TryNewService(cfg, logger, ctx, runtimepkg.ServiceDependencies{})
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			if err := runtimepkg.Publish(ctx, svc, reg, msg, md); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published %s on %s\n", msg.Tag, cfg.GetPubSubSystem())
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&headers, "header", "H", nil, "metadata header as key=value (repeatable)")
	return cmd
}

func parseHeaders(headers []string) (metadata.Metadata, error) {
	md := make(metadata.Metadata, len(headers))
	for _, h := range headers {
		key, value, ok := strings.Cut(h, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("header %q must be written as key=value", h)
		}
		md[key] = value
	}
	return md, nil
}

package main

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/musix/internal/server"
	"github.com/desertthunder/musix/internal/shared"
	"github.com/desertthunder/musix/internal/web"
)

// Serve runs the proxy with the web shell mounted behind the route gate until ctx is cancelled.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config := *r.cfg()
	if port := cmd.Int("port"); port > 0 {
		config.Server.Port = port
	}

	logger := shared.WithLogger(r.logger, "component", "server")

	shell, err := web.New(config.Upstream.MediaURL, logger)
	if err != nil {
		return fmt.Errorf("failed to load web pages: %w", err)
	}

	srv := server.New(config, logger, server.WithWeb(shell))

	if cmd.Bool("open") {
		host := config.Server.Host
		if host == "" || host == "0.0.0.0" || host == "::" {
			host = "localhost"
		}
		target := "http://" + net.JoinHostPort(host, strconv.Itoa(config.Server.Port))
		go func() {
			if err := shared.OpenBrowser(target); err != nil {
				logger.Warn("failed to open browser", "url", target, "error", err)
			}
		}()
	}

	return srv.ListenAndServe(ctx)
}

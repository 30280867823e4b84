package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/musix/internal/services"
	"github.com/desertthunder/musix/internal/shared"
)

// APIGet makes a direct GET request to the upstream API with the stored session token.
func (r *Runner) APIGet(ctx context.Context, cmd *cli.Command) error {
	target := cmd.StringArg("path")
	if target == "" {
		return fmt.Errorf("%w: path", shared.ErrMissingArgument)
	}

	config := r.cfg()
	if strings.TrimSpace(config.Upstream.APIBaseURL) == "" {
		return shared.ErrMissingUpstream
	}

	path, rawQuery, _ := strings.Cut(target, "?")
	query, err := url.ParseQuery(rawQuery)
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrInvalidArgument, err)
	}

	client, err := r.apiClient()
	if err != nil {
		return err
	}
	token, _, _ := client.Session()

	api := services.NewAPIService(config.Upstream.APIBaseURL, &http.Client{
		Timeout:   config.Upstream.Timeout(),
		Transport: services.NewRetryTransport(nil, r.logger),
	})

	r.logger.Info("GET request", "path", path, "authenticated", token != "")
	resp, err := api.Get(ctx, path, query, token)
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}

	if !resp.OK() {
		return fmt.Errorf("%w: status %d, body: %s", shared.ErrAPIRequest, resp.StatusCode, string(resp.Body))
	}

	if resp.IsJSON {
		return r.writeJSON(json.RawMessage(resp.Body), cmd.Bool("pretty"))
	}

	r.output.Write(resp.Body)
	r.output.Write([]byte("\n"))
	return nil
}

// APIHealth checks the proxy health endpoint.
func (r *Runner) APIHealth(ctx context.Context, cmd *cli.Command) error {
	client, err := r.apiClient()
	if err != nil {
		return err
	}

	status, err := client.Health(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrServiceUnavailable, err)
	}
	return r.writePlain("✓ Proxy is healthy\nStatus: %s\n", status)
}

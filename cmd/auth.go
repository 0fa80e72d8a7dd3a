package main

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/desertthunder/spotimirror/internal/server"
	"github.com/desertthunder/spotimirror/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// authCommand runs the OAuth2 login flow
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authorize spotimirror to read your Spotify playlists",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "no-browser",
				Usage: "Print the authorization URL instead of opening a browser",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "How long to wait for the browser callback",
				Value: 2 * time.Minute,
			},
		},
		Action: r.Auth,
	}
}

// authorizer is the part of the Spotify service used by the login flow.
type authorizer interface {
	server.Exchanger
	AuthURL(state string) string
}

// Auth performs OAuth2 authentication flow for Spotify.
//
// Starts a local HTTP server, opens browser for user authorization, and exchanges auth code for tokens.
func (r *Runner) Auth(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	svc, err := r.spotifyService(config)
	if err != nil {
		return fmt.Errorf("%w (set client_id and client_secret in %s, or SPOTIFY_ID and SPOTIFY_SECRET)", err, r.configPath)
	}

	token, err := r.doOAuth(ctx, config, svc, !cmd.Bool("no-browser"), cmd.Duration("timeout"))
	if err != nil {
		return err
	}

	if err := r.saveTokens(token); err != nil {
		return err
	}

	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Tokens saved to %s\n", r.configPath)

	if err := svc.OAuthenticate(ctx, token); err == nil {
		if name, err := svc.CurrentUser(ctx); err != nil {
			r.logger.Warn("could not look up the authorized account", "error", err)
		} else {
			r.writePlain("✓ Logged in as %s\n", name)
		}
	}

	r.writePlain("\nYou can now use: spotimirror sync --playlist <name> --output <folder>\n")
	return nil
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server
func (r *Runner) doOAuth(ctx context.Context, config *shared.Config, svc authorizer, openBrowser bool, timeout time.Duration) (*oauth2.Token, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	handler := server.NewOAuthHandler(svc, state).WithRedirectURI(config.Credentials.Spotify.RedirectURI)
	router := server.NewBasicRouter()
	router.Use(server.LoggingMiddleware(r.logger))
	router.Handler(handler)

	addr := net.JoinHostPort(config.Server.Host, strconv.Itoa(config.Server.Port))
	callback := server.NewCallbackServer(addr, router)
	if err := callback.Start(); err != nil {
		return nil, fmt.Errorf("failed to start callback server on %s: %w", addr, err)
	}
	defer func() {
		if err := callback.Shutdown(context.WithoutCancel(ctx)); err != nil {
			r.logger.Warn("error shutting down server", "error", err)
		}
	}()
	r.logger.Infof("waiting for OAuth callback at %v", addr)

	authURL := svc.AuthURL(state)
	if openBrowser {
		r.writePlain("→ Opening browser for Spotify authorization...\n")
		if err := shared.OpenBrowser(authURL); err != nil {
			r.logger.Warnf("failed to open browser automatically %v", err)
			r.writePlainln("⚠ Could not open browser automatically.")
			r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
		}
	} else {
		r.writePlain("Open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (%s timeout)...\n", timeout)

	token, err := handler.Wait(ctx, timeout, callback.Errors())
	if err != nil {
		return nil, fmt.Errorf("authorization failed: %w", err)
	}
	return token, nil
}

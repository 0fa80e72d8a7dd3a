// Package server provides HTTP routing, middleware, and OAuth handling for the CLI.
//
// # Router Infrastructure
//
// [BasicRouter] registers method-qualified patterns on an [http.ServeMux]. [Middleware] added with Use runs in
// the order it was added. [LoggingMiddleware] logs each request through charmbracelet/log at debug level.
//
// # OAuth Callback Handler
//
// [OAuthHandler] implements the OAuth2 authorization code callback flow. It validates the state parameter,
// exchanges the authorization code through an [Exchanger] and delivers the result on a channel.
// It only processes one callback.
//
// # Usage
//
// 'spotimirror auth' starts a [CallbackServer] on the configured host and port, opens the authorization URL in
// the browser, waits on [OAuthHandler.Wait] and shuts the server down once the token has arrived.
package server

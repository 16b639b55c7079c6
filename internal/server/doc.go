// Package server provides the HTTP routing and OAuth callback handling behind spx auth.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first). [RequestLogger] is the only
// middleware spx installs.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # OAuth Callback Handler
//
// [OAuthHandler] implements the OAuth2 authorization code callback. It serves the path of the configured
// redirect URI, validates the state parameter, exchanges the code for tokens and sends the result through a
// channel. Only the first callback is processed.
//
// During spx auth a temporary server listens on the configured host and port, handles the callback, and shuts
// down once [OAuthHandler.Wait] returns.
package server

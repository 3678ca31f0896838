// Package server runs the short-lived HTTP listener used to connect a user's account.
//
// `plx auth spotify` starts [AwaitToken] on the configured callback address. The [OAuthHandler]
// validates the state parameter, exchanges the authorization code and hands the token (which must
// carry a refresh token) back to the CLI, which encrypts and stores it for unattended runs.
// The handler answers only the first callback; later hits are rejected.
//
// [BasicRouter] wraps [http.ServeMux] with a [Middleware] stack; [Logging] and [Recover] are
// installed on the callback server.
package server

// Package services defines the [PlaylistAPI] the engine mutates playlists through and implements it for Spotify.
//
// # Spotify Implementation
//
// [SpotifyService] holds the OAuth2 application configuration and performs the interactive login used by
// `plx auth spotify`. [SpotifyClient] implements [PlaylistAPI] over any authenticated [http.Client]; the
// credentials package builds that client from a stored refresh token through [oauth2.Config.TokenSource].
//
// Requests are paced by a [rate.Limiter] and reads are paginated 100 items at a time. Items without a URI
// (local files, tracks removed from the catalogue) are skipped.
//
// # Error Handling
//
// Non-2xx responses become [*HTTPError] carrying the status code, the API's message and the Retry-After
// delay. Classification into retryable and terminal categories happens in the retry package.
package services

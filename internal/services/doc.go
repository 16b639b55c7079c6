// Package services defines the [Catalog] interface for a music library and implements it for the Spotify Web API.
//
// # Catalog Interface
//
// The catalog exposes paginated reads (one page per call, advanced with an opaque cursor) and batched
// mutations. Callers drain pages and split batches themselves; see the tasks package.
//
// Results are raw Spotify shapes ([SpotifySimplePlaylist], [SpotifyPlaylistTrack], [SpotifySavedAlbum], ...).
// Conversion into [models.Record] happens one layer up so unavailable entries can be dropped in one place.
//
// # Spotify Implementation
//
// [SpotifyService] uses OAuth2 for authentication with automatic token refresh.
// The [oauth2.Client] refreshes expired tokens using the refresh token, and every new token is handed to the
// callback registered with [SpotifyService.SetTokenRefreshCallback] so it can be persisted.
//
// Requests are paced by a [rate.Limiter] when [WithRateLimit] is set.
//
// # Cursors
//
// Spotify paging objects carry an absolute "next" URL. That URL is the cursor: an empty string requests the
// first page, and cursors outside the configured API root are refused.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrNotAuthenticated] : Authenticate() not called
//   - [shared.ErrTokenExpired] : OAuth token expired, reauthorization needed
//   - [shared.ErrAPIRequest] : HTTP request failed or returned a non-2xx status
//   - [shared.ErrInvalidArgument] : batch too large, bad URI, or foreign cursor
package services

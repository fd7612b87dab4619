// Package qbittorrent is a minimal client for the qBittorrent WebUI API v2.
//
// It covers the three calls the bot needs: logging in, adding a torrent
// by magnet link and listing torrents as a connectivity probe. All calls
// share one HTTP client with a cookie jar, so the session cookie obtained
// by Authenticate is reused by later calls.
//
//	client, err := qbittorrent.NewClient(baseURL, username, password, timeout, logger)
//	ok, err := client.Authenticate(ctx)
//	outcome, err := client.Add(ctx, "magnet:?xt=urn:btih:...")
package qbittorrent

package testutil

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

const sessionCookie = "SID"

// FakeQBittorrent is an httptest server imitating the WebUI endpoints the
// bot uses. Adds and listings require the session cookie set by a
// successful login, as the real WebUI does.
type FakeQBittorrent struct {
	*httptest.Server

	mu       sync.Mutex
	username string
	password string
	logins   int
	added    []string

	// AddStatus, when non-zero, overrides the status of authenticated adds.
	AddStatus int
}

// NewFakeQBittorrent starts a fake WebUI accepting the given credentials.
// The server is closed when the test ends.
func NewFakeQBittorrent(t *testing.T, username, password string) *FakeQBittorrent {
	t.Helper()

	f := &FakeQBittorrent{username: username, password: password}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2/auth/login", f.login)
	mux.HandleFunc("/api/v2/torrents/add", f.add)
	mux.HandleFunc("/api/v2/torrents/info", f.info)
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Server.Close)
	return f
}

// Added returns the magnet links accepted so far, in order.
func (f *FakeQBittorrent) Added() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.added...)
}

// Logins returns the number of successful logins.
func (f *FakeQBittorrent) Logins() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logins
}

func (f *FakeQBittorrent) login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if r.FormValue("username") != f.username || r.FormValue("password") != f.password {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("Fails."))
		return
	}

	f.mu.Lock()
	f.logins++
	f.mu.Unlock()

	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "session-token", Path: "/"})
	_, _ = w.Write([]byte("Ok."))
}

func (f *FakeQBittorrent) add(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !authenticated(r) {
		w.WriteHeader(http.StatusForbidden)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.AddStatus != 0 && f.AddStatus != http.StatusOK {
		w.WriteHeader(f.AddStatus)
		return
	}
	f.added = append(f.added, r.FormValue("urls"))
	_, _ = w.Write([]byte("Ok."))
}

func (f *FakeQBittorrent) info(w http.ResponseWriter, r *http.Request) {
	if !authenticated(r) {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte("[]"))
}

func authenticated(r *http.Request) bool {
	c, err := r.Cookie(sessionCookie)
	return err == nil && c.Value != ""
}

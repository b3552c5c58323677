package dropbox

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"recibos/internal/source"
)

type fakeDropbox struct {
	files       map[string]string
	tokenCalls  atomic.Int32
	lastAuth    atomic.Value
	pagedListed atomic.Bool
}

func (f *fakeDropbox) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		f.tokenCalls.Add(1)
		_ = r.ParseForm()
		if r.Form.Get("grant_type") != "refresh_token" || r.Form.Get("refresh_token") != "refresh-me" ||
			r.Form.Get("client_id") != "key" || r.Form.Get("client_secret") != "secret" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"access-1","token_type":"bearer","expires_in":14400}`)
	})
	mux.HandleFunc("/2/files/download", func(w http.ResponseWriter, r *http.Request) {
		f.lastAuth.Store(r.Header.Get("Authorization"))
		var arg struct {
			Path string `json:"path"`
		}
		if err := json.Unmarshal([]byte(r.Header.Get("Dropbox-API-Arg")), &arg); err != nil {
			t.Errorf("bad Dropbox-API-Arg: %v", err)
		}
		body, ok := f.files[arg.Path]
		if !ok {
			w.WriteHeader(http.StatusConflict)
			_, _ = io.WriteString(w, `{"error_summary":"path/not_found/.."}`)
			return
		}
		_, _ = io.WriteString(w, body)
	})
	mux.HandleFunc("/2/files/list_folder", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"entries":[{".tag":"file","name":"2024.csv"},{".tag":"folder","name":"old"}],"cursor":"c1","has_more":true}`)
	})
	mux.HandleFunc("/2/files/list_folder/continue", func(w http.ResponseWriter, r *http.Request) {
		f.pagedListed.Store(true)
		_, _ = io.WriteString(w, `{"entries":[{".tag":"file","name":"2025.csv"}],"cursor":"c2","has_more":false}`)
	})
	return mux
}

func newTestClient(t *testing.T, fake *fakeDropbox) *Client {
	t.Helper()
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)
	c, err := New(context.Background(), Config{
		AppKey:       "key",
		AppSecret:    "secret",
		RefreshToken: "refresh-me",
		Folder:       "/recibos/",
		TokenURL:     srv.URL + "/oauth2/token",
		ContentURL:   srv.URL,
		APIURL:       srv.URL,
		HTTPClient:   srv.Client(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestClient_FetchReusesToken(t *testing.T) {
	fake := &fakeDropbox{files: map[string]string{
		"/recibos/nifs.json":  `{"1":"Um"}`,
		"/recibos/index.json": `["2025.csv"]`,
	}}
	c := newTestClient(t, fake)
	ctx := context.Background()

	for _, name := range []string{"nifs.json", "index.json"} {
		if _, err := c.Fetch(ctx, name); err != nil {
			t.Fatalf("Fetch %s: %v", name, err)
		}
	}
	if got := fake.tokenCalls.Load(); got != 1 {
		t.Fatalf("expected one token request, got %d", got)
	}
	if got := fake.lastAuth.Load(); got != "Bearer access-1" {
		t.Fatalf("Authorization = %v", got)
	}
}

func TestClient_FetchNotFound(t *testing.T) {
	c := newTestClient(t, &fakeDropbox{files: map[string]string{}})
	_, err := c.Fetch(context.Background(), "config.json")
	if !errors.Is(err, source.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestClient_ListFollowsCursor(t *testing.T) {
	fake := &fakeDropbox{}
	c := newTestClient(t, fake)
	names, err := c.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(names) != 2 || names[0] != "2024.csv" || names[1] != "2025.csv" || !fake.pagedListed.Load() {
		t.Fatalf("List = %v (paged=%v)", names, fake.pagedListed.Load())
	}
}

func TestDocuments_YearsFallBackToListing(t *testing.T) {
	fake := &fakeDropbox{files: map[string]string{}}
	docs := source.NewDocuments(newTestClient(t, fake), source.DefaultDecodeOptions())
	years, err := docs.Years(context.Background())
	if err != nil {
		t.Fatalf("Years: %v", err)
	}
	if len(years) != 2 || years[0] != 2025 {
		t.Fatalf("Years = %v", years)
	}
}

func TestClient_BadRefreshToken(t *testing.T) {
	fake := &fakeDropbox{files: map[string]string{"/nifs.json": "{}"}}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()
	c, err := New(context.Background(), Config{
		AppKey: "key", AppSecret: "secret", RefreshToken: "wrong",
		TokenURL: srv.URL + "/oauth2/token", ContentURL: srv.URL, APIURL: srv.URL,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = c.Fetch(context.Background(), "nifs.json")
	if err == nil || !IsAuthError(err) {
		t.Fatalf("expected an auth error, got %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	err := Config{AppKey: "k"}.Validate()
	if err == nil {
		t.Fatal("expected an error")
	}
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatal("New should validate the configuration")
	}
}

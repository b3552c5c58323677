// Command dropbox-token runs the OAuth code flow of a Dropbox app and prints
// the refresh token to put in DROPBOX_REFRESH_TOKEN.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"recibos/internal/cli"
	"recibos/internal/log"
	"recibos/internal/source/dropbox"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger("info").WithComponent(log.ComponentDropbox)

	appKey, appSecret := os.Getenv("DROPBOX_APP_KEY"), os.Getenv("DROPBOX_APP_SECRET")
	if appKey == "" || appSecret == "" {
		fatal(logger, "set DROPBOX_APP_KEY and DROPBOX_APP_SECRET", nil)
	}

	// The Dropbox app must list http://localhost:<port>/callback as a redirect URI.
	redirectPort := os.Getenv("OAUTH_REDIRECT_PORT")
	if redirectPort == "" {
		redirectPort = "8085"
	}
	cfg := dropbox.OAuthConfig(appKey, appSecret, "")
	cfg.RedirectURL = "http://localhost:" + redirectPort + "/callback"

	state := uuid.NewString()
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	srv := &http.Server{Addr: ":" + redirectPort, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("error") != "":
			http.Error(w, "OAuth error: "+q.Get("error"), http.StatusBadRequest)
			errCh <- fmt.Errorf("authorization denied: %s", q.Get("error_description"))
		case q.Get("state") != state:
			http.Error(w, "state mismatch", http.StatusBadRequest)
			errCh <- fmt.Errorf("state mismatch")
		default:
			fmt.Fprintln(w, "You may close this window and return to the terminal.")
			codeCh <- q.Get("code")
		}
	})
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()

	// offline access makes Dropbox return a refresh token
	url := cfg.AuthCodeURL(state, oauth2.SetAuthURLParam("token_access_type", "offline"))
	fmt.Printf("Open this URL to authorize:\n%s\n", url)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)

	select {
	case code := <-codeCh:
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		tok, err := cfg.Exchange(ctx, code)
		if err != nil {
			fatal(logger, "token exchange failed", err)
		}
		if tok.RefreshToken == "" {
			fatal(logger, "Dropbox returned no refresh token", nil)
		}
		fmt.Printf("DROPBOX_REFRESH_TOKEN=%s\n", tok.RefreshToken)
	case err := <-errCh:
		fatal(logger, "authorization failed", err)
	case <-time.After(5 * time.Minute):
		fatal(logger, "authorization timed out", nil)
	case <-sig:
		fatal(logger, "interrupted", nil)
	}
}

func fatal(logger *log.Logger, msg string, err error) {
	if err != nil {
		logger.Error(msg, log.FieldError, err)
	} else {
		logger.Error(msg)
	}
	os.Exit(1)
}

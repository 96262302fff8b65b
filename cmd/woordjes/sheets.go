package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/sheets/v4"

	"woordjes/internal/config"
)

var sheetsCmd = &cobra.Command{
	Use:   "sheets",
	Short: "Google Sheets export setup",
}

var sheetsAuthCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authorize access to the export spreadsheet",
	Long: `Runs the OAuth consent flow for the client in GOOGLE_OAUTH_CLIENT_JSON or
GOOGLE_OAUTH_CLIENT_FILE and saves the token. Add
http://localhost:<port>/callback to the client's redirect URIs first.`,
	RunE: runSheetsAuth,
}

func init() {
	sheetsAuthCmd.Flags().Int("port", 8085, "local port for the OAuth callback")
	sheetsAuthCmd.Flags().String("out", "", "token file (default: GOOGLE_OAUTH_TOKEN_FILE or token.json)")
	sheetsAuthCmd.Flags().Duration("timeout", 5*time.Minute, "how long to wait for consent")
	sheetsCmd.AddCommand(sheetsAuthCmd)
	rootCmd.AddCommand(sheetsCmd)
}

func runSheetsAuth(cmd *cobra.Command, args []string) error {
	port, _ := cmd.Flags().GetInt("port")
	outFile, _ := cmd.Flags().GetString("out")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	// The token does not exist yet, so the full config would not validate.
	cfg := config.Load()
	if outFile == "" {
		outFile = cfg.GoogleOAuthTokenFile
	}
	if outFile == "" {
		outFile = "token.json"
	}

	var clientJSON []byte
	switch {
	case cfg.GoogleOAuthClientJSON != "":
		clientJSON = []byte(cfg.GoogleOAuthClientJSON)
	case cfg.GoogleOAuthClientFile != "":
		b, err := os.ReadFile(cfg.GoogleOAuthClientFile)
		if err != nil {
			return fmt.Errorf("read client file: %w", err)
		}
		clientJSON = b
	default:
		return errors.New("set GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE")
	}

	oauthCfg, err := google.ConfigFromJSON(clientJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return fmt.Errorf("oauth config: %w", err)
	}
	oauthCfg.RedirectURL = fmt.Sprintf("http://localhost:%d/callback", port)

	state, err := randomState()
	if err != nil {
		return err
	}

	type result struct {
		code string
		err  error
	}
	results := make(chan result, 1)
	deliver := func(r result) {
		select {
		case results <- r:
		default:
		}
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("error") != "":
			http.Error(w, "OAuth error: "+q.Get("error"), http.StatusBadRequest)
			deliver(result{err: fmt.Errorf("consent refused: %s", q.Get("error"))})
		case q.Get("state") != state:
			http.Error(w, "state mismatch", http.StatusBadRequest)
		default:
			fmt.Fprintln(w, "You may close this window and return to the terminal.")
			deliver(result{code: q.Get("code")})
		}
	})
	srv := &http.Server{Addr: fmt.Sprintf("localhost:%d", port), Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() { _ = srv.ListenAndServe() }()
	defer srv.Close()

	fmt.Fprintf(cmd.OutOrStdout(), "Open this URL to authorize:\n%s\n", oauthCfg.AuthCodeURL(state, oauth2.AccessTypeOffline))

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	var res result
	select {
	case res = <-results:
	case <-ctx.Done():
		return errors.New("authorization timed out")
	}
	if res.err != nil {
		return res.err
	}

	tok, err := oauthCfg.Exchange(ctx, res.code)
	if err != nil {
		return fmt.Errorf("token exchange: %w", err)
	}
	f, err := os.OpenFile(outFile, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("open token file: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved token to %s\n", outFile)
	return nil
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return hex.EncodeToString(b), nil
}

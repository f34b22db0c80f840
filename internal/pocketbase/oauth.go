package pocketbase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/mmcdole/galleria/internal/domain"
)

const callbackPage = `<!doctype html><html><body><p>%s</p><p>You can close this window.</p></body></html>`

// AuthProviders lists the OAuth2 providers enabled on the auth collection
func (c *Client) AuthProviders(ctx context.Context) ([]AuthProvider, error) {
	body, err := c.doRequest(ctx, http.MethodGet, c.authPath("auth-methods"), nil, nil)
	if err != nil {
		return nil, err
	}
	var methods authMethodsResponse
	if err := json.Unmarshal(body, &methods); err != nil {
		return nil, fmt.Errorf("failed to parse auth methods: %w", err)
	}
	return methods.providers(), nil
}

// AuthWithOAuth2 runs the authorization code flow: the provider's page is
// opened with a loopback redirect, and the code it delivers is exchanged for
// a session. Blocks until the callback arrives or ctx ends.
func (c *Client) AuthWithOAuth2(ctx context.Context, provider string) error {
	providers, err := c.AuthProviders(ctx)
	if err != nil {
		return err
	}

	var selected *AuthProvider
	for i := range providers {
		if providers[i].Name == provider {
			selected = &providers[i]
			break
		}
	}
	if selected == nil {
		return fmt.Errorf("%w: %s", domain.ErrUnknownProvider, provider)
	}

	cb, err := listenCallback()
	if err != nil {
		return err
	}
	defer cb.close()

	redirectURL := cb.url()
	authURL := selected.URL() + url.QueryEscape(redirectURL)
	c.logger.Info("starting oauth2 flow", "provider", provider, "redirect", redirectURL)

	if err := c.openURL(authURL); err != nil {
		return fmt.Errorf("failed to open authorization page: %w", err)
	}

	code, err := cb.wait(ctx, selected.State)
	if err != nil {
		return err
	}

	body := map[string]string{
		"provider":     selected.Name,
		"code":         code,
		"codeVerifier": selected.CodeVerifier,
		"redirectURL":  redirectURL,
		"redirectUrl":  redirectURL,
	}
	resp, err := c.doRequest(ctx, http.MethodPost, c.authPath("auth-with-oauth2"), nil, body)
	if err != nil {
		if IsAPIError(err, http.StatusBadRequest) {
			return fmt.Errorf("%w: %v", domain.ErrAuthFailed, err)
		}
		return err
	}
	return c.saveAuth(resp)
}

type callbackResult struct {
	state string
	code  string
	err   string
}

// callbackServer receives the provider redirect on the loopback interface
type callbackServer struct {
	listener net.Listener
	server   *http.Server
	results  chan callbackResult
}

func listenCallback() (*callbackServer, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to start callback listener: %w", err)
	}
	cb := &callbackServer{
		listener: ln,
		results:  make(chan callbackResult, 1),
	}
	cb.server = &http.Server{
		Handler:           http.HandlerFunc(cb.handle),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		_ = cb.server.Serve(ln)
	}()
	return cb, nil
}

const callbackPath = "/callback"

func (cb *callbackServer) url() string {
	return "http://" + cb.listener.Addr().String() + callbackPath
}

func (cb *callbackServer) handle(w http.ResponseWriter, r *http.Request) {
	// Browsers also ask for /favicon.ico; only the redirect may fill the slot
	if r.URL.Path != callbackPath {
		http.NotFound(w, r)
		return
	}
	q := r.URL.Query()
	res := callbackResult{
		state: q.Get("state"),
		code:  q.Get("code"),
		err:   q.Get("error"),
	}
	select {
	case cb.results <- res:
	default:
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if res.err != "" || res.code == "" {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, callbackPage, "Sign-in failed.")
		return
	}
	fmt.Fprintf(w, callbackPage, "Signed in.")
}

func (cb *callbackServer) wait(ctx context.Context, state string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-cb.results:
		if res.err != "" {
			return "", fmt.Errorf("%w: provider returned %s", domain.ErrAuthFailed, res.err)
		}
		if res.state != state {
			return "", fmt.Errorf("%w: state mismatch", domain.ErrAuthFailed)
		}
		if res.code == "" {
			return "", errors.New("callback carried no authorization code")
		}
		return res.code, nil
	}
}

func (cb *callbackServer) close() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = cb.server.Shutdown(ctx)
}

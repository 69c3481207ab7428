package auth

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"
)

const callbackSuccessHTML = `<!DOCTYPE html>
<html>
<head><title>Sign-in complete</title></head>
<body style="font-family: sans-serif; text-align: center; padding-top: 4em;">
<h1>&#10003; Sign-in complete</h1>
<p>You can close this window and return to your assistant.</p>
</body>
</html>`

const callbackErrorHTML = `<!DOCTYPE html>
<html>
<head><title>Sign-in failed</title></head>
<body style="font-family: sans-serif; text-align: center; padding-top: 4em;">
<h1>Sign-in failed</h1>
<p>%s</p>
<p>You can close this window.</p>
</body>
</html>`

// callbackResult carries the authorization response parameters delivered by
// the provider's redirect.
type callbackResult struct {
	code             string
	state            string
	errorCode        string
	errorDescription string
}

func (r *callbackResult) isError() bool {
	return r.errorCode != ""
}

// callbackServer is a temporary loopback HTTP server that receives a single
// OAuth redirect. It is scoped to one sign-in flow: acquired at flow start,
// released on completion, timeout, or failure, never leaked across attempts.
type callbackServer struct {
	server   *http.Server
	listener net.Listener
	resultCh chan *callbackResult
	errCh    chan error
	once     sync.Once
	url      string
}

// newCallbackServer binds an ephemeral loopback port and starts serving.
// The returned server's RedirectURI is the callback target to hand to the
// provider. The server stops itself when ctx is cancelled.
func newCallbackServer(ctx context.Context) (*callbackServer, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to start callback listener: %w", err)
	}

	s := &callbackServer{
		listener: listener,
		resultCh: make(chan *callbackResult, 1),
		errCh:    make(chan error, 1),
		url:      fmt.Sprintf("http://127.0.0.1:%d", listener.Addr().(*net.TCPAddr).Port),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", s.handleCallback)

	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			select {
			case s.errCh <- err:
			default:
			}
		}
	}()

	go func() {
		<-ctx.Done()
		s.Close()
	}()

	return s, nil
}

// RedirectURI returns the callback URL registered with the provider.
func (s *callbackServer) RedirectURI() string {
	return s.url + "/callback"
}

// Wait blocks until the provider redirects back, the server fails, or ctx
// expires.
func (s *callbackServer) Wait(ctx context.Context) (*callbackResult, error) {
	select {
	case result := <-s.resultCh:
		return result, nil
	case err := <-s.errCh:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *callbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	var handled bool
	s.once.Do(func() {
		handled = true
		s.processCallback(w, r)
	})
	if !handled {
		http.Error(w, "callback already processed", http.StatusBadRequest)
	}
}

func (s *callbackServer) processCallback(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "no-store")

	query := r.URL.Query()
	result := &callbackResult{
		code:             query.Get("code"),
		state:            query.Get("state"),
		errorCode:        query.Get("error"),
		errorDescription: query.Get("error_description"),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if result.isError() {
		fmt.Fprintf(w, callbackErrorHTML, result.errorCode)
	} else {
		fmt.Fprint(w, callbackSuccessHTML)
	}

	select {
	case s.resultCh <- result:
	default:
	}
}

// Close shuts the server down and releases the port. Safe to call more than
// once.
func (s *callbackServer) Close() {
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(ctx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
}

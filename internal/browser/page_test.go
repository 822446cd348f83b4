package browser

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// TestNewPage tests page construction and proxy validation.
func TestNewPage(t *testing.T) {
	t.Parallel()

	t.Run("defaults create a page without client", func(t *testing.T) {
		t.Parallel()

		page, err := NewPage()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if page.UnderlyingPage() != nil {
			t.Error("expected no client before Create")
		}
	})

	t.Run("invalid proxy address returns error", func(t *testing.T) {
		t.Parallel()

		for _, addr := range []string{"127.0.0.1", ":9050", "127.0.0.1:0", "127.0.0.1:70000", "host:abc"} {
			if _, err := NewPage(WithProxy(addr)); !errors.Is(err, ErrInvalidProxyAddress) {
				t.Errorf("NewPage(WithProxy(%q)) error = %v, want ErrInvalidProxyAddress", addr, err)
			}
		}
	})

	t.Run("valid proxy address is accepted", func(t *testing.T) {
		t.Parallel()

		if _, err := NewPage(WithProxy("127.0.0.1:9050")); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

// TestPageLifecycle tests Create, UnderlyingPage and Close.
func TestPageLifecycle(t *testing.T) {
	t.Parallel()

	page, err := NewPage(WithTimeout(5 * time.Second))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := page.Create(context.Background()); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	client := page.UnderlyingPage()
	if client == nil {
		t.Fatal("expected client after Create")
	}
	if client.Timeout != 5*time.Second {
		t.Errorf("expected timeout 5s, got %v", client.Timeout)
	}
	if client.Jar == nil {
		t.Error("expected cookie jar")
	}

	if err := page.Create(context.Background()); err != nil {
		t.Fatalf("second Create() error: %v", err)
	}
	if page.UnderlyingPage() != client {
		t.Error("expected second Create to keep the existing client")
	}

	if err := page.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if page.UnderlyingPage() != nil {
		t.Error("expected no client after Close")
	}
	if err := page.Close(); err != nil {
		t.Errorf("expected Close to be idempotent, got %v", err)
	}
}

// TestPageNavigate tests page loading against a local server.
func TestPageNavigate(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><head><title> Home Page </title></head><body></body></html>"))
	})
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})
	mux.HandleFunc("/headers", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<title>" + r.Header.Get("Cookie") + "|" + r.Header.Get("X-Test") + "</title>"))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	page, err := NewPage(WithCookie("session=abc"), WithHeaders(map[string]string{"X-Test": "yes"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := page.Create(context.Background()); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	t.Cleanup(func() { _ = page.Close() })

	t.Run("loads title and status", func(t *testing.T) {
		t.Parallel()

		nav, err := page.Navigate(context.Background(), server.URL+"/")
		if err != nil {
			t.Fatalf("Navigate() error: %v", err)
		}
		if nav.StatusCode != http.StatusOK {
			t.Errorf("expected 200, got %d", nav.StatusCode)
		}
		if nav.Title != "Home Page" {
			t.Errorf("expected title %q, got %q", "Home Page", nav.Title)
		}
		if nav.Redirected() {
			t.Error("expected no redirect")
		}
	})

	t.Run("follows redirects", func(t *testing.T) {
		t.Parallel()

		nav, err := page.Navigate(context.Background(), server.URL+"/old")
		if err != nil {
			t.Fatalf("Navigate() error: %v", err)
		}
		if !nav.Redirected() {
			t.Error("expected redirect to be reported")
		}
		if nav.URL != server.URL+"/" {
			t.Errorf("expected final URL %q, got %q", server.URL+"/", nav.URL)
		}
	})

	t.Run("error status is not an error", func(t *testing.T) {
		t.Parallel()

		nav, err := page.Navigate(context.Background(), server.URL+"/missing")
		if err != nil {
			t.Fatalf("Navigate() error: %v", err)
		}
		if nav.StatusCode != http.StatusNotFound {
			t.Errorf("expected 404, got %d", nav.StatusCode)
		}
	})

	t.Run("injects cookie and headers", func(t *testing.T) {
		t.Parallel()

		nav, err := page.Navigate(context.Background(), server.URL+"/headers")
		if err != nil {
			t.Fatalf("Navigate() error: %v", err)
		}
		if nav.Title != "session=abc|yes" {
			t.Errorf("expected injected cookie and header, got %q", nav.Title)
		}
	})
}

// TestPageNavigateNotCreated tests navigation before Create.
func TestPageNavigateNotCreated(t *testing.T) {
	t.Parallel()

	page, err := NewPage()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := page.Navigate(context.Background(), "http://127.0.0.1/"); !errors.Is(err, ErrPageNotCreated) {
		t.Errorf("expected ErrPageNotCreated, got %v", err)
	}
}

// TestExtractTitle tests title extraction edge cases.
func TestExtractTitle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		html string
		want string
	}{
		{name: "simple", html: "<title>Hello</title>", want: "Hello"},
		{name: "entities", html: "<title>A &amp; B</title>", want: "A & B"},
		{name: "no title", html: "<html><body>x</body></html>", want: ""},
		{name: "first title wins", html: "<title>One</title><title>Two</title>", want: "One"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := extractTitle(strings.NewReader(tt.html)); got != tt.want {
				t.Errorf("extractTitle() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestCheckProxy tests the SOCKS5 greeting check.
func TestCheckProxy(t *testing.T) {
	t.Parallel()

	t.Run("no proxy configured", func(t *testing.T) {
		t.Parallel()

		page, _ := NewPage()
		if err := page.CheckProxy(context.Background()); !errors.Is(err, ErrNoProxy) {
			t.Errorf("expected ErrNoProxy, got %v", err)
		}
	})

	t.Run("socks5 proxy accepts no auth", func(t *testing.T) {
		t.Parallel()

		addr := serveOnce(t, []byte{socks5Version, socks5AuthNone})
		page, err := NewPage(WithProxy(addr))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := page.CheckProxy(context.Background()); err != nil {
			t.Errorf("expected proxy to pass, got %v", err)
		}
	})

	t.Run("proxy requiring auth is rejected", func(t *testing.T) {
		t.Parallel()

		addr := serveOnce(t, []byte{socks5Version, socks5AuthNoAccept})
		page, _ := NewPage(WithProxy(addr))
		if err := page.CheckProxy(context.Background()); !errors.Is(err, ErrProxyNotSOCKS5) {
			t.Errorf("expected ErrProxyNotSOCKS5, got %v", err)
		}
	})

	t.Run("http server is rejected", func(t *testing.T) {
		t.Parallel()

		addr := serveOnce(t, []byte("HTTP/1.1 400 Bad Request\r\n\r\n"))
		page, _ := NewPage(WithProxy(addr))
		if err := page.CheckProxy(context.Background()); !errors.Is(err, ErrProxyNotSOCKS5) {
			t.Errorf("expected ErrProxyNotSOCKS5, got %v", err)
		}
	})

	t.Run("closed port cannot connect", func(t *testing.T) {
		t.Parallel()

		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("failed to listen: %v", err)
		}
		addr := ln.Addr().String()
		_ = ln.Close()

		page, _ := NewPage(WithProxy(addr))
		if err := page.CheckProxy(context.Background()); !errors.Is(err, ErrProxyCannotConnect) {
			t.Errorf("expected ErrProxyCannotConnect, got %v", err)
		}
	})
}

// TestProxyStatus tests status strings and errors.
func TestProxyStatus(t *testing.T) {
	t.Parallel()

	if ProxyStatusOK.Error() != nil {
		t.Error("expected nil error for OK")
	}
	if ProxyStatusTimeout.String() != "timeout" {
		t.Errorf("unexpected string %q", ProxyStatusTimeout.String())
	}
	if !errors.Is(ProxyStatusCannotConnect.Error(), ErrProxyCannotConnect) {
		t.Error("expected ErrProxyCannotConnect")
	}
}

// serveOnce starts a TCP listener that reads the client greeting and
// answers with reply.
func serveOnce(t *testing.T, reply []byte) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 3)
		_, _ = conn.Read(buf)
		_, _ = conn.Write(reply)
	}()

	return ln.Addr().String()
}

package fetch

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/net/proxy"
)

var (
	ErrInvalidProxyURL        = errors.New("invalid proxy URL")
	ErrUnsupportedProxyScheme = errors.New("unsupported proxy scheme")
	ErrTooManyRedirects       = errors.New("redirect loop detected")
	ErrCrossProtocolRedirect  = errors.New("cross-protocol redirect not supported")
)

// DefaultMaxRedirects matches net/http's default.
const DefaultMaxRedirects = 10

var proxySchemes = map[string]bool{
	"http":   true,
	"https":  true,
	"socks5": true,
}

// NewHTTPClientWithProxy returns a client for tile fetches that goes through
// proxyURL (http, https or socks5). An empty proxyURL means a direct client.
func NewHTTPClientWithProxy(proxyURL string) (*http.Client, error) {
	client := &http.Client{CheckRedirect: redirectPolicy(DefaultMaxRedirects)}
	if proxyURL == "" {
		return client, nil
	}
	parsed, err := url.Parse(proxyURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, ErrInvalidProxyURL
	}
	if !proxySchemes[parsed.Scheme] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProxyScheme, parsed.Scheme)
	}
	transport := &http.Transport{}
	if parsed.Scheme == "socks5" {
		var auth *proxy.Auth
		if parsed.User != nil {
			pass, _ := parsed.User.Password()
			auth = &proxy.Auth{User: parsed.User.Username(), Password: pass}
		}
		dialer, err := proxy.SOCKS5("tcp", parsed.Host, auth, proxy.Direct)
		if err != nil {
			return nil, err
		}
		cd, ok := dialer.(proxy.ContextDialer)
		if !ok {
			return nil, fmt.Errorf("%w: socks5 dialer lacks context support", ErrUnsupportedProxyScheme)
		}
		transport.DialContext = cd.DialContext
	} else {
		transport.Proxy = http.ProxyURL(parsed)
	}
	client.Transport = transport
	return client, nil
}

// redirectPolicy caps redirect hops and refuses to leave http(s).
func redirectPolicy(max int) func(*http.Request, []*http.Request) error {
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= max {
			return fmt.Errorf("%w: exceeded %d hops (last URL: %s)",
				ErrTooManyRedirects, max, via[len(via)-1].URL.Redacted())
		}
		if s := req.URL.Scheme; s != "http" && s != "https" {
			return fmt.Errorf("%w: -> %s", ErrCrossProtocolRedirect, s)
		}
		return nil
	}
}

// Package tor routes pagegrab's outbound connections through a SOCKS5 proxy.
//
// A Client wraps a golang.org/x/net/proxy dialer; its DialContext method is
// handed to the fetcher so every HTTP attempt is tunnelled. The proxy can be
// any SOCKS5 endpoint given with --proxy, or an embedded Tor daemon started
// through tornago when --tor is set.
//
// Create a Client and pass it to the components that need it rather than
// keeping proxy state in globals.
package tor

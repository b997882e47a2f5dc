package tor

import "errors"

// Proxy connectivity errors.
var (
	// ErrProxyNotSOCKS5 is returned when the proxy address answers but does
	// not complete a SOCKS5 handshake, typically an HTTP proxy or some other
	// service listening on the port.
	ErrProxyNotSOCKS5 = errors.New("proxy is not a SOCKS5 proxy")

	// ErrProxyCannotConnect is returned when no TCP connection to the proxy
	// can be established.
	ErrProxyCannotConnect = errors.New("cannot connect to SOCKS5 proxy")

	// ErrProxyTimeout is returned when the proxy does not answer in time.
	ErrProxyTimeout = errors.New("timeout connecting to SOCKS5 proxy")

	// ErrProxyAuthFailed is returned when the proxy rejects the credentials.
	ErrProxyAuthFailed = errors.New("SOCKS5 proxy rejected credentials")

	// ErrInvalidProxyAddress is returned when the proxy address cannot be parsed.
	// Accepted forms are "host:port" and "socks5://[user:pass@]host:port".
	ErrInvalidProxyAddress = errors.New("invalid proxy address: expected host:port or socks5://host:port")

	// ErrEmbeddedNotRunning is returned when a client is requested from an
	// embedded Tor daemon that has not been started.
	ErrEmbeddedNotRunning = errors.New("embedded Tor daemon is not running")
)

// ProxyStatus is the result of probing a proxy with CheckConnection.
type ProxyStatus int

const (
	// ProxyStatusOK indicates the proxy completed a SOCKS5 CONNECT exchange.
	ProxyStatusOK ProxyStatus = iota

	// ProxyStatusWrongType indicates the peer answered but is not SOCKS5.
	ProxyStatusWrongType

	// ProxyStatusCannotConnect indicates the proxy could not be reached.
	ProxyStatusCannotConnect

	// ProxyStatusTimeout indicates the probe ran out of time.
	ProxyStatusTimeout

	// ProxyStatusAuthFailed indicates the proxy refused our credentials.
	ProxyStatusAuthFailed
)

// String returns a human-readable description of the proxy status.
func (s ProxyStatus) String() string {
	switch s {
	case ProxyStatusOK:
		return "OK"
	case ProxyStatusWrongType:
		return "wrong type (not SOCKS5)"
	case ProxyStatusCannotConnect:
		return "cannot connect"
	case ProxyStatusTimeout:
		return "timeout"
	case ProxyStatusAuthFailed:
		return "authentication failed"
	default:
		return "unknown"
	}
}

// Error returns the sentinel error for this status, or nil if OK.
func (s ProxyStatus) Error() error {
	switch s {
	case ProxyStatusOK:
		return nil
	case ProxyStatusWrongType:
		return ErrProxyNotSOCKS5
	case ProxyStatusCannotConnect:
		return ErrProxyCannotConnect
	case ProxyStatusTimeout:
		return ErrProxyTimeout
	case ProxyStatusAuthFailed:
		return ErrProxyAuthFailed
	default:
		return errors.New("unknown proxy status")
	}
}

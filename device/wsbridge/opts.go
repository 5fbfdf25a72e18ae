package wsbridge

import "time"

// Option is a functional option for configuring the device bridge client.
type Option func(*provider)

// WithHandshakeTimeout bounds the websocket handshake.
// Default: 10 seconds.
func WithHandshakeTimeout(timeout time.Duration) Option {
	return func(p *provider) {
		p.dialer.HandshakeTimeout = timeout
	}
}

// WithRequestTimeout bounds a single request when the caller context has no
// deadline. Signing waits for the user, so keep it generous.
// Default: 5 minutes.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(p *provider) {
		p.requestTimeout = timeout
	}
}

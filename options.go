package ftp

import (
	"crypto/tls"

	"github.com/mistnet/ftp/internal/ftplog"
)

// Option configures a Client at construction time, following the
// functional-options pattern.
type Option func(*Client) error

// WithTransferMode sets the default data-connection mode (passive unless
// overridden).
func WithTransferMode(mode TransferMode) Option {
	return func(c *Client) error {
		c.transferMode = mode
		return nil
	}
}

// WithTransferType sets the default transfer type (binary unless
// overridden).
func WithTransferType(t TransferType) Option {
	return func(c *Client) error {
		c.transferType = t
		return nil
	}
}

// WithTLSConfig enables explicit FTPS (RFC 4217): on Connect, after a
// positive greeting, the client sends AUTH TLS and upgrades the control
// connection in place using cfg. Implicit FTPS (connecting straight into a
// TLS handshake on port 990) is an explicit Non-goal and has no option.
//
// cfg gets a ClientSessionCache if it doesn't already have one. Every data
// connection's TLS config is cloned from this same cfg (socket.go's
// wrapTLSSocket), so the cache is shared between the control handshake and
// every data handshake that follows it — that sharing, not anything copied
// out of a tls.ConnectionState, is what lets a data connection resume the
// control connection's session (spec 4.3, 4.6).
func WithTLSConfig(cfg *tls.Config) Option {
	return func(c *Client) error {
		if cfg == nil {
			cfg = &tls.Config{}
		}
		if cfg.ClientSessionCache == nil {
			cfg.ClientSessionCache = tls.NewLRUClientSessionCache(32)
		}
		c.tlsConfig = cfg
		return nil
	}
}

// WithoutRFC2428 disables EPSV/EPRT, forcing the client to use the legacy
// PASV/PORT commands for every data connection.
func WithoutRFC2428() Option {
	return func(c *Client) error {
		c.rfc2428 = false
		return nil
	}
}

// WithLogger sets the structured logger every command/reply/data-connection
// event reports to. The default is a no-op logger.
func WithLogger(logger ftplog.Logger) Option {
	return func(c *Client) error {
		c.logger = logger
		return nil
	}
}

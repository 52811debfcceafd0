package directory

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-ldap/ldap/v3"
)

// Client is the go-ldap backed Store implementation. It holds a single
// bound connection guarded by a mutex, reconnecting when a retryable
// failure drops it. The engine is synchronous, so contention on the
// mutex mirrors contention on the wire.
type Client struct {
	config *Config
	log    *slog.Logger

	mu   sync.Mutex
	conn *ldap.Conn
}

var _ Store = (*Client)(nil)

// NewClient creates a client for the configured server. The connection
// is established lazily on the first operation.
func NewClient(config *Config, log *slog.Logger) (*Client, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.URL == "" {
		return nil, fmt.Errorf("directory URL cannot be empty")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{config: config, log: log}, nil
}

// Connect dials and binds eagerly, verifying configuration.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.connLocked()
	return WrapError("connect", err)
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

func (c *Client) Bind(ctx context.Context, dn string, attrs map[string][]string) error {
	req := ldap.NewAddRequest(dn, nil)
	for name, values := range attrs {
		req.Attribute(name, values)
	}
	return c.withRetry(ctx, "bind", func(conn *ldap.Conn) error {
		return conn.Add(req)
	})
}

func (c *Client) Unbind(ctx context.Context, dn string) error {
	req := ldap.NewDelRequest(dn, nil)
	return c.withRetry(ctx, "unbind", func(conn *ldap.Conn) error {
		return conn.Del(req)
	})
}

func (c *Client) Modify(ctx context.Context, dn string, mods []Mod) error {
	req := ldap.NewModifyRequest(dn, nil)
	for _, mod := range mods {
		switch mod.Op {
		case ModAdd:
			req.Add(mod.Name, mod.Values)
		case ModDelete:
			req.Delete(mod.Name, mod.Values)
		case ModReplace:
			req.Replace(mod.Name, mod.Values)
		}
	}
	return c.withRetry(ctx, "modify", func(conn *ldap.Conn) error {
		return conn.Modify(req)
	})
}

func (c *Client) Rename(ctx context.Context, oldDN, newDN string) error {
	newRDN, newParent, err := SplitRDN(newDN)
	if err != nil {
		return WrapError("rename", err)
	}
	req := ldap.NewModifyDNRequest(oldDN, newRDN, true, newParent)
	return c.withRetry(ctx, "rename", func(conn *ldap.Conn) error {
		return conn.ModifyDN(req)
	})
}

func (c *Client) Search(ctx context.Context, baseDN string, filter Filter) ([]Entry, error) {
	req := ldap.NewSearchRequest(
		baseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		0,
		int(c.config.Timeout.Seconds()),
		false,
		filter.Encode(),
		nil, // all attributes
		nil,
	)

	var entries []Entry
	err := c.withRetry(ctx, "search", func(conn *ldap.Conn) error {
		result, err := conn.SearchWithPaging(req, 1000)
		if err != nil {
			return err
		}
		entries = make([]Entry, 0, len(result.Entries))
		for _, raw := range result.Entries {
			entry := Entry{DN: raw.DN, Attributes: make(map[string][]string, len(raw.Attributes))}
			for _, attr := range raw.Attributes {
				entry.Attributes[attr.Name] = attr.Values
			}
			entries = append(entries, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Authenticate searches for the single entry matching the filter, then
// verifies the credential with a bind as that entry on a dedicated
// connection so the service bind is never clobbered.
func (c *Client) Authenticate(ctx context.Context, baseDN string, filter Filter, password string) (bool, error) {
	if password == "" {
		// An empty credential would turn the check into an anonymous bind.
		return false, nil
	}

	req := ldap.NewSearchRequest(
		baseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		2,
		int(c.config.Timeout.Seconds()),
		false,
		filter.Encode(),
		[]string{"dn"},
		nil,
	)

	var userDN string
	err := c.withRetry(ctx, "authenticate_search", func(conn *ldap.Conn) error {
		result, err := conn.Search(req)
		if err != nil {
			return err
		}
		if len(result.Entries) != 1 {
			userDN = ""
			return nil
		}
		userDN = result.Entries[0].DN
		return nil
	})
	if err != nil {
		return false, err
	}
	if userDN == "" {
		return false, nil
	}

	conn, err := c.dial()
	if err != nil {
		return false, WrapError("authenticate_dial", err)
	}
	defer conn.Close()

	if err := conn.Bind(userDN, password); err != nil {
		if ldap.IsErrorWithCode(err, ldap.LDAPResultInvalidCredentials) {
			return false, nil
		}
		return false, WrapError("authenticate_bind", err)
	}
	return true, nil
}

// connLocked returns the live connection, dialing and binding if needed.
// Caller must hold c.mu.
func (c *Client) connLocked() (*ldap.Conn, error) {
	if c.conn != nil && !c.conn.IsClosing() {
		return c.conn, nil
	}
	conn, err := c.dial()
	if err != nil {
		return nil, err
	}
	if c.config.BindDN != "" {
		if err := conn.Bind(c.config.BindDN, c.config.BindPassword); err != nil {
			conn.Close()
			return nil, err
		}
	}
	c.conn = conn
	return conn, nil
}

func (c *Client) dial() (*ldap.Conn, error) {
	tlsConfig := c.config.TLSConfig
	if tlsConfig == nil {
		tlsConfig = &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: c.config.InsecureSkipVerify,
		}
	}
	conn, err := ldap.DialURL(c.config.URL, ldap.DialWithTLSConfig(tlsConfig))
	if err != nil {
		return nil, err
	}
	conn.SetTimeout(c.config.Timeout)
	if c.config.StartTLS {
		if err := conn.StartTLS(tlsConfig); err != nil {
			conn.Close()
			return nil, err
		}
	}
	return conn, nil
}

// dropLocked discards a broken connection so the next attempt redials.
// Caller must hold c.mu.
func (c *Client) dropLocked() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// withRetry runs op against the shared connection with exponential
// backoff on retryable failures.
func (c *Client) withRetry(ctx context.Context, opName string, op func(conn *ldap.Conn) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var lastErr error
	backoff := c.config.InitialBackoff

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			c.log.Debug("retrying directory operation",
				slog.String("op", opName),
				slog.Int("attempt", attempt),
				slog.String("last_error", lastErr.Error()))
		}

		conn, err := c.connLocked()
		if err == nil {
			err = op(conn)
			if err == nil {
				return nil
			}
		}
		lastErr = err

		if !IsRetryable(err) {
			return WrapError(opName, err)
		}
		c.dropLocked()

		if attempt == c.config.MaxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return WrapError(opName, ctx.Err())
		case <-time.After(backoff):
			backoff = min(time.Duration(float64(backoff)*c.config.BackoffFactor), c.config.MaxBackoff)
		}
	}

	return WrapError(opName, lastErr)
}

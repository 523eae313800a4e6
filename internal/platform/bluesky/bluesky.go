// Package bluesky implements the platform boundary against an AT
// Protocol PDS and relay, using the indigo client libraries.
package bluesky

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bluesky-social/indigo/api/atproto"
	"github.com/bluesky-social/indigo/xrpc"
)

const userAgent = "warbler/0.1"

type Config struct {
	Host       string
	RelayHost  string
	Identifier string
	Password   string
}

type Client struct {
	host       string
	relayHost  string
	identifier string
	password   string

	client  *xrpc.Client
	selfDID string

	// follow record keys by subject DID, filled by FollowingIDs so a
	// later Unfollow does not have to re-list the whole collection
	mu          sync.Mutex
	followRkeys map[string]string

	logger *slog.Logger
}

func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.Identifier == "" {
		return nil, fmt.Errorf("bluesky: identifier is required")
	}
	if cfg.Password == "" {
		return nil, fmt.Errorf("bluesky: password is required")
	}
	if cfg.Host == "" {
		cfg.Host = "https://bsky.social"
	}
	if cfg.RelayHost == "" {
		cfg.RelayHost = "wss://bsky.network"
	}

	return &Client{
		host:        cfg.Host,
		relayHost:   cfg.RelayHost,
		identifier:  cfg.Identifier,
		password:    cfg.Password,
		followRkeys: make(map[string]string),
		logger:      logger,
	}, nil
}

// Connect authenticates against the PDS and attaches the session to the
// client. Must be called before any other operation.
func (c *Client) Connect(ctx context.Context) error {
	ua := userAgent
	client := &xrpc.Client{
		Host:      c.host,
		UserAgent: &ua,
	}

	auth, err := atproto.ServerCreateSession(ctx, client, &atproto.ServerCreateSession_Input{
		Identifier: c.identifier,
		Password:   c.password,
	})
	if err != nil {
		return fmt.Errorf("failed to authenticate with bluesky: %w", err)
	}

	client.Auth = &xrpc.AuthInfo{
		AccessJwt:  auth.AccessJwt,
		RefreshJwt: auth.RefreshJwt,
		Handle:     auth.Handle,
		Did:        auth.Did,
	}

	c.client = client
	c.selfDID = auth.Did

	c.logger.Info("bluesky session created", "handle", auth.Handle, "did", auth.Did)
	return nil
}

// SelfDID returns the authenticated account's DID.
func (c *Client) SelfDID() string {
	return c.selfDID
}

func (c *Client) Close(ctx context.Context) error {
	// stateless HTTP client, nothing to tear down
	return nil
}

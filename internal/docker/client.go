package docker

import (
	"context"
	"fmt"
	"time"

	"github.com/docker/docker/client"
)

// Config holds the Docker client configuration. An empty Host falls back
// to DOCKER_HOST and then to the platform default socket.
type Config struct {
	Host    string
	Timeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Timeout: 5 * time.Second,
	}
}

// Client resolves the tracked target as a container and reads container logs
type Client struct {
	cli     *client.Client
	timeout time.Duration
}

// NewClient connects to the daemon and pings it once
func NewClient(cfg Config) (*Client, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}

	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if cfg.Host != "" {
		opts = append(opts, client.WithHost(cfg.Host))
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}

	c := &Client{cli: cli, timeout: cfg.Timeout}
	ctx, cancel := c.withTimeout(context.Background())
	defer cancel()

	if _, err := cli.Ping(ctx); err != nil {
		cli.Close()
		return nil, fmt.Errorf("docker daemon at %s did not answer: %w", cli.DaemonHost(), err)
	}
	return c, nil
}

// withTimeout bounds a single daemon call
func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}

// Close closes the connection
func (c *Client) Close() error {
	if c.cli != nil {
		return c.cli.Close()
	}
	return nil
}

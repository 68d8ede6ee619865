// Package pubsub holds the Pub/Sub v2 connection the outbox relay publishes
// stock alerts and order events through.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/hwinventory-backend/pkg/config"
	"github.com/angelmondragon/hwinventory-backend/pkg/logger"
)

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errNoTopics          = errors.New("pubsub topic name is required")
	errClosed            = errors.New("pubsub client is closed")
)

// Client keeps one publisher per topic for the lifetime of the process.
type Client struct {
	client  *pubsub.Client
	project string
	topics  []string

	mu         sync.Mutex
	publishers map[string]*pubsub.Publisher
	closed     bool
}

// NewClient dials Pub/Sub and fails unless every configured topic exists.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	project := strings.TrimSpace(gcp.ProjectID)
	if project == "" {
		return nil, errProjectIDRequired
	}
	topics := configuredTopics(cfg)
	if len(topics) == 0 {
		return nil, errNoTopics
	}

	inner, err := pubsub.NewClient(ctx, project, dialOptions(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("dial pubsub: %w", err)
	}
	c := &Client{
		client:     inner,
		project:    project,
		topics:     topics,
		publishers: make(map[string]*pubsub.Publisher, len(topics)),
	}
	if err := c.checkTopics(ctx); err != nil {
		_ = inner.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "topics", topics), "pubsub connected")
	}
	return c, nil
}

func dialOptions(gcp config.GCPConfig) []option.ClientOption {
	creds := strings.TrimSpace(gcp.ApplicationCredentials)
	if creds == "" {
		return nil
	}
	return []option.ClientOption{option.WithCredentialsFile(creds)}
}

// configuredTopics returns the distinct, non-blank topic names in a stable order.
func configuredTopics(cfg config.PubSubConfig) []string {
	var out []string
	for _, raw := range []string{cfg.StockAlertsTopic, cfg.OrdersTopic} {
		if name := strings.TrimSpace(raw); name != "" {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func (c *Client) checkTopics(ctx context.Context) error {
	for _, name := range c.topics {
		full := qualify(c.project, name)
		_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: full})
		switch {
		case err == nil:
		case status.Code(err) == codes.NotFound:
			return fmt.Errorf("topic %s does not exist", full)
		default:
			return fmt.Errorf("get topic %s: %w", full, err)
		}
	}
	return nil
}

// Publisher returns the cached publisher for name, creating it on first use.
// It returns nil once the client is closed or when name is blank.
func (c *Client) Publisher(name string) *pubsub.Publisher {
	if c == nil || c.client == nil {
		return nil
	}
	full := qualify(c.project, name)
	if full == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	pub, ok := c.publishers[full]
	if !ok {
		pub = c.client.Publisher(full)
		c.publishers[full] = pub
	}
	return pub
}

// Ping re-checks that the configured topics still exist.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errors.New("pubsub client not initialized")
	}
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return errClosed
	}
	return c.checkTopics(ctx)
}

// Close flushes every publisher before closing the connection.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	pubs := c.publishers
	c.publishers = nil
	c.mu.Unlock()

	for _, pub := range pubs {
		pub.Stop()
	}
	return c.client.Close()
}

// qualify expands a topic id into projects/<project>/topics/<id>. Names that
// are already fully qualified are returned as is.
func qualify(project, name string) string {
	n := strings.TrimSpace(name)
	if n == "" {
		return ""
	}
	if strings.HasPrefix(n, "projects/") && strings.Contains(n, "/topics/") {
		return n
	}
	p := strings.TrimSpace(project)
	if p == "" {
		return ""
	}
	return "projects/" + p + "/topics/" + n
}

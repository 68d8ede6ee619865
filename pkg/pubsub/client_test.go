package pubsub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/hwinventory-backend/pkg/config"
)

func TestQualify(t *testing.T) {
	cases := map[string]struct {
		project, name, want string
	}{
		"short id":        {"hw", "alerts", "projects/hw/topics/alerts"},
		"trimmed":         {" hw ", " alerts ", "projects/hw/topics/alerts"},
		"already full":    {"other", "projects/hw/topics/alerts", "projects/hw/topics/alerts"},
		"blank name":      {"hw", "  ", ""},
		"missing project": {"", "alerts", ""},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, qualify(tc.project, tc.name))
		})
	}
}

func TestConfiguredTopics(t *testing.T) {
	assert.Equal(t, []string{"events"}, configuredTopics(config.PubSubConfig{StockAlertsTopic: "events", OrdersTopic: " events "}))
	assert.Equal(t, []string{"hw-orders", "hw-stock"}, configuredTopics(config.PubSubConfig{StockAlertsTopic: "hw-stock", OrdersTopic: "hw-orders"}))
	assert.Empty(t, configuredTopics(config.PubSubConfig{}))
}

func TestDialOptions(t *testing.T) {
	assert.Empty(t, dialOptions(config.GCPConfig{}))
	assert.Len(t, dialOptions(config.GCPConfig{ApplicationCredentials: "/tmp/creds.json"}), 1)
}

func TestNewClientValidatesConfig(t *testing.T) {
	_, err := NewClient(context.Background(), config.GCPConfig{}, config.PubSubConfig{OrdersTopic: "orders"}, nil)
	require.ErrorIs(t, err, errProjectIDRequired)

	_, err = NewClient(context.Background(), config.GCPConfig{ProjectID: "hw"}, config.PubSubConfig{}, nil)
	require.ErrorIs(t, err, errNoTopics)
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	assert.Nil(t, c.Publisher("alerts"))
	assert.NoError(t, c.Close())
	assert.Error(t, c.Ping(context.Background()))
}

package natsx

import (
	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
)

// NatsxClient is a thin publisher over a core NATS connection. The
// gateway uses it as the transport behind push notifications; consumers
// (mobile push workers, badge services) subscribe on their own side.
type NatsxClient struct {
	nc *nats.Conn
}

type Config struct {
	Servers []string
	Name    string
}

func New(cfg Config) (*NatsxClient, error) {
	if len(cfg.Servers) == 0 {
		cfg.Servers = []string{nats.DefaultURL}
	}
	if cfg.Name == "" {
		cfg.Name = "tchat-gateway"
	}
	nc, err := nats.Connect(
		joinServers(cfg.Servers),
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, errors.Wrap(err, "nats connect")
	}
	return &NatsxClient{nc: nc}, nil
}

// Publish sends one message with optional headers.
func (c *NatsxClient) Publish(subject string, data []byte, hdr map[string]string) error {
	msg := nats.NewMsg(subject)
	msg.Data = data
	for k, v := range hdr {
		msg.Header.Add(k, v)
	}
	if err := c.nc.PublishMsg(msg); err != nil {
		return errors.Wrap(err, "publish failed")
	}
	return nil
}

func (c *NatsxClient) Close() {
	if c.nc != nil {
		c.nc.Close()
	}
}

func joinServers(servers []string) string {
	out := servers[0]
	for _, s := range servers[1:] {
		out += "," + s
	}
	return out
}

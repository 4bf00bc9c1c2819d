package mqtt

import (
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

const defaultTimeout = 10 * time.Second

// Handler receives one message.
type Handler func(topic string, payload []byte)

// Broker is the part of an MQTT connection the bridge and the control
// subscriber use.
type Broker interface {
	Publish(topic string, payload []byte) error
	Subscribe(topic string, handler Handler) error
	IsConnected() bool
}

// Options configures a Client.
type Options struct {
	Broker   string
	ClientID string
	Username string
	Password string

	// OnConnect runs after every (re)connect, including the first.
	OnConnect func()
	Logger    *zap.Logger
}

// Client wraps the Paho MQTT client.
type Client struct {
	client paho.Client
	broker string
	mu     sync.Mutex
	log    *zap.Logger
}

var _ Broker = (*Client)(nil)

// NewClient creates a client but does not connect.
func NewClient(o Options) *Client {
	log := o.Logger
	if log == nil {
		log = zap.NewNop()
	}

	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetKeepAlive(30 * time.Second).
		// Control handlers take the session lock; paho must not wait on them
		// before acknowledging the next message.
		SetOrderMatters(false).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Warn("mqtt connection lost", zap.Error(err))
		}).
		SetOnConnectHandler(func(_ paho.Client) {
			log.Info("mqtt connected", zap.String("broker", o.Broker))
			if o.OnConnect != nil {
				o.OnConnect()
			}
		})
	if o.Username != "" {
		opts.SetUsername(o.Username)
		opts.SetPassword(o.Password)
	}

	return &Client{
		client: paho.NewClient(opts),
		broker: o.Broker,
		log:    log,
	}
}

// Connect attempts to connect to the broker without blocking indefinitely.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	token := c.client.Connect()
	if !token.WaitTimeout(defaultTimeout) {
		return &TimeoutError{Op: "connect", Topic: c.broker}
	}
	return token.Error()
}

// Subscribe subscribes to topic at QoS 1.
func (c *Client) Subscribe(topic string, handler Handler) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	token := c.client.Subscribe(topic, 1, func(_ paho.Client, msg paho.Message) {
		handler(msg.Topic(), msg.Payload())
	})
	if !token.WaitTimeout(defaultTimeout) {
		return &TimeoutError{Op: "subscribe", Topic: topic}
	}
	return token.Error()
}

// Publish sends payload to topic at QoS 1 and waits for the broker.
func (c *Client) Publish(topic string, payload []byte) error {
	token := c.client.Publish(topic, 1, false, payload)
	if !token.WaitTimeout(defaultTimeout) {
		return &TimeoutError{Op: "publish", Topic: topic}
	}
	return token.Error()
}

// Disconnect cleanly disconnects from the broker.
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.client.Disconnect(1000)
}

func (c *Client) IsConnected() bool {
	return c.client.IsConnected()
}

// TimeoutError indicates a broker operation did not complete in time.
type TimeoutError struct {
	Op    string
	Topic string
}

func (e *TimeoutError) Error() string {
	return "mqtt " + e.Op + " timeout: " + e.Topic
}

package broker

import (
	"errors"
	"net/url"
	"time"
)

// ClientConfig holds the configuration for creating a new broker Client.
type ClientConfig struct {
	BrokerURL string
	ClientID  string
	Username  string
	Password  string

	// KeepAlive in seconds. Default is 60.
	KeepAlive uint16

	// ConnectTimeout for the initial connection. Default is 5s.
	ConnectTimeout time.Duration

	// SessionExpiry is the MQTT 5 session expiry interval in seconds.
	SessionExpiry uint32

	// CleanStart indicates whether to start a clean session. Edge agents
	// that need to receive commands issued while disconnected set this to
	// false.
	CleanStart bool

	// InsecureSkipVerify disables TLS certificate verification. Only safe
	// in development against a self-signed broker.
	InsecureSkipVerify bool

	// CACert, ClientCert, ClientKey are PEM-encoded paths for mTLS. Empty
	// values fall back to the system trust store / no client cert.
	CACert     string
	ClientCert string
	ClientKey  string

	// WillTopic, WillPayload, WillQoS and WillRetain configure the MQTT
	// last-will message published by the broker if this client disconnects
	// ungracefully. WillTopic empty disables the LWT.
	WillTopic   string
	WillPayload []byte
	WillQoS     byte
	WillRetain  bool
}

// setDefaultConfig applies safe default values to the configuration.
func setDefaultConfig(cfg *ClientConfig) {
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}
	if cfg.KeepAlive == 0 {
		cfg.KeepAlive = 60
	}
}

// Validate checks if the configuration is valid.
func (c *ClientConfig) Validate() error {
	if c.BrokerURL == "" {
		return errors.New("broker url is required")
	}
	if _, err := url.Parse(c.BrokerURL); err != nil {
		return err
	}
	return nil
}

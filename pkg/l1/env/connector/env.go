// Package connector configures how command line tools reach a controller.
package connector

import (
	"flag"
	"fmt"
	"net/url"
	"os"

	"github.com/robotalks/robotis.go/pkg/l1"
	"github.com/robotalks/robotis.go/pkg/l1/comm/mqtt"
	"github.com/robotalks/robotis.go/pkg/l1/comm/stream"
	"github.com/robotalks/robotis.go/pkg/l1/comm/websocket"
)

// Config selects the registry and optionally the controller to connect.
type Config struct {
	Ref l1.ControllerRef

	// RegistryURL is the MQTT broker where controllers register, e.g.
	// mqtt://host:port/topic-prefix/. A tcp://host:port or ws://host:port/path
	// URL reaches a single controller directly.
	RegistryURL string
}

// Factory creates a Connector from a parsed registry URL.
type Factory func(u *url.URL) (l1.Connector, error)

var (
	defaultConfig = Config{RegistryURL: "mqtt://localhost:1883/robotis/"}

	factories = map[string]Factory{
		"mqtt": func(u *url.URL) (l1.Connector, error) {
			return mqtt.NewConnector(u.String())
		},
		"tcp": func(u *url.URL) (l1.Connector, error) {
			return stream.NewConnector(u.Host), nil
		},
		"ws":  newWebsocketConnector,
		"wss": newWebsocketConnector,
	}
)

func newWebsocketConnector(u *url.URL) (l1.Connector, error) {
	return websocket.NewConnector(u.String()), nil
}

func init() {
	if val := os.Getenv("ROBO_CTL"); val != "" {
		if ref, err := l1.ParseRef(val); err == nil {
			defaultConfig.Ref = ref
		}
	}
	if val := os.Getenv("ROBO_REGISTRY_URL"); val != "" {
		defaultConfig.RegistryURL = val
	}
}

// refFlag sets a ControllerRef from TYPE/ID.
type refFlag struct {
	ref *l1.ControllerRef
}

func (f refFlag) String() string {
	if f.ref == nil || !f.ref.IsValid() {
		return ""
	}
	return f.ref.Name()
}

func (f refFlag) Set(val string) error {
	ref, err := l1.ParseRef(val)
	if err != nil {
		return err
	}
	*f.ref = ref
	return nil
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.Var(refFlag{&defaultConfig.Ref}, "ctl", "Controller to connect, TYPE/ID.")
	flag.StringVar(&defaultConfig.RegistryURL, "registry", defaultConfig.RegistryURL, "Controller registry URL, mqtt://, tcp:// or ws://.")
}

// NewConfig creates a Config from the flags and environment.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// RegisterScheme adds or replaces the Factory of a URL scheme.
func RegisterScheme(scheme string, factory Factory) {
	factories[scheme] = factory
}

// NewConnector creates the Connector of RegistryURL.
func (c *Config) NewConnector() (l1.Connector, error) {
	u, err := url.Parse(c.RegistryURL)
	if err != nil {
		return nil, fmt.Errorf("registry URL: %w", err)
	}
	factory, ok := factories[u.Scheme]
	if !ok {
		return nil, fmt.Errorf("registry URL: unknown scheme %q", u.Scheme)
	}
	return factory(u)
}

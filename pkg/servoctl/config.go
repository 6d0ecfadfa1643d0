package servoctl

import (
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/robotis.go/pkg/l0/robotis"
	"github.com/robotalks/robotis.go/pkg/l0/robotis/sim"
	"github.com/robotalks/robotis.go/pkg/l1"
)

// Config defines the configurations for the controller.
type Config struct {
	// Device is the serial port, or "sim" for a simulated bus.
	Device   string
	BaudRate int
	Timeout  time.Duration
	// ConfigFile is the YAML file of servo parameters.
	ConfigFile string
	// IDs lists servo ids, comma separated. Configured ids are used if empty.
	IDs            string
	StrictChecksum bool
	StatusInterval time.Duration
	// MoveTimeout bounds a waiting move without its own timeout.
	MoveTimeout time.Duration
}

// Defaults
const (
	DefaultDevice         = "/dev/ttyUSB0"
	DefaultStatusInterval = time.Second
	DefaultMoveTimeout    = 10 * time.Second
)

var defaultConfig = Config{
	Device:         DefaultDevice,
	BaudRate:       robotis.DefaultBaudRate,
	Timeout:        robotis.DefaultTimeout,
	StatusInterval: DefaultStatusInterval,
	MoveTimeout:    DefaultMoveTimeout,
}

func init() {
	if val := os.Getenv("ROBO_SERVO_DEVICE"); val != "" {
		defaultConfig.Device = val
	}
	if val := os.Getenv("ROBO_SERVO_CONFIG"); val != "" {
		defaultConfig.ConfigFile = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Device, "device", defaultConfig.Device, "Serial device of the servo bus, \"sim\" for simulation.")
	flag.IntVar(&defaultConfig.BaudRate, "baud", defaultConfig.BaudRate, "Baud rate.")
	flag.DurationVar(&defaultConfig.Timeout, "bus-timeout", defaultConfig.Timeout, "Timeout waiting for a servo response.")
	flag.StringVar(&defaultConfig.ConfigFile, "servo-config", defaultConfig.ConfigFile, "YAML file of servo parameters.")
	flag.StringVar(&defaultConfig.IDs, "servos", defaultConfig.IDs, "Servo IDs, comma separated, default to the configured ones.")
	flag.BoolVar(&defaultConfig.StrictChecksum, "strict-checksum", defaultConfig.StrictChecksum, "Reject responses with bad checksum.")
	flag.DurationVar(&defaultConfig.StatusInterval, "status-interval", defaultConfig.StatusInterval, "Interval publishing servo status, 0 to disable.")
	flag.DurationVar(&defaultConfig.MoveTimeout, "move-timeout", defaultConfig.MoveTimeout, "Default timeout of waiting moves.")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a config with defaults.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// ParseIDs parses comma separated servo ids.
func ParseIDs(str string) ([]int, error) {
	var ids []int
	for _, item := range strings.Split(str, ",") {
		if item = strings.TrimSpace(item); item == "" {
			continue
		}
		id, err := strconv.Atoi(item)
		if err != nil {
			return nil, fmt.Errorf("invalid servo id %q: %v", item, err)
		}
		if id < 0 || id > robotis.MaxID {
			return nil, fmt.Errorf("%w: %d", robotis.ErrInvalidID, id)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// BusConfig returns the settings opening the bus.
func (c *Config) BusConfig() robotis.BusConfig {
	conf := robotis.BusConfig{
		Device:   c.Device,
		BaudRate: c.BaudRate,
		Timeout:  c.Timeout,
	}
	if c.StrictChecksum {
		conf.Checksum = robotis.ChecksumStrict
	}
	return conf
}

// NewController opens the bus and creates a handle for each servo. Servos
// failing the initial probe stay uninitialized until probed by a command.
func (c *Config) NewController(reg l1.Registrar) (*Controller, error) {
	confs := make(robotis.ConfigMap)
	if c.ConfigFile != "" {
		m, err := robotis.LoadConfigFile(c.ConfigFile)
		if err != nil {
			return nil, err
		}
		confs = m
	}
	ids, err := ParseIDs(c.IDs)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		ids = confs.IDs()
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no servo specified")
	}
	sort.Ints(ids)

	busConf := c.BusConfig()
	if c.Device == sim.DeviceName {
		busConf.Opener = sim.New(ids...).Opener()
	}
	bus, err := busConf.Open()
	if err != nil {
		return nil, err
	}

	ctl := NewController(bus, reg)
	ctl.StatusInterval = c.StatusInterval
	ctl.MoveTimeout = c.MoveTimeout
	for _, id := range ids {
		s, err := robotis.NewServoFromMap(bus, id, confs)
		if err != nil {
			bus.Close()
			return nil, err
		}
		ctl.Add(s)
	}
	ctl.ProbeAll()
	return ctl, nil
}

// MustNewController creates the controller and fails on error.
func (c *Config) MustNewController(reg l1.Registrar) *Controller {
	ctl, err := c.NewController(reg)
	if err != nil {
		log.Fatalln(err)
	}
	glog.Infof("servo bus %s: %d servos", c.Device, len(ctl.IDs()))
	return ctl
}

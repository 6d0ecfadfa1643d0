package robotis

import (
	"fmt"
	"io/ioutil"
	"math"

	"gopkg.in/yaml.v2"
)

// Config defines the parameters of one servo. It's immutable once the Servo
// is created.
type Config struct {
	// HomeEncoder is the encoder value of angle 0.
	HomeEncoder   int     `yaml:"home_encoder" json:"home_encoder"`
	RadPerEncoder float64 `yaml:"rad_per_enc" json:"rad_per_enc"`
	// MaxAngle and MinAngle limit commanded angles (radians).
	MaxAngle float64 `yaml:"max_ang" json:"max_ang"`
	MinAngle float64 `yaml:"min_ang" json:"min_ang"`
	// Flipped reverses the direction.
	Flipped bool `yaml:"flipped" json:"flipped"`
	// MaxSpeed limits angular velocity (rad/s).
	MaxSpeed float64 `yaml:"max_speed" json:"max_speed"`
}

// Radians converts degrees to radians.
func Radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Degrees converts radians to degrees.
func Degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

// DefaultConfig returns the parameters of an RX-28 mounted without offset.
func DefaultConfig() Config {
	return Config{
		HomeEncoder:   0x200,
		RadPerEncoder: Radians(300) / 1024,
		MaxAngle:      Radians(148),
		MinAngle:      Radians(-148),
		MaxSpeed:      Radians(50),
	}
}

// Validate checks the parameters are usable.
func (c Config) Validate() error {
	switch {
	case c.HomeEncoder < EncoderMin || c.HomeEncoder > EncoderMax:
		return fmt.Errorf("home_encoder %d out of range [%d, %d]", c.HomeEncoder, EncoderMin, EncoderMax)
	case c.RadPerEncoder <= 0:
		return fmt.Errorf("rad_per_enc must be positive")
	case c.MinAngle > c.MaxAngle:
		return fmt.Errorf("min_ang %.4f greater than max_ang %.4f", c.MinAngle, c.MaxAngle)
	case c.MaxSpeed <= 0:
		return fmt.Errorf("max_speed must be positive")
	}
	return nil
}

// UnmarshalYAML fills unspecified fields with defaults.
func (c *Config) UnmarshalYAML(unmarshal func(interface{}) error) error {
	type plain Config
	conf := plain(DefaultConfig())
	if err := unmarshal(&conf); err != nil {
		return err
	}
	*c = Config(conf)
	return nil
}

// AngleFromEncoder converts an encoder value to radians.
func (c Config) AngleFromEncoder(enc int) float64 {
	ang := float64(enc-c.HomeEncoder) * c.RadPerEncoder
	if c.Flipped {
		ang = -ang
	}
	return ang
}

// EncoderFromAngle converts radians to the nearest encoder value.
func (c Config) EncoderFromAngle(ang float64) int {
	if c.Flipped {
		ang = -ang
	}
	return int(math.Round(ang/c.RadPerEncoder)) + c.HomeEncoder
}

// InRange checks ang against the angle limits.
func (c Config) InRange(ang float64) bool {
	return ang >= c.MinAngle && ang <= c.MaxAngle
}

// rpmPerUnit is the speed of one unit of the moving speed register.
const rpmPerUnit = 0.111

// SpeedToRegister converts rad/s to the moving speed register value.
func SpeedToRegister(radPerSec float64) int {
	rpm := radPerSec / (2 * math.Pi) * 60
	return int(math.Round(rpm / rpmPerUnit))
}

// ConfigMap maps servo ids to their parameters.
type ConfigMap map[int]Config

type configFile struct {
	Servos ConfigMap `yaml:"servos"`
}

// Lookup returns the parameters of id, or defaults if id is not present.
func (m ConfigMap) Lookup(id int) (Config, bool) {
	if conf, ok := m[id]; ok {
		return conf, true
	}
	return DefaultConfig(), false
}

// IDs returns the configured servo ids.
func (m ConfigMap) IDs() []int {
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	return ids
}

// ParseConfig parses YAML content:
//
//   servos:
//     11:
//       home_encoder: 512
//       flipped: true
func ParseConfig(data []byte) (ConfigMap, error) {
	var f configFile
	if err := yaml.UnmarshalStrict(data, &f); err != nil {
		return nil, err
	}
	if f.Servos == nil {
		f.Servos = make(ConfigMap)
	}
	for id, conf := range f.Servos {
		if id < 0 || id > MaxID {
			return nil, fmt.Errorf("%w: %d", ErrInvalidID, id)
		}
		if err := conf.Validate(); err != nil {
			return nil, fmt.Errorf("servo %d: %v", id, err)
		}
	}
	return f.Servos, nil
}

// LoadConfigFile reads servo parameters from a YAML file.
func LoadConfigFile(fn string) (ConfigMap, error) {
	data, err := ioutil.ReadFile(fn)
	if err != nil {
		return nil, err
	}
	m, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}
	return m, nil
}

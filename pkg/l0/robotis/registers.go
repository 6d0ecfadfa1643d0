package robotis

// Register is a location in the control table of a servo.
type Register struct {
	Address byte
	Size    int
}

// Control table of RX-28/RX-64.
var (
	RegID                 = Register{Address: 0x03, Size: 1}
	RegReturnDelay        = Register{Address: 0x05, Size: 1}
	RegTorqueEnable       = Register{Address: 0x18, Size: 1}
	RegGoalPosition       = Register{Address: 0x1E, Size: 2}
	RegMovingSpeed        = Register{Address: 0x20, Size: 2}
	RegPresentPosition    = Register{Address: 0x24, Size: 2}
	RegPresentLoad        = Register{Address: 0x28, Size: 2}
	RegPresentVoltage     = Register{Address: 0x2A, Size: 1}
	RegPresentTemperature = Register{Address: 0x2B, Size: 1}
	RegMoving             = Register{Address: 0x2E, Size: 1}
)

// Encoder range.
const (
	EncoderMin = 0
	EncoderMax = 1023
)

// MaxSpeedRegister is the largest value of the moving speed register.
const MaxSpeedRegister = 1023

// returnDelayUnit is the duration of one unit of the return delay register.
const returnDelayUnit = 2 // microseconds

func encodeWord(v int) []byte {
	return []byte{byte(v % 256), byte(v / 256)}
}

func decodeWord(data []byte) int {
	return int(data[0]) + int(data[1])*256
}

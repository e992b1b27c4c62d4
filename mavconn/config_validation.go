package mavconn

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

var validBaudRates = []BaudRate{
	Baud1200, Baud2400, Baud4800, Baud9600, Baud19200, Baud38400,
	Baud57600, Baud115200, Baud230400, Baud460800, Baud921600,
}

// validateConfig checks cfg before any device access is attempted.
func validateConfig(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid transport configuration: %w", err)
	}

	if !isValidBaudRate(cfg.BaudRate) {
		return fmt.Errorf("invalid baud rate %d, must be one of: %v", cfg.BaudRate, validBaudRates)
	}

	if strings.Contains(cfg.Device, "..") {
		return fmt.Errorf("invalid device path %q: contains path traversal", cfg.Device)
	}
	if !isValidDevicePattern(cfg.Device) {
		return fmt.Errorf("device path doesn't match expected pattern: %s", cfg.Device)
	}

	return nil
}

func isValidBaudRate(rate BaudRate) bool {
	for _, v := range validBaudRates {
		if rate == v {
			return true
		}
	}
	return false
}

func isValidDevicePattern(device string) bool {
	// Windows: COM1-COM999 (must have at least one digit after COM)
	if strings.HasPrefix(device, "COM") && len(device) >= 4 && len(device) <= 6 {
		return true
	}
	// Unix/Linux: /dev/tty* or /dev/cu* (macOS)
	if strings.HasPrefix(device, "/dev/tty") || strings.HasPrefix(device, "/dev/cu") {
		return true
	}
	return false
}

package driver

import (
	"fmt"
	"os/exec"

	"github.com/rs/zerolog"
)

// CommandExecutor abstracts system command execution.
type CommandExecutor interface {
	Execute(name string, args ...string) ([]byte, error)
}

// SystemCommandExecutor implements CommandExecutor using os/exec.
type SystemCommandExecutor struct{}

func (e *SystemCommandExecutor) Execute(name string, args ...string) ([]byte, error) {
	cmd := exec.Command(name, args...)
	return cmd.CombinedOutput()
}

// WirelessDriver flips the capture NIC between managed and monitor mode.
// Only used when auto_monitor is set; otherwise the interface is assumed
// pre-configured by the host.
type WirelessDriver struct {
	log      zerolog.Logger
	executor CommandExecutor
}

// New creates a driver using system commands.
func New(log zerolog.Logger) *WirelessDriver {
	return &WirelessDriver{
		log:      log.With().Str("component", "driver").Logger(),
		executor: &SystemCommandExecutor{},
	}
}

// SetExecutor swaps the command executor, for tests.
func (d *WirelessDriver) SetExecutor(e CommandExecutor) {
	d.executor = e
}

// EnableMonitorMode puts the interface into monitor mode.
func (d *WirelessDriver) EnableMonitorMode(iface string) error {
	d.log.Info().Str("iface", iface).Msg("enabling monitor mode")

	if err := d.runCmd("ip", "link", "set", iface, "down"); err != nil {
		return err
	}
	if err := d.runCmd("iw", iface, "set", "type", "monitor"); err != nil {
		return fmt.Errorf("set monitor mode on %s (is wpa_supplicant holding it?): %w", iface, err)
	}
	if err := d.runCmd("ip", "link", "set", iface, "up"); err != nil {
		return err
	}
	return nil
}

// DisableMonitorMode puts the interface back into managed mode. Failures
// are logged, not returned; this runs during shutdown.
func (d *WirelessDriver) DisableMonitorMode(iface string) {
	d.log.Info().Str("iface", iface).Msg("restoring managed mode")
	_ = d.runCmd("ip", "link", "set", iface, "down")
	_ = d.runCmd("iw", iface, "set", "type", "managed")
	_ = d.runCmd("ip", "link", "set", iface, "up")
}

func (d *WirelessDriver) runCmd(name string, args ...string) error {
	output, err := d.executor.Execute(name, args...)
	if err != nil {
		d.log.Warn().Str("cmd", name).Strs("args", args).
			Str("output", string(output)).Err(err).Msg("command failed")
		return fmt.Errorf("%s failed: %w", name, err)
	}
	return nil
}

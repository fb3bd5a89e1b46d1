package startup

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/thatsimonsguy/padswitch/internal/config"
	"github.com/thatsimonsguy/padswitch/internal/model"
	"github.com/thatsimonsguy/padswitch/internal/pinctrl"
)

// RenderStartupScript returns a bash script that puts the gate and every
// output in the inactive state before the service starts.
func RenderStartupScript(cfg config.Config) string {
	var lines []string
	lines = append(lines, "#!/bin/bash", "", "# Pad switch GPIO configuration at boot", "")

	write := func(label string, pin model.GPIOPin) {
		lines = append(lines, fmt.Sprintf("# %s", label))
		lines = append(lines, fmt.Sprintf("pinctrl set %d op pn %s", pin.Number, pinctrl.DriveFlag(pin.Level(false))))
		lines = append(lines, "")
	}

	write("gate", cfg.GatePin())
	for i, p := range cfg.Outputs {
		write(fmt.Sprintf("output %d", i), p)
	}

	return strings.Join(lines, "\n") + "\n"
}

func WriteStartupScript(cfg config.Config) error {
	return os.WriteFile(cfg.BootScriptFilePath, []byte(RenderStartupScript(cfg)), 0755)
}

func InstallStartupService(cfg config.Config) error {
	unitContents := fmt.Sprintf(`[Unit]
Description=Configure pad switch GPIO lines at boot
After=network.target

[Service]
Type=oneshot
Environment=PATH=/usr/local/bin:/usr/bin:/bin
ExecStart=%s
RemainAfterExit=true

[Install]
WantedBy=multi-user.target
`, cfg.BootScriptFilePath)

	return os.WriteFile(cfg.OSServicePath, []byte(unitContents), 0644)
}

func InstallMainService(cfg config.Config) error {
	gpioUnitName := filepath.Base(cfg.OSServicePath)

	execCmd := cfg.ExecPath
	if cfg.ConfigFile != "" {
		execCmd += " -config-file " + cfg.ConfigFile
	}

	unit := fmt.Sprintf(`[Unit]
Description=Pad switch controller
After=%s
Requires=%s

[Service]
Type=simple
Environment=PATH=/usr/local/bin:/usr/bin:/bin
ExecStart=%s
Restart=on-failure
RestartSec=5s

[Install]
WantedBy=multi-user.target
`, gpioUnitName, gpioUnitName, execCmd)

	return os.WriteFile(cfg.MainServicePath, []byte(unit), 0644)
}

// Install writes the boot script and both systemd units.
func Install(cfg config.Config) error {
	if err := WriteStartupScript(cfg); err != nil {
		return fmt.Errorf("write boot script: %w", err)
	}
	if err := InstallStartupService(cfg); err != nil {
		return fmt.Errorf("install gpio unit: %w", err)
	}
	if err := InstallMainService(cfg); err != nil {
		return fmt.Errorf("install main unit: %w", err)
	}
	return nil
}

func RunStartupScript(cfg config.Config) error {
	cmd := exec.Command("/bin/bash", cfg.BootScriptFilePath)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

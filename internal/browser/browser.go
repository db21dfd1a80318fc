// Package browser opens URLs in the user's default browser. Opening is
// always best-effort: the caller prints the URL too, so a headless machine
// just means the user copies it by hand.
package browser

import (
	"fmt"
	"os/exec"
	"runtime"

	"github.com/skratchdot/open-golang/open"

	"github.com/postline/xpost/internal/logger"
	"go.uber.org/zap"
)

// Open opens url in the default browser, falling back to platform commands
// when the generic launcher fails.
func Open(url string) error {
	if err := open.Run(url); err != nil {
		logger.Debug("open-golang launcher failed, trying platform command", zap.Error(err))
		return openPlatform(url)
	}
	return nil
}

func openPlatform(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	case "linux":
		for _, candidate := range []string{"xdg-open", "x-www-browser", "firefox", "chromium"} {
			if _, err := exec.LookPath(candidate); err == nil {
				cmd = exec.Command(candidate, url)
				break
			}
		}
		if cmd == nil {
			return fmt.Errorf("no browser launcher found")
		}
	default:
		return fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}
	return nil
}

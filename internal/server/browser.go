package server

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// OpenBrowser launches the platform's default handler for an http(s) link.
func OpenBrowser(link string) error {
	if !strings.HasPrefix(link, "http://") && !strings.HasPrefix(link, "https://") {
		return fmt.Errorf("refusing to open non-http link %q", link)
	}

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", link)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", link)
	case "linux", "freebsd", "openbsd", "netbsd":
		cmd = exec.Command("xdg-open", link)
	default:
		return fmt.Errorf("no browser launcher for %s", runtime.GOOS)
	}
	return cmd.Start()
}

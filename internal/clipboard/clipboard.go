// Package clipboard reads and writes the system clipboard via the
// platform's native utilities (pbpaste/pbcopy on macOS, wl-paste/xclip
// on Linux). No cgo, no daemon: every call shells out.
package clipboard

import (
	"bytes"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// ReadText reads text content from the system clipboard.
func ReadText() (string, error) {
	switch runtime.GOOS {
	case "darwin":
		return readTextMacOS()
	case "linux":
		return readTextLinux()
	default:
		return "", fmt.Errorf("clipboard read not supported on %s", runtime.GOOS)
	}
}

func readTextMacOS() (string, error) {
	cmd := exec.Command("pbpaste")
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("failed to read clipboard: %w", err)
	}
	return out.String(), nil
}

func readTextLinux() (string, error) {
	// Try wl-paste first (Wayland)
	if _, err := exec.LookPath("wl-paste"); err == nil {
		cmd := exec.Command("wl-paste", "--no-newline")
		var out bytes.Buffer
		cmd.Stdout = &out
		if err := cmd.Run(); err == nil {
			return out.String(), nil
		}
	}

	// Fall back to xclip (X11)
	if _, err := exec.LookPath("xclip"); err == nil {
		cmd := exec.Command("xclip", "-selection", "clipboard", "-o")
		var out bytes.Buffer
		cmd.Stdout = &out
		if err := cmd.Run(); err == nil {
			return out.String(), nil
		}
	}

	return "", fmt.Errorf("no clipboard utility found (install wl-paste or xclip)")
}

// CopyText writes text to the system clipboard.
func CopyText(text string) error {
	switch runtime.GOOS {
	case "darwin":
		cmd := exec.Command("pbcopy")
		cmd.Stdin = strings.NewReader(text)
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("failed to write clipboard: %w", err)
		}
		return nil
	case "linux":
		return copyTextLinux(text)
	default:
		return fmt.Errorf("clipboard write not supported on %s", runtime.GOOS)
	}
}

func copyTextLinux(text string) error {
	if _, err := exec.LookPath("wl-copy"); err == nil {
		cmd := exec.Command("wl-copy")
		cmd.Stdin = strings.NewReader(text)
		if err := cmd.Run(); err == nil {
			return nil
		}
	}

	if _, err := exec.LookPath("xclip"); err == nil {
		cmd := exec.Command("xclip", "-selection", "clipboard")
		cmd.Stdin = strings.NewReader(text)
		if err := cmd.Run(); err == nil {
			return nil
		}
	}

	return fmt.Errorf("no clipboard utility found (install wl-copy or xclip)")
}

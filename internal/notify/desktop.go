package notify

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// DesktopNotifier sends desktop notifications
type DesktopNotifier struct {
	enabled bool
	run     func(name string, args ...string) error
}

// NewDesktopNotifier creates a new desktop notifier
func NewDesktopNotifier(enabled bool) *DesktopNotifier {
	return &DesktopNotifier{enabled: enabled, run: runCommand}
}

func runCommand(name string, args ...string) error {
	return exec.Command(name, args...).Run()
}

// Send sends a desktop notification
func (d *DesktopNotifier) Send(n Notification) error {
	if !d.enabled {
		return nil
	}

	switch runtime.GOOS {
	case "darwin":
		return d.sendMacOS(n)
	case "linux":
		return d.sendLinux(n)
	default:
		return nil // Unsupported
	}
}

func (d *DesktopNotifier) sendMacOS(n Notification) error {
	script := fmt.Sprintf(`display notification "%s" with title "%s" subtitle "%s"`,
		appleScriptQuote(n.Message), appleScriptQuote(n.Title), appleScriptQuote(n.CourseID))
	return d.run("osascript", "-e", script)
}

func (d *DesktopNotifier) sendLinux(n Notification) error {
	args := []string{"--app-name=seatsniper", "--icon", IconForType(n.Type)}
	// a won seat or a dead run should stay on screen until dismissed
	if n.Type == NotifySuccess || n.Type == NotifyError {
		args = append(args, "--urgency=critical")
	}
	return d.run("notify-send", append(args, n.Title, n.Message)...)
}

func appleScriptQuote(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

// IconForType returns an icon name for the notification type
func IconForType(t NotificationType) string {
	switch t {
	case NotifySuccess:
		return "dialog-positive"
	case NotifyWarning:
		return "dialog-warning"
	case NotifyError:
		return "dialog-error"
	default:
		return "dialog-information"
	}
}

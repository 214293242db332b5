package launcher

import (
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/pders01/linkboard/internal/config"
	"github.com/pders01/linkboard/internal/debuglog"
)

// ErrNoOpener means the configured or platform opener is not installed.
var ErrNoOpener = errors.New("no application found to open URL")

// Launcher hands story links to an external program.
type Launcher struct {
	command string
	args    []string

	lookPath func(string) (string, error)
	start    func(*exec.Cmd) error
}

// NewLauncher uses cfg.Open.Command when set and the platform opener
// otherwise.
func NewLauncher(cfg *config.Config) *Launcher {
	l := &Launcher{
		lookPath: exec.LookPath,
		start:    startDetached,
	}

	fields := strings.Fields(cfg.Open.Command)
	if len(fields) > 0 {
		l.command, l.args = fields[0], fields[1:]
		return l
	}

	l.command, l.args = DefaultOpener(runtime.GOOS)
	return l
}

// DefaultOpener returns the platform command that opens a URL in the
// user's browser.
func DefaultOpener(goos string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", nil
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler"}
	default:
		if cmd := findCommand("xdg-open", "sensible-browser", "x-www-browser"); cmd != "" {
			return cmd, nil
		}
		return "xdg-open", nil
	}
}

// Command is the program Open runs, without the URL.
func (l *Launcher) Command() []string {
	return append([]string{l.command}, l.args...)
}

// Open starts the opener on url without waiting for it to exit.
func (l *Launcher) Open(url string) error {
	if l.command == "" {
		return ErrNoOpener
	}

	path, err := l.lookPath(l.command)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrNoOpener, l.command)
	}

	args := append(append([]string{}, l.args...), url)
	cmd := exec.Command(path, args...)

	debuglog.WithFields(map[string]interface{}{"command": l.command, "url": url}).Debugf("opening link")
	if err := l.start(cmd); err != nil {
		return fmt.Errorf("failed to start %s: %w", l.command, err)
	}
	return nil
}

// startDetached starts GUI applications without waiting on them.
func startDetached(cmd *exec.Cmd) error {
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() {
		_ = cmd.Wait()
	}()
	return nil
}

func findCommand(commands ...string) string {
	for _, cmd := range commands {
		if _, err := exec.LookPath(cmd); err == nil {
			return cmd
		}
	}
	return ""
}

package tui

import (
	"errors"
	"io"
	"os/exec"
	"runtime"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

type clipboardDoneMsg struct{ err error }

type urlOpenDoneMsg struct{ err error }

func copyToClipboardCmd(s string) tea.Cmd {
	return func() tea.Msg { return clipboardDoneMsg{err: copyToClipboard(s)} }
}

func copyToClipboard(s string) error {
	s = strings.ReplaceAll(s, "\r\n", "\n")

	switch runtime.GOOS {
	case "darwin":
		return runClipboardCmd("pbcopy", nil, s)
	case "windows":
		if err := runClipboardCmd("cmd", []string{"/c", "clip"}, s); err == nil {
			return nil
		}
		return runClipboardCmd("powershell", []string{"-NoProfile", "-Command", "Set-Clipboard"}, s)
	default:
		// Wayland first, then X11.
		if err := runClipboardCmd("wl-copy", nil, s); err == nil {
			return nil
		}
		if err := runClipboardCmd("xclip", []string{"-selection", "clipboard"}, s); err == nil {
			return nil
		}
		return runClipboardCmd("xsel", []string{"--clipboard", "--input"}, s)
	}
}

func runClipboardCmd(name string, args []string, stdin string) error {
	if _, err := exec.LookPath(name); err != nil {
		return err
	}
	cmd := exec.Command(name, args...)
	cmd.Stdin = strings.NewReader(stdin)
	if err := cmd.Run(); err != nil {
		return errors.New(name + ": " + err.Error())
	}
	return nil
}

func openURLCmd(u string) tea.Cmd {
	u = strings.TrimSpace(u)
	if u == "" {
		return func() tea.Msg { return urlOpenDoneMsg{err: errors.New("empty url")} }
	}

	return func() tea.Msg {
		var cmd *exec.Cmd
		switch runtime.GOOS {
		case "darwin":
			cmd = exec.Command("open", u)
		case "windows":
			cmd = exec.Command("cmd", "/c", "start", "", u)
		default:
			cmd = exec.Command("xdg-open", u)
		}
		cmd.Stdout = io.Discard
		cmd.Stderr = io.Discard
		if err := cmd.Start(); err != nil {
			return urlOpenDoneMsg{err: err}
		}
		return urlOpenDoneMsg{err: cmd.Wait()}
	}
}

package theme

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/muesli/termenv"
)

// Probe reports the environment's preferred theme. ok is false when nothing
// could be determined.
type Probe func() (t Theme, ok bool)

// DetectEnvironment is the default Probe.
//
// Priority:
// 1) LEETBOT_THEME=light|dark (auto or unknown values fall through)
// 2) COLORFGBG heuristic ("fg;bg", last segment is the background)
// 3) macOS AppleInterfaceStyle
// 4) terminal background query via termenv
func DetectEnvironment() (Theme, bool) {
	if t, ok := Parse(os.Getenv("LEETBOT_THEME")); ok {
		return t, true
	}
	if t, ok := fromColorFGBG(os.Getenv("COLORFGBG")); ok {
		return t, true
	}
	if runtime.GOOS == "darwin" {
		if dark, ok := macOSHasDarkAppearance(); ok {
			return fromDark(dark), true
		}
	}
	if _, unknown := termenv.BackgroundColor().(termenv.NoColor); unknown {
		return "", false
	}
	return fromDark(termenv.HasDarkBackground()), true
}

func fromColorFGBG(v string) (Theme, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", false
	}
	parts := strings.Split(v, ";")
	bg, err := strconv.Atoi(strings.TrimSpace(parts[len(parts)-1]))
	if err != nil {
		return "", false
	}
	return fromDark(bg < 7), true
}

func fromDark(dark bool) Theme {
	if dark {
		return Dark
	}
	return Light
}

func macOSHasDarkAppearance() (dark bool, ok bool) {
	// Prints "Dark" in dark mode; exits 1 in light mode (key missing).
	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()

	out, err := exec.CommandContext(ctx, "defaults", "read", "-g", "AppleInterfaceStyle").CombinedOutput()
	if ctx.Err() != nil {
		return false, false
	}
	if err == nil {
		return strings.Contains(strings.ToLower(string(out)), "dark"), true
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) && ee.ExitCode() == 1 {
		return false, true
	}
	return false, false
}

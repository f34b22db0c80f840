package launcher

import (
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path"
	"path/filepath"
	"runtime"
	"strings"
)

// MediaKind decides which viewers are tried for a file
type MediaKind string

const (
	KindImage MediaKind = "image"
	KindVideo MediaKind = "video"
	KindOther MediaKind = "other"
)

var videoExts = map[string]bool{
	".mp4": true, ".webm": true, ".mkv": true, ".mov": true, ".avi": true, ".m4v": true,
}

var imageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true, ".avif": true, ".bmp": true,
}

// KindOf guesses the media kind from a file name or URL
func KindOf(name string) MediaKind {
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	ext := strings.ToLower(path.Ext(name))
	switch {
	case videoExts[ext]:
		return KindVideo
	case imageExts[ext]:
		return KindImage
	default:
		return KindOther
	}
}

// launchPath defines a single way to launch a viewer
type launchPath struct {
	path      string   // Command path: "mpv", "feh", or "open-a:AppName"
	openFlags []string // For "open-a:" paths only
}

// viewerConfig defines platform-specific launch paths for a viewer
type viewerConfig struct {
	kinds     []MediaKind
	platforms map[string][]launchPath
}

// viewers registry
var viewers = map[string]viewerConfig{
	"mpv": {
		kinds: []MediaKind{KindVideo, KindImage},
		platforms: map[string][]launchPath{
			"darwin":  {{path: "mpv"}},
			"linux":   {{path: "mpv"}},
			"windows": {{path: "mpv"}},
		},
	},
	"vlc": {
		kinds: []MediaKind{KindVideo},
		platforms: map[string][]launchPath{
			"darwin": {
				{path: "vlc"},
				{path: "open-a:VLC"},
			},
			"linux":   {{path: "vlc"}},
			"windows": {{path: "vlc"}},
		},
	},
	"iina": {
		kinds: []MediaKind{KindVideo},
		platforms: map[string][]launchPath{
			"darwin": {{path: "open-a:IINA", openFlags: []string{"-n"}}},
		},
	},
	"imv": {
		kinds: []MediaKind{KindImage},
		platforms: map[string][]launchPath{
			"linux": {{path: "imv"}},
		},
	},
	"feh": {
		kinds: []MediaKind{KindImage},
		platforms: map[string][]launchPath{
			"linux": {{path: "feh"}},
		},
	},
	"eog": {
		kinds: []MediaKind{KindImage},
		platforms: map[string][]launchPath{
			"linux": {{path: "eog"}},
		},
	},
	"preview": {
		kinds: []MediaKind{KindImage},
		platforms: map[string][]launchPath{
			"darwin": {{path: "open-a:Preview"}},
		},
	},
}

// candidateViewers defines the preferred viewer order for each platform
var candidateViewers = map[string][]string{
	"darwin":  {"iina", "vlc", "mpv", "preview"},
	"linux":   {"mpv", "vlc", "imv", "feh", "eog"},
	"windows": {"vlc", "mpv"},
}

// Launcher opens URLs in an external viewer or the system default handler
type Launcher struct {
	command string   // configured viewer command, empty for detection
	args    []string // additional arguments for the viewer
	goos    string
	logger  *slog.Logger

	lookPath func(string) (string, error)
	start    func(name string, args ...string) error // returns once the process started
	run      func(name string, args ...string) error // waits for the process
}

// New creates a Launcher. An empty command enables viewer detection.
func New(command string, args []string, logger *slog.Logger) *Launcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Launcher{
		command:  command,
		args:     args,
		goos:     runtime.GOOS,
		logger:   logger,
		lookPath: exec.LookPath,
		start: func(name string, args ...string) error {
			return exec.Command(name, args...).Start()
		},
		run: func(name string, args ...string) error {
			return exec.Command(name, args...).Run()
		},
	}
}

// Open shows a media URL in the configured viewer, a detected one, or the
// system default, in that order
func (l *Launcher) Open(url string) error {
	// Tier 1: User configured a specific viewer
	if l.command != "" {
		l.logger.Info("using configured viewer", "command", l.command)
		return l.launchConfigured(url)
	}

	// Tier 2: Try candidate chain for the media kind
	if _, err := l.detectAndLaunch(url, KindOf(url)); err == nil {
		return nil
	}

	// Tier 3: Fall back to system default (open/xdg-open/start)
	l.logger.Info("no candidate viewers found, using system default")
	return l.OpenDefault(url)
}

// OpenDefault opens url with the system default handler, e.g. a browser
func (l *Launcher) OpenDefault(url string) error {
	l.logger.Info("launching with system default", "os", l.goos, "url", url)

	switch l.goos {
	case "darwin":
		return l.start("open", url)
	case "windows":
		return l.start("cmd", "/c", "start", "", url)
	default:
		return l.start("xdg-open", url)
	}
}

// detectAndLaunch tries candidate viewers for kind in order. Returns the
// viewer name that succeeded.
func (l *Launcher) detectAndLaunch(url string, kind MediaKind) (string, error) {
	candidates, ok := candidateViewers[l.goos]
	if !ok {
		candidates = candidateViewers["linux"]
	}

	for _, name := range candidates {
		viewer, exists := viewers[name]
		if !exists || !viewer.handles(kind) {
			continue
		}

		launchPaths, ok := viewer.platforms[l.goos]
		if !ok {
			continue
		}

		for _, lp := range launchPaths {
			var err error
			if strings.HasPrefix(lp.path, "open-a:") {
				err = l.openWithApp(strings.TrimPrefix(lp.path, "open-a:"), url, nil, lp.openFlags)
			} else {
				err = l.launchCommand(lp.path, url, nil)
			}

			if err == nil {
				l.logger.Info("launched with detected viewer", "viewer", name, "path", lp.path)
				return name, nil
			}
			l.logger.Debug("launch path not available", "viewer", name, "path", lp.path, "error", err)
		}
	}

	return "", errors.New("no candidate viewers found")
}

func (v viewerConfig) handles(kind MediaKind) bool {
	for _, k := range v.kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// openWithApp opens url with a macOS app through "open -a"; it waits so a
// missing app is reported
func (l *Launcher) openWithApp(appName, url string, viewerArgs, openFlags []string) error {
	cmdArgs := make([]string, len(openFlags))
	copy(cmdArgs, openFlags)

	cmdArgs = append(cmdArgs, "-a", appName)
	if len(viewerArgs) > 0 {
		cmdArgs = append(cmdArgs, "--args")
		cmdArgs = append(cmdArgs, viewerArgs...)
	}
	cmdArgs = append(cmdArgs, url)
	return l.run("open", cmdArgs...)
}

// launchCommand starts command with url if it is in PATH
func (l *Launcher) launchCommand(command, url string, args []string) error {
	if _, err := l.lookPath(command); err != nil {
		return err
	}
	cmdArgs := append(append([]string{}, args...), url)
	return l.start(command, cmdArgs...)
}

// launchConfigured launches the URL with the configured viewer
func (l *Launcher) launchConfigured(url string) error {
	args := append([]string{}, l.args...)
	l.logger.Info("launching viewer", "command", l.command, "args", args, "url", url)

	// On macOS, try to launch GUI apps with 'open -a' if command not in PATH
	if l.goos == "darwin" {
		if _, err := l.lookPath(l.command); err != nil {
			var openFlags []string
			base := strings.ToLower(filepath.Base(l.command))
			base = strings.TrimSuffix(base, filepath.Ext(base))
			if cfg, ok := viewers[base]; ok {
				for _, lp := range cfg.platforms["darwin"] {
					if strings.HasPrefix(lp.path, "open-a:") {
						openFlags = lp.openFlags
						break
					}
				}
			}
			return l.openWithApp(l.command, url, args, openFlags)
		}
	}

	if err := l.start(l.command, append(args, url)...); err != nil {
		return fmt.Errorf("failed to start %s: %w", l.command, err)
	}
	return nil
}

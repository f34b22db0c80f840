package launcher

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type execCall struct {
	name string
	args []string
}

// fakeExec records started processes; only commands in installed resolve
type fakeExec struct {
	installed map[string]bool
	started   []execCall
	ran       []execCall
	runErr    error
}

func newTestLauncher(goos, command string, args []string, fx *fakeExec) *Launcher {
	l := New(command, args, slog.New(slog.NewTextHandler(io.Discard, nil)))
	l.goos = goos
	l.lookPath = func(name string) (string, error) {
		if fx.installed[name] {
			return "/usr/bin/" + name, nil
		}
		return "", errors.New("not found")
	}
	l.start = func(name string, args ...string) error {
		fx.started = append(fx.started, execCall{name, args})
		return nil
	}
	l.run = func(name string, args ...string) error {
		fx.ran = append(fx.ran, execCall{name, args})
		return fx.runErr
	}
	return l
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindVideo, KindOf("https://pb.example.com/api/files/contents/c1/clip.MP4"))
	assert.Equal(t, KindImage, KindOf("photo.webp?thumb=100x100"))
	assert.Equal(t, KindOther, KindOf("notes.txt"))
}

func TestOpen_Configured(t *testing.T) {
	fx := &fakeExec{}
	l := newTestLauncher("linux", "mpv", []string{"--loop"}, fx)

	require.NoError(t, l.Open("https://x/clip.mp4"))
	require.Len(t, fx.started, 1)
	assert.Equal(t, "mpv", fx.started[0].name)
	assert.Equal(t, []string{"--loop", "https://x/clip.mp4"}, fx.started[0].args)
}

func TestOpen_DetectsViewerForKind(t *testing.T) {
	fx := &fakeExec{installed: map[string]bool{"vlc": true, "feh": true}}
	l := newTestLauncher("linux", "", nil, fx)

	require.NoError(t, l.Open("https://x/photo.jpg"))
	require.Len(t, fx.started, 1)
	assert.Equal(t, "feh", fx.started[0].name)

	require.NoError(t, l.Open("https://x/clip.webm"))
	require.Len(t, fx.started, 2)
	assert.Equal(t, "vlc", fx.started[1].name)
}

func TestOpen_FallsBackToSystemDefault(t *testing.T) {
	fx := &fakeExec{}
	l := newTestLauncher("linux", "", nil, fx)

	require.NoError(t, l.Open("https://x/clip.mp4"))
	require.Len(t, fx.started, 1)
	assert.Equal(t, "xdg-open", fx.started[0].name)
}

func TestOpen_MacUsesOpenA(t *testing.T) {
	fx := &fakeExec{}
	l := newTestLauncher("darwin", "", nil, fx)

	require.NoError(t, l.Open("https://x/clip.mp4"))
	require.NotEmpty(t, fx.ran)
	assert.Equal(t, "open", fx.ran[0].name)
	assert.Equal(t, "-n -a IINA https://x/clip.mp4", strings.Join(fx.ran[0].args, " "))
}

func TestOpenDefault(t *testing.T) {
	cases := map[string]string{"darwin": "open", "windows": "cmd", "linux": "xdg-open"}
	for goos, want := range cases {
		fx := &fakeExec{}
		l := newTestLauncher(goos, "", nil, fx)
		require.NoError(t, l.OpenDefault("https://accounts.example.com/auth"))
		require.Len(t, fx.started, 1)
		assert.Equal(t, want, fx.started[0].name, goos)
	}
}

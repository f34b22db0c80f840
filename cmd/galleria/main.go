package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"

	"github.com/mmcdole/galleria/internal/config"
	"github.com/mmcdole/galleria/internal/domain"
	"github.com/mmcdole/galleria/internal/gallery"
	"github.com/mmcdole/galleria/internal/launcher"
	"github.com/mmcdole/galleria/internal/log"
	"github.com/mmcdole/galleria/internal/pocketbase"
	"github.com/mmcdole/galleria/internal/store"
)

// Version is set at build time via -ldflags
var Version = "dev"

// command is one subcommand of the CLI
type command struct {
	usage   string
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

var commands map[string]command

// The table is filled in init because the commands' usage text refers back to it
func init() {
	commands = map[string]command{
		"login":     {"login [-server URL] [identity]", "sign in with email or username and password", cmdLogin},
		"oauth":     {"oauth [provider]", "sign in through an OAuth2 provider, or list providers", cmdOAuth},
		"logout":    {"logout", "drop the stored session", cmdLogout},
		"whoami":    {"whoami", "show the signed-in user", cmdWhoami},
		"list":      {"list [-page N] [-parent ID] [-json] <variation>", "list one page of a view", cmdList},
		"show":      {"show <content-id>", "show one content", cmdShow},
		"like":      {"like <content-id>", "like or unlike a content", cmdLike},
		"open":      {"open <content-id>", "open a content's file in a viewer", cmdOpen},
		"filter":    {"filter show|add|remove|clear|sort|date ...", "edit the stored filters", cmdFilter},
		"search":    {"search [term]", "set or clear the title search", cmdSearch},
		"mostliked": {"mostliked [window|off]", "restrict to most liked within a window", cmdMostLiked},
		"browse":    {"browse", "open the interactive browser", cmdBrowse},
	}
}

func main() {
	var showVersion bool
	flag.BoolVar(&showVersion, "v", false, "print version")
	flag.BoolVar(&showVersion, "version", false, "print version")
	flag.Usage = usage
	flag.Parse()

	if showVersion {
		fmt.Printf("galleria %s\n", Version)
		return
	}

	if err := run(flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "Usage: galleria [command] [arguments]\n\nCommands:\n")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "  %-50s %s\n", commands[name].usage, commands[name].summary)
	}
	fmt.Fprintf(out, "  %-50s %s\n", "version", "print version")
	fmt.Fprintf(out, "\nWith no command, browse is run.\n")
}

func run(args []string) error {
	name := "browse"
	if len(args) > 0 {
		name, args = args[0], args[1:]
	}
	if name == "version" {
		fmt.Printf("galleria %s\n", Version)
		return nil
	}
	cmd, ok := commands[name]
	if !ok {
		usage()
		return fmt.Errorf("unknown command %q", name)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, closer, err := log.Setup(cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger, closer = log.NullLogger(), io.NopCloser(nil)
	}
	defer closer.Close()
	slog.SetDefault(logger)

	logger.Info("starting galleria", "version", Version, "command", name)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a := newApp(cfg, logger)
	defer a.Close()

	return cmd.run(ctx, a, args)
}

// app holds the lazily built runtime of one CLI invocation
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	out    io.Writer
	errOut io.Writer

	store    *store.LocalStore
	client   *pocketbase.Client
	launcher *launcher.Launcher
	gallery  *gallery.Gallery
}

func newApp(cfg *config.Config, logger *slog.Logger) *app {
	return &app{
		cfg:    cfg,
		logger: logger,
		out:    os.Stdout,
		errOut: os.Stderr,
	}
}

// prefs opens the local store; it is keyed by the server URL
func (a *app) prefs() (*store.LocalStore, error) {
	if a.store != nil {
		return a.store, nil
	}
	s, err := store.NewLocalStore(a.cfg.Store.Path, a.cfg.Server.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	a.store = s
	return s, nil
}

// connect builds the backend client and the gallery core. Notifications go
// to notifier, or to stderr when it is nil.
func (a *app) connect(notifier domain.Notifier) (*gallery.Gallery, error) {
	if a.gallery != nil {
		return a.gallery, nil
	}
	if !a.cfg.IsConfigured() {
		return nil, errors.New("no server configured: run 'galleria login -server URL'")
	}
	s, err := a.prefs()
	if err != nil {
		return nil, err
	}

	a.launcher = launcher.New(a.cfg.Viewer.Command, a.cfg.Viewer.Args, a.logger)

	a.client = pocketbase.NewClient(a.cfg.Server.URL, s, a.logger)
	a.client.SetAuthCollection(a.cfg.Server.AuthCollection)
	a.client.SetURLOpener(a.launcher.OpenDefault)

	if notifier == nil {
		notifier = domain.NotifierFunc(a.printNotification)
	}
	a.gallery = gallery.New(a.client, s, gallery.Config{
		PageSize:     a.cfg.Gallery.PageSize,
		FilterPrefix: a.cfg.Gallery.FilterPrefix,
	}, notifier, a.logger)
	return a.gallery, nil
}

func (a *app) printNotification(n domain.Notification) {
	line := n.Summary
	if n.Detail != "" {
		line += ": " + n.Detail
	}
	fmt.Fprintln(a.errOut, line)
}

// Close releases the store
func (a *app) Close() error {
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}

// newFlagSet returns a flag set that reports errors instead of exiting
func (a *app) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	fs.Usage = func() {
		fmt.Fprintf(a.errOut, "Usage: galleria %s\n", commands[name].usage)
		fs.PrintDefaults()
	}
	return fs
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

// joinArgs rebuilds a multi-word argument
func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

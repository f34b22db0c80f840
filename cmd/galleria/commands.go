package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/galleria/internal/config"
	"github.com/mmcdole/galleria/internal/domain"
	"github.com/mmcdole/galleria/internal/gallery"
	"github.com/mmcdole/galleria/internal/tui"
	"golang.org/x/term"
)

func cmdLogin(ctx context.Context, a *app, args []string) error {
	fs := a.newFlagSet("login")
	server := fs.String("server", "", "PocketBase base URL to save before signing in")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *server != "" {
		path, err := config.SaveServerURL(*server)
		if err != nil {
			return err
		}
		a.cfg.Server.URL = strings.TrimRight(*server, "/")
		a.printf("Saved server %s to %s\n", a.cfg.Server.URL, path)
	}

	g, err := a.connect(nil)
	if err != nil {
		return err
	}

	identity := joinArgs(fs.Args())
	if identity == "" {
		fmt.Fprint(a.out, "Email or username: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}
		identity = strings.TrimSpace(line)
	}

	// Prompt for password (hidden input)
	fmt.Fprint(a.out, "Password: ")
	passwordBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(a.out)
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	if err := g.Session().Login(ctx, identity, string(passwordBytes)); err != nil {
		if errors.Is(err, domain.ErrAuthFailed) {
			return errors.New("sign in failed: check your credentials")
		}
		return err
	}
	printSession(a, g.Session().State())
	return nil
}

func cmdOAuth(ctx context.Context, a *app, args []string) error {
	g, err := a.connect(nil)
	if err != nil {
		return err
	}

	provider := joinArgs(args)
	if provider == "" {
		providers, err := a.client.AuthProviders(ctx)
		if err != nil {
			return err
		}
		if len(providers) == 0 {
			a.printf("No OAuth2 providers are enabled on %s\n", a.cfg.Server.URL)
			return nil
		}
		for _, p := range providers {
			a.printf("%-12s %s\n", p.Name, p.DisplayName)
		}
		return nil
	}

	a.printf("Opening the %s sign-in page in your browser...\n", provider)
	if err := g.Session().LoginWithOAuth2(ctx, provider); err != nil {
		return err
	}
	printSession(a, g.Session().State())
	return nil
}

func cmdLogout(_ context.Context, a *app, _ []string) error {
	g, err := a.connect(nil)
	if err != nil {
		return err
	}
	g.Session().Logout()
	a.printf("Signed out\n")
	return nil
}

func cmdWhoami(_ context.Context, a *app, _ []string) error {
	g, err := a.connect(nil)
	if err != nil {
		return err
	}
	g.Session().Settle()
	printSession(a, g.Session().State())
	return nil
}

func printSession(a *app, state gallery.SessionState) {
	if !state.Valid || state.User == nil {
		a.printf("Not signed in\n")
		return
	}
	a.printf("Signed in as %s <%s>\n", state.User.DisplayName(), state.User.Email)
	if state.Uploader != nil {
		a.printf("Uploader profile: %s\n", state.Uploader.Name)
	}
}

func cmdList(ctx context.Context, a *app, args []string) error {
	fs := a.newFlagSet("list")
	page := fs.Int("page", 1, "page number")
	parent := fs.String("parent", "", "set or collection id for set-contents and collection-contents")
	asJSON := fs.Bool("json", false, "print records as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("expected one variation, one of %s", variationNames())
	}
	v, err := gallery.ParseVariation(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("%w (one of %s)", err, variationNames())
	}

	g, err := a.connect(nil)
	if err != nil {
		return err
	}
	// Identity-bound views need the uploader lookup to have finished
	g.Session().Settle()

	items, err := g.Items(v, *parent)
	if err != nil {
		return err
	}
	if err := items.Fetch(ctx, max(1, *page)); err != nil {
		return err
	}

	snap := items.Snapshot()
	if *asJSON {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(snap.Items)
	}
	printItems(a, snap, items.PageCount())
	return nil
}

func printItems(a *app, snap gallery.ItemsSnapshot, pages int) {
	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tTITLE\tDETAILS")
	for _, item := range snap.Items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", item.GetID(), item.GetItemType(), item.GetTitle(), item.GetDescription())
	}
	w.Flush()
	a.printf("\npage %d/%d, %d items\n", snap.Page, pages, snap.Total)
}

func variationNames() string {
	names := make([]string, 0, len(gallery.Variations()))
	for _, v := range gallery.Variations() {
		names = append(names, string(v))
	}
	return strings.Join(names, ", ")
}

// fetchContent loads one content with its relations
func fetchContent(ctx context.Context, a *app, args []string) (*gallery.Gallery, *domain.ContentItem, error) {
	if len(args) != 1 {
		return nil, nil, errors.New("expected one content id")
	}
	g, err := a.connect(nil)
	if err != nil {
		return nil, nil, err
	}
	fetcher := g.ItemFetcher()
	if err := fetcher.Fetch(ctx, args[0]); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, fmt.Errorf("no content with id %q", args[0])
		}
		return nil, nil, err
	}
	return g, fetcher.Item(), nil
}

func cmdShow(ctx context.Context, a *app, args []string) error {
	g, item, err := fetchContent(ctx, a, args)
	if err != nil {
		return err
	}
	g.Session().Settle()

	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Title:\t%s\n", item.Title)
	fmt.Fprintf(w, "Created:\t%s\n", item.Created.Local().Format(time.DateTime))
	if names := relationNames(item); names != "" {
		fmt.Fprintf(w, "Featuring:\t%s\n", names)
	}
	for _, up := range item.Expand.Uploader {
		fmt.Fprintf(w, "Uploader:\t%s\n", up.Name)
	}
	for _, set := range item.Expand.Set {
		fmt.Fprintf(w, "Set:\t%s (%s)\n", set.Title, set.ID)
	}
	liked := ""
	if user := g.Session().User(); user != nil && item.LikedBy(user.ID) {
		liked = " (liked by you)"
	}
	fmt.Fprintf(w, "Likes:\t%d%s\n", len(item.Likes), liked)
	if url := a.client.FileURL(contentCollection(item), item.ID, item.File); url != "" {
		fmt.Fprintf(w, "File:\t%s\n", url)
	}
	w.Flush()

	if desc := gallery.PlainDescription(item); desc != "" {
		a.printf("\n%s\n", desc)
	}
	return nil
}

func relationNames(item *domain.ContentItem) string {
	var names []string
	for _, idol := range item.Expand.Idol {
		names = append(names, idol.Name)
	}
	for _, group := range item.Expand.Group {
		names = append(names, group.Name)
	}
	for _, tag := range item.Expand.Tag {
		names = append(names, "#"+tag.Name)
	}
	return strings.Join(names, ", ")
}

func contentCollection(item *domain.ContentItem) string {
	if item.CollectionName != "" {
		return item.CollectionName
	}
	return domain.CollectionContents
}

func cmdLike(ctx context.Context, a *app, args []string) error {
	g, item, err := fetchContent(ctx, a, args)
	if err != nil {
		return err
	}
	g.Session().Settle()

	liker := g.Liker(item)
	change, err := liker.Toggle(ctx)
	if err != nil {
		return err
	}
	liker.Apply(change)
	if change.Liked {
		a.printf("Liked %q\n", item.Title)
	} else {
		a.printf("Unliked %q\n", item.Title)
	}
	return nil
}

func cmdOpen(ctx context.Context, a *app, args []string) error {
	_, item, err := fetchContent(ctx, a, args)
	if err != nil {
		return err
	}
	url := a.client.FileURL(contentCollection(item), item.ID, item.File)
	if url == "" {
		return fmt.Errorf("%q has no file", item.Title)
	}
	if err := a.launcher.Open(url); err != nil {
		return err
	}
	a.printf("Opened %q\n", item.Title)
	return nil
}

func cmdBrowse(_ context.Context, a *app, _ []string) error {
	notes := make(chan domain.Notification, 16)
	g, err := a.connect(tui.NewChannelNotifier(notes))
	if err != nil {
		return err
	}

	model := tui.NewModel(g, a.launcher, a.client, notes, a.logger)

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	a.logger.Info("starting TUI")

	if _, err := p.Run(); err != nil {
		a.logger.Error("TUI error", "error", err)
		return fmt.Errorf("TUI error: %w", err)
	}

	a.logger.Info("shutting down")
	return nil
}

package tui

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/gwakdaeyun7-hub/ailon/internal/browser"
	"github.com/gwakdaeyun7-hub/ailon/internal/cache"
	"github.com/gwakdaeyun7-hub/ailon/internal/config"
	"github.com/gwakdaeyun7-hub/ailon/internal/content"
	"github.com/gwakdaeyun7-hub/ailon/internal/digest"
	"github.com/gwakdaeyun7-hub/ailon/internal/disclosure"
	"github.com/gwakdaeyun7-hub/ailon/internal/feed"
	"github.com/gwakdaeyun7-hub/ailon/internal/ordering"
	"github.com/gwakdaeyun7-hub/ailon/internal/personalize"
)

// loadLimit caps how many stored items feed one digest.
const loadLimit = 2000

// Store is the persistence the TUI needs. *cache.ReadThrough satisfies it.
type Store interface {
	GetItems(opts cache.QueryOpts) ([]content.Item, error)
	LikedItems() ([]content.Item, error)
	Like(link string) error
	Unlike(link string) error
	UpsertItems(items []content.Item) error
	SetLastRefresh() error
	Prune(retention time.Duration) (int64, error)
}

type focusPane int

const (
	focusList focusPane = iota
	focusPreview
)

type mode int

const (
	modeNormal mode = iota
	modeSearch
	modeHelp
)

type App struct {
	cfg       *config.Config
	store     Store
	logger    *log.Logger
	now       func() time.Time
	fetchOpts feed.Options
	since     time.Time
	startTab  string

	digest  *digest.Digest
	clock   ordering.DayClock
	history []content.Item
	liked   personalize.LinkSet
	tabs    []tab
	src     tabSource
	active  int
	ctrl    *disclosure.Controller
	items   []content.Item // visible window after the search filter

	cursor int
	focus  focusPane
	mode   mode

	width  int
	height int

	searchInput textinput.Model
	spinner     spinner.Model

	refreshing    bool
	previewScroll int
	err           error
}

// RunOpts holds all parameters for launching the TUI.
type RunOpts struct {
	Cfg       *config.Config
	Store     Store
	Logger    *log.Logger
	FetchOpts feed.Options
	// Since limits the digest to items published after it. Zero uses the
	// configured max age.
	Since time.Time
	// StartTab is a category key to open on, empty for highlights.
	StartTab string
	Now      func() time.Time
}

func NewApp(opts RunOpts) *App {
	ti := textinput.New()
	ti.Placeholder = "Search items..."
	ti.Prompt = searchPromptStyle.Render("/ ")
	ti.CharLimit = 100

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = spinnerStyle

	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &App{
		cfg:         opts.Cfg,
		store:       opts.Store,
		logger:      logger,
		now:         now,
		fetchOpts:   opts.FetchOpts,
		since:       opts.Since,
		startTab:    opts.StartTab,
		liked:       personalize.NewLinkSet(),
		searchInput: ti,
		spinner:     sp,
	}
}

func (a *App) Init() tea.Cmd {
	return a.loadCmd()
}

// loadCmd rebuilds the digest from the store. Query state is captured into
// the closure to avoid races. The query window is pinned on the first load so
// reloads repeat the same query.
func (a *App) loadCmd() tea.Cmd {
	cfg, store := a.cfg, a.store
	now := a.now()
	if a.since.IsZero() {
		a.since = now.Add(-cfg.MaxAge())
	}
	since := a.since
	return func() tea.Msg {
		items, err := store.GetItems(cache.QueryOpts{Since: since, Limit: loadLimit})
		if err != nil {
			return feedErrMsg{err: err}
		}
		opts, err := cfg.DigestOptions(now)
		if err != nil {
			return feedErrMsg{err: err}
		}
		d, err := digest.Build(items, opts)
		if err != nil {
			return feedErrMsg{err: err}
		}
		liked, err := store.LikedItems()
		if err != nil {
			return feedErrMsg{err: err}
		}
		return digestLoadedMsg{digest: d, liked: liked, warnings: d.Validate()}
	}
}

func (a *App) doRefresh() tea.Cmd {
	cfg, store, opts, logger := a.cfg, a.store, a.fetchOpts, a.logger
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		result := feed.FetchAll(ctx, cfg.EnabledSources(), opts)
		if err := store.UpsertItems(result.Items); err != nil {
			return refreshDoneMsg{errs: append(result.Errors, err)}
		}
		if err := store.SetLastRefresh(); err != nil {
			logger.Warn("recording refresh", "err", err)
		}
		if n, err := store.Prune(cfg.RetentionDuration()); err != nil {
			logger.Warn("pruning", "err", err)
		} else if n > 0 {
			logger.Info("pruned items", "count", n)
		}
		return refreshDoneMsg{count: len(result.Items), errs: result.Errors}
	}
}

func (a *App) toggleLikeCmd(it content.Item) tea.Cmd {
	store := a.store
	liked := a.liked.Has(it.Link)
	return func() tea.Msg {
		var err error
		if liked {
			err = store.Unlike(it.Link)
		} else {
			err = store.Like(it.Link)
		}
		if err != nil {
			return feedErrMsg{err: err}
		}
		return likeToggledMsg{link: it.Link, liked: !liked}
	}
}

func openBrowserCmd(url string) tea.Cmd {
	return func() tea.Msg {
		err := browser.Open(url)
		if err != nil {
			return feedErrMsg{err: err}
		}
		return nil
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case tea.KeyMsg:
		// Clear sticky error on any keypress
		a.err = nil
		return a.handleKey(msg)

	case digestLoadedMsg:
		a.applyDigest(msg)
		return a, nil

	case feedErrMsg:
		a.logger.Error("tui", "err", msg.err)
		a.err = msg.err
		return a, nil

	case likeToggledMsg:
		a.logger.Debug("like toggled", "link", msg.link, "liked", msg.liked)
		// Reload so For You reflects the new history.
		return a, a.loadCmd()

	case refreshDoneMsg:
		a.refreshing = false
		for _, e := range msg.errs {
			a.logger.Warn("refresh", "err", e)
		}
		a.logger.Info("refresh done", "items", msg.count, "errors", len(msg.errs))
		return a, a.loadCmd()

	case spinner.TickMsg:
		if a.refreshing {
			var cmd tea.Cmd
			a.spinner, cmd = a.spinner.Update(msg)
			return a, cmd
		}
		return a, nil
	}

	return a, nil
}

func (a *App) applyDigest(msg digestLoadedMsg) {
	for _, w := range msg.warnings {
		a.logger.Warn("digest", "warning", w)
	}
	d := msg.digest
	a.digest = d
	a.clock, _ = a.cfg.Clock(d.Now)
	a.history = msg.liked
	a.liked = personalize.NewLinkSet(content.Links(msg.liked)...)
	a.tabs = buildTabs(d, a.cfg.Label, a.cfg.SourceName)

	a.src = newTabSource(d, d.ForYouWithHistory(a.cfg.Scorer(), a.history))
	if a.ctrl == nil {
		a.ctrl = disclosure.New(a.src, a.cfg.DisclosureSize())
		start := a.tabIndex(categoryPrefix + a.startTab)
		if a.startTab == "" || start < 0 {
			start = 0
		}
		a.selectTab(start)
		return
	}

	// Keep the reader's tab and depth across reloads when the tab survives.
	if err := a.ctrl.Rebind(a.src); err != nil {
		a.selectTab(0)
		return
	}
	a.active = max(a.tabIndex(a.ctrl.Key()), 0)
	a.refreshItems()
}

func (a *App) tabIndex(id string) int {
	return slices.IndexFunc(a.tabs, func(t tab) bool { return t.id == id })
}

func (a *App) selectTab(i int) {
	if i < 0 || i >= len(a.tabs) {
		return
	}
	if err := a.ctrl.Select(a.tabs[i].id); err != nil {
		a.err = err
		return
	}
	a.active = i
	a.cursor = 0
	a.previewScroll = 0
	a.refreshItems()
}

// refreshItems recomputes the visible list from the controller and the
// search term.
func (a *App) refreshItems() {
	if a.ctrl == nil {
		a.items = nil
		return
	}
	visible := a.ctrl.Visible()
	if q := strings.ToLower(strings.TrimSpace(a.searchInput.Value())); q != "" {
		visible = slices.DeleteFunc(visible, func(it content.Item) bool {
			return !strings.Contains(strings.ToLower(it.Title), q) &&
				!strings.Contains(strings.ToLower(it.Description), q)
		})
	}
	a.items = visible
	if a.cursor >= len(a.items) {
		a.cursor = max(0, len(a.items)-1)
	}
}

func (a *App) selected() *content.Item {
	if a.cursor < len(a.items) {
		return &a.items[a.cursor]
	}
	return nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Global keys
	switch msg.String() {
	case "ctrl+c":
		return a, tea.Quit
	}

	// Mode-specific handling
	switch a.mode {
	case modeSearch:
		return a.handleSearchKey(msg)
	case modeHelp:
		if msg.String() == "?" || msg.String() == "esc" || msg.String() == "q" {
			a.mode = modeNormal
		}
		return a, nil
	}

	// Normal mode
	switch msg.String() {
	case "q":
		return a, tea.Quit
	case "j", "down":
		if a.focus == focusList && a.cursor < len(a.items)-1 {
			a.cursor++
			a.previewScroll = 0
		} else if a.focus == focusPreview {
			a.previewScroll++
		}
		return a, nil
	case "k", "up":
		if a.focus == focusList && a.cursor > 0 {
			a.cursor--
			a.previewScroll = 0
		} else if a.focus == focusPreview && a.previewScroll > 0 {
			a.previewScroll--
		}
		return a, nil
	case "tab":
		if a.focus == focusList {
			a.focus = focusPreview
		} else {
			a.focus = focusList
		}
		return a, nil
	case "right", "]":
		if len(a.tabs) > 0 {
			a.selectTab((a.active + 1) % len(a.tabs))
		}
		return a, nil
	case "left", "[":
		if len(a.tabs) > 0 {
			a.selectTab((a.active - 1 + len(a.tabs)) % len(a.tabs))
		}
		return a, nil
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		a.selectTab(int(msg.String()[0] - '1'))
		return a, nil
	case "m":
		if a.ctrl != nil && a.ctrl.CanExpand() {
			a.ctrl.Expand()
			a.refreshItems()
		}
		return a, nil
	case "c":
		if a.ctrl != nil {
			_ = a.ctrl.SetLevel(disclosure.Collapsed)
			a.cursor = 0
			a.refreshItems()
		}
		return a, nil
	case "l":
		if it := a.selected(); it != nil {
			return a, a.toggleLikeCmd(*it)
		}
		return a, nil
	case "o", "enter":
		if it := a.selected(); it != nil {
			return a, openBrowserCmd(it.Link)
		}
		return a, nil
	case "/":
		a.mode = modeSearch
		a.searchInput.Focus()
		return a, textinput.Blink
	case "r":
		if !a.refreshing {
			a.refreshing = true
			return a, tea.Batch(a.doRefresh(), a.spinner.Tick)
		}
		return a, nil
	case "?":
		a.mode = modeHelp
		return a, nil
	}

	return a, nil
}

func (a *App) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.mode = modeNormal
		a.searchInput.SetValue("")
		a.searchInput.Blur()
		a.refreshItems()
		return a, nil
	case "enter":
		a.mode = modeNormal
		a.searchInput.Blur()
		return a, nil
	}

	var cmd tea.Cmd
	a.searchInput, cmd = a.searchInput.Update(msg)
	a.refreshItems()
	return a, cmd
}

func (a *App) View() string {
	if a.width == 0 {
		return lipgloss.NewStyle().Foreground(colorAccent).Render("  ailon")
	}

	if a.mode == modeHelp {
		return a.renderHelp()
	}

	if a.digest == nil {
		msg := "Loading..."
		if a.err != nil {
			msg = a.err.Error()
		}
		return lipglossCenter(msg, a.width, a.height)
	}

	header := renderHeader(a.digest.Header, a.width)
	bar := renderTabs(a.tabs, a.active, a.width)
	if a.mode == modeSearch {
		bar = a.searchInput.View()
	}

	statusHeight := 1
	contentHeight := max(a.height-lipgloss.Height(header)-1-statusHeight-2, 3) // borders

	listWidth := int(float64(a.width) * 0.38)
	previewWidth := a.width - listWidth - 1 // gap

	// List pane
	remaining := 0
	if a.ctrl != nil {
		remaining = a.ctrl.Remaining()
	}
	listContent := renderList(a.items, a.liked, a.cursor, remaining, contentHeight, listWidth-4, a.now())
	paneStyle := listPaneStyle
	if a.focus == focusList {
		paneStyle = listPaneActiveStyle
	}
	listPane := paneStyle.Width(listWidth - 2).Height(contentHeight).Render(listContent)

	// Preview pane
	info := previewInfo{}
	if it := a.selected(); it != nil {
		info = previewInfo{
			item:          it,
			categoryLabel: a.cfg.Label(it.Category),
			published:     a.publishedLabel(it.Published),
			liked:         a.liked.Has(it.Link),
		}
	}
	previewContent := renderPreview(info, previewWidth-4, contentHeight, a.previewScroll)
	paneStyle = previewPaneStyle
	if a.focus == focusPreview {
		paneStyle = previewPaneActiveStyle
	}
	previewPane := paneStyle.Width(previewWidth - 2).Height(contentHeight).Render(previewContent)

	panes := lipgloss.JoinHorizontal(lipgloss.Top, listPane, previewPane)

	status := renderStatusBar(a.status(), a.width)
	if a.refreshing {
		status = a.spinner.View() + " " + status
	}
	if a.err != nil {
		status = errorStyle.Render(a.err.Error())
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, bar, panes, status)
}

func (a *App) status() statusInfo {
	s := statusInfo{
		shown:     len(a.items),
		liked:     len(a.liked),
		search:    a.searchInput.Value(),
		searching: a.mode == modeSearch,
	}
	if a.ctrl != nil && a.ctrl.Key() != "" {
		s.level = a.ctrl.Level()
		s.remaining = a.ctrl.Remaining()
		items, _ := a.src.Bucket(a.ctrl.Key())
		s.total = len(items) + len(a.src.OverflowFor(a.ctrl.Key()))
	}
	return s
}

func (a *App) publishedLabel(t time.Time) string {
	if t.IsZero() {
		return "undated"
	}
	return a.clock.Local(t).Format("Jan 2, 2006 15:04")
}

func (a *App) renderHelp() string {
	title := lipgloss.NewStyle().Foreground(colorAccent).Bold(true).Render("ailon")
	dim := helpDimStyle

	help := title + dim.Render(" · Keyboard Shortcuts") + "\n\n" +
		dim.Render("Navigation") + "\n" +
		"  j/k, ↑/↓      Move through the list\n" +
		"  ←/→, [/]      Previous / next tab\n" +
		"  1-9           Jump to tab\n" +
		"  tab           Switch focus between list and preview\n\n" +
		dim.Render("Disclosure") + "\n" +
		"  m             Show more of this tab\n" +
		"  c             Collapse back to the top picks\n\n" +
		dim.Render("Actions") + "\n" +
		"  o, enter      Open item in browser\n" +
		"  l             Like / unlike (feeds For You)\n" +
		"  r             Refresh feeds\n" +
		"  /             Search within the tab\n\n" +
		dim.Render("General") + "\n" +
		"  ?             Toggle this help\n" +
		"  q, ctrl+c     Quit"

	card := helpCardStyle.Render(help)

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, card)
}

// Run starts the TUI application.
func Run(opts RunOpts) error {
	app := NewApp(opts)
	p := tea.NewProgram(app, tea.WithAltScreen())
	_, err := p.Run()
	if err != nil {
		return fmt.Errorf("running tui: %w", err)
	}
	return nil
}

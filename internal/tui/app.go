package tui

import (
	"context"
	"fmt"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/lotas/tabgrid/internal/applog"
	"github.com/lotas/tabgrid/internal/cards"
	"github.com/lotas/tabgrid/internal/firefox"
	"github.com/lotas/tabgrid/internal/groups"
	"github.com/lotas/tabgrid/internal/reconcile"
	"github.com/lotas/tabgrid/internal/server"
	"github.com/lotas/tabgrid/internal/tabs"
	"github.com/lotas/tabgrid/internal/thumbnail"
	"github.com/lotas/tabgrid/internal/types"
)

// --- Messages ---

type sessionLoadedMsg struct {
	session *types.Session
	profile types.Profile
	err     error
}

type wsMsg struct{ msg server.IncomingMsg }
type wsDisconnectedMsg struct{}

// deliverMsg carries a fetch completion back to the goroutine owning the
// card list.
type deliverMsg struct{ fn func() }

// SourceMode distinguishes live vs offline.
type SourceMode int

const (
	ModeOffline SourceMode = iota
	ModeLive
)

// LiveProfile names the group key set used in live mode.
const LiveProfile = "live"

// tipType is the message card shown above the cards in offline mode.
const tipType = "tip"

// --- Command helpers ---

var cmdCounter atomic.Int64

func nextCmdID() string {
	return fmt.Sprintf("cmd-%d", cmdCounter.Add(1))
}

func sendCmd(srv *server.Server, msg server.OutgoingMsg) tea.Cmd {
	return func() tea.Msg {
		msg.ID = nextCmdID()
		if err := srv.Send(msg); err != nil {
			applog.Error("tui.send", err, "action", msg.Action)
		}
		return nil
	}
}

// Config holds what the viewer is built from.
type Config struct {
	Profiles  []types.Profile
	Profile   *types.Profile // offline source chosen up front
	Live      bool
	Server    *server.Server
	Store     groups.Store
	UseStore  func(profile string) // switches Store to a profile's keys; may be nil
	Fetcher   thumbnail.Fetcher // nil disables image fetching
	StableIDs bool
	Aggregate bool
}

// --- Model ---

type Model struct {
	cfg Config

	// Owned state; only touched from Update.
	list       *tabs.List
	engine     *reconcile.Engine
	images     *thumbnail.Coordinator
	bridge     *server.Bridge
	deliveries chan func()
	done       chan struct{}
	closing    []int // tabs closed pending undo

	// UI state
	mode       SourceMode
	profile    types.Profile
	picker     SourcePicker
	showPicker bool
	loading    bool
	connected  bool
	err        error
	status     string
	cursor     int
	offset     int
	width      int
	height     int
}

func NewModel(cfg Config) Model {
	m := Model{
		cfg:        cfg,
		list:       tabs.NewList(cfg.StableIDs),
		deliveries: make(chan func()),
		done:       make(chan struct{}),
	}
	deliveries, done := m.deliveries, m.done
	deliver := func(fn func()) {
		select {
		case deliveries <- fn:
		case <-done:
		}
	}

	model := cards.New(cfg.Aggregate)
	m.images = thumbnail.NewCoordinator(model, cfg.Fetcher, deliver)
	resolver := groups.NewResolver(cfg.Store, groups.Options{StableIDs: cfg.StableIDs})
	m.engine = reconcile.New(model, resolver, m.images, reconcile.Options{AggregateRelatedTabs: cfg.Aggregate})
	m.engine.Attach(m.list)
	m.bridge = server.NewBridge(m.list, m.engine)

	switch {
	case cfg.Live:
		m.mode = ModeLive
		m.loading = true
	case cfg.Profile != nil:
		m.mode = ModeOffline
		m.profile = *cfg.Profile
		m.loading = true
	case len(cfg.Profiles) == 1:
		m.mode = ModeOffline
		m.profile = cfg.Profiles[0]
		m.loading = true
	default:
		m.showPicker = true
		m.picker = NewSourcePicker(cfg.Profiles, cfg.Server != nil)
	}
	return m
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{waitDelivery(m.deliveries)}
	switch {
	case m.mode == ModeLive:
		cmds = append(cmds, m.startLiveMode())
	case m.loading:
		cmds = append(cmds, loadSession(m.profile))
	}
	return tea.Batch(cmds...)
}

func (m Model) useStore(profile string) {
	if m.cfg.UseStore != nil {
		m.cfg.UseStore(profile)
	}
}

func (m Model) startLiveMode() tea.Cmd {
	m.useStore(LiveProfile)
	return tea.Batch(
		listenWebSocket(m.cfg.Server),
		startWSServer(m.cfg.Server),
	)
}

func startWSServer(srv *server.Server) tea.Cmd {
	return func() tea.Msg {
		if err := srv.ListenAndServe(context.Background()); err != nil {
			applog.Error("server.stop", err)
		}
		return wsDisconnectedMsg{}
	}
}

func listenWebSocket(srv *server.Server) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-srv.Messages()
		if !ok {
			return wsDisconnectedMsg{}
		}
		return wsMsg{msg: msg}
	}
}

func waitDelivery(ch <-chan func()) tea.Cmd {
	return func() tea.Msg {
		return deliverMsg{fn: <-ch}
	}
}

func loadSession(profile types.Profile) tea.Cmd {
	return func() tea.Msg {
		s, err := firefox.ReadSessionFile(profile.Path)
		if err != nil {
			return sessionLoadedMsg{err: err}
		}
		s.Profile = profile
		return sessionLoadedMsg{session: s, profile: profile}
	}
}

// Cards returns the card list shown by the viewer.
func (m Model) Cards() *cards.Model {
	return m.engine.Model()
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	close(m.done)
	m.images.Close()
	m.commitClosing()
	return m, tea.Quit
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.picker.Width = m.width
		m.picker.Height = m.height
		m.clampCursor()
		return m, nil

	case tea.KeyMsg:
		if m.showPicker {
			return m.updatePicker(msg)
		}
		return m.updateCards(msg)

	case sessionLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.profile = msg.profile
		m.closing = nil
		m.useStore(m.profile.Name)
		firefox.SeedGroupKeys(msg.session, m.cfg.Store)
		m.list.Load(msg.session.Tabs, msg.session.ActiveID)
		m.engine.Reset(false)
		m.Cards().RemoveSpecialItem(tipType, nil)
		m.Cards().InsertSpecialItem(0, tipType, 0, "m merge · o ungroup · n group · c color · x close · u undo · esc hide")
		m.clampCursor()
		return m, nil

	case wsMsg:
		m.connected = true
		if msg.msg.Type == server.MsgSnapshot {
			m.loading = false
		}
		if err := m.bridge.Apply(msg.msg); err != nil {
			applog.Error("tui.apply", err, "type", msg.msg.Type)
		}
		m.clampCursor()
		return m, listenWebSocket(m.cfg.Server)

	case wsDisconnectedMsg:
		m.connected = false
		return m, nil

	case deliverMsg:
		if msg.fn != nil {
			msg.fn()
		}
		return m, waitDelivery(m.deliveries)
	}

	return m, nil
}

func (m Model) updatePicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		m.picker.MoveUp()
	case "down", "j":
		m.picker.MoveDown()
	case "enter":
		return m.chooseSource(m.picker.Selected())
	case "esc":
		if m.picker.Current >= 0 {
			m.showPicker = false
		}
	case "q", "ctrl+c":
		return m.quit()
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		if m.picker.SelectByNumber(int(msg.String()[0] - '0')) {
			return m.chooseSource(m.picker.Selected())
		}
	}
	return m, nil
}

func (m Model) chooseSource(src Source) (tea.Model, tea.Cmd) {
	if !src.IsLive && src.Profile == nil {
		return m, nil
	}
	m.showPicker = false
	m.loading = true
	m.picker.Current = m.picker.Cursor
	if src.IsLive {
		m.mode = ModeLive
		return m, m.startLiveMode()
	}
	m.mode = ModeOffline
	m.profile = *src.Profile
	return m, loadSession(m.profile)
}

func (m Model) updateCards(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.status = ""
	switch msg.String() {
	case "q", "ctrl+c":
		return m.quit()
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < m.Cards().Size()-1 {
			m.cursor++
		}
	case "esc":
		m.Cards().RemoveSpecialItem(tipType, nil)
	case "p":
		if m.mode == ModeOffline {
			m.commitClosing()
			m.picker = NewSourcePicker(m.cfg.Profiles, false)
			m.picker.Width, m.picker.Height = m.width, m.height
			for i, src := range m.picker.Sources {
				if src.Profile != nil && src.Profile.Name == m.profile.Name {
					m.picker.Cursor, m.picker.Current = i, i
				}
			}
			m.showPicker = true
		}
	case "r":
		if m.mode == ModeOffline {
			m.commitClosing()
			m.loading = true
			return m, loadSession(m.profile)
		}
	case "enter":
		return m, m.activate()
	case "x":
		return m, m.closeCard()
	case "u":
		m.undoClose()
	case "m":
		return m, m.mergeDown()
	case "M":
		if m.mode == ModeOffline {
			m.report(m.list.UndoMerge())
		}
	case "o":
		return m, m.ungroup()
	case "n":
		if tc := m.current(); tc != nil && m.mode == ModeOffline {
			m.report(m.list.CreateGroup(tc.TabID))
		}
	case "c":
		return m, m.cycleColor()
	case "J", "K":
		m.moveGroup(msg.String() == "J")
	}
	m.clampCursor()
	return m, nil
}

// --- card actions ---

func (m *Model) current() *cards.TabCard {
	return m.Cards().TabCardAt(m.cursor)
}

func (m *Model) members(tc *cards.TabCard) []*types.Tab {
	if m.cfg.Aggregate {
		return m.list.RelatedTabList(tc.RootID)
	}
	if t := m.list.TabByID(tc.TabID); t != nil {
		return []*types.Tab{t}
	}
	return nil
}

func memberIDs(ts []*types.Tab) []int {
	ids := make([]int, len(ts))
	for i, t := range ts {
		ids[i] = t.ID
	}
	return ids
}

func (m *Model) report(err error) {
	if err != nil {
		m.status = err.Error()
		applog.Warn("tui.action", "err", err)
	}
}

func (m *Model) live() bool {
	return m.mode == ModeLive && m.connected
}

func (m *Model) activate() tea.Cmd {
	tc := m.current()
	if tc == nil {
		return nil
	}
	if m.live() {
		return sendCmd(m.cfg.Server, server.OutgoingMsg{Action: "focus", TabID: tc.TabID})
	}
	m.report(m.list.Select(tc.TabID))
	return nil
}

// closeCard closes every tab behind the current card. Offline, the tabs
// stay pending until the next close so that u can bring them back.
func (m *Model) closeCard() tea.Cmd {
	tc := m.current()
	if tc == nil {
		return nil
	}
	ids := memberIDs(m.members(tc))
	if m.live() {
		return sendCmd(m.cfg.Server, server.OutgoingMsg{Action: "close", TabIDs: ids})
	}
	m.commitClosing()
	for _, id := range ids {
		if err := m.list.Close(id); err != nil {
			m.report(err)
			continue
		}
		m.closing = append(m.closing, id)
	}
	return nil
}

func (m *Model) commitClosing() {
	for _, id := range m.closing {
		m.report(m.list.CommitClosure(id))
	}
	m.closing = nil
}

func (m *Model) undoClose() {
	for i := len(m.closing) - 1; i >= 0; i-- {
		m.report(m.list.UndoClosure(m.closing[i]))
	}
	m.closing = nil
}

// mergeDown merges the current card's group into the next card's group.
func (m *Model) mergeDown() tea.Cmd {
	tc := m.current()
	if tc == nil {
		return nil
	}
	next := m.Cards().TabCardAt(m.Cards().TabIndexAfter(m.cursor))
	if next == nil {
		return nil
	}
	if m.live() {
		cmd := server.OutgoingMsg{Action: "group", TabIDs: memberIDs(m.members(tc))}
		if t := m.list.TabByID(next.TabID); t != nil {
			if id, ok := server.BrowserGroupID(t.GroupID); ok {
				cmd.GroupID = id
			} else {
				cmd.TabIDs = append(cmd.TabIDs, memberIDs(m.members(next))...)
			}
		}
		return sendCmd(m.cfg.Server, cmd)
	}
	m.report(m.list.Merge(tc.RootID, next.RootID))
	return nil
}

func (m *Model) ungroup() tea.Cmd {
	tc := m.current()
	if tc == nil {
		return nil
	}
	if m.live() {
		return sendCmd(m.cfg.Server, server.OutgoingMsg{Action: "ungroup", TabIDs: []int{tc.TabID}})
	}
	m.report(m.list.MoveOutOfGroup(tc.TabID))
	return nil
}

func (m *Model) cycleColor() tea.Cmd {
	tc := m.current()
	if tc == nil {
		return nil
	}
	color := nextColor(tc.ColorID)
	if m.live() {
		t := m.list.TabByID(tc.TabID)
		if t == nil {
			return nil
		}
		id, ok := server.BrowserGroupID(t.GroupID)
		if !ok {
			m.status = "not a browser group"
			return nil
		}
		return sendCmd(m.cfg.Server, server.OutgoingMsg{Action: "group.update", GroupID: id, Color: types.ColorName(color)})
	}
	m.engine.SetGroupColor(tc.RootID, color)
	return nil
}

func (m *Model) moveGroup(down bool) {
	tc := m.current()
	if tc == nil || m.live() {
		return
	}
	idx := m.list.GroupIndexOf(tc.TabID)
	if idx < 0 {
		return
	}
	if down {
		idx++
	} else {
		idx--
	}
	if idx < 0 || idx >= m.list.GroupCount() {
		return
	}
	m.report(m.list.MoveGroup(tc.RootID, idx))
	if i := m.Cards().IndexOfRoot(tc.RootID); i != cards.NotFound {
		m.cursor = i
	}
}

func (m *Model) listHeight() int {
	h := m.height - 4 // top bar + bottom bar + borders
	if h < 1 {
		h = 1
	}
	return h
}

func (m *Model) clampCursor() {
	n := m.Cards().Size()
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	h := m.listHeight()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+h {
		m.offset = m.cursor - h + 1
	}
}

func (m Model) View() string {
	if m.showPicker {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.picker.View())
	}
	if m.loading {
		if m.mode == ModeLive {
			return fmt.Sprintf("\n  Waiting for extension connection on :%d...\n", m.cfg.Server.Port())
		}
		return "\n  Loading session data...\n"
	}
	if m.err != nil {
		return fmt.Sprintf("\n  Error: %v\n\n  Press 'q' to quit.\n", m.err)
	}

	topBarStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	var source string
	if m.mode == ModeLive {
		if m.connected {
			source = "Live ● connected"
		} else {
			source = "Live ○ waiting..."
		}
	} else {
		source = fmt.Sprintf("Profile: %s (offline)", m.profile.Name)
	}
	stats := fmt.Sprintf("%d tabs · %d groups · %d cards", m.list.Count(), m.list.GroupCount(), len(m.Cards().TabCards()))
	if len(m.closing) > 0 {
		stats += fmt.Sprintf(" · %d closing", len(m.closing))
	}
	topBar := topBarStyle.Render(source + "  " + stats)

	listWidth := m.width * 60 / 100
	detailWidth := m.width - listWidth - 4
	paneHeight := m.listHeight()

	listBorder := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Width(listWidth).
		Height(paneHeight)
	detailBorder := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(detailWidth).
		Height(paneHeight)

	var detail string
	if tc := m.Cards().TabCardAt(m.cursor); tc != nil {
		detail = detailView(tc, m.members(tc), detailWidth)
	}
	panes := lipgloss.JoinHorizontal(lipgloss.Top,
		listBorder.Render(listView(m.Cards(), m.cursor, m.offset, listWidth, paneHeight)),
		detailBorder.Render(detail),
	)

	bottomBarStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Padding(0, 1)
	bottomText := "↑↓/jk navigate · enter focus · m merge · o ungroup · c color · x close · q quit"
	if m.mode == ModeOffline {
		bottomText += " · u undo · J/K move · p profile · r reload"
	}
	if m.status != "" {
		bottomText = m.status
	}
	bottomBar := bottomBarStyle.Render(bottomText)

	return lipgloss.JoinVertical(lipgloss.Left, topBar, panes, bottomBar)
}

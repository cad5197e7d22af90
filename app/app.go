// Package app is the bubbletea program that browses and moderates the
// board queues.
package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/miosa/modq/board"
	"github.com/miosa/modq/media"
	"github.com/miosa/modq/model"
	"github.com/miosa/modq/msg"
	"github.com/miosa/modq/paging"
	"github.com/miosa/modq/store"
	"github.com/miosa/modq/style"
)

// Media downloads attachments and drops cached listings. *client.Client
// satisfies it.
type Media interface {
	Download(ctx context.Context, path string) ([]byte, error)
	ClearCache()
}

// Journal persists browsing positions and moderation actions.
// *store.SQLiteStore satisfies it.
type Journal interface {
	RecordAction(ctx context.Context, a store.Action) (store.Action, error)
	SavePref(ctx context.Context, p store.Pref) error
	LoadPref(ctx context.Context, queue string) (store.Pref, error)
}

// Options configures New. Registry is required.
type Options struct {
	Context  context.Context
	Registry *board.Registry
	Media    Media
	Journal  Journal
	Logger   *zap.Logger
	Mode     paging.Mode
	Queue    board.Queue
	Timeout  time.Duration
	// Mobile forces the compact page bar.
	Mobile bool
	// TickInterval drives toast expiry. Zero means one second.
	TickInterval time.Duration
	Now          func() time.Time
}

type Model struct {
	ctx     context.Context
	cancel  context.CancelFunc
	reg     *board.Registry
	media   Media
	journal Journal
	log     *zap.Logger
	timeout time.Duration
	tick    time.Duration

	tabs    model.TabsModel
	list    model.QueueListModel
	pagebar model.PageBarModel
	confirm model.ConfirmModel
	detail  model.DetailModel
	status  model.StatusModel
	toasts  model.ToastsModel
	help    help.Model

	state    State
	keys     KeyMap
	mode     paging.Mode
	loaded   map[board.Queue]bool
	inflight map[board.Queue]int
	busy     map[board.Queue]int
	goPage   string
	goActive bool
	width    int
	height   int
}

func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	tick := opts.TickInterval
	if tick <= 0 {
		tick = time.Second
	}

	m := Model{
		ctx: ctx, cancel: cancel, reg: opts.Registry, media: opts.Media, journal: opts.Journal,
		log: log.Named("app"), timeout: timeout, tick: tick,
		tabs: model.NewTabs(), list: model.NewQueueList(), pagebar: model.NewPageBar(),
		confirm: model.NewConfirm(), detail: model.NewDetail(), status: model.NewStatus(),
		toasts: model.NewToasts(opts.Now), help: help.New(),
		state: StateLoading, keys: DefaultKeyMap(), mode: opts.Mode,
		loaded: make(map[board.Queue]bool), inflight: make(map[board.Queue]int),
		busy: make(map[board.Queue]int), width: 80, height: 24,
	}
	if opts.Queue != "" {
		m.tabs.Select(opts.Queue)
	}
	m.pagebar.ForceMobile(opts.Mobile)
	return m
}

// State returns the current application state.
func (m Model) State() State { return m.state }

// Queue returns the active queue.
func (m Model) Queue() board.Queue { return m.tabs.Active() }

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadPref(m.tabs.Active()), m.tickCmd(), tea.WindowSize())
}

func (m Model) Update(rawMsg tea.Msg) (tea.Model, tea.Cmd) {
	switch v := rawMsg.(type) {
	case tea.WindowSizeMsg:
		m.width = v.Width
		m.height = v.Height
		m.layout()
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(v)
	case msg.PrefLoaded:
		return m.handlePref(v)
	case msg.FetchResult:
		return m.handleFetch(v)
	case msg.MutationResult:
		return m.handleMutation(v)
	case msg.MediaResult:
		if v.Err != nil {
			m.detail.SetMediaNote(v.ID, "preview unavailable: "+v.Err.Error())
		} else {
			m.detail.SetThumbnail(v.ID, v.Thumb)
		}
		return m, nil
	case msg.ActionRecorded:
		if v.Err != nil {
			m.toasts.Add("journal: "+v.Err.Error(), model.ToastWarning)
		}
		return m, nil
	case msg.ReachedBottom:
		return m.bottom()
	case model.Decision:
		return m.handleDecision(v)
	case msg.TickMsg:
		m.toasts.Tick()
		return m, m.tickCmd()
	}
	if m.state == StateDetail {
		updated, cmd := m.detail.Update(rawMsg)
		if d, ok := updated.(model.DetailModel); ok {
			m.detail = d
		}
		return m, cmd
	}
	return m, nil
}

func (m Model) View() string {
	var sections []string
	sections = append(sections, m.tabs.View(), style.Rule(m.width))
	switch m.state {
	case StateDetail:
		sections = append(sections, m.detail.View())
	default:
		sections = append(sections, m.list.View())
		if m.mode == paging.ModePage {
			sections = append(sections, m.pagebar.View())
		}
	}
	if m.state == StateConfirming {
		sections = append(sections, m.confirm.View())
	}
	if m.goActive {
		sections = append(sections, style.Bold.Render("  go to page: ")+m.goPage+"█")
	}
	sections = append(sections, m.status.View())
	if m.toasts.HasToasts() {
		sections = append(sections, m.toasts.View(m.width))
	}
	sections = append(sections, "  "+m.help.View(m.keys))
	return strings.Join(sections, "\n")
}

// -- keys --

func (m Model) handleKey(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	if k.Type == tea.KeyCtrlC {
		return m.quit()
	}
	if m.goActive {
		return m.handleGoPageKey(k)
	}
	switch m.state {
	case StateConfirming:
		updated, cmd := m.confirm.Update(k)
		if c, ok := updated.(model.ConfirmModel); ok {
			m.confirm = c
		}
		return m, cmd
	case StateDetail:
		return m.handleDetailKey(k)
	}
	return m.handleBrowseKey(k)
}

func (m Model) handleBrowseKey(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	b := m.active()
	switch {
	case key.Matches(k, m.keys.Quit):
		return m.quit()
	case key.Matches(k, m.keys.NextQueue):
		return m.switchQueue(m.tabs.Next())
	case key.Matches(k, m.keys.PrevQueue):
		return m.switchQueue(m.tabs.Prev())
	case key.Matches(k, m.keys.ToggleMode):
		return m.toggleMode()
	case key.Matches(k, m.keys.Refresh):
		if m.media != nil {
			m.media.ClearCache()
		}
		return m, m.refresh(b)
	case key.Matches(k, m.keys.Approve):
		return m.openConfirm(paging.ActionApprove)
	case key.Matches(k, m.keys.Reject):
		return m.openConfirm(paging.ActionReject)
	case key.Matches(k, m.keys.Detail):
		return m.openDetail()
	}

	if m.mode == paging.ModePage {
		nav := b.Navigator()
		switch {
		case key.Matches(k, m.keys.PrevPage):
			return m.goTo(nav.Prev())
		case key.Matches(k, m.keys.NextPage):
			return m.goTo(nav.Next())
		case key.Matches(k, m.keys.FirstPage):
			return m.goTo(nav.First())
		case key.Matches(k, m.keys.LastPage):
			return m.goTo(nav.Last())
		case key.Matches(k, m.keys.GoToPage):
			m.goActive = true
			m.goPage = ""
			return m, nil
		}
	}

	updated, cmd := m.list.Update(k)
	if l, ok := updated.(model.QueueListModel); ok {
		m.list = l
	}
	return m, cmd
}

func (m Model) handleGoPageKey(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch k.Type {
	case tea.KeyEnter:
		m.goActive = false
		n, err := strconv.Atoi(m.goPage)
		m.goPage = ""
		if err != nil || n < 1 {
			return m, nil
		}
		return m.goTo(n)
	case tea.KeyEsc:
		m.goActive = false
		m.goPage = ""
	case tea.KeyBackspace:
		if len(m.goPage) > 0 {
			m.goPage = m.goPage[:len(m.goPage)-1]
		}
	case tea.KeyRunes:
		for _, r := range k.Runes {
			if r >= '0' && r <= '9' && len(m.goPage) < 6 {
				m.goPage += string(r)
			}
		}
	}
	return m, nil
}

func (m Model) handleDetailKey(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(k, m.keys.Escape), key.Matches(k, m.keys.Quit):
		m.detail.Close()
		m.state = StateBrowsing
		m.layout()
		return m, nil
	case key.Matches(k, m.keys.Approve):
		return m.openConfirm(paging.ActionApprove)
	case key.Matches(k, m.keys.Reject):
		return m.openConfirm(paging.ActionReject)
	}
	updated, cmd := m.detail.Update(k)
	if d, ok := updated.(model.DetailModel); ok {
		m.detail = d
	}
	return m, cmd
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.cancel()
	return m, tea.Quit
}

// -- queues and paging --

func (m Model) active() board.Binding {
	return m.reg.MustGet(m.tabs.Active())
}

func (m Model) switchQueue(q board.Queue) (tea.Model, tea.Cmd) {
	m.goActive = false
	m.list.Top()
	if !m.loaded[q] {
		m.state = StateLoading
		m.sync()
		return m, m.loadPref(q)
	}
	// the mode is global; a queue left in the other mode restarts at page 1
	b := m.reg.MustGet(q)
	var cmd tea.Cmd
	if b.Context().Mode != m.mode {
		if b.SetContext(paging.Context{Mode: m.mode, Page: 1}) {
			cmd = tea.Batch(m.refresh(b), m.savePref(b))
		}
	}
	m.state = StateBrowsing
	m.sync()
	return m, cmd
}

func (m Model) handlePref(v msg.PrefLoaded) (tea.Model, tea.Cmd) {
	q := board.Queue(v.Queue)
	b, err := m.reg.Get(q)
	if err != nil {
		return m, nil
	}
	if v.Err != nil && !errors.Is(v.Err, store.ErrNotFound) {
		m.log.Warn("load pref", zap.String("queue", v.Queue), zap.Error(v.Err))
	}
	// the first queue loaded may restore the mode; later ones only keep
	// their page when they were saved in the mode already showing
	c := paging.Context{Mode: m.mode, Page: 1}
	if v.Found && (len(m.loaded) == 0 || v.Mode == m.mode) {
		c = paging.Context{Mode: v.Mode, Page: v.Page}
	}
	b.Reset(c)
	m.loaded[q] = true
	if q == m.tabs.Active() {
		m.mode = c.Mode
	}
	// scroll mode mounts with a refetch of offset 0
	var cmd tea.Cmd
	if c.Mode == paging.ModeScroll {
		cmd = m.refresh(b)
	} else {
		cmd = m.fill(b)
	}
	if cmd == nil && q == m.tabs.Active() {
		m.state = StateBrowsing
	}
	m.sync()
	return m, cmd
}

// fill starts the fetch the current window needs, if any.
func (m *Model) fill(b board.Binding) tea.Cmd {
	if b.Context().Mode == paging.ModeScroll {
		if !b.Grow() {
			return nil
		}
	} else if !b.NeedsFill() {
		return nil
	}
	return m.begin(b)
}

func (m *Model) begin(b board.Binding) tea.Cmd {
	req, ok := b.Begin()
	if !ok {
		return nil
	}
	return m.fetch(b, req)
}

func (m *Model) refresh(b board.Binding) tea.Cmd {
	return m.fetch(b, b.BeginRefresh())
}

func (m *Model) fetch(b board.Binding, req paging.Request) tea.Cmd {
	m.inflight[b.Queue()]++
	ctx, timeout := m.ctx, m.timeout
	q := string(b.Queue())
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return msg.FetchResult{Queue: q, Req: req, Apply: b.Fetch(ctx, req)}
	}
}

func (m Model) handleFetch(v msg.FetchResult) (tea.Model, tea.Cmd) {
	q := board.Queue(v.Queue)
	b, err := m.reg.Get(q)
	if err != nil {
		return m, nil
	}
	if m.inflight[q] > 0 {
		m.inflight[q]--
	}
	out := v.Apply()
	if out.Stale {
		m.sync()
		return m, nil
	}
	if out.Err != nil {
		m.toasts.Add(fmt.Sprintf("%s: %v", q.Title(), out.Err), model.ToastError)
	}
	cmd := m.afterApply(b, out, v.Req.Refresh)
	if q == m.tabs.Active() && m.state == StateLoading {
		m.state = StateBrowsing
	}
	m.sync()
	return m, cmd
}

// afterApply continues growth or page filling once a response has landed.
func (m *Model) afterApply(b board.Binding, out paging.Outcome, refresh bool) tea.Cmd {
	if out.Err != nil {
		return nil
	}
	if b.Context().Mode == paging.ModeScroll {
		if b.Growth() == paging.GrowthGrowing && b.Grow() {
			return m.begin(b)
		}
		return nil
	}
	if (refresh || out.Clamped) && b.NeedsFill() {
		b.Rearm()
		return m.begin(b)
	}
	return nil
}

func (m Model) bottom() (tea.Model, tea.Cmd) {
	if m.mode != paging.ModeScroll || m.state != StateBrowsing {
		return m, nil
	}
	b := m.active()
	if m.inflight[b.Queue()] > 0 || m.busy[b.Queue()] > 0 {
		return m, nil
	}
	cmd := m.fill(b)
	m.sync()
	return m, cmd
}

func (m Model) goTo(page int) (tea.Model, tea.Cmd) {
	b := m.active()
	b.GoTo(page)
	m.list.Top()
	// while a mutation is pending, its refresh fills the new page
	var cmd tea.Cmd
	if m.busy[b.Queue()] == 0 && b.NeedsFill() {
		b.Rearm()
		cmd = m.begin(b)
	}
	m.sync()
	return m, tea.Batch(cmd, m.savePref(b))
}

func (m Model) toggleMode() (tea.Model, tea.Cmd) {
	b := m.active()
	c := b.Context()
	if c.Mode == paging.ModeScroll {
		c.Mode = paging.ModePage
	} else {
		c.Mode = paging.ModeScroll
	}
	c.Page = 1
	m.mode = c.Mode
	m.list.Top()
	var cmd tea.Cmd
	if b.SetContext(c) {
		cmd = m.refresh(b)
	}
	m.sync()
	return m, tea.Batch(cmd, m.savePref(b))
}

// -- moderation --

func (m Model) openConfirm(action paging.Action) (tea.Model, tea.Cmd) {
	row, ok := m.list.Selected()
	if m.state == StateDetail {
		row, ok = m.detail.Row(), true
		m.detail.Close()
	}
	if !ok {
		return m, nil
	}
	m.confirm.Open(row, action)
	m.state = StateConfirming
	m.layout()
	return m, nil
}

func (m Model) handleDecision(d model.Decision) (tea.Model, tea.Cmd) {
	m.state = StateBrowsing
	m.layout()
	if d.Cancelled() {
		return m, nil
	}
	b := m.active()
	job, err := b.PrepareMutation(d.Action, d.ID)
	if err != nil {
		m.toasts.Add(err.Error(), model.ToastError)
		return m, nil
	}
	m.busy[b.Queue()]++
	m.sync()

	ctx, timeout := m.ctx, m.timeout
	q := string(b.Queue())
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return msg.MutationResult{Queue: q, ID: d.ID, Action: d.Action, Err: job(ctx)}
	}
}

func (m Model) handleMutation(v msg.MutationResult) (tea.Model, tea.Cmd) {
	q := board.Queue(v.Queue)
	if m.busy[q] > 0 {
		m.busy[q]--
	}
	b, err := m.reg.Get(q)
	if err != nil {
		return m, nil
	}
	record := m.recordAction(v)

	if v.Err != nil {
		m.toasts.Add(v.Err.Error(), model.ToastError)
		var cmd tea.Cmd
		if m.busy[q] == 0 && m.inflight[q] == 0 {
			// resume fills deferred while the mutation was pending
			b.Rearm()
			switch {
			case b.Context().Mode == paging.ModePage && b.NeedsFill():
				cmd = m.begin(b)
			case b.Growth() == paging.GrowthGrowing:
				cmd = m.begin(b)
			}
		}
		m.sync()
		return m, tea.Batch(cmd, record)
	}

	m.toasts.Verdict(v.Action == paging.ActionApprove, q.Title(), v.ID)
	// stamped only now, so it outranks every fetch issued while the
	// mutation was running
	cmd := m.refresh(b)
	m.sync()
	return m, tea.Batch(cmd, record)
}

// -- detail --

func (m Model) openDetail() (tea.Model, tea.Cmd) {
	row, ok := m.list.Selected()
	if !ok {
		return m, nil
	}
	m.detail.Open(row)
	m.state = StateDetail
	m.layout()
	if row.Media == "" {
		return m, nil
	}
	if m.media == nil || !media.Previewable(row.Media) {
		m.detail.SetMediaNote(row.ID, fmt.Sprintf("%s attachment: %s", media.KindOf(row.Media), row.Media))
		return m, nil
	}
	m.detail.SetMediaNote(row.ID, "loading preview…")
	return m, m.loadThumb(row, m.detail.ThumbColumns())
}

func (m Model) loadThumb(row board.Row, cols int) tea.Cmd {
	ctx, timeout, src := m.ctx, m.timeout, m.media
	q := string(m.tabs.Active())
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		r := msg.MediaResult{Queue: q, ID: row.ID, Path: row.Media}
		data, err := src.Download(ctx, row.Media)
		if err != nil {
			r.Err = err
			return r
		}
		img, err := media.Thumbnail(bytes.NewReader(data), cols, cols)
		if err != nil {
			r.Err = err
			return r
		}
		r.Thumb = media.Blocks(img, cols)
		return r
	}
}

// -- persistence --

func (m Model) loadPref(q board.Queue) tea.Cmd {
	j, ctx := m.journal, m.ctx
	return func() tea.Msg {
		if j == nil {
			return msg.PrefLoaded{Queue: string(q)}
		}
		p, err := j.LoadPref(ctx, string(q))
		if err != nil {
			return msg.PrefLoaded{Queue: string(q), Err: err}
		}
		mode, err := paging.ParseMode(p.Mode)
		if err != nil {
			return msg.PrefLoaded{Queue: string(q), Err: err}
		}
		return msg.PrefLoaded{Queue: string(q), Mode: mode, Page: p.Page, Found: true}
	}
}

func (m Model) savePref(b board.Binding) tea.Cmd {
	if m.journal == nil {
		return nil
	}
	j, ctx, log := m.journal, m.ctx, m.log
	c := b.Context()
	p := store.Pref{Queue: string(b.Queue()), Mode: c.Mode.String(), Page: c.Page}
	return func() tea.Msg {
		if err := j.SavePref(ctx, p); err != nil {
			log.Warn("save pref", zap.String("queue", p.Queue), zap.Error(err))
		}
		return nil
	}
}

func (m Model) recordAction(v msg.MutationResult) tea.Cmd {
	if m.journal == nil {
		return nil
	}
	j, ctx := m.journal, m.ctx
	a := store.Action{Queue: v.Queue, ItemID: v.ID, Action: string(v.Action), OK: v.Err == nil}
	if v.Err != nil {
		a.Error = v.Err.Error()
	}
	return func() tea.Msg {
		_, err := j.RecordAction(ctx, a)
		return msg.ActionRecorded{Err: err}
	}
}

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.tick, func(time.Time) tea.Msg { return msg.TickMsg{} })
}

// -- layout --

// sync copies the active binding's state into the view models.
func (m *Model) sync() {
	q := m.tabs.Active()
	b := m.reg.MustGet(q)
	rows, empty := b.Rows()
	if m.state == StateLoading && !m.loaded[q] {
		rows, empty = nil, false
	}
	m.list.SetRows(rows, empty)
	m.list.SetLoading(m.inflight[q] > 0)
	nav := b.Navigator()
	m.pagebar.SetNavigator(nav)
	m.status.SetQueue(q.Title())
	m.status.SetPaging(b.Context().Mode, nav, b.Len(), b.Growth(), b.Cursor().Exhausted)
	m.status.SetLoading(m.inflight[q] > 0)
	busy := ""
	if m.busy[q] > 0 {
		busy = "saving"
	}
	m.status.SetBusy(busy)
	m.tabs.SetTotal(q, b.Total())
	m.layout()
}

func (m *Model) layout() {
	m.tabs.SetWidth(m.width)
	m.pagebar.SetWidth(m.width)
	m.confirm.SetWidth(m.width - 4)
	m.help.Width = m.width

	reserved := 5 // tabs, rule, status, help, slack
	if m.mode == paging.ModePage {
		reserved++
	}
	if m.state == StateConfirming {
		reserved += countLines(m.confirm.View())
	}
	if m.goActive {
		reserved++
	}
	reserved += countLines(m.toasts.View(m.width))
	h := max(m.height-reserved, 2)
	m.list.SetSize(m.width, h)
	m.detail.SetSize(m.width, h)
}

// countLines returns the number of lines in a rendered string.
func countLines(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(s, "\n") + 1
}

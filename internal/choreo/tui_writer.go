package choreo

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"dronechoreo/internal/config"
	"dronechoreo/internal/planner"
	"dronechoreo/internal/telemetry"
	"dronechoreo/internal/wire"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// transitionMsg carries a transition log line for the viewport.
type transitionMsg struct{ line string }

// adaptMsg carries a replan log line and row data.
type adaptMsg struct {
	line string
	row  telemetry.AdaptationRow
}

// commandMsg carries an issued command log line.
type commandMsg struct{ line string }

// stateMsg carries a vehicle lifecycle update.
type stateMsg struct{ telemetry.VehicleStateRow }

// adminMsg reports admin UI status.
type adminMsg struct{ active bool }

type setSenderMsg struct{ fn func(wire.Command) }

const (
	fallbackCommandInput = "*,HOLD,5"
	maxSectionHeightPct  = 0.2
)

// TUIWriter renders show rows using a bubbletea TUI.
type TUIWriter struct {
	program         teaProgram
	formationColors map[string]string
	colorIdx        int
	done            chan struct{}
	sendSignal      atomic.Bool
}

// NewTUIWriter starts a bubbletea program and returns a TUIWriter.
func NewTUIWriter(cfg *config.MissionConfig) *TUIWriter {
	fc := make(map[string]string)
	w := &TUIWriter{formationColors: fc, done: make(chan struct{})}
	w.sendSignal.Store(true)
	m := newTUIModel(cfg, fc)
	p := tea.NewProgram(m, tea.WithAltScreen())
	w.program = p
	for _, f := range m.show {
		w.getFormationColor(f.Name)
	}
	go func() {
		_, _ = p.Run()
		close(w.done)
		if w.sendSignal.Load() {
			if proc, err := os.FindProcess(os.Getpid()); err == nil {
				_ = proc.Signal(os.Interrupt)
			}
		}
	}()
	return w
}

func (w *TUIWriter) getFormationColor(name string) string {
	if c, ok := w.formationColors[name]; ok {
		return c
	}
	c := formationPalette[w.colorIdx%len(formationPalette)]
	w.formationColors[name] = c
	w.colorIdx++
	return c
}

// WriteTransition implements TransitionWriter.
func (w *TUIWriter) WriteTransition(row telemetry.TransitionRow) error {
	fColor := w.getFormationColor(row.Formation)
	line := fmt.Sprintf("%s[%s]%s %sformation=%s%s %sgen=%d%s %svehicle=%d%s %sslot=%d%s %sdelay=%.2f%s %smove=%.2f%s %sto=(%.1f,%.1f,%.1f)%s %smethod=%s%s",
		colorGray, row.Timestamp.Format(time.RFC3339), colorReset,
		fColor, row.Formation, colorReset,
		colorBlue, row.Generation, colorReset,
		colorWhite, row.Vehicle, colorReset,
		colorGreen, row.Slot, colorReset,
		colorYellow, row.Delay, colorReset,
		colorCyan, row.MoveDuration, colorReset,
		colorMagenta, row.ToX, row.ToY, row.ToZ, colorReset,
		colorBlue, row.Method, colorReset)
	w.program.Send(transitionMsg{line: line})
	return nil
}

// WriteTransitions outputs multiple transition legs.
func (w *TUIWriter) WriteTransitions(rows []telemetry.TransitionRow) error {
	for _, r := range rows {
		_ = w.WriteTransition(r)
	}
	return nil
}

// WriteAdaptation implements AdaptationWriter.
func (w *TUIWriter) WriteAdaptation(row telemetry.AdaptationRow) error {
	line := fmt.Sprintf("%s[%s]%s %sADAPT%s %sgen=%d%s %strigger=%s%s %scause=%s%s %smethod=%s%s %sactive=%d holding=%d departed=%d%s %selapsed=%.1fms%s",
		colorGray, row.Timestamp.Format(time.RFC3339), colorReset,
		colorCyan, colorReset,
		colorBlue, row.Generation, colorReset,
		colorYellow, row.Trigger, colorReset,
		colorRed, row.Cause, colorReset,
		colorMagenta, row.Method, colorReset,
		colorWhite, row.ActiveCount, row.HoldingCount, row.DepartedCount, colorReset,
		colorGreen, row.ElapsedMS, colorReset)
	w.program.Send(adaptMsg{line: line, row: row})
	return nil
}

// WriteVehicleState implements StateWriter.
func (w *TUIWriter) WriteVehicleState(row telemetry.VehicleStateRow) error {
	w.program.Send(stateMsg{VehicleStateRow: row})
	return nil
}

// WriteVehicleStates outputs multiple vehicle lifecycle rows.
func (w *TUIWriter) WriteVehicleStates(rows []telemetry.VehicleStateRow) error {
	for _, r := range rows {
		_ = w.WriteVehicleState(r)
	}
	return nil
}

// WriteCommand implements CommandWriter.
func (w *TUIWriter) WriteCommand(row telemetry.CommandRow) error {
	line := fmt.Sprintf("%s[%s]%s %sCOMMAND%s %stargets=%s%s %scode=%s%s %sframe=%s%s",
		colorGray, row.Timestamp.Format(time.RFC3339), colorReset,
		colorRed, colorReset,
		colorWhite, row.Targets, colorReset,
		colorYellow, row.Code, colorReset,
		colorGray, row.Frame, colorReset)
	w.program.Send(commandMsg{line: line})
	return nil
}

// SetAdminStatus updates the admin UI indicator.
func (w *TUIWriter) SetAdminStatus(active bool) {
	w.program.Send(adminMsg{active: active})
}

// SetCommandSender registers a callback for operator commands typed into
// the TUI.
func (w *TUIWriter) SetCommandSender(fn func(wire.Command)) {
	w.program.Send(setSenderMsg{fn: fn})
}

// Close shuts down the TUI program and waits for cleanup.
func (w *TUIWriter) Close() error {
	w.sendSignal.Store(false)
	if w.program != nil {
		w.program.Send(tea.Quit())
	}
	if w.done != nil {
		<-w.done
	}
	return nil
}

type tuiModel struct {
	cfg             *config.MissionConfig
	show            []planner.Formation
	table           table.Model
	vp              viewport.Model
	adaptVP         viewport.Model
	cmdVP           viewport.Model
	logs            []string
	adaptLogs       []string
	cmdLogs         []string
	states          map[int]telemetry.VehicleStateRow
	order           []int
	generation      uint64
	lastMethod      string
	admin           bool
	wrap            bool
	autoscroll      bool
	help            bool
	showRoster      bool
	header          string
	headerHeight    int
	height          int
	formationColors map[string]string
	cmdInput        textinput.Model
	cmdDialog       bool
	send            func(wire.Command)
}

func newTUIModel(cfg *config.MissionConfig, formationColors map[string]string) tuiModel {
	cons := cfg.Constraints()
	ceiling := "default"
	if d, err := cfg.HoldCeilingDuration(); err == nil && d > 0 {
		ceiling = d.String()
	}
	budget := "default"
	if cfg.Solver.TimeBudget != "" {
		budget = cfg.Solver.TimeBudget
	}
	cols := []table.Column{
		{Title: "Config", Width: 20},
		{Title: "Value", Width: 10},
		{Title: "Config", Width: 20},
		{Title: "Value", Width: 10},
	}
	rows := []table.Row{
		{"Roster Size", fmt.Sprintf("%d", cfg.RosterSize()), "Hold Ceiling", ceiling},
		{"Separation (m)", fmt.Sprintf("%.1f", cons.MinSeparation), "Time Budget", budget},
		{"Max Velocity (m/s)", fmt.Sprintf("%.1f", cons.MaxVelocity), "Annealer", fmt.Sprintf("%t", cfg.Solver.Annealer)},
		{"Delay Steps", fmt.Sprintf("%d", cons.DelaySteps), "Samples", fmt.Sprintf("%d", cons.Samples)},
	}
	t := table.New(table.WithColumns(cols), table.WithRows(rows), table.WithHeight(len(rows)+1))

	show, _ := cfg.ShowSequence()
	states := make(map[int]telemetry.VehicleStateRow)
	var order []int
	for _, v := range cfg.Fleet() {
		states[v.ID] = telemetry.VehicleStateRow{
			Vehicle: v.ID,
			Phase:   "active",
			X:       v.Position.X,
			Y:       v.Position.Y,
			Z:       v.Position.Z,
		}
		order = append(order, v.ID)
	}
	sort.Ints(order)

	m := tuiModel{
		cfg:             cfg,
		show:            show,
		table:           t,
		vp:              viewport.New(0, 0),
		adaptVP:         viewport.New(0, 0),
		cmdVP:           viewport.New(0, 0),
		states:          states,
		order:           order,
		autoscroll:      true,
		showRoster:      true,
		formationColors: formationColors,
	}
	return m
}

func (m tuiModel) Init() tea.Cmd { return nil }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.table.SetWidth(msg.Width / 2)
		m.vp.Width = msg.Width
		m.adaptVP.Width = msg.Width
		m.cmdVP.Width = msg.Width
		m.height = msg.Height
		m.header = m.renderHeader()
		m.headerHeight = lipgloss.Height(m.header)
		m.updateViewportHeight()
		m.refreshViewport()
		m.refreshAdaptations()
		m.refreshCommands()
	case tea.KeyMsg:
		if m.cmdDialog {
			switch msg.Type {
			case tea.KeyEnter:
				cmd, err := parseCommandInput(m.cmdInput.Value())
				if err == nil && m.send != nil {
					go m.send(cmd)
				}
				m.cmdDialog = false
				m.updateViewportHeight()
			case tea.KeyEsc:
				m.cmdDialog = false
				m.updateViewportHeight()
			default:
				var cmd tea.Cmd
				m.cmdInput, cmd = m.cmdInput.Update(msg)
				return m, cmd
			}
			return m, nil
		}
		if m.help {
			switch msg.String() {
			case "?", "h", "esc":
				m.help = false
				m.updateViewportHeight()
			}
			return m, nil
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "w":
			m.wrap = !m.wrap
			m.refreshViewport()
			m.header = m.renderHeader()
			m.headerHeight = lipgloss.Height(m.header)
			m.updateViewportHeight()
			return m, nil
		case "s":
			m.autoscroll = !m.autoscroll
			if m.autoscroll {
				m.vp.GotoBottom()
				m.adaptVP.GotoBottom()
				m.cmdVP.GotoBottom()
			}
			return m, nil
		case "c":
			m.cmdInput = textinput.New()
			m.cmdInput.Placeholder = "targets,code[,seconds]"
			m.cmdInput.SetValue(fallbackCommandInput)
			m.cmdInput.CursorEnd()
			m.cmdInput.Focus()
			m.cmdDialog = true
			m.updateViewportHeight()
			return m, nil
		case "r":
			m.showRoster = !m.showRoster
			m.updateViewportHeight()
			return m, nil
		case "h", "?":
			m.help = !m.help
			m.updateViewportHeight()
			return m, nil
		}
		if !m.autoscroll {
			switch msg.String() {
			case "j", "down":
				m.vp.LineDown(1)
				m.adaptVP.LineDown(1)
				m.cmdVP.LineDown(1)
			case "k", "up":
				m.vp.LineUp(1)
				m.adaptVP.LineUp(1)
				m.cmdVP.LineUp(1)
			case "pgdown", "ctrl+n":
				m.vp.LineDown(10)
				m.adaptVP.LineDown(10)
				m.cmdVP.LineDown(10)
			case "pgup", "ctrl+p":
				m.vp.LineUp(10)
				m.adaptVP.LineUp(10)
				m.cmdVP.LineUp(10)
			default:
				var cmd tea.Cmd
				m.vp, cmd = m.vp.Update(msg)
				m.adaptVP, _ = m.adaptVP.Update(msg)
				m.cmdVP, _ = m.cmdVP.Update(msg)
				return m, cmd
			}
			return m, nil
		}
		return m, nil
	case transitionMsg:
		m.logs = append(m.logs, msg.line)
		if len(m.logs) > 1000 {
			m.logs = m.logs[len(m.logs)-1000:]
		}
		m.refreshViewport()
	case adaptMsg:
		m.adaptLogs = append(m.adaptLogs, msg.line)
		if len(m.adaptLogs) > 1000 {
			m.adaptLogs = m.adaptLogs[len(m.adaptLogs)-1000:]
		}
		m.generation = msg.row.Generation
		m.lastMethod = msg.row.Method
		m.updateViewportHeight()
		m.refreshAdaptations()
		m.refreshViewport()
	case commandMsg:
		m.cmdLogs = append(m.cmdLogs, msg.line)
		if len(m.cmdLogs) > 1000 {
			m.cmdLogs = m.cmdLogs[len(m.cmdLogs)-1000:]
		}
		m.updateViewportHeight()
		m.refreshCommands()
		m.refreshViewport()
	case stateMsg:
		if _, ok := m.states[msg.Vehicle]; !ok {
			m.order = append(m.order, msg.Vehicle)
			sort.Ints(m.order)
		}
		m.states[msg.Vehicle] = msg.VehicleStateRow
		if msg.Generation > m.generation {
			m.generation = msg.Generation
		}
	case adminMsg:
		m.admin = msg.active
	case setSenderMsg:
		m.send = msg.fn
	}
	return m, nil
}

func (m *tuiModel) updateViewportHeight() {
	bottomHeight := lipgloss.Height(m.renderBottom())

	maxLines := m.maxSectionLines()

	adaptLines := len(m.adaptLogs)
	if adaptLines == 0 {
		adaptLines = 1
	}
	if adaptLines > maxLines {
		adaptLines = maxLines
	}
	m.adaptVP.Height = adaptLines

	cmdLines := len(m.cmdLogs)
	if cmdLines == 0 {
		cmdLines = 1
	}
	if cmdLines > maxLines {
		cmdLines = maxLines
	}
	m.cmdVP.Height = cmdLines

	adaptHeight := 1 + m.adaptVP.Height
	cmdHeight := 1 + m.cmdVP.Height
	rosterHeight := 0
	if m.showRoster || m.cmdDialog {
		rosterHeight = lipgloss.Height(m.renderRoster())
	}
	h := m.height - m.headerHeight - bottomHeight - adaptHeight - cmdHeight - rosterHeight - 5
	if h < 0 {
		h = 0
	}
	m.vp.Height = h
	if m.autoscroll {
		m.adaptVP.GotoBottom()
		m.cmdVP.GotoBottom()
		m.vp.GotoBottom()
	}
}

func (m *tuiModel) refreshViewport() {
	var lines []string
	for _, l := range m.logs {
		if m.wrap {
			lines = append(lines, wordwrap.String(l, m.vp.Width))
		} else {
			lines = append(lines, l)
		}
	}
	m.vp.SetContent(strings.Join(lines, "\n"))
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m *tuiModel) refreshAdaptations() {
	content := "none"
	if len(m.adaptLogs) > 0 {
		content = strings.Join(m.adaptLogs, "\n")
	}
	m.adaptVP.SetContent(content)
	if m.autoscroll {
		m.adaptVP.GotoBottom()
	}
}

func (m *tuiModel) refreshCommands() {
	content := "none"
	if len(m.cmdLogs) > 0 {
		content = strings.Join(m.cmdLogs, "\n")
	}
	m.cmdVP.SetContent(content)
	if m.autoscroll {
		m.cmdVP.GotoBottom()
	}
}

func (m tuiModel) maxSectionLines() int {
	h := int(float64(m.height) * maxSectionHeightPct)
	if h < 1 {
		h = 1
	}
	return h
}

func (m tuiModel) View() string {
	if m.help {
		return m.renderHelp()
	}
	bottom := m.renderBottom()
	divider := strings.Repeat("─", m.vp.Width)
	sections := []string{
		m.header,
		divider,
		m.vp.View(),
		divider,
		"Adaptations:",
		m.adaptVP.View(),
		divider,
		"Commands:",
		m.cmdVP.View(),
	}
	if m.showRoster || m.cmdDialog {
		sections = append(sections, divider, m.renderRoster())
	}
	sections = append(sections, divider, bottom)
	return strings.Join(sections, "\n")
}

func (m tuiModel) renderHeader() string {
	tableView := m.table.View()
	showWidth := m.vp.Width/2 - 1
	tree := renderShowTree(m.show, m.formationColors, m.wrap, showWidth)
	sep := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render("│")
	return lipgloss.JoinHorizontal(lipgloss.Top, tableView, sep, tree)
}

func renderShowTree(show []planner.Formation, colors map[string]string, wrap bool, width int) string {
	var b strings.Builder
	b.WriteString("Show\n")
	for i, f := range show {
		prefix := "├─"
		if i == len(show)-1 {
			prefix = "└─"
		}
		c := colors[f.Name]
		line := fmt.Sprintf("%s %s%s%s - %d slots", prefix, c, f.Name, colorReset, len(f.Slots))
		if wrap && width > 0 {
			line = wordwrap.String(line, width)
		}
		b.WriteString(line + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m tuiModel) renderRoster() string {
	var b strings.Builder
	b.WriteString("Roster\n")
	for i, id := range m.order {
		prefix := "├─"
		if i == len(m.order)-1 {
			prefix = "└─"
		}
		st := m.states[id]
		line := fmt.Sprintf("%s %s%d %s%s pos=(%.1f,%.1f,%.1f)", prefix, phaseColor(st.Phase), id, st.Phase, colorReset, st.X, st.Y, st.Z)
		if st.Cause != "" {
			line += fmt.Sprintf(" cause=%s", st.Cause)
		}
		b.WriteString(line + "\n")
	}
	if m.cmdDialog {
		b.WriteString("Command: " + m.cmdInput.View() + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m tuiModel) renderBottom() string {
	adminColor := lipgloss.Color("9")
	if m.admin {
		adminColor = lipgloss.Color("10")
	}
	wrapColor := lipgloss.Color("9")
	if m.wrap {
		wrapColor = lipgloss.Color("10")
	}
	scrollColor := lipgloss.Color("10")
	if !m.autoscroll {
		scrollColor = lipgloss.Color("9")
	}
	rosterColor := lipgloss.Color("10")
	if !m.showRoster {
		rosterColor = lipgloss.Color("9")
	}
	adminIndicator := lipgloss.NewStyle().Foreground(adminColor).Render("●")
	wrapIndicator := lipgloss.NewStyle().Foreground(wrapColor).Render("●")
	scrollIndicator := lipgloss.NewStyle().Foreground(scrollColor).Render("●")
	rosterIndicator := lipgloss.NewStyle().Foreground(rosterColor).Render("●")

	var active, holding, departed, offline int
	for _, st := range m.states {
		switch st.Phase {
		case "active":
			active++
		case "holding":
			holding++
		case "departed", "returning":
			departed++
		case "offline":
			offline++
		}
	}
	method := m.lastMethod
	if method == "" {
		method = "none"
	}
	state := fmt.Sprintf("%sSHOW%s %sgen=%d%s %sactive=%d%s %sholding=%d%s %sdeparted=%d%s %soffline=%d%s %smethod=%s%s",
		colorBlue, colorReset,
		colorYellow, m.generation, colorReset,
		colorGreen, active, colorReset,
		colorYellow, holding, colorReset,
		colorRed, departed, colorReset,
		colorGray, offline, colorReset,
		colorMagenta, method, colorReset)
	return fmt.Sprintf("%s | Admin UI %s | Wrap %s | Scroll %s | Roster %s", state, adminIndicator, wrapIndicator, scrollIndicator, rosterIndicator)
}

func (m tuiModel) renderHelp() string {
	lines := []string{
		"Key Bindings:",
		" q  quit",
		" w  toggle wrap for transition log",
		" s  toggle auto-scroll",
		" c  send command (targets,code[,seconds])",
		"    targets is * or space-separated ids, e.g. \"1 4,LAND\"",
		" r  toggle roster section",
		" h/? toggle this help view",
		"",
		"When auto-scroll is disabled:",
		" j/k or up/down    scroll one line",
		" pgdown/pgup       scroll a page",
	}
	return strings.Join(lines, "\n")
}

func parseCommandInput(v string) (wire.Command, error) {
	parts := strings.Split(v, ",")
	if len(parts) < 2 {
		return wire.Command{}, fmt.Errorf("want targets,code[,seconds]")
	}
	var targets []int
	if t := strings.TrimSpace(parts[0]); t != "*" {
		for _, f := range strings.Fields(t) {
			id, err := strconv.Atoi(f)
			if err != nil {
				return wire.Command{}, fmt.Errorf("bad target %q", f)
			}
			targets = append(targets, id)
		}
	}
	var action wire.Action
	code := strings.ToUpper(strings.TrimSpace(parts[1]))
	switch code {
	case wire.CodeHold:
		if len(parts) < 3 {
			return wire.Command{}, fmt.Errorf("hold needs seconds")
		}
		sec, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
		if err != nil {
			return wire.Command{}, fmt.Errorf("bad seconds %q", parts[2])
		}
		action = wire.Hold{Seconds: sec}
	case wire.CodeResume:
		action = wire.Resume{}
	case wire.CodeLand:
		action = wire.Land{}
	case wire.CodeReturnToBase:
		action = wire.ReturnToBase{}
	default:
		return wire.Command{}, fmt.Errorf("unknown command %q", code)
	}
	return wire.Command{Targets: targets, Action: action}, nil
}

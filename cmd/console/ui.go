package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/zackedds/no-rulez-web/pkg/client"
	"github.com/zackedds/no-rulez-web/pkg/state"
)

const (
	Title           = "NO RULEZ"
	RefereeName     = "Referee"
	ActionCharLimit = 200
	NameCharLimit   = 30
)

type phase int

const (
	phaseMenu phase = iota
	phaseCode
	phaseName
	phaseConnecting
	phaseGame
)

var menuItems = []string{"Create a new game", "Join a game"}

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	config       *ConsoleConfig
	api          *client.Client
	phase        phase
	joining      bool
	selectedItem int

	code      string
	playerNum int
	game      *state.GameState
	battleLog []logEntry
	lastTurn  int

	logViewport  viewport.Model
	metaViewport viewport.Model
	textarea     textarea.Model
	ready        bool
	width        int
	height       int
	err          error
	notice       string
	loading      bool
	polling      bool

	showQuitModal bool
	progressTick  int
}

// logEntry is one resolved turn as shown in the battle log.
type logEntry struct {
	Turn      int
	Actor     string
	Action    string
	Narrative string
	Scene     string
}

type createdMsg struct {
	res *client.CreateResult
	err error
}

type joinedMsg struct {
	res *client.JoinResult
	err error
}

type turnMsg struct {
	game *state.GameState
	err  error
}

type polledMsg struct {
	game    *state.GameState
	changed bool
	err     error
}

type pollTickMsg struct{}

type progressTickMsg struct{}

var (
	logPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	speakerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	refereeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	sceneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	loadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	hpFullStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	hpLowStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)

	modalItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	modalSelectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("205")).
				Bold(true)
)

var separatorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("240")) // dark grey

func NewConsoleUI(cfg *ConsoleConfig, api *client.Client) ConsoleUI {
	ta := textarea.New()
	ta.Focus()
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = ActionCharLimit
	ta.SetWidth(50)
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	logVp := viewport.New(50, 20)
	logVp.MouseWheelEnabled = true

	return ConsoleUI{
		config:       cfg,
		api:          api,
		phase:        phaseMenu,
		textarea:     ta,
		logViewport:  logVp,
		metaViewport: viewport.New(20, 20),
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	return textarea.Blink
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}
	if m.phase != phaseGame {
		return m.updateSetup(msg)
	}

	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.logViewport, vpCmd = m.logViewport.Update(msg)
		return m, vpCmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.ready = true
		m.refresh()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyCtrlY:
			m.copyCode()
			m.refresh()
			return m, nil
		case tea.KeyEnter:
			action := strings.TrimSpace(m.textarea.Value())
			if strings.HasPrefix(action, "/") {
				return m.handleCommand(action)
			}
			if action == "" || m.loading || !m.myTurn() {
				return m, nil
			}

			m.textarea.Reset()
			m.loading = true
			m.err = nil
			m.progressTick = 0
			m.refresh()
			return m, tea.Batch(m.submitTurn(action), progressTick())
		}

	case turnMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.applyGame(msg.game)
		}
		m.refresh()
		return m, nil

	case pollTickMsg:
		if m.polling || m.finished() {
			return m, nil
		}
		m.polling = true
		return m, m.poll()

	case polledMsg:
		m.polling = false
		if msg.err != nil {
			m.err = msg.err
		} else if msg.changed {
			m.err = nil
			m.applyGame(msg.game)
		}
		m.refresh()
		if m.finished() {
			return m, nil
		}
		return m, m.schedulePoll()

	case progressTickMsg:
		if m.loading {
			m.progressTick++
			m.refresh()
			return m, progressTick()
		}
	}

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.logViewport, vpCmd = m.logViewport.Update(msg)
	return m, tea.Batch(tiCmd, vpCmd)
}

// updateSetup drives the menu and the code and name prompts.
func (m ConsoleUI) updateSetup(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case createdMsg:
		if msg.err != nil {
			m.err = msg.err
			m.phase = phaseName
			return m, nil
		}
		return m.enterGame(msg.res.Code, msg.res.PlayerNum, msg.res.Game)

	case joinedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.phase = phaseCode
			m.textarea.Reset()
			return m, nil
		}
		return m.enterGame(msg.res.Game.Code, msg.res.PlayerNum, msg.res.Game)

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc {
			m.showQuitModal = true
			return m, nil
		}
		if m.phase == phaseConnecting {
			return m, nil
		}

		if m.phase == phaseMenu {
			switch msg.Type {
			case tea.KeyUp:
				if m.selectedItem > 0 {
					m.selectedItem--
				}
			case tea.KeyDown:
				if m.selectedItem < len(menuItems)-1 {
					m.selectedItem++
				}
			case tea.KeyEnter:
				m.joining = m.selectedItem == 1
				m.err = nil
				m.textarea.Reset()
				if m.joining {
					m.phase = phaseCode
					m.textarea.Placeholder = "6-digit game code"
					m.textarea.CharLimit = 6
				} else {
					m.phase = phaseName
					m.textarea.Placeholder = "Your fighter's name"
					m.textarea.CharLimit = NameCharLimit
				}
			}
			return m, nil
		}

		if msg.Type == tea.KeyEnter {
			value := strings.TrimSpace(m.textarea.Value())
			m.textarea.Reset()
			m.err = nil

			if m.phase == phaseCode {
				if len(value) != 6 {
					m.err = fmt.Errorf("game codes are 6 digits")
					return m, nil
				}
				m.code = value
				m.phase = phaseName
				m.textarea.Placeholder = "Your fighter's name"
				m.textarea.CharLimit = NameCharLimit
				return m, nil
			}

			m.phase = phaseConnecting
			if m.joining {
				return m, m.joinGame(m.code, value)
			}
			return m, m.createGame(value)
		}

		var cmd tea.Cmd
		m.textarea, cmd = m.textarea.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m ConsoleUI) enterGame(code string, playerNum int, gs *state.GameState) (tea.Model, tea.Cmd) {
	m.code = code
	m.playerNum = playerNum
	m.phase = phaseGame
	m.textarea.Reset()
	m.textarea.Placeholder = "Describe your move..."
	m.textarea.CharLimit = ActionCharLimit
	m.textarea.Focus()
	m.applyGame(gs)
	if m.width > 0 && m.height > 0 {
		m.layout()
		m.ready = true
	}
	if playerNum == 1 {
		m.notice = "Share code " + code + " with your opponent (Ctrl+Y copies it)."
	}
	m.refresh()
	return m, tea.Batch(textarea.Blink, m.schedulePoll())
}

// applyGame adopts a newer record and appends any resolved turn to the log.
func (m *ConsoleUI) applyGame(gs *state.GameState) {
	if gs == nil {
		return
	}
	if m.game != nil && gs.LastUpdated < m.game.LastUpdated {
		return
	}
	m.game = gs
	if entry, ok := entryFor(gs, m.lastTurn); ok {
		m.battleLog = append(m.battleLog, entry)
	}
	if gs.Turn > m.lastTurn {
		m.lastTurn = gs.Turn
	}
}

// entryFor returns the log entry for the turn that produced gs, unless it
// was already logged.
func entryFor(gs *state.GameState, lastTurn int) (logEntry, bool) {
	if gs.Narrative == nil || gs.Turn <= lastTurn || gs.LastActor == 0 {
		return logEntry{}, false
	}
	e := logEntry{
		Turn:      gs.Turn - 1,
		Actor:     gs.PlayerName(gs.LastActor),
		Action:    gs.LastActorAction,
		Narrative: *gs.Narrative,
	}
	if gs.Scene != nil {
		e.Scene = *gs.Scene
	}
	return e, true
}

func (m ConsoleUI) myTurn() bool {
	return m.game != nil && m.game.Status == state.StatusActive && m.game.CurrentPlayer == m.playerNum
}

func (m ConsoleUI) finished() bool {
	return m.game != nil && m.game.Status == state.StatusFinished
}

func (m *ConsoleUI) copyCode() {
	if err := clipboard.WriteAll(m.code); err != nil {
		m.notice = "Could not copy code: " + err.Error()
		return
	}
	m.notice = "Code " + m.code + " copied to clipboard."
}

func (m ConsoleUI) handleCommand(input string) (tea.Model, tea.Cmd) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "/copy":
		m.copyCode()
	case "/help":
		m.notice = "Type any action on your turn and press Enter. Ctrl+Y or /copy copies the game code. Esc quits."
	default:
		m.notice = "Unknown command: " + input
	}
	m.textarea.Reset()
	m.refresh()
	return m, nil
}

func (m *ConsoleUI) layout() {
	logWidth := int(float64(m.width)*0.7) - 4
	metaWidth := m.width - logWidth - 6

	m.logViewport.Width = logWidth - 2
	m.logViewport.Height = m.height - 8
	m.metaViewport.Width = metaWidth - 2
	m.metaViewport.Height = m.height - 4
	m.textarea.SetWidth(logWidth - 4)
}

// refresh rebuilds both panels for the current width.
func (m *ConsoleUI) refresh() {
	width := m.logViewport.Width - 6
	if width < 20 {
		width = 20
	}
	m.logViewport.SetContent(m.writeBattleLog(width))
	m.logViewport.GotoBottom()
	if m.game != nil {
		m.metaViewport.SetContent(writeMetadata(m.game, m.playerNum, m.metaViewport.Width))
	}
}

func (m ConsoleUI) writeBattleLog(width int) string {
	var content strings.Builder
	content.WriteString(titleStyle.Render(Title) + "\n\n")
	content.WriteString(wordwrap.String("Anything goes. Describe any action and the referee decides what happens.", width) + "\n\n")
	content.WriteString(separatorStyle.Render(strings.Repeat("─", width)) + "\n\n")

	for _, e := range m.battleLog {
		content.WriteString(formatEntry(e, width) + "\n\n")
	}

	switch {
	case m.loading:
		content.WriteString(loadingStyle.Render("The referee is deciding...") + "\n")
		content.WriteString(m.renderProgressBar() + "\n\n")
	case m.game == nil:
	case m.game.Status == state.StatusWaiting:
		content.WriteString(loadingStyle.Render("Waiting for an opponent to join with code "+m.code+"...") + "\n\n")
	case m.game.Status == state.StatusFinished:
		content.WriteString(titleStyle.Render(winnerLine(m.game, m.playerNum)) + "\n\n")
	case m.myTurn():
		content.WriteString(speakerStyle.Render("Your turn!") + "\n\n")
	default:
		content.WriteString(promptStyle.Render("Waiting for "+m.game.PlayerName(m.game.CurrentPlayer)+"...") + "\n\n")
	}

	if m.notice != "" {
		content.WriteString(promptStyle.Render(wordwrap.String(m.notice, width)) + "\n\n")
	}
	if m.err != nil {
		content.WriteString(errorStyle.Render(wordwrap.String("Error: "+m.err.Error(), width)) + "\n\n")
	}
	return content.String()
}

func formatEntry(e logEntry, width int) string {
	var b strings.Builder
	b.WriteString(speakerStyle.Render(fmt.Sprintf("Turn %d · %s:", e.Turn, e.Actor)))
	b.WriteString(" " + wordwrap.String(e.Action, width) + "\n\n")
	b.WriteString(refereeStyle.Render(RefereeName+": ") + wordwrap.String(e.Narrative, width-len(RefereeName)-2))
	if strings.TrimSpace(e.Scene) != "" {
		b.WriteString("\n\n" + sceneStyle.Render(e.Scene))
	}
	return b.String()
}

func winnerLine(gs *state.GameState, playerNum int) string {
	switch w := gs.Winner(); {
	case w == 0:
		return "Double knockout! Nobody wins."
	case w == playerNum:
		return "You win! " + gs.PlayerName(w) + " is the last one standing."
	default:
		return gs.PlayerName(w) + " wins. Better luck next time."
	}
}

func writeMetadata(gs *state.GameState, playerNum, width int) string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("BATTLE") + "\n\n")

	content.WriteString("Game code:\n")
	content.WriteString(gs.Code + "\n\n")

	content.WriteString("Status:\n")
	content.WriteString(string(gs.Status) + "\n\n")

	content.WriteString(fmt.Sprintf("Turn: %d\n\n", gs.Turn))

	for _, p := range []int{1, 2} {
		name := gs.PlayerName(p)
		if p == playerNum {
			name += " (you)"
		}
		hp := gs.P1HP
		if p == 2 {
			hp = gs.P2HP
		}
		content.WriteString(name + "\n")
		content.WriteString(hpBar(hp, width-8) + fmt.Sprintf(" %d\n\n", hp))
	}

	content.WriteString("Situation:\n")
	content.WriteString(wordwrap.String(gs.Situation, width) + "\n\n")

	if gs.ImageURL != nil {
		content.WriteString("Scene image:\n")
		content.WriteString(*gs.ImageURL + "\n\n")
	}

	content.WriteString("Commands:\n")
	content.WriteString("• Enter: Act\n")
	content.WriteString("• Ctrl+Y: Copy code\n")
	content.WriteString("• /help: Help\n")
	content.WriteString("• Esc: Quit\n")
	return content.String()
}

// hpBar draws hp out of state.MaxHP across width cells.
func hpBar(hp, width int) string {
	if width < 5 {
		width = 5
	}
	if width > 20 {
		width = 20
	}
	filled := hp * width / state.MaxHP
	if hp > 0 && filled == 0 {
		filled = 1
	}
	style := hpFullStyle
	if hp <= 30 {
		style = hpLowStyle
	}
	return style.Render(strings.Repeat("█", filled)) + promptStyle.Render(strings.Repeat("░", width-filled))
}

func (m ConsoleUI) createGame(name string) tea.Cmd {
	return func() tea.Msg {
		res, err := m.api.Create(context.Background(), name)
		return createdMsg{res, err}
	}
}

func (m ConsoleUI) joinGame(code, name string) tea.Cmd {
	return func() tea.Msg {
		res, err := m.api.Join(context.Background(), code, name)
		return joinedMsg{res, err}
	}
}

func (m ConsoleUI) submitTurn(action string) tea.Cmd {
	code, playerNum := m.code, m.playerNum
	return func() tea.Msg {
		gs, err := m.api.Turn(context.Background(), code, playerNum, action)
		return turnMsg{gs, err}
	}
}

func (m ConsoleUI) poll() tea.Cmd {
	code := m.code
	var since float64
	if m.game != nil {
		since = m.game.LastUpdated
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		gs, changed, err := m.api.Poll(ctx, code, since)
		return polledMsg{gs, changed, err}
	}
}

func (m ConsoleUI) schedulePoll() tea.Cmd {
	return tea.Tick(m.config.PollInterval, func(time.Time) tea.Msg {
		return pollTickMsg{}
	})
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyEnter:
			return m, tea.Quit
		default:
			switch msg.String() {
			case "y", "Y":
				return m, tea.Quit
			case "n", "N":
				m.showQuitModal = false
				m.textarea.Focus()
				return m, textarea.Blink
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Quit Game?"))
	content.WriteString("\n\n")
	content.WriteString("Your opponent will be left waiting. Quit anyway?")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) renderSetupModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	switch m.phase {
	case phaseMenu:
		content.WriteString(modalTitleStyle.Render(Title))
		content.WriteString("\n\n")
		for i, item := range menuItems {
			if i == m.selectedItem {
				content.WriteString(modalSelectedItemStyle.Render("▶ " + item))
			} else {
				content.WriteString(modalItemStyle.Render("  " + item))
			}
			content.WriteString("\n")
		}
		content.WriteString("\n")
		content.WriteString(promptStyle.Render("Use ↑/↓ to navigate, Enter to select, Ctrl+C to exit"))
	case phaseCode:
		content.WriteString(modalTitleStyle.Render("Join a Game"))
		content.WriteString("\n\nEnter the code your opponent shared:\n\n")
		content.WriteString(m.textarea.View())
	case phaseName:
		content.WriteString(modalTitleStyle.Render("Name Your Fighter"))
		content.WriteString("\n\n")
		content.WriteString(m.textarea.View())
	case phaseConnecting:
		content.WriteString(modalTitleStyle.Render("Entering the Arena..."))
		content.WriteString("\n\n")
		content.WriteString(loadingStyle.Render("Please wait..."))
	}

	if m.err != nil {
		content.WriteString("\n\n")
		content.WriteString(errorStyle.Render(m.err.Error()))
	}

	modal := modalStyle.Width(60).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showQuitModal {
		return m.renderQuitModal()
	}
	if m.phase != phaseGame {
		return m.renderSetupModal()
	}
	if !m.ready {
		return "\n  Initializing..."
	}

	logWidth := int(float64(m.width)*0.7) - 4
	metaWidth := m.width - logWidth - 6

	input := m.textarea.View()
	if !m.myTurn() {
		input = promptStyle.Render(":: waiting...")
	}

	logPanel := logPanelStyle.Width(logWidth).Height(m.height - 3).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.logViewport.View(),
			"",
			separatorStyle.Render(strings.Repeat("─", logWidth-4)),
			input,
		),
	)

	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, logPanel, metaPanel)
}

// renderProgressBar creates an animated progress bar for loading states
func (m ConsoleUI) renderProgressBar() string {
	usable := m.logViewport.Width - 6
	if usable <= 0 {
		usable = 30
	}
	if usable > 80 {
		usable = 80
	} else if usable < 10 {
		usable = 10
	}

	const totalFrames = 40
	frame := m.progressTick % totalFrames
	filled := (frame * usable) / totalFrames

	var bar strings.Builder
	for i := 0; i < usable; i++ {
		if i < filled {
			bar.WriteString("█")
		} else if i == filled && frame%4 < 2 {
			bar.WriteString("▓")
		} else {
			bar.WriteString("░")
		}
	}
	return separatorStyle.Render(bar.String())
}

func progressTick() tea.Cmd {
	return tea.Tick(time.Millisecond*200, func(time.Time) tea.Msg {
		return progressTickMsg{}
	})
}

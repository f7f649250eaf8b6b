package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jwebster45206/npc-engine/internal/handlers"
	"github.com/jwebster45206/npc-engine/pkg/world"
	"github.com/muesli/reflow/wordwrap"
)

const (
	SystemName      = "World"
	PlaceHolderText = "Enter an option number or /help..."
	DefaultSlot     = "console"
)

type lineKind int

const (
	lineSpeech lineKind = iota
	lineChoice
	lineSystem
	lineError
)

type transcriptLine struct {
	kind    lineKind
	speaker string
	text    string
}

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	client       *apiClient
	transcript   []transcriptLine
	dialogue     *handlers.DialogueResponse
	status       *world.CharacterStatus
	chatViewport viewport.Model
	metaViewport viewport.Model
	textarea     textarea.Model
	ready        bool
	width        int
	height       int
	err          error
	loading      bool

	// Character selection state
	showCharacterModal bool
	characters         []world.CharacterStatus
	selectedCharacter  int
	loadingCharacters  bool

	// Quit confirmation state
	showQuitModal bool

	// Progress bar state
	progressTick int
}

type charactersLoadedMsg struct {
	characters []world.CharacterStatus
	err        error
}

type dialogueMsg struct {
	response *handlers.DialogueResponse
	err      error
}

type statusMsg struct {
	status *world.CharacterStatus
	err    error
}

type commandResultMsg struct {
	text string
	err  error
}

type progressTickMsg struct{}

var (
	chatPanelStyle = lipgloss.NewStyle().
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

	emotionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	systemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	optionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	loadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

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

func NewConsoleUI(client *apiClient) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = PlaceHolderText
	ta.Focus()
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = 200
	ta.SetWidth(50)
	ta.SetHeight(1)
	ta.ShowLineNumbers = false

	chatVp := viewport.New(50, 20)
	chatVp.MouseWheelEnabled = true

	metaVp := viewport.New(20, 20)

	return ConsoleUI{
		client:             client,
		textarea:           ta,
		chatViewport:       chatVp,
		metaViewport:       metaVp,
		showCharacterModal: true,
		loadingCharacters:  true,
	}
}

func writeMetadata(cs *world.CharacterStatus) string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("CHARACTER") + "\n\n")

	if cs == nil {
		content.WriteString("Nobody selected.\n\n")
	} else {
		content.WriteString(cs.Name + "\n")
		if len(cs.Traits) > 0 {
			content.WriteString(promptStyle.Render(strings.Join(cs.Traits, ", ")) + "\n")
		}
		content.WriteString("\n")

		content.WriteString("Activity:\n")
		content.WriteString(fmt.Sprintf("%s @ %s\n\n", cs.Activity.Kind, cs.Activity.Location))

		content.WriteString("Relationship:\n")
		content.WriteString(fmt.Sprintf("%+d (%s)\n\n", cs.Relationship, cs.Tier))

		content.WriteString("Conversations:\n")
		content.WriteString(fmt.Sprintf("%d choices made\n\n", cs.DialogueCount))

		if len(cs.Flags) > 0 {
			content.WriteString("Flags:\n")
			for _, f := range cs.Flags {
				content.WriteString("• " + f + "\n")
			}
			content.WriteString("\n")
		}

		if len(cs.Memories) > 0 {
			content.WriteString("Remembers:\n")
			for _, mem := range cs.Memories {
				content.WriteString(fmt.Sprintf("• %s (%+d)\n", mem.Text, mem.Impact))
			}
			content.WriteString("\n")
		}
	}

	content.WriteString("Commands:\n")
	content.WriteString("• 1-9: Choose\n")
	content.WriteString("• /talk: Pick NPC\n")
	content.WriteString("• /end: Leave\n")
	content.WriteString("• /save, /load\n")
	content.WriteString("• /copy: Transcript\n")
	content.WriteString("• /help: Help\n")

	return content.String()
}

// writeChatContent rebuilds the transcript for the current viewport width
func (m *ConsoleUI) writeChatContent() {
	chatWidth := m.chatViewport.Width - 6 // Account for left(3) + right(3) padding
	if chatWidth < 20 {
		chatWidth = 20
	}

	var content strings.Builder
	content.WriteString(titleStyle.Render("NPC ENGINE") + "\n\n")
	content.WriteString("Choose what to say by entering the option number.\n\n")
	content.WriteString(separatorStyle.Render(strings.Repeat("─", chatWidth-6)) + "\n\n")

	for _, line := range m.transcript {
		content.WriteString(formatLine(line, chatWidth) + "\n\n")
	}

	if m.dialogue != nil && m.dialogue.Active {
		for i, o := range m.dialogue.Options {
			opt := wordwrap.String(fmt.Sprintf("%d. %s", i+1, o.Text), chatWidth-4)
			content.WriteString("  " + optionStyle.Render(opt) + "\n")
		}
		content.WriteString("\n")
	}

	if m.loading {
		content.WriteString(m.renderProgressBar())
	}

	m.chatViewport.SetContent(content.String())
	m.chatViewport.GotoBottom()
}

func formatLine(line transcriptLine, width int) string {
	switch line.kind {
	case lineSpeech:
		prefix := line.speaker + ": "
		wrapped := wordwrap.String(line.text, width-len(prefix))
		return speakerStyle.Render(prefix) + wrapped
	case lineChoice:
		return userStyle.Render("You: ") + wordwrap.String(line.text, width-6)
	case lineError:
		return errorStyle.Render("Error: " + wordwrap.String(line.text, width-8))
	default:
		return systemStyle.Render(SystemName+": ") + wordwrap.String(line.text, width-len(SystemName)-2)
	}
}

// plainTranscript renders the transcript without styling, for the clipboard.
func (m ConsoleUI) plainTranscript() string {
	var b strings.Builder
	for _, line := range m.transcript {
		switch line.kind {
		case lineSpeech:
			b.WriteString(line.speaker + ": " + line.text)
		case lineChoice:
			b.WriteString("You: " + line.text)
		case lineError:
			b.WriteString("Error: " + line.text)
		default:
			b.WriteString(SystemName + ": " + line.text)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m *ConsoleUI) appendLine(kind lineKind, speaker, text string) {
	m.transcript = append(m.transcript, transcriptLine{kind: kind, speaker: speaker, text: text})
}

func (m *ConsoleUI) resize() {
	chatWidth := int(float64(m.width)*0.75) - 4
	metaWidth := m.width - chatWidth - 6

	m.chatViewport.Width = chatWidth - 2
	m.chatViewport.Height = m.height - 5
	m.metaViewport.Width = metaWidth - 2
	m.metaViewport.Height = m.height - 4
	m.textarea.SetWidth(chatWidth - 4)
}

func (m ConsoleUI) Init() tea.Cmd {
	return m.loadCharacters()
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	if m.showCharacterModal {
		return m.updateCharacterModal(msg)
	}

	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		mvCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.chatViewport, vpCmd = m.chatViewport.Update(msg)
		m.metaViewport, mvCmd = m.metaViewport.Update(msg)
		return m, tea.Batch(vpCmd, mvCmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.ready = true
		m.writeChatContent()
		m.metaViewport.SetContent(writeMetadata(m.status))

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyEnter:
			if m.loading {
				return m, nil
			}

			input := strings.TrimSpace(m.textarea.Value())
			m.textarea.Reset()
			if input == "" {
				return m, nil
			}

			if strings.HasPrefix(input, "/") {
				return m.handleCommand(input)
			}
			return m.choose(input)
		}

	case dialogueMsg:
		m.loading = false
		m.applyDialogue(msg)
		m.writeChatContent()
		return m, m.refreshStatus()

	case statusMsg:
		if msg.err == nil && msg.status != nil {
			m.status = msg.status
			m.metaViewport.SetContent(writeMetadata(m.status))
		}

	case commandResultMsg:
		m.loading = false
		if msg.err != nil {
			m.appendLine(lineError, "", msg.err.Error())
		} else if msg.text != "" {
			m.appendLine(lineSystem, "", msg.text)
		}
		m.writeChatContent()
		return m, m.refreshStatus()

	case progressTickMsg:
		if m.loading {
			m.progressTick++
			m.writeChatContent()
			return m, progressTick()
		}
	}

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.chatViewport, vpCmd = m.chatViewport.Update(msg)
	m.metaViewport, mvCmd = m.metaViewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd, mvCmd)
}

// choose interprets input as a 1-based option number.
func (m ConsoleUI) choose(input string) (tea.Model, tea.Cmd) {
	if m.dialogue == nil || !m.dialogue.Active {
		m.appendLine(lineError, "", "No conversation in progress. Use /talk to pick someone.")
		m.writeChatContent()
		return m, nil
	}

	n, err := strconv.Atoi(input)
	if err != nil || n < 1 || n > len(m.dialogue.Options) {
		m.appendLine(lineError, "", fmt.Sprintf("Enter a number between 1 and %d.", len(m.dialogue.Options)))
		m.writeChatContent()
		return m, nil
	}

	option := m.dialogue.Options[n-1]
	m.appendLine(lineChoice, "", option.Text)
	m.loading = true
	m.progressTick = 0
	m.writeChatContent()

	client := m.client
	return m, tea.Batch(func() tea.Msg {
		resp, err := client.selectOption(option.Index)
		return dialogueMsg{resp, err}
	}, progressTick())
}

func (m *ConsoleUI) applyDialogue(msg dialogueMsg) {
	if msg.err != nil {
		m.appendLine(lineError, "", msg.err.Error())
		return
	}
	resp := msg.response
	if out := resp.Outcome; out != nil {
		if out.Delta != 0 {
			m.appendLine(lineSystem, "", fmt.Sprintf("Relationship %+d (now %d).", out.Delta, out.Relationship))
		}
		if out.QuestStarted {
			m.appendLine(lineSystem, "", "New quest started.")
		}
	}
	if !resp.Active {
		if m.dialogue != nil && m.dialogue.Active {
			m.appendLine(lineSystem, "", "The conversation ends.")
		}
		m.dialogue = resp
		return
	}
	speaker := resp.Character
	if resp.Emotion != "" {
		speaker += " " + emotionStyle.Render("("+resp.Emotion+")")
	}
	m.appendLine(lineSpeech, speaker, resp.Text)
	m.dialogue = resp
}

func (m ConsoleUI) handleCommand(input string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(input)
	cmd := strings.ToLower(fields[0])
	arg := ""
	if len(fields) > 1 {
		arg = fields[1]
	}
	client := m.client

	switch cmd {
	case "/help":
		m.appendLine(lineSystem, "", `Commands:
• 1-9 - Choose a dialogue option
• /talk - Pick someone to talk to
• /end - End the conversation
• /save [slot] - Save the world
• /load [slot] - Load the world
• /status - Refresh the character panel
• /copy - Copy the transcript to the clipboard
• /quit - Quit`)

	case "/talk":
		if m.dialogue != nil && m.dialogue.Active {
			m.appendLine(lineError, "", "Finish this conversation first, or use /end.")
			break
		}
		m.showCharacterModal = true
		m.loadingCharacters = true
		m.err = nil
		return m, m.loadCharacters()

	case "/end":
		m.loading = true
		m.writeChatContent()
		return m, func() tea.Msg {
			if err := client.endDialogue(); err != nil {
				return commandResultMsg{err: err}
			}
			return dialogueMsg{response: &handlers.DialogueResponse{}}
		}

	case "/save", "/load":
		slot := arg
		if slot == "" {
			slot = DefaultSlot
		}
		m.loading = true
		m.writeChatContent()
		if cmd == "/save" {
			return m, func() tea.Msg {
				if err := client.save(slot); err != nil {
					return commandResultMsg{err: err}
				}
				return commandResultMsg{text: "Saved to " + slot + "."}
			}
		}
		m.dialogue = nil
		return m, func() tea.Msg {
			if err := client.load(slot); err != nil {
				return commandResultMsg{err: err}
			}
			return commandResultMsg{text: "Loaded " + slot + "."}
		}

	case "/status":
		return m, m.refreshStatus()

	case "/copy":
		if err := clipboard.WriteAll(m.plainTranscript()); err != nil {
			m.appendLine(lineError, "", "Clipboard unavailable: "+err.Error())
		} else {
			m.appendLine(lineSystem, "", "Transcript copied.")
		}

	case "/quit":
		m.showQuitModal = true
		return m, nil

	default:
		m.appendLine(lineError, "", "Unknown command "+cmd+". Try /help.")
	}

	m.writeChatContent()
	return m, nil
}

func (m ConsoleUI) refreshStatus() tea.Cmd {
	id := -1
	if m.dialogue != nil && m.dialogue.Session != nil {
		id = m.dialogue.Session.CharacterID
	} else if m.status != nil {
		id = m.status.ID
	}
	if id < 0 {
		return nil
	}
	client := m.client
	return func() tea.Msg {
		cs, err := client.getCharacter(id)
		return statusMsg{cs, err}
	}
}

func (m ConsoleUI) loadCharacters() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		chars, err := client.listCharacters()
		return charactersLoadedMsg{chars, err}
	}
}

func (m ConsoleUI) startDialogue(cs world.CharacterStatus) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		resp, err := client.startDialogue(cs.ID, "")
		return dialogueMsg{resp, err}
	}
}

func (m ConsoleUI) updateCharacterModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case charactersLoadedMsg:
		m.loadingCharacters = false
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.characters = msg.characters
			if m.selectedCharacter >= len(m.characters) {
				m.selectedCharacter = 0
			}
		}

	case dialogueMsg:
		m.loading = false
		m.showCharacterModal = false
		if m.width > 0 && m.height > 0 {
			m.resize()
		}
		m.ready = true
		m.applyDialogue(msg)
		m.writeChatContent()
		m.textarea.Focus()
		return m, tea.Batch(textarea.Blink, m.refreshStatus())

	case tea.KeyMsg:
		if m.loadingCharacters || m.loading {
			if msg.Type == tea.KeyCtrlC {
				return m, tea.Quit
			}
			return m, nil
		}

		switch msg.Type {
		case tea.KeyCtrlC:
			m.showQuitModal = true
			return m, nil
		case tea.KeyEsc:
			if m.ready {
				m.showCharacterModal = false
				m.textarea.Focus()
				return m, textarea.Blink
			}
			m.showQuitModal = true
			return m, nil
		case tea.KeyUp:
			if m.selectedCharacter > 0 {
				m.selectedCharacter--
			}
		case tea.KeyDown:
			if m.selectedCharacter < len(m.characters)-1 {
				m.selectedCharacter++
			}
		case tea.KeyEnter:
			if m.err == nil && len(m.characters) > 0 {
				cs := m.characters[m.selectedCharacter]
				m.status = &cs
				m.metaViewport.SetContent(writeMetadata(m.status))
				m.loading = true
				return m, m.startDialogue(cs)
			}
		}
	}

	return m, nil
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
				if m.showCharacterModal {
					return m, nil
				}
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
	content.WriteString(modalTitleStyle.Render("Quit?"))
	content.WriteString("\n\n")
	content.WriteString("The world keeps running on the server. Quit the console?")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) renderCharacterModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder

	switch {
	case m.loadingCharacters:
		content.WriteString(modalTitleStyle.Render("Loading Characters..."))
		content.WriteString("\n\n")
		content.WriteString(loadingStyle.Render("Please wait while we see who is around..."))
	case m.err != nil:
		content.WriteString(modalTitleStyle.Render("Error"))
		content.WriteString("\n\n")
		content.WriteString(errorStyle.Render(fmt.Sprintf("Failed to load characters: %v", m.err)))
		content.WriteString("\n\n")
		content.WriteString("Press Ctrl+C to exit")
	case m.loading:
		content.WriteString(modalTitleStyle.Render("Starting Conversation..."))
	case len(m.characters) == 0:
		content.WriteString(modalTitleStyle.Render("Nobody Here"))
		content.WriteString("\n\n")
		content.WriteString("No characters are loaded. Add files under data/characters.")
	default:
		content.WriteString(modalTitleStyle.Render("Talk to Someone"))
		content.WriteString("\n\n")

		for i, cs := range m.characters {
			label := fmt.Sprintf("%s - %s @ %s (%s)", cs.Name, cs.Activity.Kind, cs.Activity.Location, cs.Tier)
			if i == m.selectedCharacter {
				content.WriteString(modalSelectedItemStyle.Render("▶ " + label))
			} else {
				content.WriteString(modalItemStyle.Render("  " + label))
			}
			content.WriteString("\n")
		}

		content.WriteString("\n")
		content.WriteString(promptStyle.Render("Use ↑/↓ to navigate, Enter to talk, Esc to close"))
	}

	modal := modalStyle.Width(70).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showQuitModal {
		return m.renderQuitModal()
	}

	if m.showCharacterModal {
		return m.renderCharacterModal()
	}

	if !m.ready {
		return "\n  Initializing..."
	}

	chatWidth := int(float64(m.width)*0.75) - 4
	metaWidth := m.width - chatWidth - 6

	chatPanel := chatPanelStyle.Width(chatWidth).Height(m.height - 3).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.chatViewport.View(),
			"",
			separatorStyle.Render(strings.Repeat("─", max(chatWidth-4, 1))),
			m.textarea.View(),
		),
	)

	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, chatPanel, metaPanel)
}

// renderProgressBar creates an animated progress bar for loading states
func (m ConsoleUI) renderProgressBar() string {
	usable := m.chatViewport.Width - 6
	if usable > 60 {
		usable = 60
	} else if usable < 10 {
		usable = 10
	}

	const totalFrames = 40
	frame := m.progressTick % totalFrames
	filled := (frame * usable) / totalFrames

	var bar strings.Builder
	for i := range usable {
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

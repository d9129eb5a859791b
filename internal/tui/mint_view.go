package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/lafiyatech/medimint/internal/chain"
	"github.com/lafiyatech/medimint/internal/logbook"
	"github.com/lafiyatech/medimint/internal/mint"
)

// mintState represents which "screen" of the studio we're on
type mintState int

const (
	mintGallery mintState = iota // Collection plus wallet panel
	mintForm                     // New mint request
)

var mintPhaseOrder = []mint.Phase{
	mint.PhaseUploading,
	mint.PhaseAwaitingSignature,
	mint.PhaseConfirming,
	mint.PhaseReconciling,
}

var mintPhaseNames = map[mint.Phase]string{
	mint.PhaseUploading:         "Upload",
	mint.PhaseAwaitingSignature: "Sign",
	mint.PhaseConfirming:        "Confirm",
	mint.PhaseReconciling:       "Reconcile",
}

type galleryRefreshedMsg struct {
	err error
}

type mintDoneMsg struct {
	record mint.Record
	err    error
}

type phaseChangedMsg struct {
	phase mint.Phase
}

type signPromptMsg struct{}

// tokenItem adapts a minted token record to the bubbles list.
type tokenItem struct {
	record mint.Record
	mine   bool
}

func (i tokenItem) Title() string {
	name := "(metadata pending)"
	if i.record.Metadata != nil && i.record.Metadata.Name != "" {
		name = i.record.Metadata.Name
	}
	title := fmt.Sprintf("#%s · %s", i.record.TokenID, name)
	if i.mine {
		title += " ★"
	}
	return title
}

func (i tokenItem) Description() string {
	desc := fmt.Sprintf("owner %s", shortAddress(i.record.Owner.Hex()))
	if i.record.Metadata != nil && i.record.Metadata.Description != "" {
		desc = truncate(i.record.Metadata.Description, 40) + " · " + desc
	}
	return desc
}

func (i tokenItem) FilterValue() string { return i.record.TokenID.String() }

// MintApp is the NFT studio model. The gallery it renders is a cache of
// confirmed chain state; the mint form drives the workflow and every
// phase transition arrives as a message from the workflow goroutine.
type MintApp struct {
	workflow *mint.Workflow
	gallery  *mint.Gallery
	session  chain.Session
	signer   chain.Signer
	logbook  *logbook.Logbook

	state     mintState
	tokenList list.Model

	nameInput      textinput.Model
	descInput      textinput.Model
	recipientInput textinput.Model
	assetInput     textinput.Model
	formFocus      int

	phase      mint.Phase
	signPrompt bool
	confirmCh  chan bool
	mineOnly   bool

	statusMsg string
	err       error

	width  int
	height int
}

// NewMintApp builds the studio around a connected session.
func NewMintApp(wf *mint.Workflow, gallery *mint.Gallery, session chain.Session, signer chain.Signer, lb *logbook.Logbook) *MintApp {
	tokenList := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	tokenList.Title = "Collection"
	tokenList.SetShowStatusBar(false)
	tokenList.SetFilteringEnabled(false)
	tokenList.SetShowHelp(false)

	newInput := func(placeholder string, width int) textinput.Model {
		in := textinput.New()
		in.Placeholder = placeholder
		in.Width = width
		return in
	}

	return &MintApp{
		workflow:       wf,
		gallery:        gallery,
		session:        session,
		signer:         signer,
		logbook:        lb,
		state:          mintGallery,
		tokenList:      tokenList,
		nameInput:      newInput("Token name", 32),
		descInput:      newInput("Description", 48),
		recipientInput: newInput("0x recipient address", 44),
		assetInput:     newInput("Path to asset file", 48),
		phase:          mint.PhaseIdle,
		confirmCh:      make(chan bool, 1),
		statusMsg:      "Loading collection...",
	}
}

// Wire connects the running program to the workflow's callbacks. Phase
// changes and signature prompts originate on the workflow goroutine, so
// they have to enter the UI as messages.
func (a *MintApp) Wire(p *tea.Program) {
	a.workflow.SetObserver(func(phase mint.Phase) {
		p.Send(phaseChangedMsg{phase: phase})
	})
	a.signer = &chain.ConfirmSigner{
		Inner: a.signer,
		Confirm: func(*types.Transaction) bool {
			p.Send(signPromptMsg{})
			return <-a.confirmCh
		},
	}
}

// Init is called once when the program starts.
func (a *MintApp) Init() tea.Cmd {
	return a.refreshCmd()
}

func (a *MintApp) refreshCmd() tea.Cmd {
	account := a.session.Account
	return func() tea.Msg {
		return galleryRefreshedMsg{err: a.gallery.Refresh(context.Background(), account)}
	}
}

func (a *MintApp) mintCmd(req mint.Request) tea.Cmd {
	return func() tea.Msg {
		record, err := a.workflow.Run(context.Background(), a.session, a.signer, req)
		return mintDoneMsg{record: record, err: err}
	}
}

// Update is called when a message is received.
func (a *MintApp) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.tokenList.SetSize(max(0, msg.Width/2-6), max(0, msg.Height-14))
		return a, nil

	case galleryRefreshedMsg:
		if msg.err != nil {
			a.err = msg.err
		} else {
			a.err = nil
			a.statusMsg = "Collection refreshed"
		}
		a.applyGallery()
		return a, nil

	case phaseChangedMsg:
		a.phase = msg.phase
		if msg.phase == mint.PhaseIdle {
			a.signPrompt = false
		}
		return a, nil

	case signPromptMsg:
		a.signPrompt = true
		a.statusMsg = "Transaction ready · y to sign, n to reject"
		return a, nil

	case mintDoneMsg:
		a.signPrompt = false
		if msg.err != nil {
			a.err = msg.err
			return a, nil
		}
		a.err = nil
		a.statusMsg = fmt.Sprintf("Minted token #%s", msg.record.TokenID)
		a.state = mintGallery
		a.applyGallery()
		return a, a.refreshCmd()

	case tea.KeyMsg:
		return a.handleKey(msg)
	}

	return a.updateFocused(msg)
}

func (a *MintApp) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		return a, tea.Quit
	}

	if a.signPrompt {
		switch key {
		case "y", "Y":
			a.signPrompt = false
			a.statusMsg = "Signature granted"
			a.answerPrompt(true)
			return a, nil
		case "n", "N", "esc":
			a.signPrompt = false
			a.statusMsg = ""
			a.answerPrompt(false)
			return a, nil
		}
		return a, nil
	}

	switch a.state {
	case mintGallery:
		switch key {
		case "q":
			return a, tea.Quit
		case "r":
			a.statusMsg = "Refreshing collection..."
			return a, a.refreshCmd()
		case "m":
			return a.openMintForm(), nil
		case "t":
			a.mineOnly = !a.mineOnly
			a.applyGallery()
			return a, nil
		}

	case mintForm:
		switch key {
		case "esc":
			if a.phase == mint.PhaseIdle {
				a.state = mintGallery
				a.statusMsg = ""
			}
			return a, nil
		case "tab", "down":
			a.setFormFocus((a.formFocus + 1) % 4)
			return a, nil
		case "shift+tab", "up":
			a.setFormFocus((a.formFocus + 3) % 4)
			return a, nil
		case "enter":
			if a.phase != mint.PhaseIdle {
				return a, nil
			}
			req := mint.Request{
				Name:        strings.TrimSpace(a.nameInput.Value()),
				Description: strings.TrimSpace(a.descInput.Value()),
				Recipient:   strings.TrimSpace(a.recipientInput.Value()),
				AssetPath:   strings.TrimSpace(a.assetInput.Value()),
			}
			a.statusMsg = "Minting..."
			return a, a.mintCmd(req)
		}
	}

	return a.updateFocused(msg)
}

// answerPrompt resolves a pending signature prompt without ever blocking
// the UI loop.
func (a *MintApp) answerPrompt(granted bool) {
	select {
	case a.confirmCh <- granted:
	default:
	}
}

func (a *MintApp) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.state {
	case mintGallery:
		a.tokenList, cmd = a.tokenList.Update(msg)
	case mintForm:
		switch a.formFocus {
		case 0:
			a.nameInput, cmd = a.nameInput.Update(msg)
		case 1:
			a.descInput, cmd = a.descInput.Update(msg)
		case 2:
			a.recipientInput, cmd = a.recipientInput.Update(msg)
		case 3:
			a.assetInput, cmd = a.assetInput.Update(msg)
		}
	}
	return a, cmd
}

func (a *MintApp) applyGallery() {
	snap := a.gallery.Snapshot()
	items := make([]list.Item, 0, len(snap.Records))
	for _, record := range snap.Records {
		mine := snap.Mine[record.TokenID.String()]
		if a.mineOnly && !mine {
			continue
		}
		items = append(items, tokenItem{record: record, mine: mine})
	}
	a.tokenList.SetItems(items)
	if a.mineOnly {
		a.tokenList.Title = "Collection · mine"
	} else {
		a.tokenList.Title = "Collection"
	}
}

func (a *MintApp) openMintForm() *MintApp {
	a.state = mintForm
	a.nameInput.SetValue("")
	a.descInput.SetValue("")
	a.recipientInput.SetValue(a.session.Account.Hex())
	a.assetInput.SetValue("")
	a.setFormFocus(0)
	a.statusMsg = "Describe the token to mint"
	return a
}

func (a *MintApp) setFormFocus(idx int) {
	a.formFocus = idx
	inputs := []*textinput.Model{&a.nameInput, &a.descInput, &a.recipientInput, &a.assetInput}
	for i, in := range inputs {
		if i == idx {
			in.Focus()
		} else {
			in.Blur()
		}
	}
}

// View renders the current state to a string.
func (a *MintApp) View() string {
	width := a.width
	if width <= 0 {
		width = 100
	}
	leftWidth := width/2 - 2
	rightWidth := width - leftWidth - 4

	var left string
	if a.state == mintForm {
		left = renderPanel("MINT", a.renderMintForm(), leftWidth)
	} else {
		a.tokenList.SetSize(max(20, leftWidth-4), max(8, a.height-14))
		left = panelStyle.Width(max(24, leftWidth)).Render(a.tokenList.View())
	}

	right := lipgloss.JoinVertical(lipgloss.Left,
		renderPanel("WALLET", a.renderWallet(), rightWidth),
		renderPanel("MINT PROGRESS", a.renderPhases(), rightWidth),
	)

	sections := []string{
		renderBanner("NFT STUDIO"),
		lipgloss.JoinHorizontal(lipgloss.Top, left, right),
	}
	if logPanel := renderLogPanel(a.logbook); logPanel != "" {
		sections = append(sections, logPanel)
	}
	sections = append(sections, a.renderFooter())
	return strings.Join(sections, "\n")
}

func (a *MintApp) renderWallet() string {
	snap := a.gallery.Snapshot()
	lines := []string{
		fmt.Sprintf("Account  %s", shortAddress(a.session.Account.Hex())),
		fmt.Sprintf("Chain    %s", a.session.ChainID),
	}
	if snap.Balance != nil {
		lines = append(lines, fmt.Sprintf("Rewards  %s", snap.Balance))
	}
	if snap.RewardAmount != nil {
		lines = append(lines, fmt.Sprintf("Per mint %s", snap.RewardAmount))
	}
	mineCount := 0
	for _, owned := range snap.Mine {
		if owned {
			mineCount++
		}
	}
	lines = append(lines, fmt.Sprintf("Minted   %d of %d tokens", mineCount, len(snap.Records)))
	return strings.Join(lines, "\n")
}

func (a *MintApp) renderPhases() string {
	if a.phase == mint.PhaseIdle {
		return mutedStyle.Render("Idle")
	}
	var parts []string
	reached := true
	for _, phase := range mintPhaseOrder {
		name := mintPhaseNames[phase]
		switch {
		case phase == a.phase:
			parts = append(parts, panelTitleStyle.Render("["+name+"]"))
			reached = false
		case reached:
			parts = append(parts, okStyle.Render(name))
		default:
			parts = append(parts, mutedStyle.Render(name))
		}
	}
	return strings.Join(parts, " → ")
}

func (a *MintApp) renderMintForm() string {
	labels := []string{"Name", "Description", "Recipient", "Asset"}
	labels[a.formFocus] = "> " + labels[a.formFocus]
	lines := []string{
		fmt.Sprintf("%-13s %s", labels[0], a.nameInput.View()),
		fmt.Sprintf("%-13s %s", labels[1], a.descInput.View()),
		fmt.Sprintf("%-13s %s", labels[2], a.recipientInput.View()),
		fmt.Sprintf("%-13s %s", labels[3], a.assetInput.View()),
		"",
		hintStyle.Render("Tab → switch field    Enter → mint    Esc → back"),
	}
	return strings.Join(lines, "\n")
}

func (a *MintApp) renderFooter() string {
	if a.err != nil {
		return renderStatus("", a.err)
	}
	msg := a.statusMsg
	if a.state == mintGallery && !a.signPrompt {
		hint := "m mint · t mine/all · r refresh · q quit"
		if msg == "" {
			msg = hint
		} else {
			msg = msg + "    " + hint
		}
	}
	return renderStatus(msg, nil)
}

func shortAddress(hex string) string {
	if len(hex) <= 12 {
		return hex
	}
	return hex[:8] + "…" + hex[len(hex)-4:]
}

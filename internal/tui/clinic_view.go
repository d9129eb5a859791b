package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lafiyatech/medimint/internal/clinic"
	"github.com/lafiyatech/medimint/internal/fault"
	"github.com/lafiyatech/medimint/internal/logbook"
)

// clinicState represents which "screen" of the clinic dashboard we're on
type clinicState int

const (
	clinicDashboard   clinicState = iota // Slot list plus today's appointments
	clinicSlotForm                       // Add or edit a slot
	clinicAlertForm                      // Compose an SMS alert
	clinicAlertDetail                    // Sent-alert history
)

const clinicRefreshInterval = 30 * time.Second

type clinicRefreshedMsg struct {
	background bool
	err        error
}

type slotSavedMsg struct {
	slot clinic.Slot
	err  error
}

type slotDeletedMsg struct {
	id  int64
	err error
}

type alertSentMsg struct {
	alert clinic.Alert
	err   error
}

type clinicTickMsg struct{}

// slotItem adapts a slot record to the bubbles list.
type slotItem struct {
	slot clinic.Slot
}

func (i slotItem) Title() string {
	return fmt.Sprintf("%s · %s", i.slot.Date, i.slot.Time)
}

func (i slotItem) Description() string {
	if i.slot.Status == clinic.SlotBooked {
		desc := "Booked"
		if i.slot.PhoneNumber != "" {
			desc += " · " + i.slot.PhoneNumber
		}
		return desc
	}
	return "Available"
}

func (i slotItem) FilterValue() string { return i.slot.Date + " " + i.slot.Time }

// ClinicApp is the scheduling dashboard model. All collections it renders
// come from the orchestrator's snapshot of confirmed backend state.
type ClinicApp struct {
	orch    *clinic.Orchestrator
	logbook *logbook.Logbook

	state    clinicState
	slotList list.Model

	// Slot form
	dateInput textinput.Model
	timeIdx   int
	formFocus int
	editID    int64 // 0 means creating a new slot

	// Alert form
	messageInput textinput.Model
	typeIdx      int
	areaIdx      int
	alertFocus   int

	loading   bool
	statusMsg string
	err       error

	width  int
	height int
}

// NewClinicApp builds the dashboard around an orchestrator.
func NewClinicApp(orch *clinic.Orchestrator, lb *logbook.Logbook) *ClinicApp {
	slotList := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	slotList.Title = "Slots"
	slotList.SetShowStatusBar(false)
	slotList.SetFilteringEnabled(false)
	slotList.SetShowHelp(false)

	dateInput := textinput.New()
	dateInput.Placeholder = "YYYY-MM-DD"
	dateInput.CharLimit = 10
	dateInput.Width = 14

	messageInput := textinput.New()
	messageInput.Placeholder = "Alert message"
	messageInput.CharLimit = 160
	messageInput.Width = 48

	return &ClinicApp{
		orch:         orch,
		logbook:      lb,
		state:        clinicDashboard,
		slotList:     slotList,
		dateInput:    dateInput,
		messageInput: messageInput,
		statusMsg:    "Loading clinic data...",
		loading:      true,
	}
}

// Init is called once when the program starts.
func (a *ClinicApp) Init() tea.Cmd {
	return tea.Batch(a.refreshCmd(false), a.scheduleTick())
}

func (a *ClinicApp) refreshCmd(background bool) tea.Cmd {
	return func() tea.Msg {
		err := a.orch.Refresh(context.Background())
		return clinicRefreshedMsg{background: background, err: err}
	}
}

func (a *ClinicApp) scheduleTick() tea.Cmd {
	return tea.Tick(clinicRefreshInterval, func(time.Time) tea.Msg {
		return clinicTickMsg{}
	})
}

// Update is called when a message is received.
func (a *ClinicApp) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.slotList.SetSize(max(0, msg.Width/2-6), max(0, msg.Height-14))
		return a, nil

	case clinicTickMsg:
		return a, tea.Batch(a.refreshCmd(true), a.scheduleTick())

	case clinicRefreshedMsg:
		a.loading = false
		if msg.err != nil {
			// Background ticks colliding with a user-driven operation
			// are routine; stay quiet about them.
			if msg.background && fault.KindOf(msg.err) == fault.Validation {
				return a, nil
			}
			a.err = msg.err
			return a, nil
		}
		a.err = nil
		if !msg.background {
			a.statusMsg = "Clinic data refreshed"
		}
		a.applySnapshot()
		return a, nil

	case slotSavedMsg:
		a.loading = false
		if msg.err != nil {
			a.err = msg.err
			return a, nil
		}
		a.err = nil
		a.statusMsg = fmt.Sprintf("Slot saved: %s %s", msg.slot.Date, msg.slot.Time)
		a.state = clinicDashboard
		a.applySnapshot()
		return a, nil

	case slotDeletedMsg:
		a.loading = false
		if msg.err != nil {
			a.err = msg.err
			return a, nil
		}
		a.err = nil
		a.statusMsg = fmt.Sprintf("Slot %d removed", msg.id)
		a.applySnapshot()
		return a, nil

	case alertSentMsg:
		a.loading = false
		if msg.err != nil {
			a.err = msg.err
			return a, nil
		}
		a.err = nil
		a.statusMsg = fmt.Sprintf("Alert sent to %s", msg.alert.TargetArea)
		a.state = clinicDashboard
		a.applySnapshot()
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)
	}

	return a.updateFocused(msg)
}

func (a *ClinicApp) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		return a, tea.Quit
	}

	switch a.state {
	case clinicDashboard:
		switch key {
		case "q":
			return a, tea.Quit
		case "r":
			a.statusMsg = "Refreshing..."
			return a, a.refreshCmd(false)
		case "a":
			return a.openSlotForm(clinic.Slot{}), nil
		case "e":
			if item, ok := a.slotList.SelectedItem().(slotItem); ok {
				return a.openSlotForm(item.slot), nil
			}
		case "d":
			if item, ok := a.slotList.SelectedItem().(slotItem); ok {
				a.loading = true
				a.statusMsg = "Removing slot..."
				return a, a.deleteSlotCmd(item.slot.ID)
			}
		case "s":
			return a.openAlertForm(), nil
		case "v":
			a.state = clinicAlertDetail
			return a, nil
		}

	case clinicSlotForm:
		switch key {
		case "esc":
			a.state = clinicDashboard
			a.statusMsg = ""
			return a, nil
		case "tab", "down":
			a.setFormFocus((a.formFocus + 1) % 2)
			return a, nil
		case "shift+tab", "up":
			a.setFormFocus((a.formFocus + 1) % 2)
			return a, nil
		case "left":
			if a.formFocus == 1 && a.timeIdx > 0 {
				a.timeIdx--
			}
			return a, nil
		case "right":
			if a.formFocus == 1 && a.timeIdx < len(clinic.TimeOptions)-1 {
				a.timeIdx++
			}
			return a, nil
		case "enter":
			return a.submitSlotForm()
		}

	case clinicAlertForm:
		switch key {
		case "esc":
			a.state = clinicDashboard
			a.statusMsg = ""
			return a, nil
		case "tab", "down":
			a.setAlertFocus((a.alertFocus + 1) % 3)
			return a, nil
		case "shift+tab", "up":
			a.setAlertFocus((a.alertFocus + 2) % 3)
			return a, nil
		case "left":
			a.cycleAlertChoice(-1)
			return a, nil
		case "right":
			a.cycleAlertChoice(1)
			return a, nil
		case "enter":
			return a.submitAlertForm()
		}

	case clinicAlertDetail:
		switch key {
		case "esc", "q", "v":
			a.state = clinicDashboard
			return a, nil
		}
	}

	return a.updateFocused(msg)
}

func (a *ClinicApp) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.state {
	case clinicDashboard:
		a.slotList, cmd = a.slotList.Update(msg)
	case clinicSlotForm:
		if a.formFocus == 0 {
			a.dateInput, cmd = a.dateInput.Update(msg)
		}
	case clinicAlertForm:
		if a.alertFocus == 0 {
			a.messageInput, cmd = a.messageInput.Update(msg)
		}
	}
	return a, cmd
}

func (a *ClinicApp) applySnapshot() {
	snap := a.orch.Snapshot()
	items := make([]list.Item, len(snap.Slots))
	for i, slot := range snap.Slots {
		items[i] = slotItem{slot: slot}
	}
	a.slotList.SetItems(items)
}

func (a *ClinicApp) openSlotForm(slot clinic.Slot) *ClinicApp {
	a.state = clinicSlotForm
	a.editID = slot.ID
	a.dateInput.SetValue("")
	a.timeIdx = 0
	for i, t := range clinic.TimeOptions {
		if t == slot.Time {
			a.timeIdx = i
			break
		}
	}
	a.setFormFocus(0)
	if slot.ID == 0 {
		a.statusMsg = "New slot · enter the date as YYYY-MM-DD"
	} else {
		a.statusMsg = fmt.Sprintf("Editing slot %d · enter the new date", slot.ID)
	}
	return a
}

func (a *ClinicApp) setFormFocus(idx int) {
	a.formFocus = idx
	if idx == 0 {
		a.dateInput.Focus()
	} else {
		a.dateInput.Blur()
	}
}

func (a *ClinicApp) submitSlotForm() (tea.Model, tea.Cmd) {
	isoDate := strings.TrimSpace(a.dateInput.Value())
	timeSlot := clinic.TimeOptions[a.timeIdx]
	id := a.editID
	a.loading = true
	a.statusMsg = "Saving slot..."
	return a, func() tea.Msg {
		var (
			slot clinic.Slot
			err  error
		)
		if id == 0 {
			slot, err = a.orch.AddSlot(context.Background(), isoDate, timeSlot)
		} else {
			slot, err = a.orch.UpdateSlot(context.Background(), id, isoDate, timeSlot)
		}
		return slotSavedMsg{slot: slot, err: err}
	}
}

func (a *ClinicApp) deleteSlotCmd(id int64) tea.Cmd {
	return func() tea.Msg {
		return slotDeletedMsg{id: id, err: a.orch.DeleteSlot(context.Background(), id)}
	}
}

func (a *ClinicApp) openAlertForm() *ClinicApp {
	a.state = clinicAlertForm
	a.messageInput.SetValue("")
	a.typeIdx = 0
	a.areaIdx = 0
	a.setAlertFocus(0)
	a.statusMsg = "Compose an SMS alert"
	return a
}

func (a *ClinicApp) setAlertFocus(idx int) {
	a.alertFocus = idx
	if idx == 0 {
		a.messageInput.Focus()
	} else {
		a.messageInput.Blur()
	}
}

func (a *ClinicApp) cycleAlertChoice(dir int) {
	switch a.alertFocus {
	case 1:
		a.typeIdx = (a.typeIdx + dir + len(clinic.AlertTypes)) % len(clinic.AlertTypes)
	case 2:
		a.areaIdx = (a.areaIdx + dir + len(clinic.TargetAreas)) % len(clinic.TargetAreas)
	}
}

func (a *ClinicApp) submitAlertForm() (tea.Model, tea.Cmd) {
	message := strings.TrimSpace(a.messageInput.Value())
	alertType := clinic.AlertTypes[a.typeIdx]
	area := clinic.TargetAreas[a.areaIdx]
	a.loading = true
	a.statusMsg = "Dispatching alert..."
	return a, func() tea.Msg {
		alert, err := a.orch.SendAlert(context.Background(), alertType, message, area)
		return alertSentMsg{alert: alert, err: err}
	}
}

// View renders the current state to a string.
func (a *ClinicApp) View() string {
	width := a.width
	if width <= 0 {
		width = 100
	}
	leftWidth := width/2 - 2
	rightWidth := width - leftWidth - 4

	var left string
	switch a.state {
	case clinicSlotForm:
		left = renderPanel("SLOT", a.renderSlotForm(), leftWidth)
	case clinicAlertForm:
		left = renderPanel("SMS ALERT", a.renderAlertForm(), leftWidth)
	case clinicAlertDetail:
		left = renderPanel("SENT ALERTS", a.renderAlertHistory(), leftWidth)
	default:
		a.slotList.SetSize(max(20, leftWidth-4), max(8, a.height-14))
		left = panelStyle.Width(max(24, leftWidth)).Render(a.slotList.View())
	}

	right := lipgloss.JoinVertical(lipgloss.Left,
		renderPanel("TODAY", a.renderToday(), rightWidth),
		renderPanel("ALERTS", a.renderRecentAlerts(), rightWidth),
	)

	sections := []string{
		renderBanner("CLINIC"),
		lipgloss.JoinHorizontal(lipgloss.Top, left, right),
	}
	if logPanel := renderLogPanel(a.logbook); logPanel != "" {
		sections = append(sections, logPanel)
	}
	sections = append(sections, a.renderFooter())
	return strings.Join(sections, "\n")
}

func (a *ClinicApp) renderToday() string {
	snap := a.orch.Snapshot()
	if len(snap.Appointments) == 0 {
		return mutedStyle.Render("No appointments today.")
	}
	var lines []string
	for _, appt := range snap.Appointments {
		marker := okStyle.Render("●")
		if appt.Status != clinic.AppointmentConfirmed {
			marker = mutedStyle.Render("○")
		}
		lines = append(lines, fmt.Sprintf("%s %s · %s · %s", marker, appt.Time, appt.Phone, appt.Status))
	}
	return strings.Join(lines, "\n")
}

func (a *ClinicApp) renderRecentAlerts() string {
	snap := a.orch.Snapshot()
	if len(snap.Alerts) == 0 {
		return mutedStyle.Render("No alerts sent yet.")
	}
	shown := snap.Alerts
	if len(shown) > 4 {
		shown = shown[len(shown)-4:]
	}
	var lines []string
	for _, alert := range shown {
		lines = append(lines, fmt.Sprintf("[%s] %s → %s", alert.Type, truncate(alert.Message, 32), alert.TargetArea))
	}
	return strings.Join(lines, "\n")
}

func (a *ClinicApp) renderAlertHistory() string {
	snap := a.orch.Snapshot()
	if len(snap.Alerts) == 0 {
		return mutedStyle.Render("No alerts sent yet.")
	}
	var lines []string
	for _, alert := range snap.Alerts {
		lines = append(lines, fmt.Sprintf("%s · [%s → %s]\n  %s", alert.SentAt, alert.Type, alert.TargetArea, alert.Message))
	}
	return strings.Join(lines, "\n")
}

func (a *ClinicApp) renderSlotForm() string {
	dateLabel := "Date"
	timeLabel := "Time"
	if a.formFocus == 0 {
		dateLabel = "> Date"
	} else {
		timeLabel = "> Time"
	}
	lines := []string{
		fmt.Sprintf("%s  %s", dateLabel, a.dateInput.View()),
		fmt.Sprintf("%s  ◀ %s ▶", timeLabel, clinic.TimeOptions[a.timeIdx]),
		"",
		hintStyle.Render("Tab → switch field    Enter → save    Esc → cancel"),
	}
	return strings.Join(lines, "\n")
}

func (a *ClinicApp) renderAlertForm() string {
	labels := []string{"Message", "Type", "Area"}
	labels[a.alertFocus] = "> " + labels[a.alertFocus]
	lines := []string{
		fmt.Sprintf("%s  %s", labels[0], a.messageInput.View()),
		fmt.Sprintf("%s  ◀ %s ▶", labels[1], clinic.AlertTypes[a.typeIdx]),
		fmt.Sprintf("%s  ◀ %s ▶", labels[2], clinic.TargetAreas[a.areaIdx]),
		"",
		hintStyle.Render("Tab → switch field    Enter → send    Esc → cancel"),
	}
	return strings.Join(lines, "\n")
}

func (a *ClinicApp) renderFooter() string {
	if a.err != nil {
		return renderStatus("", a.err)
	}
	msg := a.statusMsg
	if a.state == clinicDashboard {
		hint := "a add · e edit · d delete · s alert · v history · r refresh · q quit"
		if msg == "" {
			msg = hint
		} else {
			msg = msg + "    " + hint
		}
	}
	if a.loading {
		msg = "⋯ " + msg
	}
	return renderStatus(msg, nil)
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	return value[:limit-1] + "…"
}

package clinic

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lafiyatech/medimint/internal/fault"
	"github.com/lafiyatech/medimint/internal/logbook"
)

// API is the backend surface the orchestrator drives. *Client satisfies
// it; tests substitute doubles.
type API interface {
	Slots(ctx context.Context) ([]Slot, error)
	AddSlot(ctx context.Context, req SlotRequest) (Slot, error)
	UpdateSlot(ctx context.Context, id int64, req SlotRequest) (Slot, error)
	DeleteSlot(ctx context.Context, id int64) error
	TodayAppointments(ctx context.Context) ([]Appointment, error)
	Alerts(ctx context.Context) ([]Alert, error)
	SendAlert(ctx context.Context, req AlertRequest) (Alert, error)
	Health(ctx context.Context) (HealthStatus, error)
}

// Orchestrator owns the clinic dashboard's local collections and sequences
// the remote calls that refresh or mutate them. Collections only ever hold
// confirmed backend state: there is no optimistic update, so a failed call
// leaves everything untouched.
type Orchestrator struct {
	api API
	log *logbook.Logbook

	// busy serializes workflows the way the UI disables its triggering
	// control: a second invocation while one is in flight is refused, not
	// queued.
	busy atomic.Bool

	mu           sync.Mutex
	slots        []Slot
	appointments []Appointment
	alerts       []Alert
}

// OrchestratorOption customizes orchestrator construction.
type OrchestratorOption func(*Orchestrator)

// WithLogbook attaches an activity log.
func WithLogbook(log *logbook.Logbook) OrchestratorOption {
	return func(o *Orchestrator) { o.log = log }
}

// NewOrchestrator wires the orchestrator to its backend API.
func NewOrchestrator(api API, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{api: api}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// errBusy is the refusal for a workflow already in flight. No remote call
// is made.
func errBusy(op string) *fault.Error {
	return fault.New(fault.Validation, op, "another operation is still in progress")
}

func (o *Orchestrator) acquire(op string) (func(), error) {
	if !o.busy.CompareAndSwap(false, true) {
		return nil, errBusy(op)
	}
	return func() { o.busy.Store(false) }, nil
}

// Snapshot is a copy of the current local collections for rendering.
type Snapshot struct {
	Slots        []Slot
	Appointments []Appointment
	Alerts       []Alert
}

// Snapshot returns a render-safe copy of local state.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Snapshot{
		Slots:        append([]Slot(nil), o.slots...),
		Appointments: append([]Appointment(nil), o.appointments...),
		Alerts:       append([]Alert(nil), o.alerts...),
	}
}

// Refresh fans out the three independent dashboard reads in parallel and
// applies each response to its own collection. A failure in one source
// never blocks the others from updating; the returned error reports which
// sources failed.
func (o *Orchestrator) Refresh(ctx context.Context) error {
	release, err := o.acquire("clinic.refresh")
	if err != nil {
		return err
	}
	defer release()

	var (
		wg sync.WaitGroup

		slots    []Slot
		appts    []Appointment
		alerts   []Alert
		slotsErr error
		apptsErr error
		alertErr error
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		slots, slotsErr = o.api.Slots(ctx)
	}()
	go func() {
		defer wg.Done()
		appts, apptsErr = o.api.TodayAppointments(ctx)
	}()
	go func() {
		defer wg.Done()
		alerts, alertErr = o.api.Alerts(ctx)
	}()
	wg.Wait()

	o.mu.Lock()
	if slotsErr == nil {
		o.slots = slots
	}
	if apptsErr == nil {
		o.appointments = appts
	}
	if alertErr == nil {
		o.alerts = alerts
	}
	o.mu.Unlock()

	var failed []string
	for _, f := range []struct {
		source string
		err    error
	}{
		{"slots", slotsErr},
		{"appointments", apptsErr},
		{"alerts", alertErr},
	} {
		if f.err != nil {
			failed = append(failed, f.source)
			o.log.Warn("clinic refresh: %s failed: %v", f.source, f.err)
		}
	}
	if len(failed) == 3 {
		return fault.New(fault.Network, "clinic.refresh", "failed to load dashboard data")
	}
	if len(failed) > 0 {
		return fault.New(fault.Network, "clinic.refresh", "failed to load: %s", strings.Join(failed, ", "))
	}
	o.log.Info("clinic refresh: %d slots, %d appointments, %d alerts", len(slots), len(appts), len(alerts))
	return nil
}

// NormalizeDate converts an ISO input date (2006-01-02) into the backend's
// " 2 Jan" day-month form.
func NormalizeDate(iso string) (string, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(iso))
	if err != nil {
		return "", fault.Wrap(fault.Validation, "clinic.add_slot", err, "date must be YYYY-MM-DD")
	}
	return t.Format("2 Jan"), nil
}

// AddSlot validates input, creates the slot remotely, and appends the
// backend's returned record to the local collection.
func (o *Orchestrator) AddSlot(ctx context.Context, isoDate, timeSlot string) (Slot, error) {
	if strings.TrimSpace(isoDate) == "" || strings.TrimSpace(timeSlot) == "" {
		return Slot{}, fault.New(fault.Validation, "clinic.add_slot", "please select both date and time")
	}
	date, err := NormalizeDate(isoDate)
	if err != nil {
		return Slot{}, err
	}

	release, err := o.acquire("clinic.add_slot")
	if err != nil {
		return Slot{}, err
	}
	defer release()

	created, err := o.api.AddSlot(ctx, SlotRequest{Date: date, Time: timeSlot})
	if err != nil {
		return Slot{}, err
	}
	o.mu.Lock()
	o.slots = append(o.slots, created)
	o.mu.Unlock()
	o.log.Info("clinic: slot %d added (%s %s)", created.ID, created.Date, created.Time)
	return created, nil
}

// UpdateSlot replaces a slot remotely and swaps the returned record into
// the local collection.
func (o *Orchestrator) UpdateSlot(ctx context.Context, id int64, isoDate, timeSlot string) (Slot, error) {
	date, err := NormalizeDate(isoDate)
	if err != nil {
		return Slot{}, err
	}

	release, err := o.acquire("clinic.update_slot")
	if err != nil {
		return Slot{}, err
	}
	defer release()

	updated, err := o.api.UpdateSlot(ctx, id, SlotRequest{Date: date, Time: timeSlot})
	if err != nil {
		return Slot{}, err
	}
	o.mu.Lock()
	for i := range o.slots {
		if o.slots[i].ID == id {
			o.slots[i] = updated
			break
		}
	}
	o.mu.Unlock()
	return updated, nil
}

// DeleteSlot removes a slot remotely and filters it out of the local
// collection. A slot id absent from the collection is a local no-op.
func (o *Orchestrator) DeleteSlot(ctx context.Context, id int64) error {
	release, err := o.acquire("clinic.delete_slot")
	if err != nil {
		return err
	}
	defer release()

	if err := o.api.DeleteSlot(ctx, id); err != nil {
		return err
	}
	o.mu.Lock()
	kept := o.slots[:0]
	for _, slot := range o.slots {
		if slot.ID != id {
			kept = append(kept, slot)
		}
	}
	o.slots = kept
	o.mu.Unlock()
	o.log.Info("clinic: slot %d deleted", id)
	return nil
}

// SendAlert validates the form, dispatches the SMS alert, and appends the
// recorded entry to the append-only alert log.
func (o *Orchestrator) SendAlert(ctx context.Context, alertType, message, targetArea string) (Alert, error) {
	if strings.TrimSpace(message) == "" {
		return Alert{}, fault.New(fault.Validation, "clinic.send_alert", "please enter an alert message")
	}
	if !contains(AlertTypes, alertType) {
		return Alert{}, fault.New(fault.Validation, "clinic.send_alert", "unknown alert type %q", alertType)
	}
	if !contains(TargetAreas, targetArea) {
		return Alert{}, fault.New(fault.Validation, "clinic.send_alert", "unknown target area %q", targetArea)
	}

	release, err := o.acquire("clinic.send_alert")
	if err != nil {
		return Alert{}, err
	}
	defer release()

	sent, err := o.api.SendAlert(ctx, AlertRequest{Type: alertType, Message: message, TargetArea: targetArea})
	if err != nil {
		return Alert{}, err
	}
	o.mu.Lock()
	o.alerts = append(o.alerts, sent)
	o.mu.Unlock()
	o.log.Info("clinic: %s alert sent to %s", sent.Type, sent.TargetArea)
	return sent, nil
}

// Health probes the backend.
func (o *Orchestrator) Health(ctx context.Context) (HealthStatus, error) {
	return o.api.Health(ctx)
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

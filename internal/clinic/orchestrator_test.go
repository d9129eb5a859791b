package clinic

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/lafiyatech/medimint/internal/fault"
)

// fakeAPI lets each test script the backend per endpoint.
type fakeAPI struct {
	slots        func(ctx context.Context) ([]Slot, error)
	addSlot      func(ctx context.Context, req SlotRequest) (Slot, error)
	updateSlot   func(ctx context.Context, id int64, req SlotRequest) (Slot, error)
	deleteSlot   func(ctx context.Context, id int64) error
	today        func(ctx context.Context) ([]Appointment, error)
	alerts       func(ctx context.Context) ([]Alert, error)
	sendAlert    func(ctx context.Context, req AlertRequest) (Alert, error)
	health       func(ctx context.Context) (HealthStatus, error)
	addSlotCalls int
}

func (f *fakeAPI) Slots(ctx context.Context) ([]Slot, error) {
	if f.slots == nil {
		return nil, nil
	}
	return f.slots(ctx)
}

func (f *fakeAPI) AddSlot(ctx context.Context, req SlotRequest) (Slot, error) {
	f.addSlotCalls++
	if f.addSlot == nil {
		return Slot{}, errors.New("unexpected AddSlot")
	}
	return f.addSlot(ctx, req)
}

func (f *fakeAPI) UpdateSlot(ctx context.Context, id int64, req SlotRequest) (Slot, error) {
	if f.updateSlot == nil {
		return Slot{}, errors.New("unexpected UpdateSlot")
	}
	return f.updateSlot(ctx, id, req)
}

func (f *fakeAPI) DeleteSlot(ctx context.Context, id int64) error {
	if f.deleteSlot == nil {
		return nil
	}
	return f.deleteSlot(ctx, id)
}

func (f *fakeAPI) TodayAppointments(ctx context.Context) ([]Appointment, error) {
	if f.today == nil {
		return nil, nil
	}
	return f.today(ctx)
}

func (f *fakeAPI) Alerts(ctx context.Context) ([]Alert, error) {
	if f.alerts == nil {
		return nil, nil
	}
	return f.alerts(ctx)
}

func (f *fakeAPI) SendAlert(ctx context.Context, req AlertRequest) (Alert, error) {
	if f.sendAlert == nil {
		return Alert{}, errors.New("unexpected SendAlert")
	}
	return f.sendAlert(ctx, req)
}

func (f *fakeAPI) Health(ctx context.Context) (HealthStatus, error) {
	if f.health == nil {
		return HealthStatus{Status: "ok"}, nil
	}
	return f.health(ctx)
}

func TestRefreshAppliesEachSourceIndependently(t *testing.T) {
	api := &fakeAPI{
		slots: func(context.Context) ([]Slot, error) {
			return []Slot{{ID: 1, Date: "5 Mar", Time: "10:00 AM", Status: SlotAvailable}}, nil
		},
		today: func(context.Context) ([]Appointment, error) {
			return nil, errors.New("appointments endpoint down")
		},
		alerts: func(context.Context) ([]Alert, error) {
			return []Alert{{ID: 9, Type: "Cholera", Message: "boil water"}}, nil
		},
	}
	orch := NewOrchestrator(api)

	err := orch.Refresh(context.Background())
	if err == nil {
		t.Fatal("expected partial-failure error")
	}

	snap := orch.Snapshot()
	if len(snap.Slots) != 1 || snap.Slots[0].ID != 1 {
		t.Fatalf("slots not applied despite appointments failure: %+v", snap.Slots)
	}
	if len(snap.Alerts) != 1 || snap.Alerts[0].ID != 9 {
		t.Fatalf("alerts not applied despite appointments failure: %+v", snap.Alerts)
	}
	if len(snap.Appointments) != 0 {
		t.Fatalf("failed source must not populate: %+v", snap.Appointments)
	}
}

func TestAddSlotAppendsAuthoritativeRecord(t *testing.T) {
	var gotReq SlotRequest
	api := &fakeAPI{
		addSlot: func(_ context.Context, req SlotRequest) (Slot, error) {
			gotReq = req
			return Slot{ID: 42, Date: "5 Mar", Time: "10:00 AM", Status: SlotAvailable}, nil
		},
	}
	orch := NewOrchestrator(api)

	created, err := orch.AddSlot(context.Background(), "2024-03-05", "10:00 AM")
	if err != nil {
		t.Fatalf("add slot: %v", err)
	}
	if gotReq.Date != "5 Mar" {
		t.Fatalf("date not normalized for backend: %q", gotReq.Date)
	}
	want := Slot{ID: 42, Date: "5 Mar", Time: "10:00 AM", Status: SlotAvailable}
	if created != want {
		t.Fatalf("unexpected record: %+v", created)
	}
	snap := orch.Snapshot()
	if len(snap.Slots) != 1 || !reflect.DeepEqual(snap.Slots[0], want) {
		t.Fatalf("collection must gain exactly the returned record: %+v", snap.Slots)
	}
}

func TestAddSlotValidationShortCircuits(t *testing.T) {
	api := &fakeAPI{}
	orch := NewOrchestrator(api)

	_, err := orch.AddSlot(context.Background(), "", "10:00 AM")
	if fault.KindOf(err) != fault.Validation {
		t.Fatalf("expected validation fault, got %v", err)
	}
	_, err = orch.AddSlot(context.Background(), "not-a-date", "10:00 AM")
	if fault.KindOf(err) != fault.Validation {
		t.Fatalf("expected validation fault for bad date, got %v", err)
	}
	if api.addSlotCalls != 0 {
		t.Fatalf("validation failure must not reach the backend, saw %d calls", api.addSlotCalls)
	}
}

func TestAddSlotFailureLeavesCollectionUntouched(t *testing.T) {
	api := &fakeAPI{
		addSlot: func(context.Context, SlotRequest) (Slot, error) {
			return Slot{}, errors.New("backend down")
		},
	}
	orch := NewOrchestrator(api)
	if _, err := orch.AddSlot(context.Background(), "2024-03-05", "10:00 AM"); err == nil {
		t.Fatal("expected error")
	}
	if snap := orch.Snapshot(); len(snap.Slots) != 0 {
		t.Fatalf("no optimistic update allowed: %+v", snap.Slots)
	}
}

func TestDeleteSlotUnknownIDLeavesCollectionUnchanged(t *testing.T) {
	api := &fakeAPI{
		slots: func(context.Context) ([]Slot, error) {
			return []Slot{{ID: 1}, {ID: 2}}, nil
		},
	}
	orch := NewOrchestrator(api)
	if err := orch.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	if err := orch.DeleteSlot(context.Background(), 99); err != nil {
		t.Fatalf("deleting unknown id must not fail locally: %v", err)
	}
	snap := orch.Snapshot()
	if len(snap.Slots) != 2 {
		t.Fatalf("collection changed: %+v", snap.Slots)
	}

	if err := orch.DeleteSlot(context.Background(), 1); err != nil {
		t.Fatalf("delete: %v", err)
	}
	snap = orch.Snapshot()
	if len(snap.Slots) != 1 || snap.Slots[0].ID != 2 {
		t.Fatalf("slot 1 not filtered out: %+v", snap.Slots)
	}
}

func TestSendAlertAppendsReturnedEntry(t *testing.T) {
	api := &fakeAPI{
		sendAlert: func(_ context.Context, req AlertRequest) (Alert, error) {
			return Alert{ID: 5, Type: req.Type, Message: req.Message, TargetArea: req.TargetArea, SentAt: "2024-03-05T10:00:00Z"}, nil
		},
	}
	orch := NewOrchestrator(api)

	sent, err := orch.SendAlert(context.Background(), "Cholera", "boil water before drinking", "Badawa")
	if err != nil {
		t.Fatalf("send alert: %v", err)
	}
	if sent.ID != 5 {
		t.Fatalf("unexpected alert: %+v", sent)
	}
	if snap := orch.Snapshot(); len(snap.Alerts) != 1 || snap.Alerts[0].ID != 5 {
		t.Fatalf("alert log not appended: %+v", snap.Alerts)
	}
}

func TestSendAlertRejectsEmptyMessageAndUnknownEnums(t *testing.T) {
	orch := NewOrchestrator(&fakeAPI{})
	cases := []struct{ typ, msg, area string }{
		{"General", "   ", "All Areas"},
		{"Ebola", "outbreak", "All Areas"},
		{"General", "outbreak", "Atlantis"},
	}
	for _, tc := range cases {
		if _, err := orch.SendAlert(context.Background(), tc.typ, tc.msg, tc.area); fault.KindOf(err) != fault.Validation {
			t.Fatalf("expected validation fault for %+v, got %v", tc, err)
		}
	}
}

func TestBusyFlagRefusesReentrantWorkflow(t *testing.T) {
	started := make(chan struct{})
	proceed := make(chan struct{})
	api := &fakeAPI{
		slots: func(context.Context) ([]Slot, error) {
			close(started)
			<-proceed
			return nil, nil
		},
	}
	orch := NewOrchestrator(api)

	done := make(chan error, 1)
	go func() { done <- orch.Refresh(context.Background()) }()
	<-started

	if _, err := orch.AddSlot(context.Background(), "2024-03-05", "10:00 AM"); fault.KindOf(err) != fault.Validation {
		t.Fatalf("expected busy refusal, got %v", err)
	}
	if api.addSlotCalls != 0 {
		t.Fatal("busy refusal must not reach the backend")
	}

	close(proceed)
	if err := <-done; err != nil {
		t.Fatalf("first refresh: %v", err)
	}
}

func TestNormalizeDate(t *testing.T) {
	got, err := NormalizeDate("2024-03-05")
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if got != "5 Mar" {
		t.Fatalf("got %q, want %q", got, "5 Mar")
	}
}

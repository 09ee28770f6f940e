package rulegroup

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nerrad567/controlhub-core/internal/controller"
)

// twoControllerAlert reconciles A and B with one shared humidity alert.
func twoControllerAlert(t *testing.T) (*MappedRuleGroup, *Mapped[controller.Alert]) {
	t.Helper()
	a, b := newController("A"), newController("B")
	a.Alerts = []controller.Alert{alert(a, "a1", 80, 5*controller.Minute)}
	b.Alerts = []controller.Alert{alert(b, "b1", 80, 10*controller.Minute)}

	groups := Reconcile([]*controller.Controller{a, b}, NewIDGenerator())
	if len(groups) != 1 || len(groups[0].Alerts) != 1 {
		t.Fatalf("unexpected reconcile result")
	}
	return groups[0], groups[0].Alerts[0]
}

func TestUpdate_SavesEveryInstance(t *testing.T) {
	_, m := twoControllerAlert(t)
	store := &fakeStore{}

	minimum := 7 * controller.Minute
	if err := UpdateWithPatch(context.Background(), store, m, Patch{MinimumDuration: &minimum}); err != nil {
		t.Fatalf("UpdateWithPatch() error = %v", err)
	}

	if diff := cmp.Diff([]string{"A/a1", "B/b1"}, store.saved); diff != "" {
		t.Errorf("saved mismatch (-want +got):\n%s", diff)
	}
	for _, l := range m.Instances {
		if l.Rule.MinimumDuration != minimum {
			t.Errorf("%s MinimumDuration = %v, want %v", l.Controller.ID, l.Rule.MinimumDuration, minimum)
		}
		if got := l.Controller.Alerts[0].MinimumDuration; got != minimum {
			t.Errorf("%s raw alert not updated: %v", l.Controller.ID, got)
		}
	}
	if len(m.Deviants()) != 0 {
		t.Errorf("Deviants() after bulk update = %v, want none", m.Deviants())
	}
}

func TestUpdate_FailuresJoinedAndKept(t *testing.T) {
	_, m := twoControllerAlert(t)
	store := &fakeStore{failOn: map[string]bool{"B": true}}

	threshold := 90.0
	err := UpdateWithPatch(context.Background(), store, m, Patch{Threshold: &threshold})
	if !errors.Is(err, errStoreDown) {
		t.Fatalf("UpdateWithPatch() error = %v, want store error", err)
	}
	if len(store.saved) != 2 {
		t.Errorf("save calls = %d, want 2", len(store.saved))
	}
	if m.Instances[1].Rule.Threshold != 90 {
		t.Error("failed instance should keep the optimistic change")
	}
}

func TestUpdate_RejectsForeignFields(t *testing.T) {
	_, m := twoControllerAlert(t)
	store := &fakeStore{}

	end := controller.At(18, 0)
	err := UpdateWithPatch(context.Background(), store, m, Patch{EndTime: &end})
	if !errors.Is(err, ErrInvalidPatch) {
		t.Fatalf("UpdateWithPatch() error = %v, want ErrInvalidPatch", err)
	}
	if len(store.saved) != 0 {
		t.Error("invalid patch should not reach the store")
	}
}

func TestDeleteInstance(t *testing.T) {
	g, m := twoControllerAlert(t)
	store := &fakeStore{}
	ctx := context.Background()

	if err := DeleteInstance(ctx, store, m, "A"); err != nil {
		t.Fatalf("DeleteInstance() error = %v", err)
	}
	if diff := cmp.Diff([]string{"B"}, m.ControllerIDs()); diff != "" {
		t.Errorf("controllers (-want +got):\n%s", diff)
	}
	if len(g.Alerts) != 1 {
		t.Error("mapped rule removed while an instance remains")
	}
	if len(g.Controllers[0].Alerts) != 0 {
		t.Error("raw alert not removed from controller A")
	}

	if err := DeleteInstance(ctx, store, m, "A"); !errors.Is(err, ErrInstanceNotFound) {
		t.Errorf("DeleteInstance() twice error = %v, want ErrInstanceNotFound", err)
	}

	if err := DeleteInstance(ctx, store, m, "B"); err != nil {
		t.Fatalf("DeleteInstance() error = %v", err)
	}
	if len(g.Alerts) != 0 {
		t.Errorf("len(Alerts) = %d, want 0 after last instance removed", len(g.Alerts))
	}
	if diff := cmp.Diff([]string{"A/a1", "B/b1"}, store.deleted); diff != "" {
		t.Errorf("deleted (-want +got):\n%s", diff)
	}
}

func TestDeleteInstance_RawRuleAlreadyGone(t *testing.T) {
	g, m := twoControllerAlert(t)
	store := &fakeStore{}
	a := g.Controllers[0]
	if err := a.RemoveRule(controller.KindAlert, "a1"); err != nil {
		t.Fatalf("RemoveRule() error = %v", err)
	}

	if err := DeleteInstance(context.Background(), store, m, "A"); err != nil {
		t.Fatalf("DeleteInstance() error = %v", err)
	}
	if diff := cmp.Diff([]string{"A/a1"}, store.deleted); diff != "" {
		t.Errorf("deleted (-want +got):\n%s", diff)
	}
}

func TestDeleteMapped(t *testing.T) {
	g, m := twoControllerAlert(t)
	store := &fakeStore{failOn: map[string]bool{"A": true}}

	err := DeleteMapped(context.Background(), store, m)
	if !errors.Is(err, errStoreDown) {
		t.Errorf("DeleteMapped() error = %v, want store error", err)
	}
	if len(g.Alerts) != 0 {
		t.Error("mapped rule still in group")
	}
	if len(store.deleted) != 2 {
		t.Errorf("delete calls = %d, want 2", len(store.deleted))
	}
}

func TestAssign(t *testing.T) {
	a, b := newController("A"), newController("B")
	ta := trigger(a, "a1", 28)
	ta.AdditionalDeviceIDs = []string{"A-d-mist"}
	a.SensorTriggers = []controller.SensorTrigger{ta}
	b.Alerts = []controller.Alert{alert(b, "b1", 80, 0)}

	g := Reconcile([]*controller.Controller{a, b}, nil)[0]
	m := g.SensorTriggers[0]
	store := &fakeStore{}

	l, err := Assign(context.Background(), store, m, "B")
	if err != nil {
		t.Fatalf("Assign() error = %v", err)
	}
	if l.Rule.ID != "B-new1" {
		t.Errorf("ID = %q, want store-assigned ID", l.Rule.ID)
	}
	if l.Rule.SensorID != "B-s-temp" || l.Rule.DeviceID != "B-d-fan" {
		t.Errorf("refs = %s/%s, want B's sensor and device", l.Rule.SensorID, l.Rule.DeviceID)
	}
	if diff := cmp.Diff([]string{"B-d-mist"}, l.Rule.AdditionalDeviceIDs); diff != "" {
		t.Errorf("additional devices (-want +got):\n%s", diff)
	}
	if l.Rule.RuleGroupID != "B-rg1" || l.Rule.Value != 28 {
		t.Errorf("rule = %+v", l.Rule)
	}
	if diff := cmp.Diff([]string{"A", "B"}, m.ControllerIDs()); diff != "" {
		t.Errorf("controllers (-want +got):\n%s", diff)
	}
	if len(b.SensorTriggers) != 1 {
		t.Error("raw trigger not added to controller B")
	}

	if _, err := Assign(context.Background(), store, m, "B"); !errors.Is(err, ErrAlreadyAssigned) {
		t.Errorf("Assign() twice error = %v, want ErrAlreadyAssigned", err)
	}
	if _, err := Assign(context.Background(), store, m, "Z"); !errors.Is(err, ErrControllerNotInGroup) {
		t.Errorf("Assign(Z) error = %v, want ErrControllerNotInGroup", err)
	}
}

func TestAssign_StoreFailureLeavesStateUntouched(t *testing.T) {
	a, b := newController("A"), newController("B")
	a.Alerts = []controller.Alert{alert(a, "a1", 80, 0)}
	g := Reconcile([]*controller.Controller{a, b}, nil)[0]
	m := g.Alerts[0]

	_, err := Assign(context.Background(), &fakeStore{failOn: map[string]bool{"B": true}}, m, "B")
	if !errors.Is(err, errStoreDown) {
		t.Fatalf("Assign() error = %v, want store error", err)
	}
	if m.Len() != 1 || len(b.Alerts) != 0 {
		t.Error("failed assign changed in-memory state")
	}
}

func TestAssign_Unresolved(t *testing.T) {
	a, b := newController("A"), newController("B")
	a.Alerts = []controller.Alert{alert(a, "a1", 80, 0)}
	g := Reconcile([]*controller.Controller{a, b}, nil)[0]

	// B's sensor is renamed after grouping.
	b.Modules[0].Sensors[1].Name = "Relative humidity"

	_, err := Assign(context.Background(), &fakeStore{}, g.Alerts[0], "B")
	if !errors.Is(err, ErrUnresolved) {
		t.Errorf("Assign() error = %v, want ErrUnresolved", err)
	}
}

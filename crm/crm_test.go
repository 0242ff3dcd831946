package crm_test

import (
	"errors"
	"testing"

	"github.com/landflow/billing-engine/billing"
	"github.com/landflow/billing-engine/crm"
)

func TestClients_AddListRemove(t *testing.T) {
	r := crm.NewRegistry()

	a, err := r.AddClient(crm.Client{Name: "John Doe", Email: "john@example.com"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if a.ID == "" {
		t.Error("expected assigned id")
	}
	b, err := r.AddClient(crm.Client{Name: "Jane Roe"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	got := r.Clients()
	if len(got) != 2 || got[0].ID != a.ID || got[1].ID != b.ID {
		t.Errorf("expected insertion order [%s %s], got %+v", a.ID, b.ID, got)
	}

	if err := r.RemoveClient(a.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if got := r.Clients(); len(got) != 1 || got[0].ID != b.ID {
		t.Errorf("after remove: %+v", got)
	}
	if err := r.RemoveClient(a.ID); !errors.Is(err, billing.ErrNotFound) {
		t.Errorf("second remove: expected ErrNotFound, got %v", err)
	}
}

func TestClients_NameRequired(t *testing.T) {
	r := crm.NewRegistry()
	if _, err := r.AddClient(crm.Client{Email: "no-name@example.com"}); !errors.Is(err, billing.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestJobs_DefaultScheduledAndStatusTransitions(t *testing.T) {
	r := crm.NewRegistry()

	j, err := r.AddJob(crm.Job{Title: "Lawn mowing", Client: "John Doe", Date: billing.NewDate(2025, 6, 1)})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if j.Status != crm.JobScheduled {
		t.Errorf("expected Scheduled default, got %s", j.Status)
	}

	done, err := r.SetJobStatus(j.ID, crm.JobCompleted)
	if err != nil {
		t.Fatalf("set status: %v", err)
	}
	if done.Status != crm.JobCompleted {
		t.Errorf("expected Completed, got %s", done.Status)
	}

	if _, err := r.SetJobStatus(j.ID, crm.JobStatus("Paused")); !errors.Is(err, billing.ErrValidation) {
		t.Errorf("unknown status: expected ErrValidation, got %v", err)
	}
	if _, err := r.SetJobStatus("missing", crm.JobCancelled); !errors.Is(err, billing.ErrNotFound) {
		t.Errorf("missing job: expected ErrNotFound, got %v", err)
	}
}

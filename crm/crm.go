// Package crm holds the flat client and job registries.
//
// These are plain record lists with no lifecycle beyond create/delete
// (jobs additionally carry a status). They live in an in-memory ordered
// sequence per process and are not persisted; the invoice engine treats
// them as external collaborators.
package crm

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/landflow/billing-engine/billing"
)

// =============================================================================
// RECORDS
// =============================================================================

type Client struct {
	ID      string
	Name    string
	Email   string
	Phone   string
	Address string
}

type JobStatus string

const (
	JobScheduled JobStatus = "Scheduled"
	JobCompleted JobStatus = "Completed"
	JobCancelled JobStatus = "Cancelled"
)

func (s JobStatus) Valid() bool {
	return s == JobScheduled || s == JobCompleted || s == JobCancelled
}

type Job struct {
	ID     string
	Title  string
	Client string
	Date   billing.Date
	Status JobStatus
}

// =============================================================================
// REGISTRY
// =============================================================================

// Registry keeps clients and jobs in insertion order. Safe for
// concurrent use.
type Registry struct {
	mu      sync.Mutex
	clients []Client
	jobs    []Job
}

func NewRegistry() *Registry {
	return &Registry{}
}

// AddClient assigns an id and appends the client.
func (r *Registry) AddClient(c Client) (Client, error) {
	if c.Name == "" {
		return Client{}, &billing.ValidationError{Field: "name", Reason: "required"}
	}
	c.ID = uuid.NewString()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients = append(r.clients, c)
	return c, nil
}

func (r *Registry) RemoveClient(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, c := range r.clients {
		if c.ID == id {
			r.clients = append(r.clients[:i], r.clients[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("client %s: %w", id, billing.ErrNotFound)
}

// Clients returns a copy in insertion order.
func (r *Registry) Clients() []Client {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Client, len(r.clients))
	copy(out, r.clients)
	return out
}

// AddJob assigns an id and appends the job. A job with no status starts
// Scheduled.
func (r *Registry) AddJob(j Job) (Job, error) {
	if j.Title == "" {
		return Job{}, &billing.ValidationError{Field: "title", Reason: "required"}
	}
	if j.Client == "" {
		return Job{}, &billing.ValidationError{Field: "client", Reason: "required"}
	}
	if j.Status == "" {
		j.Status = JobScheduled
	}
	if !j.Status.Valid() {
		return Job{}, &billing.ValidationError{Field: "status", Reason: "unknown status"}
	}
	j.ID = uuid.NewString()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, j)
	return j, nil
}

func (r *Registry) RemoveJob(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, j := range r.jobs {
		if j.ID == id {
			r.jobs = append(r.jobs[:i], r.jobs[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("job %s: %w", id, billing.ErrNotFound)
}

// SetJobStatus moves a job between Scheduled, Completed, and Cancelled.
func (r *Registry) SetJobStatus(id string, status JobStatus) (Job, error) {
	if !status.Valid() {
		return Job{}, &billing.ValidationError{Field: "status", Reason: "unknown status"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for i, j := range r.jobs {
		if j.ID == id {
			r.jobs[i].Status = status
			return r.jobs[i], nil
		}
	}
	return Job{}, fmt.Errorf("job %s: %w", id, billing.ErrNotFound)
}

// Jobs returns a copy in insertion order.
func (r *Registry) Jobs() []Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Job, len(r.jobs))
	copy(out, r.jobs)
	return out
}

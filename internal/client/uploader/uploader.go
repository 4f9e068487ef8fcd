// Package uploader coordinates direct-to-storage uploads: it requests
// presigned URLs, transfers bytes with PUT, confirms completed uploads,
// and keeps an optimistic view of the gallery while transfers run.
package uploader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/imagedrop/imagedrop/internal/client/api"
	"github.com/imagedrop/imagedrop/internal/model"
)

// State is an upload task's lifecycle position.
// Transitions: queued -> uploading -> confirmed | failed.
type State string

const (
	StateQueued    State = "queued"
	StateUploading State = "uploading"
	StateConfirmed State = "confirmed"
	StateFailed    State = "failed"
)

var (
	ErrClosed     = errors.New("uploader is closed")
	ErrExpiredURL = errors.New("presigned URL expired or rejected")
)

// Task is a transient client-side upload. Confirmed tasks are replaced by
// the durable record the server returns; failed tasks never produce one.
type Task struct {
	ID          string
	Name        string
	ContentType string
	Size        int64
	State       State
	Err         error
	Record      *model.File

	data []byte
}

// Client is the slice of the API surface the coordinator needs
type Client interface {
	CreatePresignedURL(ctx context.Context, filename, contentType string, size int64) (*api.PresignedUpload, error)
	SaveFile(ctx context.Context, name, path, contentType string) (*model.File, error)
}

// Event is a typed notification from the coordinator. Variants:
// Started, Confirmed, Failed, BatchDone.
type Event interface {
	isEvent()
}

type Started struct {
	TaskID string
}

type Confirmed struct {
	TaskID string
	Record *model.File
}

type Failed struct {
	TaskID string
	Err    error
}

type BatchDone struct {
	Confirmed int
	Failed    int
}

func (Started) isEvent()   {}
func (Confirmed) isEvent() {}
func (Failed) isEvent()    {}
func (BatchDone) isEvent() {}

// Coordinator owns a set of upload tasks for one session. It has an
// explicit lifecycle: create it when the session starts, Close it when
// the session ends. All methods are safe for concurrent use.
type Coordinator struct {
	client Client
	http   *http.Client

	mu        sync.Mutex
	order     []string
	tasks     map[string]*Task
	confirmed []*model.File // confirmed records not yet seen in a provider fetch
	events    chan Event
	closed    bool
}

// New creates a coordinator talking to the given API client
func New(client Client) *Coordinator {
	return &Coordinator{
		client: client,
		http:   &http.Client{Timeout: 5 * time.Minute},
		tasks:  make(map[string]*Task),
		events: make(chan Event, 128),
	}
}

// Events exposes the coordinator's event stream. Events are dropped
// rather than blocking uploads if the consumer falls far behind, so no
// single event is guaranteed to arrive; consumers must range until the
// channel is closed by Close and take batch outcomes from Upload's
// return value.
func (c *Coordinator) Events() <-chan Event {
	return c.events
}

// Add enqueues one file for upload and returns the task ID
func (c *Coordinator) Add(name, contentType string, data []byte) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return "", ErrClosed
	}

	task := &Task{
		ID:          uuid.New().String(),
		Name:        name,
		ContentType: contentType,
		Size:        int64(len(data)),
		State:       StateQueued,
		data:        data,
	}

	c.order = append(c.order, task.ID)
	c.tasks[task.ID] = task

	return task.ID, nil
}

// Task returns a snapshot of one task
func (c *Coordinator) Task(id string) (Task, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	task, ok := c.tasks[id]
	if !ok {
		return Task{}, false
	}
	return snapshot(task), true
}

// Tasks returns snapshots of all tasks in insertion order
func (c *Coordinator) Tasks() []Task {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Task, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, snapshot(c.tasks[id]))
	}
	return out
}

// Upload runs all queued tasks concurrently and reports the batch outcome.
// Files succeed and fail independently; one file's failure never affects
// its siblings, and a failed or canceled file leaves no durable record.
func (c *Coordinator) Upload(ctx context.Context) (BatchDone, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return BatchDone{}, ErrClosed
	}
	var queued []*Task
	for _, id := range c.order {
		if c.tasks[id].State == StateQueued {
			queued = append(queued, c.tasks[id])
		}
	}
	c.mu.Unlock()

	var wg sync.WaitGroup
	for _, task := range queued {
		wg.Add(1)
		go func(t *Task) {
			defer wg.Done()
			c.uploadOne(ctx, t)
		}(task)
	}
	wg.Wait()

	var done BatchDone
	c.mu.Lock()
	for _, t := range queued {
		switch t.State {
		case StateConfirmed:
			done.Confirmed++
		case StateFailed:
			done.Failed++
		}
	}
	c.mu.Unlock()

	c.emit(done)
	return done, nil
}

// uploadOne drives a single task through its state machine
func (c *Coordinator) uploadOne(ctx context.Context, task *Task) {
	c.transition(task, StateUploading, nil, nil)
	c.emit(Started{TaskID: task.ID})

	presigned, err := c.client.CreatePresignedURL(ctx, task.Name, task.ContentType, task.Size)
	if err != nil {
		c.fail(task, fmt.Errorf("presign: %w", err))
		return
	}

	finalURL, err := c.put(ctx, presigned, task)
	if err != nil {
		c.fail(task, err)
		return
	}

	// Only a storage-acknowledged upload may become a durable record
	record, err := c.client.SaveFile(ctx, task.Name, finalURL, task.ContentType)
	if err != nil {
		c.fail(task, fmt.Errorf("save: %w", err))
		return
	}

	c.transition(task, StateConfirmed, nil, record)
	c.emit(Confirmed{TaskID: task.ID, Record: record})
}

// put transfers the bytes directly to storage. The returned URL still
// carries the signing query string; the server strips it when recording
// the canonical path.
func (c *Coordinator) put(ctx context.Context, presigned *api.PresignedUpload, task *Task) (string, error) {
	req, err := http.NewRequestWithContext(ctx, presigned.Method, presigned.URL, bytes.NewReader(task.data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", task.ContentType)
	req.ContentLength = task.Size

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("storage put: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusForbidden {
		// Signature window elapsed (or signature mismatch); a retry needs
		// a fresh presigned URL
		return "", ErrExpiredURL
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("storage put failed: %s: %s", resp.Status, string(body))
	}

	return presigned.URL, nil
}

// Merged combines in-flight tasks with server-confirmed records into one
// display list: in-flight tasks in insertion order, then confirmed records
// in provider order. A record already present in the provider list replaces
// its cached confirmation instead of appearing twice.
func (c *Coordinator) Merged(records []*model.File) []Item {
	c.mu.Lock()
	defer c.mu.Unlock()

	seen := make(map[string]bool, len(records))
	for _, r := range records {
		seen[r.ID] = true
	}

	var items []Item
	for _, id := range c.order {
		task := c.tasks[id]
		if task.State == StateQueued || task.State == StateUploading {
			t := snapshot(task)
			items = append(items, Item{Task: &t})
		}
	}

	// Splice confirmations the provider has not returned yet, so a fresh
	// upload is visible before the next gallery fetch
	remaining := c.confirmed[:0]
	for _, r := range c.confirmed {
		if !seen[r.ID] {
			remaining = append(remaining, r)
			items = append(items, Item{Record: r})
		}
	}
	c.confirmed = remaining

	for _, r := range records {
		items = append(items, Item{Record: r})
	}

	return items
}

// Item is one entry of the merged display list: exactly one of Task
// (still in flight) or Record (server-confirmed) is set.
type Item struct {
	Task   *Task
	Record *model.File
}

// Close tears down the coordinator. Further Add and Upload calls fail
// with ErrClosed. Close is idempotent.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.events)
}

func (c *Coordinator) fail(task *Task, err error) {
	c.transition(task, StateFailed, err, nil)
	c.emit(Failed{TaskID: task.ID, Err: err})
}

func (c *Coordinator) transition(task *Task, state State, err error, record *model.File) {
	c.mu.Lock()
	defer c.mu.Unlock()

	task.State = state
	task.Err = err
	task.Record = record
	if state == StateConfirmed && record != nil {
		c.confirmed = append(c.confirmed, record)
	}
}

func (c *Coordinator) emit(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	select {
	case c.events <- e:
	default:
	}
}

func snapshot(t *Task) Task {
	copied := *t
	copied.data = nil
	return copied
}

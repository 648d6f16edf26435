package sync

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	gosync "sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"
)

type testPayload struct {
	ID    uuid.UUID
	Value string
}

func (p testPayload) PrimaryID() uuid.UUID { return p.ID }

type storedRecord struct {
	payload testPayload
	status  Status
}

// fakeRepo is an in-memory Repository with the same compare-and-set and
// merge semantics the SQLite implementation provides.
type fakeRepo struct {
	mu      gosync.Mutex
	records map[uuid.UUID]*storedRecord
	failSet error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{records: make(map[uuid.UUID]*storedRecord)}
}

func (r *fakeRepo) add(p testPayload, status Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[p.ID] = &storedRecord{payload: p, status: status}
}

func (r *fakeRepo) statusOf(id uuid.UUID) Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.records[id].status
}

func (r *fakeRepo) valueOf(id uuid.UUID) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.records[id].payload.Value
}

func (r *fakeRepo) countIn(status Status) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, rec := range r.records {
		if rec.status == status {
			n++
		}
	}
	return n
}

func (r *fakeRepo) WithStatus(_ context.Context, status Status) ([]testPayload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []testPayload
	for _, rec := range r.records {
		if rec.status == status {
			out = append(out, rec.payload)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (r *fakeRepo) SetStatus(_ context.Context, ids []uuid.UUID, from, to Status) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failSet != nil {
		return nil, r.failSet
	}
	if !CanTransition(from, to) {
		return nil, fmt.Errorf("illegal transition %s -> %s", from, to)
	}
	var won []uuid.UUID
	for _, id := range ids {
		if rec, ok := r.records[id]; ok && rec.status == from {
			rec.status = to
			won = append(won, id)
		}
	}
	return won, nil
}

func (r *fakeRepo) SetStatusAll(_ context.Context, from, to Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.status == from {
			rec.status = to
		}
	}
	return nil
}

func (r *fakeRepo) Merge(_ context.Context, payloads []testPayload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range payloads {
		rec, exists := r.records[p.ID]
		var local Status
		if exists {
			local = rec.status
		}
		switch Resolve(exists, local) {
		case ResolutionInsert, ResolutionOverwrite:
			r.records[p.ID] = &storedRecord{payload: p, status: StatusDone}
		case ResolutionKeepLocal:
		}
	}
	return nil
}

func (r *fakeRepo) PendingCount(_ context.Context) (int, error) {
	return r.countIn(StatusPending), nil
}

// fakeClient scripts transport behavior and records every request.
type fakeClient struct {
	mu          gosync.Mutex
	pushFn      func(batch []testPayload) (*PushOutcome, error)
	pullFn      func(call int, limit int, cursor string) (*PullPage[testPayload], error)
	pushBatches [][]uuid.UUID
	pullCursors []string
}

func (c *fakeClient) Push(_ context.Context, batch []testPayload) (*PushOutcome, error) {
	c.mu.Lock()
	c.pushBatches = append(c.pushBatches, payloadIDs(batch))
	c.mu.Unlock()
	if c.pushFn == nil {
		return &PushOutcome{}, nil
	}
	return c.pushFn(batch)
}

func (c *fakeClient) Pull(_ context.Context, limit int, cursor string) (*PullPage[testPayload], error) {
	c.mu.Lock()
	c.pullCursors = append(c.pullCursors, cursor)
	call := len(c.pullCursors)
	c.mu.Unlock()
	if c.pullFn == nil {
		return &PullPage[testPayload]{}, nil
	}
	return c.pullFn(call, limit, cursor)
}

type memCursorStore struct {
	mu      gosync.Mutex
	cursors map[string]string
	tokens  map[string]int
	sets    int
}

func newMemCursorStore() *memCursorStore {
	return &memCursorStore{cursors: make(map[string]string), tokens: make(map[string]int)}
}

func (s *memCursorStore) Cursor(_ context.Context, recordType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursors[recordType], nil
}

func (s *memCursorStore) SetCursor(_ context.Context, recordType, cursor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cursor != "" {
		s.sets++
	}
	s.cursors[recordType] = cursor
	return nil
}

func (s *memCursorStore) ResyncToken(_ context.Context, recordType string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens[recordType], nil
}

func (s *memCursorStore) SetResyncToken(_ context.Context, recordType string, token int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[recordType] = token
	return nil
}

func (s *memCursorStore) ResetAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursors = make(map[string]string)
	s.tokens = make(map[string]int)
	return nil
}

func testCoordinator(repo *fakeRepo, client *fakeClient, cursors CursorStore, batchSize int) *Coordinator[testPayload] {
	cfg := Config{RecordType: "blood_pressure", BatchSize: batchSize}
	return NewCoordinator[testPayload](repo, client, cursors, cfg, slog.Default())
}

func mustPayload(value string) testPayload {
	return testPayload{ID: uuid.New(), Value: value}
}

func TestPushNoPending(t *testing.T) {
	repo := newFakeRepo()
	client := &fakeClient{}
	coord := testCoordinator(repo, client, newMemCursorStore(), 10)

	res, err := coord.Push(context.Background())
	if err != nil {
		t.Fatalf("push: %v", err)
	}
	if res.Uploaded != 0 || len(client.pushBatches) != 0 {
		t.Errorf("expected no-op, got uploaded=%d requests=%d", res.Uploaded, len(client.pushBatches))
	}
}

func TestPushPartitionsBatch(t *testing.T) {
	repo := newFakeRepo()
	a, b, c := mustPayload("a"), mustPayload("b"), mustPayload("c")
	repo.add(a, StatusPending)
	repo.add(b, StatusPending)
	repo.add(c, StatusPending)

	client := &fakeClient{
		pushFn: func(batch []testPayload) (*PushOutcome, error) {
			return &PushOutcome{ValidationErrors: []ValidationError{
				{ID: b.ID, Field: "value", Message: "out of range"},
			}}, nil
		},
	}
	coord := testCoordinator(repo, client, newMemCursorStore(), 10)

	res, err := coord.Push(context.Background())
	if err != nil {
		t.Fatalf("push: %v", err)
	}
	if res.Uploaded != 2 || res.Rejected != 1 {
		t.Errorf("uploaded=%d rejected=%d, want 2/1", res.Uploaded, res.Rejected)
	}
	if got := repo.statusOf(a.ID); got != StatusDone {
		t.Errorf("a: %s, want DONE", got)
	}
	if got := repo.statusOf(c.ID); got != StatusDone {
		t.Errorf("c: %s, want DONE", got)
	}
	if got := repo.statusOf(b.ID); got != StatusInvalid {
		t.Errorf("b: %s, want INVALID", got)
	}
	if n := repo.countIn(StatusInFlight); n != 0 {
		t.Errorf("%d records left in flight after successful push", n)
	}
}

func TestPushTransportFailureRevertsReservation(t *testing.T) {
	repo := newFakeRepo()
	for i := 0; i < 3; i++ {
		repo.add(mustPayload(strconv.Itoa(i)), StatusPending)
	}
	client := &fakeClient{
		pushFn: func([]testPayload) (*PushOutcome, error) {
			return nil, &TransportError{Op: "push", Err: errors.New("connection refused")}
		},
	}
	coord := testCoordinator(repo, client, newMemCursorStore(), 10)

	_, err := coord.Push(context.Background())
	if err == nil {
		t.Fatal("expected transport error")
	}
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("error %v is not a TransportError", err)
	}
	if !Recoverable(err) {
		t.Error("transport failure should be recoverable")
	}
	if n := repo.countIn(StatusInFlight); n != 0 {
		t.Errorf("%d records stranded in flight", n)
	}
	if n := repo.countIn(StatusPending); n != 3 {
		t.Errorf("pending=%d, want 3 after revert", n)
	}
}

func TestPushDrainsInBatches(t *testing.T) {
	repo := newFakeRepo()
	for i := 0; i < 5; i++ {
		repo.add(mustPayload(strconv.Itoa(i)), StatusPending)
	}
	client := &fakeClient{}
	coord := testCoordinator(repo, client, newMemCursorStore(), 2)

	res, err := coord.Push(context.Background())
	if err != nil {
		t.Fatalf("push: %v", err)
	}
	if res.Uploaded != 5 {
		t.Errorf("uploaded=%d, want 5", res.Uploaded)
	}
	if len(client.pushBatches) != 3 {
		t.Errorf("requests=%d, want 3", len(client.pushBatches))
	}
	for i, batch := range client.pushBatches {
		if len(batch) > 2 {
			t.Errorf("batch %d has %d records, limit 2", i, len(batch))
		}
	}
}

func TestConcurrentPushReservationExclusivity(t *testing.T) {
	repo := newFakeRepo()
	for i := 0; i < 40; i++ {
		repo.add(mustPayload(strconv.Itoa(i)), StatusPending)
	}
	client := &fakeClient{
		pushFn: func([]testPayload) (*PushOutcome, error) {
			time.Sleep(time.Millisecond)
			return &PushOutcome{}, nil
		},
	}
	cursors := newMemCursorStore()

	var wg gosync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			coord := testCoordinator(repo, client, cursors, 5)
			if _, err := coord.Push(context.Background()); err != nil {
				t.Errorf("push: %v", err)
			}
		}()
	}
	wg.Wait()

	seen := make(map[uuid.UUID]int)
	for _, batch := range client.pushBatches {
		for _, id := range batch {
			seen[id]++
		}
	}
	for id, n := range seen {
		if n > 1 {
			t.Errorf("record %s was reserved into %d batches", id, n)
		}
	}
	if n := repo.countIn(StatusDone); n != 40 {
		t.Errorf("done=%d, want 40", n)
	}
}

func TestPullPaginates(t *testing.T) {
	repo := newFakeRepo()
	cursors := newMemCursorStore()

	pages := [][]testPayload{
		{mustPayload("1"), mustPayload("2")},
		{mustPayload("3"), mustPayload("4")},
		{mustPayload("5")},
	}
	client := &fakeClient{
		pullFn: func(call, limit int, cursor string) (*PullPage[testPayload], error) {
			if limit != 2 {
				t.Errorf("limit=%d, want 2", limit)
			}
			return &PullPage[testPayload]{
				Payloads:   pages[call-1],
				NextCursor: fmt.Sprintf("token-%d", call),
			}, nil
		},
	}
	coord := testCoordinator(repo, client, cursors, 2)

	res, err := coord.Pull(context.Background())
	if err != nil {
		t.Fatalf("pull: %v", err)
	}
	if res.Pages != 3 || res.Downloaded != 5 {
		t.Errorf("pages=%d downloaded=%d, want 3/5", res.Pages, res.Downloaded)
	}
	if len(client.pullCursors) != 3 {
		t.Fatalf("requests=%d, want 3", len(client.pullCursors))
	}
	if client.pullCursors[0] != "" {
		t.Errorf("first request cursor %q, want absent", client.pullCursors[0])
	}
	if client.pullCursors[1] != "token-1" || client.pullCursors[2] != "token-2" {
		t.Errorf("cursor chain broken: %v", client.pullCursors)
	}
	if cursors.sets != 3 {
		t.Errorf("cursor persisted %d times, want 3", cursors.sets)
	}
	if got, _ := cursors.Cursor(context.Background(), "blood_pressure"); got != "token-3" {
		t.Errorf("final cursor %q, want token-3", got)
	}
	if n := repo.countIn(StatusDone); n != 5 {
		t.Errorf("done=%d, want all 5 merged as done", n)
	}
}

func TestPullLocalEditWins(t *testing.T) {
	repo := newFakeRepo()
	local := testPayload{ID: uuid.New(), Value: "edited offline"}
	repo.add(local, StatusPending)

	serverCopy := testPayload{ID: local.ID, Value: "server version"}
	client := &fakeClient{
		pullFn: func(call, limit int, cursor string) (*PullPage[testPayload], error) {
			return &PullPage[testPayload]{Payloads: []testPayload{serverCopy}, NextCursor: "t1"}, nil
		},
	}
	coord := testCoordinator(repo, client, newMemCursorStore(), 10)

	if _, err := coord.Pull(context.Background()); err != nil {
		t.Fatalf("pull: %v", err)
	}
	if got := repo.valueOf(local.ID); got != "edited offline" {
		t.Errorf("local edit overwritten: %q", got)
	}
	if got := repo.statusOf(local.ID); got != StatusPending {
		t.Errorf("local status %s, want PENDING", got)
	}
}

func TestPullMergeIdempotent(t *testing.T) {
	repo := newFakeRepo()
	page := []testPayload{mustPayload("1"), mustPayload("2")}

	ctx := context.Background()
	if err := repo.Merge(ctx, page); err != nil {
		t.Fatalf("merge: %v", err)
	}
	if err := repo.Merge(ctx, page); err != nil {
		t.Fatalf("re-merge: %v", err)
	}
	if n := repo.countIn(StatusDone); n != 2 {
		t.Errorf("done=%d after double merge, want 2", n)
	}
}

func TestPullFailureKeepsCommittedProgress(t *testing.T) {
	repo := newFakeRepo()
	cursors := newMemCursorStore()
	client := &fakeClient{
		pullFn: func(call, limit int, cursor string) (*PullPage[testPayload], error) {
			if call == 1 {
				return &PullPage[testPayload]{
					Payloads:   []testPayload{mustPayload("1"), mustPayload("2")},
					NextCursor: "token-1",
				}, nil
			}
			return nil, &TransportError{Op: "pull", Err: errors.New("timeout")}
		},
	}
	coord := testCoordinator(repo, client, cursors, 2)

	res, err := coord.Pull(context.Background())
	if err == nil {
		t.Fatal("expected transport error")
	}
	if res.Pages != 1 || res.Downloaded != 2 {
		t.Errorf("pages=%d downloaded=%d, want 1/2 retained", res.Pages, res.Downloaded)
	}
	if got, _ := cursors.Cursor(context.Background(), "blood_pressure"); got != "token-1" {
		t.Errorf("cursor %q, want token-1 (last committed)", got)
	}

	// Next invocation resumes from the committed cursor.
	client.pullFn = func(call, limit int, cursor string) (*PullPage[testPayload], error) {
		return &PullPage[testPayload]{Payloads: nil, NextCursor: "token-1"}, nil
	}
	if _, err := coord.Pull(context.Background()); err != nil {
		t.Fatalf("resume pull: %v", err)
	}
	last := client.pullCursors[len(client.pullCursors)-1]
	if last != "token-1" {
		t.Errorf("resumed from %q, want token-1", last)
	}
}

func TestPullResyncTokenBumpRestartsInitialPull(t *testing.T) {
	repo := newFakeRepo()
	cursors := newMemCursorStore()
	ctx := context.Background()
	if err := cursors.SetCursor(ctx, "blood_pressure", "stale-token"); err != nil {
		t.Fatal(err)
	}

	client := &fakeClient{
		pullFn: func(call, limit int, cursor string) (*PullPage[testPayload], error) {
			return &PullPage[testPayload]{Payloads: nil, NextCursor: "fresh"}, nil
		},
	}
	cfg := Config{RecordType: "blood_pressure", BatchSize: 10, ResyncToken: 2}
	coord := NewCoordinator[testPayload](repo, client, cursors, cfg, slog.Default())

	if _, err := coord.Pull(ctx); err != nil {
		t.Fatalf("pull: %v", err)
	}
	if client.pullCursors[0] != "" {
		t.Errorf("first request used stale cursor %q", client.pullCursors[0])
	}
	if tok, _ := cursors.ResyncToken(ctx, "blood_pressure"); tok != 2 {
		t.Errorf("stored resync token %d, want 2", tok)
	}
}

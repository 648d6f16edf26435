package record

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"
)

type fakeRepo struct {
	upserted []Envelope
}

func (f *fakeRepo) UpsertBatch(_ context.Context, _ int, _ Type, records []Envelope) error {
	f.upserted = append(f.upserted, records...)
	return nil
}

func (f *fakeRepo) Page(context.Context, int, Type, int, PageCursor) ([]Envelope, string, error) {
	return nil, "", nil
}

func validEnvelope(t *testing.T, payload any) Envelope {
	t.Helper()
	env, err := NewEnvelope(uuid.New(), payload)
	if err != nil {
		t.Fatalf("new envelope: %v", err)
	}
	return env
}

func TestApplyPushPartitionsBatch(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo, slog.Default())

	good := validEnvelope(t, BloodPressure{Systolic: 120, Diastolic: 80})
	badPayload := validEnvelope(t, BloodPressure{Systolic: 999, Diastolic: 80})
	badClock := validEnvelope(t, BloodPressure{Systolic: 118, Diastolic: 76})
	badClock.UpdatedAt = badClock.CreatedAt.Add(-time.Hour)
	noID := validEnvelope(t, BloodPressure{Systolic: 118, Diastolic: 76})
	noID.ID = uuid.Nil

	failures, err := svc.ApplyPush(context.Background(), 1, TypeBloodPressure,
		[]Envelope{good, badPayload, badClock, noID})
	if err != nil {
		t.Fatalf("apply push: %v", err)
	}

	if len(failures) != 3 {
		t.Fatalf("got %d validation errors, want 3: %v", len(failures), failures)
	}
	if len(repo.upserted) != 1 || repo.upserted[0].ID != good.ID {
		t.Errorf("stored %v, want only the valid record", repo.upserted)
	}

	fields := map[uuid.UUID]string{}
	for _, f := range failures {
		fields[f.ID] = f.Field
	}
	if fields[badPayload.ID] != "systolic" {
		t.Errorf("payload failure field %q, want systolic", fields[badPayload.ID])
	}
	if fields[badClock.ID] != "updated_at" {
		t.Errorf("clock failure field %q, want updated_at", fields[badClock.ID])
	}
}

func TestApplyPushEmptyBatchSkipsStore(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo, slog.Default())

	failures, err := svc.ApplyPush(context.Background(), 1, TypeBloodPressure, nil)
	if err != nil {
		t.Fatalf("apply push: %v", err)
	}
	if len(failures) != 0 || len(repo.upserted) != 0 {
		t.Errorf("empty batch produced failures=%v stored=%v", failures, repo.upserted)
	}
}

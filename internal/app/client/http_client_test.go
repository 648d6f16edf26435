package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"medisync/internal/app/client/config"
	"medisync/internal/domain/record"
	"medisync/internal/sync"
)

func testAPI(t *testing.T, handler http.Handler) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := &config.Config{ServerAddress: strings.TrimPrefix(srv.URL, "http://")}
	api := NewHTTPClient(cfg, slog.Default())
	api.SetToken("test-token")
	return api
}

func TestSyncTransportPush(t *testing.T) {
	rejectedID := uuid.New()

	api := testAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/sync/blood_pressure/push" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("authorization header %q", got)
		}
		var req pushRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode push body: %v", err)
		}
		if len(req.Records) != 2 {
			t.Errorf("pushed %d records, want 2", len(req.Records))
		}
		json.NewEncoder(w).Encode(pushResponse{
			ValidationErrors: []sync.ValidationError{{ID: rejectedID, Field: "systolic", Message: "out of range"}},
		})
	}))

	transport := api.ForType(sync.Config{RecordType: "blood_pressure"})

	batch := []record.Envelope{
		{ID: uuid.New(), PatientID: uuid.New(), Payload: []byte(`{}`)},
		{ID: rejectedID, PatientID: uuid.New(), Payload: []byte(`{}`)},
	}
	outcome, err := transport.Push(context.Background(), batch)
	if err != nil {
		t.Fatalf("push: %v", err)
	}
	if len(outcome.ValidationErrors) != 1 || outcome.ValidationErrors[0].ID != rejectedID {
		t.Errorf("validation errors %v", outcome.ValidationErrors)
	}
}

func TestSyncTransportPullCursorProtocols(t *testing.T) {
	var gotQuery map[string][]string
	var gotResync string

	api := testAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		gotResync = r.Header.Get("X-Resync-Token")
		json.NewEncoder(w).Encode(pullResponse{Records: nil, ProcessedSince: "next"})
	}))

	t.Run("opaque token protocol", func(t *testing.T) {
		transport := api.ForType(sync.Config{RecordType: "blood_pressure", ResyncToken: 2})
		page, err := transport.Pull(context.Background(), 50, "tok-9")
		if err != nil {
			t.Fatalf("pull: %v", err)
		}
		if got := gotQuery["process_token"]; len(got) != 1 || got[0] != "tok-9" {
			t.Errorf("process_token=%v", got)
		}
		if got := gotQuery["limit"]; len(got) != 1 || got[0] != "50" {
			t.Errorf("limit=%v", got)
		}
		if gotResync != "2" {
			t.Errorf("X-Resync-Token=%q, want 2", gotResync)
		}
		if page.NextCursor != "next" {
			t.Errorf("next cursor %q", page.NextCursor)
		}
	})

	t.Run("legacy timestamp protocol", func(t *testing.T) {
		transport := api.ForType(sync.Config{RecordType: "medical_history", LegacyCursor: true})
		if _, err := transport.Pull(context.Background(), 10, "2024-01-01T00:00:00Z"); err != nil {
			t.Fatalf("pull: %v", err)
		}
		if got := gotQuery["processed_since"]; len(got) != 1 || got[0] != "2024-01-01T00:00:00Z" {
			t.Errorf("processed_since=%v", got)
		}
		if _, ok := gotQuery["process_token"]; ok {
			t.Error("legacy pull sent process_token")
		}
	})

	t.Run("initial pull omits cursor", func(t *testing.T) {
		transport := api.ForType(sync.Config{RecordType: "blood_pressure"})
		if _, err := transport.Pull(context.Background(), 10, ""); err != nil {
			t.Fatalf("pull: %v", err)
		}
		if _, ok := gotQuery["process_token"]; ok {
			t.Error("initial pull sent a cursor")
		}
	})
}

func TestSyncTransportErrorMapping(t *testing.T) {
	t.Run("non-2xx is a transport error", func(t *testing.T) {
		api := testAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		transport := api.ForType(sync.Config{RecordType: "blood_pressure"})

		_, err := transport.Pull(context.Background(), 10, "")
		var te *sync.TransportError
		if !errors.As(err, &te) {
			t.Errorf("err %v, want TransportError", err)
		}
	})

	t.Run("malformed body is a protocol error", func(t *testing.T) {
		api := testAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("not json"))
		}))
		transport := api.ForType(sync.Config{RecordType: "blood_pressure"})

		_, err := transport.Push(context.Background(), []record.Envelope{{ID: uuid.New()}})
		var pe *sync.ProtocolError
		if !errors.As(err, &pe) {
			t.Errorf("err %v, want ProtocolError", err)
		}
		if !sync.Recoverable(err) {
			t.Error("protocol error should be recoverable")
		}
	})
}

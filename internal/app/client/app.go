package client

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/exp/slog"

	"medisync/internal/app/client/config"
	"medisync/internal/domain/record"
	"medisync/internal/sync"
)

// Per-type sync tuning. High-volume vitals ride the frequent group with the
// default page size; verbose, slow-moving types sync small and daily.
// Medical history still speaks the legacy timestamp-cursor protocol.
var syncConfigs = []sync.Config{
	{RecordType: string(record.TypeBloodPressure), BatchSize: sync.BatchSizeDefault, Group: sync.GroupFrequent},
	{RecordType: string(record.TypeBloodSugar), BatchSize: sync.BatchSizeDefault, Group: sync.GroupFrequent},
	{RecordType: string(record.TypePrescription), BatchSize: sync.BatchSizeSmall, Group: sync.GroupFrequent},
	{RecordType: string(record.TypeMedicalHistory), BatchSize: sync.BatchSizeVerySmall, Group: sync.GroupDaily, LegacyCursor: true},
	{RecordType: string(record.TypeProtocol), BatchSize: sync.BatchSizeVerySmall, Group: sync.GroupDaily, ResyncToken: 1},
}

// App wires the client together: local store, server transport, and one
// sync facade per record type.
type App struct {
	cfg       *config.Config
	log       *slog.Logger
	store     *Store
	prefs     *PrefStore
	api       *HTTPClient
	repos     map[record.Type]*RecordRepository
	syncers   []sync.Syncer
	scheduler *sync.Scheduler
}

func New(cfg *config.Config, log *slog.Logger) (*App, error) {
	store, err := OpenStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}

	prefs := NewPrefStore(store)
	api := NewHTTPClient(cfg, log)

	token, err := prefs.SessionToken(context.Background())
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("load session: %w", err)
	}
	api.SetToken(token)

	app := &App{
		cfg:   cfg,
		log:   log,
		store: store,
		prefs: prefs,
		api:   api,
		repos: make(map[record.Type]*RecordRepository, len(syncConfigs)),
	}

	for _, sc := range syncConfigs {
		recordType := record.Type(sc.RecordType)
		repo := NewRecordRepository(store, recordType, log)
		app.repos[recordType] = repo

		coord := sync.NewCoordinator[record.Envelope](repo, api.ForType(sc), prefs, sc, log)
		app.syncers = append(app.syncers, sync.NewModelSync(coord))
	}

	app.scheduler = sync.NewScheduler(sync.SchedulerConfig{
		FrequentSpec: cfg.SyncFrequentSpec,
		DailySpec:    cfg.SyncDailySpec,
	}, app.syncers, log)

	return app, nil
}

func (a *App) Close() error {
	return a.store.Close()
}

func (a *App) Repository(t record.Type) (*RecordRepository, error) {
	repo, ok := a.repos[t]
	if !ok {
		return nil, record.ErrUnknownType
	}
	return repo, nil
}

func (a *App) Syncers() []sync.Syncer { return a.syncers }

func (a *App) SyncerFor(t record.Type) (sync.Syncer, error) {
	for _, s := range a.syncers {
		if s.Name() == string(t) {
			return s, nil
		}
	}
	return nil, record.ErrUnknownType
}

// SyncAll pushes and pulls every record type sequentially and returns the
// combined result. Recoverable failures of one type do not stop the others.
func (a *App) SyncAll(ctx context.Context) (*sync.Result, error) {
	combined := &sync.Result{}
	var errs []error
	for _, s := range a.syncers {
		res, err := s.Sync(ctx)
		if res != nil {
			combined.Uploaded += res.Uploaded
			combined.Rejected += res.Rejected
			combined.Downloaded += res.Downloaded
			combined.Pages += res.Pages
			combined.Rejections = append(combined.Rejections, res.Rejections...)
			combined.Duration += res.Duration
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return combined, errors.Join(errs...)
}

// PendingTotal sums the push backlog across record types, for progress
// indicators.
func (a *App) PendingTotal(ctx context.Context) (int, error) {
	total := 0
	for _, s := range a.syncers {
		n, err := s.PendingCount(ctx)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// StartAutoSync runs the scheduler until the context is canceled.
func (a *App) StartAutoSync(ctx context.Context) error {
	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	<-ctx.Done()
	a.scheduler.Stop()
	return nil
}

func (a *App) IsAuthenticated() bool { return a.api.token != "" }

func (a *App) CheckConnection(ctx context.Context) error { return a.api.Health(ctx) }

func (a *App) Register(ctx context.Context, email, password string) error {
	token, err := a.api.Register(ctx, email, password)
	if err != nil {
		return err
	}
	return a.storeSession(ctx, token)
}

func (a *App) Login(ctx context.Context, email, password string) error {
	token, err := a.api.Login(ctx, email, password)
	if err != nil {
		return err
	}
	return a.storeSession(ctx, token)
}

func (a *App) storeSession(ctx context.Context, token string) error {
	if err := a.prefs.SetSessionToken(ctx, token); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	a.api.SetToken(token)
	return nil
}

// Logout ends the server session, drops the stored token, and resets every
// pull cursor so the next login starts with initial pulls.
func (a *App) Logout(ctx context.Context) error {
	if err := a.api.Logout(ctx); err != nil && !sync.Recoverable(err) {
		return err
	}
	if err := a.prefs.SetSessionToken(ctx, ""); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	if err := a.prefs.ResetAll(ctx); err != nil {
		return fmt.Errorf("reset cursors: %w", err)
	}
	a.api.SetToken("")
	return nil
}

package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"traffic_control/internal/inventory"
	"traffic_control/internal/logger"
	"traffic_control/internal/metrics"
	"traffic_control/internal/models"
	"traffic_control/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signalCall struct {
	lightID    string
	colorCode  int
	remainTime int
	autoOn     bool
}

type fakeTrafficLightRepo struct {
	mu      sync.Mutex
	records map[string]models.TrafficLightRecord
	signals []signalCall
	touched []string

	signalErr error
	upsertErr error
}

func newFakeTrafficLightRepo() *fakeTrafficLightRepo {
	return &fakeTrafficLightRepo{records: make(map[string]models.TrafficLightRecord)}
}

func (f *fakeTrafficLightRepo) Get(ctx context.Context, lightID string) (models.TrafficLightRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[lightID]
	if !ok {
		return models.TrafficLightRecord{}, repository.ErrTrafficLightNotFound
	}
	return rec, nil
}

func (f *fakeTrafficLightRepo) Upsert(ctx context.Context, rec models.TrafficLightRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.records[rec.ID] = rec
	return nil
}

func (f *fakeTrafficLightRepo) SetSignal(ctx context.Context, lightID string, colorCode, remainTime int, autoOn bool, timestamp string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.signalErr != nil {
		return f.signalErr
	}
	f.signals = append(f.signals, signalCall{lightID: lightID, colorCode: colorCode, remainTime: remainTime, autoOn: autoOn})
	return nil
}

func (f *fakeTrafficLightRepo) Touch(ctx context.Context, lightID, timestamp string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touched = append(f.touched, lightID)
	return nil
}

type inventoryCall struct {
	lightID string
	params  inventory.UpdateParams
}

type fakeInventoryAPI struct {
	mu      sync.Mutex
	lights  []inventory.Light
	updates []inventoryCall

	listErr   error
	updateErr error
}

func (f *fakeInventoryAPI) ListByIntersection(ctx context.Context, intersectionID string) ([]inventory.Light, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]inventory.Light(nil), f.lights...), nil
}

func (f *fakeInventoryAPI) UpdateLight(ctx context.Context, lightID string, p inventory.UpdateParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates = append(f.updates, inventoryCall{lightID: lightID, params: p})
	return nil
}

func newTestOverride(repo *fakeJunctionRepo, lights *fakeTrafficLightRepo, inv *fakeInventoryAPI) *OverrideService {
	var api inventory.API
	if inv != nil {
		api = inv
	}
	return NewOverrideService(repo, lights, api, &eventLogStub{}, metrics.NewCollector(), logger.Get(logger.ErrorLevel))
}

func TestForceGreen_WritesPrimaryState(t *testing.T) {
	repo := newFakeJunctionRepo()
	require.NoError(t, repo.Save(context.Background(), fourWayJunction("j1")))
	svc := newTestOverride(repo, newFakeTrafficLightRepo(), nil)

	require.NoError(t, svc.ForceGreen(context.Background(), "j1", "B", 45))

	j, err := repo.Load(context.Background(), "j1")
	require.NoError(t, err)
	assert.Equal(t, models.ModeManual, j.Mode)
	assert.Equal(t, models.ColorGreen, j.Lights["B"].Color)
	assert.Equal(t, 45, j.Lights["B"].RemainingSeconds)
}

func TestForceGreen_RejectsInvalidInput(t *testing.T) {
	repo := newFakeJunctionRepo()
	require.NoError(t, repo.Save(context.Background(), fourWayJunction("j1")))
	svc := newTestOverride(repo, newFakeTrafficLightRepo(), nil)

	assert.Error(t, svc.ForceGreen(context.Background(), "j1", "B", 0))
	assert.ErrorIs(t, svc.ForceGreen(context.Background(), "missing", "B", 30), ErrUnknownJunction)
	assert.ErrorIs(t, svc.ForceGreen(context.Background(), "j1", "Z", 30), ErrUnknownDirection)
}

func TestForceGreen_PropagatesToTrackedRecord(t *testing.T) {
	repo := newFakeJunctionRepo()
	j := fourWayJunction("j1")
	b := j.Lights["B"]
	b.TrafficLightID = "tl-7"
	j.Lights["B"] = b
	require.NoError(t, repo.Save(context.Background(), j))

	lights := newFakeTrafficLightRepo()
	inv := &fakeInventoryAPI{}
	svc := newTestOverride(repo, lights, inv)

	require.NoError(t, svc.ForceGreen(context.Background(), "j1", "B", 30))

	require.Len(t, lights.signals, 1)
	assert.Equal(t, signalCall{lightID: "tl-7", colorCode: models.LegacyColorGreen, remainTime: 30, autoOn: false}, lights.signals[0])

	require.Len(t, inv.updates, 1)
	assert.Equal(t, "tl-7", inv.updates[0].lightID)
	assert.Equal(t, models.ColorGreen, inv.updates[0].params.CurrentColor)
	assert.False(t, inv.updates[0].params.AutoMode)
}

func TestForceGreen_SecondaryFailureDoesNotRollBack(t *testing.T) {
	repo := newFakeJunctionRepo()
	j := fourWayJunction("j1")
	b := j.Lights["B"]
	b.TrafficLightID = "tl-7"
	j.Lights["B"] = b
	require.NoError(t, repo.Save(context.Background(), j))

	lights := newFakeTrafficLightRepo()
	lights.signalErr = errors.New("backend down")
	inv := &fakeInventoryAPI{updateErr: errors.New("backend down")}
	svc := newTestOverride(repo, lights, inv)

	// Both secondary writes fail; the primary state still holds.
	require.NoError(t, svc.ForceGreen(context.Background(), "j1", "B", 30))

	got, err := repo.Load(context.Background(), "j1")
	require.NoError(t, err)
	assert.Equal(t, models.ColorGreen, got.Lights["B"].Color)
	assert.Equal(t, models.ModeManual, got.Mode)
}

func TestResumeAuto_RestoresAutomaticMode(t *testing.T) {
	repo := newFakeJunctionRepo()
	j := fourWayJunction("j1")
	j.Mode = models.ModeManual
	b := j.Lights["B"]
	b.TrafficLightID = "tl-7"
	j.Lights["B"] = b
	require.NoError(t, repo.Save(context.Background(), j))

	lights := newFakeTrafficLightRepo()
	inv := &fakeInventoryAPI{}
	svc := newTestOverride(repo, lights, inv)

	require.NoError(t, svc.ResumeAuto(context.Background(), "j1", "B"))

	got, err := repo.Load(context.Background(), "j1")
	require.NoError(t, err)
	assert.Equal(t, models.ModeAuto, got.Mode)

	require.Len(t, inv.updates, 1)
	assert.True(t, inv.updates[0].params.AutoMode)
	assert.Equal(t, []string{"tl-7"}, lights.touched)
}

func TestResumeAuto_UnknownTargets(t *testing.T) {
	repo := newFakeJunctionRepo()
	require.NoError(t, repo.Save(context.Background(), fourWayJunction("j1")))
	svc := newTestOverride(repo, newFakeTrafficLightRepo(), nil)

	assert.ErrorIs(t, svc.ResumeAuto(context.Background(), "missing", "B"), ErrUnknownJunction)
	assert.ErrorIs(t, svc.ResumeAuto(context.Background(), "j1", "Z"), ErrUnknownDirection)
}

func TestSaveDurations_PersistsOverrides(t *testing.T) {
	repo := newFakeJunctionRepo()
	require.NoError(t, repo.Save(context.Background(), fourWayJunction("j1")))
	svc := newTestOverride(repo, newFakeTrafficLightRepo(), nil)

	require.NoError(t, svc.SaveDurations(context.Background(), "j1", "C", 20, 4))

	j, err := repo.Load(context.Background(), "j1")
	require.NoError(t, err)
	assert.Equal(t, 20, j.Lights["C"].GreenSeconds)
	assert.Equal(t, 4, j.Lights["C"].YellowSeconds)
}

func TestSaveDurations_RejectsInvalidValues(t *testing.T) {
	repo := newFakeJunctionRepo()
	require.NoError(t, repo.Save(context.Background(), fourWayJunction("j1")))
	svc := newTestOverride(repo, newFakeTrafficLightRepo(), nil)

	assert.Error(t, svc.SaveDurations(context.Background(), "j1", "C", 0, 5))
	assert.Error(t, svc.SaveDurations(context.Background(), "j1", "C", 20, 0))
	assert.ErrorIs(t, svc.SaveDurations(context.Background(), "missing", "C", 20, 5), ErrUnknownJunction)
}

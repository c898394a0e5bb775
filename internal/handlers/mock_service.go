package handlers

import (
	"context"
	"net/http"

	"traffic_control/internal/models"
	"traffic_control/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername string
	lastSignUpPassword string
	lastParseToken     string
}

func (m *mockAuth) SignUp(username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(username, password string) (string, error) {
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockScheduler struct {
	startErr     error
	stopErr      error
	emergencyErr error
	running      bool

	startCalled     int
	stopCalled      int
	emergencyCalled int
}

func (m *mockScheduler) Start(ctx context.Context) error {
	m.startCalled++
	return m.startErr
}
func (m *mockScheduler) Stop(ctx context.Context) error {
	m.stopCalled++
	return m.stopErr
}
func (m *mockScheduler) EmergencyStop(ctx context.Context) error {
	m.emergencyCalled++
	return m.emergencyErr
}
func (m *mockScheduler) IsRunning() bool { return m.running }

type mockOverride struct {
	forceErr     error
	resumeErr    error
	durationsErr error

	lastJunction  string
	lastDirection string
	lastSeconds   int
	lastGreen     int
	lastYellow    int
}

func (m *mockOverride) ForceGreen(ctx context.Context, junctionID, direction string, seconds int) error {
	m.lastJunction, m.lastDirection, m.lastSeconds = junctionID, direction, seconds
	return m.forceErr
}
func (m *mockOverride) ResumeAuto(ctx context.Context, junctionID, direction string) error {
	m.lastJunction, m.lastDirection = junctionID, direction
	return m.resumeErr
}
func (m *mockOverride) SaveDurations(ctx context.Context, junctionID, direction string, green, yellow int) error {
	m.lastJunction, m.lastDirection = junctionID, direction
	m.lastGreen, m.lastYellow = green, yellow
	return m.durationsErr
}

type mockJunctions struct {
	junction   models.Junction
	junctions  []models.Junction
	getErr     error
	listErr    error
	createErr  error
	syncLinked int
	syncErr    error

	lastCreateID         string
	lastCreateName       string
	lastCreateDirections []string
}

func (m *mockJunctions) GetJunction(ctx context.Context, junctionID string) (models.Junction, error) {
	return m.junction, m.getErr
}
func (m *mockJunctions) ListJunctions(ctx context.Context) ([]models.Junction, error) {
	return m.junctions, m.listErr
}
func (m *mockJunctions) CreateJunction(ctx context.Context, id, name string, directions []string) (models.Junction, error) {
	m.lastCreateID, m.lastCreateName, m.lastCreateDirections = id, name, directions
	return m.junction, m.createErr
}
func (m *mockJunctions) SyncInventory(ctx context.Context, junctionID string) (int, error) {
	return m.syncLinked, m.syncErr
}

type mockEventLog struct {
	listResp   []models.ControlEvent
	listErr    error
	recentResp []models.ControlEvent

	lastFilter      service.LogFilter
	lastRecentLimit int
}

func (m *mockEventLog) Record(ctx context.Context, e models.ControlEvent) error { return nil }
func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.ControlEvent, error) {
	m.lastFilter = f
	return m.listResp, m.listErr
}
func (m *mockEventLog) Recent(limit int) []models.ControlEvent {
	m.lastRecentLimit = limit
	return m.recentResp
}

type mockEta struct {
	cmp service.EtaComparison
	err error

	lastLightID string
	lastLat     float64
	lastLng     float64
}

func (m *mockEta) Compare(ctx context.Context, lightID string, destLat, destLng float64) (service.EtaComparison, error) {
	m.lastLightID, m.lastLat, m.lastLng = lightID, destLat, destLng
	return m.cmp, m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}

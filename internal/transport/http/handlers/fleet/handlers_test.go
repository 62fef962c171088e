package fleethandler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"truckbooks/internal/domain/audit"
	"truckbooks/internal/domain/auth"
	"truckbooks/internal/domain/fleet"
	"truckbooks/internal/domain/payroll"
	"truckbooks/internal/transport/http/middleware"
)

const testSecret = "fleet-secret"

type memoryFleet struct {
	mu      sync.Mutex
	drivers map[string]fleet.Driver
	trucks  map[string]fleet.Truck
	loads   []fleet.Load
	fuel    []fleet.FuelEntry
	filters []fleet.Filter
}

func newMemoryFleet() *memoryFleet {
	return &memoryFleet{drivers: map[string]fleet.Driver{}, trucks: map[string]fleet.Truck{}}
}

func (m *memoryFleet) CountDrivers(_ context.Context, status string) (int, error) {
	drivers, _ := m.ListDrivers(context.Background(), status, 1000, 0)
	return len(drivers), nil
}

func (m *memoryFleet) ListDrivers(_ context.Context, status string, _, _ int) ([]fleet.Driver, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []fleet.Driver
	for _, d := range m.drivers {
		if status == "" || d.Status == status {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memoryFleet) GetDriver(_ context.Context, id string) (fleet.Driver, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drivers[id]
	if !ok {
		return fleet.Driver{}, fleet.ErrDriverNotFound
	}
	return d, nil
}

func (m *memoryFleet) CreateDriver(_ context.Context, d fleet.Driver) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d.ID = uuid.NewString()
	m.drivers[d.ID] = d
	return d.ID, nil
}

func (m *memoryFleet) UpdateDriver(_ context.Context, d fleet.Driver) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.drivers[d.ID]; !ok {
		return fleet.ErrDriverNotFound
	}
	m.drivers[d.ID] = d
	return nil
}

func (m *memoryFleet) CountTrucks(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.trucks), nil
}

func (m *memoryFleet) ListTrucks(context.Context, int, int) ([]fleet.Truck, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []fleet.Truck
	for _, t := range m.trucks {
		out = append(out, t)
	}
	return out, nil
}

func (m *memoryFleet) GetTruck(_ context.Context, id string) (fleet.Truck, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trucks[id]
	if !ok {
		return fleet.Truck{}, fleet.ErrTruckNotFound
	}
	return t, nil
}

func (m *memoryFleet) CreateTruck(_ context.Context, t fleet.Truck) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.trucks {
		if existing.UnitNumber == t.UnitNumber {
			return "", fleet.ErrDuplicateUnitNumber
		}
	}
	t.ID = uuid.NewString()
	m.trucks[t.ID] = t
	return t.ID, nil
}

func (m *memoryFleet) UpdateTruck(_ context.Context, t fleet.Truck) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.trucks[t.ID]; !ok {
		return fleet.ErrTruckNotFound
	}
	m.trucks[t.ID] = t
	return nil
}

func (m *memoryFleet) CountLoads(_ context.Context, filter fleet.Filter) (int, error) {
	loads, _ := m.ListLoads(context.Background(), filter)
	return len(loads), nil
}

func (m *memoryFleet) ListLoads(_ context.Context, filter fleet.Filter) ([]fleet.Load, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.filters = append(m.filters, filter)
	var out []fleet.Load
	for _, l := range m.loads {
		if filter.DriverID == "" || l.DriverID == filter.DriverID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memoryFleet) GetLoad(_ context.Context, id string) (fleet.Load, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.loads {
		if l.ID == id {
			return l, nil
		}
	}
	return fleet.Load{}, fleet.ErrLoadNotFound
}

func (m *memoryFleet) CreateLoad(_ context.Context, l fleet.Load) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l.ID = uuid.NewString()
	m.loads = append(m.loads, l)
	return l.ID, nil
}

func (m *memoryFleet) CountFuelEntries(_ context.Context, filter fleet.Filter) (int, error) {
	entries, _ := m.ListFuelEntries(context.Background(), filter)
	return len(entries), nil
}

func (m *memoryFleet) ListFuelEntries(_ context.Context, _ fleet.Filter) ([]fleet.FuelEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]fleet.FuelEntry(nil), m.fuel...), nil
}

func (m *memoryFleet) CreateFuelEntry(_ context.Context, e fleet.FuelEntry) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = uuid.NewString()
	m.fuel = append(m.fuel, e)
	return e.ID, nil
}

type stubStats struct {
	from, to time.Time
}

func (s *stubStats) DriverStats(_ context.Context, driverID string, from, to time.Time) (payroll.DriverStats, error) {
	if driverID == "missing" {
		return payroll.DriverStats{}, fleet.ErrDriverNotFound
	}
	s.from, s.to = from, to
	return payroll.DriverStats{DriverID: driverID, AvgMPG: 5}, nil
}

func (s *stubStats) TruckStats(_ context.Context, truckID string, _, _ time.Time) (payroll.TruckStats, error) {
	return payroll.TruckStats{TruckID: truckID, ActualMPG: 6.5}, nil
}

type countingAudit struct {
	mu      sync.Mutex
	actions []string
}

func (a *countingAudit) Record(_ context.Context, entry audit.Entry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.actions = append(a.actions, entry.Action)
	return nil
}

type fixture struct {
	server *httptest.Server
	store  *memoryFleet
	stats  *stubStats
	audit  *countingAudit
	token  string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := newMemoryFleet()
	stats := &stubStats{}
	recorder := &countingAudit{}
	h := NewHandler(store, stats, recorder, middleware.StaticPermissions{})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Auth(testSecret))
	r.Route("/api/v1", h.RegisterRoutes)
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	token, err := auth.GenerateToken(testSecret, auth.Claims{UserID: "disp-1", Role: auth.RoleDispatcher}, time.Now(), time.Hour)
	require.NoError(t, err)
	return fixture{server: server, store: store, stats: stats, audit: recorder, token: token}
}

func (f fixture) do(t *testing.T, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req, err := http.NewRequest(method, f.server.URL+path, bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+f.token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var envelope map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	return resp.StatusCode, envelope
}

func dataID(t *testing.T, envelope map[string]any) string {
	t.Helper()
	data, ok := envelope["data"].(map[string]any)
	require.True(t, ok, "missing data in %v", envelope)
	id, _ := data["id"].(string)
	require.NotEmpty(t, id)
	return id
}

func TestDriverCRUD(t *testing.T) {
	f := newFixture(t)

	status, envelope := f.do(t, http.MethodPost, "/api/v1/drivers", map[string]any{
		"firstName":          "Ana",
		"lastName":           "Ruiz",
		"paymentType":        "PER_MILE",
		"payRate":            "0.55",
		"fuelAdvanceRate":    50,
		"insuranceDeduction": "$1,200",
	})
	require.Equal(t, http.StatusCreated, status)
	id := dataID(t, envelope)

	stored := f.store.drivers[id]
	assert.Equal(t, fleet.PaymentTypePerMile, stored.PaymentType)
	assert.Equal(t, 0.55, stored.PayRate)
	assert.Equal(t, 1200.0, stored.InsuranceDeduction)
	assert.Equal(t, fleet.DriverStatusActive, stored.Status)

	status, envelope = f.do(t, http.MethodGet, "/api/v1/drivers/"+id, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Ana", envelope["data"].(map[string]any)["firstName"])

	status, _ = f.do(t, http.MethodPut, "/api/v1/drivers/"+id, map[string]any{
		"firstName": "Ana", "lastName": "Ruiz", "paymentType": "flat_rate", "payRate": 900, "status": "inactive",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, fleet.PaymentTypeFlatRate, f.store.drivers[id].PaymentType)

	status, envelope = f.do(t, http.MethodGet, "/api/v1/drivers?status=inactive", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, envelope["data"], 1)

	status, _ = f.do(t, http.MethodGet, "/api/v1/drivers/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, status)

	assert.Equal(t, []string{"driver.create", "driver.update"}, f.audit.actions)
}

func TestDriverValidation(t *testing.T) {
	f := newFixture(t)
	status, envelope := f.do(t, http.MethodPost, "/api/v1/drivers", map[string]any{
		"firstName":       "Ana",
		"paymentType":     "hourly",
		"fuelAdvanceRate": 120,
		"email":           "not-an-email",
	})
	require.Equal(t, http.StatusBadRequest, status)
	fields := envelope["error"].(map[string]any)["details"].(map[string]any)["fields"].([]any)
	var names []string
	for _, field := range fields {
		names = append(names, field.(map[string]any)["field"].(string))
	}
	assert.Equal(t, []string{"email", "fuelAdvanceRate", "lastName", "paymentType"}, names)
	assert.Empty(t, f.store.drivers)
}

func TestTruckDuplicateUnitNumber(t *testing.T) {
	f := newFixture(t)
	status, _ := f.do(t, http.MethodPost, "/api/v1/trucks", map[string]any{"unitNumber": "T-101", "targetMpg": "6.5", "vin": "1abc"})
	require.Equal(t, http.StatusCreated, status)

	status, envelope := f.do(t, http.MethodPost, "/api/v1/trucks", map[string]any{"unitNumber": "T-101"})
	require.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "conflict", envelope["error"].(map[string]any)["code"])

	status, envelope = f.do(t, http.MethodGet, "/api/v1/trucks", nil)
	require.Equal(t, http.StatusOK, status)
	trucks := envelope["data"].([]any)
	require.Len(t, trucks, 1)
	assert.Equal(t, "1ABC", trucks[0].(map[string]any)["vin"])
}

func TestCreateLoadChecksReferences(t *testing.T) {
	f := newFixture(t)
	_, envelope := f.do(t, http.MethodPost, "/api/v1/drivers", map[string]any{
		"firstName": "Bo", "lastName": "Diaz", "paymentType": "percentage", "payRate": 25,
	})
	driverID := dataID(t, envelope)

	status, envelope := f.do(t, http.MethodPost, "/api/v1/loads", map[string]any{
		"date":        "2024-01-03",
		"driverId":    driverID,
		"truckId":     uuid.NewString(),
		"loadedMiles": 500,
	})
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation_error", envelope["error"].(map[string]any)["code"])

	status, envelope = f.do(t, http.MethodPost, "/api/v1/loads", map[string]any{
		"loadNumber":    "L-1",
		"date":          "2024-01-03",
		"driverId":      driverID,
		"stops":         []map[string]string{{"city": "Dallas", "state": "TX"}, {"location": "Port of Houston"}},
		"loadedMiles":   "500",
		"deadheadMiles": 50,
		"rate":          "2,000",
	})
	require.Equal(t, http.StatusCreated, status)
	loadID := dataID(t, envelope)

	status, envelope = f.do(t, http.MethodGet, "/api/v1/loads/"+loadID, nil)
	require.Equal(t, http.StatusOK, status)
	load := envelope["data"].(map[string]any)
	assert.Equal(t, 2000.0, load["rate"])
	assert.Len(t, load["stops"], 2)

	status, envelope = f.do(t, http.MethodGet, "/api/v1/loads?driverId="+driverID+"&from=2024-01-01&to=2024-01-07", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, envelope["data"], 1)
	last := f.store.filters[len(f.store.filters)-1]
	assert.Equal(t, driverID, last.DriverID)
	assert.Equal(t, time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC), last.To)
	assert.Equal(t, 100, last.Limit)

	status, _ = f.do(t, http.MethodGet, "/api/v1/loads?driverId=abc", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestCreateFuelEntry(t *testing.T) {
	f := newFixture(t)
	status, _ := f.do(t, http.MethodPost, "/api/v1/fuel", map[string]any{
		"date":           "2024-01-04",
		"gallons":        "100",
		"pricePerGallon": 4,
		"isFuelAdvance":  false,
		"state":          "tx",
	})
	require.Equal(t, http.StatusCreated, status)
	require.Len(t, f.store.fuel, 1)
	entry := f.store.fuel[0]
	assert.Equal(t, "TX", entry.State)
	assert.Equal(t, 400.0, entry.Amount())
	assert.False(t, entry.CountsAsAdvance())

	status, _ = f.do(t, http.MethodPost, "/api/v1/fuel", map[string]any{"date": "yesterday"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, envelope := f.do(t, http.MethodGet, "/api/v1/fuel", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), envelope["meta"].(map[string]any)["total"])
}

func TestStatsRoutes(t *testing.T) {
	f := newFixture(t)
	status, envelope := f.do(t, http.MethodGet, "/api/v1/drivers/drv-1/stats?from=2024-01-01&to=2024-01-31", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 5.0, envelope["data"].(map[string]any)["avgMpg"])
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), f.stats.from)

	status, _ = f.do(t, http.MethodGet, "/api/v1/drivers/missing/stats", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = f.do(t, http.MethodGet, "/api/v1/trucks/t-1/stats?from=2024-02-01&to=2024-01-01", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, envelope = f.do(t, http.MethodGet, "/api/v1/trucks/t-1/stats", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 6.5, envelope["data"].(map[string]any)["actualMpg"])
}

func TestDriverRoleCannotReadFleet(t *testing.T) {
	f := newFixture(t)
	token, err := auth.GenerateToken(testSecret, auth.Claims{UserID: "u-9", Role: auth.RoleDriver, DriverID: "drv-1"}, time.Now(), time.Hour)
	require.NoError(t, err)
	f.token = token

	status, _ := f.do(t, http.MethodGet, "/api/v1/drivers", nil)
	assert.Equal(t, http.StatusForbidden, status)
}

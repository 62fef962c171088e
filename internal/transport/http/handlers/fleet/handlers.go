package fleethandler

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"truckbooks/internal/domain/audit"
	"truckbooks/internal/domain/auth"
	"truckbooks/internal/domain/fleet"
	"truckbooks/internal/domain/payroll"
	"truckbooks/internal/transport/http/api"
	"truckbooks/internal/transport/http/middleware"
	"truckbooks/internal/transport/http/shared"
)

type StatsService interface {
	DriverStats(ctx context.Context, driverID string, from, to time.Time) (payroll.DriverStats, error)
	TruckStats(ctx context.Context, truckID string, from, to time.Time) (payroll.TruckStats, error)
}

type Handler struct {
	Store fleet.StoreAPI
	Stats StatsService
	Audit audit.Recorder
	Perms middleware.PermissionStore
}

func NewHandler(store fleet.StoreAPI, stats StatsService, recorder audit.Recorder, perms middleware.PermissionStore) *Handler {
	return &Handler{Store: store, Stats: stats, Audit: recorder, Perms: perms}
}

type driverPayload struct {
	FirstName          string       `json:"firstName"`
	LastName           string       `json:"lastName"`
	Email              string       `json:"email"`
	Phone              string       `json:"phone"`
	Status             string       `json:"status"`
	PaymentType        string       `json:"paymentType"`
	PayRate            fleet.Number `json:"payRate"`
	FuelAdvanceRate    fleet.Number `json:"fuelAdvanceRate"`
	InsuranceDeduction fleet.Number `json:"insuranceDeduction"`
}

type truckPayload struct {
	UnitNumber string       `json:"unitNumber"`
	Make       string       `json:"make"`
	Model      string       `json:"model"`
	Year       int          `json:"year"`
	VIN        string       `json:"vin"`
	TargetMPG  fleet.Number `json:"targetMpg"`
}

type loadPayload struct {
	LoadNumber    string       `json:"loadNumber"`
	Date          string       `json:"date"`
	Stops         []fleet.Stop `json:"stops"`
	Origin        string       `json:"origin"`
	Destination   string       `json:"destination"`
	LoadedMiles   fleet.Number `json:"loadedMiles"`
	DeadheadMiles fleet.Number `json:"deadheadMiles"`
	Rate          fleet.Number `json:"rate"`
	DriverID      string       `json:"driverId"`
	TruckID       string       `json:"truckId"`
}

type fuelPayload struct {
	Date           string       `json:"date"`
	Gallons        fleet.Number `json:"gallons"`
	PricePerGallon fleet.Number `json:"pricePerGallon"`
	TotalAmount    fleet.Number `json:"totalAmount"`
	IsFuelAdvance  *bool        `json:"isFuelAdvance"`
	Location       string       `json:"location"`
	State          string       `json:"state"`
	DriverID       string       `json:"driverId"`
	TruckID        string       `json:"truckId"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	read := middleware.RequirePermission(auth.PermFleetRead, h.Perms)
	write := middleware.RequirePermission(auth.PermFleetWrite, h.Perms)

	r.Route("/drivers", func(r chi.Router) {
		r.With(read).Get("/", h.handleListDrivers)
		r.With(write).Post("/", h.handleCreateDriver)
		r.With(read).Get("/{driverID}", h.handleGetDriver)
		r.With(write).Put("/{driverID}", h.handleUpdateDriver)
		r.With(read).Get("/{driverID}/stats", h.handleDriverStats)
	})
	r.Route("/trucks", func(r chi.Router) {
		r.With(read).Get("/", h.handleListTrucks)
		r.With(write).Post("/", h.handleCreateTruck)
		r.With(read).Get("/{truckID}", h.handleGetTruck)
		r.With(write).Put("/{truckID}", h.handleUpdateTruck)
		r.With(read).Get("/{truckID}/stats", h.handleTruckStats)
	})
	r.Route("/loads", func(r chi.Router) {
		r.With(read).Get("/", h.handleListLoads)
		r.With(write).Post("/", h.handleCreateLoad)
		r.With(read).Get("/{loadID}", h.handleGetLoad)
	})
	r.Route("/fuel", func(r chi.Router) {
		r.With(read).Get("/", h.handleListFuel)
		r.With(write).Post("/", h.handleCreateFuel)
	})
}

func (h *Handler) handleListDrivers(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	status := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("status")))
	v := shared.NewValidator()
	v.Enum("status", status, []string{fleet.DriverStatusActive, fleet.DriverStatusInactive}, "must be active or inactive")
	if v.Reject(w, requestID) {
		return
	}
	page := shared.ParsePage(r, 50, 200)

	total, err := h.Store.CountDrivers(r.Context(), status)
	if err != nil {
		h.fail(w, r, err, "drivers_list_failed", "failed to list drivers")
		return
	}
	drivers, err := h.Store.ListDrivers(r.Context(), status, page.Limit, page.Offset)
	if err != nil {
		h.fail(w, r, err, "drivers_list_failed", "failed to list drivers")
		return
	}
	if drivers == nil {
		drivers = []fleet.Driver{}
	}
	shared.WriteList(w, drivers, page, total, requestID)
}

func (h *Handler) handleGetDriver(w http.ResponseWriter, r *http.Request) {
	driver, err := h.Store.GetDriver(r.Context(), chi.URLParam(r, "driverID"))
	if err != nil {
		h.fail(w, r, err, "driver_get_failed", "failed to load driver")
		return
	}
	api.Success(w, driver, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateDriver(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	var payload driverPayload
	if !shared.DecodeJSON(w, r, &payload, requestID) {
		return
	}
	driver, ok := buildDriver(w, payload, requestID)
	if !ok {
		return
	}

	id, err := h.Store.CreateDriver(r.Context(), driver)
	if err != nil {
		h.fail(w, r, err, "driver_create_failed", "failed to create driver")
		return
	}
	driver.ID = id
	h.record(r, audit.ActionDriverCreate, "driver", id, nil, driver)
	api.Created(w, map[string]string{"id": id}, requestID)
}

func (h *Handler) handleUpdateDriver(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	driverID := chi.URLParam(r, "driverID")
	before, err := h.Store.GetDriver(r.Context(), driverID)
	if err != nil {
		h.fail(w, r, err, "driver_update_failed", "failed to update driver")
		return
	}

	var payload driverPayload
	if !shared.DecodeJSON(w, r, &payload, requestID) {
		return
	}
	driver, ok := buildDriver(w, payload, requestID)
	if !ok {
		return
	}
	driver.ID = driverID
	if err := h.Store.UpdateDriver(r.Context(), driver); err != nil {
		h.fail(w, r, err, "driver_update_failed", "failed to update driver")
		return
	}
	h.record(r, audit.ActionDriverUpdate, "driver", driverID, before, driver)
	api.Success(w, map[string]string{"id": driverID}, requestID)
}

func buildDriver(w http.ResponseWriter, payload driverPayload, requestID string) (fleet.Driver, bool) {
	driver := fleet.Driver{
		FirstName:          strings.TrimSpace(payload.FirstName),
		LastName:           strings.TrimSpace(payload.LastName),
		Email:              strings.TrimSpace(payload.Email),
		Phone:              strings.TrimSpace(payload.Phone),
		Status:             strings.ToLower(strings.TrimSpace(payload.Status)),
		PaymentType:        strings.ToLower(strings.TrimSpace(payload.PaymentType)),
		PayRate:            payload.PayRate.Float(),
		FuelAdvanceRate:    payload.FuelAdvanceRate.Float(),
		InsuranceDeduction: payload.InsuranceDeduction.Float(),
	}
	if driver.Status == "" {
		driver.Status = fleet.DriverStatusActive
	}

	v := shared.NewValidator()
	v.Required("firstName", driver.FirstName, "is required")
	v.Required("lastName", driver.LastName, "is required")
	v.Required("paymentType", driver.PaymentType, "is required")
	v.Enum("paymentType", driver.PaymentType, fleet.PaymentTypes, "must be per_mile, percentage or flat_rate")
	v.Enum("status", driver.Status, []string{fleet.DriverStatusActive, fleet.DriverStatusInactive}, "must be active or inactive")
	if driver.Email != "" && !strings.Contains(driver.Email, "@") {
		v.Add("email", "must be a valid email address")
	}
	v.NonNegative("payRate", driver.PayRate)
	if driver.FuelAdvanceRate < 0 || driver.FuelAdvanceRate > 100 {
		v.Add("fuelAdvanceRate", "must be between 0 and 100")
	}
	v.NonNegative("insuranceDeduction", driver.InsuranceDeduction)
	if v.Reject(w, requestID) {
		return fleet.Driver{}, false
	}
	return driver, true
}

func (h *Handler) handleListTrucks(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	page := shared.ParsePage(r, 50, 200)
	total, err := h.Store.CountTrucks(r.Context())
	if err != nil {
		h.fail(w, r, err, "trucks_list_failed", "failed to list trucks")
		return
	}
	trucks, err := h.Store.ListTrucks(r.Context(), page.Limit, page.Offset)
	if err != nil {
		h.fail(w, r, err, "trucks_list_failed", "failed to list trucks")
		return
	}
	if trucks == nil {
		trucks = []fleet.Truck{}
	}
	shared.WriteList(w, trucks, page, total, requestID)
}

func (h *Handler) handleGetTruck(w http.ResponseWriter, r *http.Request) {
	truck, err := h.Store.GetTruck(r.Context(), chi.URLParam(r, "truckID"))
	if err != nil {
		h.fail(w, r, err, "truck_get_failed", "failed to load truck")
		return
	}
	api.Success(w, truck, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateTruck(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	var payload truckPayload
	if !shared.DecodeJSON(w, r, &payload, requestID) {
		return
	}
	truck, ok := buildTruck(w, payload, requestID)
	if !ok {
		return
	}
	id, err := h.Store.CreateTruck(r.Context(), truck)
	if err != nil {
		h.fail(w, r, err, "truck_create_failed", "failed to create truck")
		return
	}
	truck.ID = id
	h.record(r, audit.ActionTruckCreate, "truck", id, nil, truck)
	api.Created(w, map[string]string{"id": id}, requestID)
}

func (h *Handler) handleUpdateTruck(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	truckID := chi.URLParam(r, "truckID")
	before, err := h.Store.GetTruck(r.Context(), truckID)
	if err != nil {
		h.fail(w, r, err, "truck_update_failed", "failed to update truck")
		return
	}

	var payload truckPayload
	if !shared.DecodeJSON(w, r, &payload, requestID) {
		return
	}
	truck, ok := buildTruck(w, payload, requestID)
	if !ok {
		return
	}
	truck.ID = truckID
	if err := h.Store.UpdateTruck(r.Context(), truck); err != nil {
		h.fail(w, r, err, "truck_update_failed", "failed to update truck")
		return
	}
	h.record(r, audit.ActionTruckUpdate, "truck", truckID, before, truck)
	api.Success(w, map[string]string{"id": truckID}, requestID)
}

func buildTruck(w http.ResponseWriter, payload truckPayload, requestID string) (fleet.Truck, bool) {
	truck := fleet.Truck{
		UnitNumber: strings.TrimSpace(payload.UnitNumber),
		Make:       strings.TrimSpace(payload.Make),
		Model:      strings.TrimSpace(payload.Model),
		Year:       payload.Year,
		VIN:        strings.ToUpper(strings.TrimSpace(payload.VIN)),
		TargetMPG:  payload.TargetMPG.Float(),
	}
	v := shared.NewValidator()
	v.Required("unitNumber", truck.UnitNumber, "is required")
	if truck.Year != 0 && (truck.Year < 1950 || truck.Year > 2100) {
		v.Add("year", "must be a plausible model year")
	}
	v.NonNegative("targetMpg", truck.TargetMPG)
	if v.Reject(w, requestID) {
		return fleet.Truck{}, false
	}
	return truck, true
}

func (h *Handler) handleListLoads(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	filter, ok := parseRecordFilter(w, r, requestID)
	if !ok {
		return
	}
	total, err := h.Store.CountLoads(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err, "loads_list_failed", "failed to list loads")
		return
	}
	loads, err := h.Store.ListLoads(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err, "loads_list_failed", "failed to list loads")
		return
	}
	if loads == nil {
		loads = []fleet.Load{}
	}
	shared.WriteList(w, loads, shared.Page{Limit: filter.Limit, Offset: filter.Offset}, total, requestID)
}

func (h *Handler) handleGetLoad(w http.ResponseWriter, r *http.Request) {
	load, err := h.Store.GetLoad(r.Context(), chi.URLParam(r, "loadID"))
	if err != nil {
		h.fail(w, r, err, "load_get_failed", "failed to load load")
		return
	}
	api.Success(w, load, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateLoad(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	var payload loadPayload
	if !shared.DecodeJSON(w, r, &payload, requestID) {
		return
	}

	load := fleet.Load{
		LoadNumber:    strings.TrimSpace(payload.LoadNumber),
		Stops:         payload.Stops,
		Origin:        strings.TrimSpace(payload.Origin),
		Destination:   strings.TrimSpace(payload.Destination),
		LoadedMiles:   payload.LoadedMiles.Float(),
		DeadheadMiles: payload.DeadheadMiles.Float(),
		Rate:          payload.Rate.Float(),
		DriverID:      strings.TrimSpace(payload.DriverID),
		TruckID:       strings.TrimSpace(payload.TruckID),
	}
	v := shared.NewValidator()
	load.Date, _ = v.Date("date", payload.Date)
	v.NonNegative("loadedMiles", load.LoadedMiles)
	v.NonNegative("deadheadMiles", load.DeadheadMiles)
	v.NonNegative("rate", load.Rate)
	h.checkReferences(r.Context(), v, load.DriverID, load.TruckID)
	if v.Reject(w, requestID) {
		return
	}

	id, err := h.Store.CreateLoad(r.Context(), load)
	if err != nil {
		h.fail(w, r, err, "load_create_failed", "failed to create load")
		return
	}
	load.ID = id
	h.record(r, audit.ActionLoadCreate, "load", id, nil, load)
	api.Created(w, map[string]string{"id": id}, requestID)
}

func (h *Handler) handleListFuel(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	filter, ok := parseRecordFilter(w, r, requestID)
	if !ok {
		return
	}
	total, err := h.Store.CountFuelEntries(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err, "fuel_list_failed", "failed to list fuel entries")
		return
	}
	entries, err := h.Store.ListFuelEntries(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err, "fuel_list_failed", "failed to list fuel entries")
		return
	}
	if entries == nil {
		entries = []fleet.FuelEntry{}
	}
	shared.WriteList(w, entries, shared.Page{Limit: filter.Limit, Offset: filter.Offset}, total, requestID)
}

func (h *Handler) handleCreateFuel(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	var payload fuelPayload
	if !shared.DecodeJSON(w, r, &payload, requestID) {
		return
	}

	entry := fleet.FuelEntry{
		Gallons:        payload.Gallons.Float(),
		PricePerGallon: payload.PricePerGallon.Float(),
		TotalAmount:    payload.TotalAmount.Float(),
		IsFuelAdvance:  payload.IsFuelAdvance,
		Location:       strings.TrimSpace(payload.Location),
		State:          strings.ToUpper(strings.TrimSpace(payload.State)),
		DriverID:       strings.TrimSpace(payload.DriverID),
		TruckID:        strings.TrimSpace(payload.TruckID),
	}
	v := shared.NewValidator()
	entry.Date, _ = v.Date("date", payload.Date)
	v.NonNegative("gallons", entry.Gallons)
	v.NonNegative("pricePerGallon", entry.PricePerGallon)
	v.NonNegative("totalAmount", entry.TotalAmount)
	if len(entry.State) > 2 {
		v.Add("state", "must be a two letter code")
	}
	h.checkReferences(r.Context(), v, entry.DriverID, entry.TruckID)
	if v.Reject(w, requestID) {
		return
	}

	id, err := h.Store.CreateFuelEntry(r.Context(), entry)
	if err != nil {
		h.fail(w, r, err, "fuel_create_failed", "failed to create fuel entry")
		return
	}
	entry.ID = id
	h.record(r, audit.ActionFuelCreate, "fuel_entry", id, nil, entry)
	api.Created(w, map[string]string{"id": id}, requestID)
}

func (h *Handler) handleDriverStats(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	from, to, ok := parseRange(w, r, requestID)
	if !ok {
		return
	}
	stats, err := h.Stats.DriverStats(r.Context(), chi.URLParam(r, "driverID"), from, to)
	if err != nil {
		h.fail(w, r, err, "driver_stats_failed", "failed to compute driver stats")
		return
	}
	api.Success(w, stats, requestID)
}

func (h *Handler) handleTruckStats(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	from, to, ok := parseRange(w, r, requestID)
	if !ok {
		return
	}
	stats, err := h.Stats.TruckStats(r.Context(), chi.URLParam(r, "truckID"), from, to)
	if err != nil {
		h.fail(w, r, err, "truck_stats_failed", "failed to compute truck stats")
		return
	}
	api.Success(w, stats, requestID)
}

// checkReferences reports unknown driver or truck ids as validation issues.
func (h *Handler) checkReferences(ctx context.Context, v *shared.Validator, driverID, truckID string) {
	if driverID != "" {
		if _, err := h.Store.GetDriver(ctx, driverID); errors.Is(err, fleet.ErrDriverNotFound) {
			v.Add("driverId", "unknown driver")
		} else if err != nil {
			slog.Warn("driver reference lookup failed", "driverId", driverID, "err", err)
		}
	}
	if truckID != "" {
		if _, err := h.Store.GetTruck(ctx, truckID); errors.Is(err, fleet.ErrTruckNotFound) {
			v.Add("truckId", "unknown truck")
		} else if err != nil {
			slog.Warn("truck reference lookup failed", "truckId", truckID, "err", err)
		}
	}
}

func parseRange(w http.ResponseWriter, r *http.Request, requestID string) (time.Time, time.Time, bool) {
	v := shared.NewValidator()
	from, to := v.Period(r.URL.Query(), "from", "to")
	if v.Reject(w, requestID) {
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}

func parseRecordFilter(w http.ResponseWriter, r *http.Request, requestID string) (fleet.Filter, bool) {
	query := r.URL.Query()
	v := shared.NewValidator()
	from, to := v.Period(query, "from", "to")
	filter := fleet.Filter{
		DriverID: strings.TrimSpace(query.Get("driverId")),
		TruckID:  strings.TrimSpace(query.Get("truckId")),
		From:     from,
		To:       to,
	}
	v.ID("driverId", filter.DriverID)
	v.ID("truckId", filter.TruckID)
	if v.Reject(w, requestID) {
		return fleet.Filter{}, false
	}
	page := shared.ParsePage(r, 100, 500)
	filter.Limit = page.Limit
	filter.Offset = page.Offset
	return filter, true
}

func (h *Handler) record(r *http.Request, action, entityType, entityID string, before, after any) {
	if h.Audit == nil {
		return
	}
	user, _ := middleware.GetUser(r.Context())
	entry := audit.Entry{
		ActorID:    user.UserID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		RequestID:  middleware.GetRequestID(r.Context()),
		IP:         shared.ClientIP(r),
		Before:     before,
		After:      after,
	}
	if err := h.Audit.Record(r.Context(), entry); err != nil {
		log.Printf("audit %s failed: %v", action, err)
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, code, message string) {
	requestID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, fleet.ErrDriverNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "driver not found", requestID)
	case errors.Is(err, fleet.ErrTruckNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "truck not found", requestID)
	case errors.Is(err, fleet.ErrLoadNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "load not found", requestID)
	case errors.Is(err, fleet.ErrDuplicateUnitNumber):
		api.Fail(w, http.StatusConflict, "conflict", err.Error(), requestID)
	default:
		slog.Error(message, "err", err, "requestId", requestID)
		api.Fail(w, http.StatusInternalServerError, code, message, requestID)
	}
}

package fleet

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

const driverColumns = `
    id, first_name, last_name, COALESCE(email, ''), COALESCE(phone, ''), status,
    payment_type, pay_rate, fuel_advance_rate, insurance_deduction, created_at, updated_at
  `

func scanDriver(row pgx.Row) (Driver, error) {
	var d Driver
	err := row.Scan(&d.ID, &d.FirstName, &d.LastName, &d.Email, &d.Phone, &d.Status,
		&d.PaymentType, &d.PayRate, &d.FuelAdvanceRate, &d.InsuranceDeduction, &d.CreatedAt, &d.UpdatedAt)
	return d, err
}

func (s *Store) CountDrivers(ctx context.Context, status string) (int, error) {
	query := "SELECT COUNT(1) FROM drivers"
	var args []any
	if status != "" {
		query += " WHERE status = $1"
		args = append(args, status)
	}
	var total int
	if err := s.DB.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) ListDrivers(ctx context.Context, status string, limit, offset int) ([]Driver, error) {
	query := "SELECT " + driverColumns + " FROM drivers"
	var args []any
	if status != "" {
		query += " WHERE status = $1"
		args = append(args, status)
	}
	query += " ORDER BY last_name, first_name"
	query += " LIMIT $" + itoa(len(args)+1) + " OFFSET $" + itoa(len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var drivers []Driver
	for rows.Next() {
		driver, err := scanDriver(rows)
		if err != nil {
			return nil, err
		}
		drivers = append(drivers, driver)
	}
	return drivers, rows.Err()
}

func (s *Store) GetDriver(ctx context.Context, driverID string) (Driver, error) {
	if !ValidID(driverID) {
		return Driver{}, ErrDriverNotFound
	}
	driver, err := scanDriver(s.DB.QueryRow(ctx, "SELECT "+driverColumns+" FROM drivers WHERE id = $1", driverID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Driver{}, ErrDriverNotFound
	}
	return driver, err
}

func (s *Store) CreateDriver(ctx context.Context, driver Driver) (string, error) {
	status := driver.Status
	if status == "" {
		status = DriverStatusActive
	}
	var id string
	if err := s.DB.QueryRow(ctx, `
    INSERT INTO drivers (first_name, last_name, email, phone, status, payment_type, pay_rate, fuel_advance_rate, insurance_deduction)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
    RETURNING id
  `, driver.FirstName, driver.LastName, nullIfEmpty(driver.Email), nullIfEmpty(driver.Phone), status,
		driver.PaymentType, driver.PayRate, driver.FuelAdvanceRate, driver.InsuranceDeduction).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) UpdateDriver(ctx context.Context, driver Driver) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE drivers
    SET first_name = $2, last_name = $3, email = $4, phone = $5, status = $6,
        payment_type = $7, pay_rate = $8, fuel_advance_rate = $9, insurance_deduction = $10,
        updated_at = now()
    WHERE id = $1
  `, driver.ID, driver.FirstName, driver.LastName, nullIfEmpty(driver.Email), nullIfEmpty(driver.Phone), driver.Status,
		driver.PaymentType, driver.PayRate, driver.FuelAdvanceRate, driver.InsuranceDeduction)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDriverNotFound
	}
	return nil
}

const truckColumns = `
    id, unit_number, COALESCE(make, ''), COALESCE(model, ''), COALESCE(year, 0), COALESCE(vin, ''),
    target_mpg, created_at, updated_at
  `

func scanTruck(row pgx.Row) (Truck, error) {
	var t Truck
	err := row.Scan(&t.ID, &t.UnitNumber, &t.Make, &t.Model, &t.Year, &t.VIN, &t.TargetMPG, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func (s *Store) CountTrucks(ctx context.Context) (int, error) {
	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM trucks").Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) ListTrucks(ctx context.Context, limit, offset int) ([]Truck, error) {
	rows, err := s.DB.Query(ctx, "SELECT "+truckColumns+" FROM trucks ORDER BY unit_number LIMIT $1 OFFSET $2", limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trucks []Truck
	for rows.Next() {
		truck, err := scanTruck(rows)
		if err != nil {
			return nil, err
		}
		trucks = append(trucks, truck)
	}
	return trucks, rows.Err()
}

func (s *Store) GetTruck(ctx context.Context, truckID string) (Truck, error) {
	if !ValidID(truckID) {
		return Truck{}, ErrTruckNotFound
	}
	truck, err := scanTruck(s.DB.QueryRow(ctx, "SELECT "+truckColumns+" FROM trucks WHERE id = $1", truckID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Truck{}, ErrTruckNotFound
	}
	return truck, err
}

func (s *Store) CreateTruck(ctx context.Context, truck Truck) (string, error) {
	var id string
	if err := s.DB.QueryRow(ctx, `
    INSERT INTO trucks (unit_number, make, model, year, vin, target_mpg)
    VALUES ($1,$2,$3,$4,$5,$6)
    RETURNING id
  `, truck.UnitNumber, nullIfEmpty(truck.Make), nullIfEmpty(truck.Model), nullIfZero(truck.Year), nullIfEmpty(truck.VIN), truck.TargetMPG).Scan(&id); err != nil {
		return "", translateUnique(err)
	}
	return id, nil
}

func (s *Store) UpdateTruck(ctx context.Context, truck Truck) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE trucks
    SET unit_number = $2, make = $3, model = $4, year = $5, vin = $6, target_mpg = $7, updated_at = now()
    WHERE id = $1
  `, truck.ID, truck.UnitNumber, nullIfEmpty(truck.Make), nullIfEmpty(truck.Model), nullIfZero(truck.Year), nullIfEmpty(truck.VIN), truck.TargetMPG)
	if err != nil {
		return translateUnique(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTruckNotFound
	}
	return nil
}

const loadColumns = `
    id, COALESCE(load_number, ''), load_date, stops_json, COALESCE(origin, ''), COALESCE(destination, ''),
    loaded_miles, deadhead_miles, rate, COALESCE(driver_id::text, ''), COALESCE(truck_id::text, ''), created_at
  `

func scanLoad(row pgx.Row) (Load, error) {
	var l Load
	var stopsJSON []byte
	if err := row.Scan(&l.ID, &l.LoadNumber, &l.Date, &stopsJSON, &l.Origin, &l.Destination,
		&l.LoadedMiles, &l.DeadheadMiles, &l.Rate, &l.DriverID, &l.TruckID, &l.CreatedAt); err != nil {
		return Load{}, err
	}
	if len(stopsJSON) > 0 {
		if err := json.Unmarshal(stopsJSON, &l.Stops); err != nil {
			l.Stops = nil
		}
	}
	return l, nil
}

// filterClause renders the shared WHERE clause for load and fuel queries.
func filterClause(filter Filter, dateColumn string) (string, []any) {
	var conditions []string
	var args []any
	if filter.DriverID != "" {
		args = append(args, filter.DriverID)
		conditions = append(conditions, "driver_id = $"+itoa(len(args)))
	}
	if filter.TruckID != "" {
		args = append(args, filter.TruckID)
		conditions = append(conditions, "truck_id = $"+itoa(len(args)))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		conditions = append(conditions, dateColumn+" >= $"+itoa(len(args)))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		conditions = append(conditions, dateColumn+" <= $"+itoa(len(args)))
	}
	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func paginate(query string, args []any, filter Filter) (string, []any) {
	if filter.Limit <= 0 {
		return query, args
	}
	query += " LIMIT $" + itoa(len(args)+1) + " OFFSET $" + itoa(len(args)+2)
	return query, append(args, filter.Limit, filter.Offset)
}

func (s *Store) CountLoads(ctx context.Context, filter Filter) (int, error) {
	where, args := filterClause(filter, "load_date")
	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM loads"+where, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// ListLoads returns loads oldest first; a zero Limit returns every match.
func (s *Store) ListLoads(ctx context.Context, filter Filter) ([]Load, error) {
	where, args := filterClause(filter, "load_date")
	query, args := paginate("SELECT "+loadColumns+" FROM loads"+where+" ORDER BY load_date, created_at", args, filter)

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var loads []Load
	for rows.Next() {
		load, err := scanLoad(rows)
		if err != nil {
			return nil, err
		}
		loads = append(loads, load)
	}
	return loads, rows.Err()
}

func (s *Store) GetLoad(ctx context.Context, loadID string) (Load, error) {
	if !ValidID(loadID) {
		return Load{}, ErrLoadNotFound
	}
	load, err := scanLoad(s.DB.QueryRow(ctx, "SELECT "+loadColumns+" FROM loads WHERE id = $1", loadID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Load{}, ErrLoadNotFound
	}
	return load, err
}

func (s *Store) CreateLoad(ctx context.Context, load Load) (string, error) {
	stops := load.Stops
	if stops == nil {
		stops = []Stop{}
	}
	stopsJSON, err := json.Marshal(stops)
	if err != nil {
		return "", err
	}
	var id string
	if err := s.DB.QueryRow(ctx, `
    INSERT INTO loads (load_number, load_date, stops_json, origin, destination, loaded_miles, deadhead_miles, rate, driver_id, truck_id)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
    RETURNING id
  `, nullIfEmpty(load.LoadNumber), load.Date, stopsJSON, nullIfEmpty(load.Origin), nullIfEmpty(load.Destination),
		load.LoadedMiles, load.DeadheadMiles, load.Rate, nullIfEmpty(load.DriverID), nullIfEmpty(load.TruckID)).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) CountFuelEntries(ctx context.Context, filter Filter) (int, error) {
	where, args := filterClause(filter, "entry_date")
	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM fuel_entries"+where, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// ListFuelEntries returns fuel entries oldest first; a zero Limit returns every match.
func (s *Store) ListFuelEntries(ctx context.Context, filter Filter) ([]FuelEntry, error) {
	where, args := filterClause(filter, "entry_date")
	query, args := paginate(`
    SELECT id, entry_date, gallons, price_per_gallon, COALESCE(total_amount, 0), is_fuel_advance,
           COALESCE(location, ''), COALESCE(state, ''), COALESCE(driver_id::text, ''), COALESCE(truck_id::text, ''), created_at
    FROM fuel_entries`+where+" ORDER BY entry_date, created_at", args, filter)

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []FuelEntry
	for rows.Next() {
		var entry FuelEntry
		if err := rows.Scan(&entry.ID, &entry.Date, &entry.Gallons, &entry.PricePerGallon, &entry.TotalAmount, &entry.IsFuelAdvance,
			&entry.Location, &entry.State, &entry.DriverID, &entry.TruckID, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *Store) CreateFuelEntry(ctx context.Context, entry FuelEntry) (string, error) {
	var total any
	if entry.TotalAmount != 0 {
		total = entry.TotalAmount
	}
	var id string
	if err := s.DB.QueryRow(ctx, `
    INSERT INTO fuel_entries (entry_date, gallons, price_per_gallon, total_amount, is_fuel_advance, location, state, driver_id, truck_id)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
    RETURNING id
  `, entry.Date, entry.Gallons, entry.PricePerGallon, total, entry.IsFuelAdvance,
		nullIfEmpty(entry.Location), nullIfEmpty(strings.ToUpper(entry.State)), nullIfEmpty(entry.DriverID), nullIfEmpty(entry.TruckID)).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

// ValidID reports whether id can be compared against a uuid column.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

const uniqueViolation = "23505"

func translateUnique(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == "trucks_unit_number_key" {
		return ErrDuplicateUnitNumber
	}
	return err
}

func nullIfEmpty(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func nullIfZero(value int) any {
	if value == 0 {
		return nil
	}
	return value
}

func itoa(value int) string {
	return strconv.Itoa(value)
}

package fleet

import "context"

type StoreAPI interface {
	CountDrivers(ctx context.Context, status string) (int, error)
	ListDrivers(ctx context.Context, status string, limit, offset int) ([]Driver, error)
	GetDriver(ctx context.Context, driverID string) (Driver, error)
	CreateDriver(ctx context.Context, driver Driver) (string, error)
	UpdateDriver(ctx context.Context, driver Driver) error
	CountTrucks(ctx context.Context) (int, error)
	ListTrucks(ctx context.Context, limit, offset int) ([]Truck, error)
	GetTruck(ctx context.Context, truckID string) (Truck, error)
	CreateTruck(ctx context.Context, truck Truck) (string, error)
	UpdateTruck(ctx context.Context, truck Truck) error
	CountLoads(ctx context.Context, filter Filter) (int, error)
	ListLoads(ctx context.Context, filter Filter) ([]Load, error)
	GetLoad(ctx context.Context, loadID string) (Load, error)
	CreateLoad(ctx context.Context, load Load) (string, error)
	CountFuelEntries(ctx context.Context, filter Filter) (int, error)
	ListFuelEntries(ctx context.Context, filter Filter) ([]FuelEntry, error)
	CreateFuelEntry(ctx context.Context, entry FuelEntry) (string, error)
}

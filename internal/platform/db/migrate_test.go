package db

import "testing"

func TestMigrationURL(t *testing.T) {
	cases := map[string]string{
		"postgres://u:p@localhost:5432/truckbooks?sslmode=disable": "pgx5://u:p@localhost:5432/truckbooks?sslmode=disable",
		"postgresql://localhost/truckbooks":                        "pgx5://localhost/truckbooks",
		"pgx://localhost/truckbooks":                               "pgx5://localhost/truckbooks",
		"pgx5://localhost/truckbooks":                              "pgx5://localhost/truckbooks",
	}
	for in, want := range cases {
		if got := MigrationURL(in); got != want {
			t.Fatalf("MigrationURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMigrateStepsRejectsUnknownDirection(t *testing.T) {
	if err := MigrateSteps("pgx5://localhost/none", t.TempDir(), "sideways", 0); err == nil {
		t.Fatal("expected error")
	}
}

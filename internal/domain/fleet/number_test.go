package fleet

import (
	"encoding/json"
	"testing"
)

func TestNumberUnmarshalLenient(t *testing.T) {
	cases := map[string]float64{
		`12.5`:          12.5,
		`"45.50"`:       45.5,
		`" $1,250.75 "`: 1250.75,
		`null`:          0,
		`""`:            0,
		`"abc"`:         0,
		`"NaN"`:         0,
		`"Inf"`:         0,
		`-3`:            -3,
	}
	for raw, want := range cases {
		var n Number
		if err := json.Unmarshal([]byte(raw), &n); err != nil {
			t.Fatalf("%s: unexpected error %v", raw, err)
		}
		if n.Float() != want {
			t.Fatalf("%s: expected %v, got %v", raw, want, n.Float())
		}
	}
}

func TestNumberInsideStruct(t *testing.T) {
	var payload struct {
		Amount Number `json:"amount"`
		Rate   Number `json:"rate"`
	}
	if err := json.Unmarshal([]byte(`{"amount":"oops","rate":"0.55"}`), &payload); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if payload.Amount != 0 || payload.Rate != 0.55 {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

package domain

import "testing"

func TestVehicleLoad(t *testing.T) {
	v := NewVehicle(1, 500, 300)

	if v.ID != "V1" {
		t.Fatalf("id = %q, want %q", v.ID, "V1")
	}

	if err := v.Load(300, 12); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := v.Load(250, 5); err == nil {
		t.Fatalf("expected capacity error, got nil")
	}

	if v.LoadKg != 300 {
		t.Errorf("load = %v, want 300", v.LoadKg)
	}
	if v.DistanceKm != 12 {
		t.Errorf("distance = %v, want 12", v.DistanceKm)
	}
}

func TestVehicleFits(t *testing.T) {
	v := NewVehicle(2, 500, 100)
	v.LoadKg = 400
	v.DistanceKm = 60

	cases := []struct {
		name    string
		demand  float64
		extraKm float64
		want    bool
	}{
		{"within limits", 100, 40, true},
		{"over capacity", 101, 10, false},
		{"over distance", 10, 41, false},
	}

	for _, tc := range cases {
		if got := v.Fits(tc.demand, tc.extraKm); got != tc.want {
			t.Errorf("%s: Fits(%v, %v) = %v, want %v", tc.name, tc.demand, tc.extraKm, got, tc.want)
		}
	}
}

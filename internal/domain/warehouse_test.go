package domain

import (
	"testing"
)

func TestVisibleWarehouses(t *testing.T) {
	tests := []struct {
		name     string
		identity string
		want     int
		first    string
	}{
		{
			name:     "staff sees full list",
			identity: StaffIdentity,
			want:     len(Warehouses),
			first:    "JFK",
		},
		{
			name:     "empty identity sees full list",
			identity: "",
			want:     len(Warehouses),
			first:    "JFK",
		},
		{
			name:     "warehouse identity sees only itself",
			identity: "EWR",
			want:     1,
			first:    "EWR",
		},
		{
			name:     "unknown identity falls back to full list",
			identity: "ops_viewer",
			want:     len(Warehouses),
			first:    "JFK",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := VisibleWarehouses(tt.identity)
			if len(got) != tt.want {
				t.Errorf("VisibleWarehouses(%q) returned %d warehouses, want %d", tt.identity, len(got), tt.want)
			}
			if got[0] != tt.first {
				t.Errorf("VisibleWarehouses(%q)[0] = %q, want %q", tt.identity, got[0], tt.first)
			}
		})
	}
}

func TestVisibleWarehousesReturnsCopy(t *testing.T) {
	scope := VisibleWarehouses(StaffIdentity)
	scope[0] = "XXX"

	if Warehouses[0] != "JFK" {
		t.Errorf("mutating a returned scope changed the canonical list: %q", Warehouses[0])
	}
}

func TestCanAccessWarehouse(t *testing.T) {
	tests := []struct {
		name     string
		identity string
		code     string
		want     bool
	}{
		{name: "staff accesses any warehouse", identity: StaffIdentity, code: "PWM", want: true},
		{name: "warehouse accesses itself", identity: "BOS", code: "BOS", want: true},
		{name: "warehouse denied other warehouse", identity: "BOS", code: "JFK", want: false},
		{name: "warehouse denied unknown code", identity: "BOS", code: "LAX", want: false},
		{name: "staff denied unknown code", identity: StaffIdentity, code: "LAX", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanAccessWarehouse(tt.identity, tt.code); got != tt.want {
				t.Errorf("CanAccessWarehouse(%q, %q) = %v, want %v", tt.identity, tt.code, got, tt.want)
			}
		})
	}
}

func TestIsKnownWarehouse(t *testing.T) {
	for _, w := range Warehouses {
		if !IsKnownWarehouse(w) {
			t.Errorf("IsKnownWarehouse(%q) = false for canonical code", w)
		}
	}
	if IsKnownWarehouse("LAX") {
		t.Error("IsKnownWarehouse(\"LAX\") = true, want false")
	}
	if IsKnownWarehouse("jfk") {
		t.Error("IsKnownWarehouse is case sensitive, lowercase code must not match")
	}
}

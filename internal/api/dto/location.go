package dto

type LocationResponse struct {
	ID         int     `json:"id"`
	Name       string  `json:"name"`
	Kind       string  `json:"kind"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	CapacityKg float64 `json:"capacity_kg"`
	City       string  `json:"city"`
}

type ListLocationsResponse struct {
	Locations []LocationResponse `json:"locations"`
}

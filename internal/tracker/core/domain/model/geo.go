package model

import "math"

const earthRadiusMeters = 6371000

// Haversine returns the great-circle distance between two coordinates in
// meters.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// Contains reports whether the point lies within the region's radius.
func (r GeofenceRegion) Contains(lat, lng float64) bool {
	return Haversine(lat, lng, r.Lat, r.Lng) <= r.Radius
}

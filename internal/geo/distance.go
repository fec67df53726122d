// Package geo computes distances between fixes and turns them into the
// proximity labels shown to a pair.
package geo

import (
	"fmt"
	"math"
)

// EarthRadiusMeters is the mean radius of the spherical Earth model.
const EarthRadiusMeters = 6371e3

// Point is a latitude/longitude pair in degrees.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Distance returns the haversine great-circle distance in meters.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMeters * c
}

// DistanceBetween is Distance over two points.
func DistanceBetween(a, b Point) float64 {
	return Distance(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
}

type tier struct {
	below   float64
	message string
}

// Thresholds are strict: exactly 10m already falls into the second tier.
var proximityTiers = []tier{
	{10, "You're right next to each other!"},
	{50, "Very close by!"},
	{100, "Just around the corner!"},
	{500, "Walking distance"},
	{1000, "Not too far!"},
}

// FarMessage is used once no tier matches.
const FarMessage = "Keep tracking!"

// ProximityMessage classifies a distance into a human readable tier.
func ProximityMessage(meters float64) string {
	for _, t := range proximityTiers {
		if meters < t.below {
			return t.message
		}
	}
	return FarMessage
}

// FormatDistance renders whole meters below 1km and kilometers with two decimals above.
func FormatDistance(meters float64) string {
	if meters < 1000 {
		return fmt.Sprintf("%dm", int64(math.Round(meters)))
	}
	return fmt.Sprintf("%.2fkm", meters/1000)
}

// FormatAccuracy renders a fix accuracy radius, or "?" when unknown.
func FormatAccuracy(accuracy *float64) string {
	if accuracy == nil {
		return "±?m"
	}
	return fmt.Sprintf("±%.0fm", *accuracy)
}

package geo

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	apperrors "github.com/Flare200/natours/pkg/errors"
)

// Unit is a supported distance unit.
type Unit string

const (
	UnitMiles      Unit = "mi"
	UnitKilometers Unit = "km"
)

// Earth radii used to convert between linear distances and central angles.
// The two radius values must stay paired with their unit: a miles distance is
// divided by the miles radius, a kilometers distance by the kilometers radius.
const (
	earthRadiusMiles      = 3963.2
	earthRadiusKilometers = 6378.1
)

// metersPerUnit converts a distance in meters into the given unit.
const (
	metersToMiles      = 0.000621371
	metersToKilometers = 0.001
)

// ParseUnit validates a distance unit string.
func ParseUnit(s string) (Unit, error) {
	switch Unit(s) {
	case UnitMiles, UnitKilometers:
		return Unit(s), nil
	default:
		return "", apperrors.InvalidInput(fmt.Sprintf("unsupported unit %q, must be mi or km", s))
	}
}

// Point is a latitude/longitude pair in degrees.
type Point struct {
	Latitude  float64
	Longitude float64
}

// ParseLatLng parses a "lat,lng" string into a point. Missing or malformed
// coordinates are rejected so a handler can map the error to a 400.
func ParseLatLng(latlng string) (Point, error) {
	parts := strings.Split(latlng, ",")
	if len(parts) != 2 {
		return Point{}, apperrors.InvalidInput("please provide latitude and longitude in the format lat,lng")
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Point{}, apperrors.InvalidInput("please provide latitude and longitude in the format lat,lng")
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Point{}, apperrors.InvalidInput("please provide latitude and longitude in the format lat,lng")
	}

	if lat < -90 || lat > 90 {
		return Point{}, apperrors.InvalidInput("latitude must be between -90 and 90")
	}
	if lng < -180 || lng > 180 {
		return Point{}, apperrors.InvalidInput("longitude must be between -180 and 180")
	}

	return Point{Latitude: lat, Longitude: lng}, nil
}

// RadiusAngle converts a linear search radius into a central angle in radians
// by dividing by the earth radius expressed in the same unit.
func RadiusAngle(distance float64, unit Unit) float64 {
	if unit == UnitMiles {
		return distance / earthRadiusMiles
	}
	return distance / earthRadiusKilometers
}

// CentralAngle returns the haversine central angle in radians between two points.
func CentralAngle(a, b Point) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLng := (b.Longitude - a.Longitude) * math.Pi / 180

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)

	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLng*sinLng
	return 2 * math.Asin(math.Min(1, math.Sqrt(h)))
}

// DistanceMeters returns the great-circle distance between two points in meters.
func DistanceMeters(a, b Point) float64 {
	return CentralAngle(a, b) * earthRadiusKilometers * 1000
}

// ConvertMeters converts a distance in meters into the requested unit.
func ConvertMeters(meters float64, unit Unit) float64 {
	if unit == UnitMiles {
		return meters * metersToMiles
	}
	return meters * metersToKilometers
}

// Within reports whether point b lies inside the spherical cap of the given
// central angle centered on point a. The boundary is inclusive so a tour
// exactly at the center is always returned.
func Within(center, candidate Point, radiusAngle float64) bool {
	return CentralAngle(center, candidate) <= radiusAngle
}

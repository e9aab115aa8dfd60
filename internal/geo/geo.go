package geo

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/wroge/wgs84"
)

// Geodetic positions are degrees/metres, local offsets are metres in a North-East-Down frame
// anchored at a reference point. Geocentric coordinates come from EPSG:4978 (WGS84 ECEF).

// EarthRadius is the planetary radius used for the small-angle conversion between
// simulator latitude/longitude (radians) and the local linear frame.
const EarthRadius = 6.3781e6

const (
	epsgLonLat     = 4326
	epsgGeocentric = 4978
)

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// Geodetic is a WGS84 position. Lat and Lon are in degrees, Alt in metres.
type Geodetic struct {
	Lat float64
	Lon float64
	Alt float64
}

// NED is a local North-East-Down offset in metres.
type NED struct {
	North float64
	East  float64
	Down  float64
}

// RadiansToLinear converts an angular position to an approximate linear distance.
// Only valid near the reference origin.
func RadiansToLinear(rad float64) float64 {
	return rad * EarthRadius
}

// LinearToRadians is the inverse of RadiansToLinear.
func LinearToRadians(d float64) float64 {
	return d / EarthRadius
}

func toECEF(p Geodetic) (x, y, z float64) {
	f := wgs84.EPSG().Transform(epsgLonLat, epsgGeocentric)
	return f(p.Lon, p.Lat, p.Alt)
}

// GeodeticToNED returns the offset of target relative to origin in the origin's
// local tangent plane.
func GeodeticToNED(target, origin Geodetic) NED {
	tx, ty, tz := toECEF(target)
	ox, oy, oz := toECEF(origin)
	dx, dy, dz := tx-ox, ty-oy, tz-oz

	sinLat, cosLat := math.Sincos(origin.Lat * math.Pi / 180)
	sinLon, cosLon := math.Sincos(origin.Lon * math.Pi / 180)

	east := -sinLon*dx + cosLon*dy
	north := -sinLat*cosLon*dx - sinLat*sinLon*dy + cosLat*dz
	up := cosLat*cosLon*dx + cosLat*sinLon*dy + sinLat*dz

	return NED{North: north, East: east, Down: -up}
}

// GeodeticFromRadians builds a Geodetic from simulator latitude/longitude in radians.
func GeodeticFromRadians(latRad, lonRad, alt float64) Geodetic {
	return Geodetic{Lat: latRad * 180 / math.Pi, Lon: lonRad * 180 / math.Pi, Alt: alt}
}

// GeodeticFromString parses a "lat,lon,alt" string (degrees, degrees, metres).
func GeodeticFromString(coords string) (Geodetic, error) {
	parts := strings.Split(coords, ",")
	if len(parts) != 3 {
		return Geodetic{}, ErrInvalidCoordinates
	}
	var vals [3]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Geodetic{}, ErrInvalidCoordinates
		}
		vals[i] = v
	}
	if vals[0] < -90 || vals[0] > 90 || vals[1] < -180 || vals[1] > 180 {
		return Geodetic{}, ErrInvalidCoordinates
	}
	return Geodetic{Lat: vals[0], Lon: vals[1], Alt: vals[2]}, nil
}

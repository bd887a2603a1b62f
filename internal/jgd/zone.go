// Package jgd converts Japanese plane-rectangular survey coordinates to
// geographic JGD2011 longitude/latitude.
//
// Cadastral map documents are surveyed in one of the 19 plane-rectangular
// coordinate systems (平面直角座標系) and declare which one in their
// 座標系 element. Each zone is a transverse Mercator projection of the
// GRS80 ellipsoid around its own origin meridian with a central scale of
// 0.9999. Documents surveyed against no registered system declare
// 任意座標系 and cannot be reprojected at all.
package jgd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// GRS80 ellipsoid and the plane-rectangular central scale factor, per the
// Survey Act definition of the Japanese geodetic system.
const (
	semiMajor     = 6378137.0     // GRS80 semi-major axis [m]
	inverseFlat   = 298.257222101 // GRS80 inverse flattening
	originalScale = 0.9999        // scale factor on the zone origin meridian
)

// NumZones is the number of plane-rectangular systems in use (系1 through 系19).
const NumZones = 19

// GeographicEPSG identifies the output datum, geographic JGD2011.
const GeographicEPSG = 6668

// ArbitraryZoneName is the declaration used by locally surveyed documents.
const ArbitraryZoneName = "任意座標系"

// Zone identifies one plane-rectangular coordinate system, numbered 1..19.
type Zone int

// zoneOrigins[i] holds the origin of zone i+1 in degrees {latitude,
// longitude}, per the system definition (国土交通省告示第九号).
var zoneOrigins = [NumZones][2]float64{
	{33, 129.5},
	{33, 131},
	{36, 132 + 10.0/60},
	{33, 133.5},
	{36, 134 + 20.0/60},
	{36, 136},
	{36, 137 + 10.0/60},
	{36, 138.5},
	{36, 139 + 50.0/60},
	{40, 140 + 50.0/60},
	{44, 140.25},
	{44, 142.25},
	{44, 144.25},
	{26, 142},
	{26, 127.5},
	{26, 124},
	{26, 131},
	{20, 136},
	{26, 154},
}

// ErrArbitraryZone reports a document declared as 任意座標系. Its
// coordinates have no defined relation to any geodetic datum.
var ErrArbitraryZone = errors.New("arbitrary coordinate system (任意座標系) cannot be reprojected")

// UnknownZoneError reports a 座標系 declaration that names no defined
// plane-rectangular zone.
type UnknownZoneError struct {
	Name string
}

func (e *UnknownZoneError) Error() string {
	return fmt.Sprintf("unknown coordinate system %q", e.Name)
}

// ParseZone resolves a 座標系 declaration of the form 公共座標N系 with N in
// 1..19. Full-width digits are accepted; they show up in hand-edited
// documents. 任意座標系 yields ErrArbitraryZone; anything else yields an
// UnknownZoneError.
func ParseZone(name string) (Zone, error) {
	s := strings.TrimSpace(name)
	if s == ArbitraryZoneName {
		return 0, ErrArbitraryZone
	}
	body, ok := strings.CutPrefix(s, "公共座標")
	if ok {
		body, ok = strings.CutSuffix(body, "系")
	}
	if !ok {
		return 0, &UnknownZoneError{Name: name}
	}
	n, err := strconv.Atoi(asciiDigits(body))
	if err != nil || n < 1 || n > NumZones {
		return 0, &UnknownZoneError{Name: name}
	}
	return Zone(n), nil
}

// asciiDigits folds full-width digits to ASCII so both spellings parse.
func asciiDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '０' && r <= '９' {
			return '0' + (r - '０')
		}
		return r
	}, s)
}

// Valid reports whether z names a defined zone.
func (z Zone) Valid() bool {
	return z >= 1 && z <= NumZones
}

// EPSG returns the EPSG code of the zone's projected CRS under JGD2011:
// 6669 for zone 1 through 6687 for zone 19.
func (z Zone) EPSG() int {
	return GeographicEPSG + int(z)
}

// Origin returns the zone origin in degrees.
func (z Zone) Origin() (lat, lon float64) {
	o := zoneOrigins[z-1]
	return o[0], o[1]
}

func (z Zone) String() string {
	return fmt.Sprintf("zone %d", int(z))
}

package jgd

import "math"

// Gauss-Krüger series on GRS80, following the computation method published
// by the Geospatial Information Authority of Japan (Kawase, 2011). The
// series are carried to fifth/sixth order in the third flattening, which
// keeps the error well under a millimeter anywhere inside a zone's coverage.

const (
	degPerRad = 180 / math.Pi
	radPerDeg = math.Pi / 180
)

// thirdFlat is the third flattening n = f/(2-f) of GRS80; conformalK is the
// constant 2*sqrt(n)/(1+n) used by the conformal latitude.
var (
	thirdFlat  = 1 / (2*inverseFlat - 1)
	conformalK = 2 * math.Sqrt(thirdFlat) / (1 + thirdFlat)
)

// projection holds the precomputed series coefficients for one zone.
// Read-only after package init, so safe for concurrent use.
type projection struct {
	lon0  float64    // origin longitude [rad]
	aBar  float64    // rectifying radius times central scale [m]
	s0    float64    // scaled meridian arc from the equator to the origin latitude [m]
	alpha [6]float64 // forward series, indices 1..5
	beta  [6]float64 // inverse series, indices 1..5
	delta [7]float64 // conformal-to-geographic latitude series, indices 1..6
}

var projections [NumZones]projection

func init() {
	for i := range projections {
		projections[i] = newProjection(zoneOrigins[i][0], zoneOrigins[i][1])
	}
}

func newProjection(latDeg, lonDeg float64) projection {
	lat0 := latDeg * radPerDeg
	n := thirdFlat
	n2 := n * n
	n3 := n2 * n
	n4 := n3 * n
	n5 := n4 * n
	n6 := n5 * n

	// Meridian arc series.
	a0 := 1 + n2/4 + n4/64
	a1 := -1.5 * (n - n3/8 - n5/64)
	a2 := 15.0 / 16 * (n2 - n4/4)
	a3 := -35.0 / 48 * (n3 - 5.0/16*n5)
	a4 := 315.0 / 512 * n4
	a5 := -693.0 / 1280 * n5

	r := originalScale * semiMajor / (1 + n)

	p := projection{lon0: lonDeg * radPerDeg}
	p.aBar = r * a0
	p.s0 = r * (a0*lat0 +
		a1*math.Sin(2*lat0) +
		a2*math.Sin(4*lat0) +
		a3*math.Sin(6*lat0) +
		a4*math.Sin(8*lat0) +
		a5*math.Sin(10*lat0))

	p.alpha = [6]float64{0,
		n/2 - 2.0/3*n2 + 5.0/16*n3 + 41.0/180*n4 - 127.0/288*n5,
		13.0/48*n2 - 3.0/5*n3 + 557.0/1440*n4 + 281.0/630*n5,
		61.0/240*n3 - 103.0/140*n4 + 15061.0/26880*n5,
		49561.0/161280*n4 - 179.0/168*n5,
		34729.0 / 80640 * n5,
	}
	p.beta = [6]float64{0,
		n/2 - 2.0/3*n2 + 37.0/96*n3 - 1.0/360*n4 - 81.0/512*n5,
		n2/48 + n3/15 - 437.0/1440*n4 + 46.0/105*n5,
		17.0/480*n3 - 37.0/840*n4 - 209.0/4480*n5,
		4397.0/161280*n4 - 11.0/504*n5,
		4583.0 / 161280 * n5,
	}
	p.delta = [7]float64{0,
		2*n - 2.0/3*n2 - 2*n3 + 116.0/45*n4 + 26.0/45*n5 - 2854.0/675*n6,
		7.0/3*n2 - 8.0/5*n3 - 227.0/45*n4 + 2704.0/315*n5 + 2323.0/945*n6,
		56.0/15*n3 - 136.0/35*n4 - 1262.0/105*n5 + 73814.0/2835*n6,
		4279.0/630*n4 - 332.0/35*n5 - 399572.0/14175*n6,
		4174.0/315*n5 - 144838.0/6237*n6,
		601676.0 / 22275 * n6,
	}
	return p
}

// Inverse converts plane-rectangular coordinates in zone z to geographic
// JGD2011 degrees, longitude first. Following the surveying axis
// convention of the source data, x is the northing (the XML X value) and y
// the easting (the XML Y value), both in meters. z must be a valid zone.
func (z Zone) Inverse(x, y float64) (lon, lat float64) {
	p := &projections[z-1]

	xi := (x + p.s0) / p.aBar
	eta := y / p.aBar
	xiP, etaP := xi, eta
	for j := 1; j <= 5; j++ {
		xiP -= p.beta[j] * math.Sin(2*float64(j)*xi) * math.Cosh(2*float64(j)*eta)
		etaP -= p.beta[j] * math.Cos(2*float64(j)*xi) * math.Sinh(2*float64(j)*eta)
	}

	chi := math.Asin(math.Sin(xiP) / math.Cosh(etaP))
	latR := chi
	for j := 1; j <= 6; j++ {
		latR += p.delta[j] * math.Sin(2*float64(j)*chi)
	}
	lonR := p.lon0 + math.Atan2(math.Sinh(etaP), math.Cos(xiP))

	return lonR * degPerRad, latR * degPerRad
}

// Forward projects geographic JGD2011 degrees onto zone z, returning the
// plane-rectangular x (northing) and y (easting) in meters. It is the
// inverse of Inverse and serves as the precision oracle in tests.
func (z Zone) Forward(lon, lat float64) (x, y float64) {
	p := &projections[z-1]

	latR := lat * radPerDeg
	dLon := lon*radPerDeg - p.lon0

	s := math.Sin(latR)
	t := math.Sinh(math.Atanh(s) - conformalK*math.Atanh(conformalK*s))
	tBar := math.Sqrt(1 + t*t)

	xiP := math.Atan2(t, math.Cos(dLon))
	etaP := math.Atanh(math.Sin(dLon) / tBar)

	xi, eta := xiP, etaP
	for j := 1; j <= 5; j++ {
		xi += p.alpha[j] * math.Sin(2*float64(j)*xiP) * math.Cosh(2*float64(j)*etaP)
		eta += p.alpha[j] * math.Cos(2*float64(j)*xiP) * math.Sinh(2*float64(j)*etaP)
	}

	return p.aBar*xi - p.s0, p.aBar * eta
}

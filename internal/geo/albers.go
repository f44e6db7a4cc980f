package geo

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// AlbersParams describes an Albers Conic Equal Area projection. Angles are in
// degrees, offsets in metres.
type AlbersParams struct {
	Name              string
	SemiMajor         float64
	InverseFlattening float64
	StandardParallel1 float64
	StandardParallel2 float64
	LatitudeOfOrigin  float64
	CentralMeridian   float64
	FalseEasting      float64
	FalseNorthing     float64
}

// CaliforniaAlbers is NAD83 / California Albers (EPSG:3310), the projection of
// the CAL FIRE county boundary layer.
var CaliforniaAlbers = AlbersParams{
	Name:              "NAD83 / California Albers",
	SemiMajor:         6378137,
	InverseFlattening: 298.257222101,
	StandardParallel1: 34,
	StandardParallel2: 40.5,
	LatitudeOfOrigin:  0,
	CentralMeridian:   -120,
	FalseEasting:      0,
	FalseNorthing:     -4000000,
}

// Albers implements the ellipsoidal Albers equations (Snyder, Map Projections:
// A Working Manual, ch. 14).
type Albers struct {
	name       string
	a, e, e2   float64
	lon0       float64
	n, c, rho0 float64
	x0, y0     float64
}

// NewAlbers precomputes the projection constants.
func NewAlbers(p AlbersParams) (*Albers, error) {
	if p.SemiMajor <= 0 {
		return nil, fmt.Errorf("albers: invalid semi-major axis %v", p.SemiMajor)
	}
	if p.StandardParallel1 == -p.StandardParallel2 {
		return nil, fmt.Errorf("albers: standard parallels %v and %v are symmetric about the equator",
			p.StandardParallel1, p.StandardParallel2)
	}

	var e2 float64
	if p.InverseFlattening > 0 {
		f := 1 / p.InverseFlattening
		e2 = 2*f - f*f
	}
	al := &Albers{
		name: p.Name,
		a:    p.SemiMajor,
		e2:   e2,
		e:    math.Sqrt(e2),
		lon0: radians(p.CentralMeridian),
		x0:   p.FalseEasting,
		y0:   p.FalseNorthing,
	}

	phi1, phi2, phi0 := radians(p.StandardParallel1), radians(p.StandardParallel2), radians(p.LatitudeOfOrigin)
	m1, m2 := al.m(phi1), al.m(phi2)
	q1, q2, q0 := al.q(phi1), al.q(phi2), al.q(phi0)
	if math.Abs(phi1-phi2) < 1e-12 {
		al.n = math.Sin(phi1)
	} else {
		al.n = (m1*m1 - m2*m2) / (q2 - q1)
	}
	al.c = m1*m1 + al.n*q1
	al.rho0 = al.a * math.Sqrt(al.c-al.n*q0) / al.n
	return al, nil
}

func (al *Albers) Name() string { return al.name }

// Project converts a WGS-84 lon/lat point to projected metres.
func (al *Albers) Project(p orb.Point) orb.Point {
	phi := radians(p[1])
	rho := al.a * math.Sqrt(al.c-al.n*al.q(phi)) / al.n
	theta := al.n * (radians(p[0]) - al.lon0)
	return orb.Point{
		al.x0 + rho*math.Sin(theta),
		al.y0 + al.rho0 - rho*math.Cos(theta),
	}
}

// Unproject converts projected metres to WGS-84 lon/lat.
func (al *Albers) Unproject(p orb.Point) (orb.Point, error) {
	x := p[0] - al.x0
	dy := al.rho0 - (p[1] - al.y0)
	rho := math.Hypot(x, dy)
	theta := math.Atan2(x, dy)
	if al.n < 0 {
		rho = -rho
		theta = math.Atan2(-x, -dy)
	}

	q := (al.c - (rho*al.n/al.a)*(rho*al.n/al.a)) / al.n
	phi, err := al.latitude(q)
	if err != nil {
		return orb.Point{}, err
	}
	return orb.Point{degrees(al.lon0 + theta/al.n), degrees(phi)}, nil
}

// latitude inverts q(phi) by Newton iteration (Snyder eq. 3-16).
func (al *Albers) latitude(q float64) (float64, error) {
	if al.e == 0 {
		return math.Asin(clamp(q/2, -1, 1)), nil
	}
	phi := math.Asin(clamp(q/2, -1, 1))
	for range 25 {
		sin, cos := math.Sincos(phi)
		esin := al.e * sin
		den := 1 - esin*esin
		delta := den * den / (2 * cos) *
			(q/(1-al.e2) - sin/den + math.Log((1-esin)/(1+esin))/(2*al.e))
		phi += delta
		if math.Abs(delta) < 1e-12 {
			return phi, nil
		}
	}
	return 0, fmt.Errorf("albers: latitude did not converge for q=%v", q)
}

func (al *Albers) m(phi float64) float64 {
	sin := math.Sin(phi)
	return math.Cos(phi) / math.Sqrt(1-al.e2*sin*sin)
}

func (al *Albers) q(phi float64) float64 {
	sin := math.Sin(phi)
	if al.e == 0 {
		return 2 * sin
	}
	esin := al.e * sin
	return (1 - al.e2) * (sin/(1-esin*esin) - math.Log((1-esin)/(1+esin))/(2*al.e))
}

func radians(d float64) float64 { return d * math.Pi / 180 }

func degrees(r float64) float64 { return r * 180 / math.Pi }

func clamp(v, lo, hi float64) float64 { return math.Max(lo, math.Min(hi, v)) }

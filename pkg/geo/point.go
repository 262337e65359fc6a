package geo

import "math"

// Point2D represents a point in the site's horizontal XY plane (Z is up).
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Origin is the zero point.
var Origin = Point2D{0, 0}

// Pt is a shorthand constructor for Point2D.
func Pt(x, y float64) Point2D {
	return Point2D{X: x, Y: y}
}

// Add returns p + q.
func (p Point2D) Add(q Point2D) Point2D {
	return Point2D{p.X + q.X, p.Y + q.Y}
}

// Sub returns p - q.
func (p Point2D) Sub(q Point2D) Point2D {
	return Point2D{p.X - q.X, p.Y - q.Y}
}

// Scale returns p * s.
func (p Point2D) Scale(s float64) Point2D {
	return Point2D{p.X * s, p.Y * s}
}

// Length returns the Euclidean length of the vector.
func (p Point2D) Length() float64 {
	return math.Hypot(p.X, p.Y)
}

// Distance returns the Euclidean distance from p to q.
func (p Point2D) Distance(q Point2D) float64 {
	return p.Sub(q).Length()
}

// Angle returns the angle of the vector from the positive X axis in radians.
func (p Point2D) Angle() float64 {
	return math.Atan2(p.Y, p.X)
}

// Rotate returns p rotated by angle radians around the origin.
func (p Point2D) Rotate(angle float64) Point2D {
	c, s := math.Cos(angle), math.Sin(angle)
	return Point2D{
		X: p.X*c - p.Y*s,
		Y: p.X*s + p.Y*c,
	}
}

// Polar returns the point at distance r and angle theta from p.
func (p Point2D) Polar(r, theta float64) Point2D {
	return Point2D{p.X + r*math.Cos(theta), p.Y + r*math.Sin(theta)}
}

// Vec3 is a point in site coordinates with Z up.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// XY drops the vertical component.
func (v Vec3) XY() Point2D {
	return Point2D{v.X, v.Y}
}

// At lifts p to height z.
func (p Point2D) At(z float64) Vec3 {
	return Vec3{p.X, p.Y, z}
}

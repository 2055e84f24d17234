package domain

// Polygon is a closed boundary ring in (lon, lat) order. The closing edge
// from the last vertex back to the first is implicit.
type Polygon []Coordinate

// Contains reports whether c lies inside the polygon, using the even-odd
// ray-casting rule. Points exactly on an edge may land on either side; the
// boundaries in question are coarse jurisdiction outlines, so that is fine.
func (p Polygon) Contains(c Coordinate) bool {
	if len(p) < 3 {
		return false
	}
	inside := false
	j := len(p) - 1
	for i := 0; i < len(p); i++ {
		pi, pj := p[i], p[j]
		if (pi.Lat > c.Lat) != (pj.Lat > c.Lat) {
			crossLon := (pj.Lon-pi.Lon)*(c.Lat-pi.Lat)/(pj.Lat-pi.Lat) + pi.Lon
			if c.Lon < crossLon {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}

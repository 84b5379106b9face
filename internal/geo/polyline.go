package geo

import "math"

// polylinePrecision is the fixed-point scale of the encoded polyline format (5 decimals).
const polylinePrecision = 1e5

// EncodePolyline encodes points with Google's polyline algorithm at precision 5.
// Map clients use it to draw a route without receiving every raw coordinate.
func EncodePolyline(points []Point) string {
	if len(points) == 0 {
		return ""
	}

	buf := make([]byte, 0, len(points)*6)
	var prevLat, prevLon int

	for _, p := range points {
		lat := int(math.Round(p.Lat * polylinePrecision))
		lon := int(math.Round(p.Lon * polylinePrecision))

		buf = appendPolylineValue(buf, lat-prevLat)
		buf = appendPolylineValue(buf, lon-prevLon)

		prevLat, prevLon = lat, lon
	}

	return string(buf)
}

// DecodePolyline reverses EncodePolyline.
func DecodePolyline(encoded string) []Point {
	if encoded == "" {
		return nil
	}

	var points []Point
	var lat, lon int
	for i := 0; i < len(encoded); {
		var dLat, dLon int
		dLat, i = readPolylineValue(encoded, i)
		dLon, i = readPolylineValue(encoded, i)
		lat += dLat
		lon += dLon
		points = append(points, Point{
			Lat: float64(lat) / polylinePrecision,
			Lon: float64(lon) / polylinePrecision,
		})
	}
	return points
}

func appendPolylineValue(buf []byte, v int) []byte {
	if v < 0 {
		v = ^(v << 1)
	} else {
		v <<= 1
	}
	for v >= 0x20 {
		buf = append(buf, byte((v&0x1f)|0x20)+63)
		v >>= 5
	}
	return append(buf, byte(v)+63)
}

func readPolylineValue(s string, i int) (int, int) {
	var result, shift int
	for i < len(s) {
		b := int(s[i]) - 63
		i++
		result |= (b & 0x1f) << shift
		shift += 5
		if b < 0x20 {
			break
		}
	}
	if result&1 != 0 {
		return ^(result >> 1), i
	}
	return result >> 1, i
}

package pmtiles

// ZxyToID returns the Hilbert tile id of z/x/y. Ids count all tiles of the
// lower zooms first, then walk the Hilbert curve of zoom z.
func ZxyToID(z uint8, x, y uint32) uint64 {
	acc := (uint64(1)<<(z*2) - 1) / 3
	for s := uint32(1) << z >> 1; s > 0; s >>= 1 {
		var rx, ry uint32
		if x&s != 0 {
			rx = 1
		}
		if y&s != 0 {
			ry = 1
		}
		acc += uint64(s) * uint64(s) * uint64((3*rx)^ry)
		x, y = rotate(s, x, y, rx, ry)
	}
	return acc
}

// IDToZxy inverts ZxyToID.
func IDToZxy(id uint64) (z uint8, x, y uint32) {
	var acc uint64
	for {
		n := uint64(1) << (z * 2)
		if id < acc+n {
			break
		}
		acc += n
		z++
	}
	t := id - acc
	for s := uint32(1); s < uint32(1)<<z; s <<= 1 {
		rx := uint32(1 & (t >> 1))
		ry := uint32(1 & (t ^ uint64(rx)))
		x, y = rotate(s, x, y, rx, ry)
		x += s * rx
		y += s * ry
		t >>= 2
	}
	return z, x, y
}

func rotate(n, x, y, rx, ry uint32) (uint32, uint32) {
	if ry == 0 {
		if rx == 1 {
			x = n - 1 - x
			y = n - 1 - y
		}
		return y, x
	}
	return x, y
}

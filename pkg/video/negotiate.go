// SPDX-License-Identifier: BSD-3-Clause

package video

// DeviceCaps is what a capture driver advertises: formats with their frame
// sizes and per-size frame intervals.
type DeviceCaps struct {
	Formats map[PixelFormat][]ResolutionCaps
}

// ResolutionCaps is one advertised frame size with its supported rates.
type ResolutionCaps struct {
	Resolution Resolution
	Rates      []uint32
}

// Request is what the configuration asks for. An empty Preferred list means
// "use the built-in priority order".
type Request struct {
	Preferred []PixelFormat
	Target    Resolution
	FPS       uint32
}

// Negotiation is the agreed capture mode.
type Negotiation struct {
	Format     PixelFormat
	Resolution Resolution
	FPS        uint32
}

// Negotiate intersects driver capabilities with the preference order, then
// picks the resolution closest to the target (Euclidean distance in pixel
// space, ties to the larger area) and the highest advertised rate not above
// the requested one (or the lowest advertised rate if all exceed it).
func Negotiate(caps DeviceCaps, req Request) (Negotiation, error) {
	preferred := req.Preferred
	if len(preferred) == 0 {
		preferred = AllFormats()
	}

	var format PixelFormat
	bestPriority := -1
	for _, f := range preferred {
		if _, ok := caps.Formats[f]; !ok {
			continue
		}
		if f.Priority() > bestPriority {
			bestPriority = f.Priority()
			format = f
		}
	}
	if bestPriority < 0 {
		return Negotiation{}, ErrFormatUnsupported
	}

	sizes := caps.Formats[format]
	if len(sizes) == 0 {
		return Negotiation{}, ErrResolutionUnsupported
	}

	best := sizes[0]
	bestDist := distance(best.Resolution, req.Target)
	for _, s := range sizes[1:] {
		d := distance(s.Resolution, req.Target)
		if d < bestDist || (d == bestDist && s.Resolution.Area() > best.Resolution.Area()) {
			best = s
			bestDist = d
		}
	}

	fps := pickRate(best.Rates, req.FPS)

	return Negotiation{
		Format:     format,
		Resolution: best.Resolution,
		FPS:        fps,
	}, nil
}

func distance(a, b Resolution) uint64 {
	dw := int64(a.Width) - int64(b.Width)
	dh := int64(a.Height) - int64(b.Height)
	return uint64(dw*dw + dh*dh)
}

func pickRate(rates []uint32, target uint32) uint32 {
	if len(rates) == 0 {
		if target == 0 {
			return 30
		}
		return target
	}

	var below uint32
	lowest := rates[0]
	for _, r := range rates {
		if r < lowest {
			lowest = r
		}
		if target == 0 || r <= target {
			if r > below {
				below = r
			}
		}
	}
	if below == 0 {
		return lowest
	}
	return below
}

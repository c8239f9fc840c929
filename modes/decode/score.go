package decode

// Score implements §4.4: a pure, side-effect-free function from a
// candidate frame to a plausibility score, used upstream to pick the
// best of several overlapping demodulation candidates before a single
// winner reaches Decode.
//
// known reports whether the implied address (DF11's or DF17/18's
// recovered address, or the syndrome-as-address for the other DFs) is
// already present in the address filter.
func Score(df int, bitsFixed int, iid int, crcOK bool, known bool) int {
	if !crcOK {
		return -1
	}

	base := scoreBase(df, iid, known)
	if base < 0 {
		return base
	}
	if bitsFixed <= 0 {
		return base
	}
	return base / (bitsFixed + 1)
}

func scoreBase(df int, iid int, known bool) int {
	switch df {
	case 0, 4, 5, 16, 20, 21:
		if known {
			return 1000
		}
		return -1
	case 24, 25, 26, 27, 28, 29, 30, 31:
		if known {
			return 1000
		}
		return -1
	case 11:
		if iid == 0 {
			if known {
				return 1600
			}
			return 750
		}
		if known {
			return 1000
		}
		return -1
	case 17, 18:
		if known {
			return 1800
		}
		return 1400
	default:
		return -2
	}
}

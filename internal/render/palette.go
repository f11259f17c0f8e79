package render

// chasePalette is the set of RGBW colors a chase step can take.
var chasePalette = [3][4]byte{
	{255, 255, 0, 0},
	{255, 0, 255, 0},
	{255, 0, 0, 255},
}

const chaseSeedOffset = 900

// ChaseColor returns the palette entry for a chase index. The choice depends
// only on idx, so it is stable across calls and across processes.
func ChaseColor(idx int) [4]byte {
	return chasePalette[paletteIndex(idx)]
}

func paletteIndex(idx int) int {
	return int(mix64(uint64(int64(idx)+chaseSeedOffset)) % uint64(len(chasePalette)))
}

// mix64 is the splitmix64 finalizer.
func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

package qtdmri

// CreateRTSpaceGrid builds a Cartesian evaluation grid over displacement and
// diffusion time for PDF sampling: (2*gridSizeR+1)^3 points per axis spanning
// [-maxRadiusR, maxRadiusR], crossed with gridSizeTau times spanning
// [tauMin, tauMax]. Rows are (x, y, z, tau) with tau varying slowest.
func CreateRTSpaceGrid(gridSizeR int, maxRadiusR float64, gridSizeTau int, tauMin, tauMax float64) [][4]float64 {
	nr := 2*gridSizeR + 1
	rs := make([]float64, nr)
	for i := range rs {
		rs[i] = -maxRadiusR + 2*maxRadiusR*float64(i)/float64(nr-1)
	}
	taus := make([]float64, gridSizeTau)
	for i := range taus {
		if gridSizeTau == 1 {
			taus[i] = tauMin
		} else {
			taus[i] = tauMin + (tauMax-tauMin)*float64(i)/float64(gridSizeTau-1)
		}
	}

	grid := make([][4]float64, 0, nr*nr*nr*gridSizeTau)
	for _, tau := range taus {
		for _, x := range rs {
			for _, y := range rs {
				for _, z := range rs {
					grid = append(grid, [4]float64{x, y, z, tau})
				}
			}
		}
	}
	return grid
}

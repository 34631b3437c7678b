package analysis

import (
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/stat"
)

// SweepMode selects which trailing windows the correlation mapper
// analyzes.
type SweepMode string

const (
	// SweepLatest analyzes only the most recent window.
	SweepLatest SweepMode = "latest"
	// SweepAll analyzes every valid trailing window, producing one
	// grid per day offset.
	SweepAll SweepMode = "all"
)

// KernelGrid is the discretized (center, gamma) parameter space of the
// Cauchy kernel. XMin and XMax also define the relative day positions
// the kernel is evaluated on inside a window.
type KernelGrid struct {
	XMin    float64   `json:"x_min"`
	XMax    float64   `json:"x_max"`
	Centers []float64 `json:"centers"`
	Gammas  []float64 `json:"gammas"`
}

// NewKernelGrid builds an evenly spaced kernel parameter grid.
func NewKernelGrid(xMin, xMax float64, nCenters int, gammaMin, gammaMax float64, nGammas int) (KernelGrid, error) {
	if xMax <= xMin {
		return KernelGrid{}, fmt.Errorf("kernel grid: x_max %v must exceed x_min %v", xMax, xMin)
	}
	if nCenters < 1 || nGammas < 1 {
		return KernelGrid{}, fmt.Errorf("kernel grid: need at least one center and one gamma, got %d x %d", nCenters, nGammas)
	}
	if gammaMin <= 0 {
		return KernelGrid{}, fmt.Errorf("kernel grid: gamma_min %v must be positive", gammaMin)
	}
	if gammaMax < gammaMin {
		return KernelGrid{}, fmt.Errorf("kernel grid: gamma_max %v below gamma_min %v", gammaMax, gammaMin)
	}
	return KernelGrid{
		XMin:    xMin,
		XMax:    xMax,
		Centers: linspace(xMin, xMax, nCenters),
		Gammas:  linspace(gammaMin, gammaMax, nGammas),
	}, nil
}

// CorrelationParams configures a kernel correlation sweep.
type CorrelationParams struct {
	Grid KernelGrid
	// Window is the trailing window length W in samples.
	Window int
	// Mode selects the latest window only or the full offset sweep.
	Mode SweepMode
	// Workers bounds the goroutines of the offset sweep; <= 0 means
	// sequential.
	Workers int
}

// CorrelationCell is one grid entry. Degenerate marks windows whose
// price variance was zero: the coefficient is the 0 sentinel there, and
// the flag is what distinguishes it from a true zero correlation.
type CorrelationCell struct {
	Center      float64 `json:"center"`
	Gamma       float64 `json:"gamma"`
	Coefficient float64 `json:"coefficient"`
	Degenerate  bool    `json:"degenerate,omitempty"`
}

// CorrelationGrid is the dense centers x gammas result for one day
// offset. Offset 0 is the window ending at the most recent sample.
type CorrelationGrid struct {
	Offset  int               `json:"offset"`
	Centers []float64         `json:"centers"`
	Gammas  []float64         `json:"gammas"`
	Cells   []CorrelationCell `json:"cells"`
}

// Cell returns the entry for the i-th center and j-th gamma.
func (g *CorrelationGrid) Cell(i, j int) CorrelationCell {
	return g.Cells[i*len(g.Gammas)+j]
}

// Best returns the non-degenerate cell with the largest absolute
// coefficient, or false if every cell was degenerate.
func (g *CorrelationGrid) Best() (CorrelationCell, bool) {
	var best CorrelationCell
	found := false
	for _, c := range g.Cells {
		if c.Degenerate {
			continue
		}
		if !found || abs(c.Coefficient) > abs(best.Coefficient) {
			best = c
			found = true
		}
	}
	return best, found
}

// MapCorrelations computes, for every (center, gamma) pair and every
// requested trailing window, the Pearson correlation between the Cauchy
// kernel evaluated over the window's relative day positions and the
// window's prices. One grid is returned per offset; grid dimensions are
// fixed and every cell is filled.
//
// Offsets are independent of each other, so the full sweep fans out
// across workers with each goroutine owning exactly one output slot.
func MapCorrelations(prices []float64, p CorrelationParams) ([]CorrelationGrid, error) {
	w := p.Window
	if w < 2 {
		return nil, fmt.Errorf("correlation window must be at least 2, got %d", w)
	}
	if len(prices) < w {
		return nil, &InsufficientWindowError{Window: w, Available: len(prices)}
	}

	offsets := 1
	if p.Mode == SweepAll {
		offsets = len(prices) - w + 1
	}

	positions := linspace(p.Grid.XMin, p.Grid.XMax, w)
	grids := make([]CorrelationGrid, offsets)

	workers := p.Workers
	if workers <= 0 {
		workers = 1
	}
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for off := 0; off < offsets; off++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(off int) {
			defer wg.Done()
			defer func() { <-sem }()
			end := len(prices) - off
			window := prices[end-w : end]
			grids[off] = correlateWindow(window, positions, p.Grid, off)
		}(off)
	}
	wg.Wait()

	return grids, nil
}

func correlateWindow(window, positions []float64, grid KernelGrid, offset int) CorrelationGrid {
	degenerate := constantWindow(window)
	cells := make([]CorrelationCell, 0, len(grid.Centers)*len(grid.Gammas))
	kernel := make([]float64, len(positions))
	for _, center := range grid.Centers {
		for _, gamma := range grid.Gammas {
			cell := CorrelationCell{Center: center, Gamma: gamma}
			if degenerate {
				cell.Degenerate = true
			} else {
				for i, x := range positions {
					dx := x - center
					kernel[i] = gamma * gamma / (dx*dx + gamma*gamma)
				}
				coeff := stat.Correlation(kernel, window, nil)
				if math.IsNaN(coeff) || math.IsInf(coeff, 0) {
					// The kernel side can have zero variance too: a
					// tiny window symmetric around the center yields
					// equal kernel values at every position.
					cell.Degenerate = true
				} else {
					cell.Coefficient = clamp(coeff, -1, 1)
				}
			}
			cells = append(cells, cell)
		}
	}
	return CorrelationGrid{
		Offset:  offset,
		Centers: grid.Centers,
		Gammas:  grid.Gammas,
		Cells:   cells,
	}
}

func constantWindow(window []float64) bool {
	for _, v := range window[1:] {
		if v != window[0] {
			return false
		}
	}
	return true
}

func linspace(lo, hi float64, n int) []float64 {
	out := make([]float64, n)
	if n == 1 {
		out[0] = lo
		return out
	}
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	out[n-1] = hi
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

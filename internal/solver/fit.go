package solver

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ErrFit is returned when a response sweep cannot be fitted.
var ErrFit = errors.New("solver: cannot fit response")

// FitCubic returns the least-squares cubic through the measured
// (volts[i], g[i]) points.
func FitCubic(volts, g []float64) (Coefficients, error) {
	var c Coefficients
	if len(volts) != len(g) || len(volts) < 4 {
		return c, ErrFit
	}
	// Columns are v³, v², v, 1 to match {a, b, c, d}.
	a := mat.NewDense(len(volts), 4, nil)
	for i, v := range volts {
		a.SetRow(i, []float64{v * v * v, v * v, v, 1})
	}
	var x mat.VecDense
	if err := x.SolveVec(a, mat.NewVecDense(len(g), append([]float64(nil), g...))); err != nil {
		return c, fmt.Errorf("%w: %v", ErrFit, err)
	}
	for i := range c {
		c[i] = x.AtVec(i)
	}
	return c, nil
}

// FitLinear returns {a, b, 0, 0} for the least-squares line g = a·v + b.
func FitLinear(volts, g []float64) (Coefficients, error) {
	var c Coefficients
	if len(volts) != len(g) || len(volts) < 2 {
		return c, ErrFit
	}
	b, a := stat.LinearRegression(volts, g, nil, false)
	if math.IsNaN(a) || math.IsInf(a, 0) {
		return c, ErrFit
	}
	c[0], c[1] = a, b
	return c, nil
}

package model

import "gonum.org/v1/gonum/mat"

// ConfusionMatrix is a K×K row-stochastic matrix. Entry (i,j) is the
// probability that a worker reports class j when the true class is i.
type ConfusionMatrix struct {
	dense *mat.Dense
}

// NewConfusionMatrix allocates a zeroed k×k matrix. k must be positive.
func NewConfusionMatrix(k int) *ConfusionMatrix {
	return &ConfusionMatrix{dense: mat.NewDense(k, k, nil)}
}

// Classes returns K.
func (c *ConfusionMatrix) Classes() int {
	r, _ := c.dense.Dims()
	return r
}

// Row returns the distribution of observed classes for true class i.
// The returned slice aliases the matrix and must not be modified.
func (c *ConfusionMatrix) Row(i int) []float64 {
	return c.dense.RawRowView(i)
}

// SetRow copies row into row i.
func (c *ConfusionMatrix) SetRow(i int, row []float64) {
	c.dense.SetRow(i, row)
}

// At returns entry (i,j).
func (c *ConfusionMatrix) At(i, j int) float64 {
	return c.dense.At(i, j)
}

// DiagonalMass returns the mean probability of reporting the true class.
func (c *ConfusionMatrix) DiagonalMass() float64 {
	return mat.Trace(c.dense) / float64(c.Classes())
}

// Matrix exposes a read-only view for numeric consumers.
func (c *ConfusionMatrix) Matrix() mat.Matrix {
	return c.dense
}

package quality

import (
	"fmt"
	"math"
)

// anomalyScale is the mean absolute z-score treated as fully anomalous.
const anomalyScale = 3.0

// standardizer rescales each feature to zero mean and unit variance using
// the statistics of the training set.
type standardizer struct {
	mean []float64
	std  []float64
}

func fitStandardizer(rows [][]float64) *standardizer {
	n := float64(len(rows))
	width := len(rows[0])
	s := &standardizer{mean: make([]float64, width), std: make([]float64, width)}

	for _, row := range rows {
		for j, v := range row {
			s.mean[j] += v
		}
	}
	for j := range s.mean {
		s.mean[j] /= n
	}

	for _, row := range rows {
		for j, v := range row {
			d := v - s.mean[j]
			s.std[j] += d * d
		}
	}
	for j := range s.std {
		s.std[j] = math.Sqrt(s.std[j] / n)
		if s.std[j] == 0 {
			// Constant features pass through unscaled.
			s.std[j] = 1
		}
	}
	return s
}

func (s *standardizer) transform(v []float64) []float64 {
	out := make([]float64, len(v))
	for j, x := range v {
		out[j] = (x - s.mean[j]) / s.std[j]
	}
	return out
}

// linearModel is a least-squares regression fit by normal equations, with a
// small ridge penalty keeping the system well conditioned.
type linearModel struct {
	intercept float64
	weights   []float64
}

func fitLinearModel(rows [][]float64, targets []float64, lambda float64) (*linearModel, error) {
	width := len(rows[0]) + 1

	xtx := make([][]float64, width)
	for i := range xtx {
		xtx[i] = make([]float64, width)
	}
	xty := make([]float64, width)

	// Accumulate XᵀX and Xᵀy over the design matrix augmented with a
	// leading intercept column.
	aug := make([]float64, width)
	for i, row := range rows {
		aug[0] = 1
		copy(aug[1:], row)
		for a := 0; a < width; a++ {
			for b := 0; b < width; b++ {
				xtx[a][b] += aug[a] * aug[b]
			}
			xty[a] += aug[a] * targets[i]
		}
	}

	// The intercept stays unpenalized.
	for j := 1; j < width; j++ {
		xtx[j][j] += lambda
	}

	coef, err := solve(xtx, xty)
	if err != nil {
		return nil, err
	}
	return &linearModel{intercept: coef[0], weights: coef[1:]}, nil
}

func (m *linearModel) predict(v []float64) float64 {
	out := m.intercept
	for j, w := range m.weights {
		out += w * v[j]
	}
	return out
}

// solve runs Gaussian elimination with partial pivoting on a copy of the
// system.
func solve(matrix [][]float64, rhs []float64) ([]float64, error) {
	n := len(rhs)
	a := make([][]float64, n)
	for i := range a {
		a[i] = append(append([]float64{}, matrix[i]...), rhs[i])
	}

	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if math.Abs(a[r][col]) > math.Abs(a[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(a[pivot][col]) < 1e-12 {
			return nil, fmt.Errorf("singular feature matrix at column %d", col)
		}
		a[col], a[pivot] = a[pivot], a[col]

		for r := col + 1; r < n; r++ {
			factor := a[r][col] / a[col][col]
			for c := col; c <= n; c++ {
				a[r][c] -= factor * a[col][c]
			}
		}
	}

	out := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		sum := a[i][n]
		for j := i + 1; j < n; j++ {
			sum -= a[i][j] * out[j]
		}
		out[i] = sum / a[i][i]
	}
	return out, nil
}

// anomalyScore turns a standardized feature vector into an outlier score:
// the mean absolute z-score, saturating at anomalyScale deviations.
func anomalyScore(z []float64) float64 {
	if len(z) == 0 {
		return 0.5
	}
	var total float64
	for _, v := range z {
		total += math.Abs(v)
	}
	return clamp01(total / float64(len(z)) / anomalyScale)
}

// rSquared is the coefficient of determination, logged after training as a
// sanity score.
func rSquared(m *linearModel, rows [][]float64, targets []float64) float64 {
	if len(rows) == 0 {
		return 0
	}
	var mean float64
	for _, y := range targets {
		mean += y
	}
	mean /= float64(len(targets))

	var ssRes, ssTot float64
	for i, row := range rows {
		d := targets[i] - m.predict(row)
		ssRes += d * d
		t := targets[i] - mean
		ssTot += t * t
	}
	if ssTot == 0 {
		if ssRes == 0 {
			return 1
		}
		return 0
	}
	return 1 - ssRes/ssTot
}

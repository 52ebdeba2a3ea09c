package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitStandardizer(t *testing.T) {
	s := fitStandardizer([][]float64{{1, 10}, {3, 30}})

	assert.Equal(t, []float64{2, 20}, s.mean)
	assert.Equal(t, []float64{1, 10}, s.std)

	assert.Equal(t, []float64{0, 0}, s.transform([]float64{2, 20}))
	assert.Equal(t, []float64{1, 1}, s.transform([]float64{3, 30}))
	assert.Equal(t, []float64{-1, -1}, s.transform([]float64{1, 10}))
}

func TestStandardizerConstantColumn(t *testing.T) {
	s := fitStandardizer([][]float64{{5, 1}, {5, 2}, {5, 3}})

	got := s.transform([]float64{5, 2})
	assert.Equal(t, 0.0, got[0])
	assert.Equal(t, 0.0, got[1])

	got = s.transform([]float64{6, 2})
	assert.Equal(t, 1.0, got[0], "constant columns pass through unscaled")
}

func TestFitLinearModelRecoversLine(t *testing.T) {
	var rows [][]float64
	var targets []float64
	for i := 0; i < 20; i++ {
		x := float64(i)
		rows = append(rows, []float64{x})
		targets = append(targets, 0.2+0.3*x)
	}

	m, err := fitLinearModel(rows, targets, 1e-9)
	require.NoError(t, err)

	assert.InDelta(t, 0.2, m.intercept, 1e-6)
	assert.InDelta(t, 0.3, m.weights[0], 1e-6)
	assert.InDelta(t, 0.2+0.3*7.5, m.predict([]float64{7.5}), 1e-6)
}

func TestFitLinearModelTwoFeatures(t *testing.T) {
	var rows [][]float64
	var targets []float64
	for a := 0; a < 5; a++ {
		for b := 0; b < 5; b++ {
			rows = append(rows, []float64{float64(a), float64(b)})
			targets = append(targets, 1+2*float64(a)-3*float64(b))
		}
	}

	m, err := fitLinearModel(rows, targets, 1e-9)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, m.intercept, 1e-6)
	assert.InDelta(t, 2.0, m.weights[0], 1e-6)
	assert.InDelta(t, -3.0, m.weights[1], 1e-6)
}

func TestSolveSingularMatrix(t *testing.T) {
	_, err := solve([][]float64{{1, 1}, {2, 2}}, []float64{1, 2})
	assert.Error(t, err)
}

func TestAnomalyScore(t *testing.T) {
	assert.Equal(t, 0.0, anomalyScore(make([]float64, 9)))
	assert.Equal(t, 0.5, anomalyScore(nil), "no features reads as neutral")
	assert.InDelta(t, 0.5, anomalyScore([]float64{1.5, 1.5, 1.5}), 1e-9)
	assert.Equal(t, 1.0, anomalyScore([]float64{3, -3}))
	assert.Equal(t, 1.0, anomalyScore([]float64{30, 30}), "saturates at one")
}

func TestRSquared(t *testing.T) {
	rows := [][]float64{{1}, {2}, {3}}
	targets := []float64{1, 2, 3}

	perfect := &linearModel{weights: []float64{1}}
	assert.Equal(t, 1.0, rSquared(perfect, rows, targets))

	meanOnly := &linearModel{intercept: 2, weights: []float64{0}}
	assert.Equal(t, 0.0, rSquared(meanOnly, rows, targets))

	assert.Equal(t, 0.0, rSquared(perfect, nil, nil))
}

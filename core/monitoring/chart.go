package monitoring

import "signal-monitor/core/models"

// DefaultChartCap is the number of epochs a loss series retains
const DefaultChartCap = 100

// Point is one epoch/value pair of a chart series
type Point struct {
	Epoch int
	Value float64
}

// ChartSeries is an epoch-keyed series in insertion order with a retention cap
type ChartSeries struct {
	cap    int
	points []Point
}

// NewChartSeries creates a series that keeps at most cap points
func NewChartSeries(cap int) *ChartSeries {
	if cap <= 0 {
		cap = DefaultChartCap
	}
	return &ChartSeries{cap: cap, points: make([]Point, 0, cap+1)}
}

// Apply sets the value for epoch, appending it when new.
// Oldest points are evicted once the series is over cap.
func (s *ChartSeries) Apply(epoch int, value float64) {
	for i := range s.points {
		if s.points[i].Epoch == epoch {
			s.points[i].Value = value
			return
		}
	}

	s.points = append(s.points, Point{Epoch: epoch, Value: value})
	if over := len(s.points) - s.cap; over > 0 {
		s.points = append(s.points[:0], s.points[over:]...)
	}
}

// Len returns the number of retained points
func (s *ChartSeries) Len() int {
	return len(s.points)
}

// Cap returns the retention cap
func (s *ChartSeries) Cap() int {
	return s.cap
}

// Points returns a copy of the retained points, oldest first
func (s *ChartSeries) Points() []Point {
	out := make([]Point, len(s.points))
	copy(out, s.points)
	return out
}

// Renderer redraws a named series
type Renderer interface {
	Redraw(series string, points []Point)
}

const (
	SeriesTrainingLoss   = "training_loss"
	SeriesValidationLoss = "validation_loss"
)

// LossChart keeps the training and validation loss curves of one job
type LossChart struct {
	training   *ChartSeries
	validation *ChartSeries
	renderer   Renderer
}

// NewLossChart creates a loss chart that redraws through r
func NewLossChart(cap int, r Renderer) *LossChart {
	return &LossChart{
		training:   NewChartSeries(cap),
		validation: NewChartSeries(cap),
		renderer:   r,
	}
}

// Update applies one status tick.
// Ticks without a positive epoch or without a training loss are ignored.
func (c *LossChart) Update(s models.JobStatus) bool {
	if s.Epoch() <= 0 || s.TrainingLoss == nil {
		return false
	}
	epoch := s.Epoch()

	c.training.Apply(epoch, *s.TrainingLoss)
	c.redraw(SeriesTrainingLoss, c.training)

	if s.ValidationLoss != nil {
		c.validation.Apply(epoch, *s.ValidationLoss)
		c.redraw(SeriesValidationLoss, c.validation)
	}
	return true
}

// Training returns the training loss series
func (c *LossChart) Training() *ChartSeries { return c.training }

// Validation returns the validation loss series
func (c *LossChart) Validation() *ChartSeries { return c.validation }

func (c *LossChart) redraw(name string, s *ChartSeries) {
	if c.renderer == nil {
		return
	}
	c.renderer.Redraw(name, s.Points())
}

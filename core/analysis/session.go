// Package analysis drives a signal-analysis session against the backend:
// upload a signal, show its overview, and request analyses of it.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"signal-monitor/core/models"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

var (
	// ErrNoData is returned by analyses requested before a signal is loaded
	ErrNoData = errors.New("no signal data loaded")
	// ErrNoReference is returned by time averaging without a reference signal
	ErrNoReference = errors.New("no reference signal loaded")
)

// Backend is the subset of the API client a session uses
type Backend interface {
	UploadData(ctx context.Context, filename string, file io.Reader, samplingRate float64) (*models.SignalData, error)
	PerformFFT(ctx context.Context, ref models.SignalRef) (*models.AnalysisResult, error)
	PerformTransform(ctx context.Context, ref models.SignalRef, method models.TransformMethod, params models.TransformParams) (*models.AnalysisResult, error)
	TimeAverage(ctx context.Context, in models.TimeAverageRequest) (*models.AnalysisResult, error)
	CalculateTimeFeatures(ctx context.Context, ref models.SignalRef) (*models.AnalysisResult, error)
}

// Overview is the formatted summary of a loaded signal
type Overview struct {
	Filename     string
	SamplingRate string
	Points       string
	Duration     string
	Dtype        string
}

// OverviewView renders the data overview panel
type OverviewView interface {
	ShowOverview(o Overview)
}

// Session holds the main and reference signals of one analysis screen
type Session struct {
	backend Backend
	view    OverviewView
	logger  *zap.Logger

	mu        sync.Mutex
	data      *models.SignalData
	reference *models.SignalData
	overview  Overview
}

// NewSession creates an empty session. view may be nil.
func NewSession(backend Backend, view OverviewView, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{backend: backend, view: view, logger: logger}
}

// Load uploads the main signal and renders its overview
func (s *Session) Load(ctx context.Context, filename string, file io.Reader, samplingRate float64) (*models.SignalData, error) {
	data, err := s.upload(ctx, filename, file, samplingRate)
	if err != nil {
		return nil, err
	}

	o := NewOverview(filename, data)
	s.mu.Lock()
	s.data = data
	s.overview = o
	s.mu.Unlock()

	if s.view != nil {
		s.view.ShowOverview(o)
	}
	s.logger.Info("signal loaded",
		zap.String("file", filename),
		zap.Float64("sampling_rate", data.SamplingRate),
		zap.Int("points", len(data.TimeDomainData)))
	return data, nil
}

// LoadReference uploads the reference signal used by time averaging
func (s *Session) LoadReference(ctx context.Context, filename string, file io.Reader, samplingRate float64) (*models.SignalData, error) {
	data, err := s.upload(ctx, filename, file, samplingRate)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.reference = data
	s.mu.Unlock()
	s.logger.Info("reference signal loaded", zap.String("file", filename))
	return data, nil
}

func (s *Session) upload(ctx context.Context, filename string, file io.Reader, samplingRate float64) (*models.SignalData, error) {
	if samplingRate <= 0 {
		return nil, fmt.Errorf("sampling rate must be positive, got %v", samplingRate)
	}
	data, err := s.backend.UploadData(ctx, filename, file, samplingRate)
	if err != nil {
		s.logger.Warn("upload failed", zap.String("file", filename), zap.Error(err))
		return nil, fmt.Errorf("upload %s: %w", filename, err)
	}
	return data, nil
}

// Overview returns the overview of the loaded signal
func (s *Session) Overview() (Overview, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overview, s.data != nil
}

func (s *Session) current() (models.SignalRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return models.SignalRef{}, ErrNoData
	}
	return s.data.Ref(), nil
}

// FFT requests the frequency spectrum of the loaded signal
func (s *Session) FFT(ctx context.Context) (*models.AnalysisResult, error) {
	ref, err := s.current()
	if err != nil {
		return nil, err
	}
	return s.track("fft", func() (*models.AnalysisResult, error) {
		return s.backend.PerformFFT(ctx, ref)
	})
}

// Transform requests an advanced transform of the loaded signal
func (s *Session) Transform(ctx context.Context, method models.TransformMethod, params models.TransformParams) (*models.AnalysisResult, error) {
	switch method {
	case models.TransformCepstrum, models.TransformLiftCepstrum, models.TransformPowerCepstrum:
	default:
		return nil, fmt.Errorf("unknown transform method %q", method)
	}
	ref, err := s.current()
	if err != nil {
		return nil, err
	}
	return s.track("transform", func() (*models.AnalysisResult, error) {
		return s.backend.PerformTransform(ctx, ref, method, params)
	})
}

// TimeAverage averages the loaded signal synchronously against the reference
func (s *Session) TimeAverage(ctx context.Context, averageCount, windowSize int) (*models.AnalysisResult, error) {
	ref, err := s.current()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	reference := s.reference
	s.mu.Unlock()
	if reference == nil {
		return nil, ErrNoReference
	}
	if averageCount <= 0 || windowSize <= 0 {
		return nil, fmt.Errorf("average count and window size must be positive")
	}

	req := models.TimeAverageRequest{
		MainSignal:      ref,
		ReferenceSignal: reference.Ref(),
		AverageCount:    averageCount,
		WindowSize:      windowSize,
	}
	return s.track("time-average", func() (*models.AnalysisResult, error) {
		return s.backend.TimeAverage(ctx, req)
	})
}

// TimeFeatures requests the time-domain features of the loaded signal
func (s *Session) TimeFeatures(ctx context.Context) (*models.AnalysisResult, error) {
	ref, err := s.current()
	if err != nil {
		return nil, err
	}
	return s.track("time-features", func() (*models.AnalysisResult, error) {
		return s.backend.CalculateTimeFeatures(ctx, ref)
	})
}

func (s *Session) track(kind string, fn func() (*models.AnalysisResult, error)) (*models.AnalysisResult, error) {
	res, err := fn()
	if err != nil {
		s.logger.Warn("analysis failed", zap.String("kind", kind), zap.Error(err))
		return nil, fmt.Errorf("%s: %w", kind, err)
	}
	s.logger.Debug("analysis complete", zap.String("kind", kind), zap.Int("bytes", len(res.Data)))
	return res, nil
}

// NewOverview formats the summary of an uploaded signal
func NewOverview(filename string, data *models.SignalData) Overview {
	points := len(data.TimeDomainData)
	o := Overview{
		Filename:     filename,
		SamplingRate: humanize.Commaf(data.SamplingRate),
		Points:       humanize.Comma(int64(points)),
		Dtype:        data.DataDtype,
	}
	if data.SamplingRate > 0 {
		o.Duration = humanize.FtoaWithDigits(float64(points)/data.SamplingRate, 3) + " s"
	}
	return o
}

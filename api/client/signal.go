package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"signal-monitor/core/models"
)

// UploadData uploads a signal file with its sampling rate
func (c *Client) UploadData(ctx context.Context, filename string, file io.Reader, samplingRate float64) (*models.SignalData, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("copy upload: %w", err)
	}
	if err := mw.WriteField("sampling_rate", strconv.FormatFloat(samplingRate, 'f', -1, 64)); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	raw, err := c.do(ctx, http.MethodPost, "/api/upload-data/", mw.FormDataContentType(), &buf)
	if err != nil {
		return nil, err
	}
	var data models.SignalData
	if err := decode(raw, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// PerformFFT requests the frequency spectrum of a signal
func (c *Client) PerformFFT(ctx context.Context, ref models.SignalRef) (*models.AnalysisResult, error) {
	var resp struct {
		FrequencyData json.RawMessage `json:"frequency_data"`
	}
	if err := c.postJSON(ctx, "/api/perform-fft/", ref, &resp); err != nil {
		return nil, err
	}
	return &models.AnalysisResult{Kind: "fft", Data: resp.FrequencyData}, nil
}

type transformRequest struct {
	models.SignalRef
	Method         models.TransformMethod `json:"method"`
	FreqDisplayMin *float64               `json:"freq_display_min,omitempty"`
	FreqDisplayMax *float64               `json:"freq_display_max,omitempty"`
	TStart         *float64               `json:"t_start,omitempty"`
	TEnd           *float64               `json:"t_end,omitempty"`
	FreqLow        *float64               `json:"freq_low,omitempty"`
	FreqHigh       *float64               `json:"freq_high,omitempty"`
}

// PerformTransform requests an advanced (cepstral) transform.
// Time window parameters are only sent for cep, band parameters only for lcep.
func (c *Client) PerformTransform(ctx context.Context, ref models.SignalRef, method models.TransformMethod, params models.TransformParams) (*models.AnalysisResult, error) {
	req := transformRequest{
		SignalRef:      ref,
		Method:         method,
		FreqDisplayMin: params.FreqDisplayMin,
		FreqDisplayMax: params.FreqDisplayMax,
	}
	switch method {
	case models.TransformCepstrum:
		req.TStart = params.TimeStart
		req.TEnd = params.TimeEnd
	case models.TransformLiftCepstrum:
		req.FreqLow = params.FreqLow
		req.FreqHigh = params.FreqHigh
	}

	var resp struct {
		TransformData json.RawMessage `json:"transform_data"`
	}
	if err := c.postJSON(ctx, "/api/perform-transform/", req, &resp); err != nil {
		return nil, err
	}
	return &models.AnalysisResult{Kind: "transform:" + string(method), Data: resp.TransformData}, nil
}

// TimeAverage requests synchronous time averaging of a signal against a reference
func (c *Client) TimeAverage(ctx context.Context, in models.TimeAverageRequest) (*models.AnalysisResult, error) {
	var resp json.RawMessage
	if err := c.postJSON(ctx, "/api/time-average/", in, &resp); err != nil {
		return nil, err
	}
	return &models.AnalysisResult{Kind: "time-average", Data: resp}, nil
}

// CalculateTimeFeatures requests the time-domain statistical features of a signal
func (c *Client) CalculateTimeFeatures(ctx context.Context, ref models.SignalRef) (*models.AnalysisResult, error) {
	var resp struct {
		Features json.RawMessage `json:"features"`
	}
	if err := c.postJSON(ctx, "/api/calculate-time-features/", ref, &resp); err != nil {
		return nil, err
	}
	return &models.AnalysisResult{Kind: "time-features", Data: resp.Features}, nil
}

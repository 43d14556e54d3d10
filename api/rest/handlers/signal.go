package handlers

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

const (
	maxUploadBytes = 32 << 20
	maxPoints      = 1 << 22
)

// SignalHandler handles signal upload and analysis requests
type SignalHandler struct {
	logger *zap.Logger
}

// NewSignalHandler creates a new signal handler
func NewSignalHandler(logger *zap.Logger) *SignalHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SignalHandler{logger: logger}
}

// UploadData handles POST /api/upload-data/ (multipart: file, sampling_rate)
func (h *SignalHandler) UploadData(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid upload: "+err.Error())
		return
	}

	rate, err := strconv.ParseFloat(r.FormValue("sampling_rate"), 64)
	if err != nil || rate <= 0 || math.IsInf(rate, 0) {
		writeError(w, http.StatusBadRequest, "sampling_rate must be a positive number")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read file")
		return
	}

	samples, err := parseSamples(string(raw))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.logger.Info("signal uploaded",
		zap.String("file", header.Filename),
		zap.Int("points", len(samples)),
		zap.Float64("sampling_rate", rate))
	writeSuccess(w, http.StatusOK, map[string]interface{}{
		"data_encoded":     encodeFloat64LE(samples),
		"sampling_rate":    rate,
		"data_dtype":       "float64",
		"time_domain_data": samples,
	})
}

// NotImplemented answers analysis endpoints whose numerical work is not served here
func (h *SignalHandler) NotImplemented(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotImplemented, fmt.Sprintf("%s is not available on the development backend", r.URL.Path))
}

// parseSamples reads numbers separated by whitespace, commas or semicolons
func parseSamples(text string) ([]float64, error) {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	if len(fields) == 0 {
		return nil, fmt.Errorf("file contains no samples")
	}
	if len(fields) > maxPoints {
		return nil, fmt.Errorf("file has %d samples, limit is %d", len(fields), maxPoints)
	}

	samples := make([]float64, 0, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			if i == 0 {
				// header line
				continue
			}
			return nil, fmt.Errorf("sample %d: %q is not a number", i+1, f)
		}
		samples = append(samples, v)
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("file contains no samples")
	}
	return samples, nil
}

func encodeFloat64LE(samples []float64) string {
	buf := make([]byte, 8*len(samples))
	for i, v := range samples {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return base64.StdEncoding.EncodeToString(buf)
}

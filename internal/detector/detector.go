package detector

import "gocv.io/x/gocv"

// Detection is the per-frame output of a Detector: every hand found in the
// frame plus, when holistic tracking is enabled, a handful of named face
// reference points used by face-relative signs.
type Detection struct {
	Hands []HandLandmarks `json:"hands"`
	Face  FacePoints      `json:"face,omitempty"`
}

// Detector defines the interface for hand/face landmark detection implementations.
type Detector interface {
	// Detect analyzes a video frame and returns detected landmarks.
	// A detection with zero hands is not an error.
	Detect(frame *gocv.Mat) (*Detection, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for landmark detection.
type Config struct {
	// MaxHands is the maximum number of hands to detect (default: 2).
	MaxHands int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64

	// Holistic enables face reference point tracking alongside hands.
	Holistic bool
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MaxHands:        2,
		MinConfidence:   0.7,
		MinTrackingConf: 0.5,
		Holistic:        true,
	}
}

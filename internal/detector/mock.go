package detector

import (
	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	detection *Detection
	err       error
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	if m.detection == nil {
		m.detection = &Detection{}
	}
	m.detection.Hands = hands
}

// SetFace sets the face reference points that will be returned by Detect.
func (m *MockDetector) SetFace(face FacePoints) {
	if m.detection == nil {
		m.detection = &Detection{}
	}
	m.detection.Face = face
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.err = err
}

// Detect returns the pre-configured detection or error.
func (m *MockDetector) Detect(frame *gocv.Mat) (*Detection, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.detection == nil {
		return &Detection{}, nil
	}
	return m.detection, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// ThumbsUpLandmarks returns a preset HandLandmarks for a thumbs up (GOOD).
// The thumb is extended upward while other fingers are curled.
func ThumbsUpLandmarks() HandLandmarks {
	landmarks := HandLandmarks{
		Handedness: "Right",
		Score:      0.95,
	}

	// Wrist at origin
	landmarks.Points[Wrist] = Point3D{X: 0.5, Y: 0.8, Z: 0.0}

	// Thumb extended upward (Y decreases going up), tip clear of the IP on X
	landmarks.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.75, Z: 0.0}
	landmarks.Points[ThumbMCP] = Point3D{X: 0.57, Y: 0.65, Z: 0.0}
	landmarks.Points[ThumbIP] = Point3D{X: 0.58, Y: 0.50, Z: 0.0}
	landmarks.Points[ThumbTip] = Point3D{X: 0.60, Y: 0.35, Z: 0.0}

	// Index finger curled (tip near palm, below PIP)
	landmarks.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.70, Z: -0.02}
	landmarks.Points[IndexPIP] = Point3D{X: 0.55, Y: 0.68, Z: -0.05}
	landmarks.Points[IndexDIP] = Point3D{X: 0.52, Y: 0.70, Z: -0.04}
	landmarks.Points[IndexTip] = Point3D{X: 0.50, Y: 0.72, Z: -0.02}

	// Middle finger curled
	landmarks.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.68, Z: -0.02}
	landmarks.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.66, Z: -0.05}
	landmarks.Points[MiddleDIP] = Point3D{X: 0.47, Y: 0.68, Z: -0.04}
	landmarks.Points[MiddleTip] = Point3D{X: 0.45, Y: 0.70, Z: -0.02}

	// Ring finger curled
	landmarks.Points[RingMCP] = Point3D{X: 0.45, Y: 0.70, Z: -0.02}
	landmarks.Points[RingPIP] = Point3D{X: 0.45, Y: 0.68, Z: -0.05}
	landmarks.Points[RingDIP] = Point3D{X: 0.42, Y: 0.70, Z: -0.04}
	landmarks.Points[RingTip] = Point3D{X: 0.40, Y: 0.72, Z: -0.02}

	// Pinky finger curled
	landmarks.Points[PinkyMCP] = Point3D{X: 0.40, Y: 0.72, Z: -0.02}
	landmarks.Points[PinkyPIP] = Point3D{X: 0.40, Y: 0.70, Z: -0.05}
	landmarks.Points[PinkyDIP] = Point3D{X: 0.37, Y: 0.72, Z: -0.04}
	landmarks.Points[PinkyTip] = Point3D{X: 0.35, Y: 0.74, Z: -0.02}

	return landmarks
}

// OpenPalmLandmarks returns a preset HandLandmarks for an open hand with the
// palm facing away from the camera (HELLO).
func OpenPalmLandmarks() HandLandmarks {
	landmarks := HandLandmarks{
		Handedness: "Right",
		Score:      0.95,
	}

	// Wrist at base
	landmarks.Points[Wrist] = Point3D{X: 0.5, Y: 0.8, Z: 0.0}

	// Thumb extended to the side
	landmarks.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.75, Z: 0.02}
	landmarks.Points[ThumbMCP] = Point3D{X: 0.62, Y: 0.70, Z: 0.03}
	landmarks.Points[ThumbIP] = Point3D{X: 0.68, Y: 0.65, Z: 0.03}
	landmarks.Points[ThumbTip] = Point3D{X: 0.73, Y: 0.60, Z: 0.03}

	// Index finger extended upward
	landmarks.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.68, Z: 0.01}
	landmarks.Points[IndexPIP] = Point3D{X: 0.57, Y: 0.55, Z: 0.01}
	landmarks.Points[IndexDIP] = Point3D{X: 0.58, Y: 0.45, Z: 0.01}
	landmarks.Points[IndexTip] = Point3D{X: 0.58, Y: 0.35, Z: 0.01}

	// Middle finger extended upward (slightly longer). The MCP sits behind
	// the wrist on Z so palm orientation reads "away".
	landmarks.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.66, Z: 0.02}
	landmarks.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.52, Z: 0.02}
	landmarks.Points[MiddleDIP] = Point3D{X: 0.50, Y: 0.40, Z: 0.02}
	landmarks.Points[MiddleTip] = Point3D{X: 0.50, Y: 0.28, Z: 0.02}

	// Ring finger extended upward
	landmarks.Points[RingMCP] = Point3D{X: 0.45, Y: 0.68, Z: 0.01}
	landmarks.Points[RingPIP] = Point3D{X: 0.43, Y: 0.55, Z: 0.01}
	landmarks.Points[RingDIP] = Point3D{X: 0.42, Y: 0.45, Z: 0.01}
	landmarks.Points[RingTip] = Point3D{X: 0.42, Y: 0.35, Z: 0.01}

	// Pinky finger extended upward
	landmarks.Points[PinkyMCP] = Point3D{X: 0.40, Y: 0.70, Z: 0.01}
	landmarks.Points[PinkyPIP] = Point3D{X: 0.37, Y: 0.60, Z: 0.01}
	landmarks.Points[PinkyDIP] = Point3D{X: 0.35, Y: 0.50, Z: 0.01}
	landmarks.Points[PinkyTip] = Point3D{X: 0.34, Y: 0.42, Z: 0.01}

	return landmarks
}

// ILoveYouLandmarks returns a preset HandLandmarks for the ILY sign:
// thumb, index and pinky extended, middle and ring curled.
func ILoveYouLandmarks() HandLandmarks {
	landmarks := OpenPalmLandmarks()

	// Curl the middle finger back toward the palm
	landmarks.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.64, Z: -0.03}
	landmarks.Points[MiddleDIP] = Point3D{X: 0.48, Y: 0.67, Z: -0.04}
	landmarks.Points[MiddleTip] = Point3D{X: 0.46, Y: 0.70, Z: -0.02}

	// Curl the ring finger back toward the palm
	landmarks.Points[RingPIP] = Point3D{X: 0.45, Y: 0.66, Z: -0.03}
	landmarks.Points[RingDIP] = Point3D{X: 0.43, Y: 0.69, Z: -0.04}
	landmarks.Points[RingTip] = Point3D{X: 0.41, Y: 0.72, Z: -0.02}

	return landmarks
}

// PointingLandmarks returns a preset HandLandmarks with only the index
// finger extended (YOU).
func PointingLandmarks() HandLandmarks {
	landmarks := ThumbsUpLandmarks()

	// Fold the thumb across the palm
	landmarks.Points[ThumbIP] = Point3D{X: 0.54, Y: 0.68, Z: -0.02}
	landmarks.Points[ThumbTip] = Point3D{X: 0.50, Y: 0.70, Z: -0.02}

	// Extend the index finger upward
	landmarks.Points[IndexPIP] = Point3D{X: 0.56, Y: 0.55, Z: 0.0}
	landmarks.Points[IndexDIP] = Point3D{X: 0.57, Y: 0.45, Z: 0.0}
	landmarks.Points[IndexTip] = Point3D{X: 0.57, Y: 0.35, Z: 0.0}

	return landmarks
}

// ClosedFistLandmarks returns a preset HandLandmarks with every finger
// curled (YES).
func ClosedFistLandmarks() HandLandmarks {
	landmarks := ThumbsUpLandmarks()

	// Fold the thumb across the palm
	landmarks.Points[ThumbIP] = Point3D{X: 0.54, Y: 0.66, Z: -0.02}
	landmarks.Points[ThumbTip] = Point3D{X: 0.50, Y: 0.68, Z: -0.02}

	return landmarks
}

// TestFacePoints returns a plausible set of face reference points for a face
// centered in the upper half of the frame.
func TestFacePoints() FacePoints {
	return FacePoints{
		FaceForehead: {X: 0.5, Y: 0.12, Z: 0.0},
		FaceNose:     {X: 0.5, Y: 0.22, Z: -0.02},
		FaceMouth:    {X: 0.5, Y: 0.30, Z: -0.01},
		FaceChin:     {X: 0.5, Y: 0.36, Z: 0.0},
	}
}

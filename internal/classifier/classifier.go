// Package classifier maps a single frame's hand landmarks to a candidate
// gesture label. Static signs only; the smoother downstream is responsible
// for filtering out the noise these per-frame heuristics produce.
package classifier

import (
	"math"

	"github.com/ayusman/insync/internal/detector"
)

// Result is one frame's best guess for one hand. An empty Label means the
// hand shape matched no known sign this frame.
type Result struct {
	Label      string
	Confidence float64
}

// Gesture labels produced by the built-in heuristics.
const (
	LabelHello    = "HELLO"
	LabelStop     = "STOP"
	LabelThankYou = "THANK YOU"
	LabelPlease   = "PLEASE"
	LabelGood     = "GOOD"
	LabelBad      = "BAD"
	LabelYou      = "YOU"
	LabelI        = "I"
	LabelPeace    = "PEACE"
	LabelLook     = "LOOK"
	LabelCallMe   = "CALL ME"
	LabelILoveYou = "I LOVE YOU"
	LabelNo       = "NO"
	LabelWater    = "WATER"
	LabelYes      = "YES"
)

// faceProximity is the normalized-coordinate distance within which a hand
// counts as "at" a face reference point.
const faceProximity = 0.18

// fingerPattern records which digits are extended: thumb, index, middle,
// ring, pinky.
type fingerPattern [5]bool

func (p fingerPattern) count() int {
	n := 0
	for _, up := range p {
		if up {
			n++
		}
	}
	return n
}

type classifyFunc func(hand *detector.HandLandmarks, pattern fingerPattern, face detector.FacePoints) Result

// byFingerCount dispatches on the number of extended fingers. Each entry
// narrows further on which fingers are up and where the hand sits relative
// to the face.
var byFingerCount = map[int]classifyFunc{
	0: classifyFist,
	1: classifyOneFinger,
	2: classifyTwoFingers,
	3: classifyThreeFingers,
	5: classifyOpenHand,
}

// Classify returns the best static-sign guess for a single hand in a single
// frame. face may be nil when holistic tracking is off; face-relative signs
// then fall back to their position-independent variants.
func Classify(hand *detector.HandLandmarks, face detector.FacePoints) Result {
	if hand == nil {
		return Result{}
	}

	pattern := fingersUp(hand)
	fn, ok := byFingerCount[pattern.count()]
	if !ok {
		return Result{}
	}

	res := fn(hand, pattern, face)
	if res.Label == "" {
		return Result{}
	}

	// Scale by the detector's own confidence in the hand
	res.Confidence = clamp01(res.Confidence * hand.Score)
	return res
}

// fingersUp determines which digits are extended. The thumb is judged on the
// x-axis relative to its IP joint (direction depends on handedness); the
// other fingers are up when the tip sits above the PIP joint in image
// coordinates.
func fingersUp(hand *detector.HandLandmarks) fingerPattern {
	var p fingerPattern

	thumbTip := hand.Points[detector.ThumbTip]
	thumbIP := hand.Points[detector.ThumbIP]
	if hand.Handedness == "Left" {
		p[0] = thumbTip.X < thumbIP.X
	} else {
		p[0] = thumbTip.X > thumbIP.X
	}

	pairs := [4][2]int{
		{detector.IndexTip, detector.IndexPIP},
		{detector.MiddleTip, detector.MiddlePIP},
		{detector.RingTip, detector.RingPIP},
		{detector.PinkyTip, detector.PinkyPIP},
	}
	for i, pair := range pairs {
		p[i+1] = hand.Points[pair[0]].Y < hand.Points[pair[1]].Y
	}

	return p
}

func classifyFist(hand *detector.HandLandmarks, _ fingerPattern, _ detector.FacePoints) Result {
	// A closed fist held up reads as the YES sign (the nod comes from the
	// signer, not the hand shape).
	return Result{Label: LabelYes, Confidence: 0.7}
}

func classifyOneFinger(hand *detector.HandLandmarks, p fingerPattern, _ detector.FacePoints) Result {
	switch {
	case p[0]: // thumb only
		tip := hand.Points[detector.ThumbTip]
		wrist := hand.Points[detector.Wrist]
		mcp := hand.Points[detector.ThumbMCP]
		if tip.Y < wrist.Y && tip.Y < mcp.Y {
			return Result{Label: LabelGood, Confidence: 0.9}
		}
		if tip.Y > wrist.Y && tip.Y > mcp.Y {
			return Result{Label: LabelBad, Confidence: 0.9}
		}
		return Result{}
	case p[1]: // index only
		return Result{Label: LabelYou, Confidence: 0.85}
	case p[4]: // pinky only
		return Result{Label: LabelI, Confidence: 0.8}
	}
	return Result{}
}

func classifyTwoFingers(hand *detector.HandLandmarks, p fingerPattern, _ detector.FacePoints) Result {
	switch {
	case p[1] && p[2]: // index + middle
		spread := detector.Distance(hand.Points[detector.IndexTip], hand.Points[detector.MiddleTip])
		if spread > 0.05 {
			return Result{Label: LabelPeace, Confidence: 0.9}
		}
		return Result{Label: LabelLook, Confidence: 0.7}
	case p[0] && p[4]: // thumb + pinky
		return Result{Label: LabelCallMe, Confidence: 0.9}
	}
	return Result{}
}

func classifyThreeFingers(hand *detector.HandLandmarks, p fingerPattern, _ detector.FacePoints) Result {
	switch {
	case p[0] && p[1] && p[4]: // thumb + index + pinky
		return Result{Label: LabelILoveYou, Confidence: 0.95}
	case p[0] && p[1] && p[2]: // thumb + index + middle
		return Result{Label: LabelNo, Confidence: 0.7}
	case p[1] && p[2] && p[3]: // index + middle + ring (W shape)
		return Result{Label: LabelWater, Confidence: 0.75}
	}
	return Result{}
}

func classifyOpenHand(hand *detector.HandLandmarks, _ fingerPattern, face detector.FacePoints) Result {
	// Face-relative signs first: an open hand at the chin is THANK YOU, at
	// the forehead HELLO regardless of palm orientation.
	if face != nil {
		if p, ok := face[detector.FaceChin]; ok && handNearPoint(hand, p) {
			return Result{Label: LabelThankYou, Confidence: 0.9}
		}
		if p, ok := face[detector.FaceForehead]; ok && handNearPoint(hand, p) {
			return Result{Label: LabelHello, Confidence: 0.9}
		}
	}

	if palmTowardCamera(hand) {
		wrist := hand.Points[detector.Wrist]
		// An open palm held at chest height facing the camera is PLEASE
		// (the circular rub is the signer's motion, not the shape).
		if wrist.Y > 0.35 && wrist.Y < 0.7 {
			return Result{Label: LabelPlease, Confidence: 0.75}
		}
		return Result{Label: LabelStop, Confidence: 0.85}
	}

	return Result{Label: LabelHello, Confidence: 0.8}
}

// handNearPoint reports whether the hand's leading fingertips are close to a
// face reference point, measured in the image plane.
func handNearPoint(hand *detector.HandLandmarks, p detector.Point3D) bool {
	tips := []int{detector.IndexTip, detector.MiddleTip, detector.RingTip}
	var sum float64
	for _, idx := range tips {
		tip := hand.Points[idx]
		dx := tip.X - p.X
		dy := tip.Y - p.Y
		sum += math.Sqrt(dx*dx + dy*dy)
	}
	return sum/float64(len(tips)) < faceProximity
}

// palmTowardCamera uses the relative depth of the middle-finger MCP and the
// wrist: when the knuckles sit in front of the wrist the palm faces the
// camera.
func palmTowardCamera(hand *detector.HandLandmarks) bool {
	return hand.Points[detector.MiddleMCP].Z <= hand.Points[detector.Wrist].Z
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

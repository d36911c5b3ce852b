package capture

import (
	"testing"

	"gocv.io/x/gocv"
)

func TestMotionDetector_FirstFrameIsBaseline(t *testing.T) {
	md := NewMotionDetector(1.0)
	defer md.Close()

	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	detected, change := md.Detect(&frame)
	if detected {
		t.Error("first frame should never report motion")
	}
	if change != 0 {
		t.Errorf("expected 0%% change on first frame, got %f", change)
	}
}

func TestMotionDetector_NoMotionOnIdenticalFrames(t *testing.T) {
	md := NewMotionDetector(1.0)
	defer md.Close()

	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	md.Detect(&frame)
	detected, change := md.Detect(&frame)
	if detected {
		t.Errorf("identical frames should not report motion (change %f%%)", change)
	}
}

func TestMotionDetector_DetectsChange(t *testing.T) {
	md := NewMotionDetector(1.0)
	defer md.Close()

	dark := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer dark.Close()

	bright := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 255, 255, 0), 480, 640, gocv.MatTypeCV8UC3)
	defer bright.Close()

	md.Detect(&dark)
	detected, change := md.Detect(&bright)
	if !detected {
		t.Errorf("expected motion between dark and bright frames (change %f%%)", change)
	}
}

func TestMotionDetector_NilAndEmptyFrames(t *testing.T) {
	md := NewMotionDetector(1.0)
	defer md.Close()

	if detected, _ := md.Detect(nil); detected {
		t.Error("nil frame should not report motion")
	}

	empty := gocv.NewMat()
	defer empty.Close()
	if detected, _ := md.Detect(&empty); detected {
		t.Error("empty frame should not report motion")
	}
}

func TestMotionDetector_Reset(t *testing.T) {
	md := NewMotionDetector(1.0)
	defer md.Close()

	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	md.Detect(&frame)
	md.Reset()

	// After reset the next frame is a baseline again
	detected, _ := md.Detect(&frame)
	if detected {
		t.Error("frame after Reset should be treated as baseline")
	}
}

func TestMotionDetector_SetThreshold(t *testing.T) {
	md := NewMotionDetector(1.0)
	defer md.Close()

	md.SetThreshold(0)
	md.SetThreshold(-3)
	md.SetThreshold(5.0)

	dark := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer dark.Close()
	bright := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 255, 255, 0), 480, 640, gocv.MatTypeCV8UC3)
	defer bright.Close()

	md.Detect(&dark)
	if detected, _ := md.Detect(&bright); !detected {
		t.Error("full-frame change should exceed a 5%% threshold")
	}
}

package detector

// Face mesh landmark indices following the MediaPipe Face Mesh topology with
// refined iris landmarks enabled. "Left" and "right" refer to the subject's eyes
// as they appear in a mirrored preview.
const (
	LeftEyeOuter  = 33
	LeftEyeInner  = 133
	LeftEyeTop    = 159
	LeftEyeBottom = 145

	RightEyeInner  = 362
	RightEyeOuter  = 263
	RightEyeTop    = 386
	RightEyeBottom = 374

	LeftIris  = 469
	RightIris = 474

	// NumFaceLandmarks is the size of the refined face mesh (468 mesh + 10 iris).
	NumFaceLandmarks = 478
)

// FaceLandmarks holds a single detected face mesh.
type FaceLandmarks struct {
	Points []Point3D `json:"points"`
	Score  float64   `json:"score"`
}

// Complete reports whether the mesh carries every refined landmark.
func (f *FaceLandmarks) Complete() bool {
	return f != nil && len(f.Points) >= NumFaceLandmarks
}

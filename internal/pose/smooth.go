package pose

import "math"

// LandmarkPoseCutoffDivisor sets the smoothing cutoff for
// landmark_pose tracks: cutoff = fps / divisor.
const LandmarkPoseCutoffDivisor = 15.0

// filtfilt edge padding; runs no longer than this pass through
// unchanged.
const smoothPadLen = 9

// Smooth low-pass filters a reprojected landmark track along time, one
// keypoint index and axis at a time. The filter is a second-order
// Butterworth applied forward then backward, so it is zero-phase.
// Absent frames and absent keypoints split the series into runs that
// are filtered independently; absent samples stay absent. Run
// endpoints keep their original values.
func Smooth(tr Track, sampleRate, cutoff float64) {
	if sampleRate <= 0 || cutoff <= 0 || cutoff >= sampleRate/2 {
		return
	}

	points := 0
	for _, p := range tr {
		if p != nil && len(p.Points) > points {
			points = len(p.Points)
		}
	}

	b, a := butterworthLowpass(cutoff, sampleRate)

	for j := 0; j < points; j++ {
		for _, run := range keypointRuns(tr, j) {
			filtfiltRun(tr, j, run, b, a, func(kp *Keypoint) *float64 { return &kp.X })
			filtfiltRun(tr, j, run, b, a, func(kp *Keypoint) *float64 { return &kp.Y })
		}
	}
}

type frameRun struct {
	start int
	end   int // exclusive
}

// keypointRuns finds the maximal frame ranges over which keypoint j is
// present in every frame.
func keypointRuns(tr Track, j int) []frameRun {
	var runs []frameRun
	start := -1
	for i := 0; i <= len(tr); i++ {
		present := i < len(tr) && tr[i] != nil && j < len(tr[i].Points) && tr[i].Points[j] != nil
		if present && start < 0 {
			start = i
		}
		if !present && start >= 0 {
			runs = append(runs, frameRun{start: start, end: i})
			start = -1
		}
	}
	return runs
}

func filtfiltRun(tr Track, j int, run frameRun, b, a [3]float64, axis func(*Keypoint) *float64) {
	n := run.end - run.start
	if n <= smoothPadLen {
		return
	}

	series := make([]float64, n)
	for i := 0; i < n; i++ {
		series[i] = *axis(tr[run.start+i].Points[j])
	}

	smoothed := filtfilt(series, b, a)
	// The filter must not move the run endpoints.
	smoothed[0] = series[0]
	smoothed[n-1] = series[n-1]

	for i := 0; i < n; i++ {
		*axis(tr[run.start+i].Points[j]) = smoothed[i]
	}
}

// butterworthLowpass designs a second-order low-pass via the bilinear
// transform. Returns numerator b and denominator a with a[0] == 1.
func butterworthLowpass(cutoff, sampleRate float64) (b, a [3]float64) {
	c := 1 / math.Tan(math.Pi*cutoff/sampleRate)
	norm := 1 / (1 + math.Sqrt2*c + c*c)

	b[0] = norm
	b[1] = 2 * norm
	b[2] = norm
	a[0] = 1
	a[1] = 2 * norm * (1 - c*c)
	a[2] = norm * (1 - math.Sqrt2*c + c*c)
	return b, a
}

// filtfilt runs the filter forward and backward over the series with
// odd-reflection padding at both ends to suppress edge transients.
func filtfilt(x []float64, b, a [3]float64) []float64 {
	padded := oddReflectPad(x, smoothPadLen)
	forward := lfilter(padded, b, a)
	reverse(forward)
	backward := lfilter(forward, b, a)
	reverse(backward)
	return backward[smoothPadLen : smoothPadLen+len(x)]
}

// lfilter applies the biquad with its state initialized to the steady
// state of x[0], so a constant series passes through exactly.
func lfilter(x []float64, b, a [3]float64) []float64 {
	y := make([]float64, len(x))
	if len(x) == 0 {
		return y
	}
	x1, x2 := x[0], x[0]
	y1, y2 := x[0], x[0]
	for i, xi := range x {
		yi := b[0]*xi + b[1]*x1 + b[2]*x2 - a[1]*y1 - a[2]*y2
		x2, x1 = x1, xi
		y2, y1 = y1, yi
		y[i] = yi
	}
	return y
}

func oddReflectPad(x []float64, pad int) []float64 {
	n := len(x)
	out := make([]float64, n+2*pad)
	for i := 0; i < pad; i++ {
		out[i] = 2*x[0] - x[pad-i]
		out[pad+n+i] = 2*x[n-1] - x[n-2-i]
	}
	copy(out[pad:], x)
	return out
}

func reverse(x []float64) {
	for i, j := 0, len(x)-1; i < j; i, j = i+1, j-1 {
		x[i], x[j] = x[j], x[i]
	}
}

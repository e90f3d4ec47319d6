package touch

import (
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

type swipeSample struct {
	point mgl32.Vec3
	at    time.Duration
}

// swipeQueue keeps the most recent samples of the tracking finger.
type swipeQueue struct {
	size    int
	samples []swipeSample
}

func (q *swipeQueue) clear() { q.samples = q.samples[:0] }

func (q *swipeQueue) add(p mgl32.Vec3, at time.Duration) {
	q.samples = append(q.samples, swipeSample{point: p, at: at})
	if len(q.samples) > q.size {
		q.samples = append(q.samples[:0], q.samples[len(q.samples)-q.size:]...)
	}
}

// detect averages the per-sample displacement over a full queue. It
// reports a swipe when the samples moved at least minSpeed units per
// second and the first sample is younger than maxTime at release.
func (q *swipeQueue) detect(release time.Duration, minSpeed float32, maxTime time.Duration) (mgl32.Vec3, bool) {
	n := len(q.samples)
	if n < q.size || n < 2 {
		return mgl32.Vec3{}, false
	}

	var sum mgl32.Vec3
	for i := 0; i+1 < n; i++ {
		sum = sum.Add(q.samples[i+1].point.Sub(q.samples[i].point))
	}
	avg := sum.Mul(1 / float32(n-1))

	span := q.samples[n-1].at - q.samples[0].at
	if span <= 0 {
		return avg, false
	}
	speed := sum.Len() / float32(span.Seconds())

	return avg, speed >= minSpeed && release-q.samples[0].at < maxTime
}

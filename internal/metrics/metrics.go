// Package metrics holds the viewer's Prometheus instrumentation.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultLabel = "result"
	passLabel   = "pass"
)

// Frame pass label values.
const (
	PassMap    = "map"
	PassPortal = "portal"
)

// Pick result label values.
const (
	PickHit   = "hit"
	PickMiss  = "miss"
	PickError = "error"
	PickSkip  = "blocked"
)

var (
	framesDrawn = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "mapview",
		Name:      "frames_drawn_total",
		Help:      "The number of frames drawn.",
	})

	framesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "mapview",
		Name:      "frames_skipped_total",
		Help:      "The number of frames skipped because the map was blocked.",
	})

	roomsDrawn = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "mapview",
		Name:      "rooms_drawn",
		Help:      "The number of rooms drawn in the last frame.",
	}, []string{passLabel})

	drawCommands = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "mapview",
		Name:      "draw_commands",
		Help:      "The number of merged draw commands in the last frame.",
	})

	squaresCulled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "mapview",
		Name:      "squares_culled_total",
		Help:      "The number of quadtree squares rejected by the frustum.",
	})

	roomsCulled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "mapview",
		Name:      "rooms_culled_total",
		Help:      "The number of rooms rejected by the frustum.",
	})

	frameDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "mapview",
		Name:      "frame_duration_seconds",
		Help:      "The time spent building and submitting a frame.",
		Buckets:   []float64{.001, .0025, .005, .01, .016, .033, .05, .1, .25},
	})

	picks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mapview",
		Name:      "picks_total",
		Help:      "The number of pick requests by result.",
	}, []string{resultLabel})

	mapRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "mapview",
		Name:      "map_rooms",
		Help:      "The number of rooms in the loaded map.",
	})

	mapPlanes = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "mapview",
		Name:      "map_planes",
		Help:      "The number of planes in the spatial index.",
	})
)

// FrameDrawn records a completed frame.
func FrameDrawn(d time.Duration, mapRooms, portalRooms, commands int) {
	framesDrawn.Inc()
	frameDuration.Observe(d.Seconds())
	roomsDrawn.With(prometheus.Labels{passLabel: PassMap}).Set(float64(mapRooms))
	roomsDrawn.With(prometheus.Labels{passLabel: PassPortal}).Set(float64(portalRooms))
	drawCommands.Set(float64(commands))
}

// FrameSkipped records a frame dropped by the blocked gate.
func FrameSkipped() {
	framesSkipped.Inc()
}

// Culled adds the frame's frustum rejections.
func Culled(squares, rooms int) {
	squaresCulled.Add(float64(squares))
	roomsCulled.Add(float64(rooms))
}

// Pick records a pick outcome.
func Pick(result string) {
	picks.With(prometheus.Labels{resultLabel: result}).Inc()
}

// MapSize records the size of the loaded map.
func MapSize(rooms, planes int) {
	mapRooms.Set(float64(rooms))
	mapPlanes.Set(float64(planes))
}

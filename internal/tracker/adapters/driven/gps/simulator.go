package gps

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"freight-tracker/internal/tracker/core/domain/model"
	"freight-tracker/internal/tracker/core/ports/driven"
)

// Simulator is a drive-route location source for environments without a GPS
// receiver: it jitters around a starting point the way a vehicle in city
// traffic would. Watch applies the same interval/distance throttling a real
// receiver adapter must.
type Simulator struct {
	mu  sync.Mutex
	lat float64
	lng float64
	rnd *rand.Rand
}

func NewSimulator(startLat, startLng float64, seed int64) *Simulator {
	return &Simulator{
		lat: startLat,
		lng: startLng,
		rnd: rand.New(rand.NewSource(seed)),
	}
}

func (s *Simulator) Current(ctx context.Context) (model.LocationPoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sample(), nil
}

func (s *Simulator) Watch(ctx context.Context, opts driven.WatchOptions, fn func(model.LocationPoint)) (func(), error) {
	interval := time.Duration(opts.IntervalMillis) * time.Millisecond
	if interval <= 0 {
		interval = time.Second
	}

	watchCtx, cancel := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		var last *model.LocationPoint
		for {
			select {
			case <-watchCtx.Done():
				return
			case <-ticker.C:
				s.mu.Lock()
				s.step()
				p := s.sample()
				s.mu.Unlock()

				if last != nil && model.Haversine(last.Lat, last.Lng, p.Lat, p.Lng) < opts.DistanceMeters {
					continue
				}
				last = &p
				fn(p)
			}
		}
	}()

	return cancel, nil
}

// step moves roughly 10-50 meters in a random direction.
func (s *Simulator) step() {
	s.lat += (s.rnd.Float64() - 0.5) / 1000
	s.lng += (s.rnd.Float64() - 0.5) / 1000
}

func (s *Simulator) sample() model.LocationPoint {
	speed := 30 + s.rnd.Float64()*20
	heading := s.rnd.Float64() * 360
	return model.LocationPoint{
		Lat:       s.lat,
		Lng:       s.lng,
		Accuracy:  5.0,
		Speed:     &speed,
		Heading:   &heading,
		Timestamp: time.Now().UnixMilli(),
	}
}

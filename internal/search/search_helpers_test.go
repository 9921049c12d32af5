package search

import (
	"context"
	"fmt"
	"sync"

	assist "github.com/ZanzyTHEbar/dragonscale-assist"
)

var origin = assist.Coordinates{Latitude: 52.5200, Longitude: 13.4050}

// place returns a restaurant i*~1.1 km north of origin with a distinct name.
func place(i int) assist.Restaurant {
	return assist.Restaurant{
		ID:                   fmt.Sprintf("r%02d", i),
		Name:                 fmt.Sprintf("Restaurant %c", 'A'+i),
		Cuisine:              "thai",
		IsVegetarianFriendly: i%2 == 0,
		Coordinates: assist.Coordinates{
			Latitude:  origin.Latitude + float64(i+1)*0.01,
			Longitude: origin.Longitude,
		},
	}
}

func places(from, to int) []assist.Restaurant {
	out := make([]assist.Restaurant, 0, to-from)
	for i := from; i < to; i++ {
		out = append(out, place(i))
	}
	return out
}

// echo returns a near-duplicate of r: another provider ID, a few metres away,
// with a differently styled name.
func echo(r assist.Restaurant) assist.Restaurant {
	d := r
	d.ID = r.ID + "-dup"
	d.Name = r.Name + "!"
	d.Coordinates.Longitude += 0.0002
	return d
}

type scriptedDiscovery struct {
	mu       sync.Mutex
	rounds   [][]assist.Restaurant
	errAt    int
	err      error
	requests []assist.SearchRequest
}

func (s *scriptedDiscovery) SearchRestaurants(ctx context.Context, req assist.SearchRequest) ([]assist.Restaurant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	n := len(s.requests)
	if s.err != nil && n == s.errAt {
		return nil, s.err
	}
	if n-1 < len(s.rounds) {
		return s.rounds[n-1], nil
	}
	return nil, nil
}

func (s *scriptedDiscovery) radii() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, len(s.requests))
	for i, r := range s.requests {
		out[i] = r.RadiusMeters
	}
	return out
}

func (s *scriptedDiscovery) limits() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, len(s.requests))
	for i, r := range s.requests {
		out[i] = r.Limit
	}
	return out
}

package domain

import (
	"fmt"
	"sort"

	"github.com/tonimelisma/raildispatch/internal/railerr"
)

// adjacency is an undirected edge from a place to a neighboring place via a
// TrackStretch ID.
type adjacency struct {
	neighbor ID
	stretch  ID
}

// buildAdjacency indexes the undirected TrackStretch graph for BFS.
func buildAdjacency(stretches []TrackStretch) map[ID][]adjacency {
	adj := make(map[ID][]adjacency, len(stretches)*2)

	for i := range stretches {
		s := &stretches[i]
		adj[s.FromID] = append(adj[s.FromID], adjacency{neighbor: s.ToID, stretch: s.ID})
		adj[s.ToID] = append(adj[s.ToID], adjacency{neighbor: s.FromID, stretch: s.ID})
	}

	// Sort neighbors by stretch ID so BFS tie-breaking (smaller TrackStretch
	// ID wins) is deterministic regardless of input order.
	for id := range adj {
		list := adj[id]
		sort.Slice(list, func(i, j int) bool { return list[i].stretch < list[j].stretch })
		adj[id] = list
	}

	return adj
}

// ShortestPath computes the shortest path (by hop count, ties broken by
// smaller TrackStretch ID) through the undirected TrackStretch graph from
// `from` to `to`, returning the ordered TrackStretch IDs traversed. Returns
// railerr.ErrInvalidLayout if from == to or no path exists.
func ShortestPath(stretches []TrackStretch, from, to ID) ([]ID, error) {
	if from == to {
		return nil, fmt.Errorf("shortest path from %s to %s: %w", from, to, railerr.ErrInvalidLayout)
	}

	adj := buildAdjacency(stretches)

	type frame struct {
		place ID
		path  []ID
	}

	visited := map[ID]bool{from: true}
	queue := []frame{{place: from, path: nil}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for _, edge := range adj[cur.place] {
			if visited[edge.neighbor] {
				continue
			}

			nextPath := make([]ID, len(cur.path)+1)
			copy(nextPath, cur.path)
			nextPath[len(cur.path)] = edge.stretch

			if edge.neighbor == to {
				return nextPath, nil
			}

			visited[edge.neighbor] = true
			queue = append(queue, frame{place: edge.neighbor, path: nextPath})
		}
	}

	return nil, fmt.Errorf("no path from %s to %s: %w", from, to, railerr.ErrInvalidLayout)
}

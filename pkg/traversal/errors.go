package traversal

import "errors"

var (
	errMissingWeight  = errors.New("traversal: dijkstra weight property missing or non-numeric")
	errNegativeWeight = errors.New("traversal: dijkstra rejects negative edge weights")
)

// Command raildispatchd hosts the broker: it builds the layout graph from a
// bundled YAML fixture data source, optionally restores from the two event
// logs, and blocks until interrupted. Transport (HTTP/UI, event streaming)
// is out of scope: serve exposes no dispatcher-facing route, and the only
// socket it opens is the metrics endpoint.
package main

func main() {
	if err := newRootCmd().Execute(); err != nil {
		exitOnError(err)
	}
}

// Command agentdemo serves a small instrumented HTTP application. Each
// request to / runs a query, calls /backend through the instrumented client
// and finishes its work on another goroutine. Spans go to the configured
// sinks and engine counters are served on /metrics.
package main

func main() {
	execute()
}

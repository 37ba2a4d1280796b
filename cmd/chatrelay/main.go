// ChatRelay is a conversational AI relay service.
//
// It fronts multiple LLM backends behind a single chat API, keeping
// per-conversation memory in process and windowing history into a token
// budget before every provider call.
//
// Usage:
//
//	# Start the server with default configuration
//	chatrelay run
//
//	# Start with a custom configuration file
//	chatrelay run --config /path/to/chatrelay.yaml
//
//	# Show version information
//	chatrelay version
package main

func main() {
	Execute()
}

// Package main is the opal command-line agent: a conversation loop with an
// LLM provider where every model-requested local action goes through a
// guard/sandbox/approval pipeline before it runs.
package main

func main() {
	Execute()
}

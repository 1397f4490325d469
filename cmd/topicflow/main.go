// Command topicflow inspects shape descriptions: it validates them, lists
// their subscription filters, and encodes, decodes or publishes messages.
package main

func main() {
	Execute()
}

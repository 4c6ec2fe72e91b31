// Command medley runs hair loss intake consultations in the terminal, over
// HTTP, or as MCP tools.
package main

func main() {
	Execute()
}

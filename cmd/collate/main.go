// cmd/collate/main.go
//
// Entry point for the collation client. With no subcommand it opens the
// terminal UI in the current directory; see root.go for the shared wiring.

package main

func main() {
	Execute()
}

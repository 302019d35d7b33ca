// Command flatpages manages the page database: migrations, seeding, users,
// listings and Markdown export.
package main

import "flatpages/cmd/flatpages/commands"

func main() {
	commands.Execute()
}

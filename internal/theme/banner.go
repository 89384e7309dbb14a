package theme

import (
	"fmt"
)

// Banner returns the CLI banner.
func Banner() string {
	const cyan = "\033[36m"
	const magenta = "\033[35m"
	const yellow = "\033[33m"
	const reset = "\033[0m"

	art := "" +
		"      " + magenta + "STARLING" + reset + "\n" +
		cyan + "     __\n" + reset +
		cyan + "   <(o )___\n" + reset +
		cyan + "    ( ._> /\n" + reset +
		yellow + "     `---'  ──────────────────\n" + reset +
		"   people and posts worth following\n"
	return art
}

// PrintBanner prints the banner to stdout.
func PrintBanner() {
	fmt.Print(Banner())
}

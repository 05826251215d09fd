// SPDX-License-Identifier: MIT

// Command reportstream serves report status changes to browsers over
// server-sent events.
package main

import "os"

func main() {
	os.Exit(execute(os.Args[1:]))
}

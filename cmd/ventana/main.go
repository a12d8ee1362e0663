// The ventana command runs chunked atom-photon acquisition sequences and
// manages their results.
package main

import "github.com/tebeka/atexit"

func main() {
	Execute()
	atexit.Exit(0)
}

// meshc-worker compiles model projects on behalf of a parent meshc
// process. It reads JSON requests from stdin and writes one JSON
// response per request to stdout, exiting when stdin closes.
package main

import "github.com/meshworks/meshc/internal/compile"

func main() {
	compile.RunWorker()
}

// webverse is a launcher for self-contained, container-based training labs.
package main

import "github.com/webverselabs/webverse/cmd"

func main() {
	cmd.Execute()
}

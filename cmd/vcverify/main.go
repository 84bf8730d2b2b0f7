// Command vcverify verifies W3C verifiable credentials and presentations in
// compact JWT or linked data proof form.
package main

import (
	"fmt"
	"os"

	"github.com/pilacorp/go-credential-verifier/cmd/vcverify/verifycmd"
)

func main() {
	if err := verifycmd.Cmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

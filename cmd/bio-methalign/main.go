package main

import (
	"github.com/grailbio/meth/cmd/bio-methalign/cmd"
)

func main() {
	cmd.Run()
}

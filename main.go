package main

import "github.com/shieldsec/shield-cli/cmd"

var execCmd = cmd.Execute

func main() {
	execCmd()
}

package main

import "github.com/mpapenbr/datalog-analyzer-go/cmd"

func main() {
	cmd.Execute()
}

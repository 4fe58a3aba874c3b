package main

import "github.com/user/riskscope/cmd"

func main() {
	cmd.Execute()
}

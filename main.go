package main

import "beedee/cmd"

func main() {
	cmd.Execute()
}

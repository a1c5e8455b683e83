package main

import "github.com/acastellana/prediction-agent/cmd"

func main() {
	cmd.Execute()
}

package main

import (
	"github.com/fritz-collector/cmd/agent"
)

func main() {
	agent.Execute()
}

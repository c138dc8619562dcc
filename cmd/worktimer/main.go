package main

import "github.com/emiliopalmerini/worktimer/internal/cli"

func main() {
	cli.Execute()
}

package main

import "github.com/mcoot/triviapool/internal/cli"

func main() {
	cli.Execute()
}

package main

import "github.com/quizwire/quizwire/cli"

func main() {
	cli.Execute()
}

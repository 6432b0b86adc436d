package main

import "github.com/tessro/onetap/internal/cli"

func main() {
	cli.Execute()
}

package main

import "github.com/ogulcanaydogan/price-tracker/internal/cli"

func main() {
	cli.Execute()
}

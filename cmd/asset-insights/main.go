package main

import "asset-insights/internal/cli"

func main() {
	cli.Execute()
}

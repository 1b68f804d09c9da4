package main

import "school-tables/internal/cli"

func main() {
	cli.Execute()
}

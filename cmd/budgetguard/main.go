package main

import "github.com/fintrack-labs/budgetguard/internal/cli"

func main() {
	cli.Execute()
}

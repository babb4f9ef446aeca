// Package main is the entry point for the somaray application.
package main

import (
	"github.com/samber/lo"

	"github.com/somaray-cli/somaray/cmd"
	"github.com/somaray-cli/somaray/config"
	"github.com/somaray-cli/somaray/log"
)

func main() {
	lo.Must0(config.Setup())
	lo.Must0(log.Setup())

	cmd.Execute()
}

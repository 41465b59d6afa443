package main

import (
	"fmt"
	"os"

	"github.com/Qubut/IP-Claim/packages/cvm_extrato/cmd"
	"github.com/Qubut/IP-Claim/packages/cvm_extrato/internal/errs"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(errs.ExitCode(err))
	}
}

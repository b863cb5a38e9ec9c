package main

import (
	"github.com/spf13/cobra"

	"hookgen/internal/bytecode"
)

var disasmCmd = &cobra.Command{
	Use:   "disasm <file" + bytecode.FileExt + ">...",
	Short: "Print generated classes in a javap-like listing",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDisasm,
}

func init() {
	disasmCmd.Flags().Bool("verify", false, "check structural invariants of every method")
}

func runDisasm(cmd *cobra.Command, args []string) error {
	verify, err := cmd.Flags().GetBool("verify")
	if err != nil {
		return err
	}
	for _, path := range args {
		c, err := bytecode.ReadFile(path)
		if err != nil {
			return err
		}
		if verify {
			if err := bytecode.Verify(c); err != nil {
				return err
			}
		}
		if err := bytecode.Disassemble(cmd.OutOrStdout(), c); err != nil {
			return err
		}
	}
	return nil
}

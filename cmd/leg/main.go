package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	leg "leg/vm"
)

func main() {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:   "leg",
		Short: "leg — assembler and emulator for the LEG 8-bit architecture",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			}
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	var hexOut string
	assembleCmd := &cobra.Command{
		Use:   "assemble [source.asm] [out.bin]",
		Short: "Assemble LEG source into a binary image",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			outPath := strings.TrimSuffix(args[0], ".asm") + ".bin"
			if len(args) == 2 {
				outPath = args[1]
			}
			asm, err := leg.Assemble(string(source))
			if err != nil {
				return err
			}
			if err := os.WriteFile(outPath, asm.Binary, 0o644); err != nil {
				return err
			}
			if hexOut != "" {
				if err := os.WriteFile(hexOut, []byte(asm.Hex), 0o644); err != nil {
					return err
				}
			}
			fmt.Printf("assembled %s -> %s (%d bytes, entry 0x%02x)\n", args[0], outPath, len(asm.Binary), asm.Binary[3])
			return nil
		},
	}
	assembleCmd.Flags().StringVar(&hexOut, "hex", "", "also write an annotated hex listing to this path")

	var debugMode bool
	var inputPath string
	runCmd := &cobra.Command{
		Use:   "run [program.bin]",
		Short: "Run an assembled LEG binary to completion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			program, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			state, err := leg.NewEmulator(program)
			if err != nil {
				return err
			}
			if inputPath != "" {
				input, err := os.ReadFile(inputPath)
				if err != nil {
					return err
				}
				state.SetInput(input)
			}

			if debugMode {
				return state.RunDebug(os.Stdin, os.Stdout)
			}
			output, err := state.Run()
			os.Stdout.Write(output)
			return err
		},
	}
	runCmd.Flags().BoolVar(&debugMode, "debug", false, "run in interactive single-step/breakpoint mode")
	runCmd.Flags().StringVar(&inputPath, "input", "", "file of bytes to feed the program's input register")

	asmrunCmd := &cobra.Command{
		Use:   "asmrun [source.leg]",
		Short: "Assemble and immediately run a LEG source file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			asm, err := leg.Assemble(string(source))
			if err != nil {
				return err
			}
			state, err := leg.NewEmulator(asm.Binary)
			if err != nil {
				return err
			}
			if inputPath != "" {
				input, err := os.ReadFile(inputPath)
				if err != nil {
					return err
				}
				state.SetInput(input)
			}
			output, err := state.Run()
			os.Stdout.Write(output)
			return err
		},
	}
	asmrunCmd.Flags().StringVar(&inputPath, "input", "", "file of bytes to feed the program's input register")

	disasmCmd := &cobra.Command{
		Use:   "disasm [program.bin]",
		Short: "Print the annotated hex listing for an already-assembled binary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			program, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			listing, err := leg.Disassemble(program)
			if err != nil {
				return err
			}
			fmt.Print(listing)
			return nil
		},
	}

	rootCmd.AddCommand(assembleCmd, runCmd, asmrunCmd, disasmCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

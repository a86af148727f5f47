package leg

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// printCurrentState writes a one-line snapshot of the register file,
// PC, and carry flag to w.
func (s *State) printCurrentState(w io.Writer) {
	fmt.Fprintf(w, "pc=%d carry=%v halted=%v regs=%v\n", s.PC, s.registers.carry, s.Halted, s.registers.tier1)
}

// RunDebug drives the emulator interactively from stdin/stdout: step
// one instruction at a time, free-run, or toggle a breakpoint on a
// given PC value. Every byte the program writes to its output register
// is printed as it's produced.
func (s *State) RunDebug(stdin io.Reader, stdout io.Writer) error {
	fmt.Fprint(stdout, "Commands:\n\tn or next: execute next instruction\n\tr or run: run program\n\tb or break <pc>: break on pc (or remove break on pc)\n\n")
	s.printCurrentState(stdout)

	reader := bufio.NewReader(stdin)
	waitForInput := true
	breakAtPC := make(map[uint16]struct{})
	lastBreakPC := uint16(0)
	hitBreakLast := false

	for {
		line := ""
		if waitForInput {
			fmt.Fprint(stdout, "\n->")
			line, _ = reader.ReadString('\n')
			line = strings.ToLower(strings.TrimSpace(line))
		} else {
			if _, ok := breakAtPC[s.PC]; ok && (!hitBreakLast || lastBreakPC != s.PC) {
				fmt.Fprintln(stdout, "breakpoint")
				s.printCurrentState(stdout)
				waitForInput = true
				lastBreakPC = s.PC
				hitBreakLast = true
				continue
			}
			hitBreakLast = false
		}

		switch {
		case !waitForInput || line == "n" || line == "next":
			if s.Halted {
				return nil
			}
			if err := s.Tick(); err != nil {
				return err
			}
			if s.output != nil {
				fmt.Fprintf(stdout, "%c", *s.output)
			}
			if waitForInput {
				s.printCurrentState(stdout)
			}
			if s.Halted {
				fmt.Fprintln(stdout, "halted")
				return nil
			}
		case line == "program":
			fmt.Fprintf(stdout, "% x\n", s.Program)
		case line == "r" || line == "run":
			waitForInput = false
		case strings.HasPrefix(line, "b"):
			arg := strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(line, "break"), "b"))
			pc, err := strconv.ParseUint(arg, 10, 16)
			if err != nil {
				fmt.Fprintln(stdout, "unknown pc:", err)
				continue
			}
			if _, ok := breakAtPC[uint16(pc)]; ok {
				delete(breakAtPC, uint16(pc))
			} else {
				breakAtPC[uint16(pc)] = struct{}{}
			}
		}
	}
}

// Run free-runs the emulator to halt, disabling the garbage collector
// for the duration: the RAM and stacks are all that allocate during
// execution, and GC pauses in that tight loop are pure overhead.
func (s *State) Run() ([]byte, error) {
	gcPercent := 100
	if key, ok := os.LookupEnv("GOGC"); ok {
		if v, err := strconv.Atoi(key); err == nil {
			gcPercent = v
		}
	}

	defer debug.SetGCPercent(gcPercent)
	debug.SetGCPercent(-1)

	output, err := s.RunToHalt()
	if err != nil {
		logrus.WithError(err).Error("program aborted")
	}
	return output, err
}

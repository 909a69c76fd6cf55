package sh

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/abiosoft/ishell"
	"github.com/golang/glog"

	"github.com/robotalks/hamster/pkg/board"
	"github.com/robotalks/hamster/pkg/bmi323"
	"github.com/robotalks/hamster/pkg/flashlog"
)

// Shell provides an ishell backed test menu over the board hardware.
type Shell struct {
	Interactive bool
	OutputJSON  bool

	Shell *ishell.Shell
	Board *board.Board
}

// Command is a shell command. Run writes its output to w.
type Command struct {
	Name    string
	Aliases []string
	Help    string
	Run     func(s *Shell, w io.Writer, args []string) error
}

// ErrUsage is returned for missing or malformed arguments.
var ErrUsage = errors.New("usage")

// UsageError reports the expected arguments of a command.
func UsageError(name, help string) error {
	return fmt.Errorf("%w: %s %s", ErrUsage, name, help)
}

const shellKey = "$shell"

var (
	evalOnly   bool
	outputJSON bool

	commands []*Command
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// AddCmds is used by command providers during init.
func AddCmds(cmds ...*Command) {
	commands = append(commands, cmds...)
}

// Commands lists the registered commands by name.
func Commands() []*Command {
	cmds := append([]*Command(nil), commands...)
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })
	return cmds
}

// New creates the interactive shell.
func New(b *board.Board) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,
		Shell:       ishell.New(),
		Board:       b,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt("hamster > ")
	for _, cmd := range Commands() {
		s.Shell.AddCmd(s.ishellCmd(cmd))
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

type contextWriter struct {
	c *ishell.Context
}

func (w contextWriter) Write(p []byte) (int, error) {
	w.c.Print(string(p))
	return len(p), nil
}

func (s *Shell) ishellCmd(cmd *Command) *ishell.Cmd {
	return &ishell.Cmd{
		Name:    cmd.Name,
		Aliases: cmd.Aliases,
		Help:    cmd.Help,
		Func: func(c *ishell.Context) {
			if err := cmd.Run(ShellFrom(c), contextWriter{c}, c.Args); err != nil {
				c.Err(err)
			}
		},
	}
}

// Find looks a command up by name or alias.
func Find(name string) *Command {
	for _, cmd := range commands {
		if cmd.Name == name {
			return cmd
		}
		for _, alias := range cmd.Aliases {
			if alias == name {
				return cmd
			}
		}
	}
	return nil
}

// Exec runs a command without the interactive shell.
func (s *Shell) Exec(w io.Writer, name string, args ...string) error {
	cmd := Find(name)
	if cmd == nil {
		return fmt.Errorf("unknown command %q", name)
	}
	return cmd.Run(s, w, args)
}

// IMU opens the IMU on first use.
func (s *Shell) IMU() (*bmi323.Dev, error) {
	return s.Board.OpenIMU()
}

// Log opens the flash log on first use. A log that failed to restore is
// returned so it can be inspected and wiped.
func (s *Shell) Log() (*flashlog.Log, error) {
	l, err := s.Board.OpenLog()
	if l != nil && err != nil {
		glog.Warningf("flash log: %v", err)
		err = nil
	}
	return l, err
}

// Output writes v as JSON in JSON mode, otherwise the formatted text.
func (s *Shell) Output(w io.Writer, v interface{}, format string, args ...interface{}) error {
	if s.OutputJSON {
		out, err := json.Marshal(v)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(out))
		return err
	}
	if !strings.HasSuffix(format, "\n") {
		format += "\n"
	}
	_, err := fmt.Fprintf(w, format, args...)
	return err
}

// Run processes args as one command, or starts the interactive shell.
func (s *Shell) Run(args ...string) error {
	if len(args) > 0 {
		return s.Shell.Process(args...)
	}
	if !s.Interactive {
		return errors.New("command expected")
	}
	s.Shell.Run()
	return nil
}

// Main is a helper to provide a single call in main.
func Main() {
	board.SetupFlags()
	flag.Parse()
	b := board.NewConfig().New()
	err := New(b).Run(flag.Args()...)
	b.Close()
	if err != nil {
		glog.Exit(err)
	}
}

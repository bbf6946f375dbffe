package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/fatih/color"
	pkgerrors "github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.bug.st/serial"
)

const defaultBaud = 115200

func NewMonitorCommand() *cobra.Command {
	var (
		baud int
		list bool
	)
	cmd := &cobra.Command{
		Use:   "monitor [port]",
		Short: "Tail a board's UART log with level colouring",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if list || len(args) == 0 {
				ports, err := serial.GetPortsList()
				if err != nil {
					return pkgerrors.Wrap(err, "failed to list serial ports")
				}
				if len(ports) == 0 {
					fmt.Fprintln(out, "no serial ports found")
				}
				for _, p := range ports {
					fmt.Fprintln(out, p)
				}
				return nil
			}

			port, err := serial.Open(args[0], &serial.Mode{BaudRate: baud})
			if err != nil {
				return pkgerrors.Wrapf(err, "failed to open serial port %s", args[0])
			}
			defer port.Close()
			if err := port.SetReadTimeout(200 * time.Millisecond); err != nil {
				return pkgerrors.Wrap(err, "failed to set read timeout")
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()
			return tail(ctx, port, out)
		},
	}
	cmd.Flags().IntVarP(&baud, "baud", "b", defaultBaud, "baud rate")
	cmd.Flags().BoolVar(&list, "list", false, "list serial ports and exit")
	return cmd
}

// tail copies lines from r to w until ctx ends or r fails. r is expected to
// return (0, nil) on read timeouts, as serial ports do.
func tail(ctx context.Context, r io.Reader, w io.Writer) error {
	var lb lineBuffer
	buf := make([]byte, 256)
	for ctx.Err() == nil {
		n, err := r.Read(buf)
		lb.feed(buf[:n], func(line string) { fmt.Fprintln(w, colorize(line)) })
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return pkgerrors.Wrap(err, "serial read failed")
		}
	}
	return nil
}

// lineBuffer splits a byte stream on '\n', dropping '\r'.
type lineBuffer struct{ pending []byte }

func (l *lineBuffer) feed(p []byte, emit func(string)) {
	for _, b := range p {
		switch b {
		case '\r':
		case '\n':
			emit(string(l.pending))
			l.pending = l.pending[:0]
		default:
			l.pending = append(l.pending, b)
		}
	}
}

// colorize highlights the console logger's level prefix.
func colorize(line string) string {
	switch {
	case strings.HasPrefix(line, "Error:"):
		return color.New(color.Bold, color.FgRed).Sprint(line)
	case strings.HasPrefix(line, "Warn:"):
		return color.YellowString(line)
	case strings.HasPrefix(line, "Debug:"):
		return color.New(color.Faint).Sprint(line)
	case strings.Contains(line, "Temperature:"):
		return color.GreenString(line)
	}
	return line
}

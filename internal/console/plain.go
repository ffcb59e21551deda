package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
)

// Prompt is printed before every line in plain mode.
const Prompt = "(busylight) "

// RunPlain reads lines from in until a quit command, EOF or ctx is done.
func RunPlain(ctx context.Context, s *Session, in io.Reader, out io.Writer, prompt bool) error {
	sc := bufio.NewScanner(in)
	for {
		if ctx.Err() != nil {
			return nil
		}
		if prompt {
			fmt.Fprint(out, Prompt)
		}
		if !sc.Scan() {
			if prompt {
				fmt.Fprintln(out)
			}
			return sc.Err()
		}

		reply := s.Execute(ctx, sc.Text())
		if reply.Output != "" {
			fmt.Fprintln(out, reply.Output)
		}
		if reply.Quit {
			return nil
		}
	}
}

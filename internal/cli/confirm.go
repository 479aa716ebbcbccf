package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// errDeclined is returned when the operator answers no.
var errDeclined = errors.New("aborted by operator")

// confirm asks "Continue (y/n): " until the answer starts with y or n.
// End of input counts as no.
func confirm(in io.Reader, out io.Writer) error {
	r := bufio.NewReader(in)
	for {
		fmt.Fprint(out, "Continue (y/n): ")
		line, err := r.ReadString('\n')
		answer := strings.ToLower(strings.TrimSpace(line))
		switch {
		case strings.HasPrefix(answer, "y"):
			return nil
		case strings.HasPrefix(answer, "n"):
			return errDeclined
		}
		if err != nil {
			fmt.Fprintln(out)
			return errDeclined
		}
	}
}

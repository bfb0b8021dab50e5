package commands

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Color is disabled automatically when stdout is not a terminal or
// NO_COLOR is set.
var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
)

func printOK(w io.Writer, format string, a ...any) {
	green.Fprint(w, "ok    ")
	fmt.Fprintf(w, format, a...)
}

func printFail(w io.Writer, format string, a ...any) {
	red.Fprint(w, "FAIL  ")
	fmt.Fprintf(w, format, a...)
}

func printWarning(w io.Writer, format string, a ...any) {
	yellow.Fprint(w, "warning: ")
	fmt.Fprintf(w, format, a...)
}

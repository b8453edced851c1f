package solver

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/pkg/errors"

	"github.com/gitrdm/gosmtplan/pkg/smt"
)

// Z3 runs the z3 binary as a subprocess, feeding it the rendered
// document on standard input and classifying its standard output.
// The zero value uses "z3" from PATH.
type Z3 struct {
	// Path is the z3 executable. Empty means "z3".
	Path string
	// ExtraArgs are appended after "-in -smt2".
	ExtraArgs []string
}

// Check implements Interface. The verdict comes from the printed
// answer alone, never from the process exit code: z3 exits nonzero in
// several benign situations, and an "unsat" answer is a successful
// invocation.
func (z Z3) Check(ctx context.Context, doc *smt.Document) (Verdict, error) {
	path := z.Path
	if path == "" {
		path = "z3"
	}
	var in bytes.Buffer
	if err := doc.Render(&in); err != nil {
		return Unknown, err
	}

	args := append([]string{"-in", "-smt2"}, z.ExtraArgs...)
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdin = &in
	var out, errOut bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errOut
	runErr := cmd.Run()

	if v := Classify(out.String()); v != Unknown {
		return v, nil
	}
	if runErr != nil {
		detail := firstLine(errOut.String())
		if detail == "" {
			detail = firstLine(out.String())
		}
		return Unknown, errors.Wrapf(runErr, "solver: %s invocation failed: %s", path, detail)
	}
	return Unknown, nil
}

// Classify scans solver output for the first recognized answer line.
// "sat" and "unsat" are the only defined answers; everything else is
// Unknown.
func Classify(output string) Verdict {
	for _, line := range strings.Split(output, "\n") {
		switch strings.TrimSpace(line) {
		case "sat":
			return Sat
		case "unsat":
			return Unsat
		}
	}
	return Unknown
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return s
}

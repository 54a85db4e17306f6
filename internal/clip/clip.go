// Package clip copies text to the user's clipboard with graceful
// degradation: native OS clipboard first, then the OSC52 terminal escape,
// then a temp file whose path is reported back to the caller.
package clip

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	atotto "github.com/atotto/clipboard"
	osc52 "github.com/aymanbagabas/go-osc52/v2"
	"golang.org/x/term"
)

// Method identifies which mechanism ended up holding the content.
type Method string

const (
	MethodNative Method = "native" // OS clipboard via github.com/atotto/clipboard
	MethodOSC52  Method = "osc52"  // terminal clipboard via OSC52 escape sequence
	MethodFile   Method = "file"   // temp file fallback
)

// Result reports how the content was made available.
type Result struct {
	Method   Method
	FilePath string // set only when Method == MethodFile
}

// Describe returns a one-line message suitable for CLI output.
func (r Result) Describe() string {
	switch r.Method {
	case MethodNative:
		return "copied to clipboard"
	case MethodOSC52:
		return "copied to clipboard (terminal escape)"
	case MethodFile:
		return "clipboard unavailable, saved to " + r.FilePath
	}
	return ""
}

// Seams for tests; the native clipboard is rarely reachable in CI.
var (
	nativeCopy   = func(text string) error { return atotto.WriteAll(text) }
	terminalCopy = copyOSC52
)

// Copy makes text available to paste, trying each mechanism in order.
// The temp file fallback means Copy only fails when the filesystem does.
func Copy(text string) (Result, error) {
	if err := nativeCopy(text); err == nil {
		return Result{Method: MethodNative}, nil
	}

	if err := terminalCopy(text); err == nil {
		return Result{Method: MethodOSC52}, nil
	}

	path, err := spillToFile(text)
	if err != nil {
		return Result{}, err
	}
	return Result{Method: MethodFile, FilePath: path}, nil
}

// Terminals commonly cap OSC52 payloads; stay under the usual limit.
const osc52LimitBytes = 100_000

func copyOSC52(text string) error {
	if text == "" {
		return errors.New("empty clipboard text")
	}
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		return errors.New("stderr is not a terminal")
	}
	if len(text) > osc52LimitBytes {
		return fmt.Errorf("text too large for OSC52 (%d bytes > %d)", len(text), osc52LimitBytes)
	}

	seq := osc52.New(text).Limit(osc52LimitBytes)
	// Multiplexers swallow raw OSC52; wrap the sequence for them.
	if os.Getenv("TMUX") != "" {
		seq = seq.Tmux()
	} else if os.Getenv("STY") != "" {
		seq = seq.Screen()
	}

	// Stderr keeps the escape out of piped stdout.
	_, err := seq.WriteTo(os.Stderr)
	return err
}

func spillToFile(text string) (string, error) {
	f, err := os.CreateTemp("", fmt.Sprintf("conclave-copy-%d-*.txt", time.Now().UnixNano()))
	if err != nil {
		return "", err
	}
	path := f.Name()
	defer func() {
		_ = f.Close()
		if err != nil {
			_ = os.Remove(path)
		}
	}()

	if _, err = f.WriteString(text); err != nil {
		return "", err
	}
	if err = f.Close(); err != nil {
		return "", err
	}
	return filepath.Clean(path), nil
}

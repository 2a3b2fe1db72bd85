package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/zackedds/no-rulez-web/pkg/referee"
	"github.com/zackedds/no-rulez-web/pkg/state"
)

func main() {
	p1 := flag.Int("p1", state.MaxHP, "Player 1 HP before the saved turn")
	p2 := flag.Int("p2", state.MaxHP, "Player 2 HP before the saved turn")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [-p1 HP] [-p2 HP] <response.txt|dir>...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(1)
	}

	validator := &TranscriptValidator{P1HP: *p1, P2HP: *p2, Out: os.Stdout}
	for _, arg := range flag.Args() {
		if err := validator.validatePath(arg); err != nil {
			fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
			os.Exit(1)
		}
	}

	validator.printSummary()
	if len(validator.errors) > 0 {
		fmt.Fprintf(os.Stderr, "%d response(s) could not be parsed:\n%s\n", len(validator.errors), strings.Join(validator.errors, "\n"))
		os.Exit(1)
	}
	fmt.Println("All referee responses parsed!")
}

// TranscriptValidator runs saved referee responses through the parser and
// clamp, as a turn would, and tallies which extraction strategy worked.
type TranscriptValidator struct {
	P1HP int
	P2HP int
	Out  io.Writer

	counts map[referee.Strategy]int
	errors []string
}

func (v *TranscriptValidator) validatePath(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return v.validateFile(path)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return fmt.Errorf("failed to read directory %s: %w", path, err)
	}
	for _, e := range entries {
		if e.IsDir() || !isTranscript(e.Name()) {
			continue
		}
		if err := v.validateFile(filepath.Join(path, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

func (v *TranscriptValidator) validateFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}
	v.validateResponse(filepath.Base(filename), string(data))
	return nil
}

func (v *TranscriptValidator) validateResponse(name, response string) referee.Result {
	if v.counts == nil {
		v.counts = make(map[referee.Strategy]int)
	}

	res := referee.ParseResponse(response)
	v.counts[res.Strategy]++

	if !res.OK() {
		v.addError(fmt.Sprintf("%s: no state update found", name))
		fmt.Fprintf(v.Out, "✗ %-32s strategy=%s\n", name, res.Strategy)
		return res
	}

	p1, p2 := state.ClampHP(v.P1HP, v.P2HP, res.Update)
	var notes []string
	if res.Narrative == "" {
		notes = append(notes, "empty narrative")
	}
	if res.Scene == "" {
		notes = append(notes, "no scene")
	}
	if !res.Update.HasHP() {
		notes = append(notes, "no hp")
	}
	if proposed := res.Update.P1HP; proposed != nil && *proposed != p1 {
		notes = append(notes, fmt.Sprintf("p1 clamped %d→%d", *proposed, p1))
	}
	if proposed := res.Update.P2HP; proposed != nil && *proposed != p2 {
		notes = append(notes, fmt.Sprintf("p2 clamped %d→%d", *proposed, p2))
	}

	fmt.Fprintf(v.Out, "✓ %-32s strategy=%-8s p1=%d p2=%d", name, res.Strategy, p1, p2)
	if len(notes) > 0 {
		fmt.Fprintf(v.Out, " (%s)", strings.Join(notes, ", "))
	}
	fmt.Fprintln(v.Out)
	return res
}

func (v *TranscriptValidator) printSummary() {
	strategies := make([]string, 0, len(v.counts))
	total := 0
	for s, n := range v.counts {
		strategies = append(strategies, string(s))
		total += n
	}
	sort.Strings(strategies)

	fmt.Fprintf(v.Out, "\n%d response(s):\n", total)
	for _, s := range strategies {
		fmt.Fprintf(v.Out, "  %-8s %d\n", s, v.counts[referee.Strategy(s)])
	}
}

func (v *TranscriptValidator) addError(msg string) {
	v.errors = append(v.errors, "  - "+msg)
}

func isTranscript(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".txt" || ext == ".md"
}

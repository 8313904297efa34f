package pipeline

import (
	"fmt"
	"math/rand"
	"regexp"
	"strings"
)

// Patterns for the restricted print forms the simulator understands.
var (
	printSingle  = regexp.MustCompile(`print\('([^']*)'\)`)
	printDouble  = regexp.MustCompile(`print\("([^"]*)"\)`)
	printFString = regexp.MustCompile(`print\(f"([^"]*)"\)`)
)

// cannedTrigger appends a fixed output line when its substring appears
// anywhere in the code. Each trigger fires at most once per execution.
type cannedTrigger struct {
	substring string
	line      string
}

var cannedTriggers = []cannedTrigger{
	{"led.on()", "💡 LED encendido"},
	{"led.off()", "💡 LED apagado"},
	{"sleep(", "⏳ Esperando..."},
	{"while True", "🔄 Bucle infinito detectado (simulación limitada)"},
}

// Simulate produces the canned output for a code payload without running it.
//
// It scans the text line by line for literal and f-string print calls, then
// appends one canned line per recognized idiom present anywhere in the code.
// This is pattern matching on raw text, not interpretation; anything the
// scanner does not recognize produces no output.
func Simulate(code string) string {
	var out []string

	for _, line := range strings.Split(code, "\n") {
		if m := printFString.FindStringSubmatch(line); m != nil {
			out = append(out, expandTemplate(m[1]))
			continue
		}
		if m := printSingle.FindStringSubmatch(line); m != nil {
			out = append(out, m[1])
			continue
		}
		if m := printDouble.FindStringSubmatch(line); m != nil {
			out = append(out, m[1])
		}
	}

	for _, trigger := range cannedTriggers {
		if strings.Contains(code, trigger.substring) {
			out = append(out, trigger.line)
		}
	}

	return strings.Join(out, "\n")
}

// expandTemplate substitutes the two supported placeholder tokens with
// freshly sampled readings. Unknown placeholders pass through untouched.
func expandTemplate(template string) string {
	s := template
	for strings.Contains(s, "{value}") {
		s = strings.Replace(s, "{value}", fmt.Sprintf("%d", rand.Intn(1024)), 1)
	}
	for strings.Contains(s, "{angle}") {
		s = strings.Replace(s, "{angle}", fmt.Sprintf("%d", rand.Intn(180)), 1)
	}
	return s
}

package ui

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
)

// Sprint color functions for building styled strings.
var (
	Bold        = color.New(color.Bold).SprintFunc()
	Dim         = color.New(color.Faint).SprintFunc()
	Cyan        = color.New(color.FgCyan).SprintFunc()
	Green       = color.New(color.FgGreen).SprintFunc()
	Red         = color.New(color.FgRed).SprintFunc()
	Yellow      = color.New(color.FgYellow).SprintFunc()
	BoldCyan    = color.New(color.Bold, color.FgCyan).SprintFunc()
	BoldGreen   = color.New(color.Bold, color.FgGreen).SprintFunc()
	BoldRed     = color.New(color.Bold, color.FgRed).SprintFunc()
	BoldYellow  = color.New(color.Bold, color.FgYellow).SprintFunc()
	BoldMagenta = color.New(color.Bold, color.FgMagenta).SprintFunc()
	BoldWhite   = color.New(color.Bold, color.FgWhite).SprintFunc()
)

// PrintBanner renders the mdplan banner to stderr.
func PrintBanner() {
	w := os.Stderr
	frame := color.New(color.FgCyan)
	bars := color.New(color.FgYellow)
	brand := color.New(color.Bold, color.FgMagenta)

	fmt.Fprintln(w)
	frame.Fprintln(w, "   +--------------------------+")
	bars.Fprintln(w, "   |  ####                    |")
	bars.Fprintln(w, "   |     ######  ###          |")
	brand.Fprintln(w, "   |   M  D  P  L  A  N       |")
	bars.Fprintln(w, "   |              #######  ## |")
	frame.Fprintln(w, "   +--------------------------+")
	fmt.Fprintln(w)
}

var named = map[string]color.Attribute{
	"black":   color.FgBlack,
	"red":     color.FgRed,
	"green":   color.FgGreen,
	"yellow":  color.FgYellow,
	"blue":    color.FgBlue,
	"magenta": color.FgMagenta,
	"purple":  color.FgMagenta,
	"cyan":    color.FgCyan,
	"white":   color.FgWhite,
	"orange":  color.FgHiYellow,
	"grey":    color.FgHiBlack,
	"gray":    color.FgHiBlack,
}

// Attribute maps a color name or #rrggbb value onto the nearest terminal
// foreground color. Unknown values report false.
func Attribute(c string) (color.Attribute, bool) {
	c = strings.ToLower(strings.TrimSpace(c))
	if a, ok := named[c]; ok {
		return a, true
	}
	hex := strings.TrimPrefix(c, "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return 0, false
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, false
	}
	r, g, b := v>>16&0xff, v>>8&0xff, v&0xff

	// one bit per channel, bright when any channel is strong
	var idx color.Attribute
	if r >= 0x80 {
		idx |= 1
	}
	if g >= 0x80 {
		idx |= 2
	}
	if b >= 0x80 {
		idx |= 4
	}
	if idx != 0 && (r >= 0xe0 || g >= 0xe0 || b >= 0xe0) {
		return color.FgHiBlack + idx, true
	}
	return color.FgBlack + idx, true
}

// Paint returns a sprint function for a color name or #rrggbb value. An
// empty or unknown color leaves text unstyled.
func Paint(c string) func(a ...interface{}) string {
	a, ok := Attribute(c)
	if !ok {
		return fmt.Sprint
	}
	return color.New(a).SprintFunc()
}

// CriticalMark flags tasks on the critical path.
func CriticalMark(critical bool) string {
	if critical {
		return BoldYellow("⚡")
	}
	return " "
}

// Bar draws one gantt row: filled cells for active slots, dots otherwise.
func Bar(active []bool, paint func(a ...interface{}) string) string {
	var b strings.Builder
	for _, on := range active {
		if on {
			b.WriteString(paint("█"))
		} else {
			b.WriteString(Dim("·"))
		}
	}
	return b.String()
}

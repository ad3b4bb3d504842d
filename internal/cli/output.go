package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter
func NewOutput(format string, w io.Writer) *Output {
	return &Output{format: format, w: w}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		o.printJSON(map[string]string{"message": msg})
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case SignupResult:
		fmt.Fprintf(o.w, "%s\nUsername: %s\n", v.Message, v.Username)
	case LoginResult:
		fmt.Fprintf(o.w, "%s\nUsername: %s\nUser ID: %d\n", v.Message, v.Username, v.UserID)
	case StatusResult:
		o.printStatus(v)
	case ProfileResult:
		o.printProfile(v)
	case MessageResult:
		fmt.Fprintln(o.w, v.Message)
	case HealthResult:
		fmt.Fprintf(o.w, "Status: %s\n", v.Status)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// SignupResult response type
type SignupResult struct {
	Message  string `json:"message"`
	Username string `json:"username"`
}

// LoginResult response type
type LoginResult struct {
	Message  string `json:"message"`
	Username string `json:"username"`
	UserID   int64  `json:"userId"`
}

// StatusResult response type
type StatusResult struct {
	Authenticated bool   `json:"authenticated"`
	Username      string `json:"username,omitempty"`
	UserID        int64  `json:"userId,omitempty"`
}

// ProfileResult response type
type ProfileResult struct {
	Username string         `json:"username"`
	Profile  map[string]any `json:"profile"`
	Settings map[string]any `json:"settings"`
}

// MessageResult response type
type MessageResult struct {
	Message string `json:"message"`
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
}

func (o *Output) printStatus(s StatusResult) {
	if !s.Authenticated {
		fmt.Fprintln(o.w, "Not logged in")
		return
	}
	fmt.Fprintf(o.w, "Logged in as %s (user %d)\n", s.Username, s.UserID)
}

func (o *Output) printProfile(p ProfileResult) {
	fmt.Fprintf(o.w, "Username: %s\n", p.Username)
	o.printSection("Profile", p.Profile)
	o.printSection("Settings", p.Settings)
}

func (o *Output) printSection(title string, section map[string]any) {
	fmt.Fprintf(o.w, "%s:\n", title)

	keys := make([]string, 0, len(section))
	for k := range section {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		fmt.Fprintf(o.w, "  %s: %v\n", k, section[k])
	}
}

package dbus

import (
	"fmt"
	"strings"
)

// MatchRule builds the string argument to AddMatch/RemoveMatch and
// BecomeMonitor. Grounded on z3ntu-go-dbus's MatchRule.String,
// covering the type, sender, path, interface, member and arg0 keys of
// the bus's match-rule grammar (other keys, such as destination or
// arg1 and up, are not supported), and without that teacher's
// signal-watch machinery (this
// library has no dispatcher; §9's Open Question (iii) leaves signal
// delivery to the caller's own Recv/match loop).
type MatchRule struct {
	Type      byte // TypeSignal, TypeMethodCall, etc.; zero means unset
	Sender    string
	Path      ObjectPath
	Interface string
	Member    string
	Arg0      string
}

// String renders the rule as the comma-separated key='value' form the
// bus expects as AddMatch's single string argument.
func (r *MatchRule) String() string {
	var parts []string
	if r.Type != 0 {
		parts = append(parts, fmt.Sprintf("type='%s'", matchTypeName(r.Type)))
	}
	if r.Sender != "" {
		parts = append(parts, fmt.Sprintf("sender='%s'", r.Sender))
	}
	if r.Path != "" {
		parts = append(parts, fmt.Sprintf("path='%s'", r.Path))
	}
	if r.Interface != "" {
		parts = append(parts, fmt.Sprintf("interface='%s'", r.Interface))
	}
	if r.Member != "" {
		parts = append(parts, fmt.Sprintf("member='%s'", r.Member))
	}
	if r.Arg0 != "" {
		parts = append(parts, fmt.Sprintf("arg0='%s'", r.Arg0))
	}
	return strings.Join(parts, ",")
}

func matchTypeName(t byte) string {
	switch t {
	case TypeMethodCall:
		return "method_call"
	case TypeMethodReturn:
		return "method_return"
	case TypeError:
		return "error"
	case TypeSignal:
		return "signal"
	default:
		return "invalid"
	}
}

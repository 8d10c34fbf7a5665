package dbus

import "testing"

func TestMatchRuleString(t *testing.T) {
	tt := []struct {
		rule *MatchRule
		want string
	}{
		{&MatchRule{}, ""},
		{&MatchRule{Type: TypeSignal}, "type='signal'"},
		{
			&MatchRule{
				Type:      TypeSignal,
				Sender:    "org.freedesktop.DBus",
				Path:      "/org/freedesktop/DBus",
				Interface: "org.freedesktop.DBus",
				Member:    "NameOwnerChanged",
			},
			"type='signal',sender='org.freedesktop.DBus',path='/org/freedesktop/DBus'," +
				"interface='org.freedesktop.DBus',member='NameOwnerChanged'",
		},
		{&MatchRule{Member: "NameOwnerChanged", Arg0: "com.example.Foo"}, "member='NameOwnerChanged',arg0='com.example.Foo'"},
	}

	for _, tc := range tt {
		if got := tc.rule.String(); got != tc.want {
			t.Errorf("got %q want %q", got, tc.want)
		}
	}
}

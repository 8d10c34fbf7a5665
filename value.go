package dbus

// ObjectPath is a slash-delimited ASCII identifier, e.g.
// "/org/freedesktop/DBus".
type ObjectPath string

// Signature is a value of D-Bus's own SIGNATURE type: an ASCII string
// over the type alphabet, at most 255 bytes, describing zero or more
// complete types (e.g. a message body signature such as "su").
type Signature string

// Struct is the decoded/encoded representation of a STRUCT value: one
// entry per field, in signature order.
type Struct []interface{}

// Variant is a self-describing value: its own signature travels with
// it on the wire. Decoding a 'v' code always yields a Variant; the
// marshaller accepts either a Variant or a bare (signature, value)
// pair — see encode.go's variant case.
type Variant struct {
	Signature string
	Value     interface{}
}

// Dict is the decoded representation of an array of dict entries
// (e.g. "a{sv}"): an ordered mapping. Re-inserting an existing key
// overwrites its value in place without disturbing insertion order —
// this is the "last write wins" behavior spec.md's Unmarshaller
// section requires for arrays of dict entries.
type Dict struct {
	keys   []interface{}
	index  map[interface{}]int
	values []interface{}
}

// NewDict returns an empty, ready-to-use Dict.
func NewDict() *Dict {
	return &Dict{index: make(map[interface{}]int)}
}

// Set inserts or overwrites the value for key.
func (d *Dict) Set(key, value interface{}) {
	if i, ok := d.index[key]; ok {
		d.values[i] = value
		return
	}
	d.index[key] = len(d.keys)
	d.keys = append(d.keys, key)
	d.values = append(d.values, value)
}

// Get returns the value for key and whether it was present.
func (d *Dict) Get(key interface{}) (interface{}, bool) {
	i, ok := d.index[key]
	if !ok {
		return nil, false
	}
	return d.values[i], true
}

// Len returns the number of entries.
func (d *Dict) Len() int {
	return len(d.keys)
}

// Each calls f for every entry in insertion order.
func (d *Dict) Each(f func(key, value interface{})) {
	for i, k := range d.keys {
		f(k, d.values[i])
	}
}

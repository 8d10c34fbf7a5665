package dbus

import "fmt"

// Type codes from the signature alphabet (spec §3). These are the
// same single-byte codes the wire format uses for header field
// signatures and variant tags.
const (
	codeByte       byte = 'y'
	codeBoolean    byte = 'b'
	codeInt16      byte = 'n'
	codeUint16     byte = 'q'
	codeInt32      byte = 'i'
	codeUint32     byte = 'u'
	codeInt64      byte = 'x'
	codeUint64     byte = 't'
	codeDouble     byte = 'd'
	codeString     byte = 's'
	codeObjectPath byte = 'o'
	codeSignature  byte = 'g'
	codeUnixFD     byte = 'h'
	codeArray      byte = 'a'
	codeStructO    byte = '('
	codeStructC    byte = ')'
	codeDictO      byte = '{'
	codeDictC      byte = '}'
	codeVariant    byte = 'v'
)

// alignment returns the alignment, in bytes, required before a value
// of the given type code (spec §3's Align column). Structs and dict
// entries align to 8 regardless of their contents.
func alignment(code byte) int {
	switch code {
	case codeByte, codeSignature:
		return 1
	case codeInt16, codeUint16:
		return 2
	case codeBoolean, codeInt32, codeUint32, codeString, codeObjectPath,
		codeUnixFD, codeArray:
		return 4
	case codeInt64, codeUint64, codeDouble, codeStructO, codeDictO:
		return 8
	case codeVariant:
		return 1
	default:
		return 1
	}
}

// typeNode is one node of a type plan: a tree produced by walking a
// signature string once via recursive descent, so that encoders and
// decoders never need to snapshot/restore a mutable signature stack
// (the bug the reference implementation's stack-based approach is
// prone to — see spec.md's Design Notes §9).
type typeNode struct {
	Code byte
	// Elem is set when Code == 'a': the element type.
	Elem *typeNode
	// Fields is set when Code == '(': the member types in order.
	Fields []*typeNode
	// Key/Value are set when Code == '{': the dict-entry's single
	// complete key and value types.
	Key, Value *typeNode
}

// String reconstructs the signature fragment this node was parsed
// from.
func (n *typeNode) String() string {
	switch n.Code {
	case codeArray:
		return "a" + n.Elem.String()
	case codeStructO:
		s := "("
		for _, f := range n.Fields {
			s += f.String()
		}
		return s + ")"
	case codeDictO:
		return "{" + n.Key.String() + n.Value.String() + "}"
	default:
		return string(n.Code)
	}
}

type sigCursor struct {
	s   string
	pos int
}

func (c *sigCursor) peek() (byte, bool) {
	if c.pos >= len(c.s) {
		return 0, false
	}
	return c.s[c.pos], true
}

func (c *sigCursor) next() (byte, bool) {
	b, ok := c.peek()
	if ok {
		c.pos++
	}
	return b, ok
}

// parseSignature parses an entire signature string into a sequence of
// complete type plans, one per top-level type.
func parseSignature(sig string) ([]*typeNode, error) {
	c := &sigCursor{s: sig}
	var nodes []*typeNode
	for c.pos < len(c.s) {
		n, err := parseType(c)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// parseOneType parses sig as exactly one complete type and fails if
// anything is left over after it. Used for variant contents, whose
// signature must describe a single complete type.
func parseOneType(sig string) (*typeNode, error) {
	c := &sigCursor{s: sig}
	n, err := parseType(c)
	if err != nil {
		return nil, err
	}
	if c.pos != len(c.s) {
		return nil, fmt.Errorf("dbus: signature %q is not a single complete type", sig)
	}
	return n, nil
}

func parseType(c *sigCursor) (*typeNode, error) {
	code, ok := c.next()
	if !ok {
		return nil, &ProtocolError{Reason: "signature ended mid-type"}
	}
	switch code {
	case codeByte, codeBoolean, codeInt16, codeUint16, codeInt32, codeUint32,
		codeInt64, codeUint64, codeDouble, codeString, codeObjectPath,
		codeSignature, codeUnixFD, codeVariant:
		return &typeNode{Code: code}, nil
	case codeArray:
		elem, err := parseArrayElem(c)
		if err != nil {
			return nil, fmt.Errorf("dbus: array signature: %w", err)
		}
		return &typeNode{Code: codeArray, Elem: elem}, nil
	case codeStructO:
		var fields []*typeNode
		for {
			b, ok := c.peek()
			if !ok {
				return nil, &ProtocolError{Reason: "unterminated struct signature"}
			}
			if b == codeStructC {
				c.pos++
				break
			}
			f, err := parseType(c)
			if err != nil {
				return nil, fmt.Errorf("dbus: struct signature: %w", err)
			}
			fields = append(fields, f)
		}
		if len(fields) == 0 {
			return nil, &ProtocolError{Reason: "empty struct signature"}
		}
		return &typeNode{Code: codeStructO, Fields: fields}, nil
	case codeDictC:
		// Only reachable as a stray terminator; dict entries are
		// only legal as array elements and are parsed by
		// parseArrayElem from the 'a' case above.
		return nil, &ProtocolError{Reason: "unexpected '}' in signature"}
	default:
		return nil, &ProtocolError{Reason: fmt.Sprintf("unknown type code %q", code)}
	}
}

// parseArrayElem parses the element type of an array, special-casing
// dict entries (legal only here, per spec §3).
func parseArrayElem(c *sigCursor) (*typeNode, error) {
	code, ok := c.peek()
	if !ok {
		return nil, &ProtocolError{Reason: "array signature ended mid-type"}
	}
	if code != codeDictO {
		return parseType(c)
	}
	c.pos++
	key, err := parseType(c)
	if err != nil {
		return nil, fmt.Errorf("dbus: dict entry key: %w", err)
	}
	if key.Code == codeArray || key.Code == codeStructO || key.Code == codeDictO || key.Code == codeVariant {
		return nil, &ProtocolError{Reason: "dict entry key must be a basic type"}
	}
	val, err := parseType(c)
	if err != nil {
		return nil, fmt.Errorf("dbus: dict entry value: %w", err)
	}
	b, ok := c.next()
	if !ok || b != codeDictC {
		return nil, &ProtocolError{Reason: "unterminated dict entry signature"}
	}
	return &typeNode{Code: codeDictO, Key: key, Value: val}, nil
}

// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

// Package value implements dynamic SCALE values which are encoded and
// decoded against the type registry of runtime metadata.
package value

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

var (
	ErrTypeMismatch = errors.New("value does not match type")
	ErrOutOfRange   = errors.New("integer out of range")
	ErrTooDeep      = errors.New("type nesting too deep")
	ErrInvalidChar  = errors.New("invalid char")
	ErrNotFound     = errors.New("field not found")
)

// Kind is the kind of a dynamic value.
type Kind uint8

const (
	KindBool Kind = iota
	KindChar
	KindString
	KindUint
	KindInt
	KindBytes
	KindSequence
	KindComposite
	KindVariant
	KindBitSequence
	KindRaw
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindChar:
		return "char"
	case KindString:
		return "string"
	case KindUint:
		return "uint"
	case KindInt:
		return "int"
	case KindBytes:
		return "bytes"
	case KindSequence:
		return "sequence"
	case KindComposite:
		return "composite"
	case KindVariant:
		return "variant"
	case KindBitSequence:
		return "bitsequence"
	case KindRaw:
		return "raw"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Field is a field of a composite or variant value. Name is empty for
// tuple and tuple struct fields.
type Field struct {
	Name  string
	Value Value
}

// Value is a dynamic SCALE value. Only the members matching Kind are set.
// Values are immutable once built.
type Value struct {
	Kind Kind

	bool    bool
	char    rune
	str     string
	integer *big.Int
	bytes   []byte
	items   []Value
	fields  []Field
	name    string
	index   uint8
	bits    []bool
}

// Bool returns a bool value.
func Bool(b bool) Value { return Value{Kind: KindBool, bool: b} }

// Char returns a char value.
func Char(r rune) Value { return Value{Kind: KindChar, char: r} }

// String returns a string value.
func String(s string) Value { return Value{Kind: KindString, str: s} }

// Uint returns an unsigned integer value.
func Uint(u uint64) Value {
	return Value{Kind: KindUint, integer: new(big.Int).SetUint64(u)}
}

// BigUint returns an unsigned integer value. It panics if i is negative.
func BigUint(i *big.Int) Value {
	if i.Sign() < 0 {
		panic(fmt.Sprintf("negative unsigned value %s", i))
	}
	return Value{Kind: KindUint, integer: new(big.Int).Set(i)}
}

// Int returns a signed integer value.
func Int(i int64) Value {
	return Value{Kind: KindInt, integer: big.NewInt(i)}
}

// BigInt returns a signed integer value.
func BigInt(i *big.Int) Value {
	return Value{Kind: KindInt, integer: new(big.Int).Set(i)}
}

// Bytes returns a byte string value, matching u8 sequences and arrays.
func Bytes(b []byte) Value {
	return Value{Kind: KindBytes, bytes: append([]byte{}, b...)}
}

// Sequence returns a sequence value.
func Sequence(items ...Value) Value {
	return Value{Kind: KindSequence, items: append([]Value{}, items...)}
}

// Composite returns a composite value with the given fields.
func Composite(fields ...Field) Value {
	return Value{Kind: KindComposite, fields: append([]Field{}, fields...)}
}

// Tuple returns a composite value with unnamed fields.
func Tuple(values ...Value) Value {
	fields := make([]Field, len(values))
	for i, v := range values {
		fields[i] = Field{Value: v}
	}
	return Value{Kind: KindComposite, fields: fields}
}

// Named returns a named field.
func Named(name string, v Value) Field {
	return Field{Name: name, Value: v}
}

// Variant returns an enum value selected by variant name.
func Variant(name string, fields ...Field) Value {
	return Value{Kind: KindVariant, name: name, fields: append([]Field{}, fields...)}
}

// BitSequence returns a bit vector value.
func BitSequence(bits ...bool) Value {
	return Value{Kind: KindBitSequence, bits: append([]bool{}, bits...)}
}

// Raw returns a pre-encoded value. It is checked against the target
// type when encoded.
func Raw(encoded []byte) Value {
	return Value{Kind: KindRaw, bytes: append([]byte{}, encoded...)}
}

// AsBool returns the bool of a bool value.
func (v Value) AsBool() (bool, error) {
	if v.Kind != KindBool {
		return false, fmt.Errorf("%w: %s is not a bool", ErrTypeMismatch, v.Kind)
	}
	return v.bool, nil
}

// AsString returns the string of a string value.
func (v Value) AsString() (string, error) {
	if v.Kind != KindString {
		return "", fmt.Errorf("%w: %s is not a string", ErrTypeMismatch, v.Kind)
	}
	return v.str, nil
}

// AsBigInt returns a copy of the integer of an int or uint value.
func (v Value) AsBigInt() (*big.Int, error) {
	if v.Kind != KindUint && v.Kind != KindInt {
		return nil, fmt.Errorf("%w: %s is not an integer", ErrTypeMismatch, v.Kind)
	}
	return new(big.Int).Set(v.integer), nil
}

// AsUint64 returns the integer of an int or uint value fitting in a uint64.
func (v Value) AsUint64() (uint64, error) {
	i, err := v.AsBigInt()
	if err != nil {
		return 0, err
	}
	if !i.IsUint64() {
		return 0, fmt.Errorf("%w: %s does not fit in uint64", ErrOutOfRange, i)
	}
	return i.Uint64(), nil
}

// AsBytes returns the bytes of a bytes or raw value. A newtype composite
// wrapping bytes, such as an account id, is unwrapped.
func (v Value) AsBytes() ([]byte, error) {
	switch {
	case v.Kind == KindBytes, v.Kind == KindRaw:
		return append([]byte{}, v.bytes...), nil
	case v.Kind == KindComposite && len(v.fields) == 1:
		return v.fields[0].Value.AsBytes()
	}
	return nil, fmt.Errorf("%w: %s is not bytes", ErrTypeMismatch, v.Kind)
}

// Items returns the items of a sequence value.
func (v Value) Items() []Value {
	return append([]Value(nil), v.items...)
}

// Fields returns the fields of a composite or variant value.
func (v Value) Fields() []Field {
	return append([]Field(nil), v.fields...)
}

// Field returns the field with the given name of a composite or variant value.
func (v Value) Field(name string) (Value, error) {
	for _, f := range v.fields {
		if f.Name == name {
			return f.Value, nil
		}
	}
	return Value{}, fmt.Errorf("%w: %q", ErrNotFound, name)
}

// VariantName returns the name of a variant value.
func (v Value) VariantName() string { return v.name }

// VariantIndex returns the index of a decoded variant value.
func (v Value) VariantIndex() uint8 { return v.index }

// Bits returns the bits of a bit sequence value.
func (v Value) Bits() []bool {
	return append([]bool(nil), v.bits...)
}

// Equal returns true if both values have the same kind and contents.
// The index of variants is ignored when either side has no name.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}

	switch v.Kind {
	case KindBool:
		return v.bool == other.bool
	case KindChar:
		return v.char == other.char
	case KindString:
		return v.str == other.str
	case KindUint, KindInt:
		return v.integer.Cmp(other.integer) == 0
	case KindBytes, KindRaw:
		return bytes.Equal(v.bytes, other.bytes)
	case KindSequence:
		if len(v.items) != len(other.items) {
			return false
		}
		for i := range v.items {
			if !v.items[i].Equal(other.items[i]) {
				return false
			}
		}
		return true
	case KindVariant:
		if v.name != other.name {
			return false
		}
		return fieldsEqual(v.fields, other.fields)
	case KindComposite:
		return fieldsEqual(v.fields, other.fields)
	case KindBitSequence:
		if len(v.bits) != len(other.bits) {
			return false
		}
		for i := range v.bits {
			if v.bits[i] != other.bits[i] {
				return false
			}
		}
		return true
	}
	return false
}

func fieldsEqual(a, b []Field) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name || !a[i].Value.Equal(b[i].Value) {
			return false
		}
	}
	return true
}

// String returns a human readable representation of the value.
func (v Value) String() string {
	var sb strings.Builder
	v.write(&sb)
	return sb.String()
}

func (v Value) write(sb *strings.Builder) {
	switch v.Kind {
	case KindBool:
		fmt.Fprint(sb, v.bool)
	case KindChar:
		fmt.Fprintf(sb, "%q", v.char)
	case KindString:
		fmt.Fprintf(sb, "%q", v.str)
	case KindUint, KindInt:
		sb.WriteString(v.integer.String())
	case KindBytes:
		fmt.Fprintf(sb, "0x%x", v.bytes)
	case KindRaw:
		fmt.Fprintf(sb, "raw(0x%x)", v.bytes)
	case KindSequence:
		sb.WriteByte('[')
		for i, item := range v.items {
			if i > 0 {
				sb.WriteString(", ")
			}
			item.write(sb)
		}
		sb.WriteByte(']')
	case KindComposite:
		writeFields(sb, v.fields)
	case KindVariant:
		sb.WriteString(v.name)
		if len(v.fields) > 0 {
			writeFields(sb, v.fields)
		}
	case KindBitSequence:
		sb.WriteString("0b")
		for _, bit := range v.bits {
			if bit {
				sb.WriteByte('1')
			} else {
				sb.WriteByte('0')
			}
		}
	}
}

func writeFields(sb *strings.Builder, fields []Field) {
	named := len(fields) > 0 && fields[0].Name != ""
	open, closing := "(", ")"
	if named {
		open, closing = "{", "}"
	}
	sb.WriteString(open)
	for i, f := range fields {
		if i > 0 {
			sb.WriteString(", ")
		}
		if named {
			sb.WriteString(f.Name)
			sb.WriteString(": ")
		}
		f.Value.write(sb)
	}
	sb.WriteString(closing)
}

// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package scale

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/big"
	"reflect"
)

// Marshaler is implemented by types encoding themselves.
type Marshaler interface {
	MarshalSCALE() ([]byte, error)
}

var (
	bigIntType    = reflect.TypeOf(big.Int{})
	uint128Type   = reflect.TypeOf(Uint128{})
	marshalerType = reflect.TypeOf((*Marshaler)(nil)).Elem()
)

// Marshal takes in an interface{} and attempts to marshal into []byte
func Marshal(v interface{}) (b []byte, err error) {
	es := encodeState{
		fieldScaleIndicesCache: cache,
	}
	err = es.marshal(reflect.ValueOf(v), false)
	if err != nil {
		return nil, err
	}
	return es.Bytes(), nil
}

// Encoder writes SCALE encoded primitives to an in memory buffer.
type Encoder struct {
	bytes.Buffer
}

// NewEncoder returns an empty Encoder.
func NewEncoder() *Encoder {
	return &Encoder{}
}

// PutBool writes a bool as a single byte.
func (e *Encoder) PutBool(b bool) {
	if b {
		_ = e.WriteByte(1)
		return
	}
	_ = e.WriteByte(0)
}

// PutUint16 writes a little endian uint16.
func (e *Encoder) PutUint16(v uint16) {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	_, _ = e.Write(buf[:])
}

// PutUint32 writes a little endian uint32.
func (e *Encoder) PutUint32(v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, _ = e.Write(buf[:])
}

// PutUint64 writes a little endian uint64.
func (e *Encoder) PutUint64(v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, _ = e.Write(buf[:])
}

// PutUint128 writes the 16 little endian bytes of u.
func (e *Encoder) PutUint128(u Uint128) {
	e.PutUint64(u.Lower)
	e.PutUint64(u.Upper)
}

// PutCompactUint64 writes v as a compact integer.
func (e *Encoder) PutCompactUint64(v uint64) {
	_, _ = e.Write(EncodeCompactUint64(v))
}

// PutCompact writes i as a compact integer.
func (e *Encoder) PutCompact(i *big.Int) error {
	b, err := EncodeCompact(i)
	if err != nil {
		return err
	}
	_, _ = e.Write(b)
	return nil
}

// PutBytes writes the compact length of b followed by b.
func (e *Encoder) PutBytes(b []byte) {
	e.PutCompactUint64(uint64(len(b)))
	_, _ = e.Write(b)
}

// PutString writes s as compact length prefixed UTF-8 bytes.
func (e *Encoder) PutString(s string) {
	e.PutBytes([]byte(s))
}

type encodeState struct {
	Encoder
	*fieldScaleIndicesCache
}

func (es *encodeState) marshal(v reflect.Value, compact bool) (err error) {
	if !v.IsValid() {
		return fmt.Errorf("%w: invalid value", ErrUnsupportedType)
	}

	if v.Type().Implements(marshalerType) && (v.Kind() != reflect.Ptr || !v.IsNil()) {
		b, err := v.Interface().(Marshaler).MarshalSCALE()
		if err != nil {
			return err
		}
		_, _ = es.Write(b)
		return nil
	}

	switch v.Kind() {
	case reflect.Bool:
		es.PutBool(v.Bool())
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uint:
		if compact {
			es.PutCompactUint64(v.Uint())
			return nil
		}
		es.encodeFixedWidthUint(v.Kind(), v.Uint())
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64, reflect.Int:
		if compact {
			return fmt.Errorf("%w: compact signed integer %s", ErrUnsupportedType, v.Type())
		}
		es.encodeFixedWidthUint(v.Kind(), uint64(v.Int()))
	case reflect.String:
		es.PutString(v.String())
	case reflect.Ptr:
		return es.encodePointer(v, compact)
	case reflect.Struct:
		return es.encodeStruct(v, compact)
	case reflect.Array:
		return es.encodeArray(v)
	case reflect.Slice:
		return es.encodeSlice(v)
	case reflect.Interface:
		if v.IsNil() {
			return fmt.Errorf("%w: nil interface", ErrUnsupportedType)
		}
		return es.marshal(v.Elem(), compact)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedType, v.Type())
	}
	return nil
}

// encodePointer encodes *big.Int and *Uint128 as values, any other pointer
// as an Option: nil -> [0], otherwise [1] ++ encode(*v)
func (es *encodeState) encodePointer(v reflect.Value, compact bool) error {
	switch v.Type().Elem() {
	case bigIntType:
		if v.IsNil() {
			return fmt.Errorf("%w: nil *big.Int", ErrUnsupportedType)
		}
		return es.PutCompact(v.Interface().(*big.Int))
	case uint128Type:
		if v.IsNil() {
			return fmt.Errorf("%w: nil *Uint128", ErrUnsupportedType)
		}
		return es.encodeStruct(v.Elem(), compact)
	}

	if v.IsNil() {
		_ = es.WriteByte(0)
		return nil
	}
	_ = es.WriteByte(1)
	return es.marshal(v.Elem(), compact)
}

func (es *encodeState) encodeFixedWidthUint(kind reflect.Kind, u uint64) {
	switch kind {
	case reflect.Uint8, reflect.Int8:
		_ = es.WriteByte(byte(u))
	case reflect.Uint16, reflect.Int16:
		es.PutUint16(uint16(u))
	case reflect.Uint32, reflect.Int32:
		es.PutUint32(uint32(u))
	default:
		es.PutUint64(u)
	}
}

// encodeStruct writes each of the struct fields encoded as their respective types
func (es *encodeState) encodeStruct(v reflect.Value, compact bool) error {
	switch v.Type() {
	case uint128Type:
		u := v.Interface().(Uint128)
		if compact {
			return es.PutCompact(u.BigInt())
		}
		es.PutUint128(u)
		return nil
	case bigIntType:
		i := v.Interface().(big.Int)
		return es.PutCompact(&i)
	}

	indices, err := es.fieldScaleIndices(v.Type())
	if err != nil {
		return err
	}
	for _, i := range indices {
		err = es.marshal(v.Field(i.fieldIndex), i.compact)
		if err != nil {
			return fmt.Errorf("field %s: %w", v.Type().Field(i.fieldIndex).Name, err)
		}
	}
	return nil
}

// encodeArray encodes each element of a fixed size array without a length prefix
func (es *encodeState) encodeArray(v reflect.Value) error {
	if v.Type().Elem().Kind() == reflect.Uint8 {
		for i := 0; i < v.Len(); i++ {
			_ = es.WriteByte(byte(v.Index(i).Uint()))
		}
		return nil
	}

	for i := 0; i < v.Len(); i++ {
		err := es.marshal(v.Index(i), false)
		if err != nil {
			return err
		}
	}
	return nil
}

// encodeSlice writes the compact length of the slice followed by each element
func (es *encodeState) encodeSlice(v reflect.Value) error {
	if v.Type().Elem().Kind() == reflect.Uint8 {
		es.PutBytes(v.Bytes())
		return nil
	}

	es.PutCompactUint64(uint64(v.Len()))
	for i := 0; i < v.Len(); i++ {
		err := es.marshal(v.Index(i), false)
		if err != nil {
			return err
		}
	}
	return nil
}

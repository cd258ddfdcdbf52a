// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package scale

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"reflect"
)

// Unmarshaler is implemented by types decoding themselves.
type Unmarshaler interface {
	UnmarshalSCALE(d *Decoder) error
}

var unmarshalerType = reflect.TypeOf((*Unmarshaler)(nil)).Elem()

// Unmarshal takes data and a destination pointer to unmarshal the data to.
// All of data must be consumed.
func Unmarshal(data []byte, dst interface{}) (err error) {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("%w: unsupported dst: %T", ErrUnsupportedType, dst)
	}

	ds := decodeState{
		Decoder:                NewDecoder(data),
		fieldScaleIndicesCache: cache,
	}
	err = ds.unmarshal(rv.Elem(), false)
	if err != nil {
		return err
	}

	if ds.Len() != 0 {
		return fmt.Errorf("%w: %d bytes", ErrTrailingBytes, ds.Len())
	}
	return nil
}

// Decoder reads SCALE encoded primitives from a byte slice.
type Decoder struct {
	data   []byte
	offset int
}

// NewDecoder returns a Decoder reading from data.
func NewDecoder(data []byte) *Decoder {
	return &Decoder{data: data}
}

// Len returns the number of unread bytes.
func (d *Decoder) Len() int {
	return len(d.data) - d.offset
}

// Offset returns the number of bytes read so far.
func (d *Decoder) Offset() int {
	return d.offset
}

// Remaining returns the unread bytes without consuming them.
func (d *Decoder) Remaining() []byte {
	return d.data[d.offset:]
}

// ReadByte reads a single byte.
func (d *Decoder) ReadByte() (byte, error) {
	if d.Len() < 1 {
		return 0, fmt.Errorf("%w: reading 1 byte at offset %d", ErrUnexpectedEOF, d.offset)
	}
	b := d.data[d.offset]
	d.offset++
	return b, nil
}

// ReadN reads exactly n bytes. The returned slice is a copy.
func (d *Decoder) ReadN(n int) ([]byte, error) {
	if n < 0 || d.Len() < n {
		return nil, fmt.Errorf("%w: reading %d bytes at offset %d, %d left",
			ErrUnexpectedEOF, n, d.offset, d.Len())
	}
	out := make([]byte, n)
	copy(out, d.data[d.offset:d.offset+n])
	d.offset += n
	return out, nil
}

// ReadBool reads a single byte bool, rejecting anything but 0 and 1.
func (d *Decoder) ReadBool() (bool, error) {
	b, err := d.ReadByte()
	if err != nil {
		return false, err
	}
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return false, fmt.Errorf("%w: 0x%02x", ErrInvalidBool, b)
}

// ReadOption reads the Option discriminant byte and returns true for Some.
func (d *Decoder) ReadOption() (bool, error) {
	b, err := d.ReadByte()
	if err != nil {
		return false, err
	}
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return false, fmt.Errorf("%w: 0x%02x", ErrInvalidOption, b)
}

// ReadUint16 reads a little endian uint16.
func (d *Decoder) ReadUint16() (uint16, error) {
	b, err := d.ReadN(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// ReadUint32 reads a little endian uint32.
func (d *Decoder) ReadUint32() (uint32, error) {
	b, err := d.ReadN(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadUint64 reads a little endian uint64.
func (d *Decoder) ReadUint64() (uint64, error) {
	b, err := d.ReadN(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// ReadUint128 reads 16 little endian bytes.
func (d *Decoder) ReadUint128() (Uint128, error) {
	b, err := d.ReadN(16)
	if err != nil {
		return Uint128{}, err
	}
	return NewUint128FromLittleEndian(b)
}

// ReadCompact reads a compact integer of arbitrary size.
func (d *Decoder) ReadCompact() (*big.Int, error) {
	return d.readCompact()
}

// ReadCompactUint64 reads a compact integer which must fit in a uint64.
func (d *Decoder) ReadCompactUint64() (uint64, error) {
	v, err := d.readCompact()
	if err != nil {
		return 0, err
	}
	if !v.IsUint64() {
		return 0, fmt.Errorf("%w: %s does not fit in uint64", ErrCompactOverflow, v)
	}
	return v.Uint64(), nil
}

// ReadLength reads a compact collection length. Since every element
// takes at least minElemSize bytes, lengths larger than the remaining
// input allows are rejected as truncated. Zero sized elements are capped
// at MaxZeroSizedLength.
func (d *Decoder) ReadLength(minElemSize int) (int, error) {
	v, err := d.ReadCompactUint64()
	if err != nil {
		return 0, err
	}

	const maxLength = 1 << 31
	switch {
	case minElemSize > 0 && v > uint64(d.Len()/minElemSize):
		return 0, &LengthError{Length: v, Remaining: d.Len(), Truncated: true}
	case v > maxLength, minElemSize <= 0 && v > MaxZeroSizedLength:
		return 0, &LengthError{Length: v, Remaining: d.Len()}
	}
	return int(v), nil
}

// ReadBytes reads a compact length prefixed byte vector.
func (d *Decoder) ReadBytes() ([]byte, error) {
	n, err := d.ReadLength(1)
	if err != nil {
		return nil, err
	}
	return d.ReadN(n)
}

// ReadString reads a compact length prefixed UTF-8 string.
func (d *Decoder) ReadString() (string, error) {
	b, err := d.ReadBytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

type decodeState struct {
	*Decoder
	*fieldScaleIndicesCache
}

func (ds *decodeState) unmarshal(dst reflect.Value, compact bool) (err error) {
	if dst.CanAddr() && dst.Addr().Type().Implements(unmarshalerType) {
		return dst.Addr().Interface().(Unmarshaler).UnmarshalSCALE(ds.Decoder)
	}

	switch dst.Kind() {
	case reflect.Bool:
		b, err := ds.ReadBool()
		if err != nil {
			return err
		}
		dst.SetBool(b)
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uint:
		var u uint64
		if compact {
			u, err = ds.ReadCompactUint64()
			if err == nil && dst.OverflowUint(u) {
				err = fmt.Errorf("%w: %d into %s", ErrCompactOverflow, u, dst.Type())
			}
		} else {
			u, err = ds.decodeFixedWidthUint(dst.Kind())
		}
		if err != nil {
			return err
		}
		dst.SetUint(u)
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64, reflect.Int:
		if compact {
			return fmt.Errorf("%w: compact signed integer %s", ErrUnsupportedType, dst.Type())
		}
		u, err := ds.decodeFixedWidthUint(dst.Kind())
		if err != nil {
			return err
		}
		dst.SetInt(signExtend(dst.Kind(), u))
	case reflect.String:
		s, err := ds.ReadString()
		if err != nil {
			return err
		}
		dst.SetString(s)
	case reflect.Ptr:
		return ds.decodePointer(dst, compact)
	case reflect.Struct:
		return ds.decodeStruct(dst, compact)
	case reflect.Array:
		return ds.decodeArray(dst)
	case reflect.Slice:
		return ds.decodeSlice(dst)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedType, dst.Type())
	}
	return nil
}

func (ds *decodeState) decodeFixedWidthUint(kind reflect.Kind) (uint64, error) {
	switch kind {
	case reflect.Uint8, reflect.Int8:
		b, err := ds.ReadByte()
		return uint64(b), err
	case reflect.Uint16, reflect.Int16:
		v, err := ds.ReadUint16()
		return uint64(v), err
	case reflect.Uint32, reflect.Int32:
		v, err := ds.ReadUint32()
		return uint64(v), err
	default:
		return ds.ReadUint64()
	}
}

func signExtend(kind reflect.Kind, u uint64) int64 {
	switch kind {
	case reflect.Int8:
		return int64(int8(u))
	case reflect.Int16:
		return int64(int16(u))
	case reflect.Int32:
		return int64(int32(u))
	default:
		return int64(u)
	}
}

func (ds *decodeState) decodePointer(dst reflect.Value, compact bool) error {
	elemType := dst.Type().Elem()
	switch elemType {
	case bigIntType:
		v, err := ds.ReadCompact()
		if err != nil {
			return err
		}
		dst.Set(reflect.ValueOf(v))
		return nil
	case uint128Type:
		elem := reflect.New(elemType)
		err := ds.decodeStruct(elem.Elem(), compact)
		if err != nil {
			return err
		}
		dst.Set(elem)
		return nil
	}

	some, err := ds.ReadOption()
	if err != nil {
		return err
	}
	if !some {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}

	elem := reflect.New(elemType)
	err = ds.unmarshal(elem.Elem(), compact)
	if err != nil {
		return err
	}
	dst.Set(elem)
	return nil
}

func (ds *decodeState) decodeStruct(dst reflect.Value, compact bool) error {
	switch dst.Type() {
	case uint128Type:
		var u Uint128
		var err error
		if compact {
			var v *big.Int
			v, err = ds.ReadCompact()
			if err == nil {
				u, err = NewUint128FromBigInt(v)
			}
		} else {
			u, err = ds.ReadUint128()
		}
		if err != nil {
			return err
		}
		dst.Set(reflect.ValueOf(u))
		return nil
	case bigIntType:
		v, err := ds.ReadCompact()
		if err != nil {
			return err
		}
		dst.Set(reflect.ValueOf(*v))
		return nil
	}

	indices, err := ds.fieldScaleIndices(dst.Type())
	if err != nil {
		return err
	}
	for _, i := range indices {
		err = ds.unmarshal(dst.Field(i.fieldIndex), i.compact)
		if err != nil {
			return fmt.Errorf("field %s: %w", dst.Type().Field(i.fieldIndex).Name, err)
		}
	}
	return nil
}

func (ds *decodeState) decodeArray(dst reflect.Value) error {
	for i := 0; i < dst.Len(); i++ {
		err := ds.unmarshal(dst.Index(i), false)
		if err != nil {
			return err
		}
	}
	return nil
}

func (ds *decodeState) decodeSlice(dst reflect.Value) error {
	if dst.Type().Elem().Kind() == reflect.Uint8 {
		b, err := ds.ReadBytes()
		if err != nil {
			return err
		}
		dst.SetBytes(b)
		return nil
	}

	minElemSize := 1
	if dst.Type().Elem().Size() == 0 {
		minElemSize = 0
	}
	n, err := ds.ReadLength(minElemSize)
	if err != nil {
		return err
	}
	s := reflect.MakeSlice(dst.Type(), n, n)
	for i := 0; i < n; i++ {
		err = ds.unmarshal(s.Index(i), false)
		if err != nil {
			return err
		}
	}
	dst.Set(s)
	return nil
}

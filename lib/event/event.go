// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package event

import (
	"errors"
	"fmt"

	"github.com/torus-network/torus-client-go/lib/common"
	"github.com/torus-network/torus-client-go/lib/metadata"
	"github.com/torus-network/torus-client-go/lib/value"
	"github.com/torus-network/torus-client-go/pkg/scale"
)

// ErrRecordType is returned when the System.Events storage value is not a
// sequence of event records.
var ErrRecordType = errors.New("unexpected event record type")

// Event is a decoded pallet event.
type Event struct {
	Pallet       string
	PalletIndex  uint8
	Name         string
	VariantIndex uint8
	Fields       []value.Field
}

// Field returns the value of a named field.
func (e Event) Field(name string) (value.Value, error) {
	for _, f := range e.Fields {
		if f.Name == name {
			return f.Value, nil
		}
	}
	return value.Value{}, fmt.Errorf("%w: %q in event %s.%s", value.ErrNotFound, name, e.Pallet, e.Name)
}

// Values returns the field values in declaration order.
func (e Event) Values() []value.Value {
	values := make([]value.Value, len(e.Fields))
	for i, f := range e.Fields {
		values[i] = f.Value
	}
	return values
}

func (e Event) String() string {
	s := e.Pallet + "." + e.Name
	if len(e.Fields) > 0 {
		s += value.Composite(e.Fields...).String()
	}
	return s
}

// Decoder decodes events of a descriptor. It is safe for concurrent use.
type Decoder struct {
	desc *metadata.Descriptor
}

// NewDecoder returns an event decoder for the descriptor.
func NewDecoder(desc *metadata.Descriptor) *Decoder {
	return &Decoder{desc: desc}
}

func (d *Decoder) lookup(palletIndex, variantIndex uint8) (*metadata.Pallet, *metadata.Variant, error) {
	unknown := &metadata.UnknownEventError{PalletIndex: palletIndex, VariantIndex: variantIndex}
	p, err := d.desc.PalletByIndex(palletIndex)
	if err != nil {
		return nil, nil, unknown
	}
	variant, err := d.desc.Event(p.Name, variantIndex)
	if err != nil {
		return nil, nil, unknown
	}
	return p, variant, nil
}

// Decode decodes the fields of the event with the given pallet and
// variant index from the start of b and returns the number of bytes
// read. A *metadata.UnknownEventError is returned when the metadata has
// no such event, which callers should treat as skippable.
func (d *Decoder) Decode(palletIndex, variantIndex uint8, b []byte) (Event, int, error) {
	dec := scale.NewDecoder(b)
	ev, err := d.decodeFields(palletIndex, variantIndex, dec)
	if err != nil {
		return Event{}, 0, err
	}
	return ev, dec.Offset(), nil
}

func (d *Decoder) decodeFields(palletIndex, variantIndex uint8, dec *scale.Decoder) (Event, error) {
	p, variant, err := d.lookup(palletIndex, variantIndex)
	if err != nil {
		return Event{}, err
	}

	ev := Event{
		Pallet:       p.Name,
		PalletIndex:  p.Index,
		Name:         variant.Name,
		VariantIndex: variant.Index,
		Fields:       make([]value.Field, len(variant.Fields)),
	}
	for i, f := range variant.Fields {
		v, err := value.Decode(d.desc.Registry(), f.Type, dec)
		if err != nil {
			return Event{}, fmt.Errorf("decoding event %s.%s field %d: %w", p.Name, variant.Name, i, err)
		}
		ev.Fields[i] = value.Field{Name: f.Name, Value: v}
	}
	return ev, nil
}

// EncodeFields encodes the field values of an event in declaration order,
// without the pallet and variant index.
func (d *Decoder) EncodeFields(pallet, name string, fields ...value.Value) ([]byte, error) {
	variant, err := d.desc.EventByName(pallet, name)
	if err != nil {
		return nil, err
	}
	if len(fields) != len(variant.Fields) {
		return nil, &metadata.ArityMismatchError{
			Kind:     "event",
			Pallet:   pallet,
			Name:     name,
			Expected: len(variant.Fields),
			Got:      len(fields),
		}
	}

	enc := scale.NewEncoder()
	for i, f := range variant.Fields {
		err = value.EncodeTo(enc, d.desc.Registry(), f.Type, fields[i])
		if err != nil {
			return nil, fmt.Errorf("encoding event %s.%s field %d: %w", pallet, name, i, err)
		}
	}
	return enc.Bytes(), nil
}

// Phase tells when an event was emitted within a block.
type Phase struct {
	// Name is ApplyExtrinsic, Finalization or Initialization.
	Name string
	// Extrinsic is the index of the extrinsic for ApplyExtrinsic.
	Extrinsic uint32
}

// Record is an entry of the System.Events storage value.
type Record struct {
	Phase  Phase
	Event  Event
	Topics []common.Hash
}

// DecodeRecords decodes the System.Events storage value. If an unknown
// event is met, the records before it are returned together with the
// *metadata.UnknownEventError, since the rest of the input can not be
// delimited.
func (d *Decoder) DecodeRecords(b []byte) ([]Record, error) {
	recordFields, err := d.recordFields()
	if err != nil {
		return nil, err
	}

	dec := scale.NewDecoder(b)
	n, err := dec.ReadLength(1)
	if err != nil {
		return nil, fmt.Errorf("decoding event record count: %w", err)
	}

	records := make([]Record, 0, n)
	for i := 0; i < n; i++ {
		record, err := d.decodeRecord(recordFields, dec)
		if err != nil {
			var unknown *metadata.UnknownEventError
			if errors.As(err, &unknown) {
				return records, err
			}
			return nil, fmt.Errorf("decoding event record %d: %w", i, err)
		}
		records = append(records, record)
	}

	if dec.Len() != 0 {
		return nil, fmt.Errorf("%w: %d bytes after event records", scale.ErrTrailingBytes, dec.Len())
	}
	return records, nil
}

func (d *Decoder) recordFields() ([]metadata.Field, error) {
	item, err := d.desc.StorageItem("System", "Events")
	if err != nil {
		return nil, err
	}
	registry := d.desc.Registry()
	seq, err := registry.Type(item.Value)
	if err != nil {
		return nil, err
	}
	if seq.Def.Kind != metadata.KindSequence {
		return nil, fmt.Errorf("%w: System.Events is a %s", ErrRecordType, seq.Def.Kind)
	}
	record, err := registry.Type(seq.Def.Elem)
	if err != nil {
		return nil, err
	}
	if record.Def.Kind != metadata.KindComposite {
		return nil, fmt.Errorf("%w: record is a %s", ErrRecordType, record.Def.Kind)
	}

	hasEvent := false
	for _, f := range record.Def.Fields {
		hasEvent = hasEvent || f.Name == "event"
	}
	if !hasEvent {
		return nil, fmt.Errorf("%w: record has no event field", ErrRecordType)
	}
	return record.Def.Fields, nil
}

func (d *Decoder) decodeRecord(fields []metadata.Field, dec *scale.Decoder) (Record, error) {
	var record Record
	registry := d.desc.Registry()
	for _, f := range fields {
		if f.Name == "event" {
			palletIndex, err := dec.ReadByte()
			if err != nil {
				return Record{}, err
			}
			variantIndex, err := dec.ReadByte()
			if err != nil {
				return Record{}, err
			}
			record.Event, err = d.decodeFields(palletIndex, variantIndex, dec)
			if err != nil {
				return Record{}, err
			}
			continue
		}

		v, err := value.Decode(registry, f.Type, dec)
		if err != nil {
			return Record{}, fmt.Errorf("field %s: %w", f.Name, err)
		}
		switch f.Name {
		case "phase":
			record.Phase, err = phaseFromValue(v)
		case "topics":
			record.Topics, err = topicsFromValue(v)
		}
		if err != nil {
			return Record{}, err
		}
	}
	return record, nil
}

func phaseFromValue(v value.Value) (Phase, error) {
	if v.Kind != value.KindVariant {
		return Phase{}, fmt.Errorf("%w: phase is a %s", ErrRecordType, v.Kind)
	}
	phase := Phase{Name: v.VariantName()}
	if fields := v.Fields(); len(fields) == 1 {
		index, err := fields[0].Value.AsUint64()
		if err != nil {
			return Phase{}, fmt.Errorf("phase %s: %w", phase.Name, err)
		}
		phase.Extrinsic = uint32(index)
	}
	return phase, nil
}

func topicsFromValue(v value.Value) ([]common.Hash, error) {
	items := v.Items()
	topics := make([]common.Hash, len(items))
	for i, item := range items {
		b, err := item.AsBytes()
		if err != nil {
			return nil, fmt.Errorf("topic %d: %w", i, err)
		}
		if len(b) != len(common.Hash{}) {
			return nil, fmt.Errorf("%w: topic %d has %d bytes", ErrRecordType, i, len(b))
		}
		topics[i] = common.NewHash(b)
	}
	return topics, nil
}

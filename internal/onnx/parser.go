package onnx

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

// ParseFile parses an ONNX model from file.
func ParseFile(path string) (*ModelProto, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return Parse(data)
}

// Parse parses an ONNX model from bytes.
func Parse(data []byte) (*ModelProto, error) {
	p := &parser{data: data}
	model := &ModelProto{}
	if err := p.readModelProto(model); err != nil {
		return nil, fmt.Errorf("failed to parse model: %w", err)
	}
	return model, nil
}

// parser implements a minimal protobuf wire format decoder.
type parser struct {
	data []byte
	pos  int
}

// Protobuf wire types.
const (
	wireVarint = 0 // int32, int64, bool, enum
	wire64Bit  = 1 // fixed64, double
	wireBytes  = 2 // string, bytes, embedded messages, packed repeated fields
	wire32Bit  = 5 // fixed32, float
)

func (p *parser) readModelProto(m *ModelProto) error {
	return p.readFields(func(fieldNum, wireType int) error {
		switch fieldNum {
		case 1: // ir_version
			return p.readVarintInto(&m.IRVersion)
		case 2: // producer_name
			return p.readStringInto(&m.ProducerName)
		case 3: // producer_version
			return p.readStringInto(&m.ProducerVersion)
		case 4: // domain
			return p.readStringInto(&m.Domain)
		case 5: // model_version
			return p.readVarintInto(&m.ModelVersion)
		case 7: // graph
			m.Graph = &GraphProto{}
			return p.readSub(func(sub *parser) error { return sub.readGraphProto(m.Graph) })
		case 8: // opset_import
			var opset OperatorSetID
			if err := p.readSub(func(sub *parser) error { return sub.readOperatorSetID(&opset) }); err != nil {
				return err
			}
			m.OpsetImport = append(m.OpsetImport, opset)
			return nil
		case 14: // metadata_props
			var entry StringStringEntry
			if err := p.readSub(func(sub *parser) error { return sub.readStringStringEntry(&entry) }); err != nil {
				return err
			}
			m.MetadataProps = append(m.MetadataProps, entry)
			return nil
		default:
			return p.skipField(wireType)
		}
	})
}

func (p *parser) readGraphProto(m *GraphProto) error {
	return p.readFields(func(fieldNum, wireType int) error {
		switch fieldNum {
		case 1: // node
			var node NodeProto
			if err := p.readSub(func(sub *parser) error { return sub.readNodeProto(&node) }); err != nil {
				return err
			}
			m.Nodes = append(m.Nodes, node)
			return nil
		case 2: // name
			return p.readStringInto(&m.Name)
		case 5: // initializer
			var tensor TensorProto
			if err := p.readSub(func(sub *parser) error { return sub.readTensorProto(&tensor) }); err != nil {
				return err
			}
			m.Initializers = append(m.Initializers, tensor)
			return nil
		case 11: // input
			var vi ValueInfoProto
			if err := p.readSub(func(sub *parser) error { return sub.readValueInfoProto(&vi) }); err != nil {
				return err
			}
			m.Inputs = append(m.Inputs, vi)
			return nil
		case 12: // output
			var vi ValueInfoProto
			if err := p.readSub(func(sub *parser) error { return sub.readValueInfoProto(&vi) }); err != nil {
				return err
			}
			m.Outputs = append(m.Outputs, vi)
			return nil
		default:
			return p.skipField(wireType)
		}
	})
}

func (p *parser) readNodeProto(m *NodeProto) error {
	return p.readFields(func(fieldNum, wireType int) error {
		switch fieldNum {
		case 1: // input
			data, err := p.readBytes()
			if err != nil {
				return err
			}
			m.Inputs = append(m.Inputs, string(data))
			return nil
		case 2: // output
			data, err := p.readBytes()
			if err != nil {
				return err
			}
			m.Outputs = append(m.Outputs, string(data))
			return nil
		case 3: // name
			return p.readStringInto(&m.Name)
		case 4: // op_type
			return p.readStringInto(&m.OpType)
		case 5: // attribute
			var attr AttributeProto
			if err := p.readSub(func(sub *parser) error { return sub.readAttributeProto(&attr) }); err != nil {
				return err
			}
			m.Attributes = append(m.Attributes, attr)
			return nil
		case 7: // domain
			return p.readStringInto(&m.Domain)
		default:
			return p.skipField(wireType)
		}
	})
}

func (p *parser) readTensorProto(m *TensorProto) error {
	return p.readFields(func(fieldNum, wireType int) error {
		switch fieldNum {
		case 1: // dims (repeated int64)
			if wireType == wireBytes {
				return p.readPackedVarints(&m.Dims)
			}
			v, err := p.readVarint()
			if err != nil {
				return err
			}
			m.Dims = append(m.Dims, v)
			return nil
		case 2: // data_type
			v, err := p.readVarint()
			if err != nil {
				return err
			}
			m.DataType = int32(v)
			return nil
		case 4: // float_data (packed)
			return p.readPackedFloats(&m.FloatData)
		case 8: // name
			return p.readStringInto(&m.Name)
		case 9: // raw_data
			data, err := p.readBytes()
			if err != nil {
				return err
			}
			m.RawData = data
			return nil
		default:
			return p.skipField(wireType)
		}
	})
}

func (p *parser) readValueInfoProto(m *ValueInfoProto) error {
	return p.readFields(func(fieldNum, wireType int) error {
		if fieldNum == 1 { // name
			return p.readStringInto(&m.Name)
		}
		return p.skipField(wireType)
	})
}

func (p *parser) readAttributeProto(m *AttributeProto) error {
	return p.readFields(func(fieldNum, wireType int) error {
		switch fieldNum {
		case 1: // name
			return p.readStringInto(&m.Name)
		case 2: // f (float)
			f, err := p.readFloat32()
			if err != nil {
				return err
			}
			m.F = f
			return nil
		case 3: // i (int)
			return p.readVarintInto(&m.I)
		case 4: // s (bytes)
			data, err := p.readBytes()
			if err != nil {
				return err
			}
			m.S = data
			return nil
		case 6: // floats (packed)
			return p.readPackedFloats(&m.Floats)
		case 7: // ints (packed)
			return p.readPackedVarints(&m.Ints)
		case 8: // strings
			data, err := p.readBytes()
			if err != nil {
				return err
			}
			m.Strings = append(m.Strings, data)
			return nil
		case 20: // type
			v, err := p.readVarint()
			if err != nil {
				return err
			}
			m.Type = int32(v)
			return nil
		default:
			return p.skipField(wireType)
		}
	})
}

func (p *parser) readOperatorSetID(m *OperatorSetID) error {
	return p.readFields(func(fieldNum, wireType int) error {
		switch fieldNum {
		case 1: // domain
			return p.readStringInto(&m.Domain)
		case 2: // version
			return p.readVarintInto(&m.Version)
		default:
			return p.skipField(wireType)
		}
	})
}

func (p *parser) readStringStringEntry(m *StringStringEntry) error {
	return p.readFields(func(fieldNum, wireType int) error {
		switch fieldNum {
		case 1: // key
			return p.readStringInto(&m.Key)
		case 2: // value
			return p.readStringInto(&m.Value)
		default:
			return p.skipField(wireType)
		}
	})
}

// readFields iterates the message's fields until the buffer is exhausted,
// dispatching each tag to the handler.
func (p *parser) readFields(handle func(fieldNum, wireType int) error) error {
	for p.pos < len(p.data) {
		fieldNum, wireType, err := p.readTag()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}
		if err := handle(fieldNum, wireType); err != nil {
			return err
		}
	}
	return nil
}

// readSub reads a length-delimited field and parses it as an embedded
// message with a fresh sub-parser.
func (p *parser) readSub(read func(sub *parser) error) error {
	data, err := p.readBytes()
	if err != nil {
		return err
	}
	return read(&parser{data: data})
}

// readTag reads a protobuf field tag.
func (p *parser) readTag() (fieldNum, wireType int, err error) {
	if p.pos >= len(p.data) {
		return 0, 0, io.EOF
	}
	tag, err := p.readVarint()
	if err != nil {
		return 0, 0, err
	}
	return int(tag >> 3), int(tag & 0x7), nil
}

// readVarint reads a varint-encoded int64.
func (p *parser) readVarint() (int64, error) {
	var result uint64
	var shift uint
	for {
		if p.pos >= len(p.data) {
			return 0, io.EOF
		}
		b := p.data[p.pos]
		p.pos++
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			break
		}
		shift += 7
		if shift >= 64 {
			return 0, errors.New("varint overflow")
		}
	}
	return int64(result), nil //nolint:gosec // G115: Protobuf varint fits in int64.
}

func (p *parser) readVarintInto(dst *int64) error {
	v, err := p.readVarint()
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

// readBytes reads a length-delimited byte slice.
func (p *parser) readBytes() ([]byte, error) {
	length, err := p.readVarint()
	if err != nil {
		return nil, err
	}
	if length < 0 {
		return nil, errors.New("negative length")
	}
	end := p.pos + int(length)
	if end > len(p.data) {
		return nil, io.ErrUnexpectedEOF
	}
	result := p.data[p.pos:end]
	p.pos = end
	return result, nil
}

func (p *parser) readStringInto(dst *string) error {
	data, err := p.readBytes()
	if err != nil {
		return err
	}
	*dst = string(data)
	return nil
}

// readFloat32 reads a 32-bit float.
func (p *parser) readFloat32() (float32, error) {
	if p.pos+4 > len(p.data) {
		return 0, io.ErrUnexpectedEOF
	}
	bits := binary.LittleEndian.Uint32(p.data[p.pos:])
	p.pos += 4
	return math.Float32frombits(bits), nil
}

// readPackedFloats appends a packed repeated float field to dst.
func (p *parser) readPackedFloats(dst *[]float32) error {
	data, err := p.readBytes()
	if err != nil {
		return err
	}
	for i := 0; i+4 <= len(data); i += 4 {
		bits := binary.LittleEndian.Uint32(data[i:])
		*dst = append(*dst, math.Float32frombits(bits))
	}
	return nil
}

// readPackedVarints appends a packed repeated varint field to dst.
func (p *parser) readPackedVarints(dst *[]int64) error {
	data, err := p.readBytes()
	if err != nil {
		return err
	}
	sub := &parser{data: data}
	for sub.pos < len(sub.data) {
		v, err := sub.readVarint()
		if err != nil {
			break
		}
		*dst = append(*dst, v)
	}
	return nil
}

// skipField skips a field based on wire type.
func (p *parser) skipField(wireType int) error {
	switch wireType {
	case wireVarint:
		_, err := p.readVarint()
		return err
	case wire64Bit:
		if p.pos+8 > len(p.data) {
			return io.ErrUnexpectedEOF
		}
		p.pos += 8
		return nil
	case wireBytes:
		_, err := p.readBytes()
		return err
	case wire32Bit:
		if p.pos+4 > len(p.data) {
			return io.ErrUnexpectedEOF
		}
		p.pos += 4
		return nil
	default:
		return fmt.Errorf("unknown wire type: %d", wireType)
	}
}

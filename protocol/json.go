package protocol

import (
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type packetJSON struct {
	Type    string      `json:"type"`
	Code    uint16      `json:"code"`
	Version uint8       `json:"version"`
	Flags   uint8       `json:"flags"`
	Fields  []fieldJSON `json:"fields"`
}

type fieldJSON struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Value any    `json:"value"`
}

// MarshalJSON renders the packet with its fields in wire order.
// Binary values are base64 encoded.
func (p *Packet) MarshalJSON() ([]byte, error) {
	out := packetJSON{
		Type:    p.header.Type.String(),
		Code:    uint16(p.header.Type),
		Version: p.header.Version,
		Flags:   uint8(p.header.Flags),
		Fields:  make([]fieldJSON, 0, len(p.fields)),
	}
	for _, f := range p.fields {
		out.Fields = append(out.Fields, fieldJSON{
			Name:  f.Name,
			Type:  f.Value.Type().String(),
			Value: jsonValue(f.Value),
		})
	}
	return json.Marshal(out)
}

func jsonValue(v Value) any {
	switch v := v.(type) {
	case String:
		return string(v)
	case Binary:
		return []byte(v)
	}
	return v
}

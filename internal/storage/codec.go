package storage

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/npratt/mindmesh/internal/mesh"
)

// codec converts a snapshot to and from document bytes.
type codec interface {
	encode(snap mesh.Snapshot) ([]byte, error)
	decode(data []byte) (mesh.Snapshot, error)
}

func codecFor(f Format) (codec, error) {
	switch f {
	case FormatJSON:
		return jsonCodec{}, nil
	case FormatYAML:
		return yamlCodec{}, nil
	case FormatTOML:
		return tomlCodec{}, nil
	default:
		return nil, fmt.Errorf("no file codec for %q: %w", f, ErrUnsupportedFormat)
	}
}

type jsonCodec struct{}

func (jsonCodec) encode(snap mesh.Snapshot) ([]byte, error) {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func (jsonCodec) decode(data []byte) (mesh.Snapshot, error) {
	var snap mesh.Snapshot
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&snap); err != nil {
		return mesh.Snapshot{}, err
	}
	return snap, nil
}

type yamlCodec struct{}

func (yamlCodec) encode(snap mesh.Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(snap); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (yamlCodec) decode(data []byte) (mesh.Snapshot, error) {
	var snap mesh.Snapshot
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&snap); err != nil {
		return mesh.Snapshot{}, err
	}
	return snap, nil
}

type tomlCodec struct{}

func (tomlCodec) encode(snap mesh.Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(snap); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (tomlCodec) decode(data []byte) (mesh.Snapshot, error) {
	var snap mesh.Snapshot
	md, err := toml.Decode(string(data), &snap)
	if err != nil {
		return mesh.Snapshot{}, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return mesh.Snapshot{}, fmt.Errorf("unknown keys %v", undecoded)
	}
	return snap, nil
}

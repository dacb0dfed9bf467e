package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"liquidationRouter/internal/model"
)

// ProtocolsFile is the on-disk list of protocols to register.
type ProtocolsFile struct {
	Protocols []model.ProtocolConfig `yaml:"protocols"`
}

// LoadProtocols reads a YAML protocols file. Unknown keys are rejected, and
// every entry must pass registration validation.
func LoadProtocols(path string) ([]model.ProtocolConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read protocols file: %w", err)
	}
	return ParseProtocols(data)
}

// ParseProtocols decodes protocols YAML.
func ParseProtocols(data []byte) ([]model.ProtocolConfig, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var file ProtocolsFile
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("protocols file is empty")
		}
		return nil, fmt.Errorf("decode protocols: %w", err)
	}
	if len(file.Protocols) == 0 {
		return nil, fmt.Errorf("protocols file lists no protocols")
	}

	seen := make(map[string]struct{}, len(file.Protocols))
	for i, cfg := range file.Protocols {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("protocol %d (%s): %w", i, cfg.Name, err)
		}
		key := cfg.Address.Hex()
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("protocol %s listed twice", key)
		}
		seen[key] = struct{}{}
	}
	return file.Protocols, nil
}

package loaders

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
)

// First word of every SPIR-V binary.
const spirvMagic = 0x07230203

type ShaderLoader struct{}

// Load reads a compiled SPIR-V binary and returns its bytes.
func (sl *ShaderLoader) Load(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) < 4 || len(data)%4 != 0 {
		return nil, fmt.Errorf("shader %s: not a SPIR-V binary", filepath.Base(path))
	}
	if binary.LittleEndian.Uint32(data[:4]) != spirvMagic {
		return nil, fmt.Errorf("shader %s: bad SPIR-V magic", filepath.Base(path))
	}
	return data, nil
}

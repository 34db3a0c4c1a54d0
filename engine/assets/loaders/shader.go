package loaders

import (
	"os"

	"github.com/spaghettifunk/anima-gfx/engine/core"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/metadata"
)

// Every SPIR-V module starts with this word.
const spirvMagic uint32 = 0x07230203

// ShaderLoader reads a compiled SPIR-V module into words.
type ShaderLoader struct{}

func (sl *ShaderLoader) Load(name, path string) (*metadata.Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, core.Errorf("shader_load", core.ErrUnknown, "%v", err)
	}
	code, err := BytesToBytecode(data)
	if err != nil {
		return nil, core.Errorf("shader_load", core.ErrUnknown, "`%s`: %v", name, err)
	}
	if len(code) == 0 || code[0] != spirvMagic {
		return nil, core.Errorf("shader_load", core.ErrUnknown, "`%s` is not a SPIR-V module", name)
	}
	return &metadata.Resource{
		Name:     name,
		FullPath: path,
		Type:     metadata.ResourceTypeShader,
		DataSize: uint64(len(data)),
		Data:     code,
	}, nil
}

func (sl *ShaderLoader) Unload(res *metadata.Resource) error {
	res.Data = nil
	res.DataSize = 0
	return nil
}

// TextLoader reads a file as a string.
type TextLoader struct{}

func (tl *TextLoader) Load(name, path string) (*metadata.Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, core.Errorf("text_load", core.ErrUnknown, "%v", err)
	}
	return &metadata.Resource{
		Name:     name,
		FullPath: path,
		Type:     metadata.ResourceTypeText,
		DataSize: uint64(len(data)),
		Data:     string(data),
	}, nil
}

func (tl *TextLoader) Unload(res *metadata.Resource) error {
	res.Data = nil
	res.DataSize = 0
	return nil
}

package resource

import (
	"context"
	"io/fs"
)

// Blob is an opaque file payload (textures, fonts)
type Blob struct {
	Name string
	Path string
	Data []byte
}

func registerBuiltinLoaders(db *DB) {
	db.RegisterLoader(TypeMesh, "procedural", LoaderFunc(proceduralMesh))
	db.RegisterLoader(TypeMaterial, "builtin", LoaderFunc(builtinMaterial))
	db.RegisterLoader(TypeMaterial, "params", LoaderFunc(paramMaterial))
	db.RegisterLoader(TypeSound, "tone", LoaderFunc(toneSound))
}

func registerFileLoaders(db *DB, fsys fs.FS) {
	file := LoaderFunc(func(_ context.Context, d Descriptor) (any, error) {
		path := paramString(d.Params, "path", d.Name)
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return nil, err
		}
		return &Blob{Name: d.Name, Path: path, Data: data}, nil
	})
	for _, t := range []Type{TypeTexture, TypeFont, TypeBlob} {
		db.RegisterLoader(t, "file", file)
	}
	db.RegisterLoader(TypeSound, "wav", wavSound(fsys))
}

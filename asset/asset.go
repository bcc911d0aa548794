// Package asset embeds the default scene, keymap and engine config
package asset

import (
	"embed"
	"io/fs"
)

//go:embed scenes/*.yaml
var scenes embed.FS

//go:embed keymap.toml
var DefaultKeymap []byte

//go:embed toymaker.toml
var DefaultConfig []byte

// DefaultScene is the board scene's path within Scenes
const DefaultScene = "board.yaml"

// Scenes returns the embedded scene files rooted at their directory
func Scenes() fs.FS {
	sub, err := fs.Sub(scenes, "scenes")
	if err != nil {
		panic(err)
	}
	return sub
}

package assets

import (
	_ "embed"
)

// IconData is the menu bar template icon
//
//go:embed icon.png
var IconData []byte

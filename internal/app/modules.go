package app

import (
	"github.com/vk/bluegraph/internal/registry"
	"github.com/vk/bluegraph/modules/envfns"
	"github.com/vk/bluegraph/modules/mathfns"
	"github.com/vk/bluegraph/modules/textfns"
)

// builtinModules is the default function set installed when NewApp is given
// no modules of its own.
var builtinModules = []registry.Module{
	&mathfns.Module{},
	&textfns.Module{},
	&envfns.Module{},
}

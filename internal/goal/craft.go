package goal

import (
	"github.com/flightgym/flightgym/internal/fdm"
	"github.com/flightgym/flightgym/internal/geo"
	"github.com/flightgym/flightgym/pkg/core"
)

type simCraft struct {
	store fdm.PropertyStore
}

// SimCraft exposes a simulator property store as a Craft.
func SimCraft(store fdm.PropertyStore) Craft {
	return simCraft{store: store}
}

func (c simCraft) Observe() (core.Observation, error) {
	return fdm.ReadState(c.store)
}

func (c simCraft) Geodetic() (geo.Geodetic, error) {
	return fdm.Geodetic(c.store)
}

func (c simCraft) Teleport(p core.Position3D) error {
	return fdm.SetPosition(c.store, p)
}

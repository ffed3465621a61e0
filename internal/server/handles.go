package server

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/ironsheep/pgm-tools-mcp/internal/raster"
)

// handleTable maps opaque ids to the rasters a client has created.
// It is not synchronized; Server.mu guards it.
type handleTable struct {
	max     int
	rasters map[string]*raster.Image
}

func newHandleTable(limit int) *handleTable {
	return &handleTable{
		max:     limit,
		rasters: make(map[string]*raster.Image),
	}
}

// add stores img under a fresh id. When the table is full img is
// released and an error is returned.
func (t *handleTable) add(img *raster.Image) (string, error) {
	if len(t.rasters) >= t.max {
		img.Release()
		return "", fmt.Errorf("too many rasters (limit %d); release some with raster_release", t.max)
	}
	id := uuid.NewString()
	t.rasters[id] = img
	return id, nil
}

func (t *handleTable) get(id string) (*raster.Image, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid raster id %q: %w", id, err)
	}
	img, ok := t.rasters[id]
	if !ok {
		return nil, fmt.Errorf("unknown raster id %s", id)
	}
	return img, nil
}

// remove forgets id and releases its raster.
func (t *handleTable) remove(id string) error {
	img, err := t.get(id)
	if err != nil {
		return err
	}
	img.Release()
	delete(t.rasters, id)
	return nil
}

// clear releases every raster and returns how many there were.
func (t *handleTable) clear() int {
	n := len(t.rasters)
	for id, img := range t.rasters {
		img.Release()
		delete(t.rasters, id)
	}
	return n
}

func (t *handleTable) ids() []string {
	ids := make([]string, 0, len(t.rasters))
	for id := range t.rasters {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// each calls fn for every raster in id order.
func (t *handleTable) each(fn func(id string, img *raster.Image)) {
	for _, id := range t.ids() {
		fn(id, t.rasters[id])
	}
}

package textcrdt

import "github.com/cshekharsharma/go-textcrdt/operation"

// GetOperations returns every operation this replica has integrated or
// produced locally, plus one synthesized
// MarkersUpdateOperation per site carrying that site's complete current
// marker state (so a late-joining peer can catch up without replaying
// every individual marker edit).
func (d *Document) GetOperations() []operation.Operation {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]operation.Operation, len(d.operationLog), len(d.operationLog)+len(d.liveMarkers))
	copy(out, d.operationLog)

	for site, layers := range d.liveMarkers {
		updates := make(map[string]*operation.LayerUpdate, len(layers))
		for layer, ids := range layers {
			markerCopy := make(map[string]*operation.MarkerValue, len(ids))
			for markerID, v := range ids {
				val := v
				markerCopy[markerID] = &val
			}
			updates[layer] = &operation.LayerUpdate{Markers: markerCopy}
		}
		out = append(out, operation.Operation{MarkersUpdate: &operation.MarkersUpdateOperation{SiteID: site, Updates: updates}})
	}

	return out
}

// Replicate builds a new replica under its own site identity, caught up
// with every operation this replica holds. The operation log is retained
// indefinitely precisely so late joiners can be brought up this way.
func (d *Document) Replicate(siteID uint32) (*Document, error) {
	ops := d.GetOperations()
	r, err := New(siteID)
	if err != nil {
		return nil, err
	}
	if _, err := r.IntegrateOperations(ops); err != nil {
		return nil, err
	}
	return r, nil
}

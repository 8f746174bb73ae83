package textcrdt

import (
	"github.com/cshekharsharma/go-textcrdt/history"
	"github.com/cshekharsharma/go-textcrdt/markers"
	"github.com/cshekharsharma/go-textcrdt/operation"
	"github.com/cshekharsharma/go-textcrdt/spliceid"
)

// MarkerRequest is one marker's desired state in linear coordinates, the
// form a host editor naturally holds. A nil *MarkerRequest in a
// LayerMarkerUpdate.Markers map deletes that marker.
type MarkerRequest struct {
	Exclusive bool
	Reversed  bool
	Tailed    bool
	Range     operation.Range
}

// LayerMarkerUpdate is one layer's worth of marker changes for the local
// site. A nil *LayerMarkerUpdate value in UpdateMarkers' map removes that
// layer entirely for this site.
type LayerMarkerUpdate struct {
	Markers map[string]*MarkerRequest
}

// UpdateMarkers converts every linear marker request into its logical
// anchor form, applies it to the local site's live marker table, and
// returns the wire operation for broadcast to peers.
func (d *Document) UpdateMarkers(layerUpdates map[string]*LayerMarkerUpdate) operation.MarkersUpdateOperation {
	d.mu.Lock()
	defer d.mu.Unlock()

	wireUpdates := make(map[string]*operation.LayerUpdate, len(layerUpdates))
	for layer, lu := range layerUpdates {
		if lu == nil {
			wireUpdates[layer] = nil
			d.clearLayer(d.siteID, layer)
			continue
		}
		wireMarkers := make(map[string]*operation.MarkerValue, len(lu.Markers))
		for markerID, req := range lu.Markers {
			if req == nil {
				wireMarkers[markerID] = nil
				d.setLiveMarker(d.siteID, layer, markerID, nil)
				d.deferredMarkers.Clear(d.siteID, layer, markerID)
				continue
			}
			logical := markers.GetLogicalRange(d.docTree, req.Range, req.Exclusive)
			v := operation.MarkerValue{Exclusive: req.Exclusive, Reversed: req.Reversed, Tailed: req.Tailed, Range: logical}
			wireMarkers[markerID] = &v
			d.setLiveMarker(d.siteID, layer, markerID, &v)
			d.deferredMarkers.Clear(d.siteID, layer, markerID)
		}
		wireUpdates[layer] = &operation.LayerUpdate{Markers: wireMarkers}
	}

	return operation.MarkersUpdateOperation{SiteID: d.siteID, Updates: wireUpdates}
}

// GetMarkers resolves every live
// marker, across every site and layer, into its current linear range.
func (d *Document) GetMarkers() operation.SiteMarkers {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.resolveAllMarkers()
}

func (d *Document) resolveAllMarkers() operation.SiteMarkers {
	out := make(operation.SiteMarkers)
	for site, layers := range d.liveMarkers {
		for layer, ids := range layers {
			for markerID, v := range ids {
				if r, ok := markers.ResolveLogicalRange(d.docTree, d.splitTreeFor, v.Range, v.Exclusive); ok {
					putMarker(out, site, layer, markerID, operation.Marker{Exclusive: v.Exclusive, Reversed: v.Reversed, Tailed: v.Tailed, Range: r})
				}
			}
		}
	}
	return out
}

func putMarker(out operation.SiteMarkers, site uint32, layer, markerID string, m operation.Marker) {
	if out[site] == nil {
		out[site] = make(map[string]map[string]operation.Marker)
	}
	if out[site][layer] == nil {
		out[site][layer] = make(map[string]operation.Marker)
	}
	out[site][layer][markerID] = m
}

func (d *Document) setLiveMarker(site uint32, layer, markerID string, v *operation.MarkerValue) {
	if v == nil {
		if d.liveMarkers[site] != nil && d.liveMarkers[site][layer] != nil {
			delete(d.liveMarkers[site][layer], markerID)
		}
		return
	}
	if d.liveMarkers[site] == nil {
		d.liveMarkers[site] = make(map[string]map[string]operation.MarkerValue)
	}
	if d.liveMarkers[site][layer] == nil {
		d.liveMarkers[site][layer] = make(map[string]operation.MarkerValue)
	}
	d.liveMarkers[site][layer][markerID] = *v
}

func (d *Document) clearLayer(site uint32, layer string) {
	if d.liveMarkers[site] == nil {
		return
	}
	for markerID := range d.liveMarkers[site][layer] {
		d.deferredMarkers.Clear(site, layer, markerID)
	}
	delete(d.liveMarkers[site], layer)
}

// integrateMarkersUpdate applies a remote
// MarkersUpdateOperation: a nil *LayerUpdate removes the layer for
// that site; within a present layer, a nil *MarkerValue removes the
// marker; otherwise the update is applied immediately if both of its
// anchors are already locally present, or deferred until they are.
// Resolved markers are recorded into out for the caller's
// DocumentStateUpdate.
func (d *Document) integrateMarkersUpdate(op *operation.MarkersUpdateOperation, out operation.SiteMarkers) {
	for layer, lu := range op.Updates {
		if lu == nil {
			d.clearLayer(op.SiteID, layer)
			continue
		}
		for markerID, v := range lu.Markers {
			if v == nil {
				d.setLiveMarker(op.SiteID, layer, markerID, nil)
				d.deferredMarkers.Clear(op.SiteID, layer, markerID)
				continue
			}
			if markers.BothAnchorsPresent(*v, d.isPresent) {
				d.setLiveMarker(op.SiteID, layer, markerID, v)
				d.deferredMarkers.Clear(op.SiteID, layer, markerID)
				if r, ok := markers.ResolveLogicalRange(d.docTree, d.splitTreeFor, v.Range, v.Exclusive); ok {
					putMarker(out, op.SiteID, layer, markerID, operation.Marker{Exclusive: v.Exclusive, Reversed: v.Reversed, Tailed: v.Tailed, Range: r})
				}
			} else {
				d.deferredMarkers.Defer(op.SiteID, layer, markerID, *v)
			}
		}
	}
}

// resolveMarkerDependents re-checks deferred marker updates: once
// spliceID becomes locally present, every deferred marker update filed
// under it is re-examined and materialized if both of its anchors now
// resolve.
func (d *Document) resolveMarkerDependents(spliceID spliceid.SpliceId, out operation.SiteMarkers) {
	for _, entry := range d.deferredMarkers.Ready(spliceID) {
		if !markers.BothAnchorsPresent(entry.Value, d.isPresent) {
			continue
		}
		d.setLiveMarker(entry.Site, entry.Layer, entry.Marker, &entry.Value)
		d.deferredMarkers.Resolve(entry.Site, entry.Layer, entry.Marker)
		if r, ok := markers.ResolveLogicalRange(d.docTree, d.splitTreeFor, entry.Value.Range, entry.Value.Exclusive); ok {
			putMarker(out, entry.Site, entry.Layer, entry.Marker, operation.Marker{
				Exclusive: entry.Value.Exclusive, Reversed: entry.Value.Reversed, Tailed: entry.Value.Tailed, Range: r,
			})
		}
	}
}

// snapshotMarkers captures every site/layer/marker's current logical
// value, for storage in a CheckpointRecord or TransactionRecord.
func (d *Document) snapshotMarkers() history.MarkersSnapshot {
	out := make(history.MarkersSnapshot, len(d.liveMarkers))
	for site, layers := range d.liveMarkers {
		layerCopy := make(map[string]map[string]operation.MarkerValue, len(layers))
		for layer, ids := range layers {
			idCopy := make(map[string]operation.MarkerValue, len(ids))
			for markerID, v := range ids {
				idCopy[markerID] = v
			}
			layerCopy[layer] = idCopy
		}
		out[site] = layerCopy
	}
	return out
}

// markersFromSnapshotOn resolves a stored MarkersSnapshot into linear ranges
// against the current document state, for the Markers field of an
// UndoRedoResult.
func markersFromSnapshotOn(d *Document, snap history.MarkersSnapshot) operation.SiteMarkers {
	if snap == nil {
		return nil
	}
	out := make(operation.SiteMarkers)
	for site, layers := range snap {
		for layer, ids := range layers {
			for markerID, v := range ids {
				if r, ok := markers.ResolveLogicalRange(d.docTree, d.splitTreeFor, v.Range, v.Exclusive); ok {
					putMarker(out, site, layer, markerID, operation.Marker{Exclusive: v.Exclusive, Reversed: v.Reversed, Tailed: v.Tailed, Range: r})
				}
			}
		}
	}
	return out
}
